package main

import (
	"watchsync/internal/config"
	"watchsync/internal/services/emby"
	"watchsync/internal/services/httpx"
	"watchsync/internal/services/plex"
	"watchsync/internal/syncengine"
)

// clientFactory builds per-user Plex and Emby clients over one shared,
// paced HTTP client.
type clientFactory struct {
	cfg    *config.Config
	client *httpx.Client
}

func newClientFactory(cfg *config.Config) *clientFactory {
	return &clientFactory{cfg: cfg, client: httpx.NewFromConfig(cfg)}
}

func (f *clientFactory) Source(user config.UserCredentials) syncengine.Source {
	return plex.New(f.cfg.Plex.URL, user.PlexToken, f.client)
}

func (f *clientFactory) Target(user config.UserCredentials) syncengine.Target {
	return emby.NewFromConfig(f.cfg, user.EmbyUserID, f.client)
}

func (f *clientFactory) emby() *emby.Client {
	return emby.NewFromConfig(f.cfg, "", f.client)
}
