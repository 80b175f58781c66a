package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.ValidateEmby(); err != nil {
		return err
	}
	if err := c.validateUsers(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePlex() error {
	if err := validateBaseURL("plex.url", c.Plex.URL); err != nil {
		return err
	}
	return nil
}

// ValidateEmby checks only the [emby] connection settings.
func (c *Config) ValidateEmby() error {
	if err := validateBaseURL("emby.url", c.Emby.URL); err != nil {
		return err
	}
	if c.Emby.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("emby.api_key is required. Set EMBY_API_KEY env var or edit %s (create with 'watchsync config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateUsers() error {
	if len(c.Users) == 0 {
		return errors.New("at least one [users.<name>] entry is required")
	}
	names := make([]string, 0, len(c.Users))
	for name := range c.Users {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		user := c.Users[name]
		if user.EmbyUserID == "" {
			return fmt.Errorf("users.%s.emby_user_id must be set", name)
		}
		if user.PlexToken == "" && c.Plex.Token == "" {
			return fmt.Errorf("users.%s.plex_token must be set when plex.token is empty (or set PLEX_TOKEN)", name)
		}
	}
	for _, name := range c.Sync.Users {
		if _, ok := c.Users[name]; !ok {
			return fmt.Errorf("sync.users references unknown user %q", name)
		}
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Workers < 1 || c.Sync.Workers > maxWorkers {
		return fmt.Errorf("sync.workers must be between 1 and %d", maxWorkers)
	}
	if c.Sync.RequestTimeout <= 0 || c.Sync.RequestTimeout > maxRequestTimeoutSeconds {
		return fmt.Errorf("sync.request_timeout must be between 1 and %d seconds", maxRequestTimeoutSeconds)
	}
	if c.Sync.RequestsPerSecond < 0 {
		return errors.New("sync.requests_per_second must be >= 0")
	}
	if c.History.KeepRuns < 0 {
		return errors.New("history.keep_runs must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if err := validateBaseURL("notifications.ntfy_topic", c.Notifications.NtfyTopic); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func validateBaseURL(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", key)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, value)
	}
	return nil
}
