package testsupport

import (
	"path/filepath"
	"testing"

	"watchsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Emby.APIKey = "test"
	cfgVal.Plex.Token = "test"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Users = map[string]config.User{
		"owner": {EmbyUserID: "owner-id"},
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithServers points the Plex and Emby URLs at test servers.
func WithServers(plexURL, embyURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Plex.URL = plexURL
		b.cfg.Emby.URL = embyURL
	}
}

// WithUser adds a user mapping to the test config.
func WithUser(name, plexToken, embyUserID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Users[name] = config.User{PlexToken: plexToken, EmbyUserID: embyUserID}
	}
}

// WithoutHistory disables the run ledger.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
