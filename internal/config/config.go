package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Plex contains connection settings for the source Plex Media Server.
type Plex struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// Emby contains connection settings for the target Emby/Jellyfin server.
type Emby struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	PathPrefix string `toml:"path_prefix"`
}

// User maps a logical user name onto credentials in both catalogs.
type User struct {
	PlexToken  string `toml:"plex_token"`
	EmbyUserID string `toml:"emby_user_id"`
}

// Sync contains run behaviour: allow-lists, pacing, and concurrency.
type Sync struct {
	Users             []string `toml:"users"`
	Sections          []string `toml:"sections"`
	DryRun            bool     `toml:"dry_run"`
	Workers           int      `toml:"workers"`
	RequestTimeout    int      `toml:"request_timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// Paths contains directories for state and logs.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// History contains configuration for the run history ledger.
type History struct {
	Enabled bool `toml:"enabled"`
	// KeepRuns bounds the ledger; older runs are pruned after each sync. 0 keeps everything.
	KeepRuns int `toml:"keep_runs"`
}

// Metrics contains configuration for Prometheus textfile output.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Notifications contains configuration for ntfy run summaries.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for watchsync.
//
// Configuration sections by subsystem:
//   - Plex: source catalog URL and default token
//   - Emby: target catalog URL, API key, and path prefix
//   - Users: logical user name -> Plex token + Emby user id
//   - Sync: allow-lists, dry run, workers, request timeout and pacing
//   - Paths: state and log directories
//   - History: SQLite run ledger
//   - Metrics: Prometheus textfile export
//   - Notifications: ntfy topic for run summaries
//   - Logging: log format and level
type Config struct {
	Plex    Plex            `toml:"plex"`
	Emby    Emby            `toml:"emby"`
	Users   map[string]User `toml:"users"`
	Sync    Sync            `toml:"sync"`
	Paths   Paths           `toml:"paths"`
	History History         `toml:"history"`
	Metrics Metrics         `toml:"metrics"`
	// Notifications is optional; an empty topic disables it.
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	return load(path, true)
}

// LoadUnvalidated locates and parses a configuration file without validating it.
// Setup commands use it before the user mapping has been filled in.
func LoadUnvalidated(path string) (*Config, string, bool, error) {
	return load(path, false)
}

func load(path string, validate bool) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, "", false, err
		}
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("watchsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the SQLite ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the single-run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "watchsync.lock")
}

// LogPath returns the log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "watchsync.log")
}

// RequestTimeout returns the per-request timeout for catalog calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Sync.RequestTimeout) * time.Second
}

// UserCredentials are the resolved credentials for one logical user.
type UserCredentials struct {
	Name       string
	PlexToken  string
	EmbyUserID string
}

// SelectedUsers returns the users to sync in name order. The allow-list is the
// union of sync.users and extra; an empty union selects everyone. Unknown
// names in extra are reported as errors.
func (c *Config) SelectedUsers(extra []string) ([]UserCredentials, error) {
	allow := normalizeList(append(slices.Clone(c.Sync.Users), extra...))
	for _, name := range allow {
		if _, ok := c.Users[name]; !ok {
			return nil, fmt.Errorf("user %q is not defined under [users]", name)
		}
	}

	names := make([]string, 0, len(c.Users))
	for name := range c.Users {
		if len(allow) > 0 && !slices.Contains(allow, name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]UserCredentials, 0, len(names))
	for _, name := range names {
		user := c.Users[name]
		token := user.PlexToken
		if token == "" {
			token = c.Plex.Token
		}
		out = append(out, UserCredentials{Name: name, PlexToken: token, EmbyUserID: user.EmbyUserID})
	}
	return out, nil
}

// SectionAllowList merges sync.sections with extra titles.
func (c *Config) SectionAllowList(extra []string) []string {
	return normalizeList(append(slices.Clone(c.Sync.Sections), extra...))
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || slices.Contains(out, value) {
			continue
		}
		out = append(out, value)
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
