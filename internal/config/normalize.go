package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlex()
	c.normalizeEmby()
	c.normalizeUsers()
	c.normalizeSync()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePlex() {
	if c.Plex.Token == "" {
		if value, ok := os.LookupEnv("PLEX_TOKEN"); ok {
			c.Plex.Token = value
		}
	}
	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
}

func (c *Config) normalizeEmby() {
	if c.Emby.APIKey == "" {
		if value, ok := os.LookupEnv("EMBY_API_KEY"); ok {
			c.Emby.APIKey = value
		}
	}
	c.Emby.URL = strings.TrimRight(strings.TrimSpace(c.Emby.URL), "/")
	c.Emby.APIKey = strings.TrimSpace(c.Emby.APIKey)
	prefix := strings.Trim(strings.TrimSpace(c.Emby.PathPrefix), "/")
	if prefix == "" {
		c.Emby.PathPrefix = ""
	} else {
		c.Emby.PathPrefix = "/" + prefix
	}
}

func (c *Config) normalizeUsers() {
	if c.Users == nil {
		c.Users = map[string]User{}
		return
	}
	normalized := make(map[string]User, len(c.Users))
	for name, user := range c.Users {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		user.PlexToken = strings.TrimSpace(user.PlexToken)
		user.EmbyUserID = strings.TrimSpace(user.EmbyUserID)
		normalized[name] = user
	}
	c.Users = normalized
}

func (c *Config) normalizeSync() {
	c.Sync.Users = normalizeList(c.Sync.Users)
	c.Sync.Sections = normalizeList(c.Sync.Sections)
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = defaultWorkers
	}
	if c.Sync.RequestTimeout <= 0 {
		c.Sync.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeMetrics() error {
	var err error
	c.Metrics.Textfile = strings.TrimSpace(c.Metrics.Textfile)
	if c.Metrics.Textfile, err = expandPath(c.Metrics.Textfile); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
