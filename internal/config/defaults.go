package config

const (
	defaultConfigPath        = "~/.config/watchsync/config.toml"
	defaultStateDir          = "~/.local/share/watchsync"
	defaultLogDir            = "~/.local/share/watchsync/logs"
	defaultPlexURL           = "http://127.0.0.1:32400"
	defaultEmbyURL           = "http://127.0.0.1:8096"
	defaultEmbyPathPrefix    = "/emby"
	defaultWorkers           = 1
	defaultRequestTimeout    = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultHistoryEnabled    = true
	defaultHistoryKeepRuns   = 100
	defaultNtfyTimeout       = 10
	maxWorkers               = 16
	maxRequestTimeoutSeconds = 600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Plex: Plex{
			URL: defaultPlexURL,
		},
		Emby: Emby{
			URL:        defaultEmbyURL,
			PathPrefix: defaultEmbyPathPrefix,
		},
		Users: map[string]User{},
		Sync: Sync{
			Workers:        defaultWorkers,
			RequestTimeout: defaultRequestTimeout,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		History: History{
			Enabled:  defaultHistoryEnabled,
			KeepRuns: defaultHistoryKeepRuns,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
