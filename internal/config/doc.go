// Package config loads, normalizes, and validates watchsync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PLEX_TOKEN and EMBY_API_KEY. The Config type centralizes the Plex and Emby
// connection settings, the per-user credential mapping, and the user/section
// allow-lists so the CLI can hand the sync driver explicit parameters instead
// of process-wide state.
package config
