// Package logging assembles structured slog loggers and formatting helpers used
// across watchsync.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so engine code automatically tags log
// lines with the run ID, user, and section being synced. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
