// Package services defines shared utilities consumed by the sync engine and
// the catalog integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, user names, and section titles for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can decide
//     whether a failure aborts a user's run or only skips one item.
//
// Use these helpers when wiring new catalog clients so operational behaviour
// (error classification, observability) stays uniform.
package services
