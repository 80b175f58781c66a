// Package history persists a ledger of sync runs in SQLite.
//
// Each run records its start and finish, every section processed for every
// user, and one row per item outcome, so "why was this not marked?" can be
// answered after the fact with `watchsync history`. The schema is managed by
// embedded, ordered SQL migrations tracked in schema_migrations.
package history
