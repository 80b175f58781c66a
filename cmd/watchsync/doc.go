// Package main hosts the watchsync CLI entrypoint and command graph.
//
// The Cobra-based command tree loads configuration once, wires the Plex and
// Emby clients into the sync driver, and renders run summaries and the run
// history as tables. It also carries setup helpers: sample config creation,
// Emby user discovery for filling in [users], and an identifier parser probe.
//
// Keep this package lean: behaviour belongs in internal packages and is only
// surfaced here through commands and flags.
package main
