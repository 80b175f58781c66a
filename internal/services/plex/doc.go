// Package plex implements the source catalog client for Plex Media Server.
//
// It lists library sections, pages through a section's movies or shows with
// their agent GUIDs, and fetches a show's episodes. Every request carries the
// user's X-Plex-Token so watched state is read for that account.
package plex
