// Package httpx holds the HTTP plumbing shared by the Plex and Emby clients:
// a tuned client with per-request timeouts, optional request pacing through a
// token bucket, a single retry on 429/5xx responses, and status-to-error
// classification.
package httpx
