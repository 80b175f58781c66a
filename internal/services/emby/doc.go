// Package emby implements the target catalog client for Emby and Jellyfin.
//
// The client resolves library folders by title, finds items by external
// provider id, lists a show's episodes, and marks items played for one Emby
// user. Requests authenticate with the X-Emby-Token header and are issued
// under a configurable path prefix ("/emby" for Emby, empty for Jellyfin).
package emby
