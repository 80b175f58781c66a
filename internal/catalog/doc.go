// Package catalog holds the catalog-neutral data model shared by the Plex
// source client, the Emby target client, and the sync engine.
//
// Items are modelled as a tagged variant: a Section carries an explicit Kind
// and the engine dispatches on that tag, so movie and show payloads never
// need runtime type inspection.
package catalog
