// Package providerid extracts canonical external provider identifiers
// (IMDB, TMDB, TVDB) from Plex agent GUID strings.
//
// Parse is a pure function: the same raw identifier always yields the same
// ProviderRef or the same Rejection. Provider detection runs an ordered
// marker table per media kind and the first matching marker wins, so an
// identifier is never resolved against more than one provider.
package providerid
