package providerid

import (
	"errors"
	"fmt"
	"strings"

	"watchsync/internal/catalog"
)

// Provider is an external metadata authority used as the cross-catalog join key.
type Provider string

const (
	IMDB Provider = "imdb"
	TMDB Provider = "tmdb"
	TVDB Provider = "tvdb"
)

// ProviderRef is the canonical (provider, id) pair shared by both catalogs.
type ProviderRef struct {
	Provider Provider
	ID       string
}

// String renders the ref as provider.id, the form Emby expects in
// AnyProviderIdEquals filters.
func (r ProviderRef) String() string {
	return string(r.Provider) + "." + r.ID
}

// Reason classifies why a raw identifier was rejected.
type Reason string

const (
	ReasonUnmatched            Reason = "unmatched"
	ReasonUnrecognizedAgent    Reason = "unrecognized_agent"
	ReasonNoAlternateAvailable Reason = "no_alternate_available"
	ReasonMalformed            Reason = "malformed"
)

// Rejection is returned by Parse when an identifier cannot be used for lookup.
type Rejection struct {
	Reason Reason
	Raw    string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("identifier %q rejected: %s", r.Raw, r.Reason)
}

// RejectionReason unwraps err and reports the rejection reason, if any.
func RejectionReason(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

const (
	newMovieAgentPrefix = "plex://movie/"
	localPrefix         = "local"
	noAgentMarker       = "agents.none"
)

type marker struct {
	substring string
	provider  Provider
}

// Order matters: the first marker contained in the identifier decides the provider.
var (
	movieMarkers = []marker{
		{"imdb", IMDB},
		{"themoviedb", TMDB},
		{"tmdb", TMDB},
	}
	showMarkers = []marker{
		{"thetvdb", TVDB},
		{"themoviedb", TMDB},
		{"tmdb", TMDB},
		// Legacy misspelling matched by older show agents.
		{"tmbd", TMDB},
	}
)

// Parse extracts the provider reference from a raw source identifier.
// Alternates are only consulted for movies carrying the new Plex movie agent
// GUID; shows never fall back to alternates.
func Parse(raw string, alternates []string, kind catalog.Kind) (ProviderRef, error) {
	var markers []marker
	switch kind {
	case catalog.KindMovie:
		markers = movieMarkers
		if strings.HasPrefix(raw, newMovieAgentPrefix) {
			if len(alternates) == 0 {
				return ProviderRef{}, &Rejection{Reason: ReasonNoAlternateAvailable, Raw: raw}
			}
			raw = alternates[0]
		}
	case catalog.KindShow:
		markers = showMarkers
	default:
		return ProviderRef{}, &Rejection{Reason: ReasonUnrecognizedAgent, Raw: raw}
	}

	if strings.HasPrefix(raw, localPrefix) || strings.Contains(raw, noAgentMarker) {
		return ProviderRef{}, &Rejection{Reason: ReasonUnmatched, Raw: raw}
	}

	for _, m := range markers {
		if !strings.Contains(raw, m.substring) {
			continue
		}
		id, ok := extractID(raw)
		if !ok {
			return ProviderRef{}, &Rejection{Reason: ReasonMalformed, Raw: raw}
		}
		return ProviderRef{Provider: m.provider, ID: id}, nil
	}
	return ProviderRef{}, &Rejection{Reason: ReasonUnrecognizedAgent, Raw: raw}
}

// extractID returns the text after the first "//", cut at the first "?".
// Path segments after the id are kept verbatim.
func extractID(raw string) (string, bool) {
	_, rest, found := strings.Cut(raw, "//")
	if !found {
		return "", false
	}
	id, _, _ := strings.Cut(rest, "?")
	if id == "" {
		return "", false
	}
	return id, true
}
