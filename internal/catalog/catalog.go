package catalog

import (
	"fmt"
	"strings"
)

// Kind tags a library section (and every item in it) as movie or show content.
type Kind int

const (
	KindUnknown Kind = iota
	KindMovie
	KindShow
)

// String returns the lowercase label used in logs and the history ledger.
func (k Kind) String() string {
	switch k {
	case KindMovie:
		return "movie"
	case KindShow:
		return "show"
	default:
		return "unknown"
	}
}

// ParseKind maps a user or API supplied label onto a Kind.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie", "movies":
		return KindMovie, nil
	case "show", "shows", "tv", "series":
		return KindShow, nil
	default:
		return KindUnknown, fmt.Errorf("unknown media kind %q", value)
	}
}

// Section is a named library grouping. Key is the owning catalog's own
// identifier (Plex section key or Emby media folder id).
type Section struct {
	Key   string
	Title string
	Kind  Kind
}

// Movie is a source-catalog movie.
type Movie struct {
	Key            string
	Title          string
	Year           int
	Watched        bool
	GUID           string
	AlternateGUIDs []string
}

// Show is a source-catalog TV series. Episodes are fetched separately once
// the show has been resolved in the target catalog.
type Show struct {
	Key                 string
	Title               string
	Year                int
	WatchedEpisodeCount int
	GUID                string
}

// Episode is a single source-catalog episode addressed by season and number.
type Episode struct {
	Season  int
	Number  int
	Watched bool
}

// Label renders the episode as S01E02.
func (e Episode) Label() string {
	return fmt.Sprintf("S%02dE%02d", e.Season, e.Number)
}

// DisplayTitle renders "Title (Year)" the way skip reports show items.
func DisplayTitle(title string, year int) string {
	title = strings.TrimSpace(title)
	if year <= 0 {
		return title
	}
	return fmt.Sprintf("%s (%d)", title, year)
}
