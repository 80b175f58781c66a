package providerid_test

import (
	"errors"
	"testing"

	"watchsync/internal/catalog"
	"watchsync/internal/providerid"
)

func TestParseAccepted(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		alternates []string
		kind       catalog.Kind
		want       providerid.ProviderRef
	}{
		{
			name: "imdb movie agent",
			raw:  "com.plexapp.agents.imdb://tt0120338?lang=en",
			kind: catalog.KindMovie,
			want: providerid.ProviderRef{Provider: providerid.IMDB, ID: "tt0120338"},
		},
		{
			name: "imdb scheme",
			raw:  "imdb://tt0120338?lang=en",
			kind: catalog.KindMovie,
			want: providerid.ProviderRef{Provider: providerid.IMDB, ID: "tt0120338"},
		},
		{
			name:       "new movie agent uses first alternate",
			raw:        "plex://movie/5d776825880197001ec967c8",
			alternates: []string{"tmdb://603?lang=en", "imdb://tt0133093"},
			kind:       catalog.KindMovie,
			want:       providerid.ProviderRef{Provider: providerid.TMDB, ID: "603"},
		},
		{
			name: "themoviedb movie agent",
			raw:  "com.plexapp.agents.themoviedb://603?lang=en",
			kind: catalog.KindMovie,
			want: providerid.ProviderRef{Provider: providerid.TMDB, ID: "603"},
		},
		{
			name: "no query string keeps remainder",
			raw:  "tmdb://603",
			kind: catalog.KindMovie,
			want: providerid.ProviderRef{Provider: providerid.TMDB, ID: "603"},
		},
		{
			name: "tvdb id keeps path segments",
			raw:  "com.plexapp.agents.thetvdb://121361/2/1",
			kind: catalog.KindShow,
			want: providerid.ProviderRef{Provider: providerid.TVDB, ID: "121361/2/1"},
		},
		{
			name: "tvdb show agent",
			raw:  "com.plexapp.agents.thetvdb://121361?lang=en",
			kind: catalog.KindShow,
			want: providerid.ProviderRef{Provider: providerid.TVDB, ID: "121361"},
		},
		{
			name: "themoviedb show agent",
			raw:  "com.plexapp.agents.themoviedb://1399?lang=en",
			kind: catalog.KindShow,
			want: providerid.ProviderRef{Provider: providerid.TMDB, ID: "1399"},
		},
		{
			name: "legacy tmbd show alias",
			raw:  "com.plexapp.agents.tmbd://1399",
			kind: catalog.KindShow,
			want: providerid.ProviderRef{Provider: providerid.TMDB, ID: "1399"},
		},
		{
			name: "imdb wins over tmdb when both appear",
			raw:  "imdb://tt1?source=tmdb",
			kind: catalog.KindMovie,
			want: providerid.ProviderRef{Provider: providerid.IMDB, ID: "tt1"},
		},
		{
			name: "marker matched anywhere in the string",
			raw:  "com.example.themoviedb.bridge://42",
			kind: catalog.KindMovie,
			want: providerid.ProviderRef{Provider: providerid.TMDB, ID: "42"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := providerid.Parse(tc.raw, tc.alternates, tc.kind)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseRejected(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		alternates []string
		kind       catalog.Kind
		want       providerid.Reason
	}{
		{"local movie", "local://abc", nil, catalog.KindMovie, providerid.ReasonUnmatched},
		{"no agent movie", "com.plexapp.agents.none://123?lang=xn", nil, catalog.KindMovie, providerid.ReasonUnmatched},
		{"local wins over imdb marker", "local://imdb/tt1", nil, catalog.KindMovie, providerid.ReasonUnmatched},
		{"new agent without alternates", "plex://movie/5d776825880197001ec967c8", nil, catalog.KindMovie, providerid.ReasonNoAlternateAvailable},
		{"new agent alternate is local", "plex://movie/5d77", []string{"local://9"}, catalog.KindMovie, providerid.ReasonUnmatched},
		{"unknown movie agent", "com.plexapp.agents.lastfm://artist", nil, catalog.KindMovie, providerid.ReasonUnrecognizedAgent},
		{"new show agent falls through", "plex://show/5d9c086c46115600200aa2fe", nil, catalog.KindShow, providerid.ReasonUnrecognizedAgent},
		{"show ignores alternates", "plex://show/5d9c", []string{"tvdb://121361"}, catalog.KindShow, providerid.ReasonUnrecognizedAgent},
		{"imdb is not a show provider", "com.plexapp.agents.imdb://tt0944947", nil, catalog.KindShow, providerid.ReasonUnrecognizedAgent},
		{"local show", "local://55", nil, catalog.KindShow, providerid.ReasonUnmatched},
		{"marker without separator", "imdb-tt0120338", nil, catalog.KindMovie, providerid.ReasonMalformed},
		{"empty id", "imdb://?lang=en", nil, catalog.KindMovie, providerid.ReasonMalformed},
		{"unknown kind", "imdb://tt1", nil, catalog.KindUnknown, providerid.ReasonUnrecognizedAgent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := providerid.Parse(tc.raw, tc.alternates, tc.kind)
			if err == nil {
				t.Fatalf("Parse(%q) expected rejection", tc.raw)
			}
			reason, ok := providerid.RejectionReason(err)
			if !ok {
				t.Fatalf("expected *Rejection, got %T", err)
			}
			if reason != tc.want {
				t.Fatalf("Parse(%q) reason = %s, want %s", tc.raw, reason, tc.want)
			}
			var rej *providerid.Rejection
			if !errors.As(err, &rej) || rej.Raw == "" {
				t.Fatalf("expected rejection to carry raw identifier, got %+v", rej)
			}
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	inputs := []string{
		"imdb://tt0120338?lang=en",
		"local://abc",
		"plex://movie/5d776",
		"com.plexapp.agents.thetvdb://121361/2/1",
	}
	for _, raw := range inputs {
		first, firstErr := providerid.Parse(raw, nil, catalog.KindMovie)
		second, secondErr := providerid.Parse(raw, nil, catalog.KindMovie)
		if first != second {
			t.Fatalf("Parse(%q) not stable: %+v vs %+v", raw, first, second)
		}
		if (firstErr == nil) != (secondErr == nil) {
			t.Fatalf("Parse(%q) error not stable: %v vs %v", raw, firstErr, secondErr)
		}
		if firstErr != nil && firstErr.Error() != secondErr.Error() {
			t.Fatalf("Parse(%q) error text not stable: %v vs %v", raw, firstErr, secondErr)
		}
	}
}

func TestProviderRefString(t *testing.T) {
	ref := providerid.ProviderRef{Provider: providerid.TVDB, ID: "121361"}
	if got := ref.String(); got != "tvdb.121361" {
		t.Fatalf("unexpected ref string %q", got)
	}
}
