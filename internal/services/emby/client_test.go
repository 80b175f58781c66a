package emby

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"watchsync/internal/catalog"
	"watchsync/internal/config"
	"watchsync/internal/providerid"
	"watchsync/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, "/emby", "token-123", "user-1", server.Client())
}

func requireToken(t *testing.T, r *http.Request) {
	t.Helper()
	if token := r.Header.Get("X-Emby-Token"); token != "token-123" {
		t.Errorf("unexpected token: %q", token)
	}
}

func TestResolveSectionCaseInsensitiveFirstMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requireToken(t, r)
		if r.URL.Path != "/emby/Library/MediaFolders" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"Items":[
			{"Id":"a","Name":"TV Shows","CollectionType":"tvshows"},
			{"Id":"b","Name":"movies","CollectionType":"movies"},
			{"Id":"c","Name":"Movies","CollectionType":"movies"}]}`))
	})

	section, ok, err := client.ResolveSection(context.Background(), "MOVIES")
	if err != nil || !ok {
		t.Fatalf("ResolveSection: ok=%v err=%v", ok, err)
	}
	if section.Key != "b" || section.Kind != catalog.KindMovie {
		t.Fatalf("unexpected section: %+v", section)
	}

	if _, ok, err := client.ResolveSection(context.Background(), "Music"); err != nil || ok {
		t.Fatalf("expected not found, got ok=%v err=%v", ok, err)
	}
}

func TestResolveItemQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requireToken(t, r)
		q := r.URL.Query()
		if r.URL.Path != "/emby/Items" || q.Get("ParentId") != "sec-1" || q.Get("AnyProviderIdEquals") != "imdb.tt0113277" {
			t.Errorf("unexpected request: %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"Items":[{"Id":"42"},{"Id":"43"}]}`))
	})

	id, ok, err := client.ResolveItem(context.Background(),
		providerid.ProviderRef{Provider: providerid.IMDB, ID: "tt0113277"},
		catalog.Section{Key: "sec-1"})
	if err != nil || !ok || id != "42" {
		t.Fatalf("ResolveItem = %q, %v, %v", id, ok, err)
	}
}

func TestResolveItemNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Items":[],"TotalRecordCount":0}`))
	})
	_, ok, err := client.ResolveItem(context.Background(), providerid.ProviderRef{Provider: providerid.TMDB, ID: "1"}, catalog.Section{Key: "s"})
	if err != nil || ok {
		t.Fatalf("expected not found, got ok=%v err=%v", ok, err)
	}
}

func TestListEpisodesSkipsUnnumbered(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emby/Shows/show-9/Episodes" || r.URL.Query().Get("ParentId") != "tv" {
			t.Errorf("unexpected request: %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"Items":[
			{"Id":"e1","ParentIndexNumber":1,"IndexNumber":1},
			{"Id":"e2","ParentIndexNumber":1,"IndexNumber":2},
			{"Id":"e3","ParentIndexNumber":2,"IndexNumber":1},
			{"Id":"special","IndexNumber":5},
			{"Id":"extra","ParentIndexNumber":0}]}`))
	})

	episodes, err := client.ListEpisodes(context.Background(), catalog.Section{Key: "tv"}, "show-9")
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(episodes) != 2 || episodes[1][2] != "e2" || episodes[2][1] != "e3" {
		t.Fatalf("unexpected episodes: %v", episodes)
	}
}

func TestListEpisodesEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Items":[]}`))
	})
	episodes, err := client.ListEpisodes(context.Background(), catalog.Section{Key: "tv"}, "x")
	if err != nil || len(episodes) != 0 {
		t.Fatalf("expected empty map, got %v, %v", episodes, err)
	}
}

func TestMarkWatchedPostsPlayedItem(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requireToken(t, r)
		if r.Method != http.MethodPost || r.URL.Path != "/emby/Users/user-1/PlayedItems/42" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		called = true
		_, _ = w.Write([]byte(`{"Played":true}`))
	})
	if err := client.MarkWatched(context.Background(), "42"); err != nil {
		t.Fatalf("MarkWatched: %v", err)
	}
	if !called {
		t.Fatal("expected played endpoint to be called")
	}
}

func TestMarkWatchedReportsStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such item", http.StatusNotFound)
	})
	err := client.MarkWatched(context.Background(), "42")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found marker, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("status failures must not be fatal")
	}
}

func TestConnectionFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(url, "/emby", "k", "u", nil)
	_, _, err := client.ResolveSection(context.Background(), "Movies")
	if !errors.Is(err, services.ErrConnection) || !services.IsFatal(err) {
		t.Fatalf("expected fatal connection error, got %v", err)
	}
}

func TestUsersAndJellyfinPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Users" || r.URL.Query().Get("IsDisabled") != "false" {
			t.Errorf("unexpected request: %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`[{"Id":"u1","Name":"alice"},{"Id":"u2","Name":"bob"}]`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Emby.URL = server.URL
	cfg.Emby.PathPrefix = ""
	cfg.Emby.APIKey = "k"
	users, err := NewFromConfig(&cfg, "", server.Client()).Users(context.Background())
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if len(users) != 2 || users[1].Name != "bob" || users[1].ID != "u2" {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestDecodeFailureIsNotFatal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, _, err := client.ResolveItem(context.Background(), providerid.ProviderRef{Provider: providerid.IMDB, ID: "tt1"}, catalog.Section{Key: "s"})
	if err == nil || services.IsFatal(err) {
		t.Fatalf("expected non-fatal decode error, got %v", err)
	}
}
