package syncengine

import (
	"context"
	"sync"

	"watchsync/internal/catalog"
	"watchsync/internal/config"
	"watchsync/internal/providerid"
)

type fakeSource struct {
	sections    []catalog.Section
	sectionsErr error
	movies      map[string][]catalog.Movie
	shows       map[string][]catalog.Show
	episodes    map[string][]catalog.Episode
	episodesErr error
}

func (f *fakeSource) Sections(context.Context) ([]catalog.Section, error) {
	return f.sections, f.sectionsErr
}

func (f *fakeSource) Movies(_ context.Context, section catalog.Section) ([]catalog.Movie, error) {
	return f.movies[section.Key], nil
}

func (f *fakeSource) Shows(_ context.Context, section catalog.Section) ([]catalog.Show, error) {
	return f.shows[section.Key], nil
}

func (f *fakeSource) Episodes(_ context.Context, show catalog.Show) ([]catalog.Episode, error) {
	if f.episodesErr != nil {
		return nil, f.episodesErr
	}
	return f.episodes[show.Key], nil
}

type fakeTarget struct {
	mu         sync.Mutex
	sections   []catalog.Section
	sectionErr error
	// items maps provider ref strings to target ids.
	items      map[string]string
	resolveErr error
	episodes   map[string]map[int]map[int]string
	listErr    error
	markErr    map[string]error
	marked     []string
}

func (f *fakeTarget) ResolveSection(_ context.Context, title string) (catalog.Section, bool, error) {
	if f.sectionErr != nil {
		return catalog.Section{}, false, f.sectionErr
	}
	section, ok := catalog.FindSection(f.sections, title)
	return section, ok, nil
}

func (f *fakeTarget) ResolveItem(_ context.Context, ref providerid.ProviderRef, _ catalog.Section) (string, bool, error) {
	if f.resolveErr != nil {
		return "", false, f.resolveErr
	}
	id, ok := f.items[ref.String()]
	return id, ok, nil
}

func (f *fakeTarget) ListEpisodes(_ context.Context, _ catalog.Section, showID string) (map[int]map[int]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.episodes[showID], nil
}

func (f *fakeTarget) MarkWatched(_ context.Context, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.markErr[itemID]; err != nil {
		return err
	}
	f.marked = append(f.marked, itemID)
	return nil
}

func (f *fakeTarget) markedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.marked...)
}

type fakeFactory struct {
	sources map[string]*fakeSource
	targets map[string]*fakeTarget
}

func (f *fakeFactory) Source(user config.UserCredentials) Source { return f.sources[user.Name] }

func (f *fakeFactory) Target(user config.UserCredentials) Target { return f.targets[user.Name] }

type memoryRecorder struct {
	mu      sync.Mutex
	reports map[string][]SectionReport
}

func (m *memoryRecorder) RecordSection(_ context.Context, _ string, user string, report SectionReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reports == nil {
		m.reports = make(map[string][]SectionReport)
	}
	m.reports[user] = append(m.reports[user], report)
	return nil
}

var (
	movieSection = catalog.Section{Key: "1", Title: "Movies", Kind: catalog.KindMovie}
	showSection  = catalog.Section{Key: "2", Title: "TV Shows", Kind: catalog.KindShow}

	targetMovies = catalog.Section{Key: "tm", Title: "movies", Kind: catalog.KindMovie}
	targetShows  = catalog.Section{Key: "ts", Title: "tv shows", Kind: catalog.KindShow}
)
