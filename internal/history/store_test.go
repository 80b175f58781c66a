package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"watchsync/internal/catalog"
	"watchsync/internal/history"
	"watchsync/internal/providerid"
	"watchsync/internal/services"
	"watchsync/internal/syncengine"
	"watchsync/internal/testsupport"
)

func sampleSection() syncengine.SectionReport {
	return syncengine.SectionReport{
		Section:       catalog.Section{Key: "1", Title: "Movies", Kind: catalog.KindMovie},
		TargetSection: catalog.Section{Key: "tm", Title: "Movies"},
		Found:         true,
		Tally:         1,
		Outcomes: []syncengine.Outcome{
			{
				Kind: catalog.KindMovie, Title: "Heat", Year: 1995, Raw: "imdb://tt0113277",
				Ref:      providerid.ProviderRef{Provider: providerid.IMDB, ID: "tt0113277"},
				TargetID: "42",
			},
			{Kind: catalog.KindMovie, Title: "Home Video", Raw: "local://3", Reason: syncengine.ReasonUnmatched},
		},
	}
}

func TestOpenAppliesMigrationsIdempotently(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if reopened.Path() != cfg.HistoryPath() {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
}

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	started := time.Now().UTC()
	if err := store.BeginRun(ctx, "run-abc", false, []string{"alice", "bob"}, started); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.RecordSection(ctx, "run-abc", "alice", sampleSection()); err != nil {
		t.Fatalf("RecordSection: %v", err)
	}

	report := syncengine.RunReport{
		RunID:      "run-abc",
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Users: []syncengine.UserReport{
			{User: "alice", Sections: []syncengine.SectionReport{sampleSection()}},
			{User: "bob", Err: services.Wrap(services.ErrConnection, "plex", "list sections", "request failed", errors.New("refused"))},
		},
	}
	if err := store.FinishRun(ctx, report); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err := store.GetRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("GetRun by prefix: %v", err)
	}
	if run.Status != history.StatusFailed || run.Marked != 1 || run.Skipped != 1 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if len(run.Users) != 2 || run.Users[1] != "bob" || run.Error == "" {
		t.Fatalf("unexpected run users/error: %+v", run)
	}

	outcomes, err := store.Outcomes(ctx, "run-abc")
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	heat := outcomes[0]
	if heat.Status != "marked" || heat.Provider != "imdb" || heat.TargetID != "42" || heat.Section != "Movies" {
		t.Fatalf("unexpected outcome: %+v", heat)
	}
	if outcomes[1].Reason != string(syncengine.ReasonUnmatched) || outcomes[1].Status != "skipped" {
		t.Fatalf("unexpected skipped outcome: %+v", outcomes[1])
	}
}

func TestGetRunMissingAndAmbiguous(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if _, err := store.GetRun(ctx, "nope"); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	now := time.Now()
	for _, id := range []string{"abc-1", "abc-2"} {
		if err := store.BeginRun(ctx, id, true, nil, now); err != nil {
			t.Fatalf("BeginRun %s: %v", id, err)
		}
	}
	if _, err := store.GetRun(ctx, "abc"); err == nil {
		t.Fatal("expected ambiguity error")
	}
	run, err := store.GetRun(ctx, "abc-2")
	if err != nil || !run.DryRun || run.Status != history.StatusRunning {
		t.Fatalf("unexpected run %+v, %v", run, err)
	}
}

func TestListRunsAndPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		if err := store.BeginRun(ctx, id, false, []string{"owner"}, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
	}
	if err := store.RecordSection(ctx, "r1", "owner", sampleSection()); err != nil {
		t.Fatalf("RecordSection: %v", err)
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "r3" || runs[1].ID != "r2" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	removed, err := store.Prune(ctx, 2)
	if err != nil || removed != 1 {
		t.Fatalf("Prune = %d, %v", removed, err)
	}
	outcomes, err := store.Outcomes(ctx, "r1")
	if err != nil || len(outcomes) != 0 {
		t.Fatalf("expected pruned outcomes to cascade, got %d, %v", len(outcomes), err)
	}
}

func TestFinishRunUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	err := store.FinishRun(context.Background(), syncengine.RunReport{RunID: "missing"})
	if !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}
