package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"watchsync/internal/config"
	"watchsync/internal/notifications"
	"watchsync/internal/syncengine"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	requests := make(chan capturedRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, requests
}

func sampleReport(failed bool) syncengine.RunReport {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report := syncengine.RunReport{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Users: []syncengine.UserReport{
			{User: "alice", Sections: []syncengine.SectionReport{{
				Outcomes: []syncengine.Outcome{
					{Title: "Heat"},
					{Title: "Home Video", Reason: syncengine.ReasonUnmatched},
				},
			}}},
		},
	}
	if failed {
		report.Users = append(report.Users, syncengine.UserReport{User: "bob", Err: errors.New("emby unreachable")})
	}
	return report
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), sampleReport(false)); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyRunCompleted(t *testing.T) {
	server, requests := newNtfyServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	if err := notifications.NewService(&cfg).NotifyRunCompleted(context.Background(), sampleReport(false)); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	got := <-requests
	if got.title != "watchsync - Sync Complete" {
		t.Fatalf("unexpected title %q", got.title)
	}
	if got.body != "1 users: marked 1 items, skipped 1 in 1m30s" {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.tags != "watchsync,sync,completed" || got.priority != "" {
		t.Fatalf("unexpected tags/priority %q/%q", got.tags, got.priority)
	}
}

func TestNotifyRunCompletedWithFailures(t *testing.T) {
	server, requests := newNtfyServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	if err := notifications.NewService(&cfg).NotifyRunCompleted(context.Background(), sampleReport(true)); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	got := <-requests
	if !strings.Contains(got.title, "with errors") || got.priority != "high" {
		t.Fatalf("unexpected title/priority %q/%q", got.title, got.priority)
	}
	if !strings.Contains(got.body, "bob failed: emby unreachable") {
		t.Fatalf("body should name the failed user: %q", got.body)
	}
}

func TestNotifyReturnsErrorOnBadStatus(t *testing.T) {
	server, _ := newNtfyServer(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
