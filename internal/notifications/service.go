package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"watchsync/internal/config"
	"watchsync/internal/syncengine"
)

const userAgent = "watchsync/0.1.0"

// Service defines the notification surface used by the sync command.
type Service interface {
	NotifyRunCompleted(ctx context.Context, report syncengine.RunReport) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

// NotifyRunCompleted publishes a one-message summary of a sync run. Failed
// users raise the priority and are listed by name.
func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report syncengine.RunReport) error {
	return n.send(ctx, runPayload(report))
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "watchsync - Test",
		message:  "Notification system test",
		tags:     []string{"watchsync", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func runPayload(report syncengine.RunReport) payload {
	marked, skipped := report.Totals()
	duration := report.FinishedAt.Sub(report.StartedAt).Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	verb := "marked"
	if report.DryRun {
		verb = "would mark"
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "%d users: %s %d items, skipped %d in %s", len(report.Users), verb, marked, skipped, duration)

	data := payload{
		title: "watchsync - Sync Complete",
		tags:  []string{"watchsync", "sync", "completed"},
	}
	if report.Failed() {
		data.title = "watchsync - Sync Complete (with errors)"
		data.tags = []string{"watchsync", "sync", "error"}
		data.priority = "high"
		for _, user := range report.Users {
			if user.Err != nil {
				fmt.Fprintf(&builder, "\n%s failed: %s", user.User, strings.TrimSpace(user.Err.Error()))
			}
		}
	}
	data.message = builder.String()
	return data
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, syncengine.RunReport) error { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
