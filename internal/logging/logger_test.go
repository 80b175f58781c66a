package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"watchsync/internal/config"
	"watchsync/internal/services"
)

func TestNewJSONWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "watchsync.log")
	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("section synced", String(FieldSection, "Movies"), Int("marked", 3))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &payload); err != nil {
		t.Fatalf("decode log line %q: %v", data, err)
	}
	if payload["msg"] != "section synced" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercased level, got %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key in %v", payload)
	}
	if payload[FieldSection] != "Movies" {
		t.Fatalf("unexpected section: %v", payload[FieldSection])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestPrettyHandlerHeader(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))
	logger = NewComponentLogger(logger, "syncengine")

	ctx := services.WithUser(context.Background(), "alice")
	ctx = services.WithSection(ctx, "Movies")
	WithContext(ctx, logger).Info("marked watched", String(FieldTitle, "Heat"), Int(FieldYear, 1995))

	out := buf.String()
	for _, want := range []string{"INFO [syncengine] alice · Movies – marked watched", "    - title: Heat", "    - year: 1995"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "- user:") || strings.Contains(out, "- section:") {
		t.Fatalf("subject fields should be lifted into header:\n%s", out)
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	WarnWithContext(logger, "item skipped", "item_skipped", String(FieldReason, "unmatched"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[FieldEventType] != "item_skipped" {
		t.Fatalf("unexpected event_type: %v", payload[FieldEventType])
	}
	if payload[FieldErrorHint] == nil || payload[FieldImpact] == nil {
		t.Fatalf("expected error_hint and impact defaults, got %v", payload)
	}
}

func TestContextFieldsIncludesRunID(t *testing.T) {
	ctx := services.WithRunID(context.Background(), "run-1")
	fields := ContextFields(ctx)
	if !HasAttrKey(fields, FieldRunID) {
		t.Fatalf("expected run_id in %v", fields)
	}
	if len(ContextFields(context.Background())) != 0 {
		t.Fatal("expected no fields from empty context")
	}
}

func TestNewFromConfigCreatesLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Format = "json"
	logger, err := NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Error("boom", Error(errors.New("bad")))
	if _, err := os.Stat(cfg.LogPath()); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should be disabled")
	}
}
