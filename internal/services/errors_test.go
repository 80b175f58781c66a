package services_test

import (
	"errors"
	"strings"
	"testing"

	"watchsync/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConnection, "emby", "mark watched", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConnection) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"emby", "mark watched", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	if !services.IsFatal(services.Wrap(services.ErrConnection, "plex", "sections", "", errors.New("dial"))) {
		t.Fatal("expected connection errors to be fatal")
	}
	if !services.IsFatal(services.Wrap(services.ErrConfiguration, "emby", "items", "unauthorized", nil)) {
		t.Fatal("expected configuration errors to be fatal")
	}
	if services.IsFatal(services.Wrap(services.ErrTransient, "emby", "items", "503", nil)) {
		t.Fatal("expected transient errors to be non-fatal")
	}
	if services.IsFatal(nil) {
		t.Fatal("expected nil to be non-fatal")
	}
}

func TestMarkerForStatus(t *testing.T) {
	cases := map[int]error{
		400: services.ErrValidation,
		401: services.ErrConfiguration,
		403: services.ErrConfiguration,
		404: services.ErrNotFound,
		408: services.ErrTimeout,
		429: services.ErrTransient,
		500: services.ErrTransient,
		504: services.ErrTimeout,
	}
	for status, want := range cases {
		if got := services.MarkerForStatus(status); got != want {
			t.Fatalf("status %d: got %v want %v", status, got, want)
		}
	}
}
