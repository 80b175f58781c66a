package services

import "context"

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	userKey    contextKey = "user"
	sectionKey contextKey = "section"
)

// WithRunID annotates context with the sync run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the sync run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithUser annotates context with the logical user being synced.
func WithUser(ctx context.Context, user string) context.Context {
	if user == "" {
		return ctx
	}
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user name if present.
func UserFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(userKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithSection annotates context with the library section title.
func WithSection(ctx context.Context, section string) context.Context {
	if section == "" {
		return ctx
	}
	return context.WithValue(ctx, sectionKey, section)
}

// SectionFromContext returns the section title if present.
func SectionFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(sectionKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
