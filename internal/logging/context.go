package logging

import (
	"context"
	"log/slog"

	"watchsync/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one sync invocation across all users.
	FieldRunID = "run_id"
	// FieldUser is the logical user name from the [users] table.
	FieldUser = "user"
	// FieldSection is the library section title.
	FieldSection = "section"
	FieldTitle   = "title"
	FieldYear    = "year"
	// FieldRawID is the unparsed source agent GUID.
	FieldRawID = "raw_id"
	// FieldReason carries the skip reason for an item that was not marked.
	FieldReason    = "reason"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldItemCount is the number of items in a section being processed.
	FieldItemCount = "item_count"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if user, ok := services.UserFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldUser, user))
	}
	if section, ok := services.SectionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSection, section))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
