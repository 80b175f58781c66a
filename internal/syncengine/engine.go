package syncengine

import (
	"context"
	"fmt"
	"log/slog"

	"watchsync/internal/catalog"
	"watchsync/internal/logging"
	"watchsync/internal/providerid"
	"watchsync/internal/services"
)

// Source is the catalog watched state is read from.
type Source interface {
	Sections(ctx context.Context) ([]catalog.Section, error)
	Movies(ctx context.Context, section catalog.Section) ([]catalog.Movie, error)
	Shows(ctx context.Context, section catalog.Section) ([]catalog.Show, error)
	Episodes(ctx context.Context, show catalog.Show) ([]catalog.Episode, error)
}

// Target is the catalog watched state is written to, scoped to one user.
type Target interface {
	ResolveSection(ctx context.Context, title string) (catalog.Section, bool, error)
	ResolveItem(ctx context.Context, ref providerid.ProviderRef, section catalog.Section) (string, bool, error)
	ListEpisodes(ctx context.Context, section catalog.Section, showID string) (map[int]map[int]string, error)
	MarkWatched(ctx context.Context, itemID string) error
}

// Engine syncs sections for a single user.
type Engine struct {
	source Source
	target Target
	dryRun bool
	logger *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDryRun resolves items without writing to the target.
func WithDryRun(enabled bool) Option {
	return func(e *Engine) { e.dryRun = enabled }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds an engine over a source and target pair.
func NewEngine(source Source, target Target, opts ...Option) *Engine {
	e := &Engine{source: source, target: target}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "syncengine")
	return e
}

// SyncSection dispatches on the section kind. Sections of unknown kind are
// returned untouched.
func (e *Engine) SyncSection(ctx context.Context, section catalog.Section) (SectionReport, error) {
	switch section.Kind {
	case catalog.KindMovie:
		return e.SyncMovies(ctx, section)
	case catalog.KindShow:
		return e.SyncShows(ctx, section)
	default:
		return SectionReport{Section: section}, nil
	}
}

// resolveSection looks the section up in the target. A false result means the
// section was reported as not found and the caller should stop.
func (e *Engine) resolveSection(ctx context.Context, report *SectionReport) (bool, error) {
	logger := logging.WithContext(ctx, e.logger)
	target, ok, err := e.target.ResolveSection(ctx, report.Section.Title)
	if err != nil {
		return false, fmt.Errorf("resolve target section %q: %w", report.Section.Title, err)
	}
	if !ok {
		report.add(Outcome{Kind: report.Section.Kind, Title: report.Section.Title, Reason: ReasonSectionNotFound})
		logging.WarnWithContext(logger, "section not found in target",
			"section_not_found",
			logging.String(logging.FieldReason, string(ReasonSectionNotFound)),
			logging.String(logging.FieldImpact, "section skipped"),
			logging.String(logging.FieldErrorHint, "create a library with the same name in the target server"),
		)
		return false, nil
	}
	report.Found = true
	report.TargetSection = target
	return true, nil
}

// mark writes itemID unless running dry. It returns the outcome reason and a
// fatal error when the target connection is lost.
func (e *Engine) mark(ctx context.Context, itemID string) (Reason, string, error) {
	if e.dryRun {
		return ReasonDryRun, "", nil
	}
	if err := e.target.MarkWatched(ctx, itemID); err != nil {
		if services.IsFatal(err) {
			return "", "", err
		}
		return ReasonWriteFailed, err.Error(), nil
	}
	return ReasonNone, "", nil
}

// skip logs a skipped item. Unmatched items are routine and log at INFO.
func (e *Engine) skip(ctx context.Context, o Outcome) {
	logger := logging.WithContext(ctx, e.logger)
	attrs := []logging.Attr{
		logging.String(logging.FieldTitle, o.Title),
		logging.Int(logging.FieldYear, o.Year),
		logging.String(logging.FieldRawID, o.Raw),
		logging.String(logging.FieldReason, string(o.Reason)),
	}
	if o.Episode != "" {
		attrs = append(attrs, logging.String("episode", o.Episode))
	}
	if o.Detail != "" {
		attrs = append(attrs, logging.String("error", o.Detail))
	}
	if o.Reason == ReasonUnmatched {
		logger.Info("item skipped", logging.Args(attrs...)...)
		return
	}
	logging.WarnWithContext(logger, "item skipped", "item_skipped", attrs...)
}

func (e *Engine) marked(ctx context.Context, o Outcome) {
	logger := logging.WithContext(ctx, e.logger)
	msg := "marked watched"
	if o.Reason == ReasonDryRun {
		msg = "would mark watched"
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldTitle, o.Title),
		logging.Int(logging.FieldYear, o.Year),
		logging.String("provider_ref", o.Ref.String()),
		logging.String("target_id", o.TargetID),
	}
	if o.Episode != "" {
		attrs = append(attrs, logging.String("episode", o.Episode))
	}
	logger.Info(msg, logging.Args(attrs...)...)
}

func rejectionReason(err error) Reason {
	if reason, ok := providerid.RejectionReason(err); ok {
		return Reason(reason)
	}
	return ReasonUnrecognizedAgent
}

// lookupFailure converts a non-fatal lookup error into an outcome reason, or
// returns the error when it must abort the user.
func lookupFailure(err error) (Reason, error) {
	if services.IsFatal(err) {
		return "", err
	}
	return ReasonLookupFailed, nil
}
