package syncengine

import (
	"context"
	"fmt"

	"watchsync/internal/catalog"
	"watchsync/internal/logging"
	"watchsync/internal/providerid"
)

// SyncMovies marks every watched movie in section that can be joined to the
// target. The returned error is non-nil only when the section could not be
// processed at all; callers decide via services.IsFatal whether to continue.
func (e *Engine) SyncMovies(ctx context.Context, section catalog.Section) (SectionReport, error) {
	report := SectionReport{Section: section}
	logger := logging.WithContext(ctx, e.logger)

	ok, err := e.resolveSection(ctx, &report)
	if err != nil || !ok {
		return report, err
	}

	movies, err := e.source.Movies(ctx, section)
	if err != nil {
		return report, fmt.Errorf("list source movies: %w", err)
	}
	logger.Info("processing movie section",
		logging.String(logging.FieldEventType, "section_start"),
		logging.Int(logging.FieldItemCount, len(movies)),
	)

	for _, movie := range movies {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !movie.Watched {
			continue
		}
		if err := e.syncMovie(ctx, &report, movie); err != nil {
			return report, err
		}
	}

	logger.Info("movie section synced",
		logging.String(logging.FieldEventType, "section_complete"),
		logging.Int("marked", report.Tally),
		logging.Int("skipped", len(report.Skipped())),
	)
	return report, nil
}

func (e *Engine) syncMovie(ctx context.Context, report *SectionReport, movie catalog.Movie) error {
	outcome := Outcome{
		Kind:  catalog.KindMovie,
		Title: movie.Title,
		Year:  movie.Year,
		Raw:   movie.GUID,
	}

	ref, err := providerid.Parse(movie.GUID, movie.AlternateGUIDs, catalog.KindMovie)
	if err != nil {
		outcome.Reason = rejectionReason(err)
		e.record(ctx, report, outcome)
		return nil
	}
	outcome.Ref = ref

	itemID, found, err := e.target.ResolveItem(ctx, ref, report.TargetSection)
	if err != nil {
		reason, fatal := lookupFailure(err)
		if fatal != nil {
			return fatal
		}
		outcome.Reason = reason
		outcome.Detail = err.Error()
		e.record(ctx, report, outcome)
		return nil
	}
	if !found {
		outcome.Reason = ReasonItemNotFoundInTarget
		e.record(ctx, report, outcome)
		return nil
	}
	outcome.TargetID = itemID

	reason, detail, err := e.mark(ctx, itemID)
	if err != nil {
		return err
	}
	outcome.Reason = reason
	outcome.Detail = detail
	if reason == ReasonNone || reason == ReasonDryRun {
		report.Tally++
	}
	e.record(ctx, report, outcome)
	return nil
}

func (e *Engine) record(ctx context.Context, report *SectionReport, o Outcome) {
	report.add(o)
	if o.Skipped() {
		e.skip(ctx, o)
		return
	}
	e.marked(ctx, o)
}
