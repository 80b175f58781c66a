package syncengine

import (
	"context"
	"fmt"

	"watchsync/internal/catalog"
	"watchsync/internal/logging"
	"watchsync/internal/providerid"
)

// SyncShows marks watched episodes for every show in section with at least one
// watched episode. The section tally counts shows whose episodes were
// available in the target, not episodes.
func (e *Engine) SyncShows(ctx context.Context, section catalog.Section) (SectionReport, error) {
	report := SectionReport{Section: section}
	logger := logging.WithContext(ctx, e.logger)

	ok, err := e.resolveSection(ctx, &report)
	if err != nil || !ok {
		return report, err
	}

	shows, err := e.source.Shows(ctx, section)
	if err != nil {
		return report, fmt.Errorf("list source shows: %w", err)
	}
	logger.Info("processing show section",
		logging.String(logging.FieldEventType, "section_start"),
		logging.Int(logging.FieldItemCount, len(shows)),
	)

	for _, show := range shows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if show.WatchedEpisodeCount < 1 {
			continue
		}
		if err := e.syncShow(ctx, &report, show); err != nil {
			return report, err
		}
	}

	logger.Info("show section synced",
		logging.String(logging.FieldEventType, "section_complete"),
		logging.Int("shows", report.Tally),
		logging.Int("episodes_marked", report.EpisodesMarked),
		logging.Int("skipped", len(report.Skipped())),
	)
	return report, nil
}

func (e *Engine) syncShow(ctx context.Context, report *SectionReport, show catalog.Show) error {
	base := Outcome{
		Kind:  catalog.KindShow,
		Title: show.Title,
		Year:  show.Year,
		Raw:   show.GUID,
	}

	ref, err := providerid.Parse(show.GUID, nil, catalog.KindShow)
	if err != nil {
		base.Reason = rejectionReason(err)
		e.record(ctx, report, base)
		return nil
	}
	base.Ref = ref

	showID, found, err := e.target.ResolveItem(ctx, ref, report.TargetSection)
	if err != nil {
		return e.showLookupFailed(ctx, report, base, err)
	}
	if !found {
		base.Reason = ReasonItemNotFoundInTarget
		e.record(ctx, report, base)
		return nil
	}
	base.TargetID = showID

	entries, err := e.target.ListEpisodes(ctx, report.TargetSection, showID)
	if err != nil {
		return e.showLookupFailed(ctx, report, base, err)
	}
	index := NewEpisodeIndex(entries)
	if index.Len() == 0 {
		base.Reason = ReasonShowEpisodesUnavailable
		e.record(ctx, report, base)
		return nil
	}
	report.Tally++

	episodes, err := e.source.Episodes(ctx, show)
	if err != nil {
		return e.showLookupFailed(ctx, report, base, err)
	}

	for _, episode := range episodes {
		if !episode.Watched {
			continue
		}
		outcome := base
		outcome.Episode = episode.Label()
		outcome.TargetID = ""

		itemID, ok := index.Get(episode.Season, episode.Number)
		if !ok {
			outcome.Reason = ReasonEpisodeNotFoundInTarget
			e.record(ctx, report, outcome)
			continue
		}
		outcome.TargetID = itemID

		reason, detail, err := e.mark(ctx, itemID)
		if err != nil {
			return err
		}
		outcome.Reason = reason
		outcome.Detail = detail
		if reason == ReasonNone || reason == ReasonDryRun {
			report.EpisodesMarked++
		}
		e.record(ctx, report, outcome)
	}
	return nil
}

func (e *Engine) showLookupFailed(ctx context.Context, report *SectionReport, o Outcome, err error) error {
	reason, fatal := lookupFailure(err)
	if fatal != nil {
		return fatal
	}
	o.Reason = reason
	o.Detail = err.Error()
	e.record(ctx, report, o)
	return nil
}
