package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"watchsync/internal/catalog"
	"watchsync/internal/config"
	"watchsync/internal/logging"
	"watchsync/internal/services"
)

// ClientFactory builds the per-user catalog clients.
type ClientFactory interface {
	Source(user config.UserCredentials) Source
	Target(user config.UserCredentials) Target
}

// Recorder receives each finished section, for example to persist it.
type Recorder interface {
	RecordSection(ctx context.Context, runID, user string, report SectionReport) error
}

// DriverOptions configures a Driver.
type DriverOptions struct {
	Sections []string
	DryRun   bool
	Workers  int
	Logger   *slog.Logger
	Recorder Recorder
}

// Driver runs the engine for every selected user and section.
type Driver struct {
	factory  ClientFactory
	sections []string
	dryRun   bool
	workers  int
	base     *slog.Logger
	logger   *slog.Logger
	recorder Recorder
}

// UserReport holds the sections processed for one user. Err is set when the
// user's run was aborted.
type UserReport struct {
	User     string
	Sections []SectionReport
	Err      error
}

// RunReport aggregates a full sync invocation.
type RunReport struct {
	RunID      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Users      []UserReport
}

// Failed reports whether any user aborted.
func (r RunReport) Failed() bool {
	for _, u := range r.Users {
		if u.Err != nil {
			return true
		}
	}
	return false
}

// Err joins the per-user failures.
func (r RunReport) Err() error {
	var errs []error
	for _, u := range r.Users {
		if u.Err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", u.User, u.Err))
		}
	}
	return errors.Join(errs...)
}

// Totals sums marked and skipped items across the run.
func (r RunReport) Totals() (marked, skipped int) {
	for _, u := range r.Users {
		for _, s := range u.Sections {
			for _, o := range s.Outcomes {
				if o.Skipped() {
					skipped++
				} else {
					marked++
				}
			}
		}
	}
	return marked, skipped
}

// NewDriver constructs a Driver.
func NewDriver(factory ClientFactory, opts DriverOptions) *Driver {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Driver{
		factory:  factory,
		sections: opts.Sections,
		dryRun:   opts.DryRun,
		workers:  workers,
		base:     opts.Logger,
		logger:   logging.NewComponentLogger(opts.Logger, "driver"),
		recorder: opts.Recorder,
	}
}

// Run syncs users in order. With more than one worker, users run concurrently;
// sections and items inside a user stay sequential. A fatal error aborts only
// the affected user. Reports are returned in the order users were given.
func (d *Driver) Run(ctx context.Context, runID string, users []config.UserCredentials) RunReport {
	ctx = services.WithRunID(ctx, runID)
	report := RunReport{
		RunID:     runID,
		DryRun:    d.dryRun,
		StartedAt: time.Now().UTC(),
		Users:     make([]UserReport, len(users)),
	}

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, user := range users {
		g.Go(func() error {
			report.Users[i] = d.runUser(ctx, user)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now().UTC()
	return report
}

func (d *Driver) runUser(ctx context.Context, user config.UserCredentials) UserReport {
	ctx = services.WithUser(ctx, user.Name)
	logger := logging.WithContext(ctx, d.logger)
	result := UserReport{User: user.Name}

	source := d.factory.Source(user)
	engine := NewEngine(source, d.factory.Target(user), WithDryRun(d.dryRun), WithLogger(d.base))

	sections, err := source.Sections(ctx)
	if err != nil {
		result.Err = fmt.Errorf("list source sections: %w", err)
		logging.ErrorWithContext(logger, "user sync aborted", "user_aborted",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check plex.url and the user's plex token"),
		)
		return result
	}

	selected := d.selectSections(logger, sections)
	logger.Info("user sync started",
		logging.String(logging.FieldEventType, "user_start"),
		logging.Int("sections", len(selected)),
		logging.Bool("dry_run", d.dryRun),
	)

	for _, section := range selected {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}
		sectionCtx := services.WithSection(ctx, section.Title)
		sectionReport, err := engine.SyncSection(sectionCtx, section)
		if err != nil {
			sectionReport.Err = err
		}
		result.Sections = append(result.Sections, sectionReport)
		d.record(sectionCtx, user.Name, sectionReport)

		if err == nil {
			continue
		}
		if services.IsFatal(err) || ctx.Err() != nil {
			result.Err = err
			logging.ErrorWithContext(logging.WithContext(sectionCtx, d.logger), "user sync aborted", "user_aborted",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that both servers are reachable and credentials are valid"),
			)
			return result
		}
		logging.WarnWithContext(logging.WithContext(sectionCtx, d.logger), "section sync failed", "section_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "section skipped"),
		)
	}

	logger.Info("user sync complete", logging.String(logging.FieldEventType, "user_complete"))
	return result
}

// selectSections keeps movie and show sections named in the allow-list, or
// all of them when the allow-list is empty.
func (d *Driver) selectSections(logger *slog.Logger, sections []catalog.Section) []catalog.Section {
	wanted := make(map[string]bool, len(d.sections))
	for _, title := range d.sections {
		wanted[catalog.FoldTitle(title)] = false
	}

	selected := make([]catalog.Section, 0, len(sections))
	for _, section := range sections {
		if section.Kind == catalog.KindUnknown {
			logger.Debug("ignoring section", logging.String(logging.FieldSection, section.Title))
			continue
		}
		if len(wanted) > 0 {
			key := catalog.FoldTitle(section.Title)
			if _, ok := wanted[key]; !ok {
				continue
			}
			wanted[key] = true
		}
		selected = append(selected, section)
	}

	for _, title := range d.sections {
		if !wanted[catalog.FoldTitle(title)] {
			logging.WarnWithContext(logger, "allow-listed section not found in source", "section_missing",
				logging.String(logging.FieldSection, title),
				logging.String(logging.FieldImpact, "section skipped"),
				logging.String(logging.FieldErrorHint, "check sync.sections against the Plex library names"),
			)
		}
	}
	return selected
}

func (d *Driver) record(ctx context.Context, user string, report SectionReport) {
	if d.recorder == nil {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	if err := d.recorder.RecordSection(ctx, runID, user, report); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "failed to record section", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history is incomplete"),
		)
	}
}
