package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"watchsync/internal/catalog"
	"watchsync/internal/config"
	"watchsync/internal/history"
	"watchsync/internal/logging"
	"watchsync/internal/metrics"
	"watchsync/internal/notifications"
	"watchsync/internal/syncengine"
)

type syncOptions struct {
	users    []string
	sections []string
	dryRun   bool
	workers  int
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy watched state from Plex to Emby",
		Long: "Marks every movie and episode watched in Plex as played in Emby for each\n" +
			"configured user. Items are matched by IMDB, TMDB or TVDB id.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Sync.Workers = opts.workers
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if opts.dryRun {
				cfg.Sync.DryRun = true
			}
			return runSync(cmd, cfg, logger, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.users, "user", "u", nil, "Only sync this user (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.sections, "section", "s", nil, "Only sync this library section (repeatable)")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Resolve items without marking them watched")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 1, "Number of users synced in parallel")
	return cmd
}

func runSync(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, opts syncOptions) error {
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another watchsync sync is already running")
	}
	defer func() {
		_ = lock.Unlock()
	}()

	users, err := cfg.SelectedUsers(opts.users)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return errors.New("no users selected")
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}

	runID := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldRunID, runID))

	var recorder syncengine.Recorder
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		if err := store.BeginRun(cmd.Context(), runID, cfg.Sync.DryRun, names, time.Now()); err != nil {
			return err
		}
		recorder = store
	}

	driver := syncengine.NewDriver(newClientFactory(cfg), syncengine.DriverOptions{
		Sections: cfg.SectionAllowList(opts.sections),
		DryRun:   cfg.Sync.DryRun,
		Workers:  cfg.Sync.Workers,
		Logger:   logger,
		Recorder: recorder,
	})

	logger.Info("sync started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("users", len(users)),
		logging.Bool("dry_run", cfg.Sync.DryRun),
		logging.Int("workers", cfg.Sync.Workers),
	)
	report := driver.Run(cmd.Context(), runID, users)
	marked, skipped := report.Totals()
	logger.Info("sync finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("marked", marked),
		logging.Int("skipped", skipped),
		logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	if store != nil {
		// The run context may already be cancelled; the ledger still needs its final row.
		finishCtx := context.WithoutCancel(cmd.Context())
		if err := store.FinishRun(finishCtx, report); err != nil {
			logging.WarnWithContext(logger, "failed to finish history run", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run shows as running in history"),
			)
		}
		if cfg.History.KeepRuns > 0 {
			if removed, err := store.Prune(finishCtx, cfg.History.KeepRuns); err != nil {
				logging.WarnWithContext(logger, "failed to prune history", "history_prune_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "history database keeps growing"),
				)
			} else if removed > 0 {
				logger.Debug("pruned history runs", logging.Int("removed", int(removed)))
			}
		}
	}

	if cfg.Metrics.Textfile != "" {
		m := metrics.New()
		m.ObserveRun(report)
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logging.WarnWithContext(logger, "failed to write metrics", "metrics_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "metrics are stale"),
			)
		}
	}

	notifyCtx := context.WithoutCancel(cmd.Context())
	if err := notifications.NewService(cfg).NotifyRunCompleted(notifyCtx, report); err != nil {
		logging.WarnWithContext(logger, "failed to send run notification", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no run summary was delivered"),
		)
	}

	out := cmd.OutOrStdout()
	renderSyncSummary(out, newTableOutput(out), report)
	if report.Failed() {
		return report.Err()
	}
	return nil
}

func renderSyncSummary(w io.Writer, tables tableOutput, report syncengine.RunReport) {
	headers := []string{"User", "Section", "Kind", "Result", "Tally", "Episodes", "Skipped"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}
	var rows [][]string
	for _, user := range report.Users {
		for _, section := range user.Sections {
			episodes := "-"
			if section.Section.Kind == catalog.KindShow {
				episodes = strconv.Itoa(section.EpisodesMarked)
			}
			rows = append(rows, []string{
				user.User,
				section.Section.Title,
				section.Section.Kind.String(),
				tables.status(sectionResult(section)),
				strconv.Itoa(section.Tally),
				episodes,
				strconv.Itoa(len(section.Skipped())),
			})
		}
		if user.Err != nil {
			rows = append(rows, []string{user.User, "-", "-", tables.status("failed"), "-", "-", "-"})
		}
	}

	mode := ""
	if report.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "Run %s%s\n", report.RunID, mode)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No sections processed")
	} else {
		fmt.Fprintln(w, tables.render(headers, rows, aligns))
	}
	marked, skipped := report.Totals()
	fmt.Fprintf(w, "Marked: %d  Skipped: %d\n", marked, skipped)
	for _, user := range report.Users {
		if user.Err != nil {
			fmt.Fprintf(w, "User %s failed: %v\n", user.User, user.Err)
		}
	}
}

func sectionResult(section syncengine.SectionReport) string {
	switch {
	case section.Err != nil:
		return "failed"
	case !section.Found:
		return "not_found"
	default:
		return "synced"
	}
}
