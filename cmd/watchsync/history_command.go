package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"watchsync/internal/catalog"
	"watchsync/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs or the outcomes of one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("history is disabled (set [history] enabled = true)")
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			tables := newTableOutput(out)

			if strings.TrimSpace(runID) == "" {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, tables.render(
					[]string{"Run", "Started", "Duration", "Status", "Dry Run", "Users", "Marked", "Skipped"},
					runRows(tables, runs),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			}

			run, err := store.GetRun(cmd.Context(), runID)
			if err != nil {
				if errors.Is(err, history.ErrRunNotFound) {
					return fmt.Errorf("no run matches %q", runID)
				}
				return err
			}
			outcomes, err := store.Outcomes(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, struct {
					Run      history.Run             `json:"run"`
					Outcomes []history.OutcomeRecord `json:"outcomes"`
				}{run, outcomes})
			}

			fmt.Fprintf(out, "Run %s  %s  status %s\n", run.ID, run.StartedAt.Local().Format(time.DateTime), tables.status(run.Status))
			if run.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", run.Error)
			}
			if len(outcomes) == 0 {
				fmt.Fprintln(out, "No outcomes recorded")
				return nil
			}
			fmt.Fprintln(out, tables.render(
				[]string{"User", "Section", "Item", "Provider", "Status", "Reason"},
				outcomeRows(tables, outcomes),
				nil,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Number of runs to list")
	cmd.Flags().StringVarP(&runID, "run", "r", "", "Show outcomes for a run id or unique prefix")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func runRows(tables tableOutput, runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := "-"
		if !run.FinishedAt.IsZero() {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			duration,
			tables.status(run.Status),
			yesNo(run.DryRun),
			strings.Join(run.Users, ", "),
			strconv.Itoa(run.Marked),
			strconv.Itoa(run.Skipped),
		})
	}
	return rows
}

func outcomeRows(tables tableOutput, outcomes []history.OutcomeRecord) [][]string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		item := catalog.DisplayTitle(o.Title, o.Year)
		if o.Episode != "" {
			item += " " + o.Episode
		}
		provider := "-"
		if o.Provider != "" {
			provider = o.Provider + "." + o.ProviderID
		}
		reason := o.Reason
		if reason == "" {
			reason = "-"
		}
		rows = append(rows, []string{o.User, o.Section, item, provider, tables.status(o.Status), reason})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
