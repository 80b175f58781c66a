package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"watchsync/internal/config"
	"watchsync/internal/syncengine"
)

// ErrRunNotFound is returned when a run id (or prefix) matches nothing.
var ErrRunNotFound = errors.New("run not found")

const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run is one row of the runs table.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	DryRun     bool      `json:"dry_run"`
	Status     string    `json:"status"`
	Users      []string  `json:"users"`
	Marked     int       `json:"marked"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
}

// OutcomeRecord is one persisted item outcome.
type OutcomeRecord struct {
	User       string `json:"user"`
	Section    string `json:"section"`
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Year       int    `json:"year,omitempty"`
	Episode    string `json:"episode,omitempty"`
	RawID      string `json:"raw_id,omitempty"`
	Provider   string `json:"provider,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
	TargetID   string `json:"target_id,omitempty"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Open initializes or connects to the history database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Parallel user workers share one writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, runID string, dryRun bool, users []string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, dry_run, status, users) VALUES (?, ?, ?, ?, ?)`,
		runID,
		startedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(dryRun),
		StatusRunning,
		strings.Join(users, ","),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordSection stores a finished section and its outcomes in one transaction.
func (s *Store) RecordSection(ctx context.Context, runID, user string, report syncengine.SectionReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin section tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sections (
            run_id, user_name, title, kind, target_key, found, tally,
            episodes_marked, error_message, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		user,
		report.Section.Title,
		report.Section.Kind.String(),
		nullableString(report.TargetSection.Key),
		boolToInt(report.Found),
		report.Tally,
		report.EpisodesMarked,
		nullableError(report.Err),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert section: %w", err)
	}
	sectionID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (
            section_id, run_id, user_name, kind, title, year, episode, raw_id,
            provider, provider_id, target_id, status, reason, detail
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range report.Outcomes {
		if _, err := stmt.ExecContext(ctx,
			sectionID,
			runID,
			user,
			o.Kind.String(),
			o.Title,
			o.Year,
			nullableString(o.Episode),
			nullableString(o.Raw),
			nullableString(string(o.Ref.Provider)),
			nullableString(o.Ref.ID),
			nullableString(o.TargetID),
			o.Status(),
			nullableString(string(o.Reason)),
			nullableString(o.Detail),
		); err != nil {
			return fmt.Errorf("insert outcome %q: %w", o.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit section: %w", err)
	}
	return nil
}

// FinishRun stamps the run with its final totals and status.
func (s *Store) FinishRun(ctx context.Context, report syncengine.RunReport) error {
	marked, skipped := report.Totals()
	status := StatusOK
	if report.Failed() {
		status = StatusFailed
	}
	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, marked = ?, skipped = ?, error_message = ? WHERE id = ?`,
		finished.UTC().Format(time.RFC3339Nano),
		status,
		marked,
		skipped,
		nullableError(report.Err()),
		report.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", report.RunID, ErrRunNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, dry_run, status, users, marked, skipped, error_message
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run by full id or unique prefix.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return Run{}, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, dry_run, status, users, marked, skipped, error_message
         FROM runs WHERE id = ? OR id LIKE ? ORDER BY started_at DESC LIMIT 2`,
		idOrPrefix, escapeLike(idOrPrefix)+"%")
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		if run.ID == idOrPrefix {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(matches) {
	case 0:
		return Run{}, ErrRunNotFound
	case 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", idOrPrefix)
	}
}

// Outcomes lists every outcome recorded for runID in insertion order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]OutcomeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT o.user_name, s.title, o.kind, o.title, o.year, o.episode, o.raw_id,
                o.provider, o.provider_id, o.target_id, o.status, o.reason, o.detail
         FROM outcomes o JOIN sections s ON s.id = o.section_id
         WHERE o.run_id = ? ORDER BY o.id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var records []OutcomeRecord
	for rows.Next() {
		var (
			rec                                        OutcomeRecord
			year                                       sql.NullInt64
			episode, raw, provider, providerID, target sql.NullString
			reason, detail                             sql.NullString
		)
		if err := rows.Scan(&rec.User, &rec.Section, &rec.Kind, &rec.Title, &year, &episode, &raw,
			&provider, &providerID, &target, &rec.Status, &reason, &detail); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		rec.Year = int(year.Int64)
		rec.Episode = episode.String
		rec.RawID = raw.String
		rec.Provider = provider.String
		rec.ProviderID = providerID.String
		rec.TargetID = target.String
		rec.Reason = reason.String
		rec.Detail = detail.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run               Run
		started, users    string
		finished, errText sql.NullString
		dryRun            int
	)
	if err := row.Scan(&run.ID, &started, &finished, &dryRun, &run.Status, &users, &run.Marked, &run.Skipped, &errText); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	run.DryRun = dryRun != 0
	if users != "" {
		run.Users = strings.Split(users, ",")
	}
	run.Error = errText.String
	return run, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableError(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer("%", "", "_", "")
	return replacer.Replace(value)
}
