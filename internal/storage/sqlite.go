package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// RunStatus is the outcome of a fetch run.
type RunStatus string

// Run statuses.
const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded execution of the ingestion pipeline.
type Run struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Since      *time.Time
	ID         string
	Status     RunStatus
	Error      string
	Fetched    int
	Relevant   int
	Added      int
	Total      int
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunHistory records fetch runs in SQLite.
type RunHistory struct {
	db     *sql.DB
	dbPath string
}

// OpenRunHistory opens (creating if needed) the history database at dbPath.
// Callers must call Migrate before use.
func OpenRunHistory(dbPath string) (*RunHistory, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &RunHistory{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (h *RunHistory) Close() error {
	return h.db.Close()
}

// RecordRun inserts run. An empty ID is replaced with a new UUID, which is
// returned.
func (h *RunHistory) RecordRun(ctx context.Context, run Run) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if run.Status != RunSucceeded && run.Status != RunFailed {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidRun, run.Status)
	}
	if run.StartedAt.IsZero() {
		return "", fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}

	var since sql.NullString
	if run.Since != nil {
		since = sql.NullString{String: run.Since.Format("2006-01-02"), Valid: true}
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO fetch_runs (
			id, started_at, finished_at, since_date,
			fetched, relevant, added, total, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		since,
		run.Fetched,
		run.Relevant,
		run.Added,
		run.Total,
		string(run.Status),
		run.Error,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns up to limit runs, most recent first. A non-positive limit
// returns every run.
func (h *RunHistory) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, started_at, finished_at, since_date,
		       fetched, relevant, added, total, status, error
		FROM fetch_runs
		ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// LastSuccessful returns the most recent succeeded run, or false when there is none.
func (h *RunHistory) LastSuccessful(ctx context.Context) (Run, bool, error) {
	if err := validateContext(ctx); err != nil {
		return Run{}, false, err
	}

	row := h.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, since_date,
		       fetched, relevant, added, total, status, error
		FROM fetch_runs
		WHERE status = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1`, string(RunSucceeded))

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run    Run
		since  sql.NullString
		status string
	)
	err := row.Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&since,
		&run.Fetched,
		&run.Relevant,
		&run.Added,
		&run.Total,
		&status,
		&run.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Status = RunStatus(status)
	if since.Valid {
		t, parseErr := time.Parse("2006-01-02", since.String)
		if parseErr == nil {
			run.Since = &t
		}
	}
	return run, nil
}
