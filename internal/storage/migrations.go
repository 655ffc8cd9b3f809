package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the run history schema this build reads and writes.
const ExpectedSchemaVersion = 2

// Migration moves the run history schema forward by one version.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// statements returns an Up step that executes stmts in order.
func statements(stmts ...string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for i, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return nil
	}
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "fetch_runs table",
		Up: statements(
			`CREATE TABLE IF NOT EXISTS fetch_runs (
				id          TEXT PRIMARY KEY,
				started_at  DATETIME NOT NULL,
				finished_at DATETIME NOT NULL,
				since_date  TEXT,
				fetched     INTEGER NOT NULL DEFAULT 0,
				added       INTEGER NOT NULL DEFAULT 0,
				total       INTEGER NOT NULL DEFAULT 0,
				status      TEXT NOT NULL,
				error       TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX idx_fetch_runs_started ON fetch_runs(started_at)`,
		),
	},
	{
		Version:     2,
		Description: "relevant count and status index",
		Up: statements(
			`ALTER TABLE fetch_runs ADD COLUMN relevant INTEGER NOT NULL DEFAULT 0`,
			`CREATE INDEX idx_fetch_runs_status ON fetch_runs(status, started_at)`,
		),
	},
}

func (h *RunHistory) schemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := h.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// apply runs m and bumps user_version in one transaction.
func (h *RunHistory) apply(ctx context.Context, m Migration) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := m.Up(tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("record schema version %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}

// Migrate brings the run history schema up to ExpectedSchemaVersion. A database
// written by a newer build is rejected rather than downgraded.
func (h *RunHistory) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	current, err := h.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if current > ExpectedSchemaVersion {
		return fmt.Errorf("run history schema version mismatch: database is at %d, this build supports %d",
			current, ExpectedSchemaVersion)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := h.apply(ctx, m); err != nil {
			return err
		}
		slog.Debug("Migrated run history", "version", m.Version, "description", m.Description)
	}

	final, err := h.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("run history schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, final)
	}
	return nil
}
