package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openUnmigrated(t *testing.T) *RunHistory {
	t.Helper()

	history, err := OpenRunHistory(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })
	return history
}

func applyThrough(t *testing.T, h *RunHistory, version int) {
	t.Helper()

	for _, m := range migrations {
		if m.Version > version {
			break
		}
		tx, err := h.db.Begin()
		require.NoError(t, err)
		require.NoError(t, m.Up(tx))
		_, err = tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version))
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
	}
}

func indexExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrate_FromVersionOne(t *testing.T) {
	history := openUnmigrated(t)
	ctx := context.Background()

	applyThrough(t, history, 1)
	_, err := history.db.Exec(`INSERT INTO fetch_runs (id, started_at, finished_at, fetched, added, total, status)
		VALUES ('old', '2025-01-01 00:00:00', '2025-01-01 00:01:00', 10, 2, 100, 'succeeded')`)
	require.NoError(t, err)

	require.NoError(t, history.Migrate(ctx))

	runs, err := history.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "old", runs[0].ID)
	assert.Equal(t, 0, runs[0].Relevant, "new column defaults to zero")
	assert.Equal(t, 100, runs[0].Total)

	assert.True(t, indexExists(t, history.db, "idx_fetch_runs_started"))
	assert.True(t, indexExists(t, history.db, "idx_fetch_runs_status"))
}

func TestMigrate_NewerSchemaRejected(t *testing.T) {
	history := openUnmigrated(t)
	ctx := context.Background()

	_, err := history.db.Exec("PRAGMA user_version = 9")
	require.NoError(t, err)

	err = history.Migrate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version mismatch")
}

func TestMigrations_Ordered(t *testing.T) {
	require.NotEmpty(t, migrations)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.Description)
	}
	assert.Equal(t, ExpectedSchemaVersion, migrations[len(migrations)-1].Version)
}
