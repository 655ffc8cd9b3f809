package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestHistory(t *testing.T) *RunHistory {
	t.Helper()

	history, err := OpenRunHistory(filepath.Join(t.TempDir(), "db", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })

	require.NoError(t, history.Migrate(context.Background()))
	return history
}

func TestRunHistory_Migrate(t *testing.T) {
	history := createTestHistory(t)
	ctx := context.Background()

	// Running twice is a no-op.
	require.NoError(t, history.Migrate(ctx))

	var version int
	require.NoError(t, history.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestRunHistory_RecordAndList(t *testing.T) {
	history := createTestHistory(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	since := time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)

	firstID, err := history.RecordRun(ctx, Run{
		StartedAt:  base,
		FinishedAt: base.Add(42 * time.Second),
		Status:     RunSucceeded,
		Fetched:    500,
		Relevant:   480,
		Added:      480,
		Total:      480,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, firstID)

	_, err = history.RecordRun(ctx, Run{
		ID:        "second",
		StartedAt: base.Add(24 * time.Hour),
		Since:     &since,
		Status:    RunFailed,
		Error:     "page 3 failed",
		Fetched:   200,
	})
	require.NoError(t, err)

	runs, err := history.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "second", runs[0].ID)
	assert.Equal(t, RunFailed, runs[0].Status)
	assert.Equal(t, "page 3 failed", runs[0].Error)
	require.NotNil(t, runs[0].Since)
	assert.Equal(t, "2025-02-20", runs[0].Since.Format("2006-01-02"))
	assert.Equal(t, time.Duration(0), runs[0].Duration())

	assert.Equal(t, firstID, runs[1].ID)
	assert.Nil(t, runs[1].Since)
	assert.Equal(t, 480, runs[1].Relevant)
	assert.Equal(t, 42*time.Second, runs[1].Duration())

	limited, err := history.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRunHistory_LastSuccessful(t *testing.T) {
	history := createTestHistory(t)
	ctx := context.Background()

	_, ok, err := history.LastSuccessful(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = history.RecordRun(ctx, Run{ID: "ok", StartedAt: base, Status: RunSucceeded, Added: 3})
	require.NoError(t, err)
	_, err = history.RecordRun(ctx, Run{ID: "bad", StartedAt: base.Add(time.Hour), Status: RunFailed})
	require.NoError(t, err)

	run, ok, err := history.LastSuccessful(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ok", run.ID)
	assert.Equal(t, 3, run.Added)
}

func TestRunHistory_RecordRunValidation(t *testing.T) {
	history := createTestHistory(t)
	ctx := context.Background()

	_, err := history.RecordRun(ctx, Run{StartedAt: time.Now(), Status: "maybe"})
	require.ErrorIs(t, err, ErrInvalidRun)

	_, err = history.RecordRun(ctx, Run{Status: RunSucceeded})
	require.ErrorIs(t, err, ErrInvalidRun)

	//nolint:staticcheck // nil context is the case under test
	_, err = history.RecordRun(nil, Run{StartedAt: time.Now(), Status: RunSucceeded})
	require.ErrorIs(t, err, ErrNilContext)
}

func TestOpenRunHistory_EmptyPath(t *testing.T) {
	_, err := OpenRunHistory("")
	require.ErrorIs(t, err, ErrEmptyString)
}
