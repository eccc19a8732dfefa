package runstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) Store {
	t.Helper()
	sqlite, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	store, err := NewStore(sqlite)
	require.NoError(t, err)
	return store
}

func TestPushAndList(t *testing.T) {
	store := setup(t)
	ctx := context.Background()

	first := Run{
		StartedAt:          time.Unix(1700000000, 0),
		FinishedAt:         time.Unix(1700000120, 0),
		Success:            true,
		DownloadsSucceeded: 4,
		ItemsProcessed:     4,
		AmountsRecognized:  3,
		ItemsMissingAmount: 1,
	}
	second := Run{
		StartedAt:       time.Unix(1700090000, 0),
		FinishedAt:      time.Unix(1700090060, 0),
		Success:         false,
		DownloadsFailed: 2,
		Errors:          1,
	}
	require.NoError(t, store.Push(ctx, first))
	require.NoError(t, store.Push(ctx, second))

	runs, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// newest first
	require.Equal(t, second, runs[0])
	require.Equal(t, first, runs[1])
}

func TestListLimit(t *testing.T) {
	store := setup(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Push(ctx, Run{
			StartedAt:  time.Unix(int64(1700000000+i), 0),
			FinishedAt: time.Unix(int64(1700000001+i), 0),
		}))
	}

	runs, err := store.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, time.Unix(1700000004, 0), runs[0].StartedAt)
}
