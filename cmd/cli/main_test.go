package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cliResult(id string) *arbitrage.Result {
	return &arbitrage.Result{
		RunID:       id,
		Scenario:    "cli",
		Kind:        "single_bus",
		ChannelA:    "epex",
		ChannelB:    "intraday",
		Baseline:    1000,
		TotalIncome: 4,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Ledger: []arbitrage.LedgerRow{
			{Index: 0, Income: 4, CumIncome: 4},
		},
	}
}

func TestSaveRun(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "runs.db")

	require.NoError(t, saveRun(ctx, dsn, cliResult("run-1")))

	db, err := store.New(dsn)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "cli", got.Scenario)
	assert.Equal(t, 4.0, got.TotalIncome)
}

func TestSaveRun_ErrorsLeaveStoreUsable(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "runs.db")

	assert.Error(t, saveRun(ctx, dsn, &arbitrage.Result{}))
	require.NoError(t, saveRun(ctx, dsn, cliResult("run-1")))
	assert.Error(t, saveRun(ctx, dsn, cliResult("run-1")), "duplicate run id")
	require.NoError(t, saveRun(ctx, dsn, cliResult("run-2")))

	db, err := store.New(dsn)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSaveRun_BadPath(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "missing", "runs.db")
	assert.Error(t, saveRun(context.Background(), dsn, cliResult("run-1")))
}
