package store_test

import (
	"context"
	"testing"
	"time"

	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/model"
	"grid-arbitrage/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeResult(id string, total float64, created time.Time) *arbitrage.Result {
	return &arbitrage.Result{
		RunID:       id,
		Scenario:    "single_bus",
		Kind:        "single_bus",
		ChannelA:    "epex",
		ChannelB:    "intraday",
		Baseline:    1000,
		Objective:   7900,
		TotalIncome: total,
		IncomeA:     total - 4,
		IncomeB:     4,
		ChargedMWh:  2,
		CreatedAt:   created,
		Ledger: []arbitrage.LedgerRow{
			{
				Index: 0, StorePowerMW: -2, StoreEnergyMWh: 2, Action: model.ActionCharging,
				A:      arbitrage.ChannelRow{DispatchMW: 1002, Price: 2, NetMW: 2, Income: -4},
				Income: -4, CumIncome: -4,
			},
			{
				Index: 1, StorePowerMW: 2, Action: model.ActionDischarging,
				B:      arbitrage.ChannelRow{DispatchMW: 998, Price: 4, NetMW: -2, Income: 8},
				Income: 8, CumIncome: 4,
			},
		},
	}
}

func open(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStore_SaveAndGetLedger(t *testing.T) {
	db := open(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, db.SaveRun(ctx, makeResult("run-1", 4, now)))

	ledger, err := db.GetLedger(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	assert.Equal(t, model.ActionCharging, ledger[0].Action)
	assert.Equal(t, 1002.0, ledger[0].A.DispatchMW)
	assert.Equal(t, -4.0, ledger[0].A.Income)
	assert.Equal(t, 8.0, ledger[1].B.Income)
	assert.Equal(t, 4.0, ledger[1].CumIncome)

	sum, err := db.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Periods)
	assert.Equal(t, 4.0, sum.TotalIncome)
	assert.Equal(t, 7900.0, sum.Objective)
	assert.True(t, now.Equal(sum.CreatedAt))
}

func TestSQLiteStore_NotFound(t *testing.T) {
	db := open(t)
	ctx := context.Background()

	_, err := db.GetLedger(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = db.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQLiteStore_ListRunsNewestFirst(t *testing.T) {
	db := open(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveRun(ctx, makeResult("old", 1, base)))
	require.NoError(t, db.SaveRun(ctx, makeResult("new", 2, base.Add(time.Hour))))
	require.NoError(t, db.SaveRun(ctx, makeResult("mid", 3, base.Add(time.Minute))))

	runs, err := db.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].RunID)
	assert.Equal(t, "mid", runs[1].RunID)
	assert.Equal(t, "old", runs[2].RunID)

	runs, err = db.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteStore_DuplicateRun(t *testing.T) {
	db := open(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRun(ctx, makeResult("dup", 1, time.Now())))
	assert.Error(t, db.SaveRun(ctx, makeResult("dup", 1, time.Now())))

	// The failed insert left the first run intact.
	ledger, err := db.GetLedger(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, ledger, 2)
}

func TestSQLiteStore_RejectsRunWithoutID(t *testing.T) {
	db := open(t)
	assert.Error(t, db.SaveRun(context.Background(), makeResult("", 0, time.Now())))
	assert.Error(t, db.SaveRun(context.Background(), nil))
}

func TestSQLiteStore_EmptyList(t *testing.T) {
	runs, err := open(t).ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
