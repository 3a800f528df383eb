// Package store persists finished arbitrage runs in SQLite.
//
// Tables:
//
//	runs:        one summary row per run
//	ledger_rows: the per-period ledger of each run
//
// Runs are immutable once saved; the store never feeds back into a solve.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/model"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("store: run not found")

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    scenario         TEXT    NOT NULL,
    kind             TEXT    NOT NULL DEFAULT '',
    channel_a        TEXT    NOT NULL,
    channel_b        TEXT    NOT NULL,
    baseline         REAL    NOT NULL DEFAULT 0,
    periods          INTEGER NOT NULL DEFAULT 0,
    objective        REAL    NOT NULL DEFAULT 0,
    total_income     REAL    NOT NULL DEFAULT 0,
    income_a         REAL    NOT NULL DEFAULT 0,
    income_b         REAL    NOT NULL DEFAULT 0,
    charged_mwh      REAL    NOT NULL DEFAULT 0,
    discharged_mwh   REAL    NOT NULL DEFAULT 0,
    final_energy_mwh REAL    NOT NULL DEFAULT 0,
    created_at       TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_rows (
    run_id           TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    idx              INTEGER NOT NULL,
    store_power_mw   REAL    NOT NULL,
    store_energy_mwh REAL    NOT NULL,
    action           TEXT    NOT NULL,
    a_dispatch_mw    REAL    NOT NULL,
    a_price          REAL    NOT NULL,
    a_net_mw         REAL    NOT NULL,
    a_income         REAL    NOT NULL,
    b_dispatch_mw    REAL    NOT NULL,
    b_price          REAL    NOT NULL,
    b_net_mw         REAL    NOT NULL,
    b_income         REAL    NOT NULL,
    income           REAL    NOT NULL,
    cum_income       REAL    NOT NULL,
    PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
`

// SQLiteStore is a run history backed by SQLite (pure Go, no cgo).
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store.New: open %q: %w", path, err)
	}
	// SQLite is single-writer. With ":memory:" every connection would be a new database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.New: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveRun writes the summary and the full ledger in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *arbitrage.Result) error {
	if r == nil || r.RunID == "" {
		return errors.New("store.SaveRun: run without id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store.SaveRun: begin: %w", err)
	}
	defer tx.Rollback()

	sum := r.Summary()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		  (id, scenario, kind, channel_a, channel_b, baseline, periods, objective,
		   total_income, income_a, income_b, charged_mwh, discharged_mwh, final_energy_mwh, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sum.RunID, sum.Scenario, sum.Kind, r.ChannelA, r.ChannelB, r.Baseline, sum.Periods, sum.Objective,
		sum.TotalIncome, sum.IncomeA, sum.IncomeB, sum.ChargedMWh, sum.DischargedMWh, sum.FinalEnergyMWh,
		sum.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("store.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_rows
		  (run_id, idx, store_power_mw, store_energy_mwh, action,
		   a_dispatch_mw, a_price, a_net_mw, a_income,
		   b_dispatch_mw, b_price, b_net_mw, b_income,
		   income, cum_income)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("store.SaveRun: prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range r.Ledger {
		_, err := stmt.ExecContext(ctx,
			r.RunID, row.Index, row.StorePowerMW, row.StoreEnergyMWh, string(row.Action),
			row.A.DispatchMW, row.A.Price, row.A.NetMW, row.A.Income,
			row.B.DispatchMW, row.B.Price, row.B.NetMW, row.B.Income,
			row.Income, row.CumIncome,
		)
		if err != nil {
			return fmt.Errorf("store.SaveRun: insert row %d: %w", row.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store.SaveRun: commit: %w", err)
	}
	return nil
}

const summaryColumns = `id, scenario, kind, periods, objective, total_income, income_a, income_b,
	charged_mwh, discharged_mwh, final_energy_mwh, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(sc scanner) (arbitrage.Summary, error) {
	var (
		sum     arbitrage.Summary
		created string
	)
	err := sc.Scan(&sum.RunID, &sum.Scenario, &sum.Kind, &sum.Periods, &sum.Objective,
		&sum.TotalIncome, &sum.IncomeA, &sum.IncomeB,
		&sum.ChargedMWh, &sum.DischargedMWh, &sum.FinalEnergyMWh, &created)
	if err != nil {
		return sum, err
	}
	if sum.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return sum, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return sum, nil
}

// GetRun returns the summary of one run.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (arbitrage.Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM runs WHERE id = ?`, id)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sum, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return sum, fmt.Errorf("store.GetRun: %w", err)
	}
	return sum, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means 50.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]arbitrage.Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store.ListRuns: %w", err)
	}
	defer rows.Close()

	out := []arbitrage.Summary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("store.ListRuns: scan: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// GetLedger returns the ledger of a run in period order.
func (s *SQLiteStore) GetLedger(ctx context.Context, id string) ([]arbitrage.LedgerRow, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, store_power_mw, store_energy_mwh, action,
		       a_dispatch_mw, a_price, a_net_mw, a_income,
		       b_dispatch_mw, b_price, b_net_mw, b_income,
		       income, cum_income
		FROM ledger_rows WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("store.GetLedger: %w", err)
	}
	defer rows.Close()

	out := []arbitrage.LedgerRow{}
	for rows.Next() {
		var (
			r      arbitrage.LedgerRow
			action string
		)
		if err := rows.Scan(&r.Index, &r.StorePowerMW, &r.StoreEnergyMWh, &action,
			&r.A.DispatchMW, &r.A.Price, &r.A.NetMW, &r.A.Income,
			&r.B.DispatchMW, &r.B.Price, &r.B.NetMW, &r.B.Income,
			&r.Income, &r.CumIncome); err != nil {
			return nil, fmt.Errorf("store.GetLedger: scan: %w", err)
		}
		r.Action = model.Action(action)
		out = append(out, r)
	}
	return out, rows.Err()
}
