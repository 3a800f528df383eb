package arbitrage

import (
	"fmt"
	"math"
	"time"

	"grid-arbitrage/internal/income"
	"grid-arbitrage/internal/lopf"
	"grid-arbitrage/internal/model"
	"grid-arbitrage/internal/scenario"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Recorder observes finished runs. internal/metrics provides one.
type Recorder interface {
	ObserveRun(kind string, d time.Duration, err error)
}

type Engine struct {
	solve    func(model.Network) (*lopf.Result, error)
	idleTol  float64
	recorder Recorder
}

type Option func(*Engine)

// WithRecorder attaches a run observer.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithIdleTolerance sets the fallback idle threshold used when the solver
// provides no zero-dispatch indicator for a channel generator.
func WithIdleTolerance(tol float64) Option {
	return func(e *Engine) { e.idleTol = tol }
}

func New(opts ...Option) *Engine {
	e := &Engine{solve: lopf.Solve}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run solves the scenario's network and derives per-period income for its
// two market channels.
func (e *Engine) Run(sc *scenario.Scenario) (*Result, error) {
	start := time.Now()
	res, err := e.run(sc)
	if e.recorder != nil {
		kind := ""
		if sc != nil {
			kind = string(sc.Kind)
		}
		e.recorder.ObserveRun(kind, time.Since(start), err)
	}
	return res, err
}

func (e *Engine) run(sc *scenario.Scenario) (*Result, error) {
	if sc == nil {
		return nil, fmt.Errorf("scenario is nil")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	dispatch, err := e.solve(sc.Network)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	genA, err := dispatch.Generator(sc.ChannelA.Generator)
	if err != nil {
		return nil, err
	}
	genB, err := dispatch.Generator(sc.ChannelB.Generator)
	if err != nil {
		return nil, err
	}

	der, err := income.Derive(
		income.Channel{Name: sc.ChannelA.Name, Power: genA.P, Prices: sc.ChannelA.Prices, Idle: genA.Idle},
		income.Channel{Name: sc.ChannelB.Name, Power: genB.P, Prices: sc.ChannelB.Prices, Idle: genB.Idle},
		income.Options{Baseline: sc.Baseline, IdleTolerance: e.idleTol},
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	n := der.Periods()
	var store lopf.StoreResult
	if sc.Store != "" {
		if store, err = dispatch.Store(sc.Store); err != nil {
			return nil, err
		}
	}

	ledger := make([]LedgerRow, 0, n)
	out := &Result{
		RunID:     uuid.NewString(),
		Scenario:  sc.Name,
		Kind:      string(sc.Kind),
		ChannelA:  sc.ChannelA.Name,
		ChannelB:  sc.ChannelB.Name,
		Baseline:  sc.Baseline,
		Objective: dispatch.Objective,
		CreatedAt: time.Now().UTC(),
		Dispatch:  dispatch,
	}

	for t := 0; t < n; t++ {
		row := LedgerRow{
			Index: t,
			A: ChannelRow{
				DispatchMW: genA.P[t],
				Price:      sc.ChannelA.Prices[t],
				NetMW:      der.A.Net[t],
				Income:     der.A.Income[t],
			},
			B: ChannelRow{
				DispatchMW: genB.P[t],
				Price:      sc.ChannelB.Prices[t],
				NetMW:      der.B.Net[t],
				Income:     der.B.Income[t],
			},
			Income:    der.Combined[t],
			CumIncome: der.Cumulative[t],
			Action:    model.ActionIdle,
		}
		if store.P != nil {
			row.StorePowerMW = store.P[t]
			row.StoreEnergyMWh = store.E[t]
			row.Action = model.ActionFromStorePower(store.P[t])
			// One snapshot is one hour.
			if store.P[t] < 0 {
				out.ChargedMWh += -store.P[t]
			} else {
				out.DischargedMWh += store.P[t]
			}
			out.FinalEnergyMWh = store.E[t]
		}
		out.IncomeA += der.A.Income[t]
		out.IncomeB += der.B.Income[t]
		ledger = append(ledger, row)
	}
	out.Ledger = ledger
	out.TotalIncome = der.Total()

	log.Info().
		Str("run_id", out.RunID).
		Str("scenario", sc.Name).
		Int("periods", n).
		Float64("objective", out.Objective).
		Float64("total_income", out.TotalIncome).
		Msg("arbitrage: run completed")
	return out, nil
}

// Summary is the totals-only view of a Result.
func (r *Result) Summary() Summary {
	return Summary{
		RunID:          r.RunID,
		Scenario:       r.Scenario,
		Kind:           r.Kind,
		Periods:        len(r.Ledger),
		Objective:      r.Objective,
		TotalIncome:    r.TotalIncome,
		IncomeA:        r.IncomeA,
		IncomeB:        r.IncomeB,
		ChargedMWh:     r.ChargedMWh,
		DischargedMWh:  r.DischargedMWh,
		FinalEnergyMWh: r.FinalEnergyMWh,
		CreatedAt:      r.CreatedAt,
	}
}

// clean turns -0 and solver noise below 1e-12 into 0 for output.
func clean(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 0
	}
	return x
}
