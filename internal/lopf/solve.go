// Package lopf solves a linear optimal power flow over a model.Network.
//
// The network is formulated as a single linear program over all snapshots
// (generator dispatch, link flows, store power and energy, optional
// generator capacity expansion) and solved with a two-phase dense simplex
// on gonum matrices. The solve is synchronous; a failure to find an optimum
// is returned to the caller without retry.
package lopf

import (
	"errors"
	"fmt"
	"math"
	"time"

	"grid-arbitrage/internal/model"

	"github.com/rs/zerolog/log"
)

var (
	ErrInfeasible = errors.New("lopf: problem is infeasible")
	ErrUnbounded  = errors.New("lopf: problem is unbounded")
	ErrSolver     = errors.New("lopf: solver failed")
)

const (
	// zeroTol snaps solver noise to exact zeros and defines zero dispatch.
	zeroTol = 1e-9
	// simplexTol is the smallest pivot and reduced cost the simplex acts on.
	simplexTol = 1e-9
	// feasTol bounds the residual infeasibility, relative to the total
	// right-hand side, accepted at the end of phase 1.
	feasTol = 1e-9
)

type layout struct {
	genP   [][]int
	genCap []int
	linkP  [][]int
	storeP [][]int
	storeE [][]int
}

// Solve formulates and solves the network. The network is validated first.
func Solve(net model.Network) (*Result, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	p, lay := formulate(net)

	objective, x, err := p.solve()
	if err != nil {
		log.Warn().
			Str("network", net.Name).
			Int("snapshots", net.Snapshots).
			Int("variables", len(p.cost)).
			Int("constraints", len(p.rows)).
			Err(err).
			Msg("lopf: solve failed")
		return nil, err
	}

	res := collect(net, lay, x, objective)
	log.Debug().
		Str("network", net.Name).
		Int("snapshots", net.Snapshots).
		Int("variables", len(p.cost)).
		Int("constraints", len(p.rows)).
		Float64("objective", objective).
		Dur("duration", time.Since(start)).
		Msg("lopf: solved")
	return res, nil
}

func formulate(net model.Network) (*problem, layout) {
	T := net.Snapshots
	p := &problem{}
	lay := layout{
		genP:   make([][]int, len(net.Generators)),
		genCap: make([]int, len(net.Generators)),
		linkP:  make([][]int, len(net.Links)),
		storeP: make([][]int, len(net.Stores)),
		storeE: make([][]int, len(net.Stores)),
	}

	// Per bus and snapshot: variable indices and coefficients entering the balance.
	type term struct {
		idx []int
		val []float64
	}
	balance := make(map[string][]term, len(net.Buses))
	for _, b := range net.Buses {
		balance[b.Name] = make([]term, T)
	}
	inject := func(bus string, t, v int, coef float64) {
		tm := &balance[bus][t]
		tm.idx = append(tm.idx, v)
		tm.val = append(tm.val, coef)
	}
	rhs := make(map[string][]float64, len(net.Buses))
	for _, b := range net.Buses {
		rhs[b.Name] = make([]float64, T)
	}

	for gi, g := range net.Generators {
		lay.genCap[gi] = -1
		maxPU := g.MaxPU()
		if g.PNomExtendable {
			hi := math.Inf(1)
			if g.PNomMax > 0 {
				hi = g.PNomMax
			}
			lay.genCap[gi] = p.addVar(g.CapitalCost, g.PNomMin, hi)
		}
		lay.genP[gi] = make([]int, T)
		for t := 0; t < T; t++ {
			var v int
			if g.PNomExtendable {
				lo := 0.0
				if g.PMinPU.At(t) < 0 {
					lo = math.Inf(-1)
				}
				v = p.addVar(g.MarginalCost.At(t), lo, math.Inf(1))
				capv := lay.genCap[gi]
				p.addRow([]int{v, capv}, []float64{1, -maxPU.At(t)}, le, 0)
				if g.PMinPU.At(t) != 0 {
					p.addRow([]int{v, capv}, []float64{1, -g.PMinPU.At(t)}, ge, 0)
				}
			} else {
				v = p.addVar(g.MarginalCost.At(t), g.PMinPU.At(t)*g.PNom, maxPU.At(t)*g.PNom)
			}
			lay.genP[gi][t] = v
			inject(g.Bus, t, v, 1)
		}
	}

	for _, l := range net.Loads {
		for t := 0; t < T; t++ {
			rhs[l.Bus][t] += l.PSet.At(t)
		}
	}

	for si, s := range net.Stores {
		lay.storeP[si] = make([]int, T)
		lay.storeE[si] = make([]int, T)
		for t := 0; t < T; t++ {
			lay.storeP[si][t] = p.addVar(s.MarginalCost.At(t), math.Inf(-1), math.Inf(1))
			lay.storeE[si][t] = p.addVar(0, s.EMinPU*s.ENom, s.MaxPU()*s.ENom)
			inject(s.Bus, t, lay.storeP[si][t], 1)
		}
		keep := 1 - s.StandingLoss
		for t := 0; t < T; t++ {
			// e[t] - keep*e[t-1] + p[t] = 0, anchored at e_initial or wrapped.
			e, pw := lay.storeE[si][t], lay.storeP[si][t]
			switch {
			case t > 0:
				p.addRow([]int{e, lay.storeE[si][t-1], pw}, []float64{1, -keep, 1}, eq, 0)
			case s.ECyclic:
				p.addRow([]int{e, lay.storeE[si][T-1], pw}, []float64{1, -keep, 1}, eq, 0)
			default:
				p.addRow([]int{e, pw}, []float64{1, 1}, eq, keep*s.EInitial)
			}
		}
	}

	for li, l := range net.Links {
		lay.linkP[li] = make([]int, T)
		for t := 0; t < T; t++ {
			v := p.addVar(l.MarginalCost.At(t), l.PMinPU*l.PNom, l.MaxPU()*l.PNom)
			lay.linkP[li][t] = v
			inject(l.Bus0, t, v, -1)
			inject(l.Bus1, t, v, l.Eff())
		}
	}

	for _, b := range net.Buses {
		for t := 0; t < T; t++ {
			tm := balance[b.Name][t]
			p.addRow(tm.idx, tm.val, eq, rhs[b.Name][t])
		}
	}

	return p, lay
}

func collect(net model.Network, lay layout, x []float64, objective float64) *Result {
	T := net.Snapshots
	res := &Result{
		Objective:  objective,
		Snapshots:  T,
		Generators: make(map[string]GeneratorResult, len(net.Generators)),
		Links:      make(map[string]LinkResult, len(net.Links)),
		Stores:     make(map[string]StoreResult, len(net.Stores)),
	}
	for gi, g := range net.Generators {
		gr := GeneratorResult{
			P:       make([]float64, T),
			Idle:    make([]bool, T),
			PNomOpt: g.PNom,
		}
		for t, v := range lay.genP[gi] {
			gr.P[t] = x[v]
			gr.Idle[t] = x[v] == 0
		}
		if lay.genCap[gi] >= 0 {
			gr.PNomOpt = x[lay.genCap[gi]]
		}
		res.Generators[g.Name] = gr
	}
	for li, l := range net.Links {
		lr := LinkResult{P0: make([]float64, T), P1: make([]float64, T)}
		for t, v := range lay.linkP[li] {
			lr.P0[t] = x[v]
			lr.P1[t] = -l.Eff() * x[v]
		}
		res.Links[l.Name] = lr
	}
	for si, s := range net.Stores {
		sr := StoreResult{P: make([]float64, T), E: make([]float64, T)}
		for t := 0; t < T; t++ {
			sr.P[t] = x[lay.storeP[si][t]]
			sr.E[t] = x[lay.storeE[si][t]]
		}
		res.Stores[s.Name] = sr
	}
	return res
}

// Result is the optimal operating point of a network.
type Result struct {
	Objective  float64
	Snapshots  int
	Generators map[string]GeneratorResult
	Links      map[string]LinkResult
	Stores     map[string]StoreResult
}

type GeneratorResult struct {
	P []float64
	// Idle is the solver's zero-dispatch indicator per snapshot.
	Idle    []bool
	PNomOpt float64
}

type LinkResult struct {
	P0 []float64
	P1 []float64
}

type StoreResult struct {
	P []float64
	E []float64
}

// Generator returns the dispatch of a named generator.
func (r *Result) Generator(name string) (GeneratorResult, error) {
	g, ok := r.Generators[name]
	if !ok {
		return GeneratorResult{}, fmt.Errorf("lopf: no generator %q in result", name)
	}
	return g, nil
}

// Store returns the power and energy of a named store.
func (r *Result) Store(name string) (StoreResult, error) {
	s, ok := r.Stores[name]
	if !ok {
		return StoreResult{}, fmt.Errorf("lopf: no store %q in result", name)
	}
	return s, nil
}
