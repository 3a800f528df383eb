package lopf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// tableau is a dense two-phase simplex over the equality form
// A·y = b, y >= 0, b >= 0. Columns [0, n) are structural, [n, n+m) are the
// artificial identity that seeds the first basis, and the last column holds
// the right-hand side. Pivots follow Bland's rule, so degenerate vertices
// cannot cycle.
type tableau struct {
	m, n  int
	t     *mat.Dense
	obj   []float64 // reduced costs; the last entry is minus the objective
	basis []int
}

func newTableau(a [][]float64, b []float64, n int) *tableau {
	m := len(a)
	tb := &tableau{
		m:     m,
		n:     n,
		t:     mat.NewDense(max(m, 1), n+m+1, nil),
		obj:   make([]float64, n+m+1),
		basis: make([]int, m),
	}
	rhs := n + m
	for i := 0; i < m; i++ {
		r := tb.t.RawRowView(i)
		copy(r, a[i])
		r[n+i] = 1
		r[rhs] = b[i]
		tb.basis[i] = n + i
	}
	return tb
}

func (tb *tableau) row(i int) []float64 { return tb.t.RawRowView(i) }

func (tb *tableau) rhs() int { return tb.n + tb.m }

// pivot makes column c basic in row r.
func (tb *tableau) pivot(r, c int) {
	pr := tb.row(r)
	floats.Scale(1/pr[c], pr)
	pr[c] = 1
	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		ri := tb.row(i)
		if f := ri[c]; f != 0 {
			floats.AddScaled(ri, -f, pr)
			ri[c] = 0
			if v := ri[tb.rhs()]; v < 0 && v > -simplexTol {
				ri[tb.rhs()] = 0
			}
		}
	}
	if f := tb.obj[c]; f != 0 {
		floats.AddScaled(tb.obj, -f, pr)
		tb.obj[c] = 0
	}
	tb.basis[r] = c
}

// iterate pivots until no column below limit has a negative reduced cost.
func (tb *tableau) iterate(limit int) error {
	rhs := tb.rhs()
	maxIter := 50 * (tb.m + limit + 1)
	for iter := 0; iter < maxIter; iter++ {
		enter := -1
		for j := 0; j < limit; j++ {
			if tb.obj[j] < -simplexTol {
				enter = j
				break
			}
		}
		if enter < 0 {
			return nil
		}

		leave := -1
		best := math.Inf(1)
		for i := 0; i < tb.m; i++ {
			r := tb.row(i)
			if r[enter] <= simplexTol {
				continue
			}
			ratio := r[rhs] / r[enter]
			switch {
			case leave < 0 || ratio < best-simplexTol:
				best, leave = ratio, i
			case ratio <= best+simplexTol && tb.basis[i] < tb.basis[leave]:
				leave = i
			}
		}
		if leave < 0 {
			return fmt.Errorf("%w: column %d can grow without limit", ErrUnbounded, enter)
		}
		tb.pivot(leave, enter)
	}
	return fmt.Errorf("%w: no optimum after %d pivots", ErrSolver, maxIter)
}

// simplex minimises c·y subject to A·y = b, y >= 0. b must be non-negative.
// It returns the optimal y.
func simplex(c []float64, a [][]float64, b []float64) ([]float64, error) {
	n := len(c)
	tb := newTableau(a, b, n)
	rhs := tb.rhs()

	// Phase 1: minimise the sum of the artificials.
	for i := 0; i < tb.m; i++ {
		r := tb.row(i)
		floats.Sub(tb.obj[:n], r[:n])
		tb.obj[rhs] -= r[rhs]
	}
	if err := tb.iterate(n); err != nil {
		return nil, err
	}
	if infeas := -tb.obj[rhs]; infeas > feasTol*(1+floats.Sum(b)) {
		return nil, fmt.Errorf("%w: constraint violation %g remains", ErrInfeasible, infeas)
	}

	// Drive zero-valued artificials out of the basis. A row with no
	// structural entry left is redundant and keeps its artificial.
	for i := 0; i < tb.m; i++ {
		if tb.basis[i] < n {
			continue
		}
		r := tb.row(i)
		col, best := -1, simplexTol
		for j := 0; j < n; j++ {
			if v := math.Abs(r[j]); v > best {
				col, best = j, v
			}
		}
		if col >= 0 {
			r[rhs] = 0
			tb.pivot(i, col)
		}
	}

	// Phase 2: price out the basis against the real costs.
	for j := range tb.obj {
		tb.obj[j] = 0
	}
	copy(tb.obj, c)
	for i := 0; i < tb.m; i++ {
		if k := tb.basis[i]; k < n && c[k] != 0 {
			floats.AddScaled(tb.obj, -c[k], tb.row(i))
		}
	}
	if err := tb.iterate(n); err != nil {
		return nil, err
	}

	y := make([]float64, n)
	for i := 0; i < tb.m; i++ {
		if k := tb.basis[i]; k < n {
			y[k] = math.Max(tb.row(i)[rhs], 0)
		}
	}
	return y, nil
}
