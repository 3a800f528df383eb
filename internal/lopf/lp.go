package lopf

import (
	"fmt"
	"math"
)

type sense int

const (
	eq sense = iota
	le
	ge
)

// problem is a bounded-variable LP:
//
//	minimize   cost·x
//	subject to rows (=, <=, >=), lower <= x <= upper
//
// Bounds may be infinite. toStandard rewrites it into the equality form
// expected by simplex (A·y = b, y >= 0).
type problem struct {
	cost  []float64
	lower []float64
	upper []float64
	rows  []row
}

type row struct {
	idx   []int
	val   []float64
	sense sense
	rhs   float64
}

func (p *problem) addVar(cost, lo, hi float64) int {
	p.cost = append(p.cost, cost)
	p.lower = append(p.lower, lo)
	p.upper = append(p.upper, hi)
	return len(p.cost) - 1
}

func (p *problem) addRow(idx []int, val []float64, s sense, rhs float64) {
	p.rows = append(p.rows, row{idx: idx, val: val, sense: s, rhs: rhs})
}

// column maps a problem variable onto standard-form columns:
// x = offset + sign*y[pos] - y[neg] (neg < 0 when unused).
type column struct {
	pos, neg int
	sign     float64
	offset   float64
}

type standardForm struct {
	c      []float64
	a      [][]float64
	b      []float64
	cols   []column
	offset float64 // objective constant from shifted bounds
}

func (p *problem) toStandard() (*standardForm, error) {
	sf := &standardForm{cols: make([]column, len(p.cost))}
	next := 0
	newCol := func(cost float64) int {
		sf.c = append(sf.c, cost)
		next++
		return next - 1
	}

	type pending struct {
		coef map[int]float64
		rhs  float64
	}
	var rows []pending

	for j := range p.cost {
		lo, hi := p.lower[j], p.upper[j]
		if lo > hi {
			return nil, fmt.Errorf("%w: variable %d has lower bound %g above upper bound %g", ErrInfeasible, j, lo, hi)
		}
		switch {
		case !math.IsInf(lo, -1):
			col := column{pos: newCol(p.cost[j]), neg: -1, sign: 1, offset: lo}
			sf.offset += p.cost[j] * lo
			sf.cols[j] = col
			if !math.IsInf(hi, 1) {
				slack := newCol(0)
				rows = append(rows, pending{coef: map[int]float64{col.pos: 1, slack: 1}, rhs: hi - lo})
			}
		case !math.IsInf(hi, 1):
			col := column{pos: newCol(-p.cost[j]), neg: -1, sign: -1, offset: hi}
			sf.offset += p.cost[j] * hi
			sf.cols[j] = col
		default:
			pos := newCol(p.cost[j])
			neg := newCol(-p.cost[j])
			sf.cols[j] = column{pos: pos, neg: neg, sign: 1}
		}
	}

	for _, r := range p.rows {
		coef := make(map[int]float64, len(r.idx)+1)
		rhs := r.rhs
		for k, j := range r.idx {
			v := r.val[k]
			if v == 0 {
				continue
			}
			col := sf.cols[j]
			rhs -= v * col.offset
			coef[col.pos] += v * col.sign
			if col.neg >= 0 {
				coef[col.neg] -= v
			}
		}
		switch r.sense {
		case le:
			coef[newCol(0)] = 1
		case ge:
			coef[newCol(0)] = -1
		}
		rows = append(rows, pending{coef: coef, rhs: rhs})
	}

	for _, r := range rows {
		nonzero := false
		for _, v := range r.coef {
			if v != 0 {
				nonzero = true
				break
			}
		}
		if !nonzero {
			if math.Abs(r.rhs) > zeroTol {
				return nil, fmt.Errorf("%w: empty constraint with non-zero right-hand side %g", ErrInfeasible, r.rhs)
			}
			continue
		}
		dense := make([]float64, next)
		for k, v := range r.coef {
			dense[k] = v
		}
		rhs := r.rhs
		if rhs < 0 {
			for k := range dense {
				dense[k] = -dense[k]
			}
			rhs = -rhs
		}
		sf.a = append(sf.a, dense)
		sf.b = append(sf.b, rhs)
	}
	return sf, nil
}

// solve runs the simplex and maps the solution back onto problem variables.
// Values within zeroTol of zero are reported as exact zeros.
func (p *problem) solve() (float64, []float64, error) {
	sf, err := p.toStandard()
	if err != nil {
		return 0, nil, err
	}

	y, err := simplex(sf.c, sf.a, sf.b)
	if err != nil {
		return 0, nil, err
	}

	objective := sf.offset
	out := make([]float64, len(p.cost))
	for j, col := range sf.cols {
		v := col.offset + col.sign*y[col.pos]
		if col.neg >= 0 {
			v -= y[col.neg]
		}
		if math.Abs(v) <= zeroTol {
			v = 0
		}
		out[j] = v
	}
	for k, ck := range sf.c {
		objective += ck * y[k]
	}
	return objective, out, nil
}
