// Package income turns optimizer dispatch into per-period market income.
//
// For each market channel the dispatched power is referenced to the constant
// inelastic load (the baseline) that both channels jointly cover:
//
//	net[t]    = P[t] - B        (0 when the channel is idle at t)
//	income[t] = net[t] * -price[t]
//
// The two channels are summed per period and accumulated in index order.
package income

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrLengthMismatch = errors.New("income: series length mismatch")
	ErrNoPeriods      = errors.New("income: no periods")
)

// Channel is one market channel's raw dispatch and prices.
type Channel struct {
	Name   string
	Power  []float64
	Prices []float64
	// Idle marks periods where the optimizer dispatched nothing on this
	// channel. When nil it is derived from Power with Options.IdleTolerance.
	Idle []bool
}

type Options struct {
	// Baseline is the constant load level subtracted from each channel.
	Baseline float64
	// IdleTolerance is used only when a channel carries no Idle flags:
	// |P[t]| <= IdleTolerance counts as idle. Zero means exact zero.
	IdleTolerance float64
}

// ChannelIncome is the derived series for one channel.
type ChannelIncome struct {
	Name   string
	Net    []float64
	Income []float64
}

// Derivation is the full output, aligned by period index.
type Derivation struct {
	A, B       ChannelIncome
	Combined   []float64
	Cumulative []float64
}

// Periods is the number of periods N.
func (d *Derivation) Periods() int { return len(d.Cumulative) }

// Total is the cumulative income at the last period.
func (d *Derivation) Total() float64 {
	if len(d.Cumulative) == 0 {
		return 0
	}
	return d.Cumulative[len(d.Cumulative)-1]
}

// Derive computes net power, per-channel income and cumulative combined
// income. Lengths are validated before any arithmetic.
func Derive(a, b Channel, opts Options) (*Derivation, error) {
	n := len(a.Power)
	if err := validate(n, a, b); err != nil {
		return nil, err
	}

	ia := channelIncome(a, opts)
	ib := channelIncome(b, opts)

	combined := make([]float64, n)
	cumulative := make([]float64, n)
	sum := 0.0
	for t := 0; t < n; t++ {
		combined[t] = ia.Income[t] + ib.Income[t]
		sum += combined[t]
		cumulative[t] = sum
	}

	return &Derivation{
		A:          ia,
		B:          ib,
		Combined:   combined,
		Cumulative: cumulative,
	}, nil
}

func validate(n int, a, b Channel) error {
	if n == 0 {
		return ErrNoPeriods
	}
	check := func(what string, got int) error {
		if got != n {
			return fmt.Errorf("%w: %s has %d periods, expected %d", ErrLengthMismatch, what, got, n)
		}
		return nil
	}
	for _, c := range []struct {
		what string
		got  int
		skip bool
	}{
		{what: label(b, "power"), got: len(b.Power)},
		{what: label(a, "prices"), got: len(a.Prices)},
		{what: label(b, "prices"), got: len(b.Prices)},
		{what: label(a, "idle flags"), got: len(a.Idle), skip: a.Idle == nil},
		{what: label(b, "idle flags"), got: len(b.Idle), skip: b.Idle == nil},
	} {
		if c.skip {
			continue
		}
		if err := check(c.what, c.got); err != nil {
			return err
		}
	}
	return nil
}

func label(c Channel, what string) string {
	if c.Name == "" {
		return what
	}
	return c.Name + " " + what
}

func channelIncome(c Channel, opts Options) ChannelIncome {
	n := len(c.Power)
	out := ChannelIncome{
		Name:   c.Name,
		Net:    make([]float64, n),
		Income: make([]float64, n),
	}
	for t := 0; t < n; t++ {
		var idle bool
		if c.Idle != nil {
			idle = c.Idle[t]
		} else {
			idle = math.Abs(c.Power[t]) <= opts.IdleTolerance
		}
		if idle {
			// Net and income stay zero.
			continue
		}
		out.Net[t] = c.Power[t] - opts.Baseline
		out.Income[t] = out.Net[t] * -c.Prices[t]
	}
	return out
}
