package analysis

import (
	"fmt"
	"math"
	"sort"

	"grid-arbitrage/internal/model"
)

// PriceStats is a channel-level summary you can use for ranking.
// It does not depend on a specific network; besides raw price stats it
// includes an "oracle" profit for a canonical 1 MW / 1 MWh store.
type PriceStats struct {
	Channel string `json:"channel"`
	Count   int    `json:"count"`

	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	P05  float64 `json:"p05"`
	P95  float64 `json:"p95"`

	SpreadP95P05 float64 `json:"spread_p95_p05"`
	// NegativePeriods counts periods where the channel pays for consumption.
	NegativePeriods int `json:"negative_periods"`

	// OracleProfit is the profit from a canonical store trading this channel
	// alone with perfect foresight:
	// - 1 MW power, 1 MWh energy, hourly periods
	// - 100% efficiency, starts empty
	// - dispatch choices {-1, 0, +1} MW each period
	OracleProfit float64 `json:"oracle_profit"`
}

func ComputeStats(ch model.MarketChannel) PriceStats {
	p := PriceStats{Channel: ch.Name}
	if len(ch.Prices) == 0 {
		return p
	}
	p.Count = len(ch.Prices)

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(ch.Prices))
	for _, v := range ch.Prices {
		vals = append(vals, v)
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
		if v < 0 {
			p.NegativePeriods++
		}
	}
	sort.Float64s(vals)
	p.Min = minv
	p.Max = maxv
	p.Mean = sum / float64(len(vals))
	p.P05 = percentileSorted(vals, 0.05)
	p.P95 = percentileSorted(vals, 0.95)
	p.SpreadP95P05 = p.P95 - p.P05

	p.OracleProfit = OracleProfit(ch.Prices, 1)
	return p
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// OracleProfit is the best profit of a 1 MW store holding up to hours MWh,
// starting empty, on hourly prices. Exact DP over whole-MWh states.
func OracleProfit(prices []float64, hours int) float64 {
	if len(prices) == 0 || hours < 1 {
		return 0
	}
	negInf := math.Inf(-1)
	dp := make([]float64, hours+1)
	next := make([]float64, hours+1)
	for i := range dp {
		dp[i] = negInf
	}
	dp[0] = 0

	for _, price := range prices {
		for i := range next {
			next[i] = negInf
		}
		for soc := 0; soc <= hours; soc++ {
			if math.IsInf(dp[soc], -1) {
				continue
			}
			// Idle
			next[soc] = math.Max(next[soc], dp[soc])
			// Charge: buy 1 MWh.
			if soc < hours {
				next[soc+1] = math.Max(next[soc+1], dp[soc]-price)
			}
			// Discharge: sell 1 MWh.
			if soc > 0 {
				next[soc-1] = math.Max(next[soc-1], dp[soc]+price)
			}
		}
		dp, next = next, dp
	}

	best := negInf
	for _, v := range dp {
		best = math.Max(best, v)
	}
	return best
}

// Spread compares two channels period by period (B minus A).
type Spread struct {
	ChannelA string `json:"channel_a"`
	ChannelB string `json:"channel_b"`

	Mean   float64 `json:"mean"`
	MaxAbs float64 `json:"max_abs"`
	// CheaperA and CheaperB count the periods where each channel is strictly
	// cheaper; the rest are ties.
	CheaperA int `json:"cheaper_a"`
	CheaperB int `json:"cheaper_b"`
	// CheapestProfit is the oracle profit on the per-period cheaper price,
	// i.e. what the canonical store earns if it may buy on either channel
	// and sell on either channel at that same price.
	CheapestProfit float64 `json:"cheapest_profit"`
}

// CrossChannelSpread summarizes the price difference between two channels.
func CrossChannelSpread(a, b model.MarketChannel) (Spread, error) {
	if len(a.Prices) != len(b.Prices) {
		return Spread{}, fmt.Errorf("channel %q has %d prices, %q has %d", a.Name, len(a.Prices), b.Name, len(b.Prices))
	}
	s := Spread{ChannelA: a.Name, ChannelB: b.Name}
	if len(a.Prices) == 0 {
		return s, nil
	}
	cheapest := make([]float64, len(a.Prices))
	sum := 0.0
	for i := range a.Prices {
		d := b.Prices[i] - a.Prices[i]
		sum += d
		s.MaxAbs = math.Max(s.MaxAbs, math.Abs(d))
		switch {
		case d > 0:
			s.CheaperA++
		case d < 0:
			s.CheaperB++
		}
		cheapest[i] = math.Min(a.Prices[i], b.Prices[i])
	}
	s.Mean = sum / float64(len(a.Prices))
	s.CheapestProfit = OracleProfit(cheapest, 1)
	return s, nil
}
