package analysis

import (
	"sort"

	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/model"
)

type RankedRun struct {
	Rank int `json:"rank"`
	arbitrage.Summary
}

// RankByIncome sorts run summaries descending by total income. Ties keep
// their input order.
func RankByIncome(runs []arbitrage.Summary) []RankedRun {
	out := make([]RankedRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, RankedRun{Summary: r})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalIncome > out[j].TotalIncome
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// RankByOracleProfit computes stats per channel and sorts descending by OracleProfit.
func RankByOracleProfit(channels []model.MarketChannel) []PriceStats {
	out := make([]PriceStats, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ComputeStats(ch))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OracleProfit > out[j].OracleProfit
	})
	return out
}
