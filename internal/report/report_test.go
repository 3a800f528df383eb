package report

import (
	"bytes"
	"testing"

	"grid-arbitrage/internal/analysis"
	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/model"

	"github.com/stretchr/testify/assert"
)

func sampleResult() *arbitrage.Result {
	return &arbitrage.Result{
		RunID:       "run-1",
		Scenario:    "two_period",
		ChannelA:    "epex",
		ChannelB:    "intraday",
		Baseline:    1000,
		Objective:   5996,
		TotalIncome: 4,
		IncomeA:     -4,
		IncomeB:     8,
		ChargedMWh:  2,
		Ledger: []arbitrage.LedgerRow{
			{Index: 0, StorePowerMW: -2, StoreEnergyMWh: 2, Action: model.ActionCharging,
				A: arbitrage.ChannelRow{DispatchMW: 1002, Price: 2, NetMW: 2, Income: -4},
				Income: -4, CumIncome: -4},
			{Index: 1, StorePowerMW: 2, Action: model.ActionDischarging,
				B:      arbitrage.ChannelRow{DispatchMW: 998, Price: 4, NetMW: -2, Income: 8},
				Income: 8, CumIncome: 4},
		},
	}
}

func TestLedger(t *testing.T) {
	var buf bytes.Buffer
	Ledger(&buf, sampleResult())
	out := buf.String()

	assert.Contains(t, out, "two_period")
	assert.Contains(t, out, "CHARGING")
	assert.Contains(t, out, "DISCHARGING")
	assert.Contains(t, out, "-4.00")
	assert.Contains(t, out, "Total income:    4.00")
}

func TestRanking(t *testing.T) {
	var buf bytes.Buffer
	ranked := analysis.RankByIncome([]arbitrage.Summary{
		{Scenario: "low", TotalIncome: 1},
		{Scenario: "high", TotalIncome: 9},
	})
	Ranking(&buf, ranked)
	out := buf.String()

	assert.Less(t, bytes.Index(buf.Bytes(), []byte("high")), bytes.Index(buf.Bytes(), []byte("low")))
	assert.Contains(t, out, "9.00")
}

func TestStatsAndSpread(t *testing.T) {
	a := model.MarketChannel{Name: "epex", Prices: []float64{1, 5}}
	b := model.MarketChannel{Name: "intraday", Prices: []float64{2, 3}}

	var buf bytes.Buffer
	Stats(&buf, analysis.RankByOracleProfit([]model.MarketChannel{a, b}))
	s, err := analysis.CrossChannelSpread(a, b)
	assert.NoError(t, err)
	Spread(&buf, s)

	out := buf.String()
	assert.Contains(t, out, "epex")
	assert.Contains(t, out, "intraday")
	assert.Contains(t, out, "Oracle on cheapest: 2.00")
}
