// Package report renders runs and price statistics as terminal tables.
package report

import (
	"fmt"
	"io"

	"grid-arbitrage/internal/analysis"
	"grid-arbitrage/internal/arbitrage"

	"github.com/olekukonko/tablewriter"
)

// Ledger prints one row per period followed by the run totals.
func Ledger(w io.Writer, res *arbitrage.Result) {
	fmt.Fprintf(w, "\n[%s] %d periods, run %s\n", res.Scenario, len(res.Ledger), res.RunID)

	table := tablewriter.NewWriter(w)
	table.Header("#", "Store MW", "Store MWh", "Action",
		res.ChannelA+" MW", res.ChannelA+" €", res.ChannelA+" inc",
		res.ChannelB+" MW", res.ChannelB+" €", res.ChannelB+" inc",
		"Income", "Cum")

	for _, r := range res.Ledger {
		table.Append(
			fmt.Sprintf("%d", r.Index),
			fmt.Sprintf("%.2f", r.StorePowerMW),
			fmt.Sprintf("%.2f", r.StoreEnergyMWh),
			string(r.Action),
			fmt.Sprintf("%.2f", r.A.NetMW),
			fmt.Sprintf("%.2f", r.A.Price),
			fmt.Sprintf("%.2f", r.A.Income),
			fmt.Sprintf("%.2f", r.B.NetMW),
			fmt.Sprintf("%.2f", r.B.Price),
			fmt.Sprintf("%.2f", r.B.Income),
			fmt.Sprintf("%.2f", r.Income),
			fmt.Sprintf("%.2f", r.CumIncome),
		)
	}
	table.Render()

	Totals(w, res)
}

// Totals prints the aggregate figures of a run.
func Totals(w io.Writer, res *arbitrage.Result) {
	fmt.Fprintf(w, "  Baseline:        %.2f MW\n", res.Baseline)
	fmt.Fprintf(w, "  Objective:       %.2f\n", res.Objective)
	fmt.Fprintf(w, "  Income %-9s %.2f\n", res.ChannelA+":", res.IncomeA)
	fmt.Fprintf(w, "  Income %-9s %.2f\n", res.ChannelB+":", res.IncomeB)
	fmt.Fprintf(w, "  Total income:    %.2f\n", res.TotalIncome)
	fmt.Fprintf(w, "  Charged:         %.2f MWh\n", res.ChargedMWh)
	fmt.Fprintf(w, "  Discharged:      %.2f MWh\n", res.DischargedMWh)
	fmt.Fprintf(w, "  Final energy:    %.2f MWh\n", res.FinalEnergyMWh)
}

// Ranking prints runs ordered by total income.
func Ranking(w io.Writer, ranked []analysis.RankedRun) {
	table := tablewriter.NewWriter(w)
	table.Header("Rank", "Scenario", "Kind", "Periods", "Total", "Income A", "Income B", "Charged", "Discharged")
	for _, r := range ranked {
		table.Append(
			fmt.Sprintf("%d", r.Rank),
			r.Scenario,
			r.Kind,
			fmt.Sprintf("%d", r.Periods),
			fmt.Sprintf("%.2f", r.TotalIncome),
			fmt.Sprintf("%.2f", r.IncomeA),
			fmt.Sprintf("%.2f", r.IncomeB),
			fmt.Sprintf("%.2f", r.ChargedMWh),
			fmt.Sprintf("%.2f", r.DischargedMWh),
		)
	}
	table.Render()
}

// Stats prints per-channel price statistics.
func Stats(w io.Writer, stats []analysis.PriceStats) {
	table := tablewriter.NewWriter(w)
	table.Header("Channel", "Count", "Min", "Max", "Mean", "P05", "P95", "P95-P05", "Neg", "Oracle")
	for _, s := range stats {
		table.Append(
			s.Channel,
			fmt.Sprintf("%d", s.Count),
			fmt.Sprintf("%.2f", s.Min),
			fmt.Sprintf("%.2f", s.Max),
			fmt.Sprintf("%.2f", s.Mean),
			fmt.Sprintf("%.2f", s.P05),
			fmt.Sprintf("%.2f", s.P95),
			fmt.Sprintf("%.2f", s.SpreadP95P05),
			fmt.Sprintf("%d", s.NegativePeriods),
			fmt.Sprintf("%.2f", s.OracleProfit),
		)
	}
	table.Render()
	fmt.Fprintln(w, "  Oracle = 1 MW / 1 MWh store, perfect foresight, starts empty")
}

// Spread prints the cross-channel comparison.
func Spread(w io.Writer, s analysis.Spread) {
	fmt.Fprintf(w, "\n  --- %s vs %s ---\n", s.ChannelB, s.ChannelA)
	fmt.Fprintf(w, "  Mean spread:        %.2f\n", s.Mean)
	fmt.Fprintf(w, "  Max |spread|:       %.2f\n", s.MaxAbs)
	fmt.Fprintf(w, "  %s cheaper:  %d periods\n", s.ChannelA, s.CheaperA)
	fmt.Fprintf(w, "  %s cheaper:  %d periods\n", s.ChannelB, s.CheaperB)
	fmt.Fprintf(w, "  Oracle on cheapest: %.2f\n", s.CheapestProfit)
}
