package arbitrage

import (
	"time"

	"grid-arbitrage/internal/lopf"
	"grid-arbitrage/internal/model"
)

// ChannelRow is one market channel's share of a ledger row.
type ChannelRow struct {
	DispatchMW float64 `json:"dispatch_mw"`
	Price      float64 `json:"price"`
	NetMW      float64 `json:"net_mw"`
	Income     float64 `json:"income"`
}

// LedgerRow is one row of per-period output.
// This is the primary artifact for "what happened" in a run.
type LedgerRow struct {
	Index int `json:"index"`

	StorePowerMW   float64      `json:"store_power_mw"`
	StoreEnergyMWh float64      `json:"store_energy_mwh"`
	Action         model.Action `json:"action"`

	A ChannelRow `json:"channel_a"`
	B ChannelRow `json:"channel_b"`

	Income    float64 `json:"income"`
	CumIncome float64 `json:"cum_income"`
}

type Result struct {
	RunID    string
	Scenario string
	Kind     string
	ChannelA string
	ChannelB string
	Baseline float64

	Objective float64
	Ledger    []LedgerRow

	TotalIncome float64
	IncomeA     float64
	IncomeB     float64

	ChargedMWh     float64
	DischargedMWh  float64
	FinalEnergyMWh float64

	CreatedAt time.Time

	// Dispatch is the full optimal operating point.
	Dispatch *lopf.Result
}

type Summary struct {
	RunID          string    `json:"run_id"`
	Scenario       string    `json:"scenario"`
	Kind           string    `json:"kind"`
	Periods        int       `json:"periods"`
	Objective      float64   `json:"objective"`
	TotalIncome    float64   `json:"total_income"`
	IncomeA        float64   `json:"income_a"`
	IncomeB        float64   `json:"income_b"`
	ChargedMWh     float64   `json:"charged_mwh"`
	DischargedMWh  float64   `json:"discharged_mwh"`
	FinalEnergyMWh float64   `json:"final_energy_mwh"`
	CreatedAt      time.Time `json:"created_at"`
}
