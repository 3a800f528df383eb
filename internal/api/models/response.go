package models

import (
	"grid-arbitrage/internal/analysis"
	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/scenario"
)

// RunResponse represents the response from an arbitrage run
type RunResponse struct {
	ID      string                `json:"id"`
	Status  string                `json:"status"`
	Summary arbitrage.Summary     `json:"summary"`
	Ledger  []arbitrage.LedgerRow `json:"ledger,omitempty"`
}

// CompareResponse ranks the variations by total income
type CompareResponse struct {
	Comparison []analysis.RankedRun `json:"comparison"`
}

// LedgerResponse is a stored run's ledger
type LedgerResponse struct {
	RunID  string                `json:"run_id"`
	Ledger []arbitrage.LedgerRow `json:"ledger"`
}

// RunsResponse lists stored runs, newest first
type RunsResponse struct {
	Runs []arbitrage.Summary `json:"runs"`
}

// ScenariosResponse lists built-in presets and scenario files
type ScenariosResponse struct {
	Presets []scenario.Preset `json:"presets"`
	Files   []ScenarioInfo    `json:"files"`
}

// ScenarioInfo represents information about a scenario file
type ScenarioInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	File   string `json:"file"`
	Preset string `json:"preset"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RankResponse ranks a scenario's market channels by oracle profit
type RankResponse struct {
	Scenario string                `json:"scenario"`
	Rankings []analysis.PriceStats `json:"rankings"`
	Spread   analysis.Spread       `json:"spread"`
}
