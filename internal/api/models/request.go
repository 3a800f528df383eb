package models

import "grid-arbitrage/internal/config"

// RunRequest represents the request body for an arbitrage run
type RunRequest struct {
	// ScenarioFile names a YAML file in the server's scenario directory.
	// Fields set in Scenario override the file.
	ScenarioFile string                `json:"scenario_file,omitempty"`
	Scenario     config.ScenarioConfig `json:"scenario"`
	Options      RunOptions            `json:"options,omitempty"`
}

// RunOptions contains optional run parameters
type RunOptions struct {
	IncludeLedger bool `json:"include_ledger,omitempty"` // default: false
}

// CompareRequest runs several variations of one base scenario
type CompareRequest struct {
	ScenarioFile string                `json:"scenario_file,omitempty"`
	Base         config.ScenarioConfig `json:"base"`
	Variations   []Variation           `json:"variations" binding:"required,min=1,max=20,dive"`
}

// Variation defines one scenario override to compare
type Variation struct {
	Name     string                `json:"name" binding:"required"`
	Scenario config.ScenarioConfig `json:"scenario"`
}

// ListRunsRequest holds the query parameters of GET /api/v1/runs
type ListRunsRequest struct {
	Limit int `form:"limit,omitempty" binding:"omitempty,min=1,max=500"` // default: 50
}

// RankRequest holds the query parameters of GET /api/v1/rank
type RankRequest struct {
	ScenarioFile string `form:"scenario_file,omitempty"` // default: built-in single_bus prices
}
