package model

import "fmt"

// MarketChannel is one trading venue (e.g. day-ahead auction, intraday
// continuous) represented in the network by a generator whose marginal cost
// is the channel's price series.
type MarketChannel struct {
	Name      string    `yaml:"name" json:"name"`
	Generator string    `yaml:"generator" json:"generator"`
	Prices    []float64 `yaml:"prices" json:"prices"`
}

// Validate checks the channel against a snapshot count.
func (c MarketChannel) Validate(snapshots int) error {
	if c.Name == "" {
		return fmt.Errorf("channel name is required")
	}
	if c.Generator == "" {
		return fmt.Errorf("channel %q: generator is required", c.Name)
	}
	if len(c.Prices) != snapshots {
		return fmt.Errorf("channel %q: %d prices for %d snapshots", c.Name, len(c.Prices), snapshots)
	}
	return nil
}
