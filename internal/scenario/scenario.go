// Package scenario builds ready-to-solve arbitrage networks.
//
// Two presets reproduce the reference setups: a two-bus grid/battery network
// (single_bus) and a hub topology where grid, battery and solar meet at a
// control bus (control_hub). A custom scenario takes an explicit network.
// In every case two generators on the grid side stand in for the market
// channels: their marginal cost is the channel price series and the solver
// dispatches them to cover a large constant load (the baseline).
package scenario

import (
	"errors"
	"fmt"

	"grid-arbitrage/internal/model"
)

var ErrInvalidScenario = errors.New("invalid scenario")

type Kind string

const (
	KindSingleBus  Kind = "single_bus"
	KindControlHub Kind = "control_hub"
	KindCustom     Kind = "custom"
)

// Scenario is an immutable bundle of everything a run needs.
type Scenario struct {
	Name    string
	Kind    Kind
	Network model.Network
	// ChannelA and ChannelB are the two market channels, in output order.
	ChannelA model.MarketChannel
	ChannelB model.MarketChannel
	// Baseline is the constant load both channels jointly cover.
	Baseline float64
	// Store is the storage unit reported in the ledger. May be empty.
	Store string
}

// Validate checks that the scenario is internally consistent.
func (s *Scenario) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: scenario is nil", ErrInvalidScenario)
	}
	if err := s.Network.Validate(); err != nil {
		return err
	}
	n := s.Network.Snapshots
	for _, c := range []model.MarketChannel{s.ChannelA, s.ChannelB} {
		if err := c.Validate(n); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
		}
		if _, ok := s.Network.Generator(c.Generator); !ok {
			return fmt.Errorf("%w: channel %q references unknown generator %q", ErrInvalidScenario, c.Name, c.Generator)
		}
	}
	if s.ChannelA.Generator == s.ChannelB.Generator {
		return fmt.Errorf("%w: both channels use generator %q", ErrInvalidScenario, s.ChannelA.Generator)
	}
	if s.ChannelA.Name == s.ChannelB.Name {
		return fmt.Errorf("%w: duplicate channel name %q", ErrInvalidScenario, s.ChannelA.Name)
	}
	if s.Store != "" {
		if _, ok := s.Network.Store(s.Store); !ok {
			return fmt.Errorf("%w: unknown store %q", ErrInvalidScenario, s.Store)
		}
	}
	return nil
}

// Build dispatches on kind. p is ignored for KindCustom and custom is
// ignored otherwise. A non-empty name replaces the preset name.
func Build(name string, kind Kind, p Params, custom CustomInput) (*Scenario, error) {
	var (
		sc  *Scenario
		err error
	)
	switch kind {
	case KindSingleBus:
		sc, err = SingleBus(p)
	case KindControlHub:
		sc, err = ControlHub(p)
	case KindCustom:
		sc, err = Custom(custom)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidScenario, kind)
	}
	if err != nil {
		return nil, err
	}
	if name != "" {
		sc.Name = name
		sc.Network.Name = name
	}
	return sc, nil
}

// CustomInput describes an explicit network and its channel bindings.
type CustomInput struct {
	Network  model.Network
	Channels []model.MarketChannel
	// Baseline of 0 means the total load at the first snapshot.
	Baseline float64
	Store    string
}

// Custom builds a scenario around an explicit network. Each channel's prices
// become the marginal cost of its generator.
func Custom(in CustomInput) (*Scenario, error) {
	if len(in.Channels) != 2 {
		return nil, fmt.Errorf("%w: exactly 2 channels are required, got %d", ErrInvalidScenario, len(in.Channels))
	}
	net := cloneNetwork(in.Network)
	for _, c := range in.Channels {
		found := false
		for i := range net.Generators {
			if net.Generators[i].Name == c.Generator {
				net.Generators[i].MarginalCost = model.Of(c.Prices...)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: channel %q references unknown generator %q", ErrInvalidScenario, c.Name, c.Generator)
		}
	}

	baseline := in.Baseline
	if baseline == 0 {
		for _, l := range net.Loads {
			baseline += l.PSet.At(0)
		}
	}

	sc := &Scenario{
		Name:     net.Name,
		Kind:     KindCustom,
		Network:  net,
		ChannelA: cloneChannel(in.Channels[0]),
		ChannelB: cloneChannel(in.Channels[1]),
		Baseline: baseline,
		Store:    in.Store,
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func cloneChannel(c model.MarketChannel) model.MarketChannel {
	c.Prices = append([]float64(nil), c.Prices...)
	return c
}

func cloneNetwork(n model.Network) model.Network {
	out := n
	out.Buses = append([]model.Bus(nil), n.Buses...)
	out.Generators = append([]model.Generator(nil), n.Generators...)
	out.Loads = append([]model.Load(nil), n.Loads...)
	out.Stores = append([]model.Store(nil), n.Stores...)
	out.Links = append([]model.Link(nil), n.Links...)
	return out
}
