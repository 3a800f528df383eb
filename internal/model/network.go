package model

import (
	"errors"
	"fmt"
)

// ErrInvalidNetwork is wrapped by every Network validation failure.
var ErrInvalidNetwork = errors.New("invalid network")

// Network is a complete, immutable description of a small power system over
// a fixed number of snapshots. It is built once and handed to the solver as a
// single value.
//
// Units:
// - power: MW
// - energy: MWh (one snapshot = one hour)
// - costs: currency/MWh (marginal) and currency/MW (capital)
//
// Sign conventions follow the usual linear power-flow model: generators and
// stores inject into their bus (store power > 0 = discharging), loads withdraw,
// links withdraw p0 at Bus0 and inject Efficiency*p0 at Bus1.
type Network struct {
	Name       string      `yaml:"name" json:"name"`
	Snapshots  int         `yaml:"snapshots" json:"snapshots"`
	Buses      []Bus       `yaml:"buses" json:"buses"`
	Generators []Generator `yaml:"generators" json:"generators"`
	Loads      []Load      `yaml:"loads" json:"loads"`
	Stores     []Store     `yaml:"stores" json:"stores"`
	Links      []Link      `yaml:"links" json:"links"`
}

type Bus struct {
	Name string `yaml:"name" json:"name"`
}

// Generator is a dispatchable (or availability-limited) source.
// A zero scalar PMaxPU means the default of 1. PNomMax = 0 means unbounded.
type Generator struct {
	Name           string  `yaml:"name" json:"name"`
	Bus            string  `yaml:"bus" json:"bus"`
	PNom           float64 `yaml:"p_nom" json:"p_nom"`
	PNomExtendable bool    `yaml:"p_nom_extendable" json:"p_nom_extendable"`
	PNomMin        float64 `yaml:"p_nom_min" json:"p_nom_min"`
	PNomMax        float64 `yaml:"p_nom_max" json:"p_nom_max"`
	CapitalCost    float64 `yaml:"capital_cost" json:"capital_cost"`
	MarginalCost   Series  `yaml:"marginal_cost" json:"marginal_cost"`
	PMinPU         Series  `yaml:"p_min_pu" json:"p_min_pu"`
	PMaxPU         Series  `yaml:"p_max_pu" json:"p_max_pu"`
}

// MaxPU returns the availability curve with defaults applied.
func (g Generator) MaxPU() Series {
	if !g.PMaxPU.IsVarying() && g.PMaxPU.Scalar == 0 {
		return Const(1)
	}
	return g.PMaxPU
}

// Load is a fixed, inelastic withdrawal.
type Load struct {
	Name string `yaml:"name" json:"name"`
	Bus  string `yaml:"bus" json:"bus"`
	PSet Series `yaml:"p_set" json:"p_set"`
}

// Store is an energy reservoir with unconstrained power.
// A zero EMaxPU means the default of 1.
type Store struct {
	Name         string  `yaml:"name" json:"name"`
	Bus          string  `yaml:"bus" json:"bus"`
	ENom         float64 `yaml:"e_nom" json:"e_nom"`
	EMinPU       float64 `yaml:"e_min_pu" json:"e_min_pu"`
	EMaxPU       float64 `yaml:"e_max_pu" json:"e_max_pu"`
	EInitial     float64 `yaml:"e_initial" json:"e_initial"`
	ECyclic      bool    `yaml:"e_cyclic" json:"e_cyclic"`
	StandingLoss float64 `yaml:"standing_loss" json:"standing_loss"`
	MarginalCost Series  `yaml:"marginal_cost" json:"marginal_cost"`
}

// MaxPU returns the upper energy fraction with defaults applied.
func (s Store) MaxPU() float64 {
	if s.EMaxPU == 0 {
		return 1
	}
	return s.EMaxPU
}

// Link is a directed, lossy connection between two buses.
// PMinPU = -1 allows full reverse flow. Zero PMaxPU and Efficiency mean 1.
type Link struct {
	Name         string  `yaml:"name" json:"name"`
	Bus0         string  `yaml:"bus0" json:"bus0"`
	Bus1         string  `yaml:"bus1" json:"bus1"`
	PNom         float64 `yaml:"p_nom" json:"p_nom"`
	PMinPU       float64 `yaml:"p_min_pu" json:"p_min_pu"`
	PMaxPU       float64 `yaml:"p_max_pu" json:"p_max_pu"`
	Efficiency   float64 `yaml:"efficiency" json:"efficiency"`
	MarginalCost Series  `yaml:"marginal_cost" json:"marginal_cost"`
}

func (l Link) MaxPU() float64 {
	if l.PMaxPU == 0 {
		return 1
	}
	return l.PMaxPU
}

func (l Link) Eff() float64 {
	if l.Efficiency == 0 {
		return 1
	}
	return l.Efficiency
}

// Validate checks structural consistency. It does not check feasibility;
// that is the solver's job.
func (n *Network) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: network is nil", ErrInvalidNetwork)
	}
	if n.Snapshots <= 0 {
		return fmt.Errorf("%w: snapshots must be > 0", ErrInvalidNetwork)
	}
	if len(n.Buses) == 0 {
		return fmt.Errorf("%w: at least one bus is required", ErrInvalidNetwork)
	}

	buses := make(map[string]bool, len(n.Buses))
	for _, b := range n.Buses {
		if b.Name == "" {
			return fmt.Errorf("%w: bus name is required", ErrInvalidNetwork)
		}
		if buses[b.Name] {
			return fmt.Errorf("%w: duplicate bus %q", ErrInvalidNetwork, b.Name)
		}
		buses[b.Name] = true
	}

	names := map[string]bool{}
	component := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%w: %s name is required", ErrInvalidNetwork, kind)
		}
		if names[kind+"/"+name] {
			return fmt.Errorf("%w: duplicate %s %q", ErrInvalidNetwork, kind, name)
		}
		names[kind+"/"+name] = true
		return nil
	}
	onBus := func(kind, name, bus string) error {
		if !buses[bus] {
			return fmt.Errorf("%w: %s %q references unknown bus %q", ErrInvalidNetwork, kind, name, bus)
		}
		return nil
	}
	wrap := func(kind, name string, err error) error {
		if err == nil {
			return nil
		}
		return fmt.Errorf("%w: %s %q: %v", ErrInvalidNetwork, kind, name, err)
	}

	for _, g := range n.Generators {
		if err := component("generator", g.Name); err != nil {
			return err
		}
		if err := onBus("generator", g.Name, g.Bus); err != nil {
			return err
		}
		if g.PNom < 0 || g.PNomMin < 0 || g.PNomMax < 0 {
			return wrap("generator", g.Name, errors.New("capacities must be >= 0"))
		}
		if g.PNomExtendable && g.PNomMax > 0 && g.PNomMin > g.PNomMax {
			return wrap("generator", g.Name, errors.New("p_nom_min must be <= p_nom_max"))
		}
		for _, err := range []error{
			g.MarginalCost.checkLen(n.Snapshots, "marginal_cost"),
			g.PMinPU.checkLen(n.Snapshots, "p_min_pu"),
			g.PMaxPU.checkLen(n.Snapshots, "p_max_pu"),
			g.MaxPU().checkRange(0, 1, "p_max_pu"),
			g.PMinPU.checkRange(-1, 1, "p_min_pu"),
		} {
			if err != nil {
				return wrap("generator", g.Name, err)
			}
		}
		for t := 0; t < n.Snapshots; t++ {
			if g.PMinPU.At(t) > g.MaxPU().At(t) {
				return wrap("generator", g.Name, fmt.Errorf("p_min_pu exceeds p_max_pu at snapshot %d", t))
			}
		}
	}

	for _, l := range n.Loads {
		if err := component("load", l.Name); err != nil {
			return err
		}
		if err := onBus("load", l.Name, l.Bus); err != nil {
			return err
		}
		if err := l.PSet.checkLen(n.Snapshots, "p_set"); err != nil {
			return wrap("load", l.Name, err)
		}
	}

	for _, s := range n.Stores {
		if err := component("store", s.Name); err != nil {
			return err
		}
		if err := onBus("store", s.Name, s.Bus); err != nil {
			return err
		}
		if s.ENom < 0 {
			return wrap("store", s.Name, errors.New("e_nom must be >= 0"))
		}
		if s.EMinPU < 0 || s.EMinPU > s.MaxPU() || s.MaxPU() > 1 {
			return wrap("store", s.Name, errors.New("e_min_pu/e_max_pu must satisfy 0<=e_min_pu<=e_max_pu<=1"))
		}
		if s.StandingLoss < 0 || s.StandingLoss >= 1 {
			return wrap("store", s.Name, errors.New("standing_loss must be in [0, 1)"))
		}
		if !s.ECyclic && (s.EInitial < s.EMinPU*s.ENom || s.EInitial > s.MaxPU()*s.ENom) {
			return wrap("store", s.Name, errors.New("e_initial must lie within the energy bounds"))
		}
		if err := s.MarginalCost.checkLen(n.Snapshots, "marginal_cost"); err != nil {
			return wrap("store", s.Name, err)
		}
	}

	for _, l := range n.Links {
		if err := component("link", l.Name); err != nil {
			return err
		}
		if err := onBus("link", l.Name, l.Bus0); err != nil {
			return err
		}
		if err := onBus("link", l.Name, l.Bus1); err != nil {
			return err
		}
		if l.Bus0 == l.Bus1 {
			return wrap("link", l.Name, errors.New("bus0 and bus1 must differ"))
		}
		if l.PNom < 0 {
			return wrap("link", l.Name, errors.New("p_nom must be >= 0"))
		}
		if l.PMinPU < -1 || l.PMinPU > l.MaxPU() || l.MaxPU() > 1 {
			return wrap("link", l.Name, errors.New("p_min_pu/p_max_pu must satisfy -1<=p_min_pu<=p_max_pu<=1"))
		}
		if e := l.Eff(); e <= 0 || e > 1 {
			return wrap("link", l.Name, errors.New("efficiency must be in (0, 1]"))
		}
		if err := l.MarginalCost.checkLen(n.Snapshots, "marginal_cost"); err != nil {
			return wrap("link", l.Name, err)
		}
	}

	return nil
}

// Generator looks up a generator by name.
func (n *Network) Generator(name string) (Generator, bool) {
	for _, g := range n.Generators {
		if g.Name == name {
			return g, true
		}
	}
	return Generator{}, false
}

// Store looks up a store by name.
func (n *Network) Store(name string) (Store, bool) {
	for _, s := range n.Stores {
		if s.Name == name {
			return s, true
		}
	}
	return Store{}, false
}
