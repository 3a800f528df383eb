package scenario

import (
	"fmt"

	"grid-arbitrage/internal/model"
)

// Reference inputs for both presets: 13 hourly periods.
var (
	defaultEPEXPrices  = []float64{0, 2, 4, 8, 10, 8, 6, 4, 2, 0, 2, 4, 8}
	defaultIntraPrices = []float64{-3, 1, 5, -12, 6, 3, 1, -4, 8, 3, 2, 1, 7}

	defaultSolarSingleBus  = []float64{0, 0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.4, 0.3, 0.2, 0.1, 0, 0}
	defaultSolarControlHub = []float64{0, 0, 0.1, 0.3, 0.5, 0.7, 1, 0.7, 0.5, 0.3, 0.1, 0, 0}
)

// Component names shared by the presets.
const (
	GridBus    = "GridBus"
	BatteryBus = "BatteryBus"
	ControlBus = "ControlBus"
	SolarBus   = "SolarBus"
	LoadBus    = "LoadBus"

	EPEXGenerator  = "EPEXGenerator"
	IntraGenerator = "IntraGenerator"
	SolarGenerator = "Solar"
	SampleLoad     = "SampleLoad"
	Battery        = "Battery"

	ChannelEPEX     = "epex"
	ChannelIntraday = "intraday"
)

// Params tunes a preset. Zero values take the preset's reference value.
type Params struct {
	EPEXPrices  []float64 `yaml:"epex_prices" json:"epex_prices,omitempty"`
	IntraPrices []float64 `yaml:"intra_prices" json:"intra_prices,omitempty"`
	// SolarProfile is the per-period availability of the solar generator.
	SolarProfile []float64 `yaml:"solar_profile" json:"solar_profile,omitempty"`

	LoadMW float64 `yaml:"load_mw" json:"load_mw,omitempty"`
	// BatteryPowerMW rates the battery links; BatteryHours sets e_nom = power * hours.
	BatteryPowerMW float64 `yaml:"battery_power_mw" json:"battery_power_mw,omitempty"`
	BatteryHours   float64 `yaml:"battery_hours" json:"battery_hours,omitempty"`
	SolarMW        float64 `yaml:"solar_mw" json:"solar_mw,omitempty"`

	// control_hub only.
	GridConnectionMW  float64 `yaml:"grid_connection_mw" json:"grid_connection_mw,omitempty"`
	SolarConnectionMW float64 `yaml:"solar_connection_mw" json:"solar_connection_mw,omitempty"`
}

func (p Params) withDefaults(solarMW float64, solar []float64) Params {
	out := p
	out.EPEXPrices = orSeries(p.EPEXPrices, defaultEPEXPrices)
	out.IntraPrices = orSeries(p.IntraPrices, defaultIntraPrices)
	out.SolarProfile = orSeries(p.SolarProfile, solar)
	out.LoadMW = orValue(p.LoadMW, 1000)
	out.BatteryPowerMW = orValue(p.BatteryPowerMW, 2)
	out.BatteryHours = orValue(p.BatteryHours, 3)
	out.SolarMW = orValue(p.SolarMW, solarMW)
	out.GridConnectionMW = orValue(p.GridConnectionMW, 2)
	out.SolarConnectionMW = orValue(p.SolarConnectionMW, 4)
	return out
}

func (p Params) check() error {
	n := len(p.EPEXPrices)
	if len(p.IntraPrices) != n || len(p.SolarProfile) != n {
		return fmt.Errorf("%w: epex_prices (%d), intra_prices (%d) and solar_profile (%d) must have equal length",
			ErrInvalidScenario, n, len(p.IntraPrices), len(p.SolarProfile))
	}
	for name, v := range map[string]float64{
		"load_mw":             p.LoadMW,
		"battery_power_mw":    p.BatteryPowerMW,
		"battery_hours":       p.BatteryHours,
		"solar_mw":            p.SolarMW,
		"grid_connection_mw":  p.GridConnectionMW,
		"solar_connection_mw": p.SolarConnectionMW,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrInvalidScenario, name)
		}
	}
	return nil
}

func orSeries(v, def []float64) []float64 {
	if len(v) == 0 {
		v = def
	}
	return append([]float64(nil), v...)
}

func orValue(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// market returns the grid-side part shared by both presets: the two channel
// generators and the baseline load on GridBus.
func market(p Params) ([]model.Generator, model.Load) {
	gens := []model.Generator{
		{Name: EPEXGenerator, Bus: GridBus, PNomExtendable: true, MarginalCost: model.Of(p.EPEXPrices...)},
		{Name: IntraGenerator, Bus: GridBus, PNomExtendable: true, MarginalCost: model.Of(p.IntraPrices...)},
	}
	load := model.Load{Name: SampleLoad, Bus: GridBus, PSet: model.Const(p.LoadMW)}
	return gens, load
}

func channels(p Params) (model.MarketChannel, model.MarketChannel) {
	return model.MarketChannel{Name: ChannelEPEX, Generator: EPEXGenerator, Prices: p.EPEXPrices},
		model.MarketChannel{Name: ChannelIntraday, Generator: IntraGenerator, Prices: p.IntraPrices}
}

// SingleBus builds the two-bus network: the grid bus with both channel
// generators and the load, and a battery bus with the store and solar,
// joined by one charging and one discharging link.
func SingleBus(p Params) (*Scenario, error) {
	p = p.withDefaults(10, defaultSolarSingleBus)
	if err := p.check(); err != nil {
		return nil, err
	}
	gens, load := market(p)
	gens = append(gens, model.Generator{
		Name:   SolarGenerator,
		Bus:    BatteryBus,
		PNom:   p.SolarMW,
		PMaxPU: model.Of(p.SolarProfile...),
	})

	net := model.Network{
		Name:       string(KindSingleBus),
		Snapshots:  len(p.EPEXPrices),
		Buses:      []model.Bus{{Name: GridBus}, {Name: BatteryBus}},
		Generators: gens,
		Loads:      []model.Load{load},
		Stores: []model.Store{
			{Name: Battery, Bus: BatteryBus, ENom: p.BatteryPowerMW * p.BatteryHours},
		},
		Links: []model.Link{
			{Name: "GridToBatteryLink", Bus0: GridBus, Bus1: BatteryBus, PNom: p.BatteryPowerMW, Efficiency: 1},
			{Name: "BatteryToGridLink", Bus0: BatteryBus, Bus1: GridBus, PNom: p.BatteryPowerMW, Efficiency: 1},
		},
	}
	return finish(KindSingleBus, net, p)
}

// ControlHub builds the hub network. Grid, battery and solar each hang off
// ControlBus: the grid link is bidirectional, the battery has one link per
// direction and solar can only export. LoadBus is part of the topology but
// carries nothing; the baseline load sits on GridBus.
func ControlHub(p Params) (*Scenario, error) {
	p = p.withDefaults(4, defaultSolarControlHub)
	if err := p.check(); err != nil {
		return nil, err
	}
	gens, load := market(p)
	gens = append(gens, model.Generator{
		Name:   SolarGenerator,
		Bus:    SolarBus,
		PNom:   p.SolarMW,
		PMaxPU: model.Of(p.SolarProfile...),
	})

	net := model.Network{
		Name:      string(KindControlHub),
		Snapshots: len(p.EPEXPrices),
		Buses: []model.Bus{
			{Name: ControlBus}, {Name: BatteryBus}, {Name: GridBus}, {Name: SolarBus}, {Name: LoadBus},
		},
		Generators: gens,
		Loads:      []model.Load{load},
		Stores: []model.Store{
			{Name: Battery, Bus: BatteryBus, ENom: p.BatteryPowerMW * p.BatteryHours},
		},
		Links: []model.Link{
			{Name: "ControlToGridLink", Bus0: ControlBus, Bus1: GridBus, PNom: p.GridConnectionMW, PMinPU: -1, Efficiency: 1},
			{Name: "ControlToBatteryLink", Bus0: ControlBus, Bus1: BatteryBus, PNom: p.BatteryPowerMW, Efficiency: 1},
			{Name: "BatteryToControl", Bus0: BatteryBus, Bus1: ControlBus, PNom: p.BatteryPowerMW, Efficiency: 1},
			{Name: "SolarToControl", Bus0: SolarBus, Bus1: ControlBus, PNom: p.SolarConnectionMW, Efficiency: 1},
		},
	}
	return finish(KindControlHub, net, p)
}

func finish(kind Kind, net model.Network, p Params) (*Scenario, error) {
	a, b := channels(p)
	sc := &Scenario{
		Name:     net.Name,
		Kind:     kind,
		Network:  net,
		ChannelA: a,
		ChannelB: b,
		Baseline: p.LoadMW,
		Store:    Battery,
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Preset describes a built-in scenario for listings.
type Preset struct {
	Kind        Kind   `json:"kind"`
	Description string `json:"description"`
	Buses       int    `json:"buses"`
	Snapshots   int    `json:"snapshots"`
}

// Presets lists the built-in scenarios with their reference parameters.
func Presets() []Preset {
	out := make([]Preset, 0, 2)
	for _, e := range []struct {
		kind  Kind
		desc  string
		build func(Params) (*Scenario, error)
	}{
		{KindSingleBus, "grid bus and battery bus joined by charge/discharge links; 6 MWh store, 10 MW solar on the battery bus", SingleBus},
		{KindControlHub, "grid, battery and solar around a control bus; bidirectional 2 MW grid link, 6 MWh store, 4 MW solar", ControlHub},
	} {
		sc, err := e.build(Params{})
		if err != nil {
			continue
		}
		out = append(out, Preset{
			Kind:        e.kind,
			Description: e.desc,
			Buses:       len(sc.Network.Buses),
			Snapshots:   sc.Network.Snapshots,
		})
	}
	return out
}
