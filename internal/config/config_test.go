package config

import (
	"os"
	"path/filepath"
	"testing"

	"grid-arbitrage/internal/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "scenario:\n  preset: control_hub\n")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "control_hub", c.Scenario.Preset)
	assert.Equal(t, "8080", c.Server.Port)
	assert.Equal(t, "development", c.Server.Env)
	assert.Equal(t, []string{"*"}, c.Server.CORSOrigins)
	assert.Equal(t, 5.0, c.Server.RateLimit)
	assert.Equal(t, 10, c.Server.Burst)
	assert.Equal(t, "grid-arbitrage.db", c.Storage.DSN)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "console", c.Log.Format)
	assert.Equal(t, "examples/scenarios", c.ScenarioDir)
}

func TestLoad_EmptyScenarioDefaultsToSingleBus(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "log:\n  level: debug\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "single_bus", c.Scenario.Preset)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("API_PORT", "9090")
	t.Setenv("API_ENV", "production")
	t.Setenv("STORE_DSN", ":memory:")
	t.Setenv("SCENARIO_DIR", "/srv/scenarios")

	path := writeFile(t, t.TempDir(), "config.yaml", "log:\n  level: debug\n")
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, "9090", c.Server.Port)
	assert.Equal(t, "production", c.Server.Env)
	assert.Equal(t, ":memory:", c.Storage.DSN)
	assert.Equal(t, "/srv/scenarios", c.ScenarioDir)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"log level":  "log:\n  level: loud\n",
		"preset":     "scenario:\n  preset: mesh\n",
		"rate limit": "server:\n  rate_limit: -1\n",
		"yaml":       "scenario: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ScenarioFileMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scenarios/hub.yaml", `scenario:
  name: hub
  preset: control_hub
  params:
    battery_power_mw: 1
    battery_hours: 4
    load_mw: 500
`)
	path := writeFile(t, dir, "config.yaml", `scenario_file: scenarios/hub.yaml
scenario:
  params:
    load_mw: 800
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hub", c.Scenario.Name)
	assert.Equal(t, "control_hub", c.Scenario.Preset)
	assert.Equal(t, 1.0, c.Scenario.Params.BatteryPowerMW)
	assert.Equal(t, 4.0, c.Scenario.Params.BatteryHours)
	assert.Equal(t, 800.0, c.Scenario.Params.LoadMW)

	sc, err := c.Scenario.Build()
	require.NoError(t, err)
	assert.Equal(t, "hub", sc.Name)
	assert.Equal(t, 800.0, sc.Baseline)
	st, _ := sc.Network.Store(scenario.Battery)
	assert.Equal(t, 4.0, st.ENom)
}

func TestLoad_MissingScenarioFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "scenario_file: nope.yaml\n")
	_, err := LoadUnchecked(path)
	assert.Error(t, err)
}

func TestScenarioConfig_BuildCustom(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.yaml", `scenario:
  name: two-channel
  preset: custom
  baseline: 10
  store: battery
  network:
    snapshots: 3
    buses:
      - name: grid
    generators:
      - name: day_ahead
        bus: grid
        p_nom_extendable: true
      - name: intraday
        bus: grid
        p_nom_extendable: true
    loads:
      - name: load
        bus: grid
        p_set: 10
    stores:
      - name: battery
        bus: grid
        e_nom: 2
  channels:
    - name: day-ahead
      generator: day_ahead
      prices: [1, 5, 2]
    - name: intraday
      generator: intraday
      prices: [2, 4, 3]
`)
	sc, err := LoadScenarioFile(path)
	require.NoError(t, err)

	built, err := sc.Build()
	require.NoError(t, err)
	assert.Equal(t, scenario.KindCustom, built.Kind)
	assert.Equal(t, 3, built.Network.Snapshots)
	assert.Equal(t, 10.0, built.Baseline)
	g, ok := built.Network.Generator("intraday")
	require.True(t, ok)
	assert.Equal(t, []float64{2, 4, 3}, g.MarginalCost.Expand(3))
}

func TestScenarioConfig_BuildDefaultsPreset(t *testing.T) {
	sc, err := ScenarioConfig{}.Build()
	require.NoError(t, err)
	assert.Equal(t, scenario.KindSingleBus, sc.Kind)

	_, err = ScenarioConfig{Preset: "mesh"}.Build()
	assert.Error(t, err)
}

func TestMergeScenario(t *testing.T) {
	base := ScenarioConfig{
		Name:   "base",
		Preset: "single_bus",
		Params: scenario.Params{LoadMW: 1000, EPEXPrices: []float64{1, 2}},
		Store:  "Battery",
	}
	out := MergeScenario(base, ScenarioConfig{
		Preset: "control_hub",
		Params: scenario.Params{SolarMW: 7, EPEXPrices: []float64{3, 4}},
	})

	assert.Equal(t, "base", out.Name)
	assert.Equal(t, "control_hub", out.Preset)
	assert.Equal(t, 1000.0, out.Params.LoadMW)
	assert.Equal(t, 7.0, out.Params.SolarMW)
	assert.Equal(t, []float64{3, 4}, out.Params.EPEXPrices)
	assert.Equal(t, "Battery", out.Store)
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "single_bus", c.Scenario.Preset)
	assert.Equal(t, "8080", c.Server.Port)
}

func TestShippedExamples(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "examples", "config.yaml"))
	require.NoError(t, err)
	sc, err := c.Scenario.Build()
	require.NoError(t, err)
	assert.Equal(t, "single bus reference", sc.Name)
	assert.Equal(t, 13, sc.Network.Snapshots)

	files, err := filepath.Glob(filepath.Join("..", "..", "examples", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		s, err := LoadScenarioFile(f)
		require.NoError(t, err, f)
		built, err := s.Build()
		require.NoError(t, err, f)
		assert.NotEmpty(t, built.Store, f)
	}

	custom, err := LoadScenarioFile(filepath.Join("..", "..", "examples", "scenarios", "custom_two_bus.yaml"))
	require.NoError(t, err)
	built, err := custom.Build()
	require.NoError(t, err)
	assert.Equal(t, 100.0, built.Baseline)
}
