package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"grid-arbitrage/internal/model"
	"grid-arbitrage/internal/scenario"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load the scenario from a separate YAML (e.g. examples/scenarios/*.yaml).
	// If both ScenarioFile and Scenario are provided, Scenario overrides ScenarioFile.
	ScenarioFile string         `yaml:"scenario_file"`
	Scenario     ScenarioConfig `yaml:"scenario"`

	// ScenarioDir is where the API and the rank command look for scenario files.
	ScenarioDir string `yaml:"scenario_dir" default:"examples/scenarios"`

	Income  IncomeConfig  `yaml:"income"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ScenarioConfig selects a preset (optionally tuned by Params) or describes
// a custom network.
type ScenarioConfig struct {
	Name   string          `yaml:"name" json:"name,omitempty"`
	Preset string          `yaml:"preset" json:"preset" default:"single_bus" validate:"oneof=single_bus control_hub custom"`
	Params scenario.Params `yaml:"params" json:"params"`

	// Custom scenarios only.
	Network  model.Network         `yaml:"network" json:"network"`
	Channels []model.MarketChannel `yaml:"channels" json:"channels,omitempty"`
	Baseline float64               `yaml:"baseline" json:"baseline,omitempty"`
	Store    string                `yaml:"store" json:"store,omitempty"`
}

type IncomeConfig struct {
	// IdleTolerance is the fallback |P| threshold for idle periods when the
	// solver reports no zero-dispatch indicator.
	IdleTolerance float64 `yaml:"idle_tolerance" validate:"gte=0"`
}

type ServerConfig struct {
	Port        string   `yaml:"port" default:"8080" validate:"required,numeric"`
	Env         string   `yaml:"env" default:"development" validate:"oneof=development production test"`
	CORSOrigins []string `yaml:"cors_origins" default:"[\"*\"]"`
	// RateLimit is the sustained number of solve requests per second per client.
	RateLimit float64 `yaml:"rate_limit" default:"5" validate:"gt=0"`
	Burst     int     `yaml:"burst" default:"10" validate:"gte=1"`
}

type StorageConfig struct {
	DSN string `yaml:"dsn" default:"grid-arbitrage.db" validate:"required"` // SQLite file path, or ":memory:"
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
}

// Default returns a configuration with every default applied and no
// scenario file, after .env and environment overrides.
func Default() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	applyEnvOverrides(&c)
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config.Default: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads the YAML at path, the .env file if present, applies
// environment overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(c)
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("config.Load: defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}
	// If scenario_file is set, load it and merge in any explicit overrides from c.Scenario.
	if c.ScenarioFile != "" {
		loaded, err := LoadScenarioFile(resolve(path, c.ScenarioFile))
		if err != nil {
			return nil, err
		}
		c.Scenario = MergeScenario(loaded, c.Scenario)
	}
	return &c, nil
}

// resolve prefers interpreting a relative path as relative to the config
// file directory, falling back to the path as given (relative to cwd).
func resolve(configPath, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(filepath.Dir(configPath), p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("API_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("API_ENV"); v != "" {
		c.Server.Env = v
	}
	if v := os.Getenv("STORE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("SCENARIO_DIR"); v != "" {
		c.ScenarioDir = v
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	return nil
}

// Validate checks the scenario section on its own.
func (s ScenarioConfig) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("scenario config invalid: %w", err)
	}
	return nil
}

// Build turns the scenario section into a ready-to-run scenario.
func (s ScenarioConfig) Build() (*scenario.Scenario, error) {
	if s.Preset == "" {
		if err := defaults.Set(&s); err != nil {
			return nil, err
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return scenario.Build(s.Name, scenario.Kind(s.Preset), s.Params, scenario.CustomInput{
		Network:  s.Network,
		Channels: s.Channels,
		Baseline: s.Baseline,
		Store:    s.Store,
	})
}

type scenarioFileWrapper struct {
	Scenario ScenarioConfig `yaml:"scenario"`
}

// LoadScenarioFile reads a YAML file with a top-level "scenario" key.
func LoadScenarioFile(path string) (ScenarioConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ScenarioConfig{}, fmt.Errorf("config.LoadScenarioFile: read %q: %w", path, err)
	}
	var w scenarioFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return ScenarioConfig{}, fmt.Errorf("config.LoadScenarioFile: parse %q: %w", path, err)
	}
	return w.Scenario, nil
}

// MergeScenario overlays non-zero fields from override onto base.
// This is used when loading a scenario file and then applying overrides from
// the config or a request.
func MergeScenario(base, override ScenarioConfig) ScenarioConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.Preset != "" {
		out.Preset = override.Preset
	}
	out.Params = mergeParams(base.Params, override.Params)
	if override.Network.Snapshots != 0 {
		out.Network = override.Network
	}
	if len(override.Channels) > 0 {
		out.Channels = override.Channels
	}
	if override.Baseline != 0 {
		out.Baseline = override.Baseline
	}
	if override.Store != "" {
		out.Store = override.Store
	}
	return out
}

func mergeParams(base, override scenario.Params) scenario.Params {
	out := base
	if len(override.EPEXPrices) > 0 {
		out.EPEXPrices = override.EPEXPrices
	}
	if len(override.IntraPrices) > 0 {
		out.IntraPrices = override.IntraPrices
	}
	if len(override.SolarProfile) > 0 {
		out.SolarProfile = override.SolarProfile
	}
	for _, f := range []struct {
		dst *float64
		src float64
	}{
		{&out.LoadMW, override.LoadMW},
		{&out.BatteryPowerMW, override.BatteryPowerMW},
		{&out.BatteryHours, override.BatteryHours},
		{&out.SolarMW, override.SolarMW},
		{&out.GridConnectionMW, override.GridConnectionMW},
		{&out.SolarConnectionMW, override.SolarConnectionMW},
	} {
		if f.src != 0 {
			*f.dst = f.src
		}
	}
	return out
}
