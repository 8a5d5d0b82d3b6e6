package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/plot"
	"github.com/san-kum/popsim/internal/sim"
)

const (
	DefaultIntegrator = "rk45"
	DefaultDataDir    = ".popsim"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

type Config struct {
	Integrator   string             `yaml:"integrator"`
	Simulation   SimulationConfig   `yaml:"simulation"`
	Coefficients map[string]float64 `yaml:"coefficients,omitempty"`
	Plot         PlotConfig         `yaml:"plot"`
	Storage      StorageConfig      `yaml:"storage"`
	Log          LogConfig          `yaml:"log"`
}

type SimulationConfig struct {
	TStart   float64 `yaml:"t_start"`
	TEnd     float64 `yaml:"t_end"`
	Samples  int     `yaml:"samples"`
	RTol     float64 `yaml:"rtol"`
	ATol     float64 `yaml:"atol"`
	MaxStep  float64 `yaml:"max_step,omitempty"`
	MaxSteps int     `yaml:"max_steps"`
	Substeps int     `yaml:"substeps"`
}

type PlotConfig struct {
	X plot.Axis `yaml:"x"`
	Y plot.Axis `yaml:"y"`
}

type StorageConfig struct {
	Dir   string `yaml:"dir"`
	Index bool   `yaml:"index"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator: DefaultIntegrator,
		Simulation: SimulationConfig{
			TStart:   sim.DefaultTStart,
			TEnd:     sim.DefaultTEnd,
			Samples:  sim.DefaultSamples,
			RTol:     sim.DefaultRTol,
			ATol:     sim.DefaultATol,
			MaxSteps: sim.DefaultMaxSteps,
			Substeps: sim.DefaultSubsteps,
		},
		Plot: PlotConfig{X: plot.X1, Y: plot.X2},
		Storage: StorageConfig{
			Dir:   DefaultDataDir,
			Index: true,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads a YAML file over the defaults; keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the simulation block and the coefficient names. Zero
// coefficients are allowed here so presets can switch interactions off.
func (c *Config) Validate() error {
	if err := c.SimConfig().Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	for name, v := range c.Coefficients {
		if _, ok := models.DefaultCoefficients().Get(name); !ok {
			return fmt.Errorf("coefficients: %w: %q", models.ErrUnknownCoefficient, name)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("coefficients: %s must be finite and not negative, got %g", name, v)
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	return nil
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		TStart:   c.Simulation.TStart,
		TEnd:     c.Simulation.TEnd,
		Samples:  c.Simulation.Samples,
		RTol:     c.Simulation.RTol,
		ATol:     c.Simulation.ATol,
		MaxStep:  c.Simulation.MaxStep,
		MaxSteps: c.Simulation.MaxSteps,
		Substeps: c.Simulation.Substeps,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.Coefficients != nil {
		out.Coefficients = make(map[string]float64, len(c.Coefficients))
		for k, v := range c.Coefficients {
			out.Coefficients[k] = v
		}
	}
	return &out
}

// CoefficientSet overlays the configured coefficients on the defaults.
func (c *Config) CoefficientSet() (models.Coefficients, error) {
	return models.FromMap(c.Coefficients)
}

func parseAxisOr(s string, fallback plot.Axis) (plot.Axis, error) {
	if s == "" {
		return fallback, nil
	}
	return plot.ParseAxis(s)
}
