// Package automation runs scripted sequences of simulations and Monte Carlo
// studies of the initial populations.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/popsim/internal/config"
	"github.com/san-kum/popsim/internal/experiment"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Each step starts from the base configuration;
// the preset is applied first and the step's own values last.
type ScenarioStep struct {
	Name         string             `yaml:"name"`
	Preset       string             `yaml:"preset"`
	Integrator   string             `yaml:"integrator"`
	Coefficients map[string]float64 `yaml:"coefficients"`
	TEnd         float64            `yaml:"t_end"`
	Samples      int                `yaml:"samples"`
	Save         bool               `yaml:"save"`
}

// StepResult pairs a step with its run.
type StepResult struct {
	Step   ScenarioStep
	Result *experiment.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}

	return &scenario, nil
}

// StepConfig resolves the configuration of one step on top of base.
func StepConfig(base *config.Config, step ScenarioStep) (*config.Config, error) {
	cfg := base.Clone()
	if step.Preset != "" {
		p, ok := config.Presets[step.Preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset: %s", step.Preset)
		}
		cfg.Apply(p)
	}
	if len(step.Coefficients) > 0 && cfg.Coefficients == nil {
		cfg.Coefficients = make(map[string]float64, len(step.Coefficients))
	}
	for k, v := range step.Coefficients {
		cfg.Coefficients[k] = v
	}
	if step.Integrator != "" {
		cfg.Integrator = step.Integrator
	}
	if step.TEnd != 0 {
		cfg.Simulation.TEnd = step.TEnd
	}
	if step.Samples != 0 {
		cfg.Simulation.Samples = step.Samples
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunScenario executes all steps in order and stops at the first failure,
// returning the results so far.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, logger *slog.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		logger.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "name", step.Name)

		cfg, err := StepConfig(base, step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		c, err := cfg.CoefficientSet()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		res, err := experiment.Run(ctx, c, experiment.Options{
			Integrator: cfg.Integrator,
			Sim:        cfg.SimConfig(),
			Logger:     logger,
		})
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Step: step, Result: res})
	}

	return results, nil
}
