package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/popsim/internal/config"
)

const scenarioYAML = `
name: collapse
description: raise the top predator death rate
steps:
  - name: baseline
    save: true
  - name: collapse
    preset: top-predator-collapse
    t_end: 20
    samples: 50
  - name: fast
    integrator: rk4
    coefficients:
      d3: 0.25
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "collapse", s.Name)
	require.Len(t, s.Steps, 3)
	assert.True(t, s.Steps[0].Save)
	assert.Equal(t, "top-predator-collapse", s.Steps[1].Preset)
	assert.Equal(t, 0.25, s.Steps[2].Coefficients["d3"])
}

func TestLoadScenario_Errors(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadScenario(writeScenario(t, "name: empty\n"))
	assert.ErrorContains(t, err, "no steps")

	_, err = LoadScenario(writeScenario(t, "steps: [\n"))
	assert.Error(t, err)
}

func TestStepConfig(t *testing.T) {
	base := config.DefaultConfig()
	base.Coefficients = map[string]float64{"a12": 0.4}

	cfg, err := StepConfig(base, ScenarioStep{
		Preset:       "top-predator-collapse",
		Integrator:   "euler",
		Coefficients: map[string]float64{"a12": 0.6},
		TEnd:         10,
	})
	require.NoError(t, err)

	assert.Equal(t, "euler", cfg.Integrator)
	assert.Equal(t, 10.0, cfg.Simulation.TEnd)
	assert.Equal(t, 3.0, cfg.Coefficients["d3"])
	assert.Equal(t, 0.6, cfg.Coefficients["a12"])
	assert.Equal(t, 0.4, base.Coefficients["a12"], "base must not change")
	_, touched := base.Coefficients["d3"]
	assert.False(t, touched)

	_, err = StepConfig(base, ScenarioStep{Preset: "nope"})
	assert.ErrorContains(t, err, "unknown preset")

	_, err = StepConfig(base, ScenarioStep{Coefficients: map[string]float64{"a44": 1}})
	assert.Error(t, err)
}

func TestRunScenario(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	results, err := RunScenario(context.Background(), s, config.DefaultConfig(), nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	baseline := results[0].Result
	assert.True(t, baseline.HasEquilibrium())
	assert.InDelta(t, 14.0/3, baseline.Equilibrium.X1, 1e-9)

	collapse := results[1].Result
	assert.Equal(t, 50, collapse.Trajectory.Len())
	require.True(t, collapse.HasEquilibrium())
	assert.False(t, collapse.Equilibrium.Feasible)

	assert.Equal(t, "rk4", results[2].Result.Integrator)
}

func TestRunScenario_StopsOnFailure(t *testing.T) {
	s := &Scenario{Name: "broken", Steps: []ScenarioStep{
		{Name: "ok", TEnd: 5, Samples: 10},
		{Name: "bad", Integrator: "leapfrog"},
		{Name: "never"},
	}}

	results, err := RunScenario(context.Background(), s, config.DefaultConfig(), nil)
	assert.ErrorContains(t, err, "step 2")
	assert.Len(t, results, 1)
}
