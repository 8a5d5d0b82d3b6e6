package automation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/popsim/internal/dynamo"
	"github.com/san-kum/popsim/internal/integrators"
	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/sim"
)

func monteCarloConfig(trials int) MonteCarloConfig {
	return MonteCarloConfig{
		Perturbation:  0.2,
		NumTrials:     trials,
		Seed:          42,
		Workers:       4,
		Sim:           sim.DefaultConfig(),
		NewIntegrator: func() dynamo.Integrator { return integrators.NewRK45() },
	}
}

func TestRunMonteCarlo_DefaultsConverge(t *testing.T) {
	c := models.DefaultCoefficients()
	results, err := RunMonteCarlo(context.Background(), c, monteCarloConfig(8))
	require.NoError(t, err)
	require.Len(t, results, 8)

	initial := c.Initial()
	for i, r := range results {
		assert.Equal(t, i, r.TrialID)
		for k, v := range r.InitState {
			assert.InDelta(t, initial[k], v, 0.2*initial[k]+1e-12)
		}
	}

	converged, persisted := MonteCarloStats(results)
	assert.Equal(t, 8, converged)
	assert.Equal(t, 8, persisted)
}

func TestRunMonteCarlo_SeedIsReproducible(t *testing.T) {
	c := models.DefaultCoefficients()
	a, err := RunMonteCarlo(context.Background(), c, monteCarloConfig(3))
	require.NoError(t, err)
	b, err := RunMonteCarlo(context.Background(), c, monteCarloConfig(3))
	require.NoError(t, err)

	for i := range a {
		assert.Equal(t, a[i].InitState, b[i].InitState)
	}
	assert.NotEqual(t, a[0].InitState, a[1].InitState)
}

func TestRunMonteCarlo_PredatorsDieOut(t *testing.T) {
	c := models.DefaultCoefficients()
	c.A12, c.A21, c.A23, c.A32 = 0, 0, 0, 0

	results, err := RunMonteCarlo(context.Background(), c, monteCarloConfig(4))
	require.NoError(t, err)

	_, persisted := MonteCarloStats(results)
	assert.Zero(t, persisted)
	for _, r := range results {
		assert.InDelta(t, 7.0, r.FinalState[0], 0.01)
	}
}

func TestRunMonteCarlo_Errors(t *testing.T) {
	c := models.DefaultCoefficients()

	cfg := monteCarloConfig(0)
	_, err := RunMonteCarlo(context.Background(), c, cfg)
	assert.Error(t, err)

	cfg = monteCarloConfig(2)
	cfg.Perturbation = 1
	_, err = RunMonteCarlo(context.Background(), c, cfg)
	assert.Error(t, err)

	cfg = monteCarloConfig(2)
	cfg.NewIntegrator = nil
	_, err = RunMonteCarlo(context.Background(), c, cfg)
	assert.Error(t, err)
}
