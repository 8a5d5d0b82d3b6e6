package automation

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/san-kum/popsim/internal/analysis"
	"github.com/san-kum/popsim/internal/dynamo"
	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/sim"
)

// PersistenceThreshold is the population below which a species counts as
// extinct at the end of a trial.
const PersistenceThreshold = 1e-3

// MonteCarloConfig defines Monte Carlo simulation parameters
type MonteCarloConfig struct {
	// Perturbation scales each initial population by a factor drawn
	// uniformly from [1-Perturbation, 1+Perturbation]; it must be in [0, 1).
	Perturbation  float64
	NumTrials     int
	Seed          int64
	Workers       int
	Sim           sim.Config
	NewIntegrator func() dynamo.Integrator
}

// MonteCarloResult holds statistics from Monte Carlo runs
type MonteCarloResult struct {
	TrialID    int
	InitState  dynamo.State
	FinalState dynamo.State
	// Converged is true when the trial settled on the interior equilibrium.
	Converged bool
	// Persisted is true when all three species end above PersistenceThreshold.
	Persisted bool
}

// RunMonteCarlo integrates c from randomly perturbed initial populations.
// A zero seed draws one from the clock.
func RunMonteCarlo(ctx context.Context, c models.Coefficients, cfg MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.NumTrials < 1 {
		return nil, errors.New("automation: need at least one trial")
	}
	if cfg.Perturbation < 0 || cfg.Perturbation >= 1 {
		return nil, errors.New("automation: perturbation must be in [0, 1)")
	}
	if cfg.NewIntegrator == nil {
		return nil, errors.New("automation: no integrator factory")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	base := c.Initial()
	jobs := make([]sim.Job, cfg.NumTrials)
	for trial := range jobs {
		x0 := make(dynamo.State, len(base))
		for i, v := range base {
			x0[i] = v * (1 + (rng.Float64()*2-1)*cfg.Perturbation)
		}
		jobs[trial] = sim.Job{System: models.NewFoodChain(c), X0: x0, Config: cfg.Sim}
	}

	out, err := sim.NewBatch(cfg.NewIntegrator, cfg.Workers).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	var eq *models.Equilibrium
	if e, err := models.Predict(c); err == nil {
		eq = &e
	}

	results := make([]MonteCarloResult, len(out))
	for trial, res := range out {
		final := res.Trajectory.Final()
		r := MonteCarloResult{
			TrialID:    trial,
			InitState:  jobs[trial].X0,
			FinalState: final,
			Persisted:  true,
		}
		for _, v := range final {
			if v < PersistenceThreshold {
				r.Persisted = false
			}
		}
		if eq != nil {
			r.Converged = analysis.Summarize(res.Trajectory, eq).SettlingTime >= 0
		}
		results[trial] = r
	}
	return results, nil
}

// MonteCarloStats counts converged and persisting trials.
func MonteCarloStats(results []MonteCarloResult) (converged int, persisted int) {
	for _, r := range results {
		if r.Converged {
			converged++
		}
		if r.Persisted {
			persisted++
		}
	}
	return
}
