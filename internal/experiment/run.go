package experiment

import (
	"context"
	"log/slog"
	"time"

	"github.com/san-kum/popsim/internal/analysis"
	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/sim"
)

type Options struct {
	Integrator string
	Sim        sim.Config
	Logger     *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Integrator: DefaultIntegrator,
		Sim:        sim.DefaultConfig(),
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Result is everything one run produces. The trajectory is always present;
// Equilibrium and Stability are only meaningful when EquilibriumErr is nil.
type Result struct {
	Coefficients   models.Coefficients
	Trajectory     sim.Trajectory
	Equilibrium    models.Equilibrium
	EquilibriumErr error
	Stability      *analysis.StabilityReport
	Stats          sim.Stats
	Integrator     string
	Elapsed        time.Duration
}

func (r *Result) HasEquilibrium() bool { return r != nil && r.EquilibriumErr == nil }

// EquilibriumPtr returns the equilibrium or nil when none exists.
func (r *Result) EquilibriumPtr() *models.Equilibrium {
	if !r.HasEquilibrium() {
		return nil
	}
	eq := r.Equilibrium
	return &eq
}

func (r *Result) Summary() analysis.Summary {
	return analysis.Summarize(r.Trajectory, r.EquilibriumPtr())
}

// Run integrates the food chain for c and predicts its steady state. The
// coefficients are used as given; positivity is enforced where they are
// edited, not here.
func Run(ctx context.Context, c models.Coefficients, opts Options) (*Result, error) {
	log := opts.logger()
	if opts.Integrator == "" {
		opts.Integrator = DefaultIntegrator
	}

	integ, err := NewRegistry().GetIntegrator(opts.Integrator)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	system := models.NewFoodChain(c)
	res, err := sim.Solve(ctx, system, integ, system.DefaultState(), opts.Sim)
	if err != nil {
		log.Debug("simulation failed", "integrator", opts.Integrator, "err", err)
		return nil, err
	}

	out := &Result{
		Coefficients: c,
		Trajectory:   res.Trajectory,
		Stats:        res.Stats,
		Integrator:   opts.Integrator,
		Elapsed:      time.Since(start),
	}

	out.Equilibrium, out.EquilibriumErr = models.Predict(c)
	if out.EquilibriumErr == nil {
		report, err := analysis.Stability(c, out.Equilibrium)
		if err != nil {
			log.Debug("stability analysis failed", "err", err)
		} else {
			out.Stability = &report
		}
	}

	log.Debug("simulation complete",
		"integrator", opts.Integrator,
		"steps", res.Stats.Steps,
		"rejected", res.Stats.Rejected,
		"evals", res.Stats.Evals,
		"equilibrium", out.HasEquilibrium(),
		"elapsed", out.Elapsed)

	return out, nil
}
