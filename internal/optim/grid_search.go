// Package optim searches coefficient space for values that bring a run
// closest to a goal.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/popsim/internal/dynamo"
	"github.com/san-kum/popsim/internal/experiment"
	"github.com/san-kum/popsim/internal/models"
)

// ErrNoCandidate is returned when no grid point produced a finite score.
var ErrNoCandidate = errors.New("optim: no grid point could be evaluated")

// Objective scores a run; lower is better. +Inf marks an unusable run.
type Objective func(r *experiment.Result) float64

// FinalDistance scores the Euclidean distance from the final state to target.
func FinalDistance(target [3]float64) Objective {
	return func(r *experiment.Result) float64 {
		final := r.Trajectory.Final()
		if len(final) != 3 {
			return math.Inf(1)
		}
		return distance([3]float64{final[0], final[1], final[2]}, target)
	}
}

// EquilibriumDistance scores the distance from the predicted steady state
// to target. Runs without a feasible equilibrium score +Inf.
func EquilibriumDistance(target [3]float64) Objective {
	return func(r *experiment.Result) float64 {
		if !r.HasEquilibrium() || !r.Equilibrium.Feasible {
			return math.Inf(1)
		}
		return distance(r.Equilibrium.Values(), target)
	}
}

// SettlingTime scores how long the run takes to settle on its steady state.
func SettlingTime() Objective {
	return func(r *experiment.Result) float64 {
		t := r.Summary().SettlingTime
		if t < 0 {
			return math.Inf(1)
		}
		return t
	}
}

func distance(a, b [3]float64) float64 {
	return dynamo.State(a[:]).Sub(b[:]).Norm()
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	for _, name := range params {
		if _, ok := models.DefaultCoefficients().Get(name); !ok {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownCoefficient, name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Result is the best grid point found.
type Result struct {
	Params       map[string]float64
	Coefficients models.Coefficients
	Score        float64
	Evaluated    int
}

// Search runs every grid point on top of base and keeps the lowest score.
// Points with rejected values or failed runs are skipped.
func (g *GridSearch) Search(ctx context.Context, base models.Coefficients, opts experiment.Options, objective Objective) (*Result, error) {
	best := &Result{Score: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, base, make(map[string]float64), opts, objective, best); err != nil {
		return nil, err
	}
	if math.IsInf(best.Score, 1) {
		return nil, ErrNoCandidate
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current models.Coefficients,
	params map[string]float64,
	opts experiment.Options,
	objective Objective,
	best *Result,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		res, err := experiment.Run(ctx, current, opts)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		}
		best.Evaluated++

		val := objective(res)
		if val < best.Score {
			best.Score = val
			best.Coefficients = current
			best.Params = make(map[string]float64, len(params))
			for k, v := range params {
				best.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next, err := current.With(paramName, val)
		if err != nil {
			continue
		}
		params[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, next, params, opts, objective, best); err != nil {
			return err
		}
	}
	delete(params, paramName)
	return nil
}
