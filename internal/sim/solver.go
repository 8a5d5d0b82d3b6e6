package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/popsim/internal/dynamo"
)

// Linspace returns n evenly spaced points on [a, b]. The last point is b exactly.
func Linspace(a, b float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{a}
	}
	out := make([]float64, n)
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	out[n-1] = b
	return out
}

// Solve integrates dyn from x0 over [cfg.TStart, cfg.TEnd] and samples the
// solution on Linspace(cfg.TStart, cfg.TEnd, cfg.Samples).
//
// Adaptive integrators are sampled through their dense output. Fixed-step
// integrators take cfg.Substeps equal steps between grid points. Any solver
// failure aborts the run; no partial trajectory is returned.
func Solve(ctx context.Context, dyn dynamo.System, integ dynamo.Integrator, x0 dynamo.State, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(x0) != dyn.StateDim() {
		return nil, fmt.Errorf("%w: state has %d components, system expects %d",
			dynamo.ErrDimensionMismatch, len(x0), dyn.StateDim())
	}
	if !x0.IsValid() {
		return nil, &dynamo.SimulationError{Time: cfg.TStart, State: x0.Clone(), Wrapped: dynamo.ErrInvalidState}
	}

	grid := Linspace(cfg.TStart, cfg.TEnd, cfg.Samples)
	result := &Result{
		Trajectory: Trajectory{
			Times:  grid,
			States: make([]dynamo.State, len(grid)),
		},
	}
	result.Trajectory.States[0] = x0.Clone()

	var err error
	if adaptive, ok := integ.(dynamo.AdaptiveIntegrator); ok {
		err = solveAdaptive(ctx, dyn, adaptive, x0, cfg, result)
	} else {
		err = solveFixed(ctx, dyn, integ, x0, cfg, result)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func solveAdaptive(ctx context.Context, dyn dynamo.System, integ dynamo.AdaptiveIntegrator, x0 dynamo.State, cfg Config, result *Result) error {
	grid := result.Trajectory.Times
	tol := dynamo.Tolerance{Rel: cfg.RTol, Abs: cfg.ATol}
	endSlack := 1e-12 * math.Max(1, math.Abs(cfg.TEnd))

	integ.Reset()
	x := x0.Clone()
	t := cfg.TStart

	dt := cfg.FirstStep
	if dt <= 0 {
		dt = initialStep(dyn, x, t, cfg, integ.Order())
		result.Stats.Evals += 2
	}

	next := 1
	for step := 0; next < len(grid); step++ {
		select {
		case <-ctx.Done():
			return &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: ctx.Err()}
		default:
		}

		if step >= cfg.MaxSteps {
			return &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: dynamo.ErrMaxSteps}
		}

		if remaining := cfg.TEnd - t; dt > remaining {
			dt = remaining
		}

		res, err := integ.StepAdaptive(dyn, x, t, dt, cfg.MaxStep, tol)
		result.Stats.Evals += res.Evals
		if err != nil {
			return &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: err}
		}
		if !res.X.IsValid() {
			return &dynamo.SimulationError{Step: step, Time: res.T1, State: res.X, Wrapped: dynamo.ErrInvalidState}
		}

		result.Stats.Steps++
		result.Stats.Rejected += res.Rejected

		last := cfg.TEnd-res.T1 <= endSlack
		for next < len(grid) && (grid[next] <= res.T1 || last) {
			result.Trajectory.States[next] = res.Dense.At(grid[next])
			next++
		}

		x, t, dt = res.X, res.T1, res.NextDt
		if last {
			t = cfg.TEnd
		}
	}

	return nil
}

func solveFixed(ctx context.Context, dyn dynamo.System, integ dynamo.Integrator, x0 dynamo.State, cfg Config, result *Result) error {
	grid := result.Trajectory.Times
	x := x0.Clone()
	step := 0

	for i := 1; i < len(grid); i++ {
		select {
		case <-ctx.Done():
			return &dynamo.SimulationError{Step: step, Time: grid[i-1], State: x, Wrapped: ctx.Err()}
		default:
		}

		h := (grid[i] - grid[i-1]) / float64(cfg.Substeps)
		t := grid[i-1]
		for s := 0; s < cfg.Substeps; s++ {
			x = integ.Step(dyn, x, t, h)
			t += h
			step++
			result.Stats.Evals++

			if !x.IsValid() {
				return &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
			}
		}
		result.Stats.Steps += cfg.Substeps
		result.Trajectory.States[i] = x.Clone()
	}

	return nil
}

// initialStep picks a first step so that an explicit Euler step of that size
// stays within the requested tolerance.
func initialStep(dyn dynamo.System, x dynamo.State, t float64, cfg Config, order int) float64 {
	span := cfg.TEnd - cfg.TStart
	f0 := dyn.Derive(x, t)

	scale := make([]float64, len(x))
	for i := range x {
		scale[i] = cfg.ATol + math.Abs(x[i])*cfg.RTol
	}

	d0 := rmsScaled(x, scale)
	d1 := rmsScaled(f0, scale)

	h0 := 0.01 * d0 / d1
	if d0 < 1e-5 || d1 < 1e-5 {
		h0 = 1e-6
	}
	h0 = math.Min(h0, span)

	x1 := make(dynamo.State, len(x))
	for i := range x {
		x1[i] = x[i] + h0*f0[i]
	}
	f1 := dyn.Derive(x1, t+h0)

	diff := make([]float64, len(x))
	for i := range x {
		diff[i] = f1[i] - f0[i]
	}
	d2 := rmsScaled(diff, scale) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1/float64(order))
	}

	h := math.Min(100*h0, math.Min(h1, span))
	if cfg.MaxStep > 0 {
		h = math.Min(h, cfg.MaxStep)
	}
	if math.IsNaN(h) || h <= 0 {
		return math.Min(1e-6, span)
	}
	return h
}

func rmsScaled(v []float64, scale []float64) float64 {
	sum := 0.0
	for i := range v {
		e := v[i] / scale[i]
		sum += e * e
	}
	return math.Sqrt(sum / float64(len(v)))
}
