package sim

import (
	"fmt"

	"github.com/san-kum/popsim/internal/dynamo"
)

const (
	DefaultTStart   = 0.0
	DefaultTEnd     = 50.0
	DefaultSamples  = 500
	DefaultRTol     = 1e-3
	DefaultATol     = 1e-6
	DefaultMaxSteps = 100000
	DefaultSubsteps = 10
)

// Config describes the integration span, the output grid and the error
// control of one solve.
type Config struct {
	TStart float64
	TEnd   float64
	// Samples is the number of evenly spaced output points, both ends included.
	Samples int

	RTol float64
	ATol float64
	// FirstStep of 0 lets the solver choose the initial step.
	FirstStep float64
	// MaxStep of 0 leaves the step size unbounded.
	MaxStep  float64
	MaxSteps int

	// Substeps is used by fixed-step integrators between two grid points.
	Substeps int
}

func DefaultConfig() Config {
	return Config{
		TStart:   DefaultTStart,
		TEnd:     DefaultTEnd,
		Samples:  DefaultSamples,
		RTol:     DefaultRTol,
		ATol:     DefaultATol,
		MaxSteps: DefaultMaxSteps,
		Substeps: DefaultSubsteps,
	}
}

func (c Config) Validate() error {
	if !(c.TEnd > c.TStart) {
		return fmt.Errorf("end time must exceed start time, got [%g, %g]", c.TStart, c.TEnd)
	}
	if c.Samples < 2 {
		return fmt.Errorf("samples must be at least 2, got %d", c.Samples)
	}
	if c.RTol <= 0 || c.ATol <= 0 {
		return fmt.Errorf("tolerances must be positive, got rtol=%g atol=%g", c.RTol, c.ATol)
	}
	if c.FirstStep < 0 || c.MaxStep < 0 {
		return fmt.Errorf("step bounds must not be negative")
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max steps must be positive, got %d", c.MaxSteps)
	}
	if c.Substeps <= 0 {
		return fmt.Errorf("substeps must be positive, got %d", c.Substeps)
	}
	return nil
}

// Trajectory is the solution sampled on the output grid.
type Trajectory struct {
	Times  []float64
	States []dynamo.State
}

func (tr Trajectory) Len() int { return len(tr.Times) }

// Series returns component i across all samples.
func (tr Trajectory) Series(i int) []float64 {
	out := make([]float64, len(tr.States))
	for k, s := range tr.States {
		out[k] = s[i]
	}
	return out
}

// Final returns the last sampled state.
func (tr Trajectory) Final() dynamo.State {
	if len(tr.States) == 0 {
		return nil
	}
	return tr.States[len(tr.States)-1]
}

type Stats struct {
	Steps    int `json:"steps"`
	Rejected int `json:"rejected"`
	Evals    int `json:"evals"`
}

type Result struct {
	Trajectory Trajectory
	Stats      Stats
}
