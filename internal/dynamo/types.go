package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Integrator advances a state by one fixed step.
type Integrator interface {
	Step(dyn System, x State, t, dt float64) State
}

// Tolerance bounds the local error of an adaptive step.
type Tolerance struct {
	Rel float64
	Abs float64
}

// Interpolant evaluates the continuous extension of one accepted step
// anywhere inside [T0, T1].
type Interpolant interface {
	At(t float64) State
}

// StepResult describes one accepted adaptive step.
type StepResult struct {
	X        State
	T0, T1   float64
	NextDt   float64
	Dense    Interpolant
	Rejected int
	Evals    int
}

// AdaptiveIntegrator takes error-controlled steps and exposes dense output.
type AdaptiveIntegrator interface {
	Integrator
	Order() int
	Reset()
	StepAdaptive(dyn System, x State, t, dt, maxDt float64, tol Tolerance) (StepResult, error)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}
