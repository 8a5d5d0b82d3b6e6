package integrators

import "github.com/san-kum/popsim/internal/dynamo"

// Euler is the explicit first order method, kept as a baseline for compare.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	next := make(dynamo.State, len(x))
	axpy(next, x, dt, dyn.Derive(x, t))
	return next
}
