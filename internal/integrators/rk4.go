package integrators

import "github.com/san-kum/popsim/internal/dynamo"

// RK4 is the classical fixed-step fourth order method. The solver samples
// it with a fixed number of substeps per output interval.
type RK4 struct {
	k       [4]dynamo.State
	scratch dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.scratch) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.scratch = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	r.resize(len(x))
	half := dt / 2

	copy(r.k[0], dyn.Derive(x, t))
	axpy(r.scratch, x, half, r.k[0])
	copy(r.k[1], dyn.Derive(r.scratch, t+half))
	axpy(r.scratch, x, half, r.k[1])
	copy(r.k[2], dyn.Derive(r.scratch, t+half))
	axpy(r.scratch, x, dt, r.k[2])
	copy(r.k[3], dyn.Derive(r.scratch, t+dt))

	next := make(dynamo.State, len(x))
	for i := range next {
		next[i] = x[i] + dt/6*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	return next
}

// axpy writes x + a*k into dst.
func axpy(dst, x dynamo.State, a float64, k dynamo.State) {
	for i := range dst {
		dst[i] = x[i] + a*k[i]
	}
}
