package integrators

import (
	"testing"

	"github.com/san-kum/popsim/internal/dynamo"
)

type benchDynamics struct{}

func (b *benchDynamics) StateDim() int { return 3 }
func (b *benchDynamics) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{
		x[0] * (3.5 - 0.5*x[0] - 0.5*x[1]),
		x[1] * (-0.5 + 0.5*x[0] - 0.5*x[1] - 0.5*x[2]),
		x[2] * (-0.5 + 0.5*x[1] - 0.5*x[2]),
	}
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn := &benchDynamics{}
	x := dynamo.State{5.0, 3.5, 2.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.001)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := &benchDynamics{}
	x := dynamo.State{5.0, 3.5, 2.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.001)
	}
}

func BenchmarkRK45Adaptive(b *testing.B) {
	integrator := NewRK45()
	dyn := &benchDynamics{}
	tol := dynamo.Tolerance{Rel: 1e-3, Abs: 1e-6}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x := dynamo.State{5.0, 3.5, 2.0}
		t, dt := 0.0, 0.01
		integrator.Reset()
		for t < 1 {
			res, err := integrator.StepAdaptive(dyn, x, t, dt, 0, tol)
			if err != nil {
				b.Fatal(err)
			}
			x, t, dt = res.X, res.T1, res.NextDt
		}
	}
}
