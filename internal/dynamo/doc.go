// Package dynamo provides core simulation primitives for population models.
//
// The package defines the fundamental interfaces and types for numerical
// integration of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: fixed-step integrator interface
//   - [AdaptiveIntegrator]: error-controlled integrator with dense output
//   - [Interpolant]: continuous extension over one accepted step
//
// # Example
//
//	dyn := models.NewFoodChain(models.DefaultCoefficients())
//	integ := integrators.NewRK45()
//	result, err := sim.Solve(ctx, dyn, integ, x0, sim.DefaultConfig())
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT thread-safe. Concurrent
// solves must each own their integrator; see sim.Batch.
package dynamo
