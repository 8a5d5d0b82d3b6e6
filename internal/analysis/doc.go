// Package analysis characterizes food chain runs beyond the raw trajectory.
//
// The package includes:
//
//   - [Stability]: eigenvalues of the Jacobian at the interior equilibrium
//   - [Summarize]: per-species extremes, final values and settling time
//   - [DominantPeriods]: oscillation period of each species from its spectrum
//   - [Sweep]: one-coefficient parameter sweep, solved concurrently
//
// # Local Stability
//
// An equilibrium is locally attracting when every eigenvalue of the Jacobian
// has a negative real part:
//
//	report, err := analysis.Stability(c, eq)
//	if err == nil && report.Class.Attracting() {
//	    // nearby trajectories spiral or decay into eq
//	}
package analysis
