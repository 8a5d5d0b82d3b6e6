package integrators

import (
	"math"

	"github.com/san-kum/popsim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// Continuous extension of order 4. Row s holds the coefficients of
// theta, theta^2, theta^3, theta^4 for stage s.
var densePoly = [7][4]float64{
	{1, -8048581381.0 / 2820520608.0, 8663915743.0 / 2820520608.0, -12715105075.0 / 11282082432.0},
	{0, 0, 0, 0},
	{0, 131558114200.0 / 32700410799.0, -68118460800.0 / 10900136933.0, 87487479700.0 / 32700410799.0},
	{0, -1754552775.0 / 470086768.0, 14199869525.0 / 1410260304.0, -10690763975.0 / 1880347072.0},
	{0, 127303824393.0 / 49829197408.0, -318862633887.0 / 49829197408.0, 701980252875.0 / 199316789632.0},
	{0, -282668133.0 / 205662961.0, 2019193451.0 / 616988883.0, -1453857185.0 / 822651844.0},
	{0, 40617522.0 / 29380423.0, -110615467.0 / 29380423.0, 69997945.0 / 29380423.0},
}

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64

	k       [7]dynamo.State
	scratch dynamo.State

	// first-same-as-last: k[0] holds f(fsalT, x) after an accepted step
	fsal  bool
	fsalT float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Order() int { return 5 }

// Reset drops the cached derivative; call before integrating a new problem.
func (r *RK45) Reset() { r.fsal = false }

func (r *RK45) ensureScratch(n int) {
	if len(r.scratch) != n {
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
		r.scratch = make(dynamo.State, n)
		r.fsal = false
	}
}

// stages evaluates k2..k7 given k1 in r.k[0] and returns the fifth-order solution.
func (r *RK45) stages(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	k := r.k

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*b21*k[0][i]
	}
	copy(k[1], dyn.Derive(r.scratch, t+a2*dt))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*(b31*k[0][i]+b32*k[1][i])
	}
	copy(k[2], dyn.Derive(r.scratch, t+a3*dt))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*(b41*k[0][i]+b42*k[1][i]+b43*k[2][i])
	}
	copy(k[3], dyn.Derive(r.scratch, t+a4*dt))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*(b51*k[0][i]+b52*k[1][i]+b53*k[2][i]+b54*k[3][i])
	}
	copy(k[4], dyn.Derive(r.scratch, t+a5*dt))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*(b61*k[0][i]+b62*k[1][i]+b63*k[2][i]+b64*k[3][i]+b65*k[4][i])
	}
	copy(k[5], dyn.Derive(r.scratch, t+dt))

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k[0][i]+c3*k[2][i]+c4*k[3][i]+c5*k[4][i]+c6*k[5][i])
	}

	copy(k[6], dyn.Derive(xNew, t+dt))
	return xNew
}

// Step takes a single fifth-order step of exactly dt without error control.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	r.ensureScratch(len(x))
	copy(r.k[0], dyn.Derive(x, t))
	r.fsal = false
	return r.stages(dyn, x, t, dt)
}

// StepAdaptive retries with smaller steps until the local error estimate is
// within tol, then proposes the next step size.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, t, dt, maxDt float64, tol dynamo.Tolerance) (dynamo.StepResult, error) {
	n := len(x)
	r.ensureScratch(n)

	evals := 0
	if !r.fsal || r.fsalT != t {
		copy(r.k[0], dyn.Derive(x, t))
		evals++
	}

	rejected := 0
	for {
		if maxDt > 0 && dt > maxDt {
			dt = maxDt
		}
		if !(dt >= minStep(t)) {
			r.fsal = false
			return dynamo.StepResult{}, dynamo.ErrStepTooSmall
		}

		xNew := r.stages(dyn, x, t, dt)
		evals += 6

		errNorm := r.errorNorm(x, xNew, dt, tol)

		if errNorm <= 1 && !math.IsNaN(errNorm) {
			var factor float64
			if errNorm == 0 {
				factor = r.maxScale
			} else {
				factor = math.Min(r.maxScale, r.safety*math.Pow(errNorm, -0.2))
			}
			if rejected > 0 {
				factor = math.Min(1, factor)
			}

			dense := newDenseOutput(x, r.k, t, dt)

			copy(r.k[0], r.k[6])
			r.fsal = true
			r.fsalT = t + dt

			return dynamo.StepResult{
				X:        xNew,
				T0:       t,
				T1:       t + dt,
				NextDt:   dt * factor,
				Dense:    dense,
				Rejected: rejected,
				Evals:    evals,
			}, nil
		}

		scale := r.minScale
		if !math.IsNaN(errNorm) && !math.IsInf(errNorm, 0) {
			scale = math.Max(r.minScale, r.safety*math.Pow(errNorm, -0.2))
		}
		dt *= scale
		rejected++
	}
}

func (r *RK45) errorNorm(x, xNew dynamo.State, dt float64, tol dynamo.Tolerance) float64 {
	k := r.k
	sum := 0.0
	for i := range x {
		errEst := dt * (dc1*k[0][i] + dc3*k[2][i] + dc4*k[3][i] + dc5*k[4][i] + dc6*k[5][i] + dc7*k[6][i])
		scale := tol.Abs + tol.Rel*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		e := errEst / scale
		sum += e * e
	}
	return math.Sqrt(sum / float64(len(x)))
}

// minStep is the smallest step that still moves t in floating point.
func minStep(t float64) float64 {
	return 10 * math.Abs(math.Nextafter(t, math.Inf(1))-t)
}

type denseOutput struct {
	t0, dt float64
	x0     dynamo.State
	q      [][4]float64
}

func newDenseOutput(x0 dynamo.State, k [7]dynamo.State, t0, dt float64) *denseOutput {
	n := len(x0)
	q := make([][4]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < 4; j++ {
			sum := 0.0
			for s := 0; s < 7; s++ {
				sum += k[s][i] * densePoly[s][j]
			}
			q[i][j] = sum
		}
	}
	return &denseOutput{t0: t0, dt: dt, x0: x0.Clone(), q: q}
}

func (d *denseOutput) At(t float64) dynamo.State {
	theta := (t - d.t0) / d.dt
	p1 := theta
	p2 := p1 * theta
	p3 := p2 * theta
	p4 := p3 * theta

	out := make(dynamo.State, len(d.x0))
	for i := range out {
		q := d.q[i]
		out[i] = d.x0[i] + d.dt*(q[0]*p1+q[1]*p2+q[2]*p3+q[3]*p4)
	}
	return out
}
