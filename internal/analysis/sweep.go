package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/popsim/internal/dynamo"
	"github.com/san-kum/popsim/internal/integrators"
	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/sim"
)

type SweepOptions struct {
	Config        sim.Config
	NewIntegrator func() dynamo.Integrator
	Workers       int
}

func DefaultSweepOptions() SweepOptions {
	return SweepOptions{
		Config:        sim.DefaultConfig(),
		NewIntegrator: func() dynamo.Integrator { return integrators.NewRK45() },
	}
}

// SweepPoint is one coefficient value of a sweep.
type SweepPoint struct {
	Value          float64            `json:"value"`
	Equilibrium    models.Equilibrium `json:"equilibrium"`
	EquilibriumErr error              `json:"-"`
	Final          dynamo.State       `json:"final"`
}

// Sweep varies one coefficient of base over values and solves every variant
// concurrently. Values that base.With rejects fail the whole sweep before
// any solve starts.
func Sweep(ctx context.Context, base models.Coefficients, name string, values []float64, opts SweepOptions) ([]SweepPoint, error) {
	if opts.NewIntegrator == nil {
		opts.NewIntegrator = DefaultSweepOptions().NewIntegrator
	}

	points := make([]SweepPoint, len(values))
	jobs := make([]sim.Job, len(values))
	for i, v := range values {
		c, err := base.With(name, v)
		if err != nil {
			return nil, fmt.Errorf("sweep %s=%g: %w", name, v, err)
		}
		eq, eqErr := models.Predict(c)
		points[i] = SweepPoint{Value: v, Equilibrium: eq, EquilibriumErr: eqErr}
		jobs[i] = sim.Job{System: models.NewFoodChain(c), X0: c.Initial(), Config: opts.Config}
	}

	results, err := sim.NewBatch(opts.NewIntegrator, opts.Workers).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}
	for i, res := range results {
		points[i].Final = res.Trajectory.Final()
	}
	return points, nil
}

// BothGlyph marks a sweep cell where the final value lands on the predicted
// equilibrium.
const BothGlyph = '◉'

// SweepToASCII plots the final value of one species against the swept
// coefficient. '•' marks the simulated final value, 'x' the predicted
// equilibrium where one exists, and '◉' a cell holding both.
func SweepToASCII(points []SweepPoint, species, width, height int) string {
	if len(points) == 0 || width <= 0 || height <= 0 || species < 0 || species > 2 {
		return ""
	}

	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		for _, v := range sweepValues(p, species) {
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if math.IsInf(minVal, 1) {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	plot := func(col int, v float64, r rune) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return
		}
		row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
		if row < 0 || row >= height || col < 0 || col >= width {
			return
		}
		if prev := canvas[row][col]; prev != ' ' && prev != r {
			r = BothGlyph
		}
		canvas[row][col] = r
	}

	for i, p := range points {
		col := i * width / len(points)
		if col >= width {
			col = width - 1
		}
		if p.EquilibriumErr == nil {
			plot(col, p.Equilibrium.Values()[species], 'x')
		}
		if len(p.Final) > species {
			plot(col, p.Final[species], '•')
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%8.3f ┤\n", maxVal)
	for _, row := range canvas {
		sb.WriteString("         │")
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	fmt.Fprintf(&sb, "%8.3f ┤\n", minVal)
	fmt.Fprintf(&sb, "          %-*g%*g\n", width/2, points[0].Value, width-width/2, points[len(points)-1].Value)
	return sb.String()
}

func sweepValues(p SweepPoint, species int) []float64 {
	var out []float64
	if p.EquilibriumErr == nil {
		if v := p.Equilibrium.Values()[species]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	if len(p.Final) > species {
		if v := p.Final[species]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
