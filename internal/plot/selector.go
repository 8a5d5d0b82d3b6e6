package plot

import (
	"github.com/san-kum/popsim/internal/experiment"
)

// Select builds the figure for an axis pair. Any pair involving time is a
// time series with the predicted steady state drawn as a reference line;
// two populations give a phase plot of arrows between consecutive samples
// with the steady state marked as a point. Nothing predicted is drawn when
// the result has no interior equilibrium.
func Select(xAxis, yAxis Axis, r *experiment.Result) Figure {
	fig := Figure{
		XAxis:  xAxis,
		YAxis:  yAxis,
		XLabel: xAxis.String(),
		YLabel: yAxis.String(),
	}
	if r == nil {
		return fig
	}

	xs := series(xAxis, r)
	ys := series(yAxis, r)
	n := min(len(xs), len(ys))

	if xAxis == Time || yAxis == Time {
		fig.Kind = KindTimeSeries
		fig.Line = make([]Point, n)
		for i := 0; i < n; i++ {
			fig.Line[i] = Point{X: xs[i], Y: ys[i]}
		}
		fig.RefLine = refLine(xAxis, yAxis, r)
		return fig
	}

	fig.Kind = KindPhase
	if n > 1 {
		fig.Arrows = make([]Arrow, n-1)
		for i := 0; i < n-1; i++ {
			fig.Arrows[i] = Arrow{
				From: Point{X: xs[i], Y: ys[i]},
				To:   Point{X: xs[i+1], Y: ys[i+1]},
			}
		}
	}
	if r.HasEquilibrium() {
		eq := r.Equilibrium.Values()
		xi, _ := xAxis.Species()
		yi, _ := yAxis.Species()
		fig.Marker = &Point{X: eq[xi], Y: eq[yi]}
	}
	return fig
}

func series(a Axis, r *experiment.Result) []float64 {
	if i, ok := a.Species(); ok {
		return r.Trajectory.Series(i)
	}
	return r.Trajectory.Times
}

func refLine(xAxis, yAxis Axis, r *experiment.Result) *RefLine {
	if !r.HasEquilibrium() {
		return nil
	}
	eq := r.Equilibrium.Values()

	// population on y: horizontal line; population on x: vertical line
	if i, ok := yAxis.Species(); ok {
		return &RefLine{Orientation: Horizontal, Value: eq[i]}
	}
	if i, ok := xAxis.Species(); ok {
		return &RefLine{Orientation: Vertical, Value: eq[i]}
	}
	return nil
}
