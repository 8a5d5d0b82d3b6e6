package plot

import "math"

type Kind int

const (
	KindTimeSeries Kind = iota
	KindPhase
)

func (k Kind) String() string {
	if k == KindPhase {
		return "phase"
	}
	return "time series"
}

type Point struct {
	X, Y float64
}

// Arrow joins two consecutive samples of a phase trajectory.
type Arrow struct {
	From, To Point
}

type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// RefLine marks a predicted steady-state value across the whole plot.
type RefLine struct {
	Orientation Orientation
	Value       float64
}

// Figure is a backend-neutral description of one plot. Renderers draw the
// line for time series and the arrows for phase plots.
type Figure struct {
	Kind   Kind
	XAxis  Axis
	YAxis  Axis
	XLabel string
	YLabel string

	Line   []Point
	Arrows []Arrow

	RefLine *RefLine
	Marker  *Point
}

// Bounds returns the extent of everything drawn, reference line and marker
// included. Degenerate spans are widened to a unit interval.
func (f Figure) Bounds() (minX, maxX, minY, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)

	add := func(p Point) {
		if isFinite(p.X) {
			minX = math.Min(minX, p.X)
			maxX = math.Max(maxX, p.X)
		}
		if isFinite(p.Y) {
			minY = math.Min(minY, p.Y)
			maxY = math.Max(maxY, p.Y)
		}
	}

	for _, p := range f.Line {
		add(p)
	}
	for _, a := range f.Arrows {
		add(a.From)
		add(a.To)
	}
	if f.Marker != nil {
		add(*f.Marker)
	}
	if f.RefLine != nil && isFinite(f.RefLine.Value) {
		if f.RefLine.Orientation == Horizontal {
			minY = math.Min(minY, f.RefLine.Value)
			maxY = math.Max(maxY, f.RefLine.Value)
		} else {
			minX = math.Min(minX, f.RefLine.Value)
			maxX = math.Max(maxX, f.RefLine.Value)
		}
	}

	minX, maxX = widen(minX, maxX)
	minY, maxY = widen(minY, maxY)
	return
}

func widen(lo, hi float64) (float64, float64) {
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if hi == lo {
		return lo - 0.5, hi + 0.5
	}
	return lo, hi
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
