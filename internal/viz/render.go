package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/popsim/internal/plot"
)

// MarkerGlyph is drawn at the predicted steady state of a phase plot.
const MarkerGlyph = '●'

// RenderFigure draws fig as plain text about width columns wide and height
// rows tall. Time series against t go through asciigraph with the steady
// state as a second, flat series; everything else is drawn on a braille
// canvas.
func RenderFigure(fig plot.Figure, width, height int) string {
	if width < 20 {
		width = 20
	}
	if height < 4 {
		height = 4
	}
	if fig.Kind == plot.KindTimeSeries && fig.XAxis == plot.Time && len(fig.Line) > 1 {
		return renderGraph(fig, width, height)
	}
	return renderCanvas(fig, width, height)
}

func renderGraph(fig plot.Figure, width, height int) string {
	ys := make([]float64, len(fig.Line))
	for i, p := range fig.Line {
		ys[i] = p.Y
	}
	data := [][]float64{ys}
	legends := []string{fig.YLabel}
	colors := []asciigraph.AnsiColor{asciigraph.Default}
	if fig.RefLine != nil && fig.RefLine.Orientation == plot.Horizontal {
		flat := make([]float64, len(ys))
		for i := range flat {
			flat[i] = fig.RefLine.Value
		}
		data = append(data, flat)
		legends = append(legends, "steady state")
		colors = append(colors, asciigraph.Red)
	}

	first, last := fig.Line[0].X, fig.Line[len(fig.Line)-1].X
	chart := asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width-12),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
		asciigraph.Caption(fmt.Sprintf("%s vs %s, %s = %.3g..%.3g", fig.YLabel, fig.XLabel, fig.XLabel, first, last)))
	return chart + "\n"
}

func renderCanvas(fig plot.Figure, width, height int) string {
	const gutter = 10
	c := NewCanvas(width-gutter, height)
	pw, ph := c.PixelSize()
	minX, maxX, minY, maxY := fig.Bounds()

	px := func(x float64) int { return scale(x, minX, maxX, pw-1) }
	py := func(y float64) int { return ph - 1 - scale(y, minY, maxY, ph-1) }

	if ref := fig.RefLine; ref != nil && !math.IsNaN(ref.Value) {
		if ref.Orientation == plot.Horizontal {
			y := py(ref.Value)
			c.DrawDashed(0, y, pw-1, y)
		} else {
			x := px(ref.Value)
			c.DrawDashed(x, 0, x, ph-1)
		}
	}
	for i := 1; i < len(fig.Line); i++ {
		a, b := fig.Line[i-1], fig.Line[i]
		c.DrawLine(px(a.X), py(a.Y), px(b.X), py(b.Y))
	}
	for _, a := range fig.Arrows {
		c.DrawLine(px(a.From.X), py(a.From.Y), px(a.To.X), py(a.To.Y))
	}
	if m := fig.Marker; m != nil {
		c.Mark(px(m.X), py(m.Y), MarkerGlyph)
	}

	var b strings.Builder
	rows := c.Lines()
	for i, row := range rows {
		label := ""
		switch i {
		case 0:
			label = formatTick(maxY)
		case len(rows) - 1:
			label = formatTick(minY)
		}
		fmt.Fprintf(&b, "%*s ┤%s\n", gutter-2, label, row)
	}
	fmt.Fprintf(&b, "%*s └%s\n", gutter-2, "", strings.Repeat("─", c.Width))
	lo, hi := formatTick(minX), formatTick(maxX)
	pad := c.Width - len(lo) - len(hi)
	if pad < 1 {
		pad = 1
	}
	fmt.Fprintf(&b, "%*s  %s%s%s\n", gutter-2, "", lo, strings.Repeat(" ", pad), hi)
	fmt.Fprintf(&b, "%*s  %s vs %s", gutter-2, "", fig.YLabel, fig.XLabel)
	if fig.Marker != nil {
		fmt.Fprintf(&b, "  %c steady state (%.3g, %.3g)", MarkerGlyph, fig.Marker.X, fig.Marker.Y)
	}
	b.WriteString("\n")
	return b.String()
}

// scale maps v in [lo, hi] onto 0..n.
func scale(v, lo, hi float64, n int) int {
	if hi <= lo || math.IsNaN(v) {
		return 0
	}
	f := math.Round((v - lo) / (hi - lo) * float64(n))
	if f < 0 {
		return 0
	}
	if f > float64(n) {
		return n
	}
	return int(f)
}

func formatTick(v float64) string {
	return fmt.Sprintf("%.3g", v)
}
