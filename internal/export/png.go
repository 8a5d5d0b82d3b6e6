package export

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	popplot "github.com/san-kum/popsim/internal/plot"
)

const pngDPI = 150

var (
	lineColor = color.RGBA{A: 255}
	refColor  = color.RGBA{R: 255, A: 255}
)

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot) {
	p.X.Label.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Padding = vg.Points(6)
	p.Y.Label.Padding = vg.Points(6)

	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)

	p.X.Tick.Marker = limitedTicker(6, "%.2f")
	p.Y.Tick.Marker = limitedTicker(6, "%.2f")
}

// quiver draws one arrow per segment, head at the segment end, with the
// arrow length equal to the segment length in data units.
type quiver struct {
	arrows []popplot.Arrow
	draw.LineStyle
	Head vg.Length
}

func newQuiver(arrows []popplot.Arrow) *quiver {
	return &quiver{
		arrows: arrows,
		LineStyle: draw.LineStyle{
			Color: lineColor,
			Width: vg.Points(0.6),
		},
		Head: vg.Points(4),
	}
}

func (q *quiver) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)

	for _, a := range q.arrows {
		x0, y0 := trX(a.From.X), trY(a.From.Y)
		x1, y1 := trX(a.To.X), trY(a.To.Y)

		dx, dy := float64(x1-x0), float64(y1-y0)
		length := math.Hypot(dx, dy)
		if length == 0 || math.IsNaN(length) {
			continue
		}
		c.StrokeLine2(q.LineStyle, x0, y0, x1, y1)

		head := math.Min(float64(q.Head), length*0.6)
		ux, uy := dx/length, dy/length
		// barbs at +-25 degrees from the shaft
		const cos, sin = 0.9063, 0.4226
		left := vg.Point{
			X: x1 - vg.Length(head*(ux*cos-uy*sin)),
			Y: y1 - vg.Length(head*(uy*cos+ux*sin)),
		}
		right := vg.Point{
			X: x1 - vg.Length(head*(ux*cos+uy*sin)),
			Y: y1 - vg.Length(head*(uy*cos-ux*sin)),
		}
		c.FillPolygon(q.Color, []vg.Point{{X: x1, Y: y1}, left, right})
	}
}

func (q *quiver) DataRange() (xmin, xmax, ymin, ymax float64) {
	fig := popplot.Figure{Arrows: q.arrows}
	return fig.Bounds()
}

// NewPlot converts a figure into a gonum plot.
func NewPlot(fig popplot.Figure) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = fig.XLabel
	p.Y.Label.Text = fig.YLabel
	stylePlot(p)

	switch fig.Kind {
	case popplot.KindTimeSeries:
		if len(fig.Line) > 0 {
			pts := make(plotter.XYs, len(fig.Line))
			for i, pt := range fig.Line {
				pts[i].X = pt.X
				pts[i].Y = pt.Y
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return nil, err
			}
			line.LineStyle.Width = vg.Points(1.5)
			line.LineStyle.Color = lineColor
			p.Add(line)
		}
	case popplot.KindPhase:
		if len(fig.Arrows) > 0 {
			p.Add(newQuiver(fig.Arrows))
		}
	}

	minX, maxX, minY, maxY := fig.Bounds()
	if rl := fig.RefLine; rl != nil {
		var pts plotter.XYs
		if rl.Orientation == popplot.Horizontal {
			pts = plotter.XYs{{X: minX, Y: rl.Value}, {X: maxX, Y: rl.Value}}
		} else {
			pts = plotter.XYs{{X: rl.Value, Y: minY}, {X: rl.Value, Y: maxY}}
		}
		ref, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		ref.LineStyle.Width = vg.Points(1.5)
		ref.LineStyle.Color = refColor
		p.Add(ref)
	}

	if m := fig.Marker; m != nil {
		dot, err := plotter.NewScatter(plotter.XYs{{X: m.X, Y: m.Y}})
		if err != nil {
			return nil, err
		}
		dot.GlyphStyle.Color = refColor
		dot.GlyphStyle.Radius = vg.Points(4)
		dot.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(dot)
	}

	padX := (maxX - minX) * 0.05
	padY := (maxY - minY) * 0.05
	p.X.Min, p.X.Max = minX-padX, maxX+padX
	p.Y.Min, p.Y.Max = minY-padY, maxY+padY

	return p, nil
}

// PNG renders fig at the given size in inches.
func PNG(w io.Writer, fig popplot.Figure, widthIn, heightIn float64) error {
	p, err := NewPlot(fig)
	if err != nil {
		return err
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(pngDPI),
	)
	p.Draw(draw.New(c))

	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(w); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return nil
}

// SaveFile writes fig to path, choosing PNG or SVG by extension. Sizes are
// in pixels; PNG converts them at pngDPI.
func SaveFile(path string, fig popplot.Figure, width, height int) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".svg" {
		return fmt.Errorf("unsupported image format %q (want .png or .svg)", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if ext == ".svg" {
		_, err = bw.WriteString(SVG(fig, width, height))
	} else {
		err = PNG(bw, fig, float64(width)/pngDPI, float64(height)/pngDPI)
	}
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
