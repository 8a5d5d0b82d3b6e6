package export

import (
	"fmt"
	"math"
	"strings"

	popplot "github.com/san-kum/popsim/internal/plot"
)

// Style is the palette shared by the SVG and PNG renderers.
type Style struct {
	Background string
	Stroke     string
	Reference  string
	Text       string
}

var DefaultStyle = Style{
	Background: "#ffffff",
	Stroke:     "#000000",
	Reference:  "#ff0000",
	Text:       "#333333",
}

const svgMargin = 48.0

type frame struct {
	minX, maxX, minY, maxY float64
	left, top, w, h        float64
}

func newFrame(fig popplot.Figure, width, height int) frame {
	minX, maxX, minY, maxY := fig.Bounds()

	// pad by 10% like the terminal plots
	rangeX := maxX - minX
	rangeY := maxY - minY
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1

	return frame{
		minX: minX, maxX: maxX, minY: minY, maxY: maxY,
		left: svgMargin, top: svgMargin / 2,
		w: math.Max(1, float64(width)-1.5*svgMargin),
		h: math.Max(1, float64(height)-1.5*svgMargin),
	}
}

func (f frame) x(v float64) float64 { return f.left + (v-f.minX)/(f.maxX-f.minX)*f.w }
func (f frame) y(v float64) float64 { return f.top + f.h - (v-f.minY)/(f.maxY-f.minY)*f.h }

// SVG renders a figure: black trajectory line or arrows, red steady-state
// line or dot, and labelled axes.
func SVG(fig popplot.Figure, width, height int) string {
	return SVGWithStyle(fig, width, height, DefaultStyle)
}

func SVGWithStyle(fig popplot.Figure, width, height int, style Style) string {
	f := newFrame(fig, width, height)
	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<defs>
<marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="5" markerHeight="5" orient="auto">
<path d="M0,0 L10,5 L0,10 z" fill="%s"/>
</marker>
</defs>
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, style.Stroke, style.Background)

	writeAxes(&sb, fig, f, style)

	switch fig.Kind {
	case popplot.KindTimeSeries:
		writeLine(&sb, fig.Line, f, style.Stroke)
	case popplot.KindPhase:
		fmt.Fprintf(&sb, "<g stroke=\"%s\" stroke-width=\"1\">\n", style.Stroke)
		for _, a := range fig.Arrows {
			if a.From == a.To {
				continue
			}
			fmt.Fprintf(&sb, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" marker-end="url(#arrow)"/>
`, f.x(a.From.X), f.y(a.From.Y), f.x(a.To.X), f.y(a.To.Y))
		}
		sb.WriteString("</g>\n")
	}

	if rl := fig.RefLine; rl != nil {
		if rl.Orientation == popplot.Horizontal {
			fmt.Fprintf(&sb, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1.5"/>
`, f.left, f.y(rl.Value), f.left+f.w, f.y(rl.Value), style.Reference)
		} else {
			fmt.Fprintf(&sb, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1.5"/>
`, f.x(rl.Value), f.top, f.x(rl.Value), f.top+f.h, style.Reference)
		}
	}

	if m := fig.Marker; m != nil {
		fmt.Fprintf(&sb, `<circle cx="%.2f" cy="%.2f" r="4" fill="%s"/>
`, f.x(m.X), f.y(m.Y), style.Reference)
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

func writeLine(sb *strings.Builder, pts []popplot.Point, f frame, stroke string) {
	if len(pts) < 2 {
		return
	}
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke)
	for i, p := range pts {
		if i == 0 {
			fmt.Fprintf(sb, "%.2f,%.2f", f.x(p.X), f.y(p.Y))
		} else {
			fmt.Fprintf(sb, " L%.2f,%.2f", f.x(p.X), f.y(p.Y))
		}
	}
	sb.WriteString("\"/>\n")
}

func writeAxes(sb *strings.Builder, fig popplot.Figure, f frame, style Style) {
	bottom := f.top + f.h
	fmt.Fprintf(sb, `<g stroke="%s" stroke-width="1">
<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"/>
<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"/>
</g>
`, style.Text, f.left, bottom, f.left+f.w, bottom, f.left, f.top, f.left, bottom)

	fmt.Fprintf(sb, `<g fill="%s" font-family="sans-serif" font-size="11">
<text x="%.2f" y="%.2f" text-anchor="start">%.3g</text>
<text x="%.2f" y="%.2f" text-anchor="end">%.3g</text>
<text x="%.2f" y="%.2f" text-anchor="end">%.3g</text>
<text x="%.2f" y="%.2f" text-anchor="end">%.3g</text>
<text x="%.2f" y="%.2f" text-anchor="middle" font-size="13">%s</text>
<text x="%.2f" y="%.2f" text-anchor="middle" font-size="13" transform="rotate(-90 %.2f %.2f)">%s</text>
</g>
`, style.Text,
		f.left, bottom+14, f.minX,
		f.left+f.w, bottom+14, f.maxX,
		f.left-4, bottom, f.minY,
		f.left-4, f.top+10, f.maxY,
		f.left+f.w/2, bottom+30, fig.XLabel,
		f.left-30, f.top+f.h/2, f.left-30, f.top+f.h/2, fig.YLabel)
}
