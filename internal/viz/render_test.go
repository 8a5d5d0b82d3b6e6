package viz

import (
	"context"
	"strings"
	"testing"

	"github.com/san-kum/popsim/internal/experiment"
	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/plot"
)

func defaultResult(t *testing.T) *experiment.Result {
	t.Helper()
	res, err := experiment.Run(context.Background(), models.DefaultCoefficients(), experiment.DefaultOptions())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return res
}

func TestRenderFigure_TimeSeries(t *testing.T) {
	fig := plot.Select(plot.Time, plot.X1, defaultResult(t))
	out := RenderFigure(fig, 80, 10)

	if !strings.Contains(out, "steady state") {
		t.Error("expected a steady state legend")
	}
	if !strings.Contains(out, "x1 vs t") {
		t.Errorf("expected caption, got:\n%s", out)
	}
}

func TestRenderFigure_TimeOnVerticalAxis(t *testing.T) {
	fig := plot.Select(plot.X2, plot.Time, defaultResult(t))
	out := RenderFigure(fig, 60, 10)

	if !strings.Contains(out, "t vs x2") {
		t.Errorf("expected axis caption, got:\n%s", out)
	}
	if strings.ContainsRune(out, MarkerGlyph) {
		t.Error("time series should not carry an equilibrium marker")
	}
}

func TestRenderFigure_Phase(t *testing.T) {
	res := defaultResult(t)
	fig := plot.Select(plot.X1, plot.X2, res)
	out := RenderFigure(fig, 60, 12)

	if strings.Count(out, string(MarkerGlyph)) != 2 {
		t.Errorf("expected the marker once on the canvas and once in the legend, got:\n%s", out)
	}
	if !strings.Contains(out, "x2 vs x1") {
		t.Errorf("expected axis caption, got:\n%s", out)
	}
	// 12 canvas rows, the x axis, tick labels and the caption
	if n := strings.Count(out, "\n"); n != 15 {
		t.Errorf("expected 15 lines, got %d", n)
	}
}

func TestRenderFigure_NoEquilibrium(t *testing.T) {
	c := models.DefaultCoefficients()
	c.A21, c.A32, c.A33 = 0, 0, 0
	res, err := experiment.Run(context.Background(), c, experiment.DefaultOptions())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	out := RenderFigure(plot.Select(plot.X1, plot.X3, res), 60, 10)
	if strings.ContainsRune(out, MarkerGlyph) {
		t.Error("expected no marker without an equilibrium")
	}

	out = RenderFigure(plot.Select(plot.Time, plot.X1, res), 60, 10)
	if strings.Contains(out, "steady state") {
		t.Error("expected no steady state series without an equilibrium")
	}
}

func TestRenderFigure_Empty(t *testing.T) {
	out := RenderFigure(plot.Select(plot.X1, plot.X2, nil), 40, 6)
	if out == "" {
		t.Error("expected an empty frame")
	}
	if strings.ContainsRune(out, MarkerGlyph) {
		t.Error("expected no marker")
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		v, lo, hi float64
		n, want   int
	}{
		{0, 0, 10, 100, 0},
		{10, 0, 10, 100, 100},
		{5, 0, 10, 100, 50},
		{-3, 0, 10, 100, 0},
		{13, 0, 10, 100, 100},
		{1, 1, 1, 100, 0},
	}
	for _, tt := range tests {
		if got := scale(tt.v, tt.lo, tt.hi, tt.n); got != tt.want {
			t.Errorf("scale(%v, %v, %v, %d) = %d, want %d", tt.v, tt.lo, tt.hi, tt.n, got, tt.want)
		}
	}
}
