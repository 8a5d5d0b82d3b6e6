package viz

import (
	"strings"
	"testing"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)

	c.Set(0, 0)
	if c.Grid[0][0] != 0x2801 {
		t.Errorf("expected dot 1, got %U", c.Grid[0][0])
	}

	c.Set(1, 3)
	if c.Grid[0][0] != 0x2881 {
		t.Errorf("expected dots 1 and 8, got %U", c.Grid[0][0])
	}

	// out of range is ignored
	c.Set(-1, 0)
	c.Set(4, 0)
	c.Set(0, 4)
	if c.Grid[0][1] != blank {
		t.Errorf("expected untouched cell, got %U", c.Grid[0][1])
	}
}

func TestCanvasMark(t *testing.T) {
	c := NewCanvas(2, 2)
	c.Mark(2, 5, MarkerGlyph)
	if c.Grid[1][1] != MarkerGlyph {
		t.Fatalf("expected marker in cell (1,1), got %U", c.Grid[1][1])
	}

	c.Set(3, 6)
	if c.Grid[1][1] != MarkerGlyph {
		t.Error("Set overwrote the marker")
	}

	c.Clear()
	if c.Grid[1][1] != blank {
		t.Error("Clear kept the marker")
	}
}

func TestCanvasLines(t *testing.T) {
	c := NewCanvas(4, 1)
	c.DrawLine(0, 0, 7, 0)
	for i, r := range c.Grid[0] {
		if r != 0x2809 {
			t.Errorf("cell %d: got %U, want U+2809", i, r)
		}
	}

	c.Clear()
	c.DrawDashed(0, 0, 7, 0)
	want := []rune{0x2809, blank, 0x2809, blank}
	for i, r := range c.Grid[0] {
		if r != want[i] {
			t.Errorf("dashed cell %d: got %U, want %U", i, r, want[i])
		}
	}

	c.Clear()
	c.DrawLine(0, 0, 0, 3)
	if c.Grid[0][0] != 0x2847 {
		t.Errorf("vertical line: got %U, want U+2847", c.Grid[0][0])
	}
}

func TestCanvasString(t *testing.T) {
	c := NewCanvas(3, 2)
	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lines))
	}
	for _, l := range lines {
		if len([]rune(l)) != 3 {
			t.Errorf("expected 3 cells, got %q", l)
		}
	}
	if w, h := c.PixelSize(); w != 6 || h != 8 {
		t.Errorf("expected 6x8 pixels, got %dx%d", w, h)
	}
}
