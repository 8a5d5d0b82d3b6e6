package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/plot"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Integrator != "rk45" {
		t.Errorf("expected integrator rk45, got %s", cfg.Integrator)
	}
	sc := cfg.SimConfig()
	if sc.TStart != 0 || sc.TEnd != 50 || sc.Samples != 500 {
		t.Errorf("expected [0, 50] with 500 samples, got %+v", sc)
	}
	if cfg.Plot.X != plot.X1 || cfg.Plot.Y != plot.X2 {
		t.Errorf("expected x1/x2 axes, got %v/%v", cfg.Plot.X, cfg.Plot.Y)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	c, err := cfg.CoefficientSet()
	if err != nil {
		t.Fatalf("coefficient set: %v", err)
	}
	if c != models.DefaultCoefficients() {
		t.Errorf("expected default coefficients, got %+v", c)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popsim.yaml")
	data := `
integrator: rk4
simulation:
  t_end: 20
  samples: 200
coefficients:
  bd1: 2.0
  a23: 0.25
plot:
  x: t
  y: x3
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Integrator != "rk4" {
		t.Errorf("expected rk4, got %s", cfg.Integrator)
	}
	if cfg.Simulation.TEnd != 20 || cfg.Simulation.Samples != 200 {
		t.Errorf("unexpected simulation block: %+v", cfg.Simulation)
	}
	if cfg.Simulation.RTol != 1e-3 {
		t.Errorf("missing keys should keep defaults, got rtol %g", cfg.Simulation.RTol)
	}
	if cfg.Plot.X != plot.Time || cfg.Plot.Y != plot.X3 {
		t.Errorf("expected t/x3, got %v/%v", cfg.Plot.X, cfg.Plot.Y)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log block: %+v", cfg.Log)
	}

	c, err := cfg.CoefficientSet()
	if err != nil {
		t.Fatal(err)
	}
	if c.BD1 != 2.0 || c.A23 != 0.25 || c.D2 != 0.5 {
		t.Errorf("unexpected coefficients: %+v", c)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad axis", "plot:\n  x: x7\n"},
		{"unknown coefficient", "coefficients:\n  a13: 1\n"},
		{"negative coefficient", "coefficients:\n  a12: -1\n"},
		{"bad span", "simulation:\n  t_end: -5\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"not yaml", "integrator: [rk4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "popsim.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected load error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popsim.yaml")
	cfg := GetPreset("oscillating")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Plot != cfg.Plot {
		t.Errorf("plot axes changed: %+v vs %+v", loaded.Plot, cfg.Plot)
	}
	for k, v := range cfg.Coefficients {
		if loaded.Coefficients[k] != v {
			t.Errorf("coefficient %s: got %g, want %g", k, loaded.Coefficients[k], v)
		}
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("top-predator-collapse")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	c, err := cfg.CoefficientSet()
	if err != nil {
		t.Fatal(err)
	}
	if c.D3 != 3 {
		t.Errorf("expected d3 3, got %g", c.D3)
	}
	eq, err := models.Predict(c)
	if err != nil {
		t.Fatal(err)
	}
	if eq.Feasible || eq.X3 >= 0 {
		t.Errorf("expected negative x3*, got %+v", eq)
	}

	classroom := GetPreset("classroom")
	c, _ = classroom.CoefficientSet()
	if c != models.DefaultCoefficients() {
		t.Error("classroom preset should use the defaults")
	}

	decoupled, _ := GetPreset("decoupled").CoefficientSet()
	if decoupled.A12 != 0 || decoupled.A11 != 0.5 {
		t.Errorf("unexpected decoupled set: %+v", decoupled)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestGetPreset_DoesNotShareState(t *testing.T) {
	a := GetPreset("oscillating")
	a.Coefficients["bd1"] = 99
	b := GetPreset("oscillating")
	if b.Coefficients["bd1"] != 1 {
		t.Errorf("preset mutated through a returned config: bd1 = %g", b.Coefficients["bd1"])
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	want := []string{"classroom", "decoupled", "oscillating", "top-predator-collapse"}
	if len(presets) != len(want) {
		t.Fatalf("expected %v, got %v", want, presets)
	}
	for i := range want {
		if presets[i] != want[i] {
			t.Errorf("expected %v, got %v", want, presets)
		}
	}
	for _, name := range presets {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestClone(t *testing.T) {
	cfg := GetPreset("decoupled")
	clone := cfg.Clone()

	clone.Coefficients["a12"] = 9
	clone.Plot.X = plot.X3
	if cfg.Coefficients["a12"] != 0 {
		t.Errorf("clone shares the coefficient map")
	}
	if cfg.Plot.X != plot.Time {
		t.Errorf("expected original x axis t, got %v", cfg.Plot.X)
	}
}
