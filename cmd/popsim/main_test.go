package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/popsim/internal/config"
	"github.com/san-kum/popsim/internal/dynamo"
	"github.com/san-kum/popsim/internal/plot"
	"github.com/san-kum/popsim/internal/sim"
	"github.com/spf13/cobra"
)

func testCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addSimFlags(cmd)
	addPlotFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	t.Cleanup(func() { configFile, preset = "", "" })
	return cmd
}

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := loadConfig(testCommand(t))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if c.Integrator != config.DefaultIntegrator {
		t.Errorf("expected integrator %s, got %s", config.DefaultIntegrator, c.Integrator)
	}
	if len(c.Coefficients) != 0 {
		t.Errorf("unchanged flags should not override coefficients, got %v", c.Coefficients)
	}
}

func TestLoadConfig_FlagsOverrideFileAndPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popsim.yaml")
	data := "integrator: rk4\ncoefficients:\n  a12: 0.7\n  d3: 0.2\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := testCommand(t, "--a12", "0.3", "--x", "t", "--samples", "100")
	configFile, preset = path, "top-predator-collapse"

	c, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if c.Integrator != "rk4" {
		t.Errorf("expected integrator from file, got %s", c.Integrator)
	}
	if got := c.Coefficients["a12"]; got != 0.3 {
		t.Errorf("expected flag a12 = 0.3, got %v", got)
	}
	if got := c.Coefficients["d3"]; got != 3 {
		t.Errorf("expected preset d3 = 3 over the file, got %v", got)
	}
	if c.Plot.X != plot.Time || c.Plot.Y != plot.X3 {
		t.Errorf("expected axes t/x3, got %v/%v", c.Plot.X, c.Plot.Y)
	}
	if c.Simulation.Samples != 100 {
		t.Errorf("expected 100 samples, got %d", c.Simulation.Samples)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("unknown preset", func(t *testing.T) {
		cmd := testCommand(t)
		preset = "nope"
		if _, err := loadConfig(cmd); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad axis", func(t *testing.T) {
		if _, err := loadConfig(testCommand(t, "--y", "x4")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("negative coefficient", func(t *testing.T) {
		if _, err := loadConfig(testCommand(t, "--a21=-1")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("one sample", func(t *testing.T) {
		if _, err := loadConfig(testCommand(t, "--samples", "1")); err == nil {
			t.Error("expected error")
		}
	})
}

func TestMaxDiff(t *testing.T) {
	a := sim.Trajectory{Times: []float64{0, 1}, States: []dynamo.State{{1, 2, 3}, {4, 5, 6}}}
	b := sim.Trajectory{Times: []float64{0, 1}, States: []dynamo.State{{1, 2, 3.5}, {4, 4, 6}}}
	if got := maxDiff(a, b); got != 1 {
		t.Errorf("maxDiff = %v, want 1", got)
	}
	if got := maxDiff(a, a); got != 0 {
		t.Errorf("maxDiff with itself = %v, want 0", got)
	}
}

func TestRootCmd_SweepAndFitKeepOwnRanges(t *testing.T) {
	newRootCmd()

	if sweepLo != 0.5 || sweepHi != 5 || sweepN != 20 {
		t.Errorf("sweep defaults: got [%g, %g] x %d, want [0.5, 5] x 20", sweepLo, sweepHi, sweepN)
	}
	if fitLo != 0.1 || fitHi != 2 || fitN != 8 {
		t.Errorf("fit defaults: got [%g, %g] x %d, want [0.1, 2] x 8", fitLo, fitHi, fitN)
	}
}

func TestRootCmd_SweepUsesSweepDefaults(t *testing.T) {
	t.Cleanup(func() { configFile, preset = "", "" })

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"sweep", "bd1", "--t-end", "5", "--samples", "20", "--data", t.TempDir()})
	if err := root.Execute(); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if !strings.Contains(out.String(), "sweep of bd1 over [0.5, 5], 20 runs") {
		t.Errorf("unexpected sweep header:\n%s", out.String())
	}
}
