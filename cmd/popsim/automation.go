package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/san-kum/popsim/internal/automation"
	"github.com/san-kum/popsim/internal/experiment"
	"github.com/spf13/cobra"
)

func runScenario(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	results, err := automation.RunScenario(cmd.Context(), scenario, cfg, slog.Default())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d steps\n", scenario.Name, len(results))
	if scenario.Description != "" {
		fmt.Fprintln(out, scenario.Description)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tINTEG\tSTEADY STATE\tFINAL\tSETTLED\tRUN ID")
	for _, r := range results {
		res := r.Result
		steady := "none"
		if res.HasEquilibrium() {
			steady = fmt.Sprintf("%.3g/%.3g/%.3g", res.Equilibrium.X1, res.Equilibrium.X2, res.Equilibrium.X3)
		}
		final := res.Trajectory.Final()
		settled := "no"
		if t := res.Summary().SettlingTime; t >= 0 {
			settled = fmt.Sprintf("t=%.3g", t)
		}

		id := "-"
		if r.Step.Save {
			if id, err = saveResult(res, r.Step.Name); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3g/%.3g/%.3g\t%s\t%s\n",
			r.Step.Name, res.Integrator, steady, final[0], final[1], final[2], settled, shortID(id))
	}
	return w.Flush()
}

// saveResult stores res under label and returns its id.
func saveResult(res *experiment.Result, label string) (string, error) {
	st := openStore()
	if err := st.Init(); err != nil {
		return "", err
	}
	meta, err := st.Save(res, label)
	if err != nil {
		return "", err
	}
	if err := recordRun(*meta); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	c, err := cfg.CoefficientSet()
	if err != nil {
		return err
	}
	factory, err := experiment.NewRegistry().Factory(cfg.Integrator)
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := automation.RunMonteCarlo(cmd.Context(), c, automation.MonteCarloConfig{
		Perturbation:  perturb,
		NumTrials:     trials,
		Seed:          seed,
		Workers:       workers,
		Sim:           cfg.SimConfig(),
		NewIntegrator: factory,
	})
	if err != nil {
		return err
	}

	converged, persisted := automation.MonteCarloStats(results)
	n := float64(len(results))
	fmt.Fprintf(out, "%d trials, initial populations perturbed by ±%.0f%%, %v\n",
		len(results), perturb*100, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "settled on the steady state: %d (%.1f%%)\n", converged, 100*float64(converged)/n)
	fmt.Fprintf(out, "all species persisted:       %d (%.1f%%)\n", persisted, 100*float64(persisted)/n)
	return nil
}
