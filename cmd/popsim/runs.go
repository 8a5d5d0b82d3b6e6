package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/popsim/internal/analysis"
	"github.com/san-kum/popsim/internal/experiment"
	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/optim"
	"github.com/san-kum/popsim/internal/plot"
	"github.com/san-kum/popsim/internal/sim"
	"github.com/san-kum/popsim/internal/storage"
	"github.com/spf13/cobra"
)

func listRuns(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	ix, err := openIndex()
	if err != nil {
		return err
	}
	if ix != nil {
		defer ix.Close()
		entries, err := ix.Recent(limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "no runs found")
			return nil
		}
		return printIndex(out, entries)
	}

	runs, err := openStore().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tLABEL\tINTEG\tBD1\tSTEADY STATE\tSTEPS")
	for _, run := range runs {
		steady := "none"
		if eq := run.Equilibrium; eq != nil {
			steady = fmt.Sprintf("%.3g/%.3g/%.3g", eq.X1, eq.X2, eq.X3)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%s\t%s\n",
			shortID(run.ID),
			humanize.Time(run.Timestamp),
			run.Label,
			run.Integrator,
			run.Coefficients.BD1,
			steady,
			humanize.Comma(int64(run.Stats.Steps)),
		)
	}
	return w.Flush()
}

func printIndex(out io.Writer, entries []storage.IndexEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tLABEL\tINTEG\tBD1\tSTEADY STATE\tSTABILITY\tSTEPS\tELAPSED")
	for _, e := range entries {
		steady := "none"
		if e.HasEquilibrium() {
			steady = fmt.Sprintf("%.3g/%.3g/%.3g", e.X1Star.Float64, e.X2Star.Float64, e.X3Star.Float64)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%s\t%s\t%s\t%v\n",
			shortID(e.ID),
			humanize.Time(e.Time()),
			e.Label,
			e.Integrator,
			e.BD1,
			steady,
			e.Stability,
			humanize.Comma(int64(e.Steps)),
			time.Duration(e.ElapsedNano).Round(time.Microsecond),
		)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func exportCSV(cmd *cobra.Command, args []string) error {
	tr, err := openStore().LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	return storage.ExportCSV(cmd.OutOrStdout(), tr)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := openStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tr, err := st.LoadTrajectory(meta.ID)
	if err != nil {
		return err
	}
	return storage.ExportJSON(cmd.OutOrStdout(), *meta, tr)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	meta, res, err := resultFor(cmd.Context(), args)
	if err != nil {
		return err
	}
	if meta != nil {
		fmt.Fprintf(out, "analysis: %s\n\n", meta.ID)
	}

	printEquilibrium(out, res)
	if st := res.Stability; st != nil {
		fmt.Fprintf(out, "spectral abscissa: %.4g\n", st.SpectralAbscissa())
		for i, ev := range st.Eigenvalues {
			fmt.Fprintf(out, "  lambda%d = %.4g %+.4gi\n", i+1, real(ev), imag(ev))
		}
	}
	fmt.Fprintln(out)
	printSummary(out, res.Summary())

	periods := analysis.DominantPeriods(res.Trajectory)
	fmt.Fprintln(out, "\ndominant periods:")
	for i, p := range periods {
		if p == 0 {
			fmt.Fprintf(out, "  x%d: none\n", i+1)
		} else {
			fmt.Fprintf(out, "  x%d: %.3g\n", i+1, p)
		}
	}

	ps := analysis.PowerSpectrum(res.Trajectory.Series(0))
	if len(ps) > 8 {
		graph := asciigraph.Plot(ps[1:len(ps)/4],
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption("power spectrum (x1)"),
		)
		fmt.Fprintln(out)
		fmt.Fprintln(out, graph)
	}
	return nil
}

func sweep(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	name := args[0]

	axis, err := plot.ParseAxis(species)
	if err != nil {
		return err
	}
	idx, ok := axis.Species()
	if !ok {
		return fmt.Errorf("sweep plots a population, got %q", species)
	}
	if sweepN < 2 {
		return fmt.Errorf("need at least 2 steps, got %d", sweepN)
	}

	base, err := cfg.CoefficientSet()
	if err != nil {
		return err
	}
	factory, err := experiment.NewRegistry().Factory(cfg.Integrator)
	if err != nil {
		return err
	}

	opts := analysis.SweepOptions{
		Config:        cfg.SimConfig(),
		NewIntegrator: factory,
		Workers:       workers,
	}
	start := time.Now()
	points, err := analysis.Sweep(cmd.Context(), base, name, sim.Linspace(sweepLo, sweepHi, sweepN), opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "sweep of %s over [%g, %g], %d runs in %v\n\n", name, sweepLo, sweepHi, len(points), time.Since(start).Round(time.Millisecond))
	fmt.Fprint(out, analysis.SweepToASCII(points, idx, 70, 16))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tX1*\tX2*\tX3*\tFINAL %s\n", name, axis)
	for _, p := range points {
		if p.EquilibriumErr != nil {
			fmt.Fprintf(w, "%.4g\t-\t-\t-\t%.4g\n", p.Value, p.Final[idx])
			continue
		}
		eq := p.Equilibrium
		fmt.Fprintf(w, "%.4g\t%.4g\t%.4g\t%.4g\t%.4g\n", p.Value, eq.X1, eq.X2, eq.X3, p.Final[idx])
	}
	return w.Flush()
}

func fit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if fitN < 1 {
		return fmt.Errorf("need at least 1 step, got %d", fitN)
	}

	base, err := cfg.CoefficientSet()
	if err != nil {
		return err
	}

	var target [3]float64
	switch len(fitTarget) {
	case 0:
		eq, err := models.Predict(base)
		if err != nil {
			return fmt.Errorf("no --target given and %w", err)
		}
		target = eq.Values()
	case 3:
		copy(target[:], fitTarget)
	default:
		return fmt.Errorf("--target needs 3 values, got %d", len(fitTarget))
	}

	var objective optim.Objective
	switch fitObjective {
	case "equilibrium":
		objective = optim.EquilibriumDistance(target)
	case "final":
		objective = optim.FinalDistance(target)
	case "settle":
		objective = optim.SettlingTime()
	default:
		return fmt.Errorf("unknown objective %q", fitObjective)
	}

	ranges := make([][]float64, len(fitParams))
	for i := range ranges {
		ranges[i] = sim.Linspace(fitLo, fitHi, fitN)
	}
	g, err := optim.NewGridSearch(fitParams, ranges)
	if err != nil {
		return err
	}

	start := time.Now()
	best, err := g.Search(cmd.Context(), base, runOptions(), objective)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d runs in %v, best score %.4g\n", best.Evaluated, time.Since(start).Round(time.Millisecond), best.Score)
	for _, name := range fitParams {
		fmt.Fprintf(out, "  %s = %.4g\n", name, best.Params[name])
	}
	if eq, err := models.Predict(best.Coefficients); err == nil {
		fmt.Fprintf(out, "steady state: x1*=%.4g x2*=%.4g x3*=%.4g\n", eq.X1, eq.X2, eq.X3)
	}
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	names := args
	if len(names) == 0 {
		names = experiment.NewRegistry().ListIntegrators()
	}

	c, err := cfg.CoefficientSet()
	if err != nil {
		return err
	}

	var ref *experiment.Result
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tREJECTED\tEVALS\tTIME\tFINAL\tMAX DIFF")
	for _, name := range names {
		opts := runOptions()
		opts.Integrator = name
		res, err := experiment.Run(cmd.Context(), c, opts)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}
		diff := "-"
		if ref == nil {
			ref = res
		} else {
			diff = fmt.Sprintf("%.2e", maxDiff(ref.Trajectory, res.Trajectory))
		}
		final := res.Trajectory.Final()
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%v\t%.4f/%.4f/%.4f\t%s\n",
			name, res.Stats.Steps, res.Stats.Rejected, res.Stats.Evals,
			res.Elapsed.Round(time.Microsecond), final[0], final[1], final[2], diff)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if ref == nil {
		return errors.New("every integrator failed")
	}
	return nil
}

// maxDiff is the largest absolute difference between two trajectories on
// the same grid.
func maxDiff(a, b sim.Trajectory) float64 {
	d := 0.0
	for k := 0; k < a.Len() && k < b.Len(); k++ {
		for i := range a.States[k] {
			d = math.Max(d, math.Abs(a.States[k][i]-b.States[k][i]))
		}
	}
	return d
}

func deleteRun(cmd *cobra.Command, args []string) error {
	st := openStore()
	id, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	if err := st.Delete(id); err != nil {
		return err
	}

	ix, err := openIndex()
	if err != nil {
		return err
	}
	if ix != nil {
		defer ix.Close()
		if err := ix.Remove(id); err != nil && !errors.Is(err, storage.ErrRunNotFound) {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
	return nil
}
