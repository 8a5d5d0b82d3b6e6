package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/popsim/internal/analysis"
	"github.com/san-kum/popsim/internal/config"
	"github.com/san-kum/popsim/internal/experiment"
	"github.com/san-kum/popsim/internal/export"
	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/plot"
	"github.com/san-kum/popsim/internal/storage"
	"github.com/san-kum/popsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	// persistent
	configFile string
	dataDir    string
	logLevel   string
	logFormat  string
	preset     string

	// simulation
	integrator string
	tEnd       float64
	samples    int
	rtol       float64
	atol       float64
	coefArgs   [13]float64

	// plotting
	xAxisFlag  string
	yAxisFlag  string
	plotWidth  int
	plotHeight int
	outFile    string

	// runs
	save    bool
	label   string
	limit   int
	jsonOut bool
	sweepLo float64
	sweepHi float64
	sweepN  int
	species string
	workers int

	// fitting
	fitParams    []string
	fitTarget    []float64
	fitObjective string
	fitLo        float64
	fitHi        float64
	fitN         int

	// monte carlo
	trials  int
	perturb float64
	seed    int64
)

// cfg is the effective configuration: file, then preset, then flags.
var cfg *config.Config

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flag definitions reset the bound
// package variables to their defaults.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "popsim",
		Short: "three species food chain lab",
		Long: "popsim integrates a three species Lotka-Volterra food chain and compares\n" +
			"the trajectory with the predicted coexistence state.\n\n" +
			"Without a subcommand it opens the interactive lab.",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.CoefficientSet()
			if err != nil {
				return err
			}
			return viz.RunLab(experiment.NewSession(c, runOptions()), cfg)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", config.DefaultLogFormat, "log format (text, json)")
	pf.StringVar(&preset, "preset", "", "start from a named preset")
	addSimFlags(rootCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and print the plot and summary",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	addPlotFlags(runCmd)
	runCmd.Flags().BoolVar(&save, "save", false, "store the run")
	runCmd.Flags().StringVar(&label, "label", "", "label for a stored run")

	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "print the predicted steady state and its stability",
		Args:  cobra.NoArgs,
		RunE:  predict,
	}
	addSimFlags(predictCmd)
	predictCmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run, or a fresh one without an id",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	addSimFlags(plotCmd)
	addPlotFlags(plotCmd)

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "write a plot to a PNG or SVG file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  renderRun,
	}
	addSimFlags(renderCmd)
	addPlotFlags(renderCmd)
	renderCmd.Flags().StringVarP(&outFile, "out", "o", "plot.png", "output file (.png or .svg)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a stored trajectory as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summary, stability and dominant periods",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeRun,
	}
	addSimFlags(analyzeCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [name]",
		Short: "vary one coefficient and plot the outcome",
		Args:  cobra.ExactArgs(1),
		RunE:  sweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&sweepLo, "from", 0.5, "first value")
	sweepCmd.Flags().Float64Var(&sweepHi, "to", 5, "last value")
	sweepCmd.Flags().IntVar(&sweepN, "steps", 20, "number of values")
	sweepCmd.Flags().StringVar(&species, "species", "x1", "population to plot (x1, x2, x3)")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent simulations (0 = GOMAXPROCS)")

	compareCmd := &cobra.Command{
		Use:   "compare [integrator1] [integrator2] ...",
		Short: "compare integrators on the same coefficients",
		RunE:  compareIntegrators,
	}
	addSimFlags(compareCmd)

	fitCmd := &cobra.Command{
		Use:   "fit",
		Short: "grid search coefficients towards a target state",
		Args:  cobra.NoArgs,
		RunE:  fit,
	}
	addSimFlags(fitCmd)
	fitCmd.Flags().StringSliceVar(&fitParams, "params", []string{"a12", "a23"}, "coefficients to search")
	fitCmd.Flags().Float64SliceVar(&fitTarget, "target", nil, "target populations x1,x2,x3 (default: the current steady state)")
	fitCmd.Flags().StringVar(&fitObjective, "objective", "equilibrium", "score: equilibrium, final or settle")
	fitCmd.Flags().Float64Var(&fitLo, "from", 0.1, "smallest value of each coefficient")
	fitCmd.Flags().Float64Var(&fitHi, "to", 2, "largest value of each coefficient")
	fitCmd.Flags().IntVar(&fitN, "steps", 8, "values per coefficient")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addSimFlags(scenarioCmd)

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "perturb the initial populations and count trials that settle",
		Args:  cobra.NoArgs,
		RunE:  monteCarlo,
	}
	addSimFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 100, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturb, "perturb", 0.2, "relative perturbation of each initial population, in [0, 1)")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")
	monteCarloCmd.Flags().IntVar(&workers, "workers", 0, "concurrent simulations (0 = GOMAXPROCS)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tAXES\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Fprintf(w, "%s\t%s/%s\t%s\n", name, p.X, p.Y, p.Description)
			}
			return w.Flush()
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	rootCmd.AddCommand(runCmd, predictCmd, plotCmd, renderCmd, listCmd, exportCSVCmd, exportJSONCmd,
		analyzeCmd, sweepCmd, fitCmd, compareCmd, scenarioCmd, monteCarloCmd, presetsCmd, deleteCmd)
	return rootCmd
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator ("+strings.Join(experiment.NewRegistry().ListIntegrators(), ", ")+")")
	f.Float64Var(&tEnd, "t-end", 50, "end of the time span")
	f.IntVar(&samples, "samples", 500, "number of output samples")
	f.Float64Var(&rtol, "rtol", 1e-3, "relative tolerance")
	f.Float64Var(&atol, "atol", 1e-6, "absolute tolerance")

	def := models.DefaultCoefficients()
	for i, name := range models.Names {
		v, _ := def.Get(name)
		f.Float64Var(&coefArgs[i], name, v, models.Label(name))
	}
}

func addPlotFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&xAxisFlag, "x", "", "horizontal axis (x1, x2, x3, t)")
	cmd.Flags().StringVar(&yAxisFlag, "y", "", "vertical axis (x1, x2, x3, t)")
	cmd.Flags().IntVar(&plotWidth, "width", 0, "plot width (columns, or pixels for render)")
	cmd.Flags().IntVar(&plotHeight, "height", 0, "plot height (rows, or pixels for render)")
}

// setup builds the effective configuration and installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg = c

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		c = loaded
	}

	if preset != "" {
		p, ok := config.Presets[preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		c.Apply(p)
	}

	// command line flags override file and preset values
	flags := cmd.Flags()
	if flags.Changed("data") {
		c.Storage.Dir = dataDir
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = logFormat
	}
	if flags.Changed("integrator") {
		c.Integrator = integrator
	}
	if flags.Changed("t-end") {
		c.Simulation.TEnd = tEnd
	}
	if flags.Changed("samples") {
		c.Simulation.Samples = samples
	}
	if flags.Changed("rtol") {
		c.Simulation.RTol = rtol
	}
	if flags.Changed("atol") {
		c.Simulation.ATol = atol
	}
	if flags.Changed("x") {
		a, err := plot.ParseAxis(xAxisFlag)
		if err != nil {
			return nil, err
		}
		c.Plot.X = a
	}
	if flags.Changed("y") {
		a, err := plot.ParseAxis(yAxisFlag)
		if err != nil {
			return nil, err
		}
		c.Plot.Y = a
	}
	for i, name := range models.Names {
		if !flags.Changed(name) {
			continue
		}
		if c.Coefficients == nil {
			c.Coefficients = make(map[string]float64)
		}
		c.Coefficients[name] = coefArgs[i]
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func runOptions() experiment.Options {
	return experiment.Options{
		Integrator: cfg.Integrator,
		Sim:        cfg.SimConfig(),
		Logger:     slog.Default(),
	}
}

func freshRun(ctx context.Context) (*experiment.Result, error) {
	c, err := cfg.CoefficientSet()
	if err != nil {
		return nil, err
	}
	return experiment.Run(ctx, c, runOptions())
}

// resultFor loads the stored run named by args, or runs the configured
// coefficients when no id is given.
func resultFor(ctx context.Context, args []string) (*storage.RunMetadata, *experiment.Result, error) {
	if len(args) == 0 {
		res, err := freshRun(ctx)
		return nil, res, err
	}
	return openStore().LoadResult(args[0])
}

func openStore() *storage.Store {
	return storage.New(cfg.Storage.Dir)
}

// openIndex returns nil when the index is switched off.
func openIndex() (*storage.Index, error) {
	if !cfg.Storage.Index {
		return nil, nil
	}
	if err := openStore().Init(); err != nil {
		return nil, err
	}
	return storage.OpenIndex(filepath.Join(cfg.Storage.Dir, "index.db"))
}

func runSimulation(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	res, err := freshRun(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprint(out, viz.RenderFigure(plot.Select(cfg.Plot.X, cfg.Plot.Y, res), sizeOr(plotWidth, 80), sizeOr(plotHeight, 16)))
	fmt.Fprintln(out)
	printEquilibrium(out, res)
	printSummary(out, res.Summary())
	fmt.Fprintf(out, "\n%s: %d steps, %d rejected, %d evaluations in %v\n",
		res.Integrator, res.Stats.Steps, res.Stats.Rejected, res.Stats.Evals, res.Elapsed)

	if !save {
		return nil
	}

	id, err := saveResult(res, label)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run id: %s\n", id)
	return nil
}

func recordRun(meta storage.RunMetadata) error {
	ix, err := openIndex()
	if err != nil || ix == nil {
		return err
	}
	defer ix.Close()
	return ix.Record(meta)
}

func predict(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	c, err := cfg.CoefficientSet()
	if err != nil {
		return err
	}

	eq, err := models.Predict(c)
	if errors.Is(err, models.ErrNoInteriorEquilibrium) {
		fmt.Fprintln(out, "no interior equilibrium")
		return nil
	}
	if err != nil {
		return err
	}
	report, err := analysis.Stability(c, eq)
	if err != nil {
		return err
	}

	if jsonOut {
		return writeJSON(out, struct {
			Equilibrium models.Equilibrium       `json:"equilibrium"`
			Stability   analysis.StabilityReport `json:"stability"`
		}{eq, report})
	}

	fmt.Fprintf(out, "x1* = %.6g\nx2* = %.6g\nx3* = %.6g\n", eq.X1, eq.X2, eq.X3)
	fmt.Fprintf(out, "feasible: %v\n", eq.Feasible)
	fmt.Fprintf(out, "stability: %s\n", report.Class)
	for i, ev := range report.Eigenvalues {
		fmt.Fprintf(out, "  lambda%d = %.4g %+.4gi\n", i+1, real(ev), imag(ev))
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, res, err := resultFor(cmd.Context(), args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if meta != nil {
		fmt.Fprintf(out, "run: %s\n\n", meta.ID)
	}
	fmt.Fprint(out, viz.RenderFigure(plot.Select(cfg.Plot.X, cfg.Plot.Y, res), sizeOr(plotWidth, 80), sizeOr(plotHeight, 16)))
	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	_, res, err := resultFor(cmd.Context(), args)
	if err != nil {
		return err
	}
	fig := plot.Select(cfg.Plot.X, cfg.Plot.Y, res)
	if err := export.SaveFile(outFile, fig, sizeOr(plotWidth, 900), sizeOr(plotHeight, 600)); err != nil {
		return err
	}
	slog.Info("plot written", "path", outFile, "kind", fig.Kind.String())
	return nil
}

func sizeOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func printEquilibrium(out io.Writer, res *experiment.Result) {
	if !res.HasEquilibrium() {
		fmt.Fprintln(out, "steady state: no interior equilibrium")
		return
	}
	eq := res.Equilibrium
	fmt.Fprintf(out, "steady state: x1*=%.4g x2*=%.4g x3*=%.4g", eq.X1, eq.X2, eq.X3)
	if !eq.Feasible {
		fmt.Fprint(out, " (not feasible)")
	}
	if res.Stability != nil {
		fmt.Fprintf(out, ", %s", res.Stability.Class)
	}
	fmt.Fprintln(out)
}

func printSummary(out io.Writer, s analysis.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SPECIES\tMIN\tMAX\tFINAL\tOFFSET")
	for i, sp := range s.Species {
		fmt.Fprintf(w, "x%d\t%.4g\t%.4g\t%.4g\t%.3g\n", i+1, sp.Min, sp.Max, sp.Final, sp.Offset)
	}
	w.Flush()

	if s.SettlingTime >= 0 {
		fmt.Fprintf(out, "distance to steady state: %.3g, settled by t=%.3g\n", s.Distance, s.SettlingTime)
	} else {
		fmt.Fprintf(out, "distance to steady state: %.3g, not settled\n", s.Distance)
	}
}
