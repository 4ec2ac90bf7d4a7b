package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Ratz-innovator/fusionsim/internal/config"
	"github.com/Ratz-innovator/fusionsim/internal/logging"
	"github.com/Ratz-innovator/fusionsim/internal/pde"
	"github.com/Ratz-innovator/fusionsim/internal/server"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	logFile   string

	// simulation parameters shared by run, live and sweep
	nx           int
	dx           float64
	steps        int
	dt           float64
	storeFrames  int
	coeffD       float64
	conductivity float64
	velocity     float64
	configFile   string
	preset       string

	gifPath string
	liveGIF string
	save    bool

	// batch runs
	concurrency   int
	watchScenario bool
	sweepParam    string
	sweepMin      float64
	sweepMax      float64
	sweepCount    int

	// plot size
	plotWidth  int
	plotHeight int

	jsonOut      string
	settingsFile string

	closeLog = func() error { return nil }
)

// main registers the fusionsim commands and runs the one named on the
// command line. It exits with status 1 if the command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "fusionsim",
		Short:         "1D transport equation simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, closer, err := logging.Open(logLevel, logFormat, logFile)
			if err != nil {
				return err
			}
			closeLog = closer
			slog.SetDefault(logger)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fusionsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")

	runCmd := &cobra.Command{
		Use:   "run [kind]",
		Short: "run a simulation and store the result",
		Long:  "Run a simulation. kind is one of " + kindList() + ".",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addSimFlags(runCmd.Flags())
	runCmd.Flags().StringVar(&gifPath, "gif", "", "write an animated GIF to this path")
	runCmd.Flags().BoolVar(&save, "save", true, "store the run under the data directory")
	runCmd.Flags().IntVar(&plotWidth, "width", 70, "plot width")
	runCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")

	liveCmd := &cobra.Command{
		Use:   "live [kind]",
		Short: "step a simulation interactively in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addSimFlags(liveCmd.Flags())
	liveCmd.Flags().StringVar(&liveGIF, "gif", "fusionsim.gif", "path used by the save-GIF key")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 70, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run snapshots to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run snapshots to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&jsonOut, "output", "o", "", "write to this file instead of stdout")

	presetsCmd := &cobra.Command{
		Use:   "presets [kind]",
		Short: "list available presets for a kind",
		Args:  cobra.ExactArgs(1),
		RunE:  listPresets,
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every simulation in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().IntVar(&concurrency, "concurrency", 0, "runs at once (0 uses the scenario setting)")
	scenarioCmd.Flags().BoolVarP(&watchScenario, "watch", "w", false, "rerun the scenario whenever the file changes")

	sweepCmd := &cobra.Command{
		Use:   "sweep [kind]",
		Short: "vary one parameter and compare run metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd.Flags())
	sweepCmd.Flags().StringVar(&sweepParam, "param", pde.ParamDiffusion, "parameter to vary")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 2.0, "last value")
	sweepCmd.Flags().IntVar(&sweepCount, "count", 5, "number of values")
	sweepCmd.Flags().IntVar(&concurrency, "concurrency", 0, "runs at once (0 is unbounded)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve simulations over HTTP",
		RunE:  serve,
	}
	server.RegisterFlags(serveCmd.Flags())
	serveCmd.Flags().StringVar(&settingsFile, "settings", "", "settings file (yaml)")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, showCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd, scenarioCmd, sweepCmd, serveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimFlags(fs *pflag.FlagSet) {
	d := config.DefaultConfig()
	fs.IntVar(&nx, "nx", d.CellCount, "number of cells")
	fs.Float64Var(&dx, "dx", d.CellSize, "cell width")
	fs.IntVar(&steps, "steps", d.Steps, "number of time steps")
	fs.Float64Var(&dt, "dt", d.Dt, "time step")
	fs.IntVar(&storeFrames, "store-frames", d.StoreFrames, "snapshot budget")
	fs.Float64Var(&coeffD, "D", *d.Diffusion, "diffusion coefficient")
	fs.Float64Var(&conductivity, "k", *d.Conductivity, "thermal conductivity")
	fs.Float64Var(&velocity, "velocity", *d.Velocity, "advection velocity")
	fs.StringVar(&configFile, "config", "", "config file path (yaml)")
	fs.StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig applies, in order: defaults, the preset, the config file,
// then any simulation flag set on the command line.
func resolveConfig(cmd *cobra.Command, kind string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Kind = kind

	if preset != "" {
		p := config.GetPreset(kind, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(kind))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		cfg.Kind = kind
	}

	flags := cmd.Flags()
	if flags.Changed("nx") {
		cfg.CellCount = nx
	}
	if flags.Changed("dx") {
		cfg.CellSize = dx
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("store-frames") {
		cfg.StoreFrames = storeFrames
	}
	if flags.Changed("D") {
		cfg.Diffusion = config.Float(coeffD)
	}
	if flags.Changed("k") {
		cfg.Conductivity = config.Float(conductivity)
	}
	if flags.Changed("velocity") {
		cfg.Velocity = config.Float(velocity)
	}
	return cfg, nil
}

func kindList() string {
	s := ""
	for i, k := range pde.Kinds {
		if i > 0 {
			s += ", "
		}
		s += string(k)
	}
	return s
}
