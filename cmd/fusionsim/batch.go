package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Ratz-innovator/fusionsim/internal/automation"
	"github.com/Ratz-innovator/fusionsim/internal/logging"
	"github.com/Ratz-innovator/fusionsim/internal/metrics"
	"github.com/Ratz-innovator/fusionsim/internal/render"
	"github.com/Ratz-innovator/fusionsim/internal/server"
	"github.com/Ratz-innovator/fusionsim/internal/storage"
)

func runScenario(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	if watchScenario {
		return automation.Watch(cmd.Context(), args[0], slog.Default(), func(scenario *automation.Scenario) error {
			if err := playScenario(cmd, st, scenario); err != nil {
				slog.Error("scenario failed", "name", scenario.Name, "err", err)
			}
			fmt.Printf("\nwatching %s for changes\n", args[0])
			return nil
		})
	}

	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	return playScenario(cmd, st, scenario)
}

func playScenario(cmd *cobra.Command, st *storage.Store, scenario *automation.Scenario) error {
	results, err := automation.RunScenario(cmd.Context(), scenario, automation.Options{
		Store:  st,
		Logger: slog.Default(),
		Limit:  concurrency,
	})
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s (%d runs)\n", scenario.Name, len(results))
	if scenario.Description != "" {
		fmt.Println(scenario.Description)
	}
	fmt.Println()

	var names []string
	if len(results) > 0 {
		names = metrics.Names(results[0].Metrics)
	}

	t := metricTable(os.Stdout, []string{"name", "kind", "snapshots", "run id"}, names)
	for _, r := range results {
		runID := r.RunID
		if runID == "" {
			runID = "-"
		}
		row := table.Row{r.Name, r.Config.Kind(), len(r.Snapshots), runID}
		t.AppendRow(append(row, metricCells(r.Metrics, names)...))
	}
	t.Render()
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	results, err := automation.RunSweep(cmd.Context(), &automation.ParameterSweep{
		Base:  base,
		Param: sweepParam,
		Min:   sweepMin,
		Max:   sweepMax,
		Count: sweepCount,
	}, concurrency)
	if err != nil {
		return err
	}

	names := metrics.Names(results[0].Metrics)
	t := metricTable(os.Stdout, []string{sweepParam}, names)
	for _, r := range results {
		row := table.Row{fmt.Sprintf("%.4g", r.ParamValue)}
		t.AppendRow(append(row, metricCells(r.Metrics, names)...))
	}
	t.Render()

	if len(results) > 1 {
		peaks := make([]float64, len(results))
		for i, r := range results {
			peaks[i] = r.Metrics["peak_ratio"]
		}
		fmt.Println()
		fmt.Println(render.Sparkline(peaks, "peak_ratio vs "+sweepParam, 60, 8))
	}
	return nil
}

func serve(cmd *cobra.Command, args []string) error {
	settings, err := server.LoadSettings(settingsFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, closer, err := logging.Open(settings.LogLevel, settings.LogFormat, settings.LogFile)
	if err != nil {
		return err
	}
	defer closer()

	return server.New(settings, logger).Serve(cmd.Context())
}
