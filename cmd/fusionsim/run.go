package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ratz-innovator/fusionsim/internal/metrics"
	"github.com/Ratz-innovator/fusionsim/internal/pde"
	"github.com/Ratz-innovator/fusionsim/internal/render"
	"github.com/Ratz-innovator/fusionsim/internal/storage"
	"github.com/Ratz-innovator/fusionsim/internal/viz"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	c, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	cfg, err := c.Build()
	if err != nil {
		return err
	}

	slog.Info("running simulation", "kind", cfg.Kind(), "nx", cfg.CellCount, "steps", cfg.StepCount, "store_frames", cfg.StoreFrames)
	fmt.Printf("running %s simulation...\n", cfg.Kind())
	start := time.Now()

	snaps, err := pde.Run(cfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	mesh, err := pde.NewMesh(cfg.CellCount, cfg.CellSize)
	if err != nil {
		return err
	}
	summary := metrics.Summarize(snaps, pde.Retain(cfg.StepCount, cfg.StoreFrames), metrics.Default(mesh)...)

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("snapshots: %d\n", len(snaps))

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.Run{Config: cfg, Snapshots: snaps, Metrics: summary, Elapsed: elapsed})
		if err != nil {
			return err
		}
		slog.Debug("run stored", "run_id", runID, "dir", st.Dir(runID))
		fmt.Printf("run id: %s\n", runID)
	}

	if gifPath != "" {
		if err := writeGIF(gifPath, cfg, snaps); err != nil {
			return err
		}
		fmt.Printf("animation: %s\n", gifPath)
	}

	fmt.Println("\nmetrics:")
	for _, name := range metrics.Names(summary) {
		fmt.Printf("  %s: %.6f\n", name, summary[name])
	}
	fmt.Println()
	width, height := plotSize(cmd)
	fmt.Println(render.ASCII(cfg, snaps, width, height))
	return nil
}

func writeGIF(path string, cfg pde.Config, snaps pde.Snapshots) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.WriteGIF(f, cfg, snaps, render.DefaultOptions()); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

func runLive(cmd *cobra.Command, args []string) error {
	c, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	cfg, err := c.Build()
	if err != nil {
		return err
	}
	return viz.Run(cfg, liveGIF)
}
