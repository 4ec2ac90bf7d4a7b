package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ratz-innovator/fusionsim/internal/config"
	"github.com/Ratz-innovator/fusionsim/internal/metrics"
	"github.com/Ratz-innovator/fusionsim/internal/pde"
	"github.com/Ratz-innovator/fusionsim/internal/render"
	"github.com/Ratz-innovator/fusionsim/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tNX\tSTEPS\tDT\tFRAMES\tELAPSED")

	for _, run := range runs {
		cfg, err := run.Config()
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\t?\t?\t?\t%d\t%v\n",
				run.ID, run.Kind, run.Timestamp.Format("2006-01-02 15:04:05"), len(run.Steps), run.Elapsed)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4g\t%d\t%v\n",
			run.ID,
			run.Kind,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			cfg.CellCount,
			cfg.StepCount,
			cfg.TimeStep,
			len(run.Steps),
			run.Elapsed,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// loadRun returns the stored config and snapshots of runID.
func loadRun(runID string) (*storage.RunMetadata, pde.Config, pde.Snapshots, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, pde.Config{}, nil, err
	}
	cfg, err := meta.Config()
	if err != nil {
		return nil, pde.Config{}, nil, fmt.Errorf("run %s: %w", runID, err)
	}
	snaps, _, err := st.LoadSnapshots(runID)
	if err != nil {
		return nil, pde.Config{}, nil, err
	}
	if len(snaps) == 0 {
		return nil, pde.Config{}, nil, fmt.Errorf("run %s has no snapshots", runID)
	}
	return meta, cfg, snaps, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, cfg, snaps, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("kind: %s\n", meta.Kind)
	fmt.Printf("snapshots: %d\n\n", len(snaps))

	width, height := plotSize(cmd)
	fmt.Println(render.ASCII(cfg, snaps, width, height))
	fmt.Println()

	mesh, err := pde.NewMesh(cfg.CellCount, cfg.CellSize)
	if err != nil {
		return err
	}
	peaks := make([]float64, len(snaps))
	mass := make([]float64, len(snaps))
	for i, s := range snaps {
		peaks[i] = pde.Field(s).Max()
		mass[i] = metrics.Mass(s, mesh.CellSize())
	}
	fmt.Println(render.Sparkline(peaks, "peak "+cfg.Kind().Quantity()+" per snapshot", width, height/2+1))
	fmt.Println()
	fmt.Println(render.Sparkline(mass, "total mass per snapshot", width, height/2+1))
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, cfg, snaps, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, cfg, snaps)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, cfg, snaps, err := loadRun(args[0])
	if err != nil {
		return err
	}

	data, err := storage.NewExportData(cfg, snaps, meta.Metrics)
	if err != nil {
		return err
	}
	if jsonOut != "" {
		if err := storage.ExportJSON(jsonOut, data); err != nil {
			return err
		}
		fmt.Printf("exported %s to %s\n", meta.ID, jsonOut)
		return nil
	}
	return storage.WriteJSON(os.Stdout, data)
}

func listPresets(cmd *cobra.Command, args []string) error {
	kind := args[0]
	presets := config.ListPresets(kind)
	if len(presets) == 0 {
		fmt.Printf("no presets for kind: %s\n", kind)
		return nil
	}

	fmt.Printf("presets for %s:\n", kind)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range presets {
		p := config.GetPreset(kind, name)
		fmt.Fprintf(w, "  %s\tnx=%d\tdx=%g\tsteps=%d\tdt=%g\tframes=%d\t%s\n",
			name, p.CellCount, p.CellSize, p.Steps, p.Dt, p.StoreFrames, coefficients(p))
	}
	return w.Flush()
}

func coefficients(c *config.Config) string {
	k, err := pde.ParseKind(c.Kind)
	if err != nil {
		return ""
	}
	val := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%g", *v)
	}
	switch k {
	case pde.KindHeat:
		return "k=" + val(c.Conductivity)
	case pde.KindAdvectionDiffusion:
		return "D=" + val(c.Diffusion) + " velocity=" + val(c.Velocity)
	default:
		return "D=" + val(c.Diffusion)
	}
}
