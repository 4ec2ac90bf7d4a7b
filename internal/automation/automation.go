package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ratz-innovator/fusionsim/internal/config"
	"github.com/Ratz-innovator/fusionsim/internal/metrics"
	"github.com/Ratz-innovator/fusionsim/internal/pde"
	"github.com/Ratz-innovator/fusionsim/internal/storage"
)

// Scenario is a batch of independent runs loaded from YAML.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Concurrency int           `yaml:"concurrency"`
	Runs        []ScenarioRun `yaml:"runs"`
}

// ScenarioRun names a run and describes its config. Any config.Config field
// may appear next to name and preset; those fields override the preset, or
// the defaults when no preset is named.
type ScenarioRun struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Preset string `yaml:"preset"`
	Save   bool   `yaml:"save"`

	raw *yaml.Node
}

func (r *ScenarioRun) UnmarshalYAML(n *yaml.Node) error {
	type plain ScenarioRun
	if err := n.Decode((*plain)(r)); err != nil {
		return err
	}
	r.raw = n
	return nil
}

// Config resolves the run into a validated engine config.
func (r *ScenarioRun) Config() (pde.Config, error) {
	base := config.DefaultConfig()
	if r.Preset != "" {
		base = config.GetPreset(r.Kind, r.Preset)
		if base == nil {
			return pde.Config{}, fmt.Errorf("unknown preset %s/%s (available: %v)", r.Kind, r.Preset, config.ListPresets(r.Kind))
		}
	}
	if r.raw != nil {
		if err := r.raw.Decode(base); err != nil {
			return pde.Config{}, err
		}
	}
	return base.Build()
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("scenario %s has no runs", path)
	}
	return &scenario, nil
}

// Result is the outcome of one scenario run.
type Result struct {
	Name      string
	Config    pde.Config
	Snapshots pde.Snapshots
	Metrics   map[string]float64
	RunID     string
}

// Options tune how a scenario executes. A nil Store skips persistence.
type Options struct {
	Store  *storage.Store
	Logger *slog.Logger
	Limit  int
}

// RunScenario resolves every run up front, then executes them concurrently.
// Nothing runs if any config is invalid.
func RunScenario(ctx context.Context, scenario *Scenario, opts Options) ([]Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfgs := make([]pde.Config, len(scenario.Runs))
	var errs []error
	for i := range scenario.Runs {
		cfg, err := scenario.Runs[i].Config()
		if err != nil {
			errs = append(errs, fmt.Errorf("run %d (%s): %w", i+1, scenario.Runs[i].Name, err))
			continue
		}
		cfgs[i] = cfg
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = scenario.Concurrency
	}

	logger.Info("running scenario", "name", scenario.Name, "runs", len(cfgs), "limit", limit)
	start := time.Now()
	all, err := pde.RunAll(ctx, cfgs, limit)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	results := make([]Result, len(cfgs))
	for i, cfg := range cfgs {
		run := scenario.Runs[i]
		mesh, err := pde.NewMesh(cfg.CellCount, cfg.CellSize)
		if err != nil {
			return nil, err
		}
		summary := metrics.Summarize(all[i], pde.Retain(cfg.StepCount, cfg.StoreFrames), metrics.Default(mesh)...)
		results[i] = Result{Name: run.Name, Config: cfg, Snapshots: all[i], Metrics: summary}

		if run.Save && opts.Store != nil {
			id, err := opts.Store.Save(storage.Run{Config: cfg, Snapshots: all[i], Metrics: summary})
			if err != nil {
				return results, fmt.Errorf("save run %d (%s): %w", i+1, run.Name, err)
			}
			results[i].RunID = id
		}
		logger.Debug("scenario run finished", "name", run.Name, "kind", cfg.Kind(), "snapshots", len(all[i]), "run_id", results[i].RunID)
	}

	logger.Info("scenario finished", "name", scenario.Name, "elapsed", elapsed)
	return results, nil
}

// ParameterSweep varies one parameter of a base config over a linear range.
type ParameterSweep struct {
	Base  *config.Config
	Param string
	Min   float64
	Max   float64
	Count int
}

// SweepResult holds the diagnostics of one sweep point.
type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
}

// RunSweep executes every sweep point concurrently, at most limit at a time.
func RunSweep(ctx context.Context, sweep *ParameterSweep, limit int) ([]SweepResult, error) {
	if sweep.Count < 1 {
		return nil, fmt.Errorf("sweep needs at least one point, got %d", sweep.Count)
	}

	values := make([]float64, sweep.Count)
	cfgs := make([]pde.Config, sweep.Count)
	for i := range values {
		values[i] = sweep.Min
		if sweep.Count > 1 {
			values[i] += float64(i) * (sweep.Max - sweep.Min) / float64(sweep.Count-1)
		}

		p := sweep.Base.ToParams()
		p[sweep.Param] = values[i]
		cfg, err := pde.Parse(sweep.Base.Kind, p)
		if err != nil {
			return nil, fmt.Errorf("sweep %s=%g: %w", sweep.Param, values[i], err)
		}
		cfgs[i] = cfg
	}

	all, err := pde.RunAll(ctx, cfgs, limit)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(cfgs))
	for i, cfg := range cfgs {
		mesh, err := pde.NewMesh(cfg.CellCount, cfg.CellSize)
		if err != nil {
			return nil, err
		}
		results[i] = SweepResult{
			ParamValue: values[i],
			Metrics:    metrics.Summarize(all[i], pde.Retain(cfg.StepCount, cfg.StoreFrames), metrics.Default(mesh)...),
		}
	}
	return results, nil
}
