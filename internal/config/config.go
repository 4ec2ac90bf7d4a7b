package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

const (
	DefaultKind        = "diffusion"
	DefaultCoefficient = 1.0
)

// Config is the on-disk form of a single run. Coefficients are pointers so a
// file that omits one is reported as missing rather than read as zero.
type Config struct {
	Kind         string   `yaml:"kind"`
	CellCount    int      `yaml:"nx"`
	CellSize     float64  `yaml:"dx"`
	Steps        int      `yaml:"steps"`
	Dt           float64  `yaml:"dt"`
	StoreFrames  int      `yaml:"store_frames"`
	Diffusion    *float64 `yaml:"D,omitempty"`
	Conductivity *float64 `yaml:"k,omitempty"`
	Velocity     *float64 `yaml:"velocity,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Kind:         DefaultKind,
		CellCount:    pde.DefaultCellCount,
		CellSize:     pde.DefaultCellSize,
		Steps:        pde.DefaultStepCount,
		Dt:           pde.DefaultTimeStep,
		StoreFrames:  pde.DefaultStoreFrames,
		Diffusion:    Float(DefaultCoefficient),
		Conductivity: Float(DefaultCoefficient),
		Velocity:     Float(DefaultCoefficient),
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Clone returns a deep copy of c; the coefficients are not shared.
func (c *Config) Clone() *Config {
	out := *c
	out.Diffusion = cloneFloat(c.Diffusion)
	out.Conductivity = cloneFloat(c.Conductivity)
	out.Velocity = cloneFloat(c.Velocity)
	return &out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return Float(*p)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ToParams flattens c into the raw parameter map understood by pde.Parse.
func (c *Config) ToParams() pde.Params {
	p := pde.Params{
		pde.ParamCellCount:   c.CellCount,
		pde.ParamCellSize:    c.CellSize,
		pde.ParamStepCount:   c.Steps,
		pde.ParamTimeStep:    c.Dt,
		pde.ParamStoreFrames: c.StoreFrames,
	}
	if c.Diffusion != nil {
		p[pde.ParamDiffusion] = *c.Diffusion
	}
	if c.Conductivity != nil {
		p[pde.ParamConductivity] = *c.Conductivity
	}
	if c.Velocity != nil {
		p[pde.ParamVelocity] = *c.Velocity
	}
	return p
}

// Build validates c and returns the engine config.
func (c *Config) Build() (pde.Config, error) {
	return pde.Parse(c.Kind, c.ToParams())
}

// FromPDE converts an engine config back into its file form.
func FromPDE(cfg pde.Config) *Config {
	c := &Config{
		Kind:        string(cfg.Kind()),
		CellCount:   cfg.CellCount,
		CellSize:    cfg.CellSize,
		Steps:       cfg.StepCount,
		Dt:          cfg.TimeStep,
		StoreFrames: cfg.StoreFrames,
	}
	switch m := cfg.Model.(type) {
	case pde.Diffusion:
		c.Diffusion = Float(m.Coeff)
	case pde.Heat:
		c.Conductivity = Float(m.Conductivity)
	case pde.AdvectionDiffusion:
		c.Diffusion = Float(m.Coeff)
		c.Velocity = Float(m.Velocity)
	}
	return c
}
