package pde

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Parameter names accepted by Parse. They match the request fields of the
// HTTP service.
const (
	ParamKind         = "simulation_type"
	ParamCellCount    = "nx"
	ParamCellSize     = "dx"
	ParamStepCount    = "steps"
	ParamTimeStep     = "dt"
	ParamStoreFrames  = "store_frames"
	ParamDiffusion    = "D"
	ParamConductivity = "k"
	ParamVelocity     = "velocity"
)

// Defaults applied to common parameters that are absent. Kind specific
// coefficients have no default.
const (
	DefaultCellCount   = 50
	DefaultCellSize    = 1.0
	DefaultStepCount   = 100
	DefaultTimeStep    = 0.1
	DefaultStoreFrames = 10
)

// Params holds raw parameter values as they arrive from a boundary: strings,
// JSON numbers, ints or floats. A nil value counts as absent.
type Params map[string]any

// Parse coerces p into a validated Config for the named kind. Only the
// parameters relevant to kind are read.
func Parse(kind string, p Params) (Config, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{}
	if cfg.CellCount, err = intParam(p, ParamCellCount, DefaultCellCount); err != nil {
		return Config{}, err
	}
	if cfg.StepCount, err = intParam(p, ParamStepCount, DefaultStepCount); err != nil {
		return Config{}, err
	}
	if cfg.StoreFrames, err = intParam(p, ParamStoreFrames, DefaultStoreFrames); err != nil {
		return Config{}, err
	}
	if cfg.CellSize, err = floatParam(p, ParamCellSize, DefaultCellSize); err != nil {
		return Config{}, err
	}
	if cfg.TimeStep, err = floatParam(p, ParamTimeStep, DefaultTimeStep); err != nil {
		return Config{}, err
	}

	switch k {
	case KindDiffusion:
		d, err := requiredFloat(p, ParamDiffusion, k)
		if err != nil {
			return Config{}, err
		}
		cfg.Model = Diffusion{Coeff: d}
	case KindHeat:
		cond, err := requiredFloat(p, ParamConductivity, k)
		if err != nil {
			return Config{}, err
		}
		cfg.Model = Heat{Conductivity: cond}
	case KindAdvectionDiffusion:
		d, err := requiredFloat(p, ParamDiffusion, k)
		if err != nil {
			return Config{}, err
		}
		v, err := requiredFloat(p, ParamVelocity, k)
		if err != nil {
			return Config{}, err
		}
		cfg.Model = AdvectionDiffusion{Coeff: d, Velocity: v}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate range-checks a Config, including one built directly rather than
// through Parse.
func (c Config) Validate() error {
	if c.Model == nil {
		return invalid(ParamKind, "no simulation model given")
	}
	if err := positiveInt(ParamCellCount, c.CellCount); err != nil {
		return err
	}
	if err := positiveInt(ParamStepCount, c.StepCount); err != nil {
		return err
	}
	if err := positiveInt(ParamStoreFrames, c.StoreFrames); err != nil {
		return err
	}
	if err := positiveFloat(ParamCellSize, c.CellSize); err != nil {
		return err
	}
	if err := positiveFloat(ParamTimeStep, c.TimeStep); err != nil {
		return err
	}

	switch m := c.Model.(type) {
	case Diffusion:
		return positiveFloat(ParamDiffusion, m.Coeff)
	case Heat:
		return positiveFloat(ParamConductivity, m.Conductivity)
	case AdvectionDiffusion:
		if err := positiveFloat(ParamDiffusion, m.Coeff); err != nil {
			return err
		}
		if math.IsNaN(m.Velocity) || math.IsInf(m.Velocity, 0) {
			return invalid(ParamVelocity, "must be finite, got %v", m.Velocity)
		}
		if m.Velocity == 0 {
			return invalid(ParamVelocity, "cannot be zero")
		}
		return nil
	default:
		return &ValidationError{Field: ParamKind, Reason: "unsupported model", Err: ErrUnknownKind}
	}
}

// Params converts c back into the raw form accepted by Parse.
func (c Config) Params() Params {
	p := Params{
		ParamCellCount:   c.CellCount,
		ParamCellSize:    c.CellSize,
		ParamStepCount:   c.StepCount,
		ParamTimeStep:    c.TimeStep,
		ParamStoreFrames: c.StoreFrames,
	}
	switch m := c.Model.(type) {
	case Diffusion:
		p[ParamDiffusion] = m.Coeff
	case Heat:
		p[ParamConductivity] = m.Conductivity
	case AdvectionDiffusion:
		p[ParamDiffusion] = m.Coeff
		p[ParamVelocity] = m.Velocity
	}
	return p
}

func lookup(p Params, name string) (any, bool) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func intParam(p Params, name string, def int) (int, error) {
	raw, ok := lookup(p, name)
	if !ok {
		return def, nil
	}
	v, err := toInt(raw)
	if err != nil {
		return 0, &ValidationError{
			Field:  name,
			Reason: "must be convertible to an integer, got " + cast.ToString(raw),
			Err:    err,
		}
	}
	return v, nil
}

// toInt reads strings as plain base-10 integers; cast would treat "010" as
// octal and "0x10" as hex.
func toInt(raw any) (int, error) {
	if s, ok := raw.(string); ok {
		return strconv.Atoi(strings.TrimSpace(s))
	}
	return cast.ToIntE(raw)
}

func floatParam(p Params, name string, def float64) (float64, error) {
	raw, ok := lookup(p, name)
	if !ok {
		return def, nil
	}
	return coerceFloat(name, raw)
}

func requiredFloat(p Params, name string, k Kind) (float64, error) {
	raw, ok := lookup(p, name)
	if !ok {
		return 0, invalid(name, "must be provided for %s simulation", k)
	}
	return coerceFloat(name, raw)
}

func coerceFloat(name string, raw any) (float64, error) {
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, &ValidationError{
			Field:  name,
			Reason: "must be convertible to a float, got " + cast.ToString(raw),
			Err:    err,
		}
	}
	return v, nil
}

func positiveInt(name string, v int) error {
	if v <= 0 {
		return invalid(name, "must be positive, got %d", v)
	}
	return nil
}

func positiveFloat(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(name, "must be finite, got %v", v)
	}
	if v <= 0 {
		return invalid(name, "must be positive, got %v", v)
	}
	return nil
}
