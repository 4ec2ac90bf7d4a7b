package pde

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

type Kind string

const (
	KindDiffusion          Kind = "diffusion"
	KindHeat               Kind = "heat"
	KindAdvectionDiffusion Kind = "advection_diffusion"
)

// Kinds lists the supported simulation kinds in display order.
var Kinds = []Kind{KindDiffusion, KindHeat, KindAdvectionDiffusion}

// ParseKind maps a user supplied name to a Kind. Matching ignores case and
// accepts '-' in place of '_'.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range Kinds {
		if string(k) == norm {
			return k, nil
		}
	}
	return "", &ValidationError{Field: ParamKind, Reason: "unknown simulation type " + s, Err: ErrUnknownKind}
}

// Title is the human readable plot title for the kind.
func (k Kind) Title() string {
	switch k {
	case KindHeat:
		return "1D Heat Equation Simulation"
	case KindAdvectionDiffusion:
		return "1D Advection-Diffusion Simulation"
	default:
		return "1D Diffusion Simulation"
	}
}

// Quantity names what the field values represent.
func (k Kind) Quantity() string {
	if k == KindHeat {
		return "Temperature"
	}
	return "Concentration"
}

// Model is the sealed set of simulation variants. Each variant carries only
// the coefficients its equation needs.
type Model interface {
	Kind() Kind
	// Diffusivity is the coefficient of the second-derivative term.
	Diffusivity() float64
	isModel()
}

// Diffusion models ∂φ/∂t = D ∂²φ/∂x² with zero-flux ends.
type Diffusion struct {
	Coeff float64
}

func (Diffusion) Kind() Kind             { return KindDiffusion }
func (d Diffusion) Diffusivity() float64 { return d.Coeff }
func (Diffusion) isModel()               {}

// Heat models ∂T/∂t = k ∂²T/∂x² with both ends held at 0.
type Heat struct {
	Conductivity float64
}

func (Heat) Kind() Kind             { return KindHeat }
func (h Heat) Diffusivity() float64 { return h.Conductivity }
func (Heat) isModel()               {}

// AdvectionDiffusion models ∂φ/∂t + v ∂φ/∂x = D ∂²φ/∂x². A positive Velocity
// carries the field towards +x.
type AdvectionDiffusion struct {
	Coeff    float64
	Velocity float64
}

func (AdvectionDiffusion) Kind() Kind             { return KindAdvectionDiffusion }
func (a AdvectionDiffusion) Diffusivity() float64 { return a.Coeff }
func (AdvectionDiffusion) isModel()               {}

// Config is the validated input of a single run. It is never mutated by the
// engine.
type Config struct {
	Model       Model
	CellCount   int
	CellSize    float64
	StepCount   int
	TimeStep    float64
	StoreFrames int
}

// Kind returns the kind of the configured model, or "" when unset.
func (c Config) Kind() Kind {
	if c.Model == nil {
		return ""
	}
	return c.Model.Kind()
}

// Field holds one value per mesh cell.
type Field []float64

func (f Field) Clone() Field {
	c := make(Field, len(f))
	copy(c, f)
	return c
}

// IsFinite reports whether every value is neither NaN nor ±Inf.
func (f Field) IsFinite() bool {
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (f Field) Max() float64 {
	if len(f) == 0 {
		return 0
	}
	return floats.Max(f)
}

// Snapshots is the ordered list of retained field copies. Element 0 is the
// initial condition and the last element is the final state.
type Snapshots [][]float64

// Final returns the last retained field.
func (s Snapshots) Final() []float64 {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}
