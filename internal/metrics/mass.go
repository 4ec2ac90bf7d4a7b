package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

// Mass integrates the field over the mesh, Σφ·dx.
func Mass(f []float64, dx float64) float64 {
	return floats.Sum(f) * dx
}

// MassDrift tracks the largest relative change of the integral against the
// first observed snapshot. Diffusion keeps it near zero; Heat and outflow
// boundaries lose mass.
type MassDrift struct {
	name     string
	dx       float64
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassDrift(m *pde.Mesh) *MassDrift {
	return &MassDrift{name: "mass_drift", dx: m.CellSize()}
}

func (d *MassDrift) Name() string { return d.name }

func (d *MassDrift) Observe(f []float64, step int) {
	mass := Mass(f, d.dx)
	if d.samples == 0 {
		d.initial = mass
	}
	d.samples++

	if d.initial != 0 {
		d.maxDrift = math.Max(d.maxDrift, math.Abs(mass-d.initial)/math.Abs(d.initial))
	}
}

func (d *MassDrift) Value() float64 { return d.maxDrift }

func (d *MassDrift) Reset() {
	d.initial = 0
	d.maxDrift = 0
	d.samples = 0
}
