package pde

import "math"

// Mesh is a uniform 1D cell-centred grid on [0, n*dx). It is immutable once
// built.
type Mesh struct {
	n       int
	dx      float64
	centers []float64
}

func NewMesh(n int, dx float64) (*Mesh, error) {
	if err := positiveInt(ParamCellCount, n); err != nil {
		return nil, err
	}
	if err := positiveFloat(ParamCellSize, dx); err != nil {
		return nil, err
	}
	m := &Mesh{n: n, dx: dx, centers: make([]float64, n)}
	for i := range m.centers {
		m.centers[i] = (float64(i) + 0.5) * dx
	}
	return m, nil
}

func (m *Mesh) Len() int             { return m.n }
func (m *Mesh) CellSize() float64    { return m.dx }
func (m *Mesh) Length() float64      { return float64(m.n) * m.dx }
func (m *Mesh) Center(i int) float64 { return m.centers[i] }

// Centers returns a copy of the cell-centre coordinates.
func (m *Mesh) Centers() []float64 {
	c := make([]float64, m.n)
	copy(c, m.centers)
	return c
}

const (
	// pulseWidth scales dx² into the Gaussian variance term.
	pulseWidth = 10.0
	// heatAmplitude is the peak temperature of the initial hot spot.
	heatAmplitude = 100.0
)

// InitialField evaluates the analytic starting profile of cfg's kind at every
// cell centre of m.
func InitialField(cfg Config, m *Mesh) Field {
	mid := m.Length() / 2
	centre, amp := mid, 1.0

	switch model := cfg.Model.(type) {
	case Heat:
		amp = heatAmplitude
	case AdvectionDiffusion:
		// Start a quarter domain upstream so the drift stays on screen.
		if model.Velocity > 0 {
			centre = mid - m.Length()/4
		} else {
			centre = mid + m.Length()/4
		}
	}

	f := make(Field, m.n)
	for i, x := range m.centers {
		f[i] = amp * Gaussian(x, centre, m.dx)
	}
	return f
}

// Gaussian is the pulse shape exp(-(x-centre)²/(dx²·10)).
func Gaussian(x, centre, dx float64) float64 {
	d := x - centre
	return math.Exp(-(d * d) / (dx * dx * pulseWidth))
}
