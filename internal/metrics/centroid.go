package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

// Centroid is the field-weighted mean position, or NaN when the field sums
// to zero.
func Centroid(f []float64, centers []float64) float64 {
	total := floats.Sum(f)
	if total == 0 {
		return math.NaN()
	}
	return floats.Dot(f, centers) / total
}

// CentroidShift is the displacement of the centroid between the first and
// the last observed snapshot. Its sign follows the advection velocity.
type CentroidShift struct {
	name    string
	centers []float64
	first   float64
	last    float64
	samples int
}

func NewCentroidShift(m *pde.Mesh) *CentroidShift {
	return &CentroidShift{name: "centroid_shift", centers: m.Centers()}
}

func (c *CentroidShift) Name() string { return c.name }

func (c *CentroidShift) Observe(f []float64, step int) {
	if len(f) != len(c.centers) {
		return
	}
	x := Centroid(f, c.centers)
	if c.samples == 0 {
		c.first = x
	}
	c.last = x
	c.samples++
}

func (c *CentroidShift) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.last - c.first
}

func (c *CentroidShift) Reset() {
	c.first = 0
	c.last = 0
	c.samples = 0
}
