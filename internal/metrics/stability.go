package metrics

import "math"

// BoundaryLeak is the largest absolute value seen in the first or last cell
// after the initial snapshot. Heat runs keep it at zero.
type BoundaryLeak struct {
	name string
	max  float64
}

func NewBoundaryLeak() *BoundaryLeak {
	return &BoundaryLeak{name: "boundary_leak"}
}

func (b *BoundaryLeak) Name() string { return b.name }

func (b *BoundaryLeak) Observe(f []float64, step int) {
	if step == 0 || len(f) == 0 {
		return
	}
	b.max = math.Max(b.max, math.Max(math.Abs(f[0]), math.Abs(f[len(f)-1])))
}

func (b *BoundaryLeak) Value() float64 { return b.max }

func (b *BoundaryLeak) Reset() {
	b.max = 0
}

// boundTolerance is the relative slack allowed over a derived bound.
const boundTolerance = 1e-9

// Stability is the fraction of observed snapshots whose values are finite
// and stay within threshold. A non-positive threshold is taken from the
// first snapshot's largest magnitude, the bound the maximum principle gives
// these schemes.
type Stability struct {
	name       string
	threshold  float64
	bound      float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "bounded",
		threshold: threshold,
		bound:     threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f []float64, step int) {
	if s.samples == 0 && s.threshold <= 0 {
		s.bound = 0
		for _, val := range f {
			s.bound = math.Max(s.bound, math.Abs(val))
		}
		s.bound *= 1 + boundTolerance
	}
	s.samples++
	for _, val := range f {
		if math.IsNaN(val) || math.Abs(val) > s.bound {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.bound = s.threshold
	s.violations = 0
	s.samples = 0
}
