package metrics

import "gonum.org/v1/gonum/floats"

// PeakRatio is the last observed peak divided by the first one.
type PeakRatio struct {
	name    string
	first   float64
	last    float64
	samples int
}

func NewPeakRatio() *PeakRatio {
	return &PeakRatio{name: "peak_ratio"}
}

func (p *PeakRatio) Name() string { return p.name }

func (p *PeakRatio) Observe(f []float64, step int) {
	if len(f) == 0 {
		return
	}
	peak := floats.Max(f)
	if p.samples == 0 {
		p.first = peak
	}
	p.last = peak
	p.samples++
}

func (p *PeakRatio) Value() float64 {
	if p.samples == 0 || p.first == 0 {
		return 0
	}
	return p.last / p.first
}

func (p *PeakRatio) Reset() {
	p.first = 0
	p.last = 0
	p.samples = 0
}
