package metrics

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns |X_k|² for k = 0..n/2 of the real field f.
func PowerSpectrum(f []float64) []float64 {
	if len(f) == 0 {
		return nil
	}
	spectrum := fft.FFTReal(f)
	ps := make([]float64, len(f)/2+1)
	for k := range ps {
		a := cmplx.Abs(spectrum[k])
		ps[k] = a * a
	}
	return ps
}

// HighBandFraction is the share of non-mean spectral power above half the
// Nyquist wavenumber. Smooth profiles sit near 0 and grid-scale
// oscillation near 1.
func HighBandFraction(f []float64) float64 {
	ps := PowerSpectrum(f)
	if len(ps) < 2 {
		return 0
	}
	cut := (len(ps) - 1) / 2
	var total, high float64
	for k := 1; k < len(ps); k++ {
		total += ps[k]
		if k > cut {
			high += ps[k]
		}
	}
	if total == 0 {
		return 0
	}
	return high / total
}

// Roughness is the largest HighBandFraction seen over a run.
type Roughness struct {
	name string
	max  float64
}

func NewRoughness() *Roughness {
	return &Roughness{name: "roughness"}
}

func (r *Roughness) Name() string { return r.name }

func (r *Roughness) Observe(f []float64, step int) {
	if v := HighBandFraction(f); v > r.max {
		r.max = v
	}
}

func (r *Roughness) Value() float64 { return r.max }

func (r *Roughness) Reset() {
	r.max = 0
}
