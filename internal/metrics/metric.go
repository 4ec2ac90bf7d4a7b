// Package metrics reduces a sequence of snapshots to scalar diagnostics.
package metrics

import (
	"math"
	"sort"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

// Metric accumulates a diagnostic over observed snapshots.
type Metric interface {
	Name() string
	Observe(f []float64, step int)
	Value() float64
	Reset()
}

// Default returns the standard diagnostics for a run on m.
func Default(m *pde.Mesh) []Metric {
	return []Metric{
		NewMassDrift(m),
		NewPeakRatio(),
		NewCentroidShift(m),
		NewBoundaryLeak(),
		NewRoughness(),
		NewStability(0),
	}
}

// Summarize feeds every snapshot to each metric and collects the values by
// name. steps gives the step index of each snapshot and may be nil.
func Summarize(snaps pde.Snapshots, steps []int, ms ...Metric) map[string]float64 {
	for _, m := range ms {
		m.Reset()
		for i, f := range snaps {
			s := i
			if i < len(steps) {
				s = steps[i]
			}
			m.Observe(f, s)
		}
	}
	return Collect(ms...)
}

// Collect reads the current value of each metric. Non-finite values are
// left out so the summary always encodes as JSON.
func Collect(ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		if v := m.Value(); !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[m.Name()] = v
		}
	}
	return out
}

// Names returns the keys of a summary in sorted order.
func Names(summary map[string]float64) []string {
	names := make([]string, 0, len(summary))
	for k := range summary {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
