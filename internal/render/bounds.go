package render

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

// margin is the fraction of the value range added above and below the data.
const margin = 0.1

// Bounds are the axis limits shared by every frame of a run.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

// NewBounds spans x over the whole domain [0, n*dx] and y over the values of
// every snapshot, widened by 10% of each extreme's magnitude. A flat run gets
// a unit-wide y range so the axis never collapses.
func NewBounds(cfg pde.Config, snaps pde.Snapshots) Bounds {
	b := Bounds{XMax: float64(cfg.CellCount) * cfg.CellSize}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range snaps {
		if len(s) == 0 {
			continue
		}
		lo = math.Min(lo, floats.Min(s))
		hi = math.Max(hi, floats.Max(s))
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 0
	}

	b.YMin = lo - margin*math.Abs(lo)
	b.YMax = hi + margin*math.Abs(hi)
	if b.YMax-b.YMin < 1e-12 {
		b.YMin -= 0.5
		b.YMax += 0.5
	}
	return b
}
