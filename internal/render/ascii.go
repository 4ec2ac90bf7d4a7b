package render

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

// ASCII plots the first, middle and final snapshot on one chart.
func ASCII(cfg pde.Config, snaps pde.Snapshots, width, height int) string {
	if len(snaps) == 0 {
		return ""
	}

	b := NewBounds(cfg, snaps)
	steps := pde.Retain(cfg.StepCount, cfg.StoreFrames)
	picks := []int{0, len(snaps) / 2, len(snaps) - 1}
	if len(snaps) == 2 {
		picks = []int{0, 1}
	}

	series := make([][]float64, 0, len(picks))
	legends := make([]string, 0, len(picks))
	for _, i := range picks {
		series = append(series, snaps[i])
		step := i
		if i < len(steps) {
			step = steps[i]
		}
		legends = append(legends, fmt.Sprintf("step %d", step))
	}

	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(b.YMin),
		asciigraph.UpperBound(b.YMax),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Yellow, asciigraph.Red),
		asciigraph.SeriesLegends(legends...),
		asciigraph.Caption(fmt.Sprintf("%s (%s vs position)", cfg.Kind().Title(), cfg.Kind().Quantity())),
	)
}

// Sparkline plots a single series, such as the final snapshot of a stored
// run.
func Sparkline(data []float64, caption string, width, height int) string {
	if len(data) == 0 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
