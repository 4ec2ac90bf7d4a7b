package render

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	stddraw "image/draw"
	"image/gif"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

// Options control the size and pacing of a rendered animation.
type Options struct {
	Width, Height vg.Length
	// Delay between frames in hundredths of a second.
	Delay int
	// Workers bounds concurrent frame rendering; <= 0 uses GOMAXPROCS.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		Width:  10 * vg.Inch,
		Height: 6 * vg.Inch,
		Delay:  30,
	}
}

var lineColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// Frame plots one snapshot against the cell centres of mesh.
func Frame(kind pde.Kind, mesh *pde.Mesh, field []float64, step int, b Bounds, opts Options) (*image.Paletted, error) {
	if len(field) != mesh.Len() {
		return nil, fmt.Errorf("render: field has %d cells, mesh has %d", len(field), mesh.Len())
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Timestep %d", kind.Title(), step)
	p.X.Label.Text = "Position"
	p.Y.Label.Text = kind.Quantity()
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(field))
	for i, v := range field {
		pts[i].X = mesh.Center(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("render: step %d: %w", step, err)
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = lineColor
	p.Add(line)

	p.X.Min, p.X.Max = b.XMin, b.XMax
	p.Y.Min, p.Y.Max = b.YMin, b.YMax

	canvas := vgimg.New(opts.Width, opts.Height)
	p.Draw(draw.New(canvas))

	src := canvas.Image()
	dst := image.NewPaletted(src.Bounds(), palette.Plan9)
	stddraw.Draw(dst, src.Bounds(), src, src.Bounds().Min, stddraw.Src)
	return dst, nil
}

// Frames renders every snapshot of a run. Frames are rendered concurrently
// and returned in snapshot order.
func Frames(cfg pde.Config, snaps pde.Snapshots, opts Options) ([]*image.Paletted, error) {
	mesh, err := pde.NewMesh(cfg.CellCount, cfg.CellSize)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("render: no snapshots")
	}

	steps := pde.Retain(cfg.StepCount, cfg.StoreFrames)
	bounds := NewBounds(cfg, snaps)
	frames := make([]*image.Paletted, len(snaps))

	var g errgroup.Group
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for i, field := range snaps {
		step := i
		if i < len(steps) {
			step = steps[i]
		}
		g.Go(func() error {
			img, err := Frame(cfg.Kind(), mesh, field, step, bounds, opts)
			if err != nil {
				return err
			}
			frames[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

// WriteGIF encodes the run as a looping animation.
func WriteGIF(w io.Writer, cfg pde.Config, snaps pde.Snapshots, opts Options) error {
	frames, err := Frames(cfg, snaps, opts)
	if err != nil {
		return err
	}

	anim := gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, opts.Delay)
	}
	return gif.EncodeAll(w, &anim)
}
