package viz

import (
	"math"
	"strings"
)

// braille dot bits for a 2x4 cell, indexed [row][col]
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille characters, each holding 2x4 dots. Dot
// coordinates run from the top left.
type Canvas struct {
	cols, rows int
	cells      []rune
}

func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{cols: cols, rows: rows, cells: make([]rune, cols*rows)}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (w, h int) { return c.cols * 2, c.rows * 4 }

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = blank
	}
}

// Set lights the dot at (x, y). Out of range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.cols*2 || y >= c.rows*4 {
		return
	}
	c.cells[(y/4)*c.cols+x/2] |= dotBits[y%4][x%2]
}

// Lit reports whether the dot at (x, y) is set.
func (c *Canvas) Lit(x, y int) bool {
	if x < 0 || y < 0 || x >= c.cols*2 || y >= c.rows*4 {
		return false
	}
	return c.cells[(y/4)*c.cols+x/2]&dotBits[y%4][x%2] != 0
}

// Line draws from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// Plot draws values as a polyline spanning the full width, mapping lo to
// the bottom row of dots and hi to the top. NaN values break the line.
func (c *Canvas) Plot(values []float64, lo, hi float64) {
	w, h := c.Dots()
	if len(values) == 0 || hi <= lo {
		return
	}

	y := func(v float64) int {
		frac := (v - lo) / (hi - lo)
		return h - 1 - int(math.Round(frac*float64(h-1)))
	}
	x := func(i int) int {
		if len(values) == 1 {
			return 0
		}
		return int(math.Round(float64(i) * float64(w-1) / float64(len(values)-1)))
	}

	for i := range values {
		if math.IsNaN(values[i]) {
			continue
		}
		if i == 0 || math.IsNaN(values[i-1]) {
			c.Set(x(i), y(values[i]))
			continue
		}
		c.Line(x(i-1), y(values[i-1]), x(i), y(values[i]))
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(len(c.cells)*3 + c.rows)
	for r := 0; r < c.rows; r++ {
		b.WriteString(string(c.cells[r*c.cols : (r+1)*c.cols]))
		b.WriteByte('\n')
	}
	return b.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
