// Package ascii draws the working set of a graph onto a character grid.
//
// It is the frame builder of the terminal view: [Draw] must be called with
// the store's read lock held so one frame reflects one layout iteration.
package ascii

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/graph"
)

// Cell glyphs.
const (
	GlyphState   = 'o'
	GlyphInitial = '@'
	GlyphLocked  = '#'
	GlyphEdge    = '.'
	GlyphHandle  = '+'
)

// Options configures a frame.
type Options struct {
	Width, Height int

	// Box is the region of the XY plane mapped onto the grid. A box with
	// zero area is replaced by the bounds of the working set.
	Box r3.Box

	// Labels writes state names to the right of their node.
	Labels bool
}

// Canvas is a fixed-size grid of runes.
type Canvas struct {
	w, h  int
	cells []rune
}

// NewCanvas returns a blank canvas. Non-positive sizes yield an empty canvas.
func NewCanvas(w, h int) *Canvas {
	w, h = max(w, 0), max(h, 0)
	c := &Canvas{w: w, h: h, cells: make([]rune, w*h)}
	c.Clear()
	return c
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() (w, h int) { return c.w, c.h }

// Clear fills the canvas with spaces.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = ' '
	}
}

// At returns the rune at column x, row y, or 0 outside the canvas.
func (c *Canvas) At(x, y int) rune {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return 0
	}
	return c.cells[y*c.w+x]
}

// Set writes r at column x, row y. Writes outside the canvas are dropped.
func (c *Canvas) Set(x, y int, r rune) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y*c.w+x] = r
}

// Text writes s starting at column x, row y, clipped to the canvas.
func (c *Canvas) Text(x, y int, s string) {
	for _, r := range s {
		c.Set(x, y, r)
		x++
	}
}

// Line draws a straight line with Bresenham's algorithm. Cells that are
// already non-blank are kept.
func (c *Canvas) Line(x0, y0, x1, y1 int, r rune) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		if c.At(x0, y0) == ' ' {
			c.Set(x0, y0, r)
		}
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

// String joins the rows with newlines. Trailing blanks are trimmed.
func (c *Canvas) String() string {
	var b strings.Builder
	for y := range c.h {
		if y > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimRight(string(c.cells[y*c.w:(y+1)*c.w]), " "))
	}
	return b.String()
}

// Draw renders the working set of g. The caller must hold the store's read
// lock for the whole call.
func Draw(g *graph.Graph, opts Options) *Canvas {
	c := NewCanvas(opts.Width, opts.Height)
	if c.w == 0 || c.h == 0 || g.WorkingNodeCount() == 0 {
		return c
	}

	box := opts.Box
	if box.Max.X <= box.Min.X || box.Max.Y <= box.Min.Y {
		box = bounds(g)
	}
	p := projection{box: box, w: c.w, h: c.h}

	for i := range g.WorkingEdgeCount() {
		e := g.Edge(g.WorkingEdge(i))
		fx, fy := p.cell(g.Node(e.From).Pos)
		tx, ty := p.cell(g.Node(e.To).Pos)
		hx, hy := p.cell(g.Handle(g.WorkingEdge(i)).Pos)
		if !e.SelfLoop() {
			c.Line(fx, fy, hx, hy, GlyphEdge)
			c.Line(hx, hy, tx, ty, GlyphEdge)
		}
		if c.At(hx, hy) == ' ' || c.At(hx, hy) == GlyphEdge {
			c.Set(hx, hy, GlyphHandle)
		}
	}

	for i := range g.WorkingNodeCount() {
		idx := g.WorkingNode(i)
		n := g.Node(idx)
		x, y := p.cell(n.Pos)
		switch {
		case n.Locked():
			c.Set(x, y, GlyphLocked)
		case idx == g.InitialState():
			c.Set(x, y, GlyphInitial)
		default:
			c.Set(x, y, GlyphState)
		}
		if opts.Labels {
			c.Text(x+2, y, g.StateText(idx))
		}
	}
	return c
}

type projection struct {
	box  r3.Box
	w, h int
}

// cell maps a position to a grid cell, flipping Y so that up is up.
func (p projection) cell(v r3.Vec) (int, int) {
	return scale(v.X, p.box.Min.X, p.box.Max.X, p.w), p.h - 1 - scale(v.Y, p.box.Min.Y, p.box.Max.Y, p.h)
}

func scale(v, lo, hi float64, n int) int {
	if hi <= lo || n == 1 {
		return (n - 1) / 2
	}
	i := int(math.Round((v - lo) / (hi - lo) * float64(n-1)))
	return min(max(i, 0), n-1)
}

// bounds returns the XY bounding box of the working nodes and their
// handles, padded so a single point lands in the centre.
func bounds(g *graph.Graph) r3.Box {
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	grow := func(v r3.Vec) {
		lo.X, lo.Y = min(lo.X, v.X), min(lo.Y, v.Y)
		hi.X, hi.Y = max(hi.X, v.X), max(hi.Y, v.Y)
	}
	for i := range g.WorkingNodeCount() {
		grow(g.Node(g.WorkingNode(i)).Pos)
	}
	for i := range g.WorkingEdgeCount() {
		grow(g.Handle(g.WorkingEdge(i)).Pos)
	}
	pad := 1.0
	return r3.Box{
		Min: r3.Vec{X: lo.X - pad, Y: lo.Y - pad},
		Max: r3.Vec{X: hi.X + pad, Y: hi.Y + pad},
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
