package octree

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxDepth bounds the subdivision depth. Points that still collide at this
// depth are aggregated into a single leaf.
const MaxDepth = 24

// noChild marks a leaf cell.
const noChild = -1

// cell is one node of the tree arena. Children of an internal cell are
// stored contiguously starting at first.
type cell struct {
	sum   r3.Vec
	pos   r3.Vec // representative position of a leaf
	min   r3.Vec
	width float64
	count int
	first int32
}

func (c *cell) leaf() bool { return c.first == noChild }

// Tree is an octree (dims = 3) or quadtree (dims = 2) over a fixed bounding
// cube. The zero value is not usable; create trees with [New].
//
// A Tree is not safe for concurrent mutation. Concurrent iteration over a
// tree that is no longer being written to is fine.
type Tree struct {
	cells  []cell
	bounds r3.Box
	dims   int
	theta  float64
}

// New returns an empty tree subdividing along dims axes. dims must be 2 or 3;
// anything else is treated as 3.
func New(dims int) *Tree {
	if dims != 2 {
		dims = 3
	}
	t := &Tree{dims: dims}
	t.Reset(r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}})
	return t
}

// Dims returns the number of subdivided axes.
func (t *Tree) Dims() int { return t.dims }

// NumChildren returns the fan-out of an internal cell: 8 or 4.
func (t *Tree) NumChildren() int { return 1 << t.dims }

// Theta returns the accuracy parameter of the opening criterion.
func (t *Tree) Theta() float64 { return t.theta }

// SetTheta sets the accuracy parameter. Smaller is more accurate. The value is
// not clamped; 0 yields an exact traversal.
func (t *Tree) SetTheta(theta float64) { t.theta = theta }

// Bounds returns the bounding box passed to the last Reset.
func (t *Tree) Bounds() r3.Box { return t.bounds }

// Reset empties the tree to a single empty root covering bounds. The root is a
// cube whose side is the largest extent of bounds over the subdivided axes.
// The arena is kept, so rebuilding a tree every iteration does not allocate
// once it has grown to size.
func (t *Tree) Reset(bounds r3.Box) {
	t.bounds = bounds
	d := r3.Sub(bounds.Max, bounds.Min)
	width := max(d.X, d.Y)
	if t.dims == 3 {
		width = max(width, d.Z)
	}
	t.cells = append(t.cells[:0], cell{min: bounds.Min, width: width, first: noChild})
}

// Len returns the number of points inserted since the last Reset.
func (t *Tree) Len() int { return t.cells[0].count }

// Size returns the number of cells in the tree, including empty ones.
func (t *Tree) Size() int { return len(t.cells) }

// Insert adds one point-mass at p. p must lie inside the bounds of the tree.
func (t *Tree) Insert(p r3.Vec) {
	i := int32(0)
	for depth := 0; ; depth++ {
		c := &t.cells[i]
		if c.leaf() {
			switch {
			case c.count == 0:
				c.pos, c.sum, c.count = p, p, 1
				return
			case c.pos == p || depth >= MaxDepth:
				c.sum = r3.Add(c.sum, p)
				c.count++
				return
			}
			t.split(i)
			c = &t.cells[i]
		}
		c.sum = r3.Add(c.sum, p)
		c.count++
		i = c.first + int32(t.childIndex(c, p))
	}
}

// split turns the occupied leaf i into an internal cell and moves its
// contents into the matching child.
func (t *Tree) split(i int32) {
	parent := t.cells[i]
	half := parent.width / 2
	first := int32(len(t.cells))
	for k := 0; k < t.NumChildren(); k++ {
		lo := parent.min
		if k&1 != 0 {
			lo.X += half
		}
		if k&2 != 0 {
			lo.Y += half
		}
		if k&4 != 0 {
			lo.Z += half
		}
		t.cells = append(t.cells, cell{min: lo, width: half, first: noChild})
	}
	child := &t.cells[first+int32(t.childIndex(&parent, parent.pos))]
	child.pos, child.sum, child.count = parent.pos, parent.sum, parent.count
	t.cells[i].first = first
}

// childIndex selects the sub-cell of c that contains p: bit 0 for x, bit 1
// for y and bit 2 for z.
func (t *Tree) childIndex(c *cell, p r3.Vec) int {
	half := c.width / 2
	idx := 0
	if p.X >= c.min.X+half {
		idx |= 1
	}
	if p.Y >= c.min.Y+half {
		idx |= 2
	}
	if t.dims == 3 && p.Z >= c.min.Z+half {
		idx |= 4
	}
	return idx
}

// centroid returns the mean position of the points aggregated in c.
func (c *cell) centroid() r3.Vec {
	return r3.Scale(1/float64(c.count), c.sum)
}
