package octree

import (
	"iter"

	"gonum.org/v1/gonum/spatial/r3"
)

// SuperNode is a pseudo-particle yielded by the traversal: the centroid of a
// group of points and the number of points it stands for.
type SuperNode struct {
	Centroid r3.Vec
	Count    int
}

// Iterator walks the super-nodes of a tree for one query position. It is
// restartable with [Iterator.Reset] and holds no more state than a stack as
// deep as the tree.
type Iterator struct {
	t     *Tree
	q     r3.Vec
	stack []int32
	cur   SuperNode
}

// Iter returns an iterator positioned before the first super-node for q.
func (t *Tree) Iter(q r3.Vec) *Iterator {
	it := &Iterator{t: t}
	it.Reset(q)
	return it
}

// Reset restarts the traversal for a new query position, reusing the stack.
func (it *Iterator) Reset(q r3.Vec) {
	it.q = q
	it.cur = SuperNode{}
	it.stack = append(it.stack[:0], 0)
}

// Next advances to the next super-node and reports whether there is one.
func (it *Iterator) Next() bool {
	t := it.t
	theta2 := t.theta * t.theta
	for len(it.stack) > 0 {
		i := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		c := &t.cells[i]
		if c.count == 0 {
			continue
		}
		centroid := c.centroid()
		if c.leaf() || c.width*c.width <= theta2*r3.Norm2(r3.Sub(it.q, centroid)) {
			it.cur = SuperNode{Centroid: centroid, Count: c.count}
			return true
		}
		// Push in reverse so child 0 is visited first.
		for k := int32(t.NumChildren()) - 1; k >= 0; k-- {
			if t.cells[c.first+k].count > 0 {
				it.stack = append(it.stack, c.first+k)
			}
		}
	}
	return false
}

// Node returns the current super-node. It is only valid after Next returned
// true.
func (it *Iterator) Node() SuperNode { return it.cur }

// SuperNodes returns the traversal for q as a range-over-func sequence.
func (t *Tree) SuperNodes(q r3.Vec) iter.Seq[SuperNode] {
	return func(yield func(SuperNode) bool) {
		it := t.Iter(q)
		for it.Next() {
			if !yield(it.Node()) {
				return
			}
		}
	}
}
