// Package octree implements the Barnes-Hut spatial index used by the spring
// layout to approximate repulsion in O(n log n).
//
// A [Tree] partitions a fixed bounding cube into 8 (3D) or 4 (2D) equal
// cells, recursively, one level per insertion that lands in an occupied leaf.
// Every cell aggregates the sum of the positions inserted below it together
// with their count, so the centroid of a cell is available in O(1) as
// sum / count.
//
// # Querying
//
// For a query position q, [Tree.Iter] returns an [Iterator] over the
// "super-nodes" that together account for every inserted point exactly once.
// A super-node is either a leaf, or an internal cell that is small compared
// to its distance from q:
//
//	width² <= θ² · |q - centroid|²
//
// Cells that fail the test are opened and their non-empty children are
// visited instead. The traversal is depth-first over an explicit stack, so
// memory is bounded by the depth of the tree, not its size, and the sequence
// is lazy: nothing is materialized up front.
//
// θ = 0 opens every internal cell and degenerates to an exact walk over the
// leaves. This always terminates because leaves are never opened.
//
// # Bounds
//
// The bounds are fixed per [Tree.Reset]. Inserting a position outside them is
// a caller error; the layout engine computes a bounding cube of the point set
// before every pass. Points that coincide exactly share a leaf, and
// subdivision stops at [MaxDepth], so pathological inputs cannot recurse
// without bound.
//
// # Usage
//
//	t := octree.New(3)
//	t.SetTheta(0.5)
//	t.Reset(r3.Box{Min: lo, Max: hi})
//	for _, p := range points {
//	    t.Insert(p)
//	}
//	for sn := range t.SuperNodes(q) {
//	    f = r3.Add(f, repel(q, sn.Centroid, float64(sn.Count)))
//	}
package octree
