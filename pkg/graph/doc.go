// Package graph is the shared data store of the spring layout: the point
// masses (nodes, edge handles, transition and state labels), the edges that
// tie them together, and the working set the layout currently operates on.
//
// # Concurrency
//
// A [Store] guards one [Graph] with a single reader/writer lock. All access
// goes through scoped closures, so critical sections are lexical and the lock
// is released on every exit path, panics included:
//
//	store.Read(func(g *graph.Graph) {
//	    // draw one frame: every position seen here belongs to the same
//	    // layout iteration
//	})
//
//	store.Update(func(g *graph.Graph) {
//	    _ = g.Move(graph.KindNode, 3, r3.Vec{X: 10})
//	})
//
// The layout worker holds the write lock for the duration of one iteration;
// renderers hold the read lock for the duration of one frame. [Graph] methods
// do no locking of their own and must only be called inside these closures.
//
// # Points
//
// Every point carries an anchored and a locked flag. Anchored points are
// sources of force but are never moved by the layout. Locked is the user's
// persistent pin and always implies anchored: [Point.SetLocked] sets both and
// [Point.SetAnchored] cannot release a locked point.
//
// # Working set
//
// By default the layout operates on all nodes and edges. [Graph.Select]
// restricts it to an explicit subset, and exploration mode
// ([Graph.StartExploration]) derives the subset from the nodes the user has
// opened: the opened nodes, their direct successors, and the edges leaving
// opened nodes. Loading a model always clears the working set so stale
// indices can never survive a reload.
//
// # Perturbation
//
// The store counts perturbations in [Graph.Revision]: loading, dragging,
// releasing an anchor and changing the working set all bump it and clear the
// stable flag. The layout engine compares revisions to decide when to re-heat.
//
// # Serialization
//
// [Graph.Snapshot] captures positions and flags as a [Layout], the JSON/BSON
// format used by files, caches and the HTTP API. [Graph.Restore] puts a
// snapshot back onto a graph of the same shape.
package graph
