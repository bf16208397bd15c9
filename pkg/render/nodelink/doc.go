// Package nodelink renders laid-out transition systems with Graphviz.
//
// # Overview
//
// The layout computed by the spring engine is kept as is: every state is
// emitted with a pinned position ("x,y!") and the graph is laid out with
// neato, which honours pinned nodes. Graphviz only routes the edges and
// draws the shapes.
//
// Each non-loop transition is routed through an invisible point at its
// handle, so edges bend the way they do in the interactive view. Transition
// labels become plain-text nodes at their label positions.
//
// # Usage
//
//	var l graph.Layout
//	store.Read(func(g *graph.Graph) { l = g.Snapshot() })
//	dot := nodelink.ToDOT(l, nodelink.Options{Labels: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process rendering;
// no Graphviz installation is needed.
package nodelink
