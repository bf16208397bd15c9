package graph

import (
	"fmt"
	"slices"
)

// selection is an explicit working set of node and edge indices, both in
// ascending order.
type selection struct {
	nodes []int
	edges []int
}

// HasSelection reports whether the working set is restricted.
func (g *Graph) HasSelection() bool { return g.sel != nil }

// SelectionNodeCount returns the number of selected nodes, 0 without a
// selection.
func (g *Graph) SelectionNodeCount() int {
	if g.sel == nil {
		return 0
	}
	return len(g.sel.nodes)
}

// SelectionNode returns the node index of selected node i.
func (g *Graph) SelectionNode(i int) int { return g.sel.nodes[i] }

// SelectionEdgeCount returns the number of selected edges, 0 without a
// selection.
func (g *Graph) SelectionEdgeCount() int {
	if g.sel == nil {
		return 0
	}
	return len(g.sel.edges)
}

// SelectionEdge returns the edge index of selected edge i.
func (g *Graph) SelectionEdge(i int) int { return g.sel.edges[i] }

// WorkingNodeCount returns the number of nodes the layout operates on.
func (g *Graph) WorkingNodeCount() int {
	if g.sel == nil {
		return len(g.nodes)
	}
	return len(g.sel.nodes)
}

// WorkingNode returns the node index of working-set node i.
func (g *Graph) WorkingNode(i int) int {
	if g.sel == nil {
		return i
	}
	return g.sel.nodes[i]
}

// WorkingEdgeCount returns the number of edges the layout operates on.
func (g *Graph) WorkingEdgeCount() int {
	if g.sel == nil {
		return len(g.edges)
	}
	return len(g.sel.edges)
}

// WorkingEdge returns the edge index of working-set edge i.
func (g *Graph) WorkingEdge(i int) int {
	if g.sel == nil {
		return i
	}
	return g.sel.edges[i]
}

// Select restricts the working set to the given nodes and edges. Indices are
// deduplicated and sorted. Selecting leaves exploration mode.
func (g *Graph) Select(nodes, edges []int) error {
	for _, n := range nodes {
		if n < 0 || n >= len(g.nodes) {
			return fmt.Errorf("select node %d: %w", n, ErrIndexOutOfRange)
		}
	}
	for _, e := range edges {
		if e < 0 || e >= len(g.edges) {
			return fmt.Errorf("select edge %d: %w", e, ErrIndexOutOfRange)
		}
	}
	g.exploring = false
	g.setSelection(nodes, edges)
	return nil
}

// ClearSelection restores the full working set and leaves exploration mode.
func (g *Graph) ClearSelection() {
	if g.sel == nil && !g.exploring {
		return
	}
	g.sel = nil
	g.exploring = false
	g.Perturb()
}

func (g *Graph) setSelection(nodes, edges []int) {
	s := &selection{
		nodes: slices.Compact(slices.Sorted(slices.Values(nodes))),
		edges: slices.Compact(slices.Sorted(slices.Values(edges))),
	}
	g.sel = s
	g.Perturb()
}

// =============================================================================
// Exploration
// =============================================================================

// Exploring reports whether exploration mode is on.
func (g *Graph) Exploring() bool { return g.exploring }

// StartExploration enters exploration mode with only the initial state
// opened. It is a no-op on an empty graph.
func (g *Graph) StartExploration() {
	if len(g.nodes) == 0 {
		return
	}
	for i := range g.nodes {
		g.nodes[i].Active = false
	}
	g.nodes[g.initial].Active = true
	g.exploring = true
	g.explore()
}

// DiscardExploration leaves exploration mode, closes every node and restores
// the full working set.
func (g *Graph) DiscardExploration() {
	for i := range g.nodes {
		g.nodes[i].Active = false
	}
	if g.exploring {
		g.exploring = false
		g.sel = nil
		g.Perturb()
	}
}

// CanToggle reports whether node i may be opened or closed: the initial state
// stays open, and the last open node cannot be closed.
func (g *Graph) CanToggle(i int) bool {
	if !g.exploring || i < 0 || i >= len(g.nodes) || i == g.initial {
		return false
	}
	if !g.nodes[i].Active {
		return true
	}
	open := 0
	for j := range g.nodes {
		if g.nodes[j].Active {
			open++
		}
	}
	return open > 1
}

// ToggleOpen opens a closed node or closes an open one and recomputes the
// working set.
func (g *Graph) ToggleOpen(i int) error {
	if !g.exploring {
		return ErrNotExploring
	}
	if !g.CanToggle(i) {
		return fmt.Errorf("node %d: %w", i, ErrNotToggleable)
	}
	g.nodes[i].Active = !g.nodes[i].Active
	g.explore()
	return nil
}

// explore derives the working set from the open nodes: open nodes, their
// successors, and the edges leaving open nodes.
func (g *Graph) explore() {
	visible := make([]bool, len(g.nodes))
	var edges []int
	for i, e := range g.edges {
		if g.nodes[e.From].Active {
			edges = append(edges, i)
			visible[e.To] = true
		}
	}
	var nodes []int
	for i := range g.nodes {
		if g.nodes[i].Active || visible[i] {
			nodes = append(nodes, i)
		}
	}
	g.setSelection(nodes, edges)
}
