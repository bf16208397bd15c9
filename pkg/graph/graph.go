package graph

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// Sentinel errors for graph operations.
var (
	// ErrIndexOutOfRange is returned when an index does not name an
	// existing point, node or edge.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidEdge is returned when an edge refers to a missing node.
	ErrInvalidEdge = errors.New("edge refers to a missing node")

	// ErrNotExploring is returned by exploration operations outside
	// exploration mode.
	ErrNotExploring = errors.New("exploration is not active")

	// ErrNotToggleable is returned when a node may not be opened or closed.
	ErrNotToggleable = errors.New("node cannot be toggled")

	// ErrShapeMismatch is returned when a snapshot does not fit the graph.
	ErrShapeMismatch = errors.New("layout does not match graph")
)

// selfLoopOffset is the initial displacement of a self-loop handle from its
// node, so the loop has a direction to bulge in.
var selfLoopOffset = r3.Vec{Y: 1}

// =============================================================================
// Store
// =============================================================================

// Store guards a [Graph] with a reader/writer lock.
type Store struct {
	mu sync.RWMutex
	g  Graph
}

// NewStore returns a store holding an empty graph.
func NewStore() *Store {
	return &Store{}
}

// Read runs fn with shared access to the graph. fn must not mutate it and
// must not retain the pointer after returning.
func (s *Store) Read(fn func(g *Graph)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.g)
}

// Update runs fn with exclusive access to the graph.
func (s *Store) Update(fn func(g *Graph)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.g)
}

// =============================================================================
// Graph
// =============================================================================

// Graph holds the point masses of one loaded model. See the package
// documentation for the locking rules.
type Graph struct {
	nodes            []Node
	handles          []Point
	transitionLabels []Label
	stateLabels      []Label
	edges            []Edge

	labels  []string // transition label texts, deduplicated
	states  []string // state label texts, one per node
	initial int

	sel       *selection
	exploring bool

	stable   bool
	revision uint64
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges. Every edge owns one handle and one
// transition label.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Node returns node i.
func (g *Graph) Node(i int) *Node { return &g.nodes[i] }

// Handle returns the handle of edge i.
func (g *Graph) Handle(i int) *Point { return &g.handles[i] }

// TransitionLabel returns the label of edge i.
func (g *Graph) TransitionLabel(i int) *Label { return &g.transitionLabels[i] }

// StateLabel returns the label of node i.
func (g *Graph) StateLabel(i int) *Label { return &g.stateLabels[i] }

// Edge returns edge i.
func (g *Graph) Edge(i int) Edge { return g.edges[i] }

// InitialState returns the index of the initial node.
func (g *Graph) InitialState() int { return g.initial }

// TransitionText returns the text of the label of edge i.
func (g *Graph) TransitionText(i int) string { return g.labels[g.transitionLabels[i].Text] }

// StateText returns the text of the label of node i.
func (g *Graph) StateText(i int) string { return g.states[g.stateLabels[i].Text] }

// Count returns the size of the collection of the given kind.
func (g *Graph) Count(k Kind) int {
	switch k {
	case KindNode, KindStateLabel:
		return len(g.nodes)
	case KindHandle, KindTransitionLabel:
		return len(g.edges)
	}
	return 0
}

// Point returns point i of the given kind.
func (g *Graph) Point(k Kind, i int) (*Point, error) {
	if i < 0 || i >= g.Count(k) {
		return nil, fmt.Errorf("%s %d: %w", k, i, ErrIndexOutOfRange)
	}
	switch k {
	case KindNode:
		return &g.nodes[i].Point, nil
	case KindHandle:
		return &g.handles[i], nil
	case KindTransitionLabel:
		return &g.transitionLabels[i].Point, nil
	default:
		return &g.stateLabels[i].Point, nil
	}
}

// Stable reports whether the layout has converged.
func (g *Graph) Stable() bool { return g.stable }

// SetStable marks the layout as converged or not.
func (g *Graph) SetStable(v bool) { g.stable = v }

// Revision counts perturbations since the graph was created.
func (g *Graph) Revision() uint64 { return g.revision }

// Perturb records an external change to the layout: the revision is bumped
// and the stable flag cleared.
func (g *Graph) Perturb() {
	g.revision++
	g.stable = false
}

// =============================================================================
// Interaction
// =============================================================================

// Move places point i of kind k at pos, as a drag does. It does not change
// the anchored flag.
func (g *Graph) Move(k Kind, i int, pos r3.Vec) error {
	p, err := g.Point(k, i)
	if err != nil {
		return err
	}
	p.Pos = pos
	g.Perturb()
	return nil
}

// SetAnchored anchors or releases point i of kind k. Releasing perturbs the
// layout.
func (g *Graph) SetAnchored(k Kind, i int, v bool) error {
	p, err := g.Point(k, i)
	if err != nil {
		return err
	}
	was := p.Anchored()
	p.SetAnchored(v)
	if was && !p.Anchored() {
		g.Perturb()
	}
	return nil
}

// SetLocked pins or unpins point i of kind k. Unpinning perturbs the layout.
func (g *Graph) SetLocked(k Kind, i int, v bool) error {
	p, err := g.Point(k, i)
	if err != nil {
		return err
	}
	was := p.Anchored()
	p.SetLocked(v)
	if was && !p.Anchored() {
		g.Perturb()
	}
	return nil
}

// AnyAnchored reports whether some point of the working set is anchored.
func (g *Graph) AnyAnchored() bool {
	for i := range g.WorkingNodeCount() {
		n := g.WorkingNode(i)
		if g.nodes[n].Anchored() || g.stateLabels[n].Anchored() {
			return true
		}
	}
	for i := range g.WorkingEdgeCount() {
		e := g.WorkingEdge(i)
		if g.handles[e].Anchored() || g.transitionLabels[e].Anchored() {
			return true
		}
	}
	return false
}

// =============================================================================
// Loading
// =============================================================================

// Load replaces the contents of the graph with model m. Nodes are placed at
// positions drawn from place; handles and transition labels start at the
// midpoint of their edge and state labels on their node. Any selection or
// exploration is discarded.
func (g *Graph) Load(m Model, place func() r3.Vec) error {
	if err := m.Validate(); err != nil {
		return err
	}

	n, e := len(m.States), len(m.Transitions)
	g.nodes = make([]Node, n)
	g.stateLabels = make([]Label, n)
	g.states = append([]string(nil), m.States...)
	for i := range n {
		pos := place()
		g.nodes[i] = Node{Point: Point{Pos: pos}}
		g.stateLabels[i] = Label{Point: Point{Pos: pos}, Text: i}
	}

	g.edges = make([]Edge, e)
	g.handles = make([]Point, e)
	g.transitionLabels = make([]Label, e)
	g.labels = g.labels[:0]
	index := make(map[string]int)
	for i, t := range m.Transitions {
		g.edges[i] = Edge{From: t.From, To: t.To}

		text, ok := index[t.Label]
		if !ok {
			text = len(g.labels)
			index[t.Label] = text
			g.labels = append(g.labels, t.Label)
		}

		mid := g.midpoint(g.edges[i])
		handle := mid
		if g.edges[i].SelfLoop() {
			handle = r3.Add(mid, selfLoopOffset)
		}
		g.handles[i] = Point{Pos: handle}
		g.transitionLabels[i] = Label{Point: Point{Pos: handle}, Text: text}
	}

	g.initial = m.Initial
	g.sel = nil
	g.exploring = false
	g.Perturb()
	return nil
}

// Clear removes all points and edges.
func (g *Graph) Clear() {
	rev := g.revision
	*g = Graph{revision: rev}
	g.Perturb()
}

// Midpoint returns the midpoint between the endpoints of edge i.
func (g *Graph) Midpoint(i int) r3.Vec { return g.midpoint(g.edges[i]) }

func (g *Graph) midpoint(e Edge) r3.Vec {
	return r3.Scale(0.5, r3.Add(g.nodes[e.From].Pos, g.nodes[e.To].Pos))
}
