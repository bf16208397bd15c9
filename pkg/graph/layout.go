package graph

import (
	"encoding/json"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"
)

// =============================================================================
// Layout - Position Snapshot
// =============================================================================

// Layout is the serialization format of a laid-out graph: structure, texts,
// positions and pin flags. Used for layout files, the cache and the HTTP API.
//
// Handles and transition labels are indexed like Edges; state labels like
// Nodes.
type Layout struct {
	Initial          int           `json:"initial" bson:"initial"`
	States           []string      `json:"states" bson:"states"`
	Edges            []LayoutEdge  `json:"edges" bson:"edges"`
	Nodes            []LayoutPoint `json:"nodes" bson:"nodes"`
	Handles          []LayoutPoint `json:"handles" bson:"handles"`
	TransitionLabels []LayoutPoint `json:"transition_labels" bson:"transition_labels"`
	StateLabels      []LayoutPoint `json:"state_labels" bson:"state_labels"`
	Stable           bool          `json:"stable,omitempty" bson:"stable,omitempty"`
}

// LayoutEdge is a labelled edge of a [Layout].
type LayoutEdge struct {
	From  int    `json:"from" bson:"from"`
	To    int    `json:"to" bson:"to"`
	Label string `json:"label" bson:"label"`
}

// LayoutPoint is the position and pin state of one point.
type LayoutPoint struct {
	X        float64 `json:"x" bson:"x"`
	Y        float64 `json:"y" bson:"y"`
	Z        float64 `json:"z" bson:"z"`
	Anchored bool    `json:"anchored,omitempty" bson:"anchored,omitempty"`
	Locked   bool    `json:"locked,omitempty" bson:"locked,omitempty"`
}

// Vec returns the position as a vector.
func (p LayoutPoint) Vec() r3.Vec { return r3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

func exportPoint(p *Point) LayoutPoint {
	return LayoutPoint{X: p.Pos.X, Y: p.Pos.Y, Z: p.Pos.Z, Anchored: p.anchored, Locked: p.locked}
}

func importPoint(p *Point, lp LayoutPoint) {
	p.Pos = lp.Vec()
	p.locked = lp.Locked
	p.anchored = lp.Anchored || lp.Locked
}

// Model returns the structure of the layout without positions.
func (l *Layout) Model() Model {
	m := Model{
		Initial:     l.Initial,
		States:      append([]string(nil), l.States...),
		Transitions: make([]Transition, len(l.Edges)),
	}
	for i, e := range l.Edges {
		m.Transitions[i] = Transition{From: e.From, To: e.To, Label: e.Label}
	}
	return m
}

// Snapshot captures the current layout.
func (g *Graph) Snapshot() Layout {
	l := Layout{
		Initial:          g.initial,
		States:           append([]string(nil), g.states...),
		Edges:            make([]LayoutEdge, len(g.edges)),
		Nodes:            make([]LayoutPoint, len(g.nodes)),
		Handles:          make([]LayoutPoint, len(g.edges)),
		TransitionLabels: make([]LayoutPoint, len(g.edges)),
		StateLabels:      make([]LayoutPoint, len(g.nodes)),
		Stable:           g.stable,
	}
	for i := range g.nodes {
		l.Nodes[i] = exportPoint(&g.nodes[i].Point)
		l.StateLabels[i] = exportPoint(&g.stateLabels[i].Point)
	}
	for i, e := range g.edges {
		l.Edges[i] = LayoutEdge{From: e.From, To: e.To, Label: g.TransitionText(i)}
		l.Handles[i] = exportPoint(&g.handles[i])
		l.TransitionLabels[i] = exportPoint(&g.transitionLabels[i].Point)
	}
	return l
}

// Restore copies positions and pin flags from l onto the graph. The layout
// must have the same nodes and edges as the graph.
func (g *Graph) Restore(l Layout) error {
	if len(l.Nodes) != len(g.nodes) || len(l.StateLabels) != len(g.nodes) ||
		len(l.Edges) != len(g.edges) || len(l.Handles) != len(g.edges) ||
		len(l.TransitionLabels) != len(g.edges) {
		return ErrShapeMismatch
	}
	for i, e := range l.Edges {
		if e.From != g.edges[i].From || e.To != g.edges[i].To {
			return fmt.Errorf("edge %d: %w", i, ErrShapeMismatch)
		}
	}
	for i := range g.nodes {
		importPoint(&g.nodes[i].Point, l.Nodes[i])
		importPoint(&g.stateLabels[i].Point, l.StateLabels[i])
	}
	for i := range g.edges {
		importPoint(&g.handles[i], l.Handles[i])
		importPoint(&g.transitionLabels[i].Point, l.TransitionLabels[i])
	}
	g.Perturb()
	g.stable = l.Stable
	return nil
}

// =============================================================================
// Encoding
// =============================================================================

// MarshalLayout encodes a layout as indented JSON.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout decodes a layout from JSON.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	return l, nil
}

// WriteLayout encodes a layout as JSON to w.
func WriteLayout(w io.Writer, l Layout) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ReadLayout decodes a layout from r.
func ReadLayout(r io.Reader) (Layout, error) {
	var l Layout
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	return l, nil
}
