package graph

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/errors"
)

// =============================================================================
// Kinds
// =============================================================================

// Kind identifies one of the four point collections.
type Kind int

const (
	KindNode Kind = iota
	KindHandle
	KindTransitionLabel
	KindStateLabel
)

var kindNames = [...]string{"nodes", "handles", "transition-labels", "state-labels"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind parses a collection name as used in URLs, e.g. "handles".
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown point kind %q", s)
}

// =============================================================================
// Points
// =============================================================================

// Point is a particle of the simulation.
type Point struct {
	Pos      r3.Vec
	Selected float64 // highlight intensity in [0, 1]; presentation only

	anchored bool
	locked   bool
}

// Anchored reports whether the layout must leave the point in place.
func (p *Point) Anchored() bool { return p.anchored }

// Locked reports whether the user pinned the point.
func (p *Point) Locked() bool { return p.locked }

// SetAnchored anchors or releases the point. Releasing a locked point has no
// effect.
func (p *Point) SetAnchored(v bool) {
	if !v && p.locked {
		return
	}
	p.anchored = v
}

// SetLocked pins or unpins the point. Pinning also anchors it; unpinning
// releases the anchor.
func (p *Point) SetLocked(v bool) {
	p.locked = v
	p.anchored = v
}

// Node is a state of the transition system.
type Node struct {
	Point
	Active bool // opened in exploration mode
}

// Label is a text tag floating near its owner. Text indexes the owning
// graph's label table.
type Label struct {
	Point
	Text int
}

// Edge is a transition between two node indices. From == To is a self-loop.
type Edge struct {
	From int `json:"from" bson:"from"`
	To   int `json:"to" bson:"to"`
}

// SelfLoop reports whether the edge starts and ends at the same node.
func (e Edge) SelfLoop() bool { return e.From == e.To }

// =============================================================================
// Model
// =============================================================================

// Transition is one labelled edge of a [Model].
type Transition struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Label string `json:"label"`
}

// Model is the structure of a labelled transition system, independent of
// any layout. It is what loaders produce and what [Graph.Load] consumes.
type Model struct {
	Initial     int          `json:"initial"`
	States      []string     `json:"states"`
	Transitions []Transition `json:"transitions"`
}

// Validate checks that the initial state and all transitions refer to
// existing states.
func (m *Model) Validate() error {
	n := len(m.States)
	if n > 0 && (m.Initial < 0 || m.Initial >= n) {
		return errors.Wrap(errors.ErrCodeInvalidModel, ErrIndexOutOfRange, "initial state %d", m.Initial)
	}
	for i, t := range m.Transitions {
		if t.From < 0 || t.From >= n || t.To < 0 || t.To >= n {
			return errors.Wrap(errors.ErrCodeInvalidModel, ErrInvalidEdge, "transition %d (%d -> %d) with %d states", i, t.From, t.To, n)
		}
	}
	return nil
}
