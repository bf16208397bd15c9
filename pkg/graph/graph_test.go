package graph

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// chain is 0 -a-> 1 -b-> 2 with a self-loop on 2.
func chain() Model {
	return Model{
		Initial: 0,
		States:  []string{"s0", "s1", "s2"},
		Transitions: []Transition{
			{From: 0, To: 1, Label: "a"},
			{From: 1, To: 2, Label: "b"},
			{From: 2, To: 2, Label: "a"},
		},
	}
}

func grid() func() r3.Vec {
	i := 0.0
	return func() r3.Vec {
		i++
		return r3.Vec{X: 10 * i, Y: -5 * i}
	}
}

func loaded(t *testing.T, m Model) *Graph {
	t.Helper()
	var g Graph
	if err := g.Load(m, grid()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return &g
}

func TestLoad(t *testing.T) {
	g := loaded(t, chain())

	if g.NodeCount() != 3 || g.EdgeCount() != 3 {
		t.Fatalf("counts = %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if got, want := g.Handle(0).Pos, (r3.Vec{X: 15, Y: -7.5}); got != want {
		t.Errorf("handle 0 at %v, want midpoint %v", got, want)
	}
	if got := g.TransitionLabel(1).Pos; got != g.Handle(1).Pos {
		t.Errorf("transition label 1 at %v, want on handle %v", got, g.Handle(1).Pos)
	}
	if got := g.StateLabel(2).Pos; got != g.Node(2).Pos {
		t.Errorf("state label 2 at %v, want on node %v", got, g.Node(2).Pos)
	}
	if d := r3.Norm(r3.Sub(g.Handle(2).Pos, g.Node(2).Pos)); d == 0 {
		t.Error("self-loop handle starts on its node")
	}
	if g.TransitionText(0) != "a" || g.TransitionText(2) != "a" || g.TransitionText(1) != "b" {
		t.Errorf("transition texts = %q %q %q", g.TransitionText(0), g.TransitionText(1), g.TransitionText(2))
	}
	if g.StateText(1) != "s1" {
		t.Errorf("StateText(1) = %q", g.StateText(1))
	}
	if g.Revision() == 0 || g.Stable() {
		t.Errorf("Load did not perturb: revision %d, stable %v", g.Revision(), g.Stable())
	}
}

func TestLoadRejectsInvalidModel(t *testing.T) {
	tests := []struct {
		name string
		m    Model
		want error
	}{
		{"edge to missing node", Model{States: []string{"a"}, Transitions: []Transition{{From: 0, To: 1}}}, ErrInvalidEdge},
		{"negative source", Model{States: []string{"a"}, Transitions: []Transition{{From: -1, To: 0}}}, ErrInvalidEdge},
		{"initial out of range", Model{Initial: 4, States: []string{"a"}}, ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Graph
			if err := g.Load(tt.m, grid()); !errors.Is(err, tt.want) {
				t.Errorf("Load error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadClearsSelection(t *testing.T) {
	g := loaded(t, chain())
	if err := g.Select([]int{0}, []int{0}); err != nil {
		t.Fatal(err)
	}
	g.StartExploration()
	if err := g.Load(chain(), grid()); err != nil {
		t.Fatal(err)
	}
	if g.HasSelection() || g.Exploring() {
		t.Error("selection survived a reload")
	}
}

func TestLockedImpliesAnchored(t *testing.T) {
	var p Point
	steps := []struct {
		name string
		op   func()
	}{
		{"lock", func() { p.SetLocked(true) }},
		{"release anchor while locked", func() { p.SetAnchored(false) }},
		{"anchor", func() { p.SetAnchored(true) }},
		{"unlock", func() { p.SetLocked(false) }},
		{"lock again", func() { p.SetLocked(true) }},
	}
	for _, s := range steps {
		s.op()
		if p.Locked() && !p.Anchored() {
			t.Fatalf("after %s: locked but not anchored", s.name)
		}
	}
	p.SetLocked(false)
	if p.Anchored() {
		t.Error("unlocking left the point anchored")
	}
}

func TestInteractionPerturbs(t *testing.T) {
	g := loaded(t, chain())
	g.SetStable(true)
	rev := g.Revision()

	if err := g.SetAnchored(KindNode, 1, true); err != nil {
		t.Fatal(err)
	}
	if g.Revision() != rev || !g.Stable() {
		t.Error("anchoring perturbed the layout")
	}
	if err := g.SetAnchored(KindNode, 1, false); err != nil {
		t.Fatal(err)
	}
	if g.Revision() == rev || g.Stable() {
		t.Error("releasing an anchor did not perturb the layout")
	}

	rev = g.Revision()
	if err := g.Move(KindHandle, 0, r3.Vec{X: 1}); err != nil {
		t.Fatal(err)
	}
	if g.Revision() == rev || g.Handle(0).Pos != (r3.Vec{X: 1}) {
		t.Error("Move did not update the handle")
	}

	if err := g.Move(KindStateLabel, 9, r3.Vec{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Move out of range error = %v", err)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindNode, KindHandle, KindTransitionLabel, KindStateLabel} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k, got, err)
		}
	}
	if _, err := ParseKind("edges"); err == nil {
		t.Error("ParseKind accepted an unknown kind")
	}
}

func TestSelection(t *testing.T) {
	g := loaded(t, chain())
	if g.WorkingNodeCount() != 3 || g.WorkingEdgeCount() != 3 {
		t.Fatal("full working set expected without selection")
	}
	if err := g.Select([]int{2, 0, 2}, []int{1}); err != nil {
		t.Fatal(err)
	}
	if g.SelectionNodeCount() != 2 || g.SelectionNode(0) != 0 || g.SelectionNode(1) != 2 {
		t.Errorf("selected nodes not sorted and deduplicated")
	}
	if g.WorkingEdgeCount() != 1 || g.WorkingEdge(0) != 1 {
		t.Errorf("working edges = %d", g.WorkingEdgeCount())
	}
	if err := g.Select([]int{3}, nil); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Select out of range error = %v", err)
	}
	g.ClearSelection()
	if g.HasSelection() {
		t.Error("ClearSelection kept the selection")
	}
}

func TestExploration(t *testing.T) {
	g := loaded(t, chain())
	if err := g.ToggleOpen(1); !errors.Is(err, ErrNotExploring) {
		t.Fatalf("ToggleOpen outside exploration error = %v", err)
	}

	g.StartExploration()
	// Initial state open: nodes 0 and its successor 1, edge 0.
	if g.WorkingNodeCount() != 2 || g.WorkingEdgeCount() != 1 {
		t.Fatalf("working set = %d nodes, %d edges, want 2, 1", g.WorkingNodeCount(), g.WorkingEdgeCount())
	}
	if g.CanToggle(0) {
		t.Error("initial state must stay open")
	}

	if err := g.ToggleOpen(1); err != nil {
		t.Fatal(err)
	}
	if g.WorkingNodeCount() != 3 || g.WorkingEdgeCount() != 2 {
		t.Errorf("after opening 1: %d nodes, %d edges, want 3, 2", g.WorkingNodeCount(), g.WorkingEdgeCount())
	}

	if err := g.ToggleOpen(1); err != nil {
		t.Fatal(err)
	}
	if g.WorkingNodeCount() != 2 {
		t.Errorf("after closing 1: %d nodes, want 2", g.WorkingNodeCount())
	}

	g.DiscardExploration()
	if g.HasSelection() || g.Exploring() || g.Node(0).Active {
		t.Error("DiscardExploration left state behind")
	}
}

func TestSnapshotRestore(t *testing.T) {
	g := loaded(t, chain())
	_ = g.SetLocked(KindNode, 1, true)
	snap := g.Snapshot()

	var buf bytes.Buffer
	if err := WriteLayout(&buf, snap); err != nil {
		t.Fatal(err)
	}
	decoded, err := ReadLayout(&buf)
	if err != nil {
		t.Fatal(err)
	}

	var h Graph
	if err := h.Load(decoded.Model(), func() r3.Vec { return r3.Vec{} }); err != nil {
		t.Fatal(err)
	}
	if err := h.Restore(decoded); err != nil {
		t.Fatal(err)
	}
	for i := range g.NodeCount() {
		if h.Node(i).Pos != g.Node(i).Pos {
			t.Errorf("node %d at %v, want %v", i, h.Node(i).Pos, g.Node(i).Pos)
		}
	}
	if !h.Node(1).Locked() || !h.Node(1).Anchored() {
		t.Error("lock not restored")
	}
	if h.TransitionText(1) != "b" {
		t.Errorf("label text = %q", h.TransitionText(1))
	}

	var other Graph
	_ = other.Load(Model{States: []string{"x"}}, grid())
	if err := other.Restore(snap); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Restore onto other shape error = %v", err)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	s.Update(func(g *Graph) {
		if err := g.Load(chain(), func() r3.Vec { return r3.Vec{X: -1} }); err != nil {
			t.Error(err)
		}
	})

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				if w == 0 {
					s.Update(func(g *Graph) {
						for j := range g.NodeCount() {
							g.Node(j).Pos = r3.Vec{X: float64(i)}
						}
					})
					continue
				}
				s.Read(func(g *Graph) {
					// Every frame sees one consistent iteration.
					x := g.Node(0).Pos.X
					for j := range g.NodeCount() {
						if g.Node(j).Pos.X != x {
							t.Errorf("torn read: node %d at %v, node 0 at %v", j, g.Node(j).Pos.X, x)
						}
					}
				})
			}
		}()
	}
	wg.Wait()
}
