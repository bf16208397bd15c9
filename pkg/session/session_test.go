package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
	"github.com/mCRL2org/ltsgraph/pkg/layout"
)

func model() graph.Model {
	return graph.Model{
		States: []string{"a", "b", "c"},
		Transitions: []graph.Transition{
			{From: 0, To: 1, Label: "x"},
			{From: 1, To: 2, Label: "y"},
			{From: 2, To: 2, Label: "z"},
		},
	}
}

func newManager(opts ...Option) *Manager {
	return NewManager(append([]Option{WithPeriod(time.Millisecond)}, opts...)...)
}

func TestCreateAndGet(t *testing.T) {
	m := newManager()
	defer m.Close()

	d, err := m.Create("abc", model(), false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(d.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", d.ID, err)
	}
	got, err := m.Get(d.ID)
	if err != nil || got != d {
		t.Fatalf("Get = %v, %v", got, err)
	}

	info := d.Info()
	if info.States != 3 || info.Transitions != 3 || info.Running || info.Name != "abc" {
		t.Errorf("Info = %+v", info)
	}
}

func TestCreateRejectsInvalidModel(t *testing.T) {
	m := newManager()
	defer m.Close()

	_, err := m.Create("bad", graph.Model{States: []string{"a"}, Initial: 4}, false)
	if !errors.Is(err, errors.ErrCodeInvalidModel) {
		t.Errorf("err = %v, want INVALID_MODEL", err)
	}
	if len(m.List()) != 0 {
		t.Error("invalid document registered")
	}
}

func TestNotFound(t *testing.T) {
	m := newManager()
	defer m.Close()

	if _, err := m.Get("nope"); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("Get err = %v", err)
	}
	if err := m.Delete("nope"); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("Delete err = %v", err)
	}
	if err := m.Persist("nope"); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("Persist err = %v", err)
	}
}

func TestWorkerRunsAndDeleteStopsIt(t *testing.T) {
	m := newManager()
	defer m.Close()

	d, err := m.Create("run", model(), true)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Worker().Active() {
		t.Fatal("worker not started")
	}
	deadline := time.Now().Add(5 * time.Second)
	for d.Worker().Cycles() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Worker().Cycles() < 3 {
		t.Fatalf("worker ran %d cycles", d.Worker().Cycles())
	}

	if err := m.Delete(d.ID); err != nil {
		t.Fatal(err)
	}
	if d.Worker().Active() {
		t.Error("worker still active after Delete")
	}
	if _, err := m.Get(d.ID); err == nil {
		t.Error("document still registered")
	}
}

func TestDocumentsAreIndependent(t *testing.T) {
	m := newManager(WithEngineOptions(layout.WithSeed(7)))
	defer m.Close()

	a, _ := m.Create("a", model(), false)
	b, _ := m.Create("b", model(), false)

	a.Engine().Apply()
	if a.Snapshot().Nodes[0] == b.Snapshot().Nodes[0] {
		// Same seed gives the same placement, so only an iteration on a
		// may have moved it.
		t.Error("iteration on a did not move its nodes")
	}
	if b.Engine().LastStats().Iteration != 0 {
		t.Error("applying a touched b")
	}
}

func TestList(t *testing.T) {
	m := newManager()
	defer m.Close()

	first, _ := m.Create("first", model(), false)
	second, _ := m.Create("second", model(), true)

	infos := m.List()
	if len(infos) != 2 {
		t.Fatalf("List = %d entries", len(infos))
	}
	if infos[0].ID != first.ID || infos[1].ID != second.ID {
		t.Errorf("order = %s, %s", infos[0].Name, infos[1].Name)
	}
	if infos[0].Running || !infos[1].Running {
		t.Errorf("running = %v, %v", infos[0].Running, infos[1].Running)
	}
}

func TestCloseStopsWorkers(t *testing.T) {
	m := newManager()
	d, _ := m.Create("x", model(), true)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if d.Worker().Active() {
		t.Error("worker active after Close")
	}
}

func TestPersistAndRestore(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	m := newManager(WithFileStore(fs))
	d, err := m.Create("saved", model(), false)
	if err != nil {
		t.Fatal(err)
	}
	err = nil
	d.Store().Update(func(g *graph.Graph) {
		err = g.Move(graph.KindNode, 1, r3.Vec{X: 12, Y: 34})
		if err == nil {
			err = g.SetLocked(graph.KindNode, 1, true)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	restored := newManager(WithFileStore(fs))
	defer restored.Close()
	n, err := restored.Restore()
	if err != nil || n != 1 {
		t.Fatalf("Restore = %d, %v", n, err)
	}
	got, err := restored.Get(d.ID)
	if err != nil {
		t.Fatal(err)
	}
	p := got.Snapshot().Nodes[1]
	if p.X != 12 || p.Y != 34 || !p.Locked {
		t.Errorf("restored node = %+v", p)
	}
	if got.Name != "saved" || got.Worker().Active() {
		t.Errorf("restored doc = %+v running=%v", got.Info(), got.Worker().Active())
	}

	if err := restored.Delete(d.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, d.ID+".json")); !os.IsNotExist(err) {
		t.Errorf("record file survives Delete: %v", err)
	}
}

func TestFileStore(t *testing.T) {
	if _, err := NewFileStore(""); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("empty dir err = %v", err)
	}

	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if fs.Path() != dir {
		t.Errorf("Path = %q", fs.Path())
	}

	if _, err := fs.Load("missing"); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("Load missing err = %v", err)
	}

	now := time.Now()
	for i, name := range []string{"old", "new"} {
		rec := Record{ID: name, Name: name, Created: now.Add(time.Duration(i) * time.Second)}
		if err := fs.Save(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Load("junk"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Load junk err = %v", err)
	}

	recs, err := fs.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].ID != "old" || recs[1].ID != "new" {
		t.Errorf("List = %+v", recs)
	}

	if err := fs.Delete("old"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Delete("old"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}
