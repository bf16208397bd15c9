package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/graph"
	"github.com/mCRL2org/ltsgraph/pkg/layout"
)

type counter struct{ n atomic.Int64 }

func (c *counter) Apply() layout.Stats {
	c.n.Add(1)
	return layout.Stats{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartStopWait(t *testing.T) {
	c := &counter{}
	w := New(c, WithPeriod(time.Millisecond))

	if w.Active() {
		t.Fatal("new worker is active")
	}
	if !w.Start(context.Background()) {
		t.Fatal("Start returned false")
	}
	if w.Start(context.Background()) {
		t.Error("second Start returned true")
	}
	if !w.Active() {
		t.Error("running worker is not active")
	}
	waitFor(t, func() bool { return c.n.Load() >= 3 })

	w.Stop()
	w.Wait()
	if w.Active() {
		t.Error("stopped worker is active")
	}
	n := c.n.Load()
	time.Sleep(10 * time.Millisecond)
	if c.n.Load() != n {
		t.Error("worker kept applying after Wait")
	}
	if w.Cycles() != int(n) {
		t.Errorf("Cycles = %d, applies = %d", w.Cycles(), n)
	}
}

func TestStopInterruptsSleep(t *testing.T) {
	c := &counter{}
	w := New(c, WithPeriod(time.Hour))
	w.Start(context.Background())
	waitFor(t, func() bool { return c.n.Load() == 1 })

	begin := time.Now()
	w.Stop()
	w.Wait()
	if d := time.Since(begin); d > time.Second {
		t.Errorf("shutdown took %v", d)
	}
}

func TestContextCancelEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New(&counter{}, WithPeriod(time.Hour))
	w.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not end on cancel")
	}
	w.Stop()
}

func TestStartAfterContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &counter{}
	w := New(c, WithPeriod(time.Hour))
	if !w.Start(ctx) {
		t.Fatal("first start refused")
	}
	cancel()
	w.Wait()

	if w.Active() {
		t.Error("worker still active after its context was cancelled")
	}
	before := c.n.Load()
	if !w.Start(context.Background()) {
		t.Fatal("start after cancel refused")
	}
	waitFor(t, func() bool { return c.n.Load() > before })
	if !w.Active() {
		t.Error("restarted worker not active")
	}
	w.Stop()
	w.Wait()
}

func TestRestart(t *testing.T) {
	c := &counter{}
	w := New(c, WithPeriod(0))
	for range 3 {
		before := c.n.Load()
		w.Start(context.Background())
		waitFor(t, func() bool { return c.n.Load() > before })
		w.Stop()
		w.Wait()
	}
}

func TestStopAndWaitWhenIdle(t *testing.T) {
	w := New(&counter{})
	w.Stop()
	w.Wait()
}

func TestSetPeriod(t *testing.T) {
	w := New(&counter{})
	if w.Period() != DefaultPeriod {
		t.Errorf("Period = %v", w.Period())
	}
	w.SetPeriod(-time.Second)
	if w.Period() != 0 {
		t.Errorf("negative period stored as %v", w.Period())
	}
}

// TestReadersSeeWholeIterations runs a real engine in the background while a
// reader checks that every handle of a symmetric graph sits at the same
// distance from its mirror under one read lock.
func TestReadersSeeWholeIterations(t *testing.T) {
	store := graph.NewStore()
	m := graph.Model{
		States: []string{"a", "b", "c"},
		Transitions: []graph.Transition{
			{From: 0, To: 1, Label: "x"},
			{From: 1, To: 2, Label: "y"},
		},
	}
	at := []r3.Vec{{X: -100}, {}, {X: 100}}
	i := 0
	store.Update(func(g *graph.Graph) {
		if err := g.Load(m, func() r3.Vec { p := at[i]; i++; return p }); err != nil {
			t.Fatal(err)
		}
	})
	s := layout.DefaultSettings()
	s.Jitter = 0
	e := layout.New(store, layout.WithSettings(s))

	w := New(e, WithPeriod(0))
	w.Start(context.Background())
	defer func() {
		w.Stop()
		w.Wait()
	}()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				store.Read(func(g *graph.Graph) {
					a, c := g.Node(0).Pos, g.Node(2).Pos
					if a.X != -c.X || a.Y != c.Y {
						t.Errorf("torn frame: %v vs %v", a, c)
					}
				})
			}
		}()
	}
	wg.Wait()
}
