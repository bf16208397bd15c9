// Package worker runs a layout engine on its own goroutine.
//
// The loop is apply, then sleep for whatever is left of the period. The
// graph store's lock is the only synchronization with readers: the worker
// never blocks on anything but the write lock taken inside Apply, and
// readers never wait longer than one iteration.
//
// Shutdown is cooperative. [Worker.Stop] interrupts the sleep at once but
// lets a running Apply finish; [Worker.Wait] joins the goroutine.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mCRL2org/ltsgraph/pkg/layout"
	"github.com/mCRL2org/ltsgraph/pkg/observability"
)

// DefaultPeriod is the target time between the starts of two iterations.
const DefaultPeriod = 50 * time.Millisecond

// reportEvery is how often a running worker logs its throughput.
const reportEvery = time.Second

// Layout is the part of the engine the worker drives.
type Layout interface {
	Apply() layout.Stats
}

// Option configures a [Worker].
type Option func(*Worker)

// WithPeriod sets the target iteration period. Zero runs iterations back to
// back.
func WithPeriod(d time.Duration) Option {
	return func(w *Worker) { w.period = max(d, 0) }
}

// WithLogger sets the logger for throughput reports.
func WithLogger(l *log.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// Worker repeatedly applies a layout in the background.
type Worker struct {
	layout Layout
	logger *log.Logger

	mu     sync.Mutex
	period time.Duration
	stop   chan struct{}
	done   chan struct{}
	cycles int
}

// New returns a stopped worker for l.
func New(l Layout, opts ...Option) *Worker {
	w := &Worker{layout: l, logger: log.Default(), period: DefaultPeriod}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the loop. It returns false if the worker is already
// running. The loop also ends when ctx is done.
func (w *Worker) Start(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		return false
	}
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.run(ctx, w.stop, w.done)
	observability.Worker().OnWorkerStart(w.period)
	return true
}

// Stop asks the loop to end. It does not wait; call [Worker.Wait] for that.
// Stopping a stopped worker does nothing.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		close(w.stop)
		w.stop = nil
	}
}

// Wait blocks until the most recently started loop has ended.
func (w *Worker) Wait() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Active reports whether the loop is running and has not been asked to stop.
func (w *Worker) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stop != nil
}

// Period returns the target iteration period.
func (w *Worker) Period() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.period
}

// SetPeriod changes the target period; a running loop picks it up after its
// current sleep.
func (w *Worker) SetPeriod(d time.Duration) {
	w.mu.Lock()
	w.period = max(d, 0)
	w.mu.Unlock()
}

// Cycles returns the number of iterations run since the worker was created.
func (w *Worker) Cycles() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cycles
}

func (w *Worker) run(ctx context.Context, stop chan struct{}, done chan<- struct{}) {
	defer close(done)

	var (
		ran      int
		reported = time.Now()
		window   int
		timer    *time.Timer
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		// A loop ended by ctx clears its own stop channel.
		w.mu.Lock()
		if w.stop == stop {
			w.stop = nil
		}
		w.mu.Unlock()
		observability.Worker().OnWorkerStop(ran)
	}()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		begin := time.Now()
		st := w.layout.Apply()
		ran++
		window++

		w.mu.Lock()
		w.cycles++
		period := w.period
		w.mu.Unlock()

		if since := time.Since(reported); since >= reportEvery {
			w.logger.Debug("layout worker",
				"cycles/s", float64(window)/since.Seconds(),
				"temperature", st.Temperature,
				"stable", st.Stable)
			reported, window = time.Now(), 0
		}

		rest := period - time.Since(begin)
		if rest <= 0 {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(rest)
		} else {
			timer.Reset(rest)
		}
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}
