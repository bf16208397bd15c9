// Package session manages open layout documents.
//
// A [Document] is one transition system being laid out interactively: it
// owns a graph store, a spring layout engine with its own random source and
// a background worker. The [Manager] keys documents by UUID and can persist
// their layouts to a [FileStore] so a restarted server picks them up again.
//
// # Usage
//
//	m := session.NewManager(session.WithEngineOptions(cfg.EngineOptions()...))
//	defer m.Close()
//
//	doc, err := m.Create("peterson", model, true)
//	if err != nil {
//	    return err
//	}
//	doc.Store().Read(func(g *graph.Graph) {
//	    // draw one frame
//	})
package session

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
	"github.com/mCRL2org/ltsgraph/pkg/layout"
	"github.com/mCRL2org/ltsgraph/pkg/worker"
)

// Document is an open transition system with its layout machinery.
type Document struct {
	ID      string
	Name    string
	Created time.Time

	store  *graph.Store
	engine *layout.Engine
	worker *worker.Worker
	ctx    context.Context
}

// Store returns the document's graph store.
func (d *Document) Store() *graph.Store { return d.store }

// Engine returns the document's layout engine.
func (d *Document) Engine() *layout.Engine { return d.engine }

// Worker returns the document's layout worker.
func (d *Document) Worker() *worker.Worker { return d.worker }

// Start runs the worker. It returns false if it was already running.
func (d *Document) Start() bool { return d.worker.Start(d.ctx) }

// Stop halts the worker and waits for its current iteration to finish.
func (d *Document) Stop() {
	d.worker.Stop()
	d.worker.Wait()
}

// Snapshot returns the current layout, read under one lock.
func (d *Document) Snapshot() graph.Layout {
	var l graph.Layout
	d.store.Read(func(g *graph.Graph) { l = g.Snapshot() })
	return l
}

// Info summarizes a document.
type Info struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	States      int       `json:"states"`
	Transitions int       `json:"transitions"`
	Running     bool      `json:"running"`
	Stable      bool      `json:"stable"`
	Iterations  int       `json:"iterations"`
	Temperature float64   `json:"temperature"`
}

// Info returns a summary of the document.
func (d *Document) Info() Info {
	info := Info{
		ID:          d.ID,
		Name:        d.Name,
		Created:     d.Created,
		Running:     d.worker.Active(),
		Iterations:  d.engine.LastStats().Iteration,
		Temperature: d.engine.Temperature(),
	}
	d.store.Read(func(g *graph.Graph) {
		info.States = g.NodeCount()
		info.Transitions = g.EdgeCount()
		info.Stable = g.Stable()
	})
	return info
}

// Option configures a [Manager].
type Option func(*Manager)

// WithEngineOptions sets the options every new engine is created with.
func WithEngineOptions(opts ...layout.Option) Option {
	return func(m *Manager) { m.engineOpts = append(m.engineOpts, opts...) }
}

// WithPeriod sets the worker period of new documents.
func WithPeriod(d time.Duration) Option {
	return func(m *Manager) { m.period = d }
}

// WithLogger sets the logger passed to engines and workers.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithFileStore persists document layouts to fs.
func WithFileStore(fs *FileStore) Option {
	return func(m *Manager) { m.files = fs }
}

// Manager is a registry of open documents. It is safe for concurrent use.
type Manager struct {
	engineOpts []layout.Option
	period     time.Duration
	logger     *log.Logger
	files      *FileStore

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	docs map[string]*Document
}

// NewManager returns an empty manager.
func NewManager(opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		period: worker.DefaultPeriod,
		logger: log.Default(),
		ctx:    ctx,
		cancel: cancel,
		docs:   make(map[string]*Document),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens model as a new document and optionally starts its worker.
func (m *Manager) Create(name string, model graph.Model, start bool) (*Document, error) {
	d, err := m.open(uuid.NewString(), name, time.Now(), model)
	if err != nil {
		return nil, err
	}
	if m.files != nil {
		if err := m.files.Save(d.record()); err != nil {
			m.logger.Warn("persist document", "id", d.ID, "err", err)
		}
	}
	if start {
		d.Start()
	}
	return d, nil
}

func (m *Manager) open(id, name string, created time.Time, model graph.Model) (*Document, error) {
	store := graph.NewStore()
	opts := append(slices.Clone(m.engineOpts), layout.WithLogger(m.logger))
	e := layout.New(store, opts...)
	if err := e.Load(model); err != nil {
		return nil, err
	}
	d := &Document{
		ID:      id,
		Name:    name,
		Created: created,
		store:   store,
		engine:  e,
		worker:  worker.New(e, worker.WithPeriod(m.period), worker.WithLogger(m.logger)),
		ctx:     m.ctx,
	}

	m.mu.Lock()
	m.docs[id] = d
	m.mu.Unlock()
	m.logger.Debug("opened document", "id", id, "name", name, "states", len(model.States))
	return d, nil
}

// Get returns the document with the given ID.
func (m *Manager) Get(id string) (*Document, error) {
	m.mu.RLock()
	d, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "document %q not found", id)
	}
	return d, nil
}

// List returns summaries of all documents, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	docs := make([]*Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, d)
	}
	m.mu.RUnlock()

	slices.SortFunc(docs, func(a, b *Document) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	infos := make([]Info, len(docs))
	for i, d := range docs {
		infos[i] = d.Info()
	}
	return infos
}

// Delete stops and removes a document.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	d, ok := m.docs[id]
	delete(m.docs, id)
	m.mu.Unlock()
	if !ok {
		return errors.New(errors.ErrCodeSessionNotFound, "document %q not found", id)
	}
	d.Stop()
	if m.files != nil {
		return m.files.Delete(id)
	}
	return nil
}

// Persist saves the current layout of a document to the file store. It does
// nothing without a file store.
func (m *Manager) Persist(id string) error {
	d, err := m.Get(id)
	if err != nil {
		return err
	}
	if m.files == nil {
		return nil
	}
	return m.files.Save(d.record())
}

// Restore reopens every document in the file store. Workers are not
// started. It returns the number of documents restored.
func (m *Manager) Restore() (int, error) {
	if m.files == nil {
		return 0, nil
	}
	recs, err := m.files.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range recs {
		if _, err := m.Get(rec.ID); err == nil {
			continue
		}
		d, err := m.open(rec.ID, rec.Name, rec.Created, rec.Layout.Model())
		if err != nil {
			m.logger.Warn("restore document", "id", rec.ID, "err", err)
			continue
		}
		d.store.Update(func(g *graph.Graph) { err = g.Restore(rec.Layout) })
		if err != nil {
			m.logger.Warn("restore layout", "id", rec.ID, "err", err)
		}
		n++
	}
	return n, nil
}

// Close stops every worker and saves every layout to the file store.
func (m *Manager) Close() error {
	m.cancel()

	m.mu.RLock()
	docs := make([]*Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, d)
	}
	m.mu.RUnlock()

	var firstErr error
	for _, d := range docs {
		d.Stop()
		if m.files != nil {
			if err := m.files.Save(d.record()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (d *Document) record() Record {
	return Record{ID: d.ID, Name: d.Name, Created: d.Created, Layout: d.Snapshot()}
}
