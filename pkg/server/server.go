// Package server exposes open layout documents over HTTP.
//
// Every document runs its own layout worker; clients poll the snapshot or
// the SVG rendering while dragging, pinning and exploring through the
// mutation routes. All mutations go through the graph store's write lock
// and perturb the layout, so a stable document starts moving again.
//
// # Routes
//
//	GET    /healthz
//	POST   /render                                  one-shot pipeline
//	POST   /documents                               create from a model body
//	GET    /documents
//	GET    /documents/{id}                          layout snapshot
//	GET    /documents/{id}/svg
//	DELETE /documents/{id}
//	POST   /documents/{id}/start
//	POST   /documents/{id}/stop
//	PUT    /documents/{id}/settings
//	PUT    /documents/{id}/clip
//	PUT    /documents/{id}/{kind}/{index}/position
//	PUT    /documents/{id}/{kind}/{index}/anchor
//	PUT    /documents/{id}/{kind}/{index}/lock
//	POST   /documents/{id}/exploration
//	DELETE /documents/{id}/exploration
//	POST   /documents/{id}/exploration/{index}/toggle
//
// Errors are JSON objects {"code", "message"} with the status derived from
// the error code.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mCRL2org/ltsgraph/pkg/pipeline"
	"github.com/mCRL2org/ltsgraph/pkg/session"
)

// Request limits.
const (
	maxBodyBytes   = 32 << 20
	requestTimeout = 60 * time.Second
	shutdownGrace  = 5 * time.Second
)

// Server serves the document API.
type Server struct {
	docs   *session.Manager
	runner *pipeline.Runner
	logger *log.Logger
	router chi.Router
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRunner sets the pipeline runner used for renderings. Without one,
// renderings are not cached.
func WithRunner(r *pipeline.Runner) Option {
	return func(s *Server) {
		if r != nil {
			s.runner = r
		}
	}
}

// New returns a server over docs.
func New(docs *session.Manager, opts ...Option) *Server {
	s := &Server{docs: docs, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Post("/render", s.handleRender)

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleSnapshot)
			r.Get("/svg", s.handleSVG)
			r.Delete("/", s.handleDelete)
			r.Post("/start", s.handleStart)
			r.Post("/stop", s.handleStop)
			r.Put("/settings", s.handleSettings)
			r.Put("/clip", s.handleClip)

			r.Post("/exploration", s.handleStartExploration)
			r.Delete("/exploration", s.handleDiscardExploration)
			r.Post("/exploration/{index}/toggle", s.handleToggle)

			r.Put("/{kind}/{index}/position", s.handleMove)
			r.Put("/{kind}/{index}/anchor", s.handleAnchor)
			r.Put("/{kind}/{index}/lock", s.handleLock)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully and closes every document.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if cerr := s.docs.Close(); err == nil {
		err = cerr
	}
	if serr := <-errc; !stderrors.Is(serr, http.ErrServerClosed) {
		return serr
	}
	return err
}
