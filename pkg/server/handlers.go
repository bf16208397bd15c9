package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/buildinfo"
	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
	ltsio "github.com/mCRL2org/ltsgraph/pkg/io"
	"github.com/mCRL2org/ltsgraph/pkg/pipeline"
	"github.com/mCRL2org/ltsgraph/pkg/session"
)

var contentTypes = map[string]string{
	pipeline.FormatDOT:  "text/vnd.graphviz",
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatJSON: "application/json",
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	err = classify(err)
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, errorBody{Code: code, Message: errors.UserMessage(err)})
}

// classify attaches codes to the graph package's sentinel errors.
func classify(err error) error {
	switch {
	case errors.GetCode(err) != "":
		return err
	case stderrors.Is(err, graph.ErrIndexOutOfRange):
		return errors.Wrap(errors.ErrCodeNotFound, err, "%v", err)
	case stderrors.Is(err, graph.ErrNotExploring),
		stderrors.Is(err, graph.ErrNotToggleable),
		stderrors.Is(err, graph.ErrInvalidEdge):
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "%v", err)
	}
	return err
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

// =============================================================================
// Request parameters
// =============================================================================

func (s *Server) document(r *http.Request) (*session.Document, error) {
	return s.docs.Get(chi.URLParam(r, "id"))
}

func indexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid index %q", raw)
	}
	return i, nil
}

func pointParams(r *http.Request) (graph.Kind, int, error) {
	k, err := graph.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return 0, 0, err
	}
	i, err := indexParam(r)
	return k, i, err
}

func boolQuery(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "invalid %s %q", name, raw)
	}
	return v, nil
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid %s %q", name, raw)
	}
	return v, nil
}

// readModel decodes the request body as a model. The format comes from the
// "format" query parameter, else from the content type, else .aut.
func readModel(w http.ResponseWriter, r *http.Request) (graph.Model, error) {
	format := ltsio.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = ltsio.FormatAUT
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			format = ltsio.FormatJSON
		}
	}
	return ltsio.ReadModel(http.MaxBytesReader(w, r.Body, maxBodyBytes), format)
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"build":     buildinfo.Get(),
		"documents": len(s.docs.List()),
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	m, err := readModel(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := r.URL.Query().Get("output")
	if format == "" {
		format = pipeline.FormatSVG
	}
	labels, err := boolQuery(r, "labels", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	maxIter, err := intQuery(r, "max_iterations")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.runner.Execute(r.Context(), pipeline.Options{
		Model:         &m,
		MaxIterations: maxIter,
		Formats:       []string{format},
		Labels:        labels,
		Logger:        s.logger,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Layout-Cached", strconv.FormatBool(res.CacheInfo.LayoutHit))
	_, _ = w.Write(res.Artifacts[format])
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	m, err := readModel(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start, err := boolQuery(r, "start", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.docs.Create(r.URL.Query().Get("name"), m, start)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/documents/"+d.ID)
	writeJSON(w, http.StatusCreated, d.Info())
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.docs.List())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	d, err := s.document(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Snapshot())
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	d, err := s.document(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	labels, err := boolQuery(r, "labels", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	artifacts, _, err := s.runner.RenderWithCacheInfo(r.Context(), d.Snapshot(), pipeline.Options{
		Formats: []string{pipeline.FormatSVG},
		Labels:  labels,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[pipeline.FormatSVG])
	_, _ = w.Write(artifacts[pipeline.FormatSVG])
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.docs.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	d, err := s.document(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d.Start()
	writeJSON(w, http.StatusOK, d.Info())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	d, err := s.document(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d.Stop()
	if err := s.docs.Persist(d.ID); err != nil {
		s.logger.Warn("persist document", "id", d.ID, "err", err)
	}
	writeJSON(w, http.StatusOK, d.Info())
}

// handleSettings merges the body into the current settings, so clients may
// send only the fields they change.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	d, err := s.document(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	settings := d.Engine().Settings()
	if err := decodeJSON(w, r, &settings); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := d.Engine().SetSettings(settings); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Engine().Settings())
}

type clipRequest struct {
	Min    [3]float64 `json:"min"`
	Max    [3]float64 `json:"max"`
	Jitter float64    `json:"jitter,omitempty"`
}

func (s *Server) handleClip(w http.ResponseWriter, r *http.Request) {
	d, err := s.document(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req clipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	lo := r3.Vec{X: req.Min[0], Y: req.Min[1], Z: req.Min[2]}
	hi := r3.Vec{X: req.Max[0], Y: req.Max[1], Z: req.Max[2]}
	if err := d.Engine().SetClipRegion(lo, hi, req.Jitter); err != nil {
		s.writeError(w, r, err)
		return
	}
	b := d.Engine().ClipRegion()
	writeJSON(w, http.StatusOK, clipRequest{
		Min: [3]float64{b.Min.X, b.Min.Y, b.Min.Z},
		Max: [3]float64{b.Max.X, b.Max.Y, b.Max.Z},
	})
}

// update runs fn under the document's write lock.
func (s *Server) update(w http.ResponseWriter, r *http.Request, fn func(g *graph.Graph) error) {
	d, err := s.document(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d.Store().Update(func(g *graph.Graph) { err = fn(g) })
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type flagRequest struct {
	Value bool `json:"value"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	k, i, err := pointParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req positionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.update(w, r, func(g *graph.Graph) error {
		return g.Move(k, i, r3.Vec{X: req.X, Y: req.Y, Z: req.Z})
	})
}

func (s *Server) handleAnchor(w http.ResponseWriter, r *http.Request) {
	s.handleFlag(w, r, (*graph.Graph).SetAnchored)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	s.handleFlag(w, r, (*graph.Graph).SetLocked)
}

func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request, set func(*graph.Graph, graph.Kind, int, bool) error) {
	k, i, err := pointParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req flagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.update(w, r, func(g *graph.Graph) error { return set(g, k, i, req.Value) })
}

func (s *Server) handleStartExploration(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, func(g *graph.Graph) error {
		if g.NodeCount() == 0 {
			return errors.New(errors.ErrCodeInvalidInput, "document is empty")
		}
		g.StartExploration()
		return nil
	})
}

func (s *Server) handleDiscardExploration(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, func(g *graph.Graph) error {
		g.DiscardExploration()
		return nil
	})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	i, err := indexParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.update(w, r, func(g *graph.Graph) error {
		if i >= g.NodeCount() {
			return fmt.Errorf("toggle node %d: %w", i, graph.ErrIndexOutOfRange)
		}
		return g.ToggleOpen(i)
	})
}
