package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mCRL2org/ltsgraph/pkg/cache"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
	"github.com/mCRL2org/ltsgraph/pkg/observability"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeLayout   = "layout"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// A nil cache disables caching.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	hooks := observability.Pipeline()

	result := &Result{}

	// Stage 1: Load
	hooks.OnLoadStart(ctx, opts.Source())
	loadStart := time.Now()
	m, err := Load(opts)
	result.Stats.LoadTime = time.Since(loadStart)
	hooks.OnLoadComplete(ctx, opts.Source(), len(m.States), len(m.Transitions), result.Stats.LoadTime, err)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Model = m
	result.ModelHash = HashModel(m)
	result.Stats.States = len(m.States)
	result.Stats.Transitions = len(m.Transitions)

	r.Logger.Info("loaded model",
		"source", opts.Source(),
		"nodes", len(m.States),
		"edges", len(m.Transitions),
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	hooks.OnLayoutStart(ctx, len(m.States))
	layoutStart := time.Now()
	l, iterations, layoutHit, err := r.LayoutWithCacheInfo(ctx, m, opts)
	result.Stats.LayoutTime = time.Since(layoutStart)
	hooks.OnLayoutComplete(ctx, iterations, result.Stats.LayoutTime, err)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.Stats.Iterations = iterations
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"iterations", iterations,
		"stable", l.Stable,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	hooks.OnRenderStart(ctx, opts.Formats)
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, l, opts)
	result.Stats.RenderTime = time.Since(renderStart)
	hooks.OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LayoutWithCacheInfo lays out m with caching. It returns the snapshot, the
// number of iterations run (zero on a cache hit) and whether the cache hit.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, m graph.Model, opts Options) (graph.Layout, int, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return graph.Layout{}, 0, false, err
	}
	hooks := observability.Cache()

	cacheKey := r.Keyer.LayoutKey(HashModel(m), opts.LayoutKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			cached, err := graph.UnmarshalLayout(data)
			if err == nil {
				hooks.OnCacheHit(ctx, keyTypeLayout)
				return cached, 0, true, nil
			}
			// If deserialization fails, fall through to recompute
		} else if err != nil {
			r.Logger.Warn("cache read failed", "key", keyTypeLayout, "err", err)
		}
	}
	hooks.OnCacheMiss(ctx, keyTypeLayout)

	l, iterations, err := GenerateLayout(ctx, m, opts)
	if err != nil {
		return graph.Layout{}, iterations, false, err
	}

	if data, err := graph.MarshalLayout(l); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err != nil {
			r.Logger.Warn("cache write failed", "key", keyTypeLayout, "err", err)
		} else {
			hooks.OnCacheSet(ctx, keyTypeLayout, len(data))
		}
	}

	return l, iterations, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and
// discards the iteration count and cache hit info.
func (r *Runner) Layout(ctx context.Context, m graph.Model, opts Options) (graph.Layout, error) {
	l, _, _, err := r.LayoutWithCacheInfo(ctx, m, opts)
	return l, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit
// info. The hit is true only when every format came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l graph.Layout, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	hooks := observability.Cache()

	layoutData, err := graph.MarshalLayout(l)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			hooks.OnCacheHit(ctx, keyTypeArtifact)
			artifacts[format] = data
			continue
		}
		hooks.OnCacheMiss(ctx, keyTypeArtifact)
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	renderOpts := opts
	renderOpts.Formats = missing
	rendered, err := Render(ctx, l, renderOpts)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			hooks.OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}

	return artifacts, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// HashModel returns the content hash used to key layouts of m.
func HashModel(m graph.Model) string {
	data, _ := json.Marshal(m)
	return cache.Hash(data)
}
