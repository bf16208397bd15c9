// Package pipeline provides the batch load → layout → render pipeline.
//
// The CLI's layout and render commands and the server's one-shot endpoints
// share this package, so caching and defaults behave the same everywhere.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read a transition system from an .aut or JSON file, or take a
//     model supplied in memory
//  2. Layout: Run the spring layout until it is stable or the iteration cap
//     is reached
//  3. Render: Produce artifacts (DOT, SVG, PNG, layout JSON)
//
// Layouts and artifacts are cached. Layout keys are derived from the model
// hash, the layout settings, the clip region, the seed and the iteration
// cap; artifact keys from the layout hash and the render options.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Path:    "model.aut",
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/cache"
	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
	"github.com/mCRL2org/ltsgraph/pkg/layout"
	"github.com/mCRL2org/ltsgraph/pkg/render/nodelink"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMaxIterations caps a batch layout that never settles.
	DefaultMaxIterations = 20000

	// DefaultScale converts layout units to points when rendering.
	DefaultScale = 1.0
)

// Format constants for output formats.
const (
	FormatDOT  = nodelink.FormatDOT
	FormatSVG  = nodelink.FormatSVG
	FormatPNG  = nodelink.FormatPNG
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
type Options struct {
	// Load options. Model takes precedence over Path.
	Path  string       `json:"path,omitempty"`
	Model *graph.Model `json:"model,omitempty"`

	// Layout options. A nil Settings means the engine defaults; an empty
	// Clip means the default clip region.
	Settings      *layout.Settings `json:"settings,omitempty"`
	Clip          r3.Box           `json:"clip"`
	Seed          uint64           `json:"seed,omitempty"`
	MaxIterations int              `json:"max_iterations,omitempty"`
	Refresh       bool             `json:"refresh,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	Scale   float64  `json:"scale,omitempty"`
	Labels  bool     `json:"labels,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Model is the loaded transition system.
	Model graph.Model

	// ModelHash is the content hash of the model.
	ModelHash string

	// Layout is the final snapshot.
	Layout graph.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	States      int
	Transitions int
	Iterations  int
	LoadTime    time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid format: %q (must be one of: %s)", format, strings.Join(formatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

func formatNames() []string {
	names := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks that a model source is set.
func (o *Options) ValidateForLoad() error {
	if o.Model == nil && o.Path == "" {
		return errors.New(errors.ErrCodeInvalidInput, "path or model is required")
	}
	o.setLogger()
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Settings == nil {
		s := layout.DefaultSettings()
		o.Settings = &s
	}
	if o.Clip == (r3.Box{}) {
		o.Clip = layout.DefaultClip
	}
	if o.Seed == 0 {
		o.Seed = layout.DefaultSeed
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	o.setLogger()
}

// ValidateForLayout sets layout defaults and validates the settings and
// clip region.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := o.Settings.Validate(); err != nil {
		return err
	}
	return layout.ValidateClip(o.Clip)
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	o.setLogger()
}

// ValidateForRender sets render defaults and validates the formats.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Source names the model for logs and hooks.
func (o *Options) Source() string {
	if o.Model != nil || o.Path == "" {
		return "inline"
	}
	return o.Path
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Settings: o.Settings,
		Clip: [2][3]float64{
			{o.Clip.Min.X, o.Clip.Min.Y, o.Clip.Min.Z},
			{o.Clip.Max.X, o.Clip.Max.Y, o.Clip.Max.Z},
		},
		Seed:          o.Seed,
		MaxIterations: o.MaxIterations,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: format,
		Scale:  o.Scale,
		Labels: o.Labels,
	}
}

// NodelinkOptions returns the diagram options for rendering.
func (o *Options) NodelinkOptions() nodelink.Options {
	return nodelink.Options{Scale: o.Scale, Labels: o.Labels}
}
