package layout

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/force"
)

// Defaults for [Settings] that are not force weights.
const (
	DefaultAccuracy         = 0.8
	DefaultTreeThreshold    = 64
	DefaultStableIterations = 10
)

// DefaultClip is the default clip region: a flat 1000x1000 square.
var DefaultClip = r3.Box{
	Min: r3.Vec{X: -500, Y: -500},
	Max: r3.Vec{X: 500, Y: 500},
}

// Settings are the tunables of an [Engine].
type Settings struct {
	Attraction  force.Attraction  `toml:"attraction" json:"attraction"`
	Repulsion   force.Repulsion   `toml:"repulsion" json:"repulsion"`
	Application force.Application `toml:"application" json:"application"`

	Speed              float64 `toml:"speed" json:"speed"`
	AttractionWeight   float64 `toml:"attraction_weight" json:"attraction_weight"`
	RepulsionWeight    float64 `toml:"repulsion_weight" json:"repulsion_weight"`
	NatLength          float64 `toml:"natural_length" json:"natural_length"`
	ControlPointWeight float64 `toml:"control_point_weight" json:"control_point_weight"`

	// Accuracy is the Barnes-Hut opening parameter theta.
	Accuracy      float64 `toml:"accuracy" json:"accuracy"`
	TreeEnabled   bool    `toml:"tree" json:"tree"`
	TreeThreshold int     `toml:"tree_threshold" json:"tree_threshold"`

	Jitter             float64 `toml:"jitter" json:"jitter"`
	StabilityThreshold float64 `toml:"stability_threshold" json:"stability_threshold"`
	StableIterations   int     `toml:"stable_iterations" json:"stable_iterations"`
	DriftCorrection    bool    `toml:"drift_correction" json:"drift_correction"`
}

// DefaultSettings returns the default tunables.
func DefaultSettings() Settings {
	p := force.DefaultParams()
	return Settings{
		Attraction:         force.AttractionLTSGraph,
		Repulsion:          force.RepulsionLTSGraph,
		Application:        force.ApplicationDirect,
		Speed:              p.Speed,
		AttractionWeight:   p.Attraction,
		RepulsionWeight:    p.Repulsion,
		NatLength:          p.NatLength,
		ControlPointWeight: 0.001,
		Accuracy:           DefaultAccuracy,
		TreeEnabled:        true,
		TreeThreshold:      DefaultTreeThreshold,
		Jitter:             p.Jitter,
		StabilityThreshold: p.StabilityThreshold,
		StableIterations:   DefaultStableIterations,
	}
}

// Validate checks ranges that would break the simulation. Individual setters
// trust their callers; Validate is for settings read from files or the API.
func (s Settings) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"speed", s.Speed},
		{"attraction_weight", s.AttractionWeight},
		{"repulsion_weight", s.RepulsionWeight},
		{"control_point_weight", s.ControlPointWeight},
		{"accuracy", s.Accuracy},
		{"jitter", s.Jitter},
		{"stability_threshold", s.StabilityThreshold},
	}
	for _, c := range checks {
		if err := errors.ValidateNonNegative(c.name, c.v); err != nil {
			return err
		}
	}
	if err := errors.ValidatePositive("natural_length", s.NatLength); err != nil {
		return err
	}
	if s.TreeThreshold < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "tree_threshold must be >= 0, got %d", s.TreeThreshold)
	}
	if s.StableIterations < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "stable_iterations must be >= 1, got %d", s.StableIterations)
	}
	return nil
}

// ValidateClip checks that a clip region is finite and not inverted.
func ValidateClip(b r3.Box) error {
	lo := []float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := []float64{b.Max.X, b.Max.Y, b.Max.Z}
	for i := range lo {
		if err := errors.ValidateNonNegative("clip extent", hi[i]-lo[i]); err != nil {
			return errors.New(errors.ErrCodeInvalidConfig, "clip region %v..%v is inverted or not finite", b.Min, b.Max)
		}
	}
	if b.Max.X == b.Min.X || b.Max.Y == b.Min.Y {
		return errors.New(errors.ErrCodeInvalidConfig, "clip region must have a positive x and y extent")
	}
	return nil
}

func (s Settings) params() force.Params {
	return force.Params{
		Attraction:         s.AttractionWeight,
		Repulsion:          s.RepulsionWeight,
		NatLength:          s.NatLength,
		Speed:              s.Speed,
		SpringConstant:     force.DefaultSpringConstant,
		Jitter:             s.Jitter,
		StabilityThreshold: s.StabilityThreshold,
		StepBudget:         force.DefaultStepBudget,
	}
}
