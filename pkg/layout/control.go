package layout

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/force"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
)

// =============================================================================
// Graph placement
// =============================================================================

// Load replaces the graph with m, scattering the nodes uniformly over the
// clip region.
func (e *Engine) Load(m graph.Model) error {
	clip := e.ClipRegion()
	var err error
	e.store.Update(func(g *graph.Graph) {
		err = g.Load(m, func() r3.Vec { return e.randomIn(clip) })
	})
	return err
}

// Randomize scatters every unanchored node over the clip region again and
// moves the edge handles and labels with them.
func (e *Engine) Randomize() {
	clip := e.ClipRegion()
	e.store.Update(func(g *graph.Graph) {
		for i := range g.NodeCount() {
			if n := g.Node(i); !n.Anchored() {
				n.Pos = e.randomIn(clip)
				g.StateLabel(i).Pos = n.Pos
			}
		}
		for i := range g.EdgeCount() {
			mid := g.Midpoint(i)
			if g.Edge(i).SelfLoop() {
				mid = r3.Add(mid, r3.Vec{Y: 1})
			}
			if h := g.Handle(i); !h.Anchored() {
				h.Pos = mid
			}
			if l := g.TransitionLabel(i); !l.Anchored() {
				l.Pos = mid
			}
		}
		g.Perturb()
	})
}

// SetClipRegion changes the box positions are clamped to. Every axis that
// grows gets uniform noise in [-jitter, jitter] on each unanchored node so
// the layout can spread into the new room; a flat layout switched to 3D
// would otherwise stay flat. All unanchored points end up inside the box.
func (e *Engine) SetClipRegion(lo, hi r3.Vec, jitter float64) error {
	b := r3.Box{Min: lo, Max: hi}
	if err := ValidateClip(b); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("clip jitter", jitter); err != nil {
		return err
	}
	e.mu.Lock()
	old := e.clip
	e.clip = b
	e.mu.Unlock()

	grow := r3.Vec{
		X: max(0, (hi.X-lo.X)-(old.Max.X-old.Min.X)),
		Y: max(0, (hi.Y-lo.Y)-(old.Max.Y-old.Min.Y)),
		Z: max(0, (hi.Z-lo.Z)-(old.Max.Z-old.Min.Z)),
	}

	e.store.Update(func(g *graph.Graph) {
		for i := range g.NodeCount() {
			clampPoint(&g.StateLabel(i).Point, b)
			n := g.Node(i)
			if n.Anchored() {
				continue
			}
			if jitter > 0 && grow != (r3.Vec{}) {
				j := force.Jitter(jitter, e.rng)
				n.Pos = r3.Add(n.Pos, r3.Vec{X: mask(grow.X, j.X), Y: mask(grow.Y, j.Y), Z: mask(grow.Z, j.Z)})
			}
			n.Pos = clamp(n.Pos, b)
		}
		for i := range g.EdgeCount() {
			clampPoint(g.Handle(i), b)
			clampPoint(&g.TransitionLabel(i).Point, b)
		}
		g.Perturb()
	})
	return nil
}

func clampPoint(pt *graph.Point, b r3.Box) {
	if !pt.Anchored() {
		pt.Pos = clamp(pt.Pos, b)
	}
}

func mask(grow, v float64) float64 {
	if grow > 0 {
		return v
	}
	return 0
}

// RandomizeZ gives every unanchored node a random depth in [-maxZ, maxZ],
// clamped to the clip region, and restarts the simulation.
func (e *Engine) RandomizeZ(maxZ float64) {
	clip := e.ClipRegion()
	e.store.Update(func(g *graph.Graph) {
		for i := range g.NodeCount() {
			clampPoint(&g.StateLabel(i).Point, clip)
			n := g.Node(i)
			if n.Anchored() {
				continue
			}
			n.Pos.Z = (e.rng.Float64()*2 - 1) * maxZ
			n.Pos = clamp(n.Pos, clip)
		}
		g.Perturb()
	})
}

// randomIn must be called under the graph write lock.
func (e *Engine) randomIn(b r3.Box) r3.Vec {
	return r3.Vec{
		X: b.Min.X + e.rng.Float64()*(b.Max.X-b.Min.X),
		Y: b.Min.Y + e.rng.Float64()*(b.Max.Y-b.Min.Y),
		Z: b.Min.Z + e.rng.Float64()*(b.Max.Z-b.Min.Z),
	}
}

// =============================================================================
// Tunables
// =============================================================================

func (e *Engine) snapshot() (Settings, r3.Box) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings, e.clip
}

// Settings returns a copy of the current tunables.
func (e *Engine) Settings() Settings {
	s, _ := e.snapshot()
	return s
}

// ClipRegion returns the box positions are clamped to.
func (e *Engine) ClipRegion() r3.Box {
	_, b := e.snapshot()
	return b
}

// LastStats returns the statistics of the most recent Apply.
func (e *Engine) LastStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Temperature returns the current annealing temperature.
func (e *Engine) Temperature() float64 {
	var t float64
	e.store.Read(func(*graph.Graph) { t = e.annealer.Temperature() })
	return t
}

// SetSettings validates and replaces every tunable, then restarts the
// simulation.
func (e *Engine) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.update(func(cur *Settings) { *cur = s })
	return nil
}

// update changes the settings and marks the graph unstable so the new values
// take effect. It must not be called from inside a store callback.
func (e *Engine) update(fn func(*Settings)) {
	e.mu.Lock()
	fn(&e.settings)
	e.mu.Unlock()
	e.store.Update(func(g *graph.Graph) { g.Perturb() })
}

// Attraction returns the spring law.
func (e *Engine) Attraction() force.Attraction { return e.Settings().Attraction }

// SetAttraction selects the spring law.
func (e *Engine) SetAttraction(k force.Attraction) {
	e.update(func(s *Settings) { s.Attraction = k })
}

// Repulsion returns the repulsion law.
func (e *Engine) Repulsion() force.Repulsion { return e.Settings().Repulsion }

// SetRepulsion selects the repulsion law.
func (e *Engine) SetRepulsion(k force.Repulsion) {
	e.update(func(s *Settings) { s.Repulsion = k })
}

// Application returns how forces become displacements.
func (e *Engine) Application() force.Application { return e.Settings().Application }

// SetApplication selects how forces become displacements.
func (e *Engine) SetApplication(k force.Application) {
	e.update(func(s *Settings) { s.Application = k })
}

// Speed returns the step scale of direct application.
func (e *Engine) Speed() float64 { return e.Settings().Speed }

// SetSpeed sets the step scale of direct application.
func (e *Engine) SetSpeed(v float64) {
	e.update(func(s *Settings) { s.Speed = v })
}

// AttractionWeight returns the spring weight.
func (e *Engine) AttractionWeight() float64 { return e.Settings().AttractionWeight }

// SetAttractionWeight sets the spring weight.
func (e *Engine) SetAttractionWeight(v float64) {
	e.update(func(s *Settings) { s.AttractionWeight = v })
}

// RepulsionWeight returns the repulsion weight.
func (e *Engine) RepulsionWeight() float64 { return e.Settings().RepulsionWeight }

// SetRepulsionWeight sets the repulsion weight.
func (e *Engine) SetRepulsionWeight(v float64) {
	e.update(func(s *Settings) { s.RepulsionWeight = v })
}

// NatLength returns the natural edge length.
func (e *Engine) NatLength() float64 { return e.Settings().NatLength }

// SetNatLength sets the natural edge length.
func (e *Engine) SetNatLength(v float64) {
	e.update(func(s *Settings) { s.NatLength = v })
}

// ControlPointWeight returns the repulsion scale of handles and transition
// labels.
func (e *Engine) ControlPointWeight() float64 { return e.Settings().ControlPointWeight }

// SetControlPointWeight sets the repulsion scale of handles and transition
// labels.
func (e *Engine) SetControlPointWeight(v float64) {
	e.update(func(s *Settings) { s.ControlPointWeight = v })
}

// Accuracy returns the Barnes-Hut opening parameter θ.
func (e *Engine) Accuracy() float64 { return e.Settings().Accuracy }

// SetAccuracy sets the Barnes-Hut opening parameter θ. Zero visits leaves only.
func (e *Engine) SetAccuracy(v float64) {
	e.update(func(s *Settings) { s.Accuracy = v })
}

// TreeEnabled reports whether repulsion uses the Barnes-Hut tree.
func (e *Engine) TreeEnabled() bool { return e.Settings().TreeEnabled }

// SetTreeEnabled turns the Barnes-Hut tree on or off.
func (e *Engine) SetTreeEnabled(v bool) {
	e.update(func(s *Settings) { s.TreeEnabled = v })
}

// TreeThreshold returns the point count below which repulsion is brute force.
func (e *Engine) TreeThreshold() int { return e.Settings().TreeThreshold }

// SetTreeThreshold sets the point count below which repulsion is brute force.
func (e *Engine) SetTreeThreshold(n int) {
	e.update(func(s *Settings) { s.TreeThreshold = n })
}

// Jitter returns the amplitude of the noise added to repulsion.
func (e *Engine) Jitter() float64 { return e.Settings().Jitter }

// SetJitter sets the amplitude of the noise added to repulsion.
func (e *Engine) SetJitter(v float64) {
	e.update(func(s *Settings) { s.Jitter = v })
}

// StabilityThreshold returns the per-point force under which a class counts as calm.
func (e *Engine) StabilityThreshold() float64 { return e.Settings().StabilityThreshold }

// SetStabilityThreshold sets the per-point force under which a class counts as calm.
func (e *Engine) SetStabilityThreshold(v float64) {
	e.update(func(s *Settings) { s.StabilityThreshold = v })
}

// StableIterations returns how many calm iterations in a row make the graph stable.
func (e *Engine) StableIterations() int { return e.Settings().StableIterations }

// SetStableIterations sets how many calm iterations in a row make the graph
// stable. Values below 1 mean 1.
func (e *Engine) SetStableIterations(n int) {
	e.update(func(s *Settings) { s.StableIterations = max(n, 1) })
}

// DriftCorrection reports whether an unanchored layout is pulled back to the origin.
func (e *Engine) DriftCorrection() bool { return e.Settings().DriftCorrection }

// SetDriftCorrection turns drift correction on or off.
func (e *Engine) SetDriftCorrection(v bool) {
	e.update(func(s *Settings) { s.DriftCorrection = v })
}
