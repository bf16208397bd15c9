package force

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// Defaults for [Params].
const (
	DefaultAttraction         = 0.13
	DefaultRepulsion          = 5000
	DefaultNatLength          = 50
	DefaultSpeed              = 0.05
	DefaultSpringConstant     = 1e-4
	DefaultJitter             = 0.01
	DefaultStabilityThreshold = 1.0
	DefaultStepBudget         = 2.5
)

// DirectCutoff is the largest per-axis displacement the direct application
// accepts. Larger steps are dropped for that iteration.
const DirectCutoff = 1000

// minEasing keeps the force-directed amplitude from reaching exactly zero.
const minEasing = 1e-3

// Params are the weights shared by all force laws.
type Params struct {
	Attraction         float64 // spring weight
	Repulsion          float64 // repulsion weight
	NatLength          float64 // natural edge length
	Speed              float64 // direct application step scale
	SpringConstant     float64 // linear spring stiffness
	Jitter             float64 // per-axis repulsion noise amplitude
	StabilityThreshold float64 // force magnitude considered at rest
	StepBudget         float64 // force-directed step at full temperature
}

// DefaultParams returns the default weights.
func DefaultParams() Params {
	return Params{
		Attraction:         DefaultAttraction,
		Repulsion:          DefaultRepulsion,
		NatLength:          DefaultNatLength,
		Speed:              DefaultSpeed,
		SpringConstant:     DefaultSpringConstant,
		Jitter:             DefaultJitter,
		StabilityThreshold: DefaultStabilityThreshold,
		StepBudget:         DefaultStepBudget,
	}
}

// =============================================================================
// Attraction
// =============================================================================

// Attract returns the force pulling b toward a with rest length ideal.
func Attract(kind Attraction, a, b r3.Vec, ideal float64, p Params) r3.Vec {
	diff := r3.Sub(a, b)
	dist := r3.Norm(diff)
	switch kind {
	case AttractionLinearSprings:
		return r3.Scale(linearSpringFactor(dist-ideal, p), diff)
	case AttractionElectrical:
		return r3.Scale(p.Attraction*1e-4*dist/max(0.01, ideal), diff)
	default:
		// Zero at the ideal length and negative closer in; the +1 keeps
		// the logarithm finite for coincident points.
		k := p.Attraction * 1e4
		return r3.Scale(k*math.Log((dist+1)/(ideal+1))/max(dist, 1), diff)
	}
}

func linearSpringFactor(excess float64, p Params) float64 {
	factor := p.SpringConstant * max(excess, 0) * p.Attraction
	if excess > 0 {
		factor = max(factor, 100*p.Attraction/max(excess*excess/10000, 0.1))
	}
	return factor
}

// =============================================================================
// Repulsion
// =============================================================================

// Repel returns the force pushing a away from b. strength is the repulsion
// weight already multiplied by the mass of b and any class weight.
func Repel(kind Repulsion, a, b r3.Vec, strength float64, p Params, rng *rand.Rand) r3.Vec {
	diff := r3.Sub(a, b)
	var f r3.Vec
	switch kind {
	case RepulsionNone:
		return r3.Vec{}
	case RepulsionElectrical:
		f = r3.Scale(strength*p.NatLength*p.NatLength*1e-4/max(r3.Norm2(diff), 1e-3), diff)
	default:
		r := max(r3.Norm(diff)*0.5, p.NatLength*0.1)
		f = r3.Scale(strength/(r*r*r), diff)
	}
	return r3.Add(f, Jitter(p.Jitter, rng))
}

// Jitter returns isotropic uniform noise in [-amplitude, amplitude] per axis.
// It is zero when amplitude is zero or rng is nil.
func Jitter(amplitude float64, rng *rand.Rand) r3.Vec {
	if amplitude == 0 || rng == nil {
		return r3.Vec{}
	}
	return r3.Vec{
		X: (rng.Float64()*2 - 1) * amplitude,
		Y: (rng.Float64()*2 - 1) * amplitude,
		Z: (rng.Float64()*2 - 1) * amplitude,
	}
}

// =============================================================================
// Application
// =============================================================================

// Apply returns the position reached by moving pos under force f at the given
// temperature, and whether the point moved at all.
func Apply(kind Application, pos, f r3.Vec, temperature float64, p Params) (r3.Vec, bool) {
	switch kind {
	case ApplicationForceDirected:
		n := r3.Norm(f)
		if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return pos, false
		}
		amp := p.StepBudget * temperature * max(smoothstep(0, p.StabilityThreshold, n), minEasing)
		return r3.Add(pos, r3.Scale(amp/n, f)), true
	default:
		step := r3.Scale(temperature*p.Speed*0.01, f)
		if runaway(step.X) || runaway(step.Y) || runaway(step.Z) {
			return pos, false
		}
		return r3.Add(pos, step), step != r3.Vec{}
	}
}

func runaway(v float64) bool {
	return math.IsNaN(v) || math.Abs(v) > DirectCutoff
}

// smoothstep is the cubic Hermite ease between edge0 and edge1.
func smoothstep(edge0, edge1, x float64) float64 {
	if edge1 <= edge0 {
		if x >= edge1 {
			return 1
		}
		return 0
	}
	t := min(max((x-edge0)/(edge1-edge0), 0), 1)
	return t * t * (3 - 2*t)
}
