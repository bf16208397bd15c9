// Package anneal implements the adaptive temperature that scales every layout
// step.
//
// The temperature starts hot so a random initial layout untangles quickly,
// cools while the energy keeps improving, and heats up again when the energy
// gets worse. [Annealer.Reset] returns to the hot start after an external
// perturbation such as a drag or a new graph.
//
// Optionally the jump back to the hot start is spread over a short window so
// the layout does not visibly pop.
package anneal

import (
	"math"
	"time"
)

// Defaults for [Config].
const (
	DefaultInitial           = 1.0
	DefaultFloor             = 1e-6
	DefaultCeiling           = 1.0
	DefaultEpsilon           = 0.01
	DefaultTolerance         = 0.01
	DefaultCoolingFactor     = 0.95
	DefaultHeatingFactor     = 1.05
	DefaultProgressThreshold = 10
)

// Config holds the schedule parameters.
type Config struct {
	Initial           float64       // temperature after Reset
	Floor             float64       // lower bound
	Ceiling           float64       // upper bound
	Epsilon           float64       // relative improvement that counts as progress
	Tolerance         float64       // relative worsening tolerated before heating
	CoolingFactor     float64       // < 1
	HeatingFactor     float64       // > 1
	ProgressThreshold int           // improving steps before cooling
	Smoothing         time.Duration // interpolation window after Reset; 0 jumps
}

// DefaultConfig returns the default schedule.
func DefaultConfig() Config {
	return Config{
		Initial:           DefaultInitial,
		Floor:             DefaultFloor,
		Ceiling:           DefaultCeiling,
		Epsilon:           DefaultEpsilon,
		Tolerance:         DefaultTolerance,
		CoolingFactor:     DefaultCoolingFactor,
		HeatingFactor:     DefaultHeatingFactor,
		ProgressThreshold: DefaultProgressThreshold,
	}
}

// Annealer tracks the temperature across iterations. It is not safe for
// concurrent use; the layout engine drives it under the graph write lock.
type Annealer struct {
	cfg Config

	target   float64 // temperature chosen by the schedule
	energy   float64 // energy at the previous update
	seen     bool    // whether energy holds a sample
	progress int

	// Smoothing state: output eases from `from` to target after resetAt.
	from    float64
	resetAt time.Time

	now func() time.Time
}

// New returns an annealer at its initial temperature.
func New(cfg Config) *Annealer {
	a := &Annealer{cfg: cfg, now: time.Now}
	a.target = a.clamp(cfg.Initial)
	a.from = a.target
	return a
}

// SetClock replaces the time source used for smoothing.
func (a *Annealer) SetClock(now func() time.Time) { a.now = now }

// Config returns the schedule parameters.
func (a *Annealer) Config() Config { return a.cfg }

// Reset returns to the initial temperature and forgets the energy history.
// Calling Reset twice in a row has the same effect as calling it once.
func (a *Annealer) Reset() {
	if a.cfg.Smoothing > 0 {
		a.from = a.Temperature()
		a.resetAt = a.now()
	}
	a.target = a.clamp(a.cfg.Initial)
	a.seen = false
	a.progress = 0
}

// Update feeds the energy of the latest iteration and returns the
// temperature to use for the next one.
func (a *Annealer) Update(energy float64) float64 {
	if math.IsNaN(energy) {
		return a.Temperature()
	}
	if a.seen {
		switch {
		case energy < a.energy*(1-a.cfg.Epsilon):
			a.progress++
			if a.progress > a.cfg.ProgressThreshold {
				a.target = a.clamp(a.target * a.cfg.CoolingFactor)
				a.progress = 0
			}
		case energy > a.energy*(1+a.cfg.Tolerance):
			a.target = a.clamp(a.target * a.cfg.HeatingFactor)
			a.progress = 0
		}
	}
	a.energy = energy
	a.seen = true
	return a.Temperature()
}

// Temperature returns the current step scale.
func (a *Annealer) Temperature() float64 {
	if a.cfg.Smoothing <= 0 || a.resetAt.IsZero() {
		return a.target
	}
	elapsed := a.now().Sub(a.resetAt)
	if elapsed >= a.cfg.Smoothing {
		return a.target
	}
	t := float64(elapsed) / float64(a.cfg.Smoothing)
	s := t * t * (3 - 2*t)
	return a.from + (a.target-a.from)*s
}

func (a *Annealer) clamp(t float64) float64 {
	return min(max(t, a.cfg.Floor), a.cfg.Ceiling)
}
