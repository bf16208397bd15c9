package force

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/errors"
)

func TestParseRoundTrip(t *testing.T) {
	for _, k := range []Attraction{AttractionLTSGraph, AttractionLinearSprings, AttractionElectrical} {
		got, err := ParseAttraction(k.String())
		if err != nil || got != k {
			t.Errorf("ParseAttraction(%q) = %v, %v", k.String(), got, err)
		}
	}
	for _, k := range []Repulsion{RepulsionLTSGraph, RepulsionElectrical, RepulsionNone} {
		got, err := ParseRepulsion(k.String())
		if err != nil || got != k {
			t.Errorf("ParseRepulsion(%q) = %v, %v", k.String(), got, err)
		}
	}
	for _, k := range []Application{ApplicationDirect, ApplicationForceDirected} {
		got, err := ParseApplication(k.String())
		if err != nil || got != k {
			t.Errorf("ParseApplication(%q) = %v, %v", k.String(), got, err)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	_, err := ParseRepulsion("gravity")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ParseRepulsion(gravity) error = %v, want INVALID_INPUT", err)
	}
	var k Attraction
	if err := k.UnmarshalText([]byte("springy")); err == nil {
		t.Error("UnmarshalText accepted an unknown name")
	}
}

func TestLTSGraphAttraction(t *testing.T) {
	p := DefaultParams()
	origin := r3.Vec{}
	tests := []struct {
		name string
		dist float64
		sign float64
	}{
		{"far pulls", 100, 1},
		{"ideal is neutral", 50, 0},
		{"close pushes", 20, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := r3.Vec{X: tt.dist}
			f := Attract(AttractionLTSGraph, origin, b, 50, p)
			// f pulls b toward the origin, i.e. along -x when attracting.
			got := -f.X
			switch {
			case tt.sign == 0 && math.Abs(got) > 1e-9:
				t.Errorf("force at ideal length = %v, want 0", got)
			case tt.sign > 0 && got <= 0, tt.sign < 0 && got >= 0:
				t.Errorf("force = %v, want sign %v", got, tt.sign)
			}
		})
	}
}

func TestAttractionCoincidentIsFinite(t *testing.T) {
	p := DefaultParams()
	for _, k := range []Attraction{AttractionLTSGraph, AttractionLinearSprings, AttractionElectrical} {
		f := Attract(k, r3.Vec{X: 1}, r3.Vec{X: 1}, 0, p)
		if f != (r3.Vec{}) {
			t.Errorf("%v: coincident attraction = %v, want zero", k, f)
		}
	}
}

func TestLinearSprings(t *testing.T) {
	p := DefaultParams()
	inside := Attract(AttractionLinearSprings, r3.Vec{}, r3.Vec{X: 40}, 50, p)
	if inside != (r3.Vec{}) {
		t.Errorf("force inside rest length = %v, want zero", inside)
	}
	outside := Attract(AttractionLinearSprings, r3.Vec{}, r3.Vec{X: 60}, 50, p)
	if outside.X >= 0 {
		t.Errorf("force beyond rest length = %v, want pull toward origin", outside)
	}
}

func TestRepulsionCoincidentIsBounded(t *testing.T) {
	p := DefaultParams()
	rng := rand.New(rand.NewPCG(1, 2))
	for _, k := range []Repulsion{RepulsionLTSGraph, RepulsionElectrical} {
		f := Repel(k, r3.Vec{}, r3.Vec{}, p.Repulsion, p, rng)
		n := r3.Norm(f)
		if math.IsNaN(n) || math.IsInf(n, 0) {
			t.Errorf("%v: coincident repulsion = %v", k, f)
		}
		if n > p.Jitter*math.Sqrt(3)+1e-12 {
			t.Errorf("%v: coincident repulsion %v exceeds jitter", k, n)
		}
	}
}

func TestRepulsionPushesApart(t *testing.T) {
	p := DefaultParams()
	p.Jitter = 0
	for _, k := range []Repulsion{RepulsionLTSGraph, RepulsionElectrical} {
		f := Repel(k, r3.Vec{X: 10}, r3.Vec{}, p.Repulsion, p, nil)
		if f.X <= 0 || f.Y != 0 || f.Z != 0 {
			t.Errorf("%v: Repel = %v, want +x", k, f)
		}
	}
	if f := Repel(RepulsionNone, r3.Vec{X: 10}, r3.Vec{}, p.Repulsion, p, rand.New(rand.NewPCG(1, 1))); f != (r3.Vec{}) {
		t.Errorf("RepulsionNone = %v, want zero", f)
	}
}

func TestJitterRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 1000 {
		j := Jitter(0.01, rng)
		for _, v := range []float64{j.X, j.Y, j.Z} {
			if v < -0.01 || v > 0.01 {
				t.Fatalf("jitter component %v out of range", v)
			}
		}
	}
	if j := Jitter(0.01, nil); j != (r3.Vec{}) {
		t.Errorf("Jitter with nil source = %v", j)
	}
}

func TestDirectApplication(t *testing.T) {
	p := DefaultParams()
	pos := r3.Vec{X: 1, Y: 2}
	got, moved := Apply(ApplicationDirect, pos, r3.Vec{X: 100}, 1, p)
	want := r3.Vec{X: 1 + 100*p.Speed*0.01, Y: 2}
	if !moved || r3.Norm(r3.Sub(got, want)) > 1e-12 {
		t.Errorf("Apply = %v, %v, want %v, true", got, moved, want)
	}

	huge := r3.Vec{Y: 1e12}
	if got, moved := Apply(ApplicationDirect, pos, huge, 1, p); moved || got != pos {
		t.Errorf("runaway step applied: %v", got)
	}
	nan := r3.Vec{Z: math.NaN()}
	if got, moved := Apply(ApplicationDirect, pos, nan, 1, p); moved || got != pos {
		t.Errorf("NaN step applied: %v", got)
	}
}

func TestForceDirectedApplication(t *testing.T) {
	p := DefaultParams()
	pos := r3.Vec{}

	got, moved := Apply(ApplicationForceDirected, pos, r3.Vec{X: 1000}, 1, p)
	if !moved || math.Abs(got.X-p.StepBudget) > 1e-12 {
		t.Errorf("strong force moved to %v, want full step %v", got, p.StepBudget)
	}

	small, _ := Apply(ApplicationForceDirected, pos, r3.Vec{X: 1e-6}, 1, p)
	if small.X <= 0 || small.X >= got.X*0.01 {
		t.Errorf("weak force moved to %v, want a small positive step", small)
	}

	if got, moved := Apply(ApplicationForceDirected, pos, r3.Vec{}, 1, p); moved || got != pos {
		t.Errorf("zero force moved to %v", got)
	}
}

func TestSmoothstep(t *testing.T) {
	tests := []struct {
		x, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{2, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.x), func(t *testing.T) {
			if got := smoothstep(0, 1, tt.x); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("smoothstep(0, 1, %v) = %v, want %v", tt.x, got, tt.want)
			}
		})
	}
}

func ExampleParseAttraction() {
	k, err := ParseAttraction("electrical")
	fmt.Println(k, err)
	// Output: electrical <nil>
}
