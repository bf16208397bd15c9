package force

import (
	"github.com/mCRL2org/ltsgraph/pkg/errors"
)

// Attraction selects the spring law.
type Attraction int

const (
	// AttractionLTSGraph is the logarithmic graph-drawing spring.
	AttractionLTSGraph Attraction = iota
	// AttractionLinearSprings is a Hookean spring with a snap term.
	AttractionLinearSprings
	// AttractionElectrical grows quadratically with distance.
	AttractionElectrical
)

// Repulsion selects the repulsion law.
type Repulsion int

const (
	// RepulsionLTSGraph is an inverse-square law with a floored denominator.
	RepulsionLTSGraph Repulsion = iota
	// RepulsionElectrical is an inverse-distance law.
	RepulsionElectrical
	// RepulsionNone disables repulsion.
	RepulsionNone
)

// Application selects how forces become displacements.
type Application int

const (
	// ApplicationDirect moves by the force scaled by temperature and speed.
	ApplicationDirect Application = iota
	// ApplicationForceDirected moves along the force by a temperature-scaled
	// amplitude that eases off near equilibrium.
	ApplicationForceDirected
)

var (
	attractionNames  = [...]string{"ltsgraph", "linear-springs", "electrical"}
	repulsionNames   = [...]string{"ltsgraph", "electrical", "none"}
	applicationNames = [...]string{"direct", "force-directed"}
)

// String returns the name used in config files, such as "ltsgraph".
func (k Attraction) String() string { return name(attractionNames[:], int(k)) }

// String returns the name used in config files, such as "none".
func (k Repulsion) String() string { return name(repulsionNames[:], int(k)) }

// String returns the name used in config files, such as "direct".
func (k Application) String() string { return name(applicationNames[:], int(k)) }

func name(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "unknown"
	}
	return names[i]
}

func lookup(kind string, names []string, s string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown %s function %q (want one of %v)", kind, s, names)
}

// ParseAttraction parses an attraction name such as "linear-springs".
func ParseAttraction(s string) (Attraction, error) {
	i, err := lookup("attraction", attractionNames[:], s)
	return Attraction(i), err
}

// ParseRepulsion parses a repulsion name such as "none".
func ParseRepulsion(s string) (Repulsion, error) {
	i, err := lookup("repulsion", repulsionNames[:], s)
	return Repulsion(i), err
}

// ParseApplication parses an application name such as "force-directed".
func ParseApplication(s string) (Application, error) {
	i, err := lookup("application", applicationNames[:], s)
	return Application(i), err
}

// MarshalText implements [encoding.TextMarshaler].
func (k Attraction) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// MarshalText implements [encoding.TextMarshaler].
func (k Repulsion) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// MarshalText implements [encoding.TextMarshaler].
func (k Application) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a name accepted by [ParseAttraction].
func (k *Attraction) UnmarshalText(b []byte) (err error) {
	*k, err = ParseAttraction(string(b))
	return err
}

// UnmarshalText parses a name accepted by [ParseRepulsion].
func (k *Repulsion) UnmarshalText(b []byte) (err error) {
	*k, err = ParseRepulsion(string(b))
	return err
}

// UnmarshalText parses a name accepted by [ParseApplication].
func (k *Application) UnmarshalText(b []byte) (err error) {
	*k, err = ParseApplication(string(b))
	return err
}
