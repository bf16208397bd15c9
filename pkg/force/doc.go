// Package force holds the pluggable force laws of the spring layout.
//
// There are three families, each selected by a small enum so the active law
// can be switched at runtime by storing a different value:
//
//   - [Attraction] pulls a point toward another at an ideal distance (edge
//     springs, handle and label tethers).
//   - [Repulsion] pushes two points apart, with a little random jitter so
//     coincident points separate.
//   - [Application] turns an accumulated force into a new position, scaled by
//     the annealing temperature.
//
// All functions are pure apart from the jitter, which draws from the
// *rand.Rand passed in by the caller. Numerical degeneracies are handled by
// construction: denominators are floored and runaway steps are skipped, so
// none of these functions return errors.
//
// Kinds implement [encoding.TextMarshaler] and [encoding.TextUnmarshaler] and
// round-trip through configuration files and JSON by name.
package force
