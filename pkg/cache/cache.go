// Package cache stores computed layouts and rendered artifacts.
//
// A [Cache] is a byte store with per-entry TTLs. Four backends are provided:
//
//   - [NewNullCache] never stores anything (caching disabled)
//   - [FileCache] keeps one JSON file per entry under a directory
//   - [RedisCache] uses a Redis server
//   - [MongoCache] uses a MongoDB collection
//
// Keys are built by a [Keyer] from a content hash and the options that
// influence the result, so that any change in model, settings or seed misses
// the cache.
package cache

import (
	"context"
	"time"
)

// Default TTLs.
const (
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a key-value byte store.
//
// Get reports a miss with ok=false and a nil error; errors are reserved for
// backend failures. A zero ttl stores without expiry.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// LayoutKey identifies a converged layout of the model with hash
	// modelHash.
	LayoutKey(modelHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendering of the layout with hash layoutHash.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the inputs besides the model that determine a layout.
type LayoutKeyOpts struct {
	Settings      any           `json:"settings"`
	Clip          [2][3]float64 `json:"clip"`
	Seed          uint64        `json:"seed"`
	MaxIterations int           `json:"max_iterations"`
}

// ArtifactKeyOpts are the inputs besides the layout that determine an
// artifact.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Scale  float64 `json:"scale"`
	Labels bool    `json:"labels"`
}

// DefaultKeyer hashes key options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey implements [Keyer].
func (DefaultKeyer) LayoutKey(modelHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", modelHash, opts)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
