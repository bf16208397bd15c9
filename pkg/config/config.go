// Package config reads the ltsgraph settings file.
//
// The file is TOML. Every key is optional; missing keys keep their defaults,
// so an empty or absent file is a valid configuration:
//
//	[layout]
//	attraction = "ltsgraph"
//	repulsion = "ltsgraph"
//	application = "direct"
//	natural_length = 50.0
//	accuracy = 0.8
//	seed = 1
//
//	[clip]
//	min = [-500.0, -500.0, 0.0]
//	max = [500.0, 500.0, 0.0]
//
//	[worker]
//	period_ms = 50
//
//	[cache]
//	backend = "file"
//	ttl_hours = 168
//
//	[server]
//	addr = ":8080"
package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/cache"
	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/layout"
	"github.com/mCRL2org/ltsgraph/pkg/worker"
)

const appName = "ltsgraph"

// Settings is the whole configuration file.
type Settings struct {
	Layout Layout `toml:"layout"`
	Clip   Clip   `toml:"clip"`
	Worker Worker `toml:"worker"`
	Cache  Cache  `toml:"cache"`
	Server Server `toml:"server"`
}

// Layout holds the engine tunables and the random seed.
type Layout struct {
	layout.Settings
	Seed uint64 `toml:"seed"`
}

// Clip is the region positions are clamped to.
type Clip struct {
	Min [3]float64 `toml:"min"`
	Max [3]float64 `toml:"max"`
}

// Box returns the clip region as a box.
func (c Clip) Box() r3.Box {
	return r3.Box{
		Min: r3.Vec{X: c.Min[0], Y: c.Min[1], Z: c.Min[2]},
		Max: r3.Vec{X: c.Max[0], Y: c.Max[1], Z: c.Max[2]},
	}
}

// Worker configures the background layout loop.
type Worker struct {
	PeriodMS int `toml:"period_ms"`
}

// Period returns the iteration period.
func (w Worker) Period() time.Duration {
	return time.Duration(w.PeriodMS) * time.Millisecond
}

// Cache selects the layout cache backend.
type Cache struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	TTLHours        int    `toml:"ttl_hours"`
	RedisAddr       string `toml:"redis_addr"`
	RedisPassword   string `toml:"redis_password"`
	RedisDB         int    `toml:"redis_db"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// TTL returns the entry lifetime.
func (c Cache) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Options converts the section into [cache.Options]. An empty dir falls
// back to the XDG cache directory.
func (c Cache) Options() (cache.Options, error) {
	backend, err := cache.ParseBackend(c.Backend)
	if err != nil {
		return cache.Options{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "cache")
	}
	dir := c.Dir
	if dir == "" && backend == cache.BackendFile {
		if dir, err = CacheDir(); err != nil {
			return cache.Options{}, err
		}
	}
	return cache.Options{
		Backend: backend,
		Dir:     dir,
		Redis: cache.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   appName + ":",
		},
		Mongo: cache.MongoOptions{
			URI:        c.MongoURI,
			Database:   c.MongoDatabase,
			Collection: c.MongoCollection,
		},
		Timeout: 5 * time.Second,
	}, nil
}

// Open opens the configured cache.
func (c Cache) Open(ctx context.Context) (cache.Cache, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	cc, err := cache.Open(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCache, err, "open %s cache", opts.Backend)
	}
	return cc, nil
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Settings {
	clip := layout.DefaultClip
	return Settings{
		Layout: Layout{Settings: layout.DefaultSettings(), Seed: layout.DefaultSeed},
		Clip: Clip{
			Min: [3]float64{clip.Min.X, clip.Min.Y, clip.Min.Z},
			Max: [3]float64{clip.Max.X, clip.Max.Y, clip.Max.Z},
		},
		Worker: Worker{PeriodMS: int(worker.DefaultPeriod / time.Millisecond)},
		Cache: Cache{
			Backend:         string(cache.BackendFile),
			TTLHours:        int(cache.TTLLayout / time.Hour),
			RedisAddr:       "localhost:6379",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   appName,
			MongoCollection: "cache",
		},
		Server: Server{Addr: ":8080"},
	}
}

// Validate checks the whole configuration. Every failure has code
// INVALID_CONFIG.
func (s *Settings) Validate() error {
	if err := s.Layout.Settings.Validate(); err != nil {
		return err
	}
	if err := layout.ValidateClip(s.Clip.Box()); err != nil {
		return err
	}
	if s.Worker.PeriodMS <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "worker.period_ms must be > 0, got %d", s.Worker.PeriodMS)
	}
	if s.Cache.TTLHours < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl_hours must be >= 0, got %d", s.Cache.TTLHours)
	}
	if _, err := cache.ParseBackend(s.Cache.Backend); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "cache")
	}
	return nil
}

// ApplyTo pushes the layout tunables and clip region into e.
func (s *Settings) ApplyTo(e *layout.Engine) error {
	if err := e.SetSettings(s.Layout.Settings); err != nil {
		return err
	}
	b := s.Clip.Box()
	return e.SetClipRegion(b.Min, b.Max, 0)
}

// EngineOptions returns the options that create an engine in this
// configuration.
func (s *Settings) EngineOptions() []layout.Option {
	return []layout.Option{
		layout.WithSettings(s.Layout.Settings),
		layout.WithClip(s.Clip.Box()),
		layout.WithSeed(s.Layout.Seed),
	}
}

// =============================================================================
// Files
// =============================================================================

// Decode reads TOML from r on top of the defaults and validates the result.
func Decode(r io.Reader) (Settings, error) {
	s := Default()
	md, err := toml.NewDecoder(r).Decode(&s)
	if err != nil {
		return Settings{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Settings{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads the file at path. An empty path means [DefaultPath], and a
// missing default file yields [Default]. A missing explicit path is an
// error.
func Load(path string) (Settings, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		if os.IsNotExist(err) {
			return Settings{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return Settings{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Encode writes s as TOML.
func (s *Settings) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(s)
}

// DefaultPath returns the XDG config file location
// (~/.config/ltsgraph/config.toml).
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the XDG cache directory (~/.cache/ltsgraph/).
func CacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
