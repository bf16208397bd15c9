package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Backend names a cache implementation.
type Backend string

const (
	BackendNone  Backend = "none"
	BackendFile  Backend = "file"
	BackendRedis Backend = "redis"
	BackendMongo Backend = "mongo"
)

// ParseBackend parses a backend name; the empty string means none.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "", BackendNone:
		return BackendNone, nil
	case BackendFile, BackendRedis, BackendMongo:
		return b, nil
	}
	return "", fmt.Errorf("unknown cache backend %q (want none, file, redis or mongo)", s)
}

// Options selects and configures a backend for [Open].
type Options struct {
	Backend Backend
	Dir     string
	Redis   RedisOptions
	Mongo   MongoOptions
	// Timeout bounds connecting to a network backend.
	Timeout time.Duration
}

// Open returns the cache described by opts.
func Open(ctx context.Context, opts Options) (Cache, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	switch opts.Backend {
	case "", BackendNone:
		return NewNullCache(), nil
	case BackendFile:
		c, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, opts.Redis)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendMongo:
		c, err := NewMongoCache(ctx, opts.Mongo)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
}
