package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Provider is the cache abstraction the image and auth layers read through.
type Provider interface {
	// Set stores a value with a TTL.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Get loads a value into dest. Returns ErrCacheMiss when absent.
	Get(ctx context.Context, key string, dest interface{}) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Exists checks whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend.
	Close() error

	// Name returns the provider name.
	Name() string
}

// IsCacheMiss reports whether err is a cache miss.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
