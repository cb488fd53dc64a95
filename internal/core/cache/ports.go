package cache

import (
	"context"
	"time"
)

// Cache defines the caching operations interface following hexagonal architecture.
// This is a port that can be implemented by different cache providers.
type Cache interface {
	// Get retrieves a value from the cache by key.
	// Returns the cached value or an error if not found or on failure.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the specified key and TTL.
	// TTL of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// IncrBy atomically adds delta to the integer counter stored at key and
	// returns the new value. Missing keys start at zero.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// IncrByFloat atomically adds delta to the float counter stored at key
	// and returns the new value. Missing keys start at zero.
	IncrByFloat(ctx context.Context, key string, delta float64) (float64, error)

	// Delete removes a value from the cache by key.
	Delete(ctx context.Context, key string) error

	// Ping checks if the cache service is reachable.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
