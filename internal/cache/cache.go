package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when a key is absent or its entry has expired.
var ErrMiss = errors.New("cache miss")

// Service defines the interface for the shared TTL caches used by the config
// resolver and the secret cache. Implementations must allow concurrent reads
// without blocking each other; a refresh for one key must not block access to
// other keys.
type Service interface {
	// Get retrieves a value from the cache, unmarshaling it into dest.
	// Returns ErrMiss when the key is absent or expired.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value in the cache with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}
