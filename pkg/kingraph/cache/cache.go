package cache

import (
	"context"
	"time"
)

const (
	// GraphKey is the single key holding the serialized graph projection
	GraphKey = "graph:v1"

	// GraphTTL bounds how stale a cached projection may get
	GraphTTL = 10 * time.Second
)

// Cache is the process-wide cache handle injected into every operation
// that reads or invalidates cached state. Initialized once per process and
// closed on shutdown; the in-memory implementation satisfies it for tests
// and cache-less deployments.
type Cache interface {
	// Get returns the value for key and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key for ttl (0 means no expiry)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error
	// Incr atomically increments the integer value at key, starting at 0
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets key's remaining time to live
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Close releases the underlying client
	Close() error
}
