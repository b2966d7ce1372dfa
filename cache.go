package quarry

import (
	"context"
	"time"
)

// Cache is the interface for storing encoded compiled statements.
// Implementations live in the cache package (in-memory and Redis); users can
// plug in any other store.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies a compiled statement in a Cache.
type CacheKey struct {
	Dialect string
	Table   string
	Name    string // Caller-chosen statement name
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return "quarry:" + k.Dialect + ":" + k.Table + ":" + k.Name
}

// TablePrefix returns the key prefix shared by all statements of the table,
// suitable for Cache.DeletePrefix.
func (k CacheKey) TablePrefix() string {
	return "quarry:" + k.Dialect + ":" + k.Table + ":"
}
