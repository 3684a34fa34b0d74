package port

import (
	"context"
	"time"
)

// Cache is the key-value contract the server uses for listing responses.
// Implementations must be safe for concurrent use and context-aware so
// callers can bound every round trip.
//
// Values are opaque strings; serialization stays with the caller so the port
// does not grow codec concerns.
type Cache interface {
	// Get fetches the value for key, or ErrMiss when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. Zero or negative TTL means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes the given keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Close releases any resources held by the cache.
	Close() error
}

// ErrMiss signals a cache miss in a typed way, distinguishable from
// transport errors.
var ErrMiss = errMiss{}

type errMiss struct{}

func (errMiss) Error() string { return "cache: miss" }
