package services

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultCacheTTL is how long a cached upstream read is served before a fresh
// fetch. Both cache instances (playback state, upstream queue) use it.
const DefaultCacheTTL = 15 * time.Second

// cacheKey is the single slot each ReadThrough instance memoizes.
const cacheKey = "latest"

// ReadThrough serves the most recent successful fetch while it is younger
// than a fixed TTL, shielding Spotify from bursty guest polling.
//
// Concurrent misses may each fetch; the contract is read-your-own-writes
// freshness, not single-flight deduplication. A failed fetch leaves the cache
// unchanged and the error propagates to the caller.
type ReadThrough[T any] struct {
	entries *ttlcache.Cache[string, T]
	ttl     time.Duration
}

// NewReadThrough creates a ReadThrough cache with the given TTL.
func NewReadThrough[T any](ttl time.Duration) *ReadThrough[T] {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	entries := ttlcache.New(
		ttlcache.WithTTL[string, T](ttl),
		ttlcache.WithDisableTouchOnHit[string, T](),
	)

	return &ReadThrough[T]{entries: entries, ttl: ttl}
}

// GetOrFetch returns the cached value when fresh, otherwise invokes fetch and
// stores its result.
func (r *ReadThrough[T]) GetOrFetch(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	if item := r.entries.Get(cacheKey); item != nil {
		return item.Value(), nil
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	r.entries.Set(cacheKey, value, r.ttl)
	return value, nil
}
