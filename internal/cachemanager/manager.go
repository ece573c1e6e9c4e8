// Package cachemanager provides the shared read-through cache used by the
// service dispatcher. Keys are deterministic strings derived from operation
// parameters; concurrent writes to the same key are idempotent, so the store
// needs per-key atomicity only.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is the cache contract the dispatcher depends on.
type CacheManager[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)

	// DeletePrefix removes every entry whose key starts with prefix and
	// returns how many entries were removed. Write operations use this to
	// invalidate the read keys they affect.
	DeletePrefix(ctx context.Context, prefix string) int

	Flush(ctx context.Context)
	ItemCount() int
}
