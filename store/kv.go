// Package store provides TTL-bounded key-value storage and the validated
// cache/history state layer built on top of it.
//
// Expiry is delegated to the backing store: a present key is always within
// its freshness window, and expired keys are physically removed rather than
// returned stale. Callers never compare timestamps.

package store

import (
	"context"
	"time"
)

// KV is a key-value store with native per-key expiry.
type KV interface {
	// Get returns the value for key, or found=false if the key is absent
	// or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Put writes the value with the given TTL, replacing any previous value.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
