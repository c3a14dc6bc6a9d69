// In-memory KV backend.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and single-process deployments

package store

import (
	"context"
	"sync"
	"time"
)

// MemoryKV implements KV using an in-memory map with per-key deadlines.
// Expired keys are deleted on access, never returned.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value    []byte
	deadline time.Time
}

// NewMemoryKV creates a new in-memory KV store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock overrides the time source (for tests).
func (s *MemoryKV) WithClock(now func() time.Time) *MemoryKV {
	s.now = now
	return s
}

// Get returns the value for key, deleting and missing expired entries.
func (s *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.deadline) {
		delete(s.entries, key)
		return nil, false, nil
	}

	// Copy to avoid external mutations
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

// Put writes the value with the given TTL.
func (s *MemoryKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(value))
	copy(copied, value)
	s.entries[key] = memoryEntry{
		value:    copied,
		deadline: s.now().Add(ttl),
	}
	return nil
}

// Verify MemoryKV implements KV
var _ KV = (*MemoryKV)(nil)
