// Cache and conversation-history state layer.
//
// Information Hiding:
// - KV key names and serialized shapes
// - Schema validation at the store boundary
//
// Validation is defensive: malformed or schema-invalid payloads map to the
// safe default (nil entry, empty history) with a warning, never to an error.
// Freshness is the backing store's job; there is no timestamp bookkeeping here.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/minase/kotae/llm"
)

const (
	keyReferenceCache = "sheet_cache"
	keyHistory        = "conversation_history"

	// DefaultTTL bounds both the reference cache and the history window.
	DefaultTTL = 5 * time.Minute
)

// CacheEntry is the cached reference data.
type CacheEntry struct {
	Data        string `json:"data"`
	Description string `json:"description"`
}

// State provides validated access to the reference cache and the rolling
// conversation history.
type State struct {
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

// NewState creates a state layer over the given KV with the given TTL.
// A zero ttl falls back to DefaultTTL.
func NewState(kv KV, ttl time.Duration, logger *slog.Logger) *State {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &State{kv: kv, ttl: ttl, logger: logger}
}

// GetReferenceCache returns the cached reference data, or nil on absence,
// expiry, or a malformed payload.
func (s *State) GetReferenceCache(ctx context.Context) (*CacheEntry, error) {
	raw, found, err := s.kv.Get(ctx, keyReferenceCache)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference cache: %w", err)
	}
	if !found {
		return nil, nil
	}

	entry, reason := decodeCacheEntry(raw)
	if reason != "" {
		s.logger.Warn("discarding malformed reference cache", "reason", reason)
		return nil, nil
	}
	return entry, nil
}

// SaveReferenceCache writes the reference data with the configured TTL.
func (s *State) SaveReferenceCache(ctx context.Context, data, description string) error {
	raw, err := json.Marshal(CacheEntry{Data: data, Description: description})
	if err != nil {
		return fmt.Errorf("failed to encode reference cache: %w", err)
	}
	if err := s.kv.Put(ctx, keyReferenceCache, raw, s.ttl); err != nil {
		return fmt.Errorf("failed to write reference cache: %w", err)
	}
	return nil
}

// GetHistory returns the rolling conversation history. Absence, parse
// failure, and schema-invalid entries all degrade to the empty history;
// invalid entries are dropped individually, preserving order.
func (s *State) GetHistory(ctx context.Context) ([]llm.Message, error) {
	raw, found, err := s.kv.Get(ctx, keyHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if !found {
		return []llm.Message{}, nil
	}

	entries, dropped, reason := decodeHistory(raw)
	if reason != "" {
		s.logger.Warn("discarding malformed history", "reason", reason)
		return []llm.Message{}, nil
	}
	if dropped > 0 {
		s.logger.Warn("dropped invalid history entries", "count", dropped)
	}
	return entries, nil
}

// SaveHistory replaces the whole history key with the configured TTL.
// Only role and text survive serialization; extra fields are stripped.
func (s *State) SaveHistory(ctx context.Context, entries []llm.Message) error {
	stripped := make([]llm.Message, len(entries))
	for i, e := range entries {
		stripped[i] = llm.Message{Role: e.Role, Text: e.Text}
	}

	raw, err := json.Marshal(stripped)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.kv.Put(ctx, keyHistory, raw, s.ttl); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// decodeCacheEntry validates a raw cache payload. A non-empty reason means
// the payload must be treated as a miss.
func decodeCacheEntry(raw []byte) (*CacheEntry, string) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Sprintf("not a JSON object: %v", err)
	}

	data, ok := stringField(fields, "data")
	if !ok {
		return nil, "missing or non-string field: data"
	}
	description, ok := stringField(fields, "description")
	if !ok {
		return nil, "missing or non-string field: description"
	}

	return &CacheEntry{Data: data, Description: description}, ""
}

// decodeHistory validates a raw history payload. Entries missing required
// string fields are dropped; a non-array payload invalidates the whole key.
func decodeHistory(raw []byte) ([]llm.Message, int, string) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, fmt.Sprintf("not a JSON array: %v", err)
	}

	entries := make([]llm.Message, 0, len(items))
	dropped := 0
	for _, item := range items {
		role, okRole := stringField(item, "role")
		text, okText := stringField(item, "text")
		if !okRole || !okText {
			dropped++
			continue
		}
		entries = append(entries, llm.Message{Role: role, Text: text})
	}
	return entries, dropped, ""
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
