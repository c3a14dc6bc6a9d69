// Durable step checkpointing.
//
// Information Hiding:
// - Checkpoint key naming
// - Memoized-result serialization
//
// A step body runs at most once per run for a given name: once its result
// is persisted, re-execution (after a retry or restart) replays the stored
// value instead of the body.

package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/minase/kotae/store"
)

// Checkpointer memoizes step results for a run.
type Checkpointer interface {
	// Do returns the memoized result for (runID, step), executing fn and
	// persisting its result on first use.
	Do(ctx context.Context, runID, step string, fn func(context.Context) ([]byte, error)) ([]byte, error)
}

// KVCheckpointer persists step results in the shared KV store.
type KVCheckpointer struct {
	kv     store.KV
	ttl    time.Duration
	logger *slog.Logger
}

// NewKVCheckpointer creates a checkpointer. Checkpoints expire after ttl;
// a zero ttl keeps them for an hour, comfortably longer than any run.
func NewKVCheckpointer(kv store.KV, ttl time.Duration, logger *slog.Logger) *KVCheckpointer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KVCheckpointer{kv: kv, ttl: ttl, logger: logger}
}

func checkpointKey(runID, step string) string {
	return fmt.Sprintf("wf:%s:%s", runID, step)
}

// Do implements Checkpointer.
func (c *KVCheckpointer) Do(ctx context.Context, runID, step string, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	key := checkpointKey(runID, step)

	if cached, found, err := c.kv.Get(ctx, key); err != nil {
		c.logger.Warn("checkpoint read failed, re-executing step", "step", step, "error", err)
	} else if found {
		return cached, nil
	}

	result, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	// A failed checkpoint write costs a possible re-execution, not the run.
	if err := c.kv.Put(ctx, key, result, c.ttl); err != nil {
		c.logger.Warn("checkpoint write failed", "step", step, "error", err)
	}
	return result, nil
}

// Step runs a typed step body through the checkpointer, JSON-encoding the
// memoized result.
func Step[T any](ctx context.Context, cp Checkpointer, runID, name string, fn func(context.Context) (T, error)) (T, error) {
	var result T

	raw, err := cp.Do(ctx, runID, name, func(ctx context.Context) ([]byte, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode step %q result: %w", name, err)
		}
		return encoded, nil
	})
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("failed to decode step %q result: %w", name, err)
	}
	return result, nil
}

// Verify KVCheckpointer implements Checkpointer
var _ Checkpointer = (*KVCheckpointer)(nil)
