// Package retry provides bounded retry with exponential backoff for
// external calls.
//
// Information Hiding:
// - Backoff engine (cenkalti/backoff) hidden behind Do
// - Delay schedule derivation from Config
//
// The helper never swallows a terminal failure: it rethrows the last error
// after exhausting attempts or as soon as the predicate declines a retry.
// Backoff sleeps are context-aware and never block other goroutines.

package retry

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// Config bounds the retry schedule.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns the default retry schedule: 3 attempts,
// 1s initial delay doubling up to 10s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
	}
}

// normalized fills zero fields with defaults so a partially-specified
// Config behaves sanely.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = d.Multiplier
	}
	return c
}

// newBackOff builds the deterministic delay schedule for cfg:
// delay(k) = min(InitialDelay * Multiplier^k, MaxDelay).
func newBackOff(cfg Config) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.MaxInterval = cfg.MaxDelay
	b.Multiplier = cfg.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // attempts are bounded by count, not wall time
	b.Reset()
	return b
}

// Do calls op, retrying on failure while shouldRetry approves and attempts
// remain. A nil shouldRetry retries every error. The last error is returned
// unwrapped when retries are exhausted or declined.
func Do[T any](ctx context.Context, cfg Config, shouldRetry func(error) bool, op func(context.Context) (T, error)) (T, error) {
	cfg = cfg.normalized()

	var result T
	attempt := func() error {
		var err error
		result, err = op(ctx)
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(cfg), uint64(cfg.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(attempt, b); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
