package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fastConfig keeps test sleeps in the microsecond range.
func fastConfig(maxAttempts int) Config {
	return Config{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Microsecond,
		MaxDelay:     10 * time.Microsecond,
		Multiplier:   2,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(3), nil, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 1 {
		t.Errorf("got %q after %d calls, want ok after 1", got, calls)
	}
}

func TestDoExhaustsAttemptsAndRethrows(t *testing.T) {
	calls := 0
	final := errors.New("always fails")
	_, err := Do(context.Background(), fastConfig(3), nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, final
	})
	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
	if !errors.Is(err, final) {
		t.Errorf("expected final error to be rethrown, got %v", err)
	}
}

func TestDoStopsWhenPredicateDeclines(t *testing.T) {
	calls := 0
	fatal := errors.New("permanent")
	_, err := Do(context.Background(), fastConfig(5), func(error) bool { return false },
		func(ctx context.Context) (int, error) {
			calls++
			return 0, fatal
		})
	if calls != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", calls)
	}
	if !errors.Is(err, fatal) {
		t.Errorf("expected the original error, got %v", err)
	}
}

func TestDoRecoversMidway(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(5), nil, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("transient %d", calls)
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" || calls != 3 {
		t.Errorf("got %q after %d calls, want recovered after 3", got, calls)
	}
}

func TestBackoffSchedule(t *testing.T) {
	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: 1000 * time.Millisecond,
		MaxDelay:     10000 * time.Millisecond,
		Multiplier:   2,
	}
	b := newBackOff(cfg)

	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		10000 * time.Millisecond, // capped at MaxDelay
		10000 * time.Millisecond,
	}
	for k, expected := range want {
		got := b.NextBackOff()
		if got != expected {
			t.Errorf("delay %d: got %v, want %v", k, got, expected)
		}
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Config{MaxAttempts: 10, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}, nil,
		func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, errors.New("transient")
		})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt before cancellation stopped retries, got %d", calls)
	}
}

func TestKindOfTagged(t *testing.T) {
	base := errors.New("boom")
	err := Tag(KindRateLimited, base)
	if KindOf(err) != KindRateLimited {
		t.Errorf("expected tagged kind, got %v", KindOf(err))
	}
	if !errors.Is(err, base) {
		t.Error("tag must preserve the error chain")
	}

	wrapped := fmt.Errorf("call failed: %w", err)
	if KindOf(wrapped) != KindRateLimited {
		t.Errorf("expected tag to survive wrapping, got %v", KindOf(wrapped))
	}
}

func TestKindOfMessageFallback(t *testing.T) {
	tests := []struct {
		message string
		want    Kind
	}{
		{"429 Too Many Requests", KindRateLimited},
		{"request timed out", KindTimeout},
		{"connection refused", KindNetwork},
		{"503 Service Unavailable", KindServer},
		{"invalid argument", KindUnknown},
	}
	for _, tt := range tests {
		if got := KindOf(errors.New(tt.message)); got != tt.want {
			t.Errorf("KindOf(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestTransient(t *testing.T) {
	if !Transient(Tag(KindServer, errors.New("x"))) {
		t.Error("server errors are transient")
	}
	if !Transient(context.DeadlineExceeded) {
		t.Error("deadline exceeded is transient")
	}
	if Transient(Tag(KindClient, errors.New("x"))) {
		t.Error("client errors are not transient")
	}
	if Transient(nil) {
		t.Error("nil is not transient")
	}
}
