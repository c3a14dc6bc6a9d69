package store

import (
	"context"
	"testing"
	"time"
)

func TestSqliteKVRoundTrip(t *testing.T) {
	kv, err := NewSqliteKVInMemory()
	if err != nil {
		t.Fatalf("failed to create in-memory SQLite: %v", err)
	}
	defer kv.Close()

	ctx := context.Background()
	if err := kv.Put(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, found, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || string(value) != "v" {
		t.Errorf("expected v, got %q (found=%v)", value, found)
	}
}

func TestSqliteKVExpiry(t *testing.T) {
	kv, err := NewSqliteKVInMemory()
	if err != nil {
		t.Fatalf("failed to create in-memory SQLite: %v", err)
	}
	defer kv.Close()

	now := time.Now()
	kv.WithClock(func() time.Time { return now })

	ctx := context.Background()
	if err := kv.Put(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, found, err := kv.Get(ctx, "k"); err != nil {
		t.Fatalf("Get failed: %v", err)
	} else if found {
		t.Error("expected miss after TTL expiry")
	}

	// Expired row was deleted; a second read is still a clean miss
	if _, found, _ := kv.Get(ctx, "k"); found {
		t.Error("expected expired row to stay gone")
	}
}

func TestSqliteKVOverwrite(t *testing.T) {
	kv, err := NewSqliteKVInMemory()
	if err != nil {
		t.Fatalf("failed to create in-memory SQLite: %v", err)
	}
	defer kv.Close()

	ctx := context.Background()
	_ = kv.Put(ctx, "k", []byte("one"), time.Minute)
	_ = kv.Put(ctx, "k", []byte("two"), time.Minute)

	value, found, _ := kv.Get(ctx, "k")
	if !found || string(value) != "two" {
		t.Errorf("expected last write to win, got %q (found=%v)", value, found)
	}
}
