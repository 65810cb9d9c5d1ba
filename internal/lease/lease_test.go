package lease

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/albapepper/scoracle-games/internal/game"
)

func TestMemoryLease(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	l, err := m.Acquire(ctx, InstanceKey("g1"), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Acquire(ctx, InstanceKey("g1"), time.Minute); !errors.Is(err, game.ErrConcurrentSettlement) {
		t.Fatalf("second acquire: err = %v", err)
	}
	if _, err := m.Acquire(ctx, InstanceKey("g2"), time.Minute); err != nil {
		t.Fatalf("other key: %v", err)
	}

	// Expired leases can be taken over; the stale holder's release is a no-op.
	now = now.Add(2 * time.Minute)
	l2, err := m.Acquire(ctx, InstanceKey("g1"), time.Minute)
	if err != nil {
		t.Fatalf("takeover: %v", err)
	}
	if err := l.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Acquire(ctx, InstanceKey("g1"), time.Minute); !errors.Is(err, game.ErrConcurrentSettlement) {
		t.Fatalf("stale release freed the new holder's lease: %v", err)
	}

	if err := l2.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Acquire(ctx, InstanceKey("g1"), time.Minute); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func newRedisLocker(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, "test:"), mr
}

func TestRedisLease(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisLocker(t)

	l, err := r.Acquire(ctx, InstanceKey("g1"), 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := mr.Get("test:settle:instance:g1"); got != l.Token {
		t.Errorf("stored token = %q, want %q", got, l.Token)
	}
	if _, err := r.Acquire(ctx, InstanceKey("g1"), 30*time.Second); !errors.Is(err, game.ErrConcurrentSettlement) {
		t.Fatalf("second acquire: err = %v", err)
	}

	if err := l.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("test:settle:instance:g1") {
		t.Error("key still present after release")
	}
}

func TestRedisLeaseExpiry(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisLocker(t)

	stale, err := r.Acquire(ctx, InstanceKey("g1"), 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	mr.FastForward(11 * time.Second)

	fresh, err := r.Acquire(ctx, InstanceKey("g1"), 10*time.Second)
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}

	// The stale holder must not delete the new lease.
	if err := stale.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := mr.Get("test:settle:instance:g1"); got != fresh.Token {
		t.Errorf("token after stale release = %q, want %q", got, fresh.Token)
	}
}
