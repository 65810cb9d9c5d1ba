// Package lease provides per-instance mutual exclusion for settlement passes.
// A lease is a TTL-bounded lock identified by a random token; only the holder
// of the token can release it, and an expired lease can be taken over.
package lease

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/scoracle-games/internal/game"
)

// Locker acquires leases. Acquire returns game.ErrConcurrentSettlement when
// another holder owns an unexpired lease on key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error)
}

// Lease is a held lock. Release is safe to call more than once.
type Lease struct {
	Key       string
	Token     string
	ExpiresAt time.Time

	once    sync.Once
	release func(ctx context.Context) error
}

// Release gives the lease back. A lease that already expired and was taken
// over by someone else is left alone.
func (l *Lease) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		if l.release != nil {
			err = l.release(ctx)
		}
	})
	return err
}

// InstanceKey is the lease key guarding settlement of one instance.
func InstanceKey(instanceID string) string {
	return "settle:instance:" + instanceID
}

func newToken() string {
	return uuid.NewString()
}

func held(key string) error {
	return fmt.Errorf("lease %s: %w", key, game.ErrConcurrentSettlement)
}

// --------------------------------------------------------------------------
// Memory
// --------------------------------------------------------------------------

// Memory is a process-local Locker.
type Memory struct {
	mu     sync.Mutex
	leases map[string]memEntry
	now    func() time.Time
}

type memEntry struct {
	token     string
	expiresAt time.Time
}

// NewMemory returns an empty process-local locker.
func NewMemory() *Memory {
	return &Memory{leases: make(map[string]memEntry), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (*Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if cur, ok := m.leases[key]; ok && cur.expiresAt.After(now) {
		return nil, held(key)
	}

	token := newToken()
	expires := now.Add(ttl)
	m.leases[key] = memEntry{token: token, expiresAt: expires}

	return &Lease{
		Key:       key,
		Token:     token,
		ExpiresAt: expires,
		release: func(context.Context) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if cur, ok := m.leases[key]; ok && cur.token == token {
				delete(m.leases, key)
			}
			return nil
		},
	}, nil
}
