// Package cache holds rendered JSON bodies keyed by resource, each with a
// weak ETag. It backs the feed's round calendar and the instance and
// standings responses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

const (
	TTLRounds    = 6 * time.Hour // season calendar, rarely changes
	TTLInstance  = 30 * time.Second
	TTLStandings = 30 * time.Second

	sweepEvery = 5 * time.Minute
)

type entry struct {
	data      []byte
	etag      string
	expiresAt time.Time
}

func (e entry) live(now time.Time) bool { return now.Before(e.expiresAt) }

// Cache is safe for concurrent use. Expired entries are swept on write, at
// most once per sweepEvery, so no background goroutine is needed.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	enabled   bool
	now       func() time.Time
	nextSweep time.Time
}

// New returns a cache. A disabled cache still computes ETags but never
// stores anything.
func New(enabled bool) *Cache {
	return &Cache{entries: make(map[string]entry), enabled: enabled, now: time.Now}
}

// Get returns the body and ETag stored under key, if still fresh.
func (c *Cache) Get(key string) ([]byte, string, bool) {
	if !c.enabled {
		return nil, "", false
	}
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !e.live(c.now()) {
		return nil, "", false
	}
	return e.data, e.etag, true
}

// Set stores data for ttl and returns its ETag.
func (c *Cache) Set(key string, data []byte, ttl time.Duration) string {
	etag := ComputeETag(data)
	if !c.enabled {
		return etag
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if now.After(c.nextSweep) {
		c.sweepLocked(now)
		c.nextSweep = now.Add(sweepEvery)
	}
	c.entries[key] = entry{data: data, etag: etag, expiresAt: now.Add(ttl)}
	return etag
}

// InvalidatePrefix drops every key under prefix and reports how many went.
func (c *Cache) InvalidatePrefix(prefix string) int {
	if !c.enabled {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Stats is the /health/cache payload.
type Stats struct {
	Enabled bool `json:"enabled"`
	Keys    int  `json:"total_keys"`
	Live    int  `json:"active_keys"`
	Expired int  `json:"expired_keys"`
}

func (c *Cache) Stats() Stats {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Enabled: c.enabled, Keys: len(c.entries)}
	for _, e := range c.entries {
		if e.live(now) {
			s.Live++
		}
	}
	s.Expired = s.Keys - s.Live
	return s
}

func (c *Cache) sweepLocked(now time.Time) {
	for key, e := range c.entries {
		if !e.live(now) {
			delete(c.entries, key)
		}
	}
}

// ComputeETag derives a weak validator from the first 16 bytes of the body's
// SHA-256.
func ComputeETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `W/"` + hex.EncodeToString(sum[:16]) + `"`
}

// CheckETagMatch reports whether an If-None-Match header value names etag.
func CheckETagMatch(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "*" {
		return true
	}
	for ifNoneMatch != "" {
		var candidate string
		candidate, ifNoneMatch, _ = strings.Cut(ifNoneMatch, ",")
		if strings.TrimSpace(candidate) == etag {
			return true
		}
	}
	return false
}
