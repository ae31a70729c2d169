package cache

import (
	"context"
	"sync"
	"time"

	"qualifier/internal/evidence/profile"
	"qualifier/pkg/platform/sentinel"
)

type cachedEvidence struct {
	evidence profile.Evidence
	storedAt time.Time
}

// InMemoryCache keeps successful evidence for the life of the process, with TTL expiration.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cachedEvidence
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[string]cachedEvidence),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Save stores evidence keyed by URL. Nil evidence is a no-op.
func (c *InMemoryCache) Save(_ context.Context, url string, ev *profile.Evidence) error {
	if ev == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = cachedEvidence{evidence: *ev, storedAt: c.now()}
	return nil
}

// Find returns cached evidence, or sentinel.ErrNotFound if absent or expired.
func (c *InMemoryCache) Find(_ context.Context, url string) (*profile.Evidence, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cached, ok := c.entries[url]; ok && c.now().Sub(cached.storedAt) < c.ttl {
		ev := cached.evidence
		return &ev, nil
	}
	return nil, sentinel.ErrNotFound
}

var _ profile.Cache = (*InMemoryCache)(nil)
