// Package memory provides an in-process candidate cache.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ersonp/clinote/internal/domain/entities"
)

type item struct {
	candidates []entities.Candidate
	expiresAt  time.Time
}

// Cache implements ports.CandidateCache with a mutex-guarded map.
// A zero TTL keeps entries for the life of the process.
type Cache struct {
	mu    sync.RWMutex
	items map[string]item
	ttl   time.Duration
	now   func() time.Time
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		items: make(map[string]item),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns a copy of the cached candidates.
func (c *Cache) Get(_ context.Context, key string) ([]entities.Candidate, bool, error) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !it.expiresAt.IsZero() && !c.now().Before(it.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return slices.Clone(it.candidates), true, nil
}

// Set stores a copy of candidates under key.
func (c *Cache) Set(_ context.Context, key string, candidates []entities.Candidate) error {
	it := item{candidates: slices.Clone(candidates)}
	if c.ttl > 0 {
		it.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.items[key] = it
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
