package exchange

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the default in-process rate cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	rates   map[string]float64
	expires time.Time
}

// NewMemoryCache creates an empty in-memory rate cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get returns the cached table for a base currency, or nil when absent or
// expired.
func (c *MemoryCache) Get(_ context.Context, base string) (map[string]float64, error) {
	c.mu.RLock()
	entry, ok := c.entries[base]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expires) {
		return nil, nil
	}
	return entry.rates, nil
}

// Set stores a rate table with the given TTL
func (c *MemoryCache) Set(_ context.Context, base string, rates map[string]float64, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[base] = memoryEntry{rates: rates, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Verify interface compliance
var _ RateCache = (*MemoryCache)(nil)
