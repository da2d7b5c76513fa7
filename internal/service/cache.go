package service

import (
	"strings"
	"sync"
)

// queryCache memoizes search results until the next write touches the
// same entity. Every entity carries a generation counter; a write bumps
// it, which instantly orphans all entries stored under older generations.
//
// Readers snapshot the generation before hitting the database and hand it
// back on Put, so a result computed before a concurrent write can never
// be stored as current.
type queryCache struct {
	mu      sync.RWMutex
	gens    map[string]uint64
	entries map[string]cacheEntry
}

type cacheEntry struct {
	gen   uint64
	value interface{}
}

func newQueryCache() *queryCache {
	return &queryCache{
		gens:    make(map[string]uint64),
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(entity, signature string) string {
	return entity + "|" + signature
}

// Generation returns the current generation for the entity. Take it
// before querying the database.
func (c *queryCache) Generation(entity string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[entity]
}

// Get returns the cached value for the signature if it is still current.
func (c *queryCache) Get(entity, signature string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[cacheKey(entity, signature)]
	if !ok || e.gen != c.gens[entity] {
		return nil, false
	}
	return e.value, true
}

// Put stores a value computed at the given generation. Stale puts are
// dropped silently.
func (c *queryCache) Put(entity, signature string, gen uint64, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gens[entity] {
		return
	}
	c.entries[cacheKey(entity, signature)] = cacheEntry{gen: gen, value: value}
}

// Invalidate ages out every entry held for the entity.
func (c *queryCache) Invalidate(entity string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[entity]++
	prefix := entity + "|"
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}
