// Package cache implements the bounded-capacity LRU value cache that sits
// in front of the log on the read path.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is used when no explicit capacity is configured.
const DefaultCapacity = 1024

// Cache is a fixed-capacity LRU from key to value bytes. It is safe for
// concurrent use; hashicorp/golang-lru serializes internally.
type Cache struct {
	lru *lru.Cache[int64, []byte]

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache with the given capacity. A capacity that is zero or
// negative is replaced by DefaultCapacity.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l, err := lru.New[int64, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached value for k, if present, updating its recency.
func (c *Cache) Get(k int64) ([]byte, bool) {
	v, ok := c.lru.Get(k)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put inserts or updates k's cached value, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *Cache) Put(k int64, value []byte) {
	c.lru.Add(k, value)
}

// Invalidate removes k's entry, if present.
func (c *Cache) Invalidate(k int64) {
	c.lru.Remove(k)
}

// Clear removes every entry, used after compaction invalidates all offsets.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Stats reports cumulative hit/miss counts, for tests and diagnostics.
type Stats struct {
	Hits   int64
	Misses int64
}

// Stats returns the cache's cumulative hit/miss counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
