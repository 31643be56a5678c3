// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// HashKey fingerprints scan input for cache lookup. The full text never
// enters the cache; only this digest does, so cached entries cannot
// leak scanned content. xxhash is not cryptographic, which is fine
// here: a collision returns a stale verdict for one input, not a
// security boundary breach.
func HashKey(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
	MaxSize   int    `json:"max_size"`
}

// TotalRequests returns the number of lookups observed.
func (s CacheStats) TotalRequests() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns hits/(hits+misses), or 0 before any lookup.
func (s CacheStats) HitRate() float64 {
	total := s.TotalRequests()
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type cacheEntry struct {
	key      string
	result   InferenceResult
	expireAt time.Time
}

// ResultCache memoizes inference results keyed by input fingerprint.
// Least-recently-used entries are evicted at capacity; entries past
// their TTL are treated as absent and removed lazily on access, so an
// idle cache holds expired entries but never serves them. A MaxSize of
// 0 disables the cache: every Get misses and every Insert is dropped.
// Safe for concurrent use.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	cfg     CacheConfig

	hits      uint64
	misses    uint64
	evictions uint64

	// now is swapped in tests to drive TTL expiry deterministically.
	now func() time.Time
}

// NewResultCache creates a cache with the given capacity and TTL.
func NewResultCache(cfg CacheConfig) *ResultCache {
	return &ResultCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Get returns the cached result for a fingerprint. An expired entry is
// removed and reported as a miss.
func (c *ResultCache) Get(key string) (InferenceResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		promResultCacheMisses.Inc()
		return InferenceResult{}, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.expired(entry) {
		c.removeLocked(elem)
		c.misses++
		promResultCacheMisses.Inc()
		return InferenceResult{}, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	promResultCacheHits.Inc()
	return entry.result, true
}

// Insert stores a result under a fingerprint, evicting the
// least-recently-used entry at capacity. Inserting an existing key
// refreshes both the value and the TTL. Idempotent in effect: inserting
// the same pair twice leaves one entry.
func (c *ResultCache) Insert(key string, result InferenceResult) {
	if c.cfg.MaxSize <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expireAt := time.Time{}
	if c.cfg.TTL > 0 {
		expireAt = c.now().Add(c.cfg.TTL)
	}

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.result = result
		entry.expireAt = expireAt
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.cfg.MaxSize {
		c.evictOldestLocked()
	}

	elem := c.order.PushFront(&cacheEntry{key: key, result: result, expireAt: expireAt})
	c.entries[key] = elem
}

// Remove drops one entry; it returns false when the key was absent.
func (c *ResultCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(elem)
	return true
}

// Clear drops all entries. Statistics survive: hit-rate history is an
// operational record, not cache content.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of stored entries, counting not-yet-collected
// expired ones.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of cache counters.
func (c *ResultCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.order.Len(),
		MaxSize:   c.cfg.MaxSize,
	}
}

// ResetStats zeroes the hit, miss, and eviction counters. Stored
// entries are untouched; this is the counterpart of Clear, which drops
// entries but keeps the counters.
func (c *ResultCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

func (c *ResultCache) expired(e *cacheEntry) bool {
	return !e.expireAt.IsZero() && c.now().After(e.expireAt)
}

func (c *ResultCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.order.Remove(elem)
}

// evictOldestLocked prefers an already-expired entry over the true LRU
// tail, then falls back to the tail.
func (c *ResultCache) evictOldestLocked() {
	victim := c.order.Back()
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		if c.expired(elem.Value.(*cacheEntry)) {
			victim = elem
			break
		}
	}
	if victim == nil {
		return
	}
	c.removeLocked(victim)
	c.evictions++
	promResultCacheEvictions.Inc()
}
