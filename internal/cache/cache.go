// Package cache provides the in-memory TTL cache backing the content
// aggregator and a fingerprint helper for building deterministic cache keys.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"
)

// Entry wraps a cached value with its insertion and expiry times.
type Entry[V any] struct {
	Value      V
	InsertedAt time.Time
	ExpiresAt  time.Time
}

// Cache is a mutex-guarded map with per-entry TTL. Expired entries are
// evicted lazily on read.
type Cache[V any] struct {
	// TTL applies to entries stored with Put. Zero means entries never
	// expire.
	TTL time.Duration

	mu      sync.Mutex
	entries map[string]Entry[V]
	now     func() time.Time
}

// New returns a Cache whose entries expire ttl after insertion.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{TTL: ttl}
}

// Put stores value under key with the cache's default TTL.
func (c *Cache[V]) Put(key string, value V) {
	c.PutTTL(key, value, c.TTL)
}

// PutTTL stores value under key with an explicit TTL.
func (c *Cache[V]) PutTTL(key string, value V, ttl time.Duration) {
	now := c.clock()()
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[string]Entry[V])
	}
	c.entries[key] = Entry[V]{Value: value, InsertedAt: now, ExpiresAt: exp}
	c.mu.Unlock()
}

// Get returns the live value for key. Expired entries are deleted and
// reported as absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	ent, ok := c.GetEntry(key)
	return ent.Value, ok
}

// GetEntry is Get plus the entry's timestamps, used when the caller needs
// the expiry horizon.
func (c *Cache[V]) GetEntry(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	if !ent.ExpiresAt.IsZero() && !c.clock()().Before(ent.ExpiresAt) {
		delete(c.entries, key)
		return Entry[V]{}, false
	}
	return ent, true
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

// Len counts live entries, evicting expired ones as it scans.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()()
	n := 0
	for k, ent := range c.entries {
		if !ent.ExpiresAt.IsZero() && !now.Before(ent.ExpiresAt) {
			delete(c.entries, k)
			continue
		}
		n++
	}
	return n
}

// Stats counts live and expired entries without evicting, so callers can
// report both sides of the split.
func (c *Cache[V]) Stats() (live, expired int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()()
	for _, ent := range c.entries {
		if !ent.ExpiresAt.IsZero() && !now.Before(ent.ExpiresAt) {
			expired++
			continue
		}
		live++
	}
	return live, expired
}

// Keys returns the live keys in unspecified order.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()()
	keys := make([]string, 0, len(c.entries))
	for k, ent := range c.entries {
		if !ent.ExpiresAt.IsZero() && !now.Before(ent.ExpiresAt) {
			delete(c.entries, k)
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

func (c *Cache[V]) clock() func() time.Time {
	if c.now != nil {
		return c.now
	}
	return time.Now
}

// Fingerprint derives a deterministic cache key from canonical input text.
func Fingerprint(canonical string) string {
	sum := md5.Sum([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
