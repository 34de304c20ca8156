// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

// Package cache provides the bounded best-effort caches used by view
// controllers. The only consumer today is the alerts view's camera-label
// cache, which is refreshed once per view load and carries a documented
// staleness contract: entries may be arbitrarily stale within their TTL
// and are never invalidated by camera mutations.
package cache

import (
	"sync"
	"time"
)

// lruEntry is a node in the doubly-linked recency list.
type lruEntry struct {
	key       string
	value     string
	prev      *lruEntry
	next      *lruEntry
	expiresAt time.Time
}

// LRU is a thread-safe least-recently-used cache of string values with
// TTL support. Get, Set and eviction are all O(1): a hashmap provides
// lookups and a doubly-linked list with sentinel head/tail maintains
// recency order. Expired entries are evicted lazily on access.
type LRU struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruEntry

	// head.next is most recently used, tail.prev least recently used.
	head *lruEntry
	tail *lruEntry
}

// NewLRU creates an LRU cache with the given capacity and entry TTL.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &LRU{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the cached value for key and whether it was present and
// unexpired. A hit promotes the entry to most recently used.
func (c *LRU) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		c.remove(entry)
		return "", false
	}
	c.moveToFront(entry)
	return entry.value, true
}

// Set stores a value, evicting the least recently used entry when full.
func (c *LRU) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = time.Now().Add(c.ttl)
		c.moveToFront(entry)
		return
	}

	if len(c.items) >= c.capacity {
		c.remove(c.tail.prev)
	}

	entry := &lruEntry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.items[key] = entry
	c.insertFront(entry)
}

// Len returns the number of entries, including any not yet lazily expired.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*lruEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// remove unlinks an entry; caller must hold the lock.
func (c *LRU) remove(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

// moveToFront promotes an entry to most recently used; lock held.
func (c *LRU) moveToFront(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.insertFront(entry)
}

// insertFront splices an entry directly after head; lock held.
func (c *LRU) insertFront(entry *lruEntry) {
	entry.next = c.head.next
	entry.prev = c.head
	c.head.next.prev = entry
	c.head.next = entry
}
