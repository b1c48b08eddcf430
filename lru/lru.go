// Package lru provides a thread-safe LRU (Least Recently Used) cache implementation.
//
// # When to Use LRU
//
// Use LRU when you want to keep frequently accessed items in cache. Items that
// haven't been accessed recently are evicted first. This is ideal for:
//   - Database query caching where recent queries are likely to repeat
//   - Session storage where active sessions should stay cached
//   - Any workload with temporal locality (recent items accessed again soon)
//
// # Thread Safety
//
// All methods are safe for concurrent use. The cache uses a mutex internally.
// The eviction callback, if set, must not call back into the same cache.
//
// # Performance
//
// All operations (Get, Set, Delete, Contains, Len) are O(1).
//
// # Example Usage
//
//	cache, _ := lru.New[string, int](100)  // Cache up to 100 items
//	cache.Set("user:123", 42)
//	if val, ok := cache.Get("user:123"); ok {
//	    fmt.Println(val) // 42
//	}
package lru

import (
	"fmt"
	"sync"
	"time"

	"github.com/srhnsn/evictcache/internal/cachecore"
)

type node[K comparable, V any] struct {
	key        K
	value      V
	exp        time.Time
	prev, next *node[K, V]
}

// Cache is a thread-safe LRU (Least Recently Used) cache.
//
// Items are evicted based on access recency: the least recently accessed item
// is removed when the cache reaches capacity. Both Get and Set operations
// mark an item as "recently used", moving it to the front of the eviction queue.
//
// The zero value is not usable; create instances with [New].
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	capacity   uint64
	items      map[K]*node[K, V]
	head, tail *node[K, V]
	defaultTTL time.Duration
	onEvict    cachecore.EvictionCallback[K, V]
	stats      cachecore.Stats
}

// Option configures a Cache at construction time.
type Option[K comparable, V any] func(*Cache[K, V])

// WithDefaultTTL sets the TTL applied to Set calls that don't specify
// their own. A non-positive duration means entries never expire by default.
func WithDefaultTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.defaultTTL = ttl
	}
}

// WithEvictionCallback registers a callback fired synchronously right
// after a victim is unlinked by capacity-triggered eviction. It is never
// invoked for Delete or for lazily observed expiry.
func WithEvictionCallback[K comparable, V any](cb cachecore.EvictionCallback[K, V]) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = cb
	}
}

// New creates a new LRU cache with the specified maximum capacity.
//
// The capacity determines how many key-value pairs the cache can hold.
// When this limit is exceeded, the least recently used item is automatically evicted.
// Returns cachecore.ErrInvalidCapacity if capacity is zero.
//
// Example:
//
//	// Create a cache that holds up to 1000 items
//	cache, err := lru.New[string, *User](1000)
func New[K comparable, V any](capacity uint64, opts ...Option[K, V]) (*Cache[K, V], error) {
	if capacity == 0 {
		return nil, cachecore.ErrInvalidCapacity
	}

	head := &node[K, V]{}
	tail := &node[K, V]{}
	head.next = tail
	tail.prev = head

	c := &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*node[K, V]),
		head:     head,
		tail:     tail,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Set adds or updates a key-value pair in the cache.
//
// Behavior:
//   - If the key exists: updates the value and TTL, marks it as most recently used
//   - If the key is new and cache is full: evicts the least recently used item first
//   - If the key is new and cache has space: simply adds the item
//
// The operation is atomic and thread-safe. ttl optionally overrides the
// cache's default TTL for this entry.
//
// Example:
//
//	cache.Set("session:abc", sessionData)  // Add new item
//	cache.Set("session:abc", updatedData)  // Update existing, moves to front
func (c *Cache[K, V]) Set(key K, value V, ttl ...time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Puts++

	now := time.Now()
	exp := cachecore.ExpiryFor(cachecore.TTLOrDefault(c.defaultTTL, ttl), now)

	if n, ok := c.items[key]; ok {
		n.value = value
		n.exp = exp
		c.moveToHead(n)

		return nil
	}

	n := &node[K, V]{key: key, value: value, exp: exp}
	c.items[key] = n
	c.addNodeToHead(n)

	if uint64(len(c.items)) > c.capacity {
		return c.evict()
	}

	return nil
}

func (c *Cache[K, V]) moveToHead(node *node[K, V]) {
	c.removeNode(node)
	c.addNodeToHead(node)
}

func (c *Cache[K, V]) removeNode(node *node[K, V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (c *Cache[K, V]) addNodeToHead(node *node[K, V]) {
	node.next = c.head.next
	node.prev = c.head
	c.head.next.prev = node
	c.head.next = node
}

// evict removes the least recently used item (at tail). Must be called
// with the lock held.
func (c *Cache[K, V]) evict() error {
	lru := c.tail.prev
	if lru == c.head {
		return nil
	}

	c.removeNode(lru)
	delete(c.items, lru.key)
	c.stats.Evictions++

	if c.onEvict != nil {
		return c.onEvict(lru.key, lru.value)
	}

	return nil
}

// Get retrieves a value from the cache and marks it as recently used.
//
// Returns:
//   - (value, true) if the key exists and has not expired
//   - (zero value, false) if the key does not exist, or has expired
//
// An expired entry is removed lazily on this call, without invoking the
// eviction callback, and without affecting recency. Important: a
// successful Get updates the item's recency, preventing it from being
// evicted. Use [Cache.Peek] if you need to check a value without
// affecting eviction order.
//
// Example:
//
//	if user, ok := cache.Get("user:123"); ok {
//	    // user found and is now "recently used"
//	    fmt.Println(user.Name)
//	} else {
//	    // user not in cache, fetch from database
//	}
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Gets++

	n, ok := c.items[key]
	if !ok {
		var v V

		return v, false
	}

	if cachecore.Expired(n.exp, time.Now()) {
		c.removeNode(n)
		delete(c.items, key)

		var v V

		return v, false
	}

	c.stats.Hits++
	c.moveToHead(n)

	return n.value, true
}

// Peek retrieves a value without marking it as recently used.
//
// Returns:
//   - (value, true) if the key exists and has not expired
//   - (zero value, false) if the key does not exist, or has expired
//
// Unlike [Cache.Get], this does not affect the eviction order, nor does
// it count toward hit/miss statistics. Use Peek when you need to check
// if a value exists or read it without preventing its eviction.
//
// Example:
//
//	// Check if item exists without affecting LRU order
//	if _, ok := cache.Peek("temp-key"); ok {
//	    fmt.Println("key exists but won't be protected from eviction")
//	}
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok || cachecore.Expired(n.exp, time.Now()) {
		var v V

		return v, false
	}

	return n.value, true
}

// Contains reports whether key is currently resident, without checking
// TTL expiry or affecting recency.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]

	return ok
}

// At returns the value for key without affecting recency, or
// cachecore.ErrKeyNotFound if key is absent.
func (c *Cache[K, V]) At(key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		var v V

		return v, fmt.Errorf("%w: %v", cachecore.ErrKeyNotFound, key)
	}

	return n.value, nil
}

// Delete removes a key from the cache.
//
// Returns true if the key existed and was removed, false if the key was not found.
// Delete never fires the eviction callback.
//
// Example:
//
//	if cache.Delete("session:expired") {
//	    fmt.Println("session removed")
//	}
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Deletes++

	if n, ok := c.items[key]; ok {
		c.removeNode(n)
		delete(c.items, key)

		return true
	}

	return false
}

// Len returns the current number of items in the cache.
//
// This value is always <= the capacity specified in [New].
//
// Example:
//
//	fmt.Printf("Cache contains %d items\n", cache.Len())
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Clear removes all items from the cache. Counters are not reset.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.head.next = c.tail
	c.tail.prev = c.head
	c.items = make(map[K]*node[K, V])
}

// Keys returns the resident keys in no particular order.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}

	return keys
}

// Values returns the resident values in no particular order.
func (c *Cache[K, V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	values := make([]V, 0, len(c.items))
	for _, n := range c.items {
		values = append(values, n.value)
	}

	return values
}

// Items returns a snapshot of all resident key-value pairs.
func (c *Cache[K, V]) Items() map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[K]V, len(c.items))
	for k, n := range c.items {
		out[k] = n.value
	}

	return out
}

// Stats returns a snapshot of the operation counters.
func (c *Cache[K, V]) Stats() cachecore.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stats
}

// SetEvictionCallback replaces the eviction callback.
func (c *Cache[K, V]) SetEvictionCallback(cb cachecore.EvictionCallback[K, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onEvict = cb
}

// Update bulk-inserts from items, stopping at the first error (for
// example one raised by the eviction callback).
func (c *Cache[K, V]) Update(items map[K]V) error {
	for k, v := range items {
		if err := c.Set(k, v); err != nil {
			return err
		}
	}

	return nil
}
