// Package slru provides a thread-safe Segmented LRU (SLRU) cache implementation.
//
// # When to Use SLRU
//
// Use SLRU when you need better scan resistance than standard LRU. SLRU protects
// frequently accessed items from being evicted by a burst of new entries. This is
// ideal for:
//   - Workloads mixing frequent "hot" items with occasional full scans
//   - Database caches where table scans shouldn't evict popular rows
//   - CDN/proxy caches where crawlers shouldn't evict popular content
//
// # How SLRU Works
//
// The cache is divided into two segments:
//   - Probation: New items start here (default 20% of capacity)
//   - Protected: Items promoted here after being accessed again (default 80%)
//
// When a probation item is accessed via Get, it's promoted to protected.
// When protected is full, its least recently used item is demoted back to probation.
// Eviction always happens from probation first, protecting frequently used items.
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
//	cache, _ := slru.New[string, int](1000)  // 80% protected, 20% probation
//	cache.Set("key", 42)                      // Enters probation
//	cache.Get("key")                          // Promoted to protected
package slru

import (
	"fmt"
	"sync"
	"time"

	"github.com/srhnsn/evictcache/internal/cachecore"
)

type segment uint8

const (
	probation segment = iota
	protected
)

type node[K comparable, V any] struct {
	key        K
	value      V
	exp        time.Time
	segment    segment
	prev, next *node[K, V]
}

// Cache implements a Segmented LRU (SLRU) cache with probation and protected segments.
//
// New items enter the probation segment. When accessed again via [Cache.Get], they are
// promoted to the protected segment. This two-tier structure provides scan resistance:
// a burst of new items will only evict other new items in probation, not the frequently
// accessed items in protected.
//
// The zero value is not usable; create instances with [New] or [NewWithRatio].
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	items map[K]*node[K, V]

	probationHead, probationTail *node[K, V]
	protectedHead, protectedTail *node[K, V]

	capacity                   uint64
	probationCap, protectedCap uint64
	probationLen, protectedLen uint64

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
// after a victim is unlinked from the probation segment by
// capacity-triggered eviction. It is never invoked for Delete, for a
// protected-to-probation demotion, or for lazily observed expiry.
func WithEvictionCallback[K comparable, V any](cb cachecore.EvictionCallback[K, V]) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = cb
	}
}

// WithProtectedPercent sets the protected/probation split at construction
// time, as an alternative to calling [NewWithRatio] directly.
func WithProtectedPercent[K comparable, V any](percent uint8) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.setRatio(percent)
	}
}

// New creates a new SLRU cache with the given capacity using the default 80/20 split.
//
// The capacity is divided as:
//   - Protected segment: 80% (frequently accessed items)
//   - Probation segment: 20% (new items awaiting promotion)
//
// Use [NewWithRatio] if you need a different split. Returns
// cachecore.ErrInvalidCapacity if capacity is zero.
//
// Example:
//
//	cache, err := slru.New[string, *Page](10000)  // 8000 protected, 2000 probation
func New[K comparable, V any](capacity uint64, opts ...Option[K, V]) (*Cache[K, V], error) {
	return NewWithRatio[K, V](capacity, 80, opts...)
}

// NewWithRatio creates a new SLRU cache with a custom protected/probation ratio.
//
// Parameters:
//   - capacity: total number of items the cache can hold
//   - protectedPercent: percentage of capacity for the protected segment (0-100)
//
// The probation segment gets the remaining capacity. Both segments are guaranteed
// at least 1 slot. Returns cachecore.ErrInvalidCapacity if capacity is zero.
//
// Example:
//
//	// 50/50 split for workloads with many unique accesses
//	cache, err := slru.NewWithRatio[string, int](1000, 50)
//
//	// 90/10 split for highly skewed access patterns
//	cache, err := slru.NewWithRatio[string, int](1000, 90)
func NewWithRatio[K comparable, V any](capacity uint64, protectedPercent uint8, opts ...Option[K, V]) (*Cache[K, V], error) {
	if capacity == 0 {
		return nil, cachecore.ErrInvalidCapacity
	}

	probationHead := &node[K, V]{segment: probation}
	probationTail := &node[K, V]{segment: probation}
	probationHead.next = probationTail
	probationTail.prev = probationHead

	protectedHead := &node[K, V]{segment: protected}
	protectedTail := &node[K, V]{segment: protected}
	protectedHead.next = protectedTail
	protectedTail.prev = protectedHead

	c := &Cache[K, V]{
		items:         make(map[K]*node[K, V]),
		probationHead: probationHead,
		probationTail: probationTail,
		protectedHead: protectedHead,
		protectedTail: protectedTail,
	}
	c.capacity = capacity
	c.setRatio(protectedPercent)

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// setRatio recomputes the protected/probation split from c.capacity, so
// WithProtectedPercent can replace the split NewWithRatio already set.
// A segment that would get 0 slots gets 1, taken from the other segment
// when that one has more than 1.
func (c *Cache[K, V]) setRatio(protectedPercent uint8) {
	if protectedPercent > 100 {
		protectedPercent = 100
	}

	protectedCap := c.capacity * uint64(protectedPercent) / 100
	probationCap := c.capacity - protectedCap

	if protectedCap == 0 {
		protectedCap = 1

		if probationCap > 1 {
			probationCap--
		}
	}

	if probationCap == 0 {
		probationCap = 1

		if protectedCap > 1 {
			protectedCap--
		}
	}

	c.protectedCap = protectedCap
	c.probationCap = probationCap
}

// Set adds or updates a key-value pair in the cache.
//
// Behavior:
//   - New keys: added to the probation segment
//   - Existing keys: value and TTL updated in place, item stays in its current segment
//
// New items must "earn" their place in the protected segment by being accessed
// again via [Cache.Get]. This is what gives SLRU its scan resistance. ttl
// optionally overrides the cache's default TTL for this entry.
//
// Example:
//
//	cache.Set("page:1", pageData)   // Enters probation
//	cache.Set("page:1", newData)    // Updates value, stays in probation
//	cache.Get("page:1")             // NOW promoted to protected
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

	n := &node[K, V]{key: key, value: value, exp: exp, segment: probation}
	c.items[key] = n
	c.addToHead(n, probation)
	c.probationLen++

	if c.probationLen > c.probationCap {
		return c.evictFromProbation()
	}

	return nil
}

// Get retrieves a value and promotes probation items to protected.
//
// Returns:
//   - (value, true) if the key exists and has not expired
//   - (zero value, false) if the key does not exist, or has expired
//
// Promotion behavior:
//   - Items in probation are promoted to the protected segment
//   - Items already in protected are moved to the front (most recently used)
//   - If protected is full, its LRU item is demoted back to probation
//
// An expired entry is removed lazily on this call, without invoking the
// eviction callback. This promotion mechanism is what provides SLRU's
// scan resistance. Use [Cache.Peek] if you need to read without promoting.
//
// Example:
//
//	cache.Set("item", data)           // In probation
//	cache.Get("item")                 // Promoted to protected
//	cache.Get("item")                 // Stays in protected, moved to front
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Gets++

	n, ok := c.items[key]
	if !ok {
		var zero V

		return zero, false
	}

	if cachecore.Expired(n.exp, time.Now()) {
		c.removeNode(n)

		if n.segment == probation {
			c.probationLen--
		} else {
			c.protectedLen--
		}

		delete(c.items, key)

		var zero V

		return zero, false
	}

	c.stats.Hits++

	if n.segment == probation {
		c.promote(n)
	} else {
		c.moveToHead(n)
	}

	return n.value, true
}

// Peek retrieves a value without promoting it.
//
// Returns:
//   - (value, true) if the key exists and has not expired
//   - (zero value, false) if the key does not exist, or has expired
//
// Unlike [Cache.Get], this does not promote probation items to protected.
// Use Peek when you need to check a value without affecting the cache's
// eviction behavior.
//
// Example:
//
//	// Check item without promoting it
//	if data, ok := cache.Peek("temp-item"); ok {
//	    // Item found but stays in its current segment
//	}
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok || cachecore.Expired(n.exp, time.Now()) {
		var zero V

		return zero, false
	}

	return n.value, true
}

// Contains reports whether key is currently resident, without checking
// TTL expiry or promoting the entry.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]

	return ok
}

// At returns the value for key without promoting it, or
// cachecore.ErrKeyNotFound if key is absent.
func (c *Cache[K, V]) At(key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		var zero V

		return zero, fmt.Errorf("%w: %v", cachecore.ErrKeyNotFound, key)
	}

	return n.value, nil
}

// Delete removes a key from the cache, regardless of which segment it's in.
//
// Returns true if the key existed and was removed, false if the key was not found.
// Delete never fires the eviction callback.
//
// Example:
//
//	cache.Delete("expired-session")
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Deletes++

	n, ok := c.items[key]
	if !ok {
		return false
	}

	c.removeNode(n)

	if n.segment == probation {
		c.probationLen--
	} else {
		c.protectedLen--
	}

	delete(c.items, key)

	return true
}

// Len returns the total number of items across both segments.
//
// This is the combined count of items in probation and protected segments.
//
// Example:
//
//	fmt.Printf("Cache has %d items\n", cache.Len())
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Clear removes all items from both segments. Counters are not reset.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.probationHead.next = c.probationTail
	c.probationTail.prev = c.probationHead
	c.protectedHead.next = c.protectedTail
	c.protectedTail.prev = c.protectedHead
	c.items = make(map[K]*node[K, V])
	c.probationLen = 0
	c.protectedLen = 0
}

// Keys returns the resident keys, from both segments, in no particular order.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}

	return keys
}

// Values returns the resident values, from both segments, in no
// particular order.
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

// promote moves a node from probation to protected segment.
func (c *Cache[K, V]) promote(n *node[K, V]) {
	c.removeNode(n)
	c.probationLen--

	n.segment = protected
	c.addToHead(n, protected)
	c.protectedLen++

	if c.protectedLen > c.protectedCap {
		c.demoteLRU()
	}
}

// demoteLRU moves the LRU item from protected back to probation.
// This is only called when protectedLen > protectedCap, so protected is never empty.
// Note: This cannot cause probation overflow because:
// - promote() removes 1 from probation and demoteLRU adds 1 back (net zero change)
// - probationLen never exceeds probationCap after Set() completes.
func (c *Cache[K, V]) demoteLRU() {
	lru := c.protectedTail.prev

	c.removeNode(lru)
	c.protectedLen--

	lru.segment = probation
	c.addToHead(lru, probation)
	c.probationLen++
}

// evictFromProbation removes the LRU item from the probation segment.
// This is only called when probationLen > probationCap, so probation is never empty.
func (c *Cache[K, V]) evictFromProbation() error {
	lru := c.probationTail.prev

	c.removeNode(lru)
	c.probationLen--

	delete(c.items, lru.key)
	c.stats.Evictions++

	if c.onEvict != nil {
		return c.onEvict(lru.key, lru.value)
	}

	return nil
}

// removeNode removes a node from its current linked list.
func (c *Cache[K, V]) removeNode(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

// addToHead adds a node to the head of the specified segment's list.
func (c *Cache[K, V]) addToHead(n *node[K, V], seg segment) {
	var head *node[K, V]

	if seg == probation {
		head = c.probationHead
	} else {
		head = c.protectedHead
	}

	n.next = head.next
	n.prev = head
	head.next.prev = n
	head.next = n
}

// moveToHead moves an existing node to the head of its segment's list.
func (c *Cache[K, V]) moveToHead(n *node[K, V]) {
	c.removeNode(n)
	c.addToHead(n, n.segment)
}
