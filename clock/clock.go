// Package clock provides a thread-safe Clock (Second Chance) cache implementation.
//
// # When to Use Clock
//
// Use Clock when you want LRU-like behavior with simpler implementation and
// potentially better performance characteristics. Clock is ideal for:
//   - Memory-constrained environments where simpler data structures help
//   - Workloads where approximate LRU is sufficient
//   - Systems where you want second-chance behavior for recently accessed items
//
// # How Clock Works
//
// Clock uses a circular buffer with a "hand" pointer and reference bits:
//  1. Each item has a reference bit, set to true when accessed
//  2. On eviction, the hand sweeps the buffer looking for items to evict
//  3. If an item's reference bit is true, it gets a "second chance": bit cleared, hand moves on
//  4. If an item's reference bit is false, it's evicted
//
// This approximates LRU: frequently accessed items keep getting their bit set,
// surviving eviction sweeps.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The cache uses a mutex internally.
//
// # Performance
//
// All operations (Get, Set, Delete, Contains, Len) are O(1) amortized.
//
// # Example Usage
//
//	cache, _ := clock.New[string, int](100)
//	cache.Set("key", 42)
//	cache.Get("key")        // Sets reference bit
//	// On eviction, "key" gets a second chance
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/srhnsn/evictcache/internal/cachecore"
)

type entry[K comparable, V any] struct {
	key        K
	value      V
	exp        time.Time
	referenced bool
}

// Cache implements a Clock cache (also known as Second Chance).
//
// It approximates LRU with O(1) access time by using a circular buffer
// and a reference bit instead of reordering on every access. When an item
// is accessed, its reference bit is set. During eviction, items with set
// bits get a "second chance" (bit cleared), while items with cleared bits
// are evicted.
//
// The zero value is not usable; create instances with [New].
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	items      map[K]uint64
	ring       []*entry[K, V]
	hand       uint64
	capacity   uint64
	size       uint64
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

// New creates a new Clock cache with the specified maximum capacity.
//
// The capacity determines how many key-value pairs the cache can hold.
// When this limit is exceeded, items are evicted using the clock algorithm.
// Returns cachecore.ErrInvalidCapacity if capacity is zero.
//
// Example:
//
//	cache, err := clock.New[string, *Session](1000)
func New[K comparable, V any](capacity uint64, opts ...Option[K, V]) (*Cache[K, V], error) {
	if capacity == 0 {
		return nil, cachecore.ErrInvalidCapacity
	}

	c := &Cache[K, V]{
		items:    make(map[K]uint64),
		ring:     make([]*entry[K, V], capacity),
		capacity: capacity,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Set adds or updates a key-value pair in the cache.
//
// Behavior:
//   - If the key exists: updates the value and sets the reference bit (second chance)
//   - If the key is new and cache is full: evicts an item using clock algorithm first
//   - If the key is new and cache has space: simply adds the item
//
// New items start with their reference bit cleared, making them eligible for
// eviction until they are accessed via [Cache.Get].
//
// Example:
//
//	cache.Set("config", configData)
//	cache.Set("config", newConfig)  // Updates and sets reference bit
func (c *Cache[K, V]) Set(key K, value V, ttl ...time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Puts++

	now := time.Now()
	exp := cachecore.ExpiryFor(cachecore.TTLOrDefault(c.defaultTTL, ttl), now)

	// Update existing
	if idx, ok := c.items[key]; ok {
		c.ring[idx].value = value
		c.ring[idx].exp = exp
		c.ring[idx].referenced = true

		return nil
	}

	var evictErr error

	// Need to evict if at capacity
	if c.size >= c.capacity {
		evictErr = c.evict()
	}

	// Find empty slot (after eviction or if not full)
	idx := c.findEmptySlot()
	c.ring[idx] = &entry[K, V]{
		key:        key,
		value:      value,
		exp:        exp,
		referenced: false,
	}
	c.items[key] = idx
	c.size++

	return evictErr
}

// Get retrieves a value from the cache and sets its reference bit.
//
// Returns:
//   - (value, true) if the key exists
//   - (zero value, false) if the key does not exist
//
// Setting the reference bit gives the item a "second chance" during eviction.
// Use [Cache.Peek] if you need to check a value without affecting eviction.
//
// Example:
//
//	if session, ok := cache.Get("session:abc"); ok {
//	    // session found, now protected from immediate eviction
//	}
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Gets++

	idx, ok := c.items[key]
	if !ok {
		var zero V

		return zero, false
	}

	e := c.ring[idx]
	if cachecore.Expired(e.exp, time.Now()) {
		c.ring[idx] = nil
		delete(c.items, key)
		c.size--

		var zero V

		return zero, false
	}

	c.stats.Hits++
	e.referenced = true

	return e.value, true
}

// Peek retrieves a value without setting the reference bit.
//
// Returns:
//   - (value, true) if the key exists
//   - (zero value, false) if the key does not exist
//
// Unlike [Cache.Get], this does not give the item a "second chance" during
// eviction. Use Peek when you need to check a value without affecting the
// cache's eviction behavior.
//
// Example:
//
//	// Check without protecting from eviction
//	if _, ok := cache.Peek("maybe-expired"); ok {
//	    // Item exists but won't get second chance
//	}
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.items[key]
	if !ok {
		var zero V

		return zero, false
	}

	e := c.ring[idx]
	if cachecore.Expired(e.exp, time.Now()) {
		var zero V

		return zero, false
	}

	return e.value, true
}

// Contains reports whether key is currently resident, without checking
// TTL expiry or affecting the reference bit.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]

	return ok
}

// At returns the value for key without affecting the reference bit, or
// cachecore.ErrKeyNotFound if key is absent.
func (c *Cache[K, V]) At(key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.items[key]
	if !ok {
		var zero V

		return zero, fmt.Errorf("%w: %v", cachecore.ErrKeyNotFound, key)
	}

	return c.ring[idx].value, nil
}

// Delete removes a key from the cache.
//
// Returns true if the key existed and was removed, false if the key was not found.
// The slot in the ring buffer is marked as empty and can be reused. Delete
// never fires the eviction callback.
//
// Example:
//
//	cache.Delete("invalidated-token")
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Deletes++

	idx, ok := c.items[key]
	if !ok {
		return false
	}

	c.ring[idx] = nil
	delete(c.items, key)
	c.size--

	return true
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

	return int(c.size)
}

// Clear removes all items from the cache. Counters are not reset.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ring = make([]*entry[K, V], c.capacity)
	c.items = make(map[K]uint64)
	c.hand = 0
	c.size = 0
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
	for _, idx := range c.items {
		values = append(values, c.ring[idx].value)
	}

	return values
}

// Items returns a snapshot of all resident key-value pairs.
func (c *Cache[K, V]) Items() map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[K]V, len(c.items))
	for k, idx := range c.items {
		out[k] = c.ring[idx].value
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

// evict removes an item using the clock algorithm.
// Must be called with lock held and when size >= capacity (cache is full).
// Since the cache is full, all slots are occupied; no nil checks needed.
func (c *Cache[K, V]) evict() error {
	for {
		e := c.ring[c.hand]

		if e.referenced {
			// Give second chance
			e.referenced = false

			c.advanceHand()

			continue
		}

		// Evict this entry
		delete(c.items, e.key)
		c.ring[c.hand] = nil
		c.size--
		c.stats.Evictions++

		if c.onEvict != nil {
			return c.onEvict(e.key, e.value)
		}

		return nil
	}
}

// findEmptySlot finds an empty slot in the ring.
// Must be called with lock held and when there's guaranteed to be an empty slot.
// This is always called after evict() has freed a slot, so an empty slot exists.
func (c *Cache[K, V]) findEmptySlot() uint64 {
	for {
		if c.ring[c.hand] == nil {
			idx := c.hand
			c.advanceHand()

			return idx
		}

		c.advanceHand()
	}
}

// advanceHand moves the clock hand forward.
func (c *Cache[K, V]) advanceHand() {
	c.hand = (c.hand + 1) % c.capacity
}
