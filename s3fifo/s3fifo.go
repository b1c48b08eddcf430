// Package s3fifo provides a thread-safe S3-FIFO cache implementation.
//
// # When to Use S3-FIFO
//
// S3-FIFO (Simple, Scalable, Scan-resistant FIFO) gives near-LRU hit ratios
// using only FIFO queues, no recency list to reorder on every access. It is
// well suited to:
//   - Large working sets with a long tail of one-hit-wonders
//   - Workloads where LRU's per-access list maintenance is too costly
//   - Scan-heavy traffic that would otherwise flush an LRU cache
//
// # How S3-FIFO Works
//
// Three FIFO queues cooperate:
//   - small: holds newly inserted entries; most are one-hit-wonders and
//     leave quickly.
//   - main: holds entries promoted out of small (or reinserted after a
//     ghost hit); this is the bulk of the cache.
//   - ghost: holds tombstones for keys recently expelled from small without
//     being promoted, so a quick re-insertion skips straight to main.
//
// Every entry carries a frequency counter in [-1, 3], incremented (capped
// at 3) on each hit and decremented during main-queue eviction sweeps.
// freq == -1 marks a ghost/tombstone: present in the index but not
// servable.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The cache uses a mutex internally.
// The eviction callback, if set, must not call back into the same cache.
//
// # Example Usage
//
//	cache, _ := s3fifo.New[string, int](1000)
//	cache.Set("key", 42)
//	cache.Get("key")
package s3fifo

import (
	"fmt"
	"sync"
	"time"

	"github.com/srhnsn/evictcache/internal/cachecore"
)

const (
	defaultSmallQueueSizeRatio  = 0.1
	defaultSmallToMainThreshold = int8(1)
)

type location int8

const (
	locSmall location = iota
	locMain
	locGhost
)

type node[K comparable, V any] struct {
	key        K
	value      V
	exp        time.Time
	freq       int8
	loc        location
	prev, next *node[K, V]
}

// list is a doubly-linked FIFO queue of nodes, sentinel-headed like the
// plain FIFO policy's internal list. head = newest insertion, tail = oldest.
type list[K comparable, V any] struct {
	head, tail *node[K, V]
	size       uint64
}

func newList[K comparable, V any]() *list[K, V] {
	head := &node[K, V]{}
	tail := &node[K, V]{}
	head.next = tail
	tail.prev = head

	return &list[K, V]{head: head, tail: tail}
}

func (l *list[K, V]) insertNewest(n *node[K, V]) {
	n.next = l.head.next
	n.prev = l.head
	l.head.next.prev = n
	l.head.next = n
	l.size++
}

func (l *list[K, V]) remove(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	l.size--
}

func (l *list[K, V]) removeOldest() *node[K, V] {
	oldest := l.tail.prev
	if oldest == l.head {
		return nil
	}

	l.remove(oldest)

	return oldest
}

// Cache implements the S3-FIFO (Simple, Scalable, Scan-resistant FIFO)
// eviction policy: a small admission queue, a main queue, and a ghost queue
// of recently expelled keys that fast-tracks re-admissions into main.
//
// The zero value is not usable; create instances with [New].
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]*node[K, V]

	small, main, ghost *list[K, V]

	capacity                    uint64
	smallCap, mainCap, ghostCap uint64
	currSize                    uint64

	smallRatio       float64
	promoteThreshold int8

	defaultTTL time.Duration
	onEvict    cachecore.EvictionCallback[K, V]
	stats      cachecore.Stats
}

// Option configures a Cache at construction time.
type Option[K comparable, V any] func(*Cache[K, V])

// WithDefaultTTL sets the TTL applied to Set calls that don't specify their
// own. A non-positive duration means entries never expire by default.
func WithDefaultTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.defaultTTL = ttl
	}
}

// WithEvictionCallback registers a callback fired synchronously right
// after a victim is unlinked by capacity-triggered eviction, including an
// entry expelled from small and turned into a ghost (its key stays indexed
// but is no longer servable). It is never invoked for Delete or for lazily
// observed expiry.
func WithEvictionCallback[K comparable, V any](cb cachecore.EvictionCallback[K, V]) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = cb
	}
}

// WithSmallQueueSizeRatio sets the fraction of capacity assigned to the
// small (admission) queue; the main queue takes the remainder. Defaults
// to 0.1.
func WithSmallQueueSizeRatio[K comparable, V any](ratio float64) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.smallRatio = ratio
	}
}

// WithSmallToMainThreshold sets the minimum frequency an entry must reach
// to be promoted from small to main on expulsion, instead of becoming a
// ghost. Defaults to 1.
func WithSmallToMainThreshold[K comparable, V any](threshold int8) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.promoteThreshold = threshold
	}
}

// New creates a new S3-FIFO cache with the specified maximum capacity.
// Returns cachecore.ErrInvalidCapacity if capacity is zero.
//
// Example:
//
//	cache, err := s3fifo.New[string, *Object](10000)
func New[K comparable, V any](capacity uint64, opts ...Option[K, V]) (*Cache[K, V], error) {
	if capacity == 0 {
		return nil, cachecore.ErrInvalidCapacity
	}

	c := &Cache[K, V]{
		items:            make(map[K]*node[K, V]),
		small:            newList[K, V](),
		main:             newList[K, V](),
		ghost:            newList[K, V](),
		capacity:         capacity,
		smallRatio:       defaultSmallQueueSizeRatio,
		promoteThreshold: defaultSmallToMainThreshold,
	}

	for _, opt := range opts {
		opt(c)
	}

	smallCap := uint64(float64(capacity) * c.smallRatio)
	if smallCap < 1 {
		smallCap = 1
	}

	if capacity > 1 && smallCap >= capacity {
		smallCap = capacity - 1
	}

	if capacity == 1 {
		smallCap = 1
	}

	c.smallCap = smallCap
	c.mainCap = capacity - smallCap
	c.ghostCap = c.mainCap

	return c, nil
}

// Set adds or updates a key-value pair in the cache.
//
// A brand-new key always enters the small queue. A key whose only trace is
// a ghost (recently expelled from small without promotion) is re-admitted
// directly into main, skipping small a second time. An update of a live
// key changes its value and exp_time in place without moving it or
// touching its frequency. ttl optionally overrides the cache's default TTL
// for this entry.
func (c *Cache[K, V]) Set(key K, value V, ttl ...time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Puts++

	now := time.Now()
	exp := cachecore.ExpiryFor(cachecore.TTLOrDefault(c.defaultTTL, ttl), now)

	if n, ok := c.items[key]; ok && n.freq != -1 {
		n.value = value
		n.exp = exp

		return nil
	}

	_, ghostHit := c.items[key]

	var fresh *node[K, V]

	if ghostHit {
		// The old tombstone is left dangling in the ghost queue and is
		// dropped silently when popped, since the index binding below
		// no longer points at it.
		fresh = &node[K, V]{key: key, value: value, exp: exp, freq: 0, loc: locMain}
		c.main.insertNewest(fresh)
	} else {
		fresh = &node[K, V]{key: key, value: value, exp: exp, freq: 0, loc: locSmall}
		c.small.insertNewest(fresh)
	}

	c.items[key] = fresh
	c.currSize++

	for c.currSize > c.capacity {
		if err := c.evict(); err != nil {
			return err
		}
	}

	return nil
}

// Get retrieves a value from the cache.
//
// Returns:
//   - (value, true) if the key is resident and not expired
//   - (zero value, false) if the key is absent, a ghost, or expired
//
// A hit bumps the entry's frequency counter (capped at 3) without moving
// it. A ghost hit is a miss and does not itself promote the key; promotion
// happens on the next Set. An expired entry is removed lazily, including
// its index binding, without invoking the eviction callback.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Gets++

	n, ok := c.items[key]
	if !ok || n.freq == -1 {
		var zero V

		return zero, false
	}

	if cachecore.Expired(n.exp, time.Now()) {
		c.listFor(n.loc).remove(n)
		delete(c.items, key)
		c.currSize--

		var zero V

		return zero, false
	}

	c.stats.Hits++

	if n.freq < 3 {
		n.freq++
	}

	return n.value, true
}

// Peek retrieves a value without affecting its frequency counter.
//
// Returns:
//   - (value, true) if the key is resident and not expired
//   - (zero value, false) if the key is absent, a ghost, or expired
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok || n.freq == -1 {
		var zero V

		return zero, false
	}

	if cachecore.Expired(n.exp, time.Now()) {
		var zero V

		return zero, false
	}

	return n.value, true
}

// Contains reports whether key is currently resident and servable (a
// ghost is indexed but not resident), without checking TTL expiry.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]

	return ok && n.freq != -1
}

// At returns the value for key, or cachecore.ErrKeyNotFound if key is
// absent or only a ghost.
func (c *Cache[K, V]) At(key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok || n.freq == -1 {
		var zero V

		return zero, fmt.Errorf("%w: %v", cachecore.ErrKeyNotFound, key)
	}

	return n.value, nil
}

// Delete removes a key from the cache.
//
// Returns true if the key was resident and removed, false if it was
// absent or only a ghost. Delete never fires the eviction callback.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Deletes++

	n, ok := c.items[key]
	if !ok || n.freq == -1 {
		return false
	}

	c.listFor(n.loc).remove(n)
	delete(c.items, key)
	c.currSize--

	return true
}

// Len returns the current number of resident (non-ghost) entries.
//
// This value is always <= the capacity specified in [New].
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return int(c.currSize)
}

// Clear removes all items and ghosts from the cache. Counters are not reset.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*node[K, V])
	c.small = newList[K, V]()
	c.main = newList[K, V]()
	c.ghost = newList[K, V]()
	c.currSize = 0
}

// Keys returns the resident (non-ghost) keys in no particular order.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.currSize)

	for k, n := range c.items {
		if n.freq != -1 {
			keys = append(keys, k)
		}
	}

	return keys
}

// Values returns the resident (non-ghost) values in no particular order.
func (c *Cache[K, V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	values := make([]V, 0, c.currSize)

	for _, n := range c.items {
		if n.freq != -1 {
			values = append(values, n.value)
		}
	}

	return values
}

// Items returns a snapshot of all resident (non-ghost) key-value pairs.
func (c *Cache[K, V]) Items() map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[K]V, c.currSize)

	for k, n := range c.items {
		if n.freq != -1 {
			out[k] = n.value
		}
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

func (c *Cache[K, V]) listFor(loc location) *list[K, V] {
	switch loc {
	case locSmall:
		return c.small
	case locMain:
		return c.main
	case locGhost:
		return c.ghost
	default:
		return nil
	}
}

// evict expels exactly one live entry, choosing the small or main queue
// sweep depending on which is currently over its share of capacity.
// evictSmall/evictLarge only ever relocate or shrink the queues they pop
// from; a promotion from small to main, or the silent drop of a dangling
// tombstone, removes nothing from the resident population, so evict loops
// until one of them reports a real removal before accounting for it. Must
// be called with the lock held.
func (c *Cache[K, V]) evict() error {
	for {
		var (
			removed bool
			err     error
		)

		if c.small.size > c.smallCap {
			removed, err = c.evictSmall()
		} else {
			removed, err = c.evictLarge()
		}

		if removed {
			c.stats.Evictions++
			c.currSize--

			return err
		}

		if err != nil {
			return err
		}

		if c.small.size == 0 && c.main.size == 0 {
			return nil
		}
	}
}

// evictSmall pops the oldest small-queue entry. Tombstones left dangling
// there are dropped silently; entries that earned enough hits are
// promoted into main without being removed from the resident population,
// in which case evictSmall keeps sweeping small instead of reporting a
// removal; everything else becomes a ghost, which is the one real
// removal this function can report.
func (c *Cache[K, V]) evictSmall() (bool, error) {
	for {
		n := c.small.removeOldest()
		if n == nil {
			return false, nil
		}

		if n.freq == -1 {
			continue
		}

		if n.freq >= c.promoteThreshold {
			n.freq = 0
			n.loc = locMain
			c.main.insertNewest(n)

			if c.main.size > c.mainCap {
				return c.evictLarge()
			}

			continue
		}

		evictedKey := n.key
		evictedValue := n.value

		n.freq = -1
		n.loc = locGhost

		var zero V
		n.value = zero

		c.ghost.insertNewest(n)

		for c.ghost.size > c.ghostCap {
			g := c.ghost.removeOldest()
			if v, ok := c.items[g.key]; ok && v == g {
				delete(c.items, g.key)
			}
		}

		if c.onEvict != nil {
			return true, c.onEvict(evictedKey, evictedValue)
		}

		return true, nil
	}
}

// evictLarge pops the oldest main-queue entry. Tombstones are dropped;
// entries with remaining frequency are re-circulated with a decremented
// counter, which is not a removal either; a frequency-0 entry is the true
// victim and the one case evictLarge reports as removed.
func (c *Cache[K, V]) evictLarge() (bool, error) {
	for {
		n := c.main.removeOldest()
		if n == nil {
			return false, nil
		}

		if n.freq == -1 {
			continue
		}

		if n.freq >= 1 {
			n.freq--
			c.main.insertNewest(n)

			continue
		}

		delete(c.items, n.key)

		if c.onEvict != nil {
			return true, c.onEvict(n.key, n.value)
		}

		return true, nil
	}
}
