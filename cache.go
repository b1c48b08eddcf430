// Package evictcache provides a bounded-capacity, in-memory key/value cache
// behind a single uniform interface, backed by a choice of eviction
// policies: FIFO, LRU, CLOCK, S3-FIFO, and segmented LRU (SLRU).
//
// # Choosing a Policy
//
//   - FIFO: simplest, predictable, no access-pattern adaptivity.
//   - LRU: classic recency-based eviction.
//   - Clock: approximates LRU with O(1) amortized bookkeeping.
//   - S3FIFO: scan-resistant, strong hit ratios on skewed workloads without
//     LRU's per-access list maintenance.
//   - SLRU: two-segment LRU variant that resists cache pollution from
//     one-hit-wonders without S3-FIFO's ghost bookkeeping.
//
// # Example
//
//	c, err := evictcache.New[string, *Session](evictcache.LRU, 10000, evictcache.Config[string, *Session]{
//	    DefaultTTL: 30 * time.Minute,
//	})
package evictcache

import (
	"time"

	"github.com/srhnsn/evictcache/clock"
	"github.com/srhnsn/evictcache/fifo"
	"github.com/srhnsn/evictcache/internal/cachecore"
	"github.com/srhnsn/evictcache/lru"
	"github.com/srhnsn/evictcache/s3fifo"
	"github.com/srhnsn/evictcache/slru"
)

// Policy names an eviction strategy. The zero value is not a valid policy;
// use one of the exported constants.
type Policy string

// Supported eviction policies.
const (
	FIFO   Policy = "FIFO"
	LRU    Policy = "LRU"
	Clock  Policy = "CLOCK"
	S3FIFO Policy = "S3FIFO"
	SLRU   Policy = "SLRU"
)

// Stats holds the policy-neutral operation counters: n_get, n_hit, n_put,
// n_delete, n_evict.
type Stats = cachecore.Stats

// EvictionCallback is invoked synchronously right after a victim has been
// unlinked from its ordering structure and index, immediately before the
// triggering operation returns. It is never invoked for Delete or for a
// lazily observed expiry.
type EvictionCallback[K comparable, V any] = cachecore.EvictionCallback[K, V]

// Config carries construction parameters shared across policies plus the
// options specific to S3-FIFO and SLRU, which are ignored by the other
// policies.
type Config[K comparable, V any] struct {
	// DefaultTTL is applied to Set calls that omit an explicit TTL. A
	// non-positive duration means entries never expire by default.
	DefaultTTL time.Duration

	// OnEvict fires for every capacity-triggered eviction.
	OnEvict EvictionCallback[K, V]

	// EnableFlash requests a persistent/flash-backed tier. This
	// implementation is DRAM-only; setting this to true makes New return
	// cachecore.ErrFlashUnsupported.
	EnableFlash bool

	// FlashPath is the would-be path for a flash-backed tier; retained
	// only so callers porting configuration from a flash-aware deployment
	// have somewhere to put it. Unused unless EnableFlash is set, in
	// which case construction fails regardless of this value.
	FlashPath string

	// SmallQueueSizeRatio (S3-FIFO only) sets the fraction of capacity
	// assigned to the small admission queue. A nil pointer leaves the
	// package default (0.1) in place; this is the only way to tell
	// "unset" apart from an explicit 0.
	SmallQueueSizeRatio *float64

	// SmallToMainThreshold (S3-FIFO only) sets the minimum frequency an
	// entry must reach to be promoted to main instead of ghosted. A nil
	// pointer leaves the package default (1) in place, so an explicit 0
	// (promote on first touch) is honored rather than silently replaced.
	SmallToMainThreshold *int8

	// ProtectedPercent (SLRU only) sets the percentage of capacity
	// reserved for the protected segment. A nil pointer leaves the
	// package default (80) in place, so an explicit 0 is honored rather
	// than silently replaced.
	ProtectedPercent *uint8
}

// Cache is the uniform interface every policy implementation satisfies.
type Cache[K comparable, V any] interface {
	// Get returns the value for key and true if it is resident and not
	// expired, or the zero value and false otherwise.
	Get(key K) (V, bool)

	// Set inserts or updates key with value. ttl optionally overrides the
	// cache's default TTL for this entry. Returns an error only if the
	// eviction callback returns one.
	Set(key K, value V, ttl ...time.Duration) error

	// Delete removes key, returning whether it was present. Never fires
	// the eviction callback.
	Delete(key K) bool

	// Contains reports whether key is currently resident, without
	// checking TTL expiry.
	Contains(key K) bool

	// Peek returns the value for key like Get, but never updates the
	// policy's recency/frequency bookkeeping (e.g. an LRU Peek does not
	// move key to the front).
	Peek(key K) (V, bool)

	// At returns the value for key, or cachecore.ErrKeyNotFound if
	// absent — distinct from Get, which returns a default.
	At(key K) (V, error)

	// Len returns the number of resident entries.
	Len() int

	// Clear removes every entry. Counters are not reset.
	Clear()

	// Keys, Values, and Items expose the resident entries in no
	// particular order.
	Keys() []K
	Values() []V
	Items() map[K]V

	// Stats returns a snapshot of the operation counters.
	Stats() Stats

	// SetEvictionCallback replaces the eviction callback.
	SetEvictionCallback(cb EvictionCallback[K, V])

	// Update bulk-inserts from items, stopping at the first error.
	Update(items map[K]V) error
}

// New constructs a Cache using the requested policy and capacity.
//
// Returns cachecore.ErrFlashUnsupported if cfg.EnableFlash is set, and
// cachecore.ErrUnknownPolicy for an unrecognized policy. Capacity
// validation is delegated to the chosen policy package, which returns
// cachecore.ErrInvalidCapacity for a zero capacity.
func New[K comparable, V any](policy Policy, capacity uint64, cfg Config[K, V]) (Cache[K, V], error) {
	if cfg.EnableFlash {
		return nil, cachecore.ErrFlashUnsupported
	}

	switch policy {
	case FIFO:
		opts := []fifo.Option[K, V]{fifo.WithDefaultTTL[K, V](cfg.DefaultTTL)}
		if cfg.OnEvict != nil {
			opts = append(opts, fifo.WithEvictionCallback[K, V](cfg.OnEvict))
		}

		c, err := fifo.New[K, V](capacity, opts...)
		if err != nil {
			return nil, err
		}

		return c, nil

	case LRU:
		opts := []lru.Option[K, V]{lru.WithDefaultTTL[K, V](cfg.DefaultTTL)}
		if cfg.OnEvict != nil {
			opts = append(opts, lru.WithEvictionCallback[K, V](cfg.OnEvict))
		}

		c, err := lru.New[K, V](capacity, opts...)
		if err != nil {
			return nil, err
		}

		return c, nil

	case Clock:
		opts := []clock.Option[K, V]{clock.WithDefaultTTL[K, V](cfg.DefaultTTL)}
		if cfg.OnEvict != nil {
			opts = append(opts, clock.WithEvictionCallback[K, V](cfg.OnEvict))
		}

		c, err := clock.New[K, V](capacity, opts...)
		if err != nil {
			return nil, err
		}

		return c, nil

	case S3FIFO:
		opts := []s3fifo.Option[K, V]{s3fifo.WithDefaultTTL[K, V](cfg.DefaultTTL)}
		if cfg.OnEvict != nil {
			opts = append(opts, s3fifo.WithEvictionCallback[K, V](cfg.OnEvict))
		}

		if cfg.SmallQueueSizeRatio != nil {
			opts = append(opts, s3fifo.WithSmallQueueSizeRatio[K, V](*cfg.SmallQueueSizeRatio))
		}

		if cfg.SmallToMainThreshold != nil {
			opts = append(opts, s3fifo.WithSmallToMainThreshold[K, V](*cfg.SmallToMainThreshold))
		}

		c, err := s3fifo.New[K, V](capacity, opts...)
		if err != nil {
			return nil, err
		}

		return c, nil

	case SLRU:
		opts := []slru.Option[K, V]{slru.WithDefaultTTL[K, V](cfg.DefaultTTL)}
		if cfg.OnEvict != nil {
			opts = append(opts, slru.WithEvictionCallback[K, V](cfg.OnEvict))
		}

		if cfg.ProtectedPercent != nil {
			opts = append(opts, slru.WithProtectedPercent[K, V](*cfg.ProtectedPercent))
		}

		c, err := slru.New[K, V](capacity, opts...)
		if err != nil {
			return nil, err
		}

		return c, nil

	default:
		return nil, cachecore.ErrUnknownPolicy
	}
}
