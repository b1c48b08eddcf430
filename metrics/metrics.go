// Package metrics wraps an evictcache.Cache with transparent Prometheus
// instrumentation: hit/miss counters, set/delete/eviction counters, a size
// gauge, and an operation-latency histogram.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/srhnsn/evictcache"
	"github.com/srhnsn/evictcache/internal/obslog"
)

// latencyBuckets are skewed toward sub-millisecond ranges since cache
// lookups are typically fast.
var latencyBuckets = []float64{
	0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5,
}

// InstrumentedCache wraps an evictcache.Cache, recording Prometheus metrics
// for every Get/Set/Delete/Clear call. Its Prometheus metrics are kept
// separately from the wrapped cache's own evictcache.Cache.Stats counters.
type InstrumentedCache[K comparable, V any] struct {
	inner evictcache.Cache[K, V]

	hits, misses, sets, deletes, evictions prometheus.Counter
	size                                   prometheus.Gauge
	latency                                prometheus.Histogram
}

// NewInstrumentedCache wraps inner with Prometheus metrics registered under
// the given namespace, using name as the metric name prefix. It replaces
// inner's eviction callback with one that only increments the evictions
// counter: a callback set on inner before wrapping is discarded, and one
// set on inner afterwards replaces the counting callback.
//
// Metrics registered:
//
//   - <name>_hits_total                 (counter)
//   - <name>_misses_total               (counter)
//   - <name>_sets_total                 (counter)
//   - <name>_deletes_total              (counter)
//   - <name>_evictions_total            (counter)
//   - <name>_size                       (gauge)
//   - <name>_operation_duration_seconds (histogram)
func NewInstrumentedCache[K comparable, V any](reg *prometheus.Registry, namespace, name string, inner evictcache.Cache[K, V]) *InstrumentedCache[K, V] {
	ic := &InstrumentedCache[K, V]{
		inner: inner,
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: name + "_hits_total", Help: "Total number of cache hits.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: name + "_misses_total", Help: "Total number of cache misses.",
		}),
		sets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: name + "_sets_total", Help: "Total number of cache set operations.",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: name + "_deletes_total", Help: "Total number of cache delete operations.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: name + "_evictions_total", Help: "Total number of cache evictions.",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: name + "_size", Help: "Current number of resident items.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: name + "_operation_duration_seconds",
			Help: "Duration of cache operations in seconds.", Buckets: latencyBuckets,
		}),
	}

	reg.MustRegister(ic.hits, ic.misses, ic.sets, ic.deletes, ic.evictions, ic.size, ic.latency)
	obslog.Default.Debugf("metrics: registered cache instrumentation %s_%s", namespace, name)

	inner.SetEvictionCallback(func(K, V) error {
		ic.evictions.Inc()

		return nil
	})

	ic.size.Set(float64(inner.Len()))

	return ic
}

// Inner returns the wrapped cache, for callers that need direct access to
// methods InstrumentedCache does not wrap. Calls made through it are not
// recorded in the metrics.
func (ic *InstrumentedCache[K, V]) Inner() evictcache.Cache[K, V] {
	return ic.inner
}

// Get retrieves a value, recording a hit or miss and observing latency.
func (ic *InstrumentedCache[K, V]) Get(key K) (V, bool) {
	start := time.Now()
	value, found := ic.inner.Get(key)
	ic.latency.Observe(time.Since(start).Seconds())

	if found {
		ic.hits.Inc()
	} else {
		ic.misses.Inc()
	}

	return value, found
}

// Set inserts or updates key, recording a set operation, latency, and the
// updated size.
func (ic *InstrumentedCache[K, V]) Set(key K, value V, ttl ...time.Duration) error {
	start := time.Now()
	err := ic.inner.Set(key, value, ttl...)
	ic.latency.Observe(time.Since(start).Seconds())

	ic.sets.Inc()
	ic.size.Set(float64(ic.inner.Len()))

	return err
}

// Delete removes key, recording a delete operation and the updated size.
func (ic *InstrumentedCache[K, V]) Delete(key K) bool {
	ok := ic.inner.Delete(key)
	ic.deletes.Inc()
	ic.size.Set(float64(ic.inner.Len()))

	return ok
}

// Len returns the current number of resident entries.
func (ic *InstrumentedCache[K, V]) Len() int {
	return ic.inner.Len()
}

// Clear removes every entry and resets the size gauge to 0.
func (ic *InstrumentedCache[K, V]) Clear() {
	ic.inner.Clear()
	ic.size.Set(0)
}
