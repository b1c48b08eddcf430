package fifo_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/srhnsn/evictcache/fifo"
	"github.com/srhnsn/evictcache/internal/cachecore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFIFO[K comparable, V any](t *testing.T, capacity uint64, opts ...fifo.Option[K, V]) *fifo.Cache[K, V] {
	t.Helper()

	c, err := fifo.New[K, V](capacity, opts...)
	require.NoError(t, err)

	return c
}

func TestFIFOCache_GetEmpty(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)

	v, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
}

func TestFIFOCache_SetAndGet(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)
	require.NoError(t, c.Set("foo", 42))

	v, ok := c.Get("foo")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestFIFOCache_UpdateExistingKey(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)
	require.NoError(t, c.Set("key", 100))
	require.NoError(t, c.Set("key", 200))

	v, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, 200, v)
}

func TestFIFOCache_EvictionOrder(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Access "a" - should NOT prevent eviction in FIFO
	c.Get("a")

	// Add new item - should evict "a" (oldest)
	c.Set("d", 4)

	_, ok := c.Get("a")
	assert.False(t, ok, "expected 'a' to be evicted (FIFO ignores access)")

	// b, c, d should exist
	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = c.Get("d")
	require.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestFIFOCache_Peek(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)
	c.Set("a", 1)

	v, ok := c.Peek("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestFIFOCache_PeekNonExistent(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)

	v, ok := c.Peek("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
}

func TestFIFOCache_Delete(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)
	c.Set("a", 1)
	c.Set("b", 2)

	ok := c.Delete("a")
	assert.True(t, ok)

	_, exists := c.Get("a")
	assert.False(t, exists)

	v, exists := c.Get("b")
	require.True(t, exists)
	assert.Equal(t, 2, v)
}

func TestFIFOCache_DeleteNonExistent(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)

	ok := c.Delete("missing")
	assert.False(t, ok)
}

func TestFIFOCache_DeleteAndEvict(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Delete "a" (oldest)
	c.Delete("a")

	// Add two more items
	c.Set("d", 4)
	c.Set("e", 5)

	// "b" should now be evicted (it's the oldest remaining)
	_, ok := c.Get("b")
	assert.False(t, ok, "expected 'b' to be evicted")

	// c, d, e should exist
	_, ok = c.Get("c")
	assert.True(t, ok)

	_, ok = c.Get("d")
	assert.True(t, ok)

	_, ok = c.Get("e")
	assert.True(t, ok)
}

func TestFIFOCache_Len(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)

	assert.Equal(t, 0, c.Len())

	c.Set("a", 1)
	assert.Equal(t, 1, c.Len())

	c.Set("b", 2)
	c.Set("c", 3)
	assert.Equal(t, 3, c.Len())

	c.Delete("b")
	assert.Equal(t, 2, c.Len())
}

func TestFIFOCache_LenAtCapacity(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	assert.Equal(t, 3, c.Len())

	c.Set("d", 4)
	assert.Equal(t, 3, c.Len())
}

func TestFIFOCache_CapacityOne(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 1)
	c.Set("a", 1)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("b", 2)
	assert.Equal(t, 1, c.Len())

	_, ok = c.Get("a")
	assert.False(t, ok)

	v, ok = c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestFIFOCache_MultipleTypes(t *testing.T) {
	t.Parallel()

	c := newFIFO[int, string](t, 10)
	c.Set(1, "one")
	c.Set(2, "two")

	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "one", v)

	v, ok = c.Get(2)
	require.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestFIFOCache_InvalidCapacity(t *testing.T) {
	t.Parallel()

	_, err := fifo.New[string, int](0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cachecore.ErrInvalidCapacity))
}

func TestFIFOCache_TTLExpiry(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)
	require.NoError(t, c.Set("a", 1, time.Millisecond))

	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok, "expected expired entry to be absent")
}

func TestFIFOCache_DefaultTTL(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10, fifo.WithDefaultTTL[string, int](time.Millisecond))
	require.NoError(t, c.Set("a", 1))

	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestFIFOCache_NeverExpiresByDefault(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)
	require.NoError(t, c.Set("a", 1))

	time.Sleep(5 * time.Millisecond)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestFIFOCache_EvictionCallback(t *testing.T) {
	t.Parallel()

	var evicted []string

	c := newFIFO[string, int](t, 2, fifo.WithEvictionCallback(func(key string, value int) error {
		evicted = append(evicted, key)

		return nil
	}))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	assert.Equal(t, []string{"a"}, evicted)
}

func TestFIFOCache_EvictionCallbackError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	c := newFIFO[string, int](t, 1, fifo.WithEvictionCallback(func(key string, value int) error {
		return boom
	}))

	c.Set("a", 1)
	err := c.Set("b", 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestFIFOCache_AtMissing(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)

	_, err := c.At("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cachecore.ErrKeyNotFound))
}

func TestFIFOCache_ContainsIgnoresExpiry(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)
	c.Set("a", 1, time.Millisecond)

	time.Sleep(5 * time.Millisecond)

	assert.True(t, c.Contains("a"))
}

func TestFIFOCache_Stats(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 1)
	c.Set("a", 1)
	c.Set("b", 2) // evicts a

	c.Get("b") // hit
	c.Get("a") // miss

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Puts)
	assert.Equal(t, uint64(2), stats.Gets)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Evictions)
}

func TestFIFOCache_KeysValuesItems(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)
	c.Set("a", 1)
	c.Set("b", 2)

	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
	assert.ElementsMatch(t, []int{1, 2}, c.Values())
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, c.Items())
}

func TestFIFOCache_Clear(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()
	assert.Equal(t, 0, c.Len())

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestFIFOCache_Update(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 10)
	require.NoError(t, c.Update(map[string]int{"a": 1, "b": 2}))

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestFIFOCache_DeleteMiddleItem(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 5)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Set("d", 4)
	c.Set("e", 5)

	// Delete middle item
	ok := c.Delete("c")
	assert.True(t, ok)
	assert.Equal(t, 4, c.Len())

	// Add new item - should not evict since we have room
	c.Set("f", 6)
	assert.Equal(t, 5, c.Len())

	// "a" should still exist as oldest
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestFIFOCache_DeleteHeadAndTail(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 3)
	c.Set("a", 1) // oldest (tail)
	c.Set("b", 2)
	c.Set("c", 3) // newest (head)

	// Delete oldest
	c.Delete("a")
	assert.Equal(t, 2, c.Len())

	// Delete newest
	c.Delete("c")
	assert.Equal(t, 1, c.Len())

	// Only "b" should remain
	_, ok := c.Get("a")
	assert.False(t, ok)

	_, ok = c.Get("c")
	assert.False(t, ok)

	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

// Concurrency tests

func TestFIFOCache_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	c := newFIFO[int, int](t, 100)

	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				c.Set(id*100+j, j)
			}
		}(i)
	}

	wg.Wait()
}

func TestFIFOCache_ConcurrentReadsAndWrites(t *testing.T) {
	t.Parallel()

	c := newFIFO[string, int](t, 100)

	for i := range 50 {
		c.Set(fmt.Sprintf("key%d", i), i)
	}

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 100 {
				c.Set(fmt.Sprintf("writer%d-key%d", id, j), j)
			}
		}(i)
	}

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := range 100 {
				c.Get(fmt.Sprintf("key%d", j%50))
			}
		}()
	}

	wg.Wait()
}

func TestFIFOCache_ConcurrentDelete(t *testing.T) {
	t.Parallel()

	c := newFIFO[int, int](t, 100)

	for i := range 100 {
		c.Set(i, i)
	}

	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := range 100 {
				c.Delete(j)
			}
		}()
	}

	wg.Wait()
}

func TestFIFOCache_ConcurrentLen(t *testing.T) {
	t.Parallel()

	c := newFIFO[int, int](t, 100)

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := range 50 {
				c.Set(id*50+j, j)
				c.Len()
			}
		}(i)
	}

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				c.Len()
			}
		}()
	}

	wg.Wait()
}
