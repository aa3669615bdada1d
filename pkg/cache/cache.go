// Package cache provides the bounded, concurrency-safe store projectors are
// kept in between builds.
//
// Entries are indexed by their key's 64-bit hash and verified with the key's
// Equal method on lookup, so two distinct keys that collide never return each
// other's value. Storage and eviction are delegated to ristretto (TinyLFU
// admission with sampled LFU eviction); every entry costs 1 and the cache
// holds at most Capacity entries.
package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/ajitpratap0/prism/pkg/errors"
)

// Key is a cache key. Equal keys must have equal hashes.
type Key[K any] interface {
	Hash() uint64
	Equal(other K) bool
}

// Value is a cached module together with the time it took to build.
type Value[V any] struct {
	Module    V
	BuildTime time.Duration
}

// Config sizes a cache.
type Config struct {
	// Capacity is the maximum number of entries.
	Capacity int64
	// Counters is the number of admission frequency counters. Zero means
	// ten per entry.
	Counters int64
	// Metrics enables hit, miss and eviction counting.
	Metrics bool
}

// Stats are cumulative cache counters. They are zero unless Config.Metrics
// is set.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Added   uint64
	Evicted uint64
}

type entry[K any, V any] struct {
	key   K
	value Value[V]
}

// Cache maps keys to built modules.
type Cache[K Key[K], V any] struct {
	store *ristretto.Cache
}

// New creates a cache.
func New[K Key[K], V any](cfg Config) (*Cache[K, V], error) {
	if cfg.Capacity <= 0 {
		return nil, errors.InvalidArgument("cache capacity must be positive, got %d", cfg.Capacity)
	}
	counters := cfg.Counters
	if counters <= 0 {
		counters = cfg.Capacity * 10
	}
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        counters,
		MaxCost:            cfg.Capacity,
		BufferItems:        64,
		Metrics:            cfg.Metrics,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create cache")
	}
	return &Cache[K, V]{store: store}, nil
}

// GetModule returns the module stored under key.
func (c *Cache[K, V]) GetModule(key K) (V, bool) {
	v, ok := c.GetEntry(key)
	return v.Module, ok
}

// GetEntry returns the module stored under key with its build time.
func (c *Cache[K, V]) GetEntry(key K) (Value[V], bool) {
	raw, ok := c.store.Get(key.Hash())
	if !ok {
		return Value[V]{}, false
	}
	e := raw.(*entry[K, V])
	if !e.key.Equal(key) {
		return Value[V]{}, false
	}
	return e.value, true
}

// PutModule stores value under key, replacing any previous value. The
// entry is visible to GetModule once PutModule returns unless the admission
// policy rejected it.
func (c *Cache[K, V]) PutModule(key K, value Value[V]) {
	c.store.Set(key.Hash(), &entry[K, V]{key: key, value: value}, 1)
	c.store.Wait()
}

// Remove deletes the entry stored under key.
func (c *Cache[K, V]) Remove(key K) {
	if _, ok := c.GetEntry(key); ok {
		c.store.Del(key.Hash())
	}
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.store.Clear()
}

// Stats returns the cumulative counters.
func (c *Cache[K, V]) Stats() Stats {
	m := c.store.Metrics
	return Stats{
		Hits:    m.Hits(),
		Misses:  m.Misses(),
		Added:   m.KeysAdded(),
		Evicted: m.KeysEvicted(),
	}
}

// Close stops the cache's background goroutines.
func (c *Cache[K, V]) Close() {
	c.store.Close()
}
