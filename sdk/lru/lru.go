package lru

import lru "github.com/hashicorp/golang-lru/v2"

// LRU is a fixed-size 2Q cache. It tracks recently and frequently used
// entries separately, so one pass over many records does not flush hot ones.
type LRU[K comparable, V any] struct {
	size int
	lru  *lru.TwoQueueCache[K, V]
}

func NewLRU[K comparable, V any](size int) (*LRU[K, V], error) {
	cache, err := lru.New2Q[K, V](size)
	if err != nil {
		return nil, err
	}

	return &LRU[K, V]{lru: cache, size: size}, nil
}

// Get returns the value for a key from the cache.
func (c *LRU[K, V]) Get(key K) (value V, ok bool) {
	return c.lru.Get(key)
}

// Add stores a key-value pair, evicting older entries when full.
func (c *LRU[K, V]) Add(key K, value V) {
	c.lru.Add(key, value)
}

// Remove evicts a key from the cache.
func (c *LRU[K, V]) Remove(key K) {
	c.lru.Remove(key)
}

// Contains reports whether key is cached without updating its recency.
func (c *LRU[K, V]) Contains(key K) bool {
	return c.lru.Contains(key)
}

// Purge drops every cached entry.
func (c *LRU[K, V]) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	return c.lru.Len()
}

// Size returns the capacity of the cache.
func (c *LRU[K, V]) Size() int {
	return c.size
}
