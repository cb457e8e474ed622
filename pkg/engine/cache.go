package engine

import (
	"sync"
)

// DefaultCacheSize is the default number of cached distributions.
const DefaultCacheSize = 256

// cacheEntry stores one estimated distribution
type cacheEntry struct {
	key     StateKey
	distrib *HandsDistrib
}

// cacheNode holds primary and secondary entries for two-way associative cache
type cacheNode struct {
	primary   cacheEntry
	secondary cacheEntry
}

// DistribCache is a thread-safe cache of estimated hand distributions.
// Uses a two-way associative layout indexed by the state key hash.
type DistribCache struct {
	entries  []cacheNode
	size     uint32
	hashMask uint32

	// Statistics
	lookups uint64
	hits    uint64
	adds    uint64

	mu sync.Mutex
}

// NewDistribCache creates a new cache with the given size
// Size will be adjusted to the nearest power of 2 (at least 2)
func NewDistribCache(size uint32) *DistribCache {
	if size > 1<<20 {
		size = 1 << 20
	}

	// Find smallest power of 2 >= size
	p := uint32(2)
	for p < size {
		p <<= 1
	}
	size = p

	return &DistribCache{
		entries:  make([]cacheNode, size/2),
		size:     size,
		hashMask: (size / 2) - 1,
	}
}

// Size returns the number of entries the cache can hold.
func (c *DistribCache) Size() uint32 { return c.size }

// Flush clears all entries from the cache
func (c *DistribCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.lookups = 0
	c.hits = 0
	c.adds = 0
}

// Lookup returns the cached distribution for key, if any.
func (c *DistribCache) Lookup(key StateKey) (*HandsDistrib, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lookups++
	node := &c.entries[key.Hash()&c.hashMask]

	if node.primary.key.valid() && node.primary.key.Equal(key) {
		c.hits++
		return node.primary.distrib, true
	}
	if node.secondary.key.valid() && node.secondary.key.Equal(key) {
		// Promote to primary
		node.primary, node.secondary = node.secondary, node.primary
		c.hits++
		return node.primary.distrib, true
	}
	return nil, false
}

// Add stores a distribution, demoting the slot's primary entry.
func (c *DistribCache) Add(key StateKey, d *HandsDistrib) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &c.entries[key.Hash()&c.hashMask]
	if node.primary.key.valid() && node.primary.key.Equal(key) {
		node.primary.distrib = d
		return
	}
	node.secondary = node.primary
	node.primary = cacheEntry{key: key, distrib: d}
	c.adds++
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Size    uint32  `json:"size"`
	Lookups uint64  `json:"lookups"`
	Hits    uint64  `json:"hits"`
	Adds    uint64  `json:"adds"`
	HitRate float64 `json:"hit_rate"` // percent
}

// Stats returns cache statistics
func (c *DistribCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := CacheStats{Size: c.size, Lookups: c.lookups, Hits: c.hits, Adds: c.adds}
	if c.lookups > 0 {
		s.HitRate = float64(c.hits) / float64(c.lookups) * 100
	}
	return s
}
