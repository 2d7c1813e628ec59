package sequence

import (
	"sort"
	"sync"
	"time"
)

// evictFraction is the share of entries removed when a cache fills.
// Evicting a batch keeps insertions from thrashing at the boundary.
const evictFraction = 5 // one fifth

// cacheEntry is one cached value with its bookkeeping.
type cacheEntry struct {
	value     any
	lastTouch time.Time

	// deps names the sequences and buttons this value was derived
	// from. Mutating any of them invalidates the entry.
	deps map[string]struct{}
}

// resultCache is a bounded cache with oldest-first batch eviction and
// dependency-aware invalidation. Recency is tracked per entry by last
// touch; when the cache fills, roughly the oldest fifth is dropped.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type resultCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*cacheEntry
	hits     int
	misses   int
}

// newResultCache creates a cache bounded to capacity entries.
func newResultCache(capacity int) *resultCache {
	if capacity < 1 {
		capacity = 1
	}
	return &resultCache{
		capacity: capacity,
		entries:  make(map[string]*cacheEntry),
	}
}

// get returns the cached value for key, refreshing its recency.
func (c *resultCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	entry.lastTouch = time.Now()
	c.hits++
	return entry.value, true
}

// put stores a value with its dependency set, evicting old entries if full.
func (c *resultCache) put(key string, value any, deps map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = &cacheEntry{
		value:     value,
		lastTouch: time.Now(),
		deps:      deps,
	}
}

// invalidate removes the entry keyed by name and every entry that
// depends on name.
func (c *resultCache) invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if key == name {
			delete(c.entries, key)
			continue
		}
		if _, ok := entry.deps[name]; ok {
			delete(c.entries, key)
		}
	}
}

// clear removes every entry. Counters are kept.
func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// len returns the number of cached entries.
func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// stats returns a snapshot of the cache counters.
func (c *resultCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:     c.hits,
		Misses:   c.misses,
		Size:     len(c.entries),
		Capacity: c.capacity,
	}
}

// evictOldestLocked drops the least recently touched fifth of the
// entries, at least one. Caller holds c.mu.
func (c *resultCache) evictOldestLocked() {
	type aged struct {
		key   string
		touch time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for key, entry := range c.entries {
		all = append(all, aged{key: key, touch: entry.lastTouch})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].touch.Before(all[j].touch) })

	count := len(all) / evictFraction
	if count < 1 {
		count = 1
	}
	for _, victim := range all[:count] {
		delete(c.entries, victim.key)
	}
}
