package lazy

import (
	"container/list"
	"sync"

	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/metrics"
)

// scanCache memoizes scan results across collects, keyed by source
// path plus the scan options that shaped the result. Bounded LRU:
// inserting past capacity evicts the least recently used entry.
// Cached frames are safe to share because chunks are immutable.
type scanCache struct {
	mu      sync.Mutex
	max     int
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry struct {
	key string
	df  *frame.DataFrame
}

func newScanCache(maxEntries int) *scanCache {
	return &scanCache{
		max:     maxEntries,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns a shared handle on the cached frame for key, marking it
// most recently used. Handing out shared handles keeps the cached copy
// safe: an in-place mutation through the returned frame fails with
// ConcurrentBorrow rather than rewriting the cache.
func (c *scanCache) Get(key string) (*frame.DataFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		metrics.ScanCacheMisses.Inc()
		return nil, false
	}
	c.order.MoveToFront(el)
	metrics.ScanCacheHits.Inc()
	return el.Value.(*cacheEntry).df.Share(), true
}

// Put stores df under key, evicting the oldest entry when full.
func (c *scanCache) Put(key string, df *frame.DataFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).df = df
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, df: df})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// InvalidatePrefix drops every entry whose key starts with prefix.
// Scan keys start with the source path, so invalidating a path drops
// all cached variants of that file.
func (c *scanCache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Front(); el != nil; {
		next := el.Next()
		ent := el.Value.(*cacheEntry)
		if len(ent.key) >= len(prefix) && ent.key[:len(prefix)] == prefix {
			c.order.Remove(el)
			delete(c.entries, ent.key)
		}
		el = next
	}
}

// Clear drops every entry.
func (c *scanCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
}

// Len returns the number of cached entries.
func (c *scanCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
