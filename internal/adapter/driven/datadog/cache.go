package datadog

import (
	"container/list"
	"sync"

	"github.com/gregjones/httpcache"
)

// DefaultCacheEntries caps the number of responses kept by the event poll cache.
// Every poll asks for a new window, so only recent URLs are worth keeping.
const DefaultCacheEntries = 32

var _ httpcache.Cache = (*boundedCache)(nil)

// boundedCache is an httpcache.Cache that evicts the least recently used
// response once it holds more than limit entries.
type boundedCache struct {
	mu      sync.Mutex
	limit   int
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry struct {
	key  string
	resp []byte
}

func newBoundedCache(limit int) *boundedCache {
	if limit < 1 {
		limit = 1
	}
	return &boundedCache{
		limit:   limit,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (c *boundedCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).resp, true
}

func (c *boundedCache) Set(key string, resp []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).resp = resp
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, resp: resp})
	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *boundedCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

// Len reports the number of cached responses.
func (c *boundedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
