package embed

import (
	"container/list"
	"sync"
)

// lruCache is a small content-hash keyed LRU, new relative to the teacher
// (raggo ships no embedding cache); built as a generic ring+map rather than
// pulling in a cache library, since the whole thing is ~40 lines of
// container/list plumbing. Guarded by a mutex: batch embedding calls this
// concurrently from the errgroup worker pool, and Go maps panic on
// concurrent read+write, unlike the single-writer/racing-readers case
// spec.md §5 describes.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[[32]byte]*list.Element
}

type cacheEntry struct {
	key   [32]byte
	value []float32
}

func newLRUCache(capacity int) *lruCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &lruCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[[32]byte]*list.Element, capacity),
	}
}

func (c *lruCache) get(key [32]byte) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *lruCache) put(key [32]byte, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&cacheEntry{key: key, value: value})
	c.items[key] = el

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}
