package cache

import (
	"container/list"
	"sync"
)

// memoryCache is a byte-capped LRU. Entries larger than the cap are
// simply not cached.
type memoryCache struct {
	capacity int64

	mu     sync.Mutex
	size   int64
	items  map[string]*list.Element
	order  *list.List // front = most recently used
	hits   uint64
	misses uint64
}

type memoryEntry struct {
	id   string
	data []byte
}

func newMemoryCache(capacity int64) *memoryCache {
	return &memoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *memoryCache) get(id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[id]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return elem.Value.(*memoryEntry).data, true
}

func (c *memoryCache) put(id string, data []byte) {
	size := int64(len(data))
	if size == 0 || size > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[id]; ok {
		entry := elem.Value.(*memoryEntry)
		c.size += size - int64(len(entry.data))
		entry.data = data
		c.order.MoveToFront(elem)
		return
	}

	for c.size+size > c.capacity && c.order.Len() > 0 {
		c.evictOldest()
	}

	c.items[id] = c.order.PushFront(&memoryEntry{id: id, data: data})
	c.size += size
}

// evictOldest removes the least recently used entry. Caller holds mu.
func (c *memoryCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	entry := c.order.Remove(elem).(*memoryEntry)
	delete(c.items, entry.id)
	c.size -= int64(len(entry.data))
}

func (c *memoryCache) stats() LevelStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return LevelStats{
		Items:  len(c.items),
		Bytes:  c.size,
		Hits:   c.hits,
		Misses: c.misses,
	}
}
