package playerjs

import (
	"sync"
	"time"
)

// Cache stores derived transforms keyed by player script URL, so sessions
// sharing one player version do not re-derive the transform.
type Cache interface {
	Get(scriptURL string) (*Transform, bool)
	Set(scriptURL string, t *Transform)
}

type memoryCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
}

type cacheItem struct {
	transform *Transform
	createdAt time.Time
}

func NewMemoryCache() Cache {
	return &memoryCache{
		items: make(map[string]cacheItem),
	}
}

func (c *memoryCache) Get(scriptURL string) (*Transform, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[scriptURL]
	if !ok {
		return nil, false
	}
	return item.transform, true
}

func (c *memoryCache) Set(scriptURL string, t *Transform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[scriptURL] = cacheItem{
		transform: t,
		createdAt: time.Now(),
	}
}
