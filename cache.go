package jsonbuild

import "sync"

// pathCacheCapacity bounds the compiled-path cache. Builders tend to reuse a
// small set of path shapes, so a few hundred entries cover hot loops.
const pathCacheCapacity = 256

// pathCache caches compiled paths keyed by their source string. Reads take a
// shared lock so concurrent Add calls on different trees do not contend.
// Eviction drops the oldest inserted entry.
type lruCache struct {
	capacity int
	items    map[string]Path
	order    []string
	mutex    sync.RWMutex
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		items:    make(map[string]Path),
		order:    make([]string, 0, capacity),
	}
}

func (c *lruCache) get(key string) (Path, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	p, ok := c.items[key]
	return p, ok
}

func (c *lruCache) set(key string, p Path) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.items[key]; !exists {
		if len(c.items) >= c.capacity {
			delete(c.items, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, key)
	}
	c.items[key] = p
}

var pathCache = newLRUCache(pathCacheCapacity)

// compilePath parses a path, consulting the cache first. Compiled paths are
// immutable, so handing the same Path to concurrent callers is safe.
func compilePath(s string) (Path, error) {
	if p, ok := pathCache.get(s); ok {
		return p, nil
	}
	p, err := ParsePath(s)
	if err != nil {
		return Path{}, err
	}
	pathCache.set(s, p)
	return p, nil
}
