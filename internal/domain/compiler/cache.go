package compiler

import "sync"

// bundleCache keeps the most recently stored bundles up to a fixed size.
// Eviction is first-in first-out.
type bundleCache struct {
	mu    sync.Mutex
	size  int
	order []string
	items map[string]*Bundle
}

func newBundleCache(size int) *bundleCache {
	return &bundleCache{
		size:  size,
		items: make(map[string]*Bundle),
	}
}

func (c *bundleCache) get(key string) (*Bundle, bool) {
	if c.size <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.items[key]
	return b, ok
}

func (c *bundleCache) put(key string, b *Bundle) {
	if c.size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; ok {
		c.items[key] = b
		return
	}
	for len(c.order) >= c.size {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.order = append(c.order, key)
	c.items[key] = b
}

func (c *bundleCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
