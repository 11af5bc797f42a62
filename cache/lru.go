package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a bounded shared cache. Entries evicted by capacity pressure just
// disappear; the transactional protocol tolerates that the same way it
// tolerates a concurrent flush.
type LRU struct {
	id    string
	cache *lru.Cache[Key, any]
}

var _ Cache = (*LRU)(nil)

func NewLRU(id string, size int) (*LRU, error) {
	c, err := lru.New[Key, any](size)
	if err != nil {
		return nil, err
	}
	return &LRU{id: id, cache: c}, nil
}

func (c *LRU) ID() string {
	return c.id
}

func (c *LRU) Get(key Key) (any, bool) {
	return c.cache.Get(key)
}

func (c *LRU) Put(key Key, value any) {
	c.cache.Add(key, value)
}

func (c *LRU) Remove(key Key) {
	c.cache.Remove(key)
}

func (c *LRU) Clear() {
	c.cache.Purge()
}

func (c *LRU) Size() int {
	return c.cache.Len()
}
