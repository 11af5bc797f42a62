package cache

import "sync"

// Perpetual is the default shared cache: an unbounded map guarded by a
// read-write mutex. Entries live until a write statement flushes them.
type Perpetual struct {
	id   string
	mu   sync.RWMutex
	data map[Key]any
}

var _ Cache = (*Perpetual)(nil)

func NewPerpetual(id string) *Perpetual {
	return &Perpetual{id: id, data: make(map[Key]any)}
}

func (c *Perpetual) ID() string {
	return c.id
}

func (c *Perpetual) Get(key Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *Perpetual) Put(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func (c *Perpetual) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

func (c *Perpetual) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[Key]any)
}

func (c *Perpetual) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
