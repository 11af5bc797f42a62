package cache

import (
	"fmt"
	"sync"
	"time"
)

// Blocking decorates a cache so that only one caller at a time computes a
// missing entry. A Get that misses leaves a per-key latch in place; later
// readers of that key block until the first caller publishes a value, a
// nil marker, or a Remove for it. The transactional buffer's commit and
// rollback paths emit exactly those operations for every recorded miss,
// which is what keeps latches from leaking across transactions.
//
// Re-reading a missed key from the same goroutine before publishing
// deadlocks, as it would with any non-reentrant lock.
type Blocking struct {
	delegate Cache
	timeout  time.Duration

	mu      sync.Mutex
	latches map[Key]chan struct{}
}

var _ Cache = (*Blocking)(nil)

func NewBlocking(delegate Cache) *Blocking {
	return &Blocking{delegate: delegate, latches: make(map[Key]chan struct{})}
}

// SetTimeout bounds how long a Get waits on another caller's latch. Zero
// waits forever. A timed-out Get panics; the session's buffer fan-out
// isolates such failures.
func (b *Blocking) SetTimeout(d time.Duration) {
	b.timeout = d
}

func (b *Blocking) ID() string {
	return b.delegate.ID()
}

func (b *Blocking) Get(key Key) (any, bool) {
	b.acquire(key)
	v, ok := b.delegate.Get(key)
	if v != nil {
		b.release(key)
	}
	return v, ok
}

func (b *Blocking) Put(key Key, value any) {
	defer b.release(key)
	b.delegate.Put(key, value)
}

// Remove releases the key's latch without touching the delegate. Rollback
// uses it to abandon a miss this caller was responsible for filling.
func (b *Blocking) Remove(key Key) {
	b.release(key)
}

func (b *Blocking) Clear() {
	b.delegate.Clear()
}

func (b *Blocking) Size() int {
	return b.delegate.Size()
}

func (b *Blocking) acquire(key Key) {
	for {
		b.mu.Lock()
		latch, held := b.latches[key]
		if !held {
			b.latches[key] = make(chan struct{})
			b.mu.Unlock()
			return
		}
		b.mu.Unlock()
		if b.timeout > 0 {
			select {
			case <-latch:
			case <-time.After(b.timeout):
				panic(fmt.Sprintf("cache %s: timed out after %s waiting for key %s",
					b.delegate.ID(), b.timeout, key))
			}
		} else {
			<-latch
		}
	}
}

func (b *Blocking) release(key Key) {
	b.mu.Lock()
	latch, held := b.latches[key]
	if held {
		delete(b.latches, key)
	}
	b.mu.Unlock()
	if held {
		close(latch)
	}
}
