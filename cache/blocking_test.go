package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockingDelegation(t *testing.T) {
	inner := NewPerpetual("users")
	b := NewBlocking(inner)
	k := buildKey(1)

	assert.Equal(t, "users", b.ID())

	b.Put(k, "v")
	v, ok := b.Get(k)
	require.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, 1, b.Size())

	b.Clear()
	assert.Equal(t, 0, b.Size())
}

func TestBlockingSecondReaderWaitsForPut(t *testing.T) {
	inner := NewPerpetual("users")
	b := NewBlocking(inner)
	k := buildKey(1)

	// first reader misses and now owns the key's latch
	_, ok := b.Get(k)
	require.False(t, ok)

	got := make(chan any, 1)
	var started sync.WaitGroup
	started.Add(1)
	go func() {
		started.Done()
		v, _ := b.Get(k)
		got <- v
	}()
	started.Wait()

	select {
	case <-got:
		t.Fatal("second reader should be blocked until the first publishes")
	case <-time.After(50 * time.Millisecond):
	}

	b.Put(k, "computed")

	select {
	case v := <-got:
		assert.Equal(t, "computed", v)
	case <-time.After(time.Second):
		t.Fatal("second reader never woke up")
	}
}

func TestBlockingRemoveReleasesLatch(t *testing.T) {
	inner := NewPerpetual("users")
	b := NewBlocking(inner)
	k := buildKey(1)

	_, ok := b.Get(k)
	require.False(t, ok)

	// rollback path: abandon the miss without publishing a value
	b.Remove(k)

	done := make(chan struct{})
	go func() {
		_, _ = b.Get(k)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("latch should have been released by Remove")
	}
}

func TestBlockingNilMarkerReleasesLatch(t *testing.T) {
	inner := NewPerpetual("users")
	b := NewBlocking(inner)
	k := buildKey(1)

	_, ok := b.Get(k)
	require.False(t, ok)

	// commit path for an unfilled miss publishes a nil marker
	b.Put(k, nil)

	// a later reader sees the marker as a miss and takes over the latch
	v, ok := b.Get(k)
	assert.True(t, ok)
	assert.Nil(t, v)

	b.Remove(k)
}

func TestBlockingWithTxBufferProtocol(t *testing.T) {
	inner := NewPerpetual("users")
	b := NewBlocking(inner)
	buf := NewTxBuffer(b, nil)
	k := buildKey(1)

	// the transaction misses; the latch is now held
	_, ok := buf.Get(k)
	require.False(t, ok)

	buf.Put(k, "rows")
	buf.Commit()

	// commit published the value, releasing the latch for other readers
	done := make(chan any, 1)
	go func() {
		v, _ := b.Get(k)
		done <- v
	}()

	select {
	case v := <-done:
		assert.Equal(t, "rows", v)
	case <-time.After(time.Second):
		t.Fatal("latch leaked across the transaction boundary")
	}
}

func TestBlockingGetTimeout(t *testing.T) {
	inner := NewPerpetual("users")
	b := NewBlocking(inner)
	b.SetTimeout(10 * time.Millisecond)
	k := buildKey(1)

	_, ok := b.Get(k)
	require.False(t, ok)

	assert.Panics(t, func() { b.Get(k) })

	b.Remove(k)
}
