package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManagerLazyBuffers(t *testing.T) {
	m := NewTxManager(nil)
	users := NewPerpetual("users")
	orders := NewPerpetual("orders")

	assert.Empty(t, m.buffers)

	m.Put(users, buildKey(1), "u1")
	assert.Len(t, m.buffers, 1)

	m.Put(orders, buildKey(1), "o1")
	assert.Len(t, m.buffers, 2)

	// touching the same cache again reuses its buffer
	m.Put(users, buildKey(2), "u2")
	assert.Len(t, m.buffers, 2)
}

func TestTxManagerCommitFansOut(t *testing.T) {
	m := NewTxManager(nil)
	users := NewPerpetual("users")
	orders := NewPerpetual("orders")

	m.Put(users, buildKey(1), "u1")
	m.Put(orders, buildKey(1), "o1")
	m.CommitAll()

	v, ok := users.Get(buildKey(1))
	require.True(t, ok)
	assert.Equal(t, "u1", v)

	v, ok = orders.Get(buildKey(1))
	require.True(t, ok)
	assert.Equal(t, "o1", v)
}

func TestTxManagerRollbackFansOut(t *testing.T) {
	m := NewTxManager(nil)
	users := NewPerpetual("users")
	orders := NewPerpetual("orders")

	_, _ = m.Get(users, buildKey(1))
	_, _ = m.Get(orders, buildKey(2))

	users.Put(buildKey(1), "filled-behind-us")
	orders.Put(buildKey(2), "filled-behind-us")

	m.RollbackAll()

	_, ok := users.Get(buildKey(1))
	assert.False(t, ok)
	_, ok = orders.Get(buildKey(2))
	assert.False(t, ok)
}

func TestTxManagerIsolatesBufferFailures(t *testing.T) {
	m := NewTxManager(nil)
	bad := &faultyCache{Cache: NewPerpetual("bad"), panicOnPut: true}
	good := NewPerpetual("good")

	m.Put(bad, buildKey(1), "x")
	m.Put(good, buildKey(1), "y")

	assert.NotPanics(t, func() { m.CommitAll() })

	// the healthy cache still got its entry
	v, ok := good.Get(buildKey(1))
	require.True(t, ok)
	assert.Equal(t, "y", v)
}

func TestTxManagerClearIsTransactional(t *testing.T) {
	m := NewTxManager(nil)
	users := NewPerpetual("users")
	users.Put(buildKey("stale"), "old")

	m.Clear(users)

	_, ok := users.Get(buildKey("stale"))
	assert.True(t, ok)

	m.CommitAll()

	_, ok = users.Get(buildKey("stale"))
	assert.False(t, ok)
}
