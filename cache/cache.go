// Package cache provides the shared result cache of the mapping runtime
// and the transactional layer that sits in front of it.
//
// A Cache is a dumb store addressed by composite Keys. Sessions never
// write to a shared cache directly: every write is staged in a TxBuffer
// and published by the session's TxManager when the transaction commits.
// Reads go straight to the shared cache, so uncommitted results of the
// current transaction are never served back to it.
package cache

// Cache is the shared cache SPI. Implementations own their concurrency;
// the runtime assumes nothing beyond these operations.
//
// A nil value is a legal entry: the transactional layer publishes nil
// markers to release per-key locks held by blocking decorators, and
// readers treat a nil value as a miss.
type Cache interface {
	ID() string
	Get(key Key) (any, bool)
	Put(key Key, value any)
	Remove(key Key)
	Clear()
	Size() int
}
