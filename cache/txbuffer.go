package cache

import "log/slog"

// TxBuffer stages writes to one shared cache until the owning transaction
// resolves. Reads pass through to the shared cache, so entries staged by
// the current transaction are deliberately invisible to it; a re-read of
// a just-staged key re-executes the statement instead.
//
// The buffer also records every miss it observes. On commit, missed keys
// that gained no staged value are published as nil markers, and on
// rollback they are removed; either way a blocking decorator's per-key
// latch is released.
type TxBuffer struct {
	shared        Cache
	clearOnCommit bool
	pending       map[Key]any
	missed        map[Key]struct{}
	logger        *slog.Logger
}

func NewTxBuffer(shared Cache, logger *slog.Logger) *TxBuffer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TxBuffer{
		shared:  shared,
		pending: make(map[Key]any),
		missed:  make(map[Key]struct{}),
		logger:  logger,
	}
}

// Get reads the shared cache directly. A pending clear masks every read
// for the rest of the transaction.
func (t *TxBuffer) Get(key Key) (any, bool) {
	v, _ := t.shared.Get(key)
	if v == nil {
		t.missed[key] = struct{}{}
	}
	if t.clearOnCommit || v == nil {
		return nil, false
	}
	return v, true
}

// Put stages a value for publication at commit.
func (t *TxBuffer) Put(key Key, value any) {
	t.pending[key] = value
}

// Clear wipes the staged puts and flags the shared cache to be cleared
// when the transaction commits. Nothing touches the shared cache yet.
func (t *TxBuffer) Clear() {
	t.clearOnCommit = true
	t.pending = make(map[Key]any)
}

// Commit applies the transaction's outcome to the shared cache: the
// deferred clear first, then the staged puts, then nil markers for the
// misses that gained no value. The buffer is reset for reuse.
func (t *TxBuffer) Commit() {
	if t.clearOnCommit {
		t.shared.Clear()
	}
	t.flushPending()
	t.reset()
}

// Rollback releases every recorded miss and resets the buffer. Staged
// puts are dropped without ever reaching the shared cache.
func (t *TxBuffer) Rollback() {
	t.unlockMissed()
	t.reset()
}

func (t *TxBuffer) flushPending() {
	for k, v := range t.pending {
		t.shared.Put(k, v)
	}
	for k := range t.missed {
		if _, staged := t.pending[k]; !staged {
			t.shared.Put(k, nil)
		}
	}
}

func (t *TxBuffer) unlockMissed() {
	for k := range t.missed {
		t.removeQuietly(k)
	}
}

// removeQuietly swallows anything a misbehaving cache implementation
// throws while miss locks are being released; rollback must reach every
// recorded key.
func (t *TxBuffer) removeQuietly(key Key) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("failed to release missed cache entry on rollback",
				slog.String("cache", t.shared.ID()),
				slog.String("key", key.String()),
				slog.Any("cause", r))
		}
	}()
	t.shared.Remove(key)
}

func (t *TxBuffer) reset() {
	t.clearOnCommit = false
	t.pending = make(map[Key]any)
	t.missed = make(map[Key]struct{})
}
