package cache

import "log/slog"

// TxManager owns the transactional buffers of one session: one TxBuffer
// per distinct shared cache, created the first time a statement touches
// that cache. Like the session itself it is confined to one goroutine.
type TxManager struct {
	buffers map[Cache]*TxBuffer
	logger  *slog.Logger
}

func NewTxManager(logger *slog.Logger) *TxManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TxManager{buffers: make(map[Cache]*TxBuffer), logger: logger}
}

func (m *TxManager) buffer(c Cache) *TxBuffer {
	b, ok := m.buffers[c]
	if !ok {
		b = NewTxBuffer(c, m.logger)
		m.buffers[c] = b
	}
	return b
}

func (m *TxManager) Get(c Cache, key Key) (any, bool) {
	return m.buffer(c).Get(key)
}

func (m *TxManager) Put(c Cache, key Key, value any) {
	m.buffer(c).Put(key, value)
}

func (m *TxManager) Clear(c Cache) {
	m.buffer(c).Clear()
}

// CommitAll resolves every buffer. A failure inside one shared cache is
// logged and contained so the remaining buffers still resolve.
func (m *TxManager) CommitAll() {
	for c, b := range m.buffers {
		m.finalize(c, b.Commit, "commit")
	}
}

// RollbackAll abandons every buffer, releasing recorded misses.
func (m *TxManager) RollbackAll() {
	for c, b := range m.buffers {
		m.finalize(c, b.Rollback, "rollback")
	}
}

func (m *TxManager) finalize(c Cache, op func(), action string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("cache buffer finalization failed",
				slog.String("cache", c.ID()),
				slog.String("action", action),
				slog.Any("cause", r))
		}
	}()
	op()
}
