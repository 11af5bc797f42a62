package database

import (
	"context"
	"database/sql"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultStmtCacheSize = 256

// Fingerprint keys a SQL text for statement caching.
func Fingerprint(query string) uint64 {
	return xxhash.Sum64String(query)
}

// StmtCache keeps prepared statements warm across executions, keyed by
// the fingerprint of their SQL text. Evicted and purged statements are
// closed.
type StmtCache struct {
	cache *lru.Cache[uint64, *sql.Stmt]
	mu    sync.RWMutex
}

func NewStmtCache(size int) *StmtCache {
	if size <= 0 {
		size = defaultStmtCacheSize
	}
	cache, _ := lru.NewWithEvict(size, func(_ uint64, stmt *sql.Stmt) {
		stmt.Close()
	})
	return &StmtCache{cache: cache}
}

// GetOrPrepare returns the cached statement for query, preparing and
// caching it on first sight.
func (s *StmtCache) GetOrPrepare(ctx context.Context, db *sql.DB, query string) (*sql.Stmt, error) {
	key := Fingerprint(query)

	s.mu.RLock()
	if stmt, ok := s.cache.Get(key); ok {
		s.mu.RUnlock()
		return stmt, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// double-check after acquiring the write lock
	if stmt, ok := s.cache.Get(key); ok {
		return stmt, nil
	}

	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, stmt)
	return stmt, nil
}

func (s *StmtCache) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Len()
}

// Close releases every cached statement.
func (s *StmtCache) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
	return nil
}
