package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Konsultn-Engineering/enmap/cache"
	"github.com/Konsultn-Engineering/enmap/cursor"
	"github.com/Konsultn-Engineering/enmap/statement"
)

// CachingExecutor adds second-level caching around a base executor. Reads
// of cache-enabled statements are served from the statement's shared
// cache when possible; results and clears are staged in a TxManager and
// reach the shared cache only when the session commits.
type CachingExecutor struct {
	delegate Executor
	manager  *cache.TxManager
}

var _ Executor = (*CachingExecutor)(nil)

func NewCaching(delegate Executor, logger *slog.Logger) *CachingExecutor {
	return &CachingExecutor{delegate: delegate, manager: cache.NewTxManager(logger)}
}

func (e *CachingExecutor) Query(ctx context.Context, stmt *statement.Statement, param any, bounds statement.RowBounds, handler ResultHandler) ([]any, error) {
	bound, err := stmt.Source.BoundSQL(param)
	if err != nil {
		return nil, fmt.Errorf("executor: render %s: %w", stmt.ID, err)
	}
	return e.QueryBound(ctx, stmt, param, bounds, handler, bound)
}

func (e *CachingExecutor) QueryBound(ctx context.Context, stmt *statement.Statement, param any, bounds statement.RowBounds, handler ResultHandler, bound *statement.BoundSQL) ([]any, error) {
	if stmt.Cache != nil {
		e.flushIfRequired(stmt)
		if stmt.Cached() && handler == nil {
			if stmt.HasOutParams() {
				return nil, fmt.Errorf("executor: %s: caching statements with out-mode parameters is not supported", stmt.ID)
			}
			key := e.delegate.CreateKey(stmt, bounds, bound)
			if v, ok := e.manager.Get(stmt.Cache, key); ok {
				if rows, ok := v.([]any); ok {
					return rows, nil
				}
			}
			rows, err := e.delegate.QueryBound(ctx, stmt, param, bounds, nil, bound)
			if err != nil {
				return nil, err
			}
			e.manager.Put(stmt.Cache, key, rows)
			return rows, nil
		}
	}
	return e.delegate.QueryBound(ctx, stmt, param, bounds, handler, bound)
}

// QueryCursor is never cached; a cursor's rows are pulled lazily and
// cannot be replayed from a cache entry. A flushing statement still
// stages its clear.
func (e *CachingExecutor) QueryCursor(ctx context.Context, stmt *statement.Statement, param any, bounds statement.RowBounds) (*cursor.Cursor, error) {
	e.flushIfRequired(stmt)
	return e.delegate.QueryCursor(ctx, stmt, param, bounds)
}

func (e *CachingExecutor) Update(ctx context.Context, stmt *statement.Statement, param any) (int64, error) {
	e.flushIfRequired(stmt)
	return e.delegate.Update(ctx, stmt, param)
}

func (e *CachingExecutor) CreateKey(stmt *statement.Statement, bounds statement.RowBounds, bound *statement.BoundSQL) cache.Key {
	return e.delegate.CreateKey(stmt, bounds, bound)
}

// Commit commits the database work first and publishes staged cache
// entries only after that succeeds, so other sessions never read results
// of a transaction that failed to commit.
func (e *CachingExecutor) Commit() error {
	if err := e.delegate.Commit(); err != nil {
		return err
	}
	e.manager.CommitAll()
	return nil
}

// Rollback abandons staged cache entries even when the database rollback
// itself fails, so per-key locks recorded as misses are always released.
func (e *CachingExecutor) Rollback() error {
	defer e.manager.RollbackAll()
	return e.delegate.Rollback()
}

// Close finalizes the cache buffers, then closes the base executor. The
// base close is deferred so it runs no matter how buffer finalization
// goes.
func (e *CachingExecutor) Close(forceRollback bool) (err error) {
	defer func() {
		err = e.delegate.Close(forceRollback)
	}()
	if forceRollback {
		e.manager.RollbackAll()
	} else {
		e.manager.CommitAll()
	}
	return nil
}

func (e *CachingExecutor) Closed() bool { return e.delegate.Closed() }

// flushIfRequired stages a clear of the statement's cache. The shared
// cache is untouched until commit; reads through the manager observe the
// clear immediately.
func (e *CachingExecutor) flushIfRequired(stmt *statement.Statement) {
	if stmt.Cache != nil && stmt.FlushCache {
		e.manager.Clear(stmt.Cache)
	}
}
