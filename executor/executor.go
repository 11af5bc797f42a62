// Package executor runs mapped statements against a database. The
// SimpleExecutor is the base: it renders a statement's SQL, runs it
// through database.Queryer inside a lazily opened transaction and maps
// the result rows. CachingExecutor wraps a base executor with the shared
// second-level cache, staging every cache write in a cache.TxManager so
// it publishes only when the session commits.
//
// Executors are session-scoped and confined to one goroutine.
package executor

import (
	"context"
	"errors"

	"github.com/Konsultn-Engineering/enmap/cache"
	"github.com/Konsultn-Engineering/enmap/cursor"
	"github.com/Konsultn-Engineering/enmap/statement"
)

// ErrClosed is returned when an operation reaches an executor that has
// already been closed.
var ErrClosed = errors.New("executor: closed")

// ResultContext carries one mapped row to a ResultHandler. The same
// context is reused for every row of a result set; handlers must not
// retain it across calls.
type ResultContext struct {
	value   any
	count   int
	stopped bool
}

// Value is the mapped row being delivered.
func (rc *ResultContext) Value() any { return rc.value }

// Count is the number of rows delivered so far, this one included.
func (rc *ResultContext) Count() int { return rc.count }

// Stop ends delivery after the current row.
func (rc *ResultContext) Stop() { rc.stopped = true }

func (rc *ResultContext) Stopped() bool { return rc.stopped }

// ResultHandler receives mapped rows as they stream out of a query.
// Supplying one suppresses the materialized result slice.
type ResultHandler interface {
	Handle(rc *ResultContext)
}

// HandlerFunc adapts a plain function to the ResultHandler interface.
type HandlerFunc func(rc *ResultContext)

func (f HandlerFunc) Handle(rc *ResultContext) { f(rc) }

// Executor is the execution surface a session drives. Query renders the
// statement for the given parameter and runs it; QueryBound runs SQL that
// was already rendered, which lets a caching layer render once, derive
// its key, and still delegate on a miss without rendering again.
type Executor interface {
	Query(ctx context.Context, stmt *statement.Statement, param any, bounds statement.RowBounds, handler ResultHandler) ([]any, error)
	QueryBound(ctx context.Context, stmt *statement.Statement, param any, bounds statement.RowBounds, handler ResultHandler, bound *statement.BoundSQL) ([]any, error)
	QueryCursor(ctx context.Context, stmt *statement.Statement, param any, bounds statement.RowBounds) (*cursor.Cursor, error)
	Update(ctx context.Context, stmt *statement.Statement, param any) (int64, error)

	// CreateKey derives the cache key identifying one execution of the
	// rendered statement under the given bounds.
	CreateKey(stmt *statement.Statement, bounds statement.RowBounds, bound *statement.BoundSQL) cache.Key

	Commit() error
	Rollback() error

	// Close releases the executor. An open database transaction is
	// discarded; forceRollback additionally tells decorators to abandon
	// work they staged on their own.
	Close(forceRollback bool) error
	Closed() bool
}
