// Package database is the row-source boundary between the executors and
// the concrete drivers. Adapters exist for database/sql handles, kept
// warm through a prepared-statement LRU, and for pgx/v5 pools.
package database

import "context"

// Rows is the streaming result surface. It matches *sql.Rows, so the
// database/sql adapter returns rows unwrapped.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Result reports the outcome of a write.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Queryer runs SQL. Direct handles and open transactions both implement
// it, so callers stay agnostic about transactionality.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
}

// Tx is an open database transaction.
type Tx interface {
	Queryer
	Commit() error
	Rollback() error
}

// DB is a database handle that can open transactions.
type DB interface {
	Queryer
	BeginTx(ctx context.Context) (Tx, error)
	PingContext(ctx context.Context) error
	Close() error
}
