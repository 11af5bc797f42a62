package database

import (
	"context"
	"database/sql"
)

// SQLDatabase adapts a *sql.DB. Statements are prepared through the
// shared StmtCache; transactional executions rebind the cached statement
// to the transaction's connection.
type SQLDatabase struct {
	db    *sql.DB
	stmts *StmtCache
}

var _ DB = (*SQLDatabase)(nil)

func NewSQLDatabase(db *sql.DB) *SQLDatabase {
	return &SQLDatabase{db: db, stmts: NewStmtCache(defaultStmtCacheSize)}
}

// NewSQLDatabaseSize sizes the prepared-statement cache explicitly.
func NewSQLDatabaseSize(db *sql.DB, stmtCacheSize int) *SQLDatabase {
	return &SQLDatabase{db: db, stmts: NewStmtCache(stmtCacheSize)}
}

// Unwrap exposes the underlying handle for pool tuning.
func (s *SQLDatabase) Unwrap() *sql.DB { return s.db }

func (s *SQLDatabase) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	stmt, err := s.stmts.GetOrPrepare(ctx, s.db, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SQLDatabase) ExecContext(ctx context.Context, query string, args ...any) (Result, error) {
	stmt, err := s.stmts.GetOrPrepare(ctx, s.db, query)
	if err != nil {
		return nil, err
	}
	return stmt.ExecContext(ctx, args...)
}

func (s *SQLDatabase) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &SQLTx{tx: tx, owner: s}, nil
}

func (s *SQLDatabase) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the cached statements and the handle itself.
func (s *SQLDatabase) Close() error {
	s.stmts.Close()
	return s.db.Close()
}

// SQLTx adapts *sql.Tx. Queries go through the owner's statement cache
// via Tx.StmtContext, so prepared plans are reused inside transactions.
// Preparing SQL the cache has not seen borrows a second pool connection
// while the transaction holds one, so the pool must allow at least two.
type SQLTx struct {
	tx    *sql.Tx
	owner *SQLDatabase
}

var _ Tx = (*SQLTx)(nil)

func (t *SQLTx) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	stmt, err := t.owner.stmts.GetOrPrepare(ctx, t.owner.db, query)
	if err != nil {
		return nil, err
	}
	rows, err := t.tx.StmtContext(ctx, stmt).QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *SQLTx) ExecContext(ctx context.Context, query string, args ...any) (Result, error) {
	stmt, err := t.owner.stmts.GetOrPrepare(ctx, t.owner.db, query)
	if err != nil {
		return nil, err
	}
	return t.tx.StmtContext(ctx, stmt).ExecContext(ctx, args...)
}

func (t *SQLTx) Commit() error { return t.tx.Commit() }

func (t *SQLTx) Rollback() error { return t.tx.Rollback() }
