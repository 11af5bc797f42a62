package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxDatabase adapts a pgxpool.Pool. pgx prepares and caches statements
// per connection on its own, so no StmtCache sits in front of it.
type PgxDatabase struct {
	pool *pgxpool.Pool
}

var _ DB = (*PgxDatabase)(nil)

func NewPgxDatabase(pool *pgxpool.Pool) *PgxDatabase {
	return &PgxDatabase{pool: pool}
}

// Unwrap exposes the underlying pool for stats and tuning.
func (p *PgxDatabase) Unwrap() *pgxpool.Pool { return p.pool }

func (p *PgxDatabase) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (p *PgxDatabase) ExecContext(ctx context.Context, query string, args ...any) (Result, error) {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgxResult{tag: tag}, nil
}

func (p *PgxDatabase) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &PgxTx{tx: tx}, nil
}

func (p *PgxDatabase) PingContext(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PgxDatabase) Close() error {
	p.pool.Close()
	return nil
}

// PgxTx adapts pgx.Tx.
type PgxTx struct {
	tx pgx.Tx
}

var _ Tx = (*PgxTx)(nil)

func (t *PgxTx) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (t *PgxTx) ExecContext(ctx context.Context, query string, args ...any) (Result, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgxResult{tag: tag}, nil
}

func (t *PgxTx) Commit() error { return t.tx.Commit(context.Background()) }

func (t *PgxTx) Rollback() error { return t.tx.Rollback(context.Background()) }

// pgxRows adapts pgx.Rows to the Rows surface.
type pgxRows struct {
	rows   pgx.Rows
	fields []pgconn.FieldDescription
}

func (p *pgxRows) Columns() ([]string, error) {
	if p.fields == nil {
		p.fields = p.rows.FieldDescriptions()
	}
	columns := make([]string, len(p.fields))
	for i, fd := range p.fields {
		columns[i] = fd.Name
	}
	return columns, nil
}

func (p *pgxRows) Next() bool { return p.rows.Next() }

func (p *pgxRows) Scan(dest ...any) error { return p.rows.Scan(dest...) }

func (p *pgxRows) Err() error { return p.rows.Err() }

func (p *pgxRows) Close() error {
	p.rows.Close()
	return nil
}

type pgxResult struct {
	tag pgconn.CommandTag
}

// LastInsertId is not a PostgreSQL concept; generated keys come back
// through RETURNING clauses or client-side generators.
func (r pgxResult) LastInsertId() (int64, error) {
	return 0, fmt.Errorf("database: LastInsertId not supported by postgres")
}

func (r pgxResult) RowsAffected() (int64, error) {
	return r.tag.RowsAffected(), nil
}
