package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Konsultn-Engineering/enmap/cache"
	"github.com/Konsultn-Engineering/enmap/cursor"
	"github.com/Konsultn-Engineering/enmap/database"
	"github.com/Konsultn-Engineering/enmap/dialect"
	"github.com/Konsultn-Engineering/enmap/scan"
	"github.com/Konsultn-Engineering/enmap/statement"
)

// SimpleExecutor executes statements directly against the database. It
// begins a transaction the first time a statement runs and holds it until
// Commit, Rollback or Close.
type SimpleExecutor struct {
	db      database.DB
	dialect dialect.Dialect
	logger  *slog.Logger
	tx      database.Tx
	closed  bool
}

var _ Executor = (*SimpleExecutor)(nil)

func NewSimple(db database.DB, d dialect.Dialect, logger *slog.Logger) *SimpleExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimpleExecutor{db: db, dialect: d, logger: logger}
}

// queryer returns the open transaction, beginning one on first use.
func (e *SimpleExecutor) queryer(ctx context.Context) (database.Queryer, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if e.tx == nil {
		tx, err := e.db.BeginTx(ctx)
		if err != nil {
			return nil, fmt.Errorf("executor: begin transaction: %w", err)
		}
		e.tx = tx
	}
	return e.tx, nil
}

func (e *SimpleExecutor) Query(ctx context.Context, stmt *statement.Statement, param any, bounds statement.RowBounds, handler ResultHandler) ([]any, error) {
	bound, err := stmt.Source.BoundSQL(param)
	if err != nil {
		return nil, fmt.Errorf("executor: render %s: %w", stmt.ID, err)
	}
	return e.QueryBound(ctx, stmt, param, bounds, handler, bound)
}

func (e *SimpleExecutor) QueryBound(ctx context.Context, stmt *statement.Statement, _ any, bounds statement.RowBounds, handler ResultHandler, bound *statement.BoundSQL) ([]any, error) {
	mapper, err := scan.MapperFor(stmt.Result)
	if err != nil {
		return nil, fmt.Errorf("executor: %s: %w", stmt.ID, err)
	}
	q, err := e.queryer(ctx)
	if err != nil {
		return nil, err
	}
	e.logSQL(ctx, stmt, bound)

	rows, err := q.QueryContext(ctx, bound.SQL, bound.Args...)
	if err != nil {
		return nil, fmt.Errorf("executor: query %s: %w", stmt.ID, err)
	}
	set := scan.NewRowSetHandler(rows, mapper, bounds)
	defer set.Close()

	var out []any
	rc := &ResultContext{}
	for {
		v, ok, err := set.Fetch()
		if err != nil {
			return nil, fmt.Errorf("executor: map row %s: %w", stmt.ID, err)
		}
		if !ok {
			break
		}
		rc.value = v
		rc.count++
		if handler != nil {
			handler.Handle(rc)
			if rc.stopped {
				break
			}
			continue
		}
		out = append(out, v)
	}
	if handler != nil {
		return nil, nil
	}
	return out, nil
}

// QueryCursor runs a select and returns a lazy cursor over its rows. The
// caller owns the cursor; the row source stays open until the cursor is
// closed or consumed.
func (e *SimpleExecutor) QueryCursor(ctx context.Context, stmt *statement.Statement, param any, bounds statement.RowBounds) (*cursor.Cursor, error) {
	bound, err := stmt.Source.BoundSQL(param)
	if err != nil {
		return nil, fmt.Errorf("executor: render %s: %w", stmt.ID, err)
	}
	mapper, err := scan.MapperFor(stmt.Result)
	if err != nil {
		return nil, fmt.Errorf("executor: %s: %w", stmt.ID, err)
	}
	q, err := e.queryer(ctx)
	if err != nil {
		return nil, err
	}
	e.logSQL(ctx, stmt, bound)

	rows, err := q.QueryContext(ctx, bound.SQL, bound.Args...)
	if err != nil {
		return nil, fmt.Errorf("executor: query %s: %w", stmt.ID, err)
	}
	return cursor.New(scan.NewRowSetHandler(rows, mapper, bounds), bounds, e.logger), nil
}

// Update runs a write statement and returns the affected row count. An
// insert with a key generator gets its key assigned before rendering so
// the generated value binds like any other property.
func (e *SimpleExecutor) Update(ctx context.Context, stmt *statement.Statement, param any) (int64, error) {
	if stmt.Kind == statement.Insert && stmt.KeyGen != nil {
		if err := stmt.KeyGen.Assign(param); err != nil {
			return 0, fmt.Errorf("executor: %s: %w", stmt.ID, err)
		}
	}
	bound, err := stmt.Source.BoundSQL(param)
	if err != nil {
		return 0, fmt.Errorf("executor: render %s: %w", stmt.ID, err)
	}
	q, err := e.queryer(ctx)
	if err != nil {
		return 0, err
	}
	e.logSQL(ctx, stmt, bound)

	res, err := q.ExecContext(ctx, bound.SQL, bound.Args...)
	if err != nil {
		return 0, fmt.Errorf("executor: exec %s: %w", stmt.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("executor: exec %s: rows affected: %w", stmt.ID, err)
	}
	return n, nil
}

// CreateKey folds statement id, bounds, SQL text, every argument and the
// dialect name into a cache key. Two executions get the same key only if
// every one of those parts matches.
func (e *SimpleExecutor) CreateKey(stmt *statement.Statement, bounds statement.RowBounds, bound *statement.BoundSQL) cache.Key {
	b := cache.NewKeyBuilder()
	b.UpdateAll(stmt.ID, bounds.Offset, bounds.Limit, bound.SQL)
	for _, arg := range bound.Args {
		b.Update(arg)
	}
	b.Update(e.dialect.Name())
	return b.Key()
}

func (e *SimpleExecutor) Commit() error {
	if e.closed {
		return ErrClosed
	}
	if e.tx == nil {
		return nil
	}
	tx := e.tx
	e.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("executor: commit: %w", err)
	}
	return nil
}

func (e *SimpleExecutor) Rollback() error {
	if e.closed {
		return ErrClosed
	}
	if e.tx == nil {
		return nil
	}
	tx := e.tx
	e.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("executor: rollback: %w", err)
	}
	return nil
}

// Close discards any open transaction. Work not committed before Close is
// lost on either value of forceRollback; the flag matters only to
// decorators. Closing twice is a no-op.
func (e *SimpleExecutor) Close(forceRollback bool) error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.tx == nil {
		return nil
	}
	tx := e.tx
	e.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("executor: close: %w", err)
	}
	return nil
}

func (e *SimpleExecutor) Closed() bool { return e.closed }

// logSQL renders the statement for debug logging, with arguments shown as
// dialect literals. Skipped entirely unless debug logging is enabled.
func (e *SimpleExecutor) logSQL(ctx context.Context, stmt *statement.Statement, bound *statement.BoundSQL) {
	if !e.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	args := make([]string, len(bound.Args))
	for i, arg := range bound.Args {
		args[i] = e.dialect.RenderValue(arg)
	}
	e.logger.Debug("executing statement",
		slog.String("statement", stmt.ID),
		slog.String("sql", bound.SQL),
		slog.String("args", strings.Join(args, ", ")))
}
