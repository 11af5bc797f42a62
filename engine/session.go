package engine

import (
	"context"
	"fmt"

	"github.com/Konsultn-Engineering/enmap/cursor"
	"github.com/Konsultn-Engineering/enmap/executor"
	"github.com/Konsultn-Engineering/enmap/statement"
)

// Session is one unit of work against the engine. All statements of a
// session share a database transaction and a set of transactional cache
// buffers; Commit publishes both, Rollback abandons both. Confined to one
// goroutine.
type Session struct {
	engine *Engine
	exec   executor.Executor
}

func (s *Session) stmt(id string, kind func(statement.Kind) bool, verb string) (*statement.Statement, error) {
	st, ok := s.engine.Statement(id)
	if !ok {
		return nil, fmt.Errorf("engine: unknown statement %q", id)
	}
	if !kind(st.Kind) {
		return nil, fmt.Errorf("engine: statement %q is a %s, not usable with %s", id, st.Kind, verb)
	}
	return st, nil
}

func isRead(k statement.Kind) bool  { return k == statement.Select }
func isWrite(k statement.Kind) bool { return k != statement.Select }

func pickBounds(bounds []statement.RowBounds) statement.RowBounds {
	if len(bounds) > 0 {
		return bounds[0]
	}
	return statement.NoBounds
}

// Select runs a select statement and returns every in-bounds mapped row.
// Optional bounds trim the stream; only the first value is used.
func (s *Session) Select(ctx context.Context, id string, param any, bounds ...statement.RowBounds) ([]any, error) {
	st, err := s.stmt(id, isRead, "Select")
	if err != nil {
		return nil, err
	}
	return s.exec.Query(ctx, st, param, pickBounds(bounds), nil)
}

// SelectOne runs a select expected to produce at most one row. No rows
// yields nil; more than one row is an error.
func (s *Session) SelectOne(ctx context.Context, id string, param any) (any, error) {
	rows, err := s.Select(ctx, id, param)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("engine: statement %q returned %d rows, want one", id, len(rows))
	}
}

// SelectHandler streams mapped rows into handler instead of materializing
// them. Handler reads always bypass the shared cache.
func (s *Session) SelectHandler(ctx context.Context, id string, param any, handler executor.ResultHandler, bounds ...statement.RowBounds) error {
	st, err := s.stmt(id, isRead, "SelectHandler")
	if err != nil {
		return err
	}
	_, err = s.exec.Query(ctx, st, param, pickBounds(bounds), handler)
	return err
}

// SelectCursor runs a select and returns a lazy cursor over its rows. The
// caller must close the cursor before the session commits or closes.
func (s *Session) SelectCursor(ctx context.Context, id string, param any, bounds ...statement.RowBounds) (*cursor.Cursor, error) {
	st, err := s.stmt(id, isRead, "SelectCursor")
	if err != nil {
		return nil, err
	}
	return s.exec.QueryCursor(ctx, st, param, pickBounds(bounds))
}

// Exec runs an insert, update or delete and returns the affected row
// count.
func (s *Session) Exec(ctx context.Context, id string, param any) (int64, error) {
	st, err := s.stmt(id, isWrite, "Exec")
	if err != nil {
		return 0, err
	}
	return s.exec.Update(ctx, st, param)
}

// Commit commits the database transaction and publishes staged cache
// entries.
func (s *Session) Commit() error {
	return s.exec.Commit()
}

// Rollback rolls the database transaction back and abandons staged cache
// entries.
func (s *Session) Rollback() error {
	return s.exec.Rollback()
}

// Close releases the session. Buffered cache work commits unless
// forceRollback is set; an open database transaction is always discarded.
// Closing twice is a no-op.
func (s *Session) Close(forceRollback bool) error {
	if s.exec.Closed() {
		return nil
	}
	return s.exec.Close(forceRollback)
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	return s.exec.Closed()
}
