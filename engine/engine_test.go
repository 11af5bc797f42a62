package engine

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/enmap/cache"
	"github.com/Konsultn-Engineering/enmap/database"
	"github.com/Konsultn-Engineering/enmap/dialect"
	"github.com/Konsultn-Engineering/enmap/dynamic"
	"github.com/Konsultn-Engineering/enmap/statement"
)

// =========================================================================
// Fake database
// =========================================================================

type memRows struct {
	cols   []string
	rows   [][]any
	pos    int
	closed bool
}

func (r *memRows) Columns() ([]string, error) { return r.cols, nil }

func (r *memRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *memRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(row))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func (r *memRows) Err() error { return nil }

func (r *memRows) Close() error {
	r.closed = true
	return nil
}

type fakeResult struct{ affected int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

// fakeDB serves canned rows and records everything routed through it.
type fakeDB struct {
	cols      []string
	rows      [][]any
	affected  int64
	queries   []string
	execs     []string
	argLog    [][]any
	begun     int
	commits   int
	rollbacks int
}

func (d *fakeDB) QueryContext(_ context.Context, query string, args ...any) (database.Rows, error) {
	d.queries = append(d.queries, query)
	d.argLog = append(d.argLog, args)
	return &memRows{cols: d.cols, rows: d.rows}, nil
}

func (d *fakeDB) ExecContext(_ context.Context, query string, args ...any) (database.Result, error) {
	d.execs = append(d.execs, query)
	d.argLog = append(d.argLog, args)
	return fakeResult{affected: d.affected}, nil
}

func (d *fakeDB) BeginTx(context.Context) (database.Tx, error) {
	d.begun++
	return fakeTx{d}, nil
}

func (d *fakeDB) PingContext(context.Context) error { return nil }
func (d *fakeDB) Close() error                      { return nil }

type fakeTx struct{ *fakeDB }

func (t fakeTx) Commit() error   { t.commits++; return nil }
func (t fakeTx) Rollback() error { t.rollbacks++; return nil }

// =========================================================================
// Helpers
// =========================================================================

func idDB(ids ...int64) *fakeDB {
	rows := make([][]any, len(ids))
	for i, id := range ids {
		rows[i] = []any{id}
	}
	return &fakeDB{cols: []string{"id"}, rows: rows, affected: 1}
}

func newEngine(db *fakeDB) *Engine {
	return New(db, dialect.NewPostgresDialect())
}

func registerScalarSelect(t *testing.T, e *Engine, id, sql string) *statement.Statement {
	t.Helper()
	stmt, err := statement.NewBuilder(id, statement.Select).
		Source(e.Raw(sql)).
		Result(int64(0)).
		Build()
	require.NoError(t, err)
	require.NoError(t, e.Register(stmt))
	return stmt
}

// =========================================================================
// Engine configuration
// =========================================================================

func TestEngineCacheGetOrCreate(t *testing.T) {
	e := newEngine(idDB())

	c := e.Cache("users")
	require.NotNil(t, c)
	assert.Equal(t, "users", c.ID())

	// same id returns the same instance
	assert.Equal(t, c, e.Cache("users"))
}

func TestEngineAddCache(t *testing.T) {
	e := newEngine(idDB())

	lru, err := cache.NewLRU("orders", 64)
	require.NoError(t, err)
	require.NoError(t, e.AddCache(lru))
	assert.Equal(t, cache.Cache(lru), e.Cache("orders"))

	err = e.AddCache(cache.NewPerpetual("orders"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate cache")
}

func TestEngineRegisterAndLookup(t *testing.T) {
	e := newEngine(idDB())
	stmt := registerScalarSelect(t, e, "user.ids", "SELECT id FROM users")

	got, ok := e.Statement("user.ids")
	require.True(t, ok)
	assert.Equal(t, stmt, got)

	_, ok = e.Statement("user.unknown")
	assert.False(t, ok)

	// duplicate ids are rejected
	err := e.Register(stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestEngineDynamicSourceBindsDatabaseID(t *testing.T) {
	e := newEngine(idDB())

	root := dynamic.NewText("SELECT '${_databaseId}' AS db")
	bound, err := e.Dynamic(root).BoundSQL(nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 'postgres' AS db", bound.SQL)
}

func TestEngineDynamicForBindsTableName(t *testing.T) {
	e := newEngine(idDB())

	type BlogPost struct{ ID int64 }
	src, err := e.DynamicFor(BlogPost{}, dynamic.NewText("SELECT id FROM ${_table} WHERE id = #{id}"))
	require.NoError(t, err)

	bound, err := src.BoundSQL(map[string]any{"id": 7})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM blog_posts WHERE id = $1", bound.SQL)
	assert.Equal(t, []any{7}, bound.Args)

	_, err = e.DynamicFor(42, dynamic.NewText("SELECT 1"))
	require.Error(t, err)
}

func TestEngineRawSourceUsesDialectPlaceholders(t *testing.T) {
	e := newEngine(idDB())

	bound, err := e.Raw("SELECT id FROM users WHERE org = #{org} AND active = #{active}").
		BoundSQL(map[string]any{"org": "acme", "active": true})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM users WHERE org = $1 AND active = $2", bound.SQL)
	assert.Equal(t, []any{"acme", true}, bound.Args)
}

func TestEngineGeneratorsPreloaded(t *testing.T) {
	e := newEngine(idDB())

	g, ok := e.Generators().Get("uuid")
	require.True(t, ok)
	id, err := g.Generate()
	require.NoError(t, err)
	assert.NotNil(t, id)
}

func TestEngineFragmentsReachIncludes(t *testing.T) {
	e := newEngine(idDB())
	require.NoError(t, e.Fragments().Register("userColumns", dynamic.NewText("id, first_name, email")))

	root := dynamic.Nodes{
		dynamic.NewText("SELECT"),
		dynamic.NewInclude("userColumns", e.Fragments()),
		dynamic.NewText("FROM users"),
	}
	bound, err := e.Dynamic(root).BoundSQL(nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, first_name, email FROM users", bound.SQL)
}
