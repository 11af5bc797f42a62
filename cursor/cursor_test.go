package cursor

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/enmap/scan"
	"github.com/Konsultn-Engineering/enmap/statement"
)

// =========================================================================
// Fake row source
// =========================================================================

type memRows struct {
	cols   []string
	rows   [][]any
	pos    int
	err    error
	closed bool
	closeE error
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

func (r *memRows) Err() error { return r.err }

func (r *memRows) Close() error {
	r.closed = true
	return r.closeE
}

func newCursor(t *testing.T, rows *memRows, bounds statement.RowBounds) *Cursor {
	t.Helper()
	mapper, err := scan.MapperFor(nil)
	require.NoError(t, err)
	return New(scan.NewRowSetHandler(rows, mapper, bounds), bounds, nil)
}

func idSource(ids ...int64) *memRows {
	rows := make([][]any, len(ids))
	for i, id := range ids {
		rows[i] = []any{id}
	}
	return &memRows{cols: []string{"id"}, rows: rows}
}

func idOf(t *testing.T, v any) int64 {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok)
	return m["id"].(int64)
}

// =========================================================================
// Tests
// =========================================================================

func TestCursorLifecycle(t *testing.T) {
	rows := idSource(1, 2, 3)
	c := newCursor(t, rows, statement.NoBounds)

	assert.Equal(t, StatusCreated, c.Status())
	assert.Equal(t, -1, c.CurrentIndex())

	it, err := c.Iterator()
	require.NoError(t, err)

	for want := int64(1); want <= 3; want++ {
		ok, err := it.HasNext()
		require.NoError(t, err)
		require.True(t, ok)

		v, ok, err := it.Next()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, idOf(t, v))
		assert.Equal(t, int(want)-1, c.CurrentIndex())
	}
	assert.Equal(t, StatusOpen, c.Status())

	ok, err := it.HasNext()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StatusConsumed, c.Status())
	assert.True(t, c.IsConsumed())
	assert.True(t, rows.closed)
}

func TestCursorNextWithoutHasNext(t *testing.T) {
	c := newCursor(t, idSource(5), statement.NoBounds)

	it, err := c.Iterator()
	require.NoError(t, err)

	v, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5), idOf(t, v))

	_, ok, err = it.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCursorBounds(t *testing.T) {
	rows := idSource(1, 2, 3, 4, 5)
	c := newCursor(t, rows, statement.NewRowBounds(1, 2))

	it, err := c.Iterator()
	require.NoError(t, err)

	v, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), idOf(t, v))
	assert.Equal(t, 1, c.CurrentIndex())

	v, ok, err = it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), idOf(t, v))
	assert.Equal(t, 2, c.CurrentIndex())

	// the fetch that reached offset+limit already consumed the cursor
	assert.Equal(t, StatusConsumed, c.Status())
	assert.True(t, rows.closed)

	ok, err = it.HasNext()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCursorBoundsMidStream(t *testing.T) {
	rows := idSource(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	c := newCursor(t, rows, statement.NewRowBounds(2, 3))

	it, err := c.Iterator()
	require.NoError(t, err)

	var got []int64
	for {
		v, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, idOf(t, v))
	}

	assert.Equal(t, []int64{3, 4, 5}, got)
	assert.Equal(t, 4, c.CurrentIndex())
	assert.True(t, c.IsConsumed())
}

func TestCursorEmptyResult(t *testing.T) {
	c := newCursor(t, idSource(), statement.NoBounds)

	it, err := c.Iterator()
	require.NoError(t, err)

	ok, err := it.HasNext()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, c.IsConsumed())
}

func TestCursorIteratorOneShot(t *testing.T) {
	c := newCursor(t, idSource(1), statement.NoBounds)

	_, err := c.Iterator()
	require.NoError(t, err)

	_, err = c.Iterator()
	assert.ErrorIs(t, err, ErrIteratorRetrieved)
}

func TestCursorIteratorAfterClose(t *testing.T) {
	c := newCursor(t, idSource(1), statement.NoBounds)
	require.NoError(t, c.Close())

	_, err := c.Iterator()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCursorCloseIdempotent(t *testing.T) {
	rows := idSource(1, 2)
	rows.closeE = errors.New("release failed")
	c := newCursor(t, rows, statement.NoBounds)

	require.NoError(t, c.Close())
	assert.Equal(t, StatusClosed, c.Status())
	assert.True(t, rows.closed)

	require.NoError(t, c.Close())
	assert.Equal(t, StatusClosed, c.Status())
}

func TestCursorClosedStopsIteration(t *testing.T) {
	c := newCursor(t, idSource(1, 2, 3), statement.NoBounds)

	it, err := c.Iterator()
	require.NoError(t, err)

	_, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Close())

	ok, err = it.HasNext()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = it.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCursorSourceError(t *testing.T) {
	rows := idSource(1)
	rows.err = errors.New("connection reset")
	c := newCursor(t, rows, statement.NoBounds)

	it, err := c.Iterator()
	require.NoError(t, err)

	_, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, err = it.HasNext()
	assert.EqualError(t, err, "connection reset")
}
