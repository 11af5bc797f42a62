// Package cursor streams query results lazily: rows are mapped one at a
// time as the caller iterates, instead of materializing the full result
// list. A cursor is not safe for concurrent use.
package cursor

import (
	"errors"
	"log/slog"

	"github.com/Konsultn-Engineering/enmap/scan"
	"github.com/Konsultn-Engineering/enmap/statement"
)

// Status is the cursor lifecycle state.
type Status int

const (
	// StatusCreated means consuming has not started.
	StatusCreated Status = iota
	// StatusOpen means consuming has started.
	StatusOpen
	// StatusClosed means closed without being fully consumed.
	StatusClosed
	// StatusConsumed means every in-bounds row was read. A consumed
	// cursor is always closed.
	StatusConsumed
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusConsumed:
		return "consumed"
	}
	return "unknown"
}

var (
	// ErrIteratorRetrieved guards the one-iterator-per-cursor rule.
	ErrIteratorRetrieved = errors.New("cursor: cannot open more than one iterator on a cursor")
	// ErrClosed reports iteration over a closed cursor.
	ErrClosed = errors.New("cursor: already closed")
)

// Cursor pulls mapped rows from a bounded row-set walk. Offset rows are
// discarded by the walk before the first element comes out; the cursor
// closes itself once the limit is reached or the source runs dry.
type Cursor struct {
	rows   *scan.RowSetHandler
	bounds statement.RowBounds
	logger *slog.Logger

	status    Status
	retrieved bool
	fetched   bool
	staged    any
	delivered int
}

func New(rows *scan.RowSetHandler, bounds statement.RowBounds, logger *slog.Logger) *Cursor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cursor{rows: rows, bounds: bounds, logger: logger, status: StatusCreated}
}

func (c *Cursor) Status() Status { return c.status }

func (c *Cursor) IsOpen() bool { return c.status == StatusOpen }

func (c *Cursor) IsConsumed() bool { return c.status == StatusConsumed }

// CurrentIndex is the absolute row index of the element most recently
// returned, counting discarded offset rows. Before the first element it
// sits at offset-1.
func (c *Cursor) CurrentIndex() int {
	return c.bounds.Offset + c.delivered - 1
}

// Iterator hands out the cursor's single iterator. A second retrieval
// and retrieval from a closed cursor are protocol errors.
func (c *Cursor) Iterator() (*Iterator, error) {
	if c.retrieved {
		return nil, ErrIteratorRetrieved
	}
	if c.isClosed() {
		return nil, ErrClosed
	}
	c.retrieved = true
	return &Iterator{c: c}, nil
}

// Close releases the underlying rows. It is idempotent; release errors
// are logged and swallowed, since the stream outcome was already
// decided by the reads.
func (c *Cursor) Close() error {
	if c.isClosed() {
		return nil
	}
	c.release()
	c.status = StatusClosed
	return nil
}

func (c *Cursor) isClosed() bool {
	return c.status == StatusClosed || c.status == StatusConsumed
}

func (c *Cursor) release() {
	if err := c.rows.Close(); err != nil {
		c.logger.Warn("cursor: closing row source failed", "cause", err)
	}
}

// fetch stages the next in-bounds row. Reaching the limit or exhausting
// the source consumes the cursor; the row staged on the boundary fetch
// is still delivered.
func (c *Cursor) fetch() error {
	if c.isClosed() {
		return nil
	}
	c.status = StatusOpen

	v, ok, err := c.rows.Fetch()
	if err != nil {
		return err
	}
	if !ok {
		c.release()
		c.status = StatusConsumed
		return nil
	}

	c.staged = v
	c.fetched = true
	if c.rows.Emitted() >= c.bounds.Limit {
		c.release()
		c.status = StatusConsumed
	}
	return nil
}

// Iterator walks a cursor one element per call pair. Not safe for
// concurrent use.
type Iterator struct {
	c *Cursor
}

// HasNext stages the next element if none is staged yet.
func (it *Iterator) HasNext() (bool, error) {
	if !it.c.fetched {
		if err := it.c.fetch(); err != nil {
			return false, err
		}
	}
	return it.c.fetched, nil
}

// Next returns the staged element, fetching one if needed. ok reports
// false once the cursor is out of rows.
func (it *Iterator) Next() (value any, ok bool, err error) {
	if !it.c.fetched {
		if err := it.c.fetch(); err != nil {
			return nil, false, err
		}
	}
	if !it.c.fetched {
		return nil, false, nil
	}

	next := it.c.staged
	it.c.staged = nil
	it.c.fetched = false
	it.c.delivered++
	return next, true, nil
}
