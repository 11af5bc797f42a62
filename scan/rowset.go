package scan

import (
	"github.com/Konsultn-Engineering/enmap/statement"
)

// Rows is the full row-source contract the row-set walk consumes: a
// RowScanner that advances, reports iteration errors and closes.
// *sql.Rows satisfies it.
type Rows interface {
	RowScanner
	Next() bool
	Err() error
	Close() error
}

// RowSetHandler walks a row source and hands out mapped rows one at a
// time, honoring offset and limit bounds. Offset rows are fetched from
// the source and discarded without mapping. Callers own closing the
// underlying rows via Close.
type RowSetHandler struct {
	rows    Rows
	mapper  RowMapper
	bounds  statement.RowBounds
	emitted int
	skipped bool
	done    bool
}

func NewRowSetHandler(rows Rows, mapper RowMapper, bounds statement.RowBounds) *RowSetHandler {
	return &RowSetHandler{rows: rows, mapper: mapper, bounds: bounds}
}

// Fetch returns the next in-bounds mapped row. ok reports false once the
// limit is reached, the source is exhausted, or a previous call failed.
func (h *RowSetHandler) Fetch() (value any, ok bool, err error) {
	if h.done {
		return nil, false, nil
	}

	if !h.skipped {
		for i := 0; i < h.bounds.Offset; i++ {
			if !h.rows.Next() {
				h.done = true
				return nil, false, h.rows.Err()
			}
		}
		h.skipped = true
	}

	if h.emitted >= h.bounds.Limit {
		h.done = true
		return nil, false, nil
	}
	if !h.rows.Next() {
		h.done = true
		return nil, false, h.rows.Err()
	}

	v, err := h.mapper.MapRow(h.rows)
	if err != nil {
		h.done = true
		return nil, false, err
	}
	h.emitted++
	return v, true, nil
}

// Emitted is the number of rows handed out so far.
func (h *RowSetHandler) Emitted() int { return h.emitted }

// Exhausted reports whether the walk has ended, by limit or by running
// out of rows.
func (h *RowSetHandler) Exhausted() bool { return h.done }

func (h *RowSetHandler) Close() error { return h.rows.Close() }
