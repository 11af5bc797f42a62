package statement

import "math"

// BoundSQL is the executable form of a statement for one parameter object:
// final SQL with dialect placeholders, the placeholder names in order, and
// the materialized argument list.
type BoundSQL struct {
	SQL   string
	Names []string
	Args  []any
}

// NoLimit is the Limit of the default row bounds.
const NoLimit = math.MaxInt32

// RowBounds trims a result stream: Offset rows are fetched and discarded,
// then at most Limit rows are returned.
type RowBounds struct {
	Offset int
	Limit  int
}

// NoBounds applies no trimming.
var NoBounds = RowBounds{Offset: 0, Limit: NoLimit}

func NewRowBounds(offset, limit int) RowBounds {
	return RowBounds{Offset: offset, Limit: limit}
}

// IsDefault reports whether the bounds leave the stream untouched.
func (r RowBounds) IsDefault() bool {
	return r.Offset == 0 && r.Limit == NoLimit
}
