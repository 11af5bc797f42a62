package scan

import (
	"fmt"
	"reflect"
	"time"
)

// RowScanner is the minimal surface the mappers need from a row source.
// *sql.Rows satisfies it.
type RowScanner interface {
	Columns() ([]string, error)
	Scan(dest ...any) error
}

// RowMapper turns the current row of a row source into one result value.
type RowMapper interface {
	MapRow(row RowScanner) (any, error)
}

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// MapperFor picks a mapper for a result type: nil or map types map the
// full row into map[string]any, scalar-ish types read the first column,
// struct types match columns to fields through the entity metadata.
func MapperFor(t reflect.Type) (RowMapper, error) {
	if t == nil {
		return mapMapper{}, nil
	}

	base := t
	ptr := false
	if base.Kind() == reflect.Ptr {
		ptr = true
		base = base.Elem()
	}

	switch {
	case base.Kind() == reflect.Map:
		return mapMapper{}, nil
	case base == timeType || base == bytesType || isScalarKind(base.Kind()):
		return &scalarMapper{typ: base, ptr: ptr}, nil
	case base.Kind() == reflect.Struct:
		meta, err := Introspect(base)
		if err != nil {
			return nil, err
		}
		return &structMapper{meta: meta, ptr: ptr}, nil
	}
	return nil, fmt.Errorf("scan: no row mapper for %s", t)
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	}
	return false
}

// mapMapper reads every column into a map[string]any, values as the
// driver delivered them.
type mapMapper struct{}

func (mapMapper) MapRow(row RowScanner) (any, error) {
	cols, err := row.Columns()
	if err != nil {
		return nil, err
	}

	holders := make([]any, len(cols))
	for i := range holders {
		holders[i] = new(any)
	}
	if err := row.Scan(holders...); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(cols))
	for i, col := range cols {
		out[col] = *holders[i].(*any)
	}
	return out, nil
}

// scalarMapper reads the first column into a single typed value and
// discards the rest.
type scalarMapper struct {
	typ reflect.Type
	ptr bool
}

func (m *scalarMapper) MapRow(row RowScanner) (any, error) {
	cols, err := row.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("scan: scalar result needs at least one column")
	}

	pv := reflect.New(m.typ)
	dests := make([]any, len(cols))
	dests[0] = pv.Interface()
	for i := 1; i < len(dests); i++ {
		dests[i] = new(any)
	}
	if err := row.Scan(dests...); err != nil {
		return nil, err
	}

	if m.ptr {
		return pv.Interface(), nil
	}
	return pv.Elem().Interface(), nil
}

// structMapper scans columns directly into the fields of a fresh struct
// instance. Columns without a mapped field are discarded. The column
// plan is built once from the first row, so one mapper serves one
// result set.
type structMapper struct {
	meta *Meta
	ptr  bool
	plan [][]int
}

func (m *structMapper) MapRow(row RowScanner) (any, error) {
	if m.plan == nil {
		cols, err := row.Columns()
		if err != nil {
			return nil, err
		}
		m.plan = make([][]int, len(cols))
		for i, col := range cols {
			if f, ok := m.meta.Field(col); ok {
				m.plan[i] = f.Index
			}
		}
	}

	pv := reflect.New(m.meta.Type)
	elem := pv.Elem()
	dests := make([]any, len(m.plan))
	for i, index := range m.plan {
		if index == nil {
			dests[i] = new(any)
			continue
		}
		dests[i] = elem.FieldByIndex(index).Addr().Interface()
	}
	if err := row.Scan(dests...); err != nil {
		return nil, err
	}

	if m.ptr {
		return pv.Interface(), nil
	}
	return elem.Interface(), nil
}
