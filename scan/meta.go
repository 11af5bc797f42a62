// Package scan maps database rows onto Go values: entity metadata with
// a naming strategy, per-row mappers for map, struct and scalar results,
// and the bounded row-set walk the executors and cursors are built on.
package scan

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// TableNamer overrides the derived table name for an entity.
type TableNamer interface {
	TableName() string
}

// Field is one column-mapped struct field.
type Field struct {
	Name      string // Go field name
	Column    string
	Index     []int
	Primary   bool
	Generator string // keygen generator name, empty when the database assigns keys
}

// Meta describes how a struct maps onto a table.
type Meta struct {
	Type     reflect.Type
	Table    string
	Fields   []Field
	byColumn map[string]int
}

// Field resolves a column name case-insensitively.
func (m *Meta) Field(column string) (Field, bool) {
	i, ok := m.byColumn[strings.ToLower(column)]
	if !ok {
		return Field{}, false
	}
	return m.Fields[i], true
}

// KeyField returns the primary key field, when one is tagged.
func (m *Meta) KeyField() (Field, bool) {
	for _, f := range m.Fields {
		if f.Primary {
			return f, true
		}
	}
	return Field{}, false
}

var metaCache sync.Map // map[reflect.Type]*Meta

// Introspect builds (and caches) the mapping metadata for a struct type
// using the default naming strategy. Pointer types are dereferenced.
func Introspect(t reflect.Type) (*Meta, error) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("scan: introspect: %v is not a struct type", t)
	}

	if cached, ok := metaCache.Load(t); ok {
		return cached.(*Meta), nil
	}

	m := &Meta{
		Type:     t,
		Table:    tableName(t),
		byColumn: make(map[string]int),
	}
	collectFields(m, t, nil)

	actual, _ := metaCache.LoadOrStore(t, m)
	return actual.(*Meta), nil
}

func tableName(t reflect.Type) string {
	if namer, ok := reflect.New(t).Interface().(TableNamer); ok {
		return namer.TableName()
	}
	return DefaultNaming().TableName(t.Name())
}

func collectFields(m *Meta, t reflect.Type, prefix []int) {
	var embedded []int
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			embedded = append(embedded, i)
			continue
		}
		if !f.IsExported() {
			continue
		}

		fm, skip := parseTag(f.Name, f.Tag.Get("db"))
		if skip {
			continue
		}
		fm.Name = f.Name
		fm.Index = append(append([]int(nil), prefix...), i)

		key := strings.ToLower(fm.Column)
		// shallower fields shadow promoted ones
		if _, taken := m.byColumn[key]; taken {
			continue
		}
		m.byColumn[key] = len(m.Fields)
		m.Fields = append(m.Fields, fm)
	}
	for _, i := range embedded {
		collectFields(m, t.Field(i).Type, append(append([]int(nil), prefix...), i))
	}
}

// parseTag handles the condensed db-tag grammar: "-" skips the field, a
// bare value names the column, and semicolon options cover column:,
// primary and generator:.
func parseTag(fieldName, tag string) (Field, bool) {
	fm := Field{Column: DefaultNaming().ColumnName(fieldName)}
	if tag == "" {
		return fm, false
	}
	if tag == "-" {
		return Field{}, true
	}
	if !strings.ContainsAny(tag, ";:") {
		fm.Column = tag
		return fm, false
	}

	for _, opt := range strings.Split(tag, ";") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key, value, hasValue := strings.Cut(opt, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "column", "name":
			if hasValue {
				fm.Column = value
			}
		case "primary", "primary_key":
			fm.Primary = true
		case "generator", "gen":
			fm.Generator = value
		}
		// unknown options are ignored for forward compatibility
	}
	return fm, false
}
