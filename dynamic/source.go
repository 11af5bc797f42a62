package dynamic

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Konsultn-Engineering/enmap/dialect"
	"github.com/Konsultn-Engineering/enmap/props"
	"github.com/Konsultn-Engineering/enmap/statement"
)

// Source renders a fragment tree into executable SQL for one parameter
// object. Rendering is two-stage: the tree is applied to a fresh context,
// then the accumulated text has its #{} placeholders resolved into
// dialect markers and a materialized argument list.
type Source struct {
	root     Node
	dialect  dialect.Dialect
	accessor props.Accessor
	vars     map[string]any
}

var _ statement.SQLSource = (*Source)(nil)

func NewSource(root Node, d dialect.Dialect) *Source {
	return &Source{root: root, dialect: d, accessor: props.Default()}
}

// WithVar adds a static binding available to every render: derived table
// names, tenant prefixes and the like.
func (s *Source) WithVar(name string, value any) *Source {
	if s.vars == nil {
		s.vars = make(map[string]any)
	}
	s.vars[name] = value
	return s
}

// WithAccessor overrides the property access layer.
func (s *Source) WithAccessor(a props.Accessor) *Source {
	s.accessor = a
	return s
}

func (s *Source) BoundSQL(param any) (*statement.BoundSQL, error) {
	ctx := NewContext(param, s.dialect.Name(), s.accessor)
	for k, v := range s.vars {
		ctx.Bind(k, v)
	}
	if _, err := s.root.Apply(ctx); err != nil {
		return nil, err
	}
	return bindParams(ctx.SQL(), ctx.Bindings(), param, s.dialect)
}

// RawSource is SQL text carrying #{} placeholders and no dynamic
// structure. ${} tokens are not expanded.
type RawSource struct {
	sql      string
	dialect  dialect.Dialect
	accessor props.Accessor
}

var _ statement.SQLSource = (*RawSource)(nil)

func NewRawSource(sql string, d dialect.Dialect) *RawSource {
	return &RawSource{sql: sql, dialect: d, accessor: props.Default()}
}

func (s *RawSource) WithAccessor(a props.Accessor) *RawSource {
	s.accessor = a
	return s
}

func (s *RawSource) BoundSQL(param any) (*statement.BoundSQL, error) {
	b := NewBindings(param, s.accessor)
	b.Put(ParameterKey, param)
	b.Put(DatabaseIDKey, s.dialect.Name())
	return bindParams(s.sql, b, param, s.dialect)
}

// bindParams resolves #{} placeholders into dialect positional markers
// and the ordered argument list. Binding-map entries win over parameter
// properties, which is how loop-suffixed and bind-node values reach the
// driver; scalar parameters bind to any placeholder name; a name that
// resolves nowhere is an error.
func bindParams(sql string, b *Bindings, param any, d dialect.Dialect) (*statement.BoundSQL, error) {
	var names []string
	var args []any
	var resolveErr error
	out := ParseTokens(sql, "#{", "}", func(content string) string {
		name := placeholderName(content)
		v, ok := b.Lookup(name)
		if !ok {
			switch {
			case param == nil:
				v = nil
			case isScalar(param):
				v = param
			default:
				if resolveErr == nil {
					resolveErr = fmt.Errorf("dynamic: no value for placeholder %q", name)
				}
				return "#{" + content + "}"
			}
		}
		names = append(names, name)
		args = append(args, v)
		return d.Placeholder(len(args))
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return &statement.BoundSQL{SQL: out, Names: names, Args: args}, nil
}

// placeholderName strips the modifier list from a placeholder: everything
// after the first comma configures type handling and is ignored here.
func placeholderName(content string) string {
	if i := strings.IndexByte(content, ','); i >= 0 {
		content = content[:i]
	}
	return strings.TrimSpace(content)
}

// isScalar reports whether param binds as a single value rather than as a
// bag of named properties.
func isScalar(param any) bool {
	switch param.(type) {
	case time.Time, []byte, driver.Valuer:
		return true
	}
	v := reflect.ValueOf(param)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	}
	return false
}
