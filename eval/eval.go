// Package eval evaluates statement expressions against a binding
// environment. Conditional nodes use Bool, bind nodes use Value, and loop
// nodes use Iterable. Expressions are compiled once when a statement is
// built and reused across renders.
//
// The expression syntax is expr-lang: `name != nil`, `len(tags) > 0`,
// `status in ["active", "trial"]`.
package eval

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Expr is a compiled expression.
type Expr struct {
	src     string
	program *vm.Program
}

// Compile compiles src. Identifiers that are absent from the environment
// at run time evaluate to nil rather than failing, matching how optional
// parameter properties behave in statement tests.
func Compile(src string) (*Expr, error) {
	program, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("eval: compile %q: %w", src, err)
	}
	return &Expr{src: src, program: program}, nil
}

// MustCompile is Compile for expressions known to be valid.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Expr) String() string {
	return e.src
}

// Value evaluates the expression against env.
func (e *Expr) Value(env map[string]any) (any, error) {
	out, err := expr.Run(e.program, env)
	if err != nil {
		return nil, fmt.Errorf("eval: run %q: %w", e.src, err)
	}
	return out, nil
}

// Bool evaluates the expression and reduces the result to a truth value.
func (e *Expr) Bool(env map[string]any) (bool, error) {
	out, err := e.Value(env)
	if err != nil {
		return false, err
	}
	return Truthy(out), nil
}

// Iterable evaluates the expression and coerces the result into iteration
// entries. A nil result reports ok=false: the source is absent and a loop
// over it renders nothing at all. A non-nil, non-iterable result is an
// error.
func (e *Expr) Iterable(env map[string]any) ([]Entry, bool, error) {
	out, err := e.Value(env)
	if err != nil {
		return nil, false, err
	}
	return Entries(out)
}

// Truthy reduces an expression result to a boolean: nil is false, booleans
// count as themselves, numbers are true when non-zero, and every other
// non-nil value is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return !rv.IsNil()
	}
	return true
}

// Entry is one element of an iteration source. Slices and arrays produce
// positional entries (Key is the int index); maps produce one entry per
// key, ordered by the formatted key so renders are deterministic.
type Entry struct {
	Key   any
	Value any
}

// Entries coerces v into iteration entries.
func Entries(v any) ([]Entry, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		entries := make([]Entry, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			entries[i] = Entry{Key: i, Value: rv.Index(i).Interface()}
		}
		return entries, true, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		entries := make([]Entry, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, Entry{Key: k.Interface(), Value: rv.MapIndex(k).Interface()})
		}
		return entries, true, nil
	}
	return nil, false, fmt.Errorf("eval: %T is not iterable", v)
}
