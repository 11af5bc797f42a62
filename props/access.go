package props

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// reflectAccessor resolves properties with reflection. Struct field layouts
// are introspected once per type and cached, embedded structs flattened.
type reflectAccessor struct{}

type field struct {
	name  string
	index []int
}

var fieldCache sync.Map // map[reflect.Type]map[string]field, keyed by lowercase name

func fieldsOf(t reflect.Type) map[string]field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string]field)
	}
	fields := make(map[string]field)
	collectFields(t, nil, fields)
	fieldCache.Store(t, fields)
	return fields
}

func collectFields(t reflect.Type, prefix []int, out map[string]field) {
	var embedded []int
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				embedded = append(embedded, i)
				continue
			}
		}
		if f.PkgPath != "" {
			continue
		}
		key := strings.ToLower(f.Name)
		if _, taken := out[key]; !taken {
			out[key] = field{name: f.Name, index: append(append([]int(nil), prefix...), i)}
		}
	}
	// embedded fields are walked after the level that holds them, so
	// shallower fields shadow promoted ones regardless of declaration order
	for _, i := range embedded {
		ft := t.Field(i).Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		collectFields(ft, append(append([]int(nil), prefix...), i), out)
	}
}

// segment is one dotted path element, optionally carrying bracket indexes
// ("items[0]" parses to {name: "items", indexes: [0]}).
type segment struct {
	name    string
	indexes []int
}

func splitPath(path string) ([]segment, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		seg := segment{name: part}
		if i := strings.IndexByte(part, '['); i >= 0 {
			seg.name = part[:i]
			rest := part[i:]
			for rest != "" {
				if rest[0] != '[' {
					return nil, false
				}
				j := strings.IndexByte(rest, ']')
				if j < 0 {
					return nil, false
				}
				n, err := strconv.Atoi(rest[1:j])
				if err != nil {
					return nil, false
				}
				seg.indexes = append(seg.indexes, n)
				rest = rest[j+1:]
			}
		}
		if seg.name == "" && len(seg.indexes) == 0 {
			return nil, false
		}
		segs = append(segs, seg)
	}
	return segs, true
}

func (r *reflectAccessor) Has(obj any, path string) bool {
	_, ok := r.Get(obj, path)
	return ok
}

func (r *reflectAccessor) Get(obj any, path string) (any, bool) {
	segs, ok := splitPath(path)
	if !ok {
		return nil, false
	}
	v := reflect.ValueOf(obj)
	for _, seg := range segs {
		v, ok = resolveSegment(v, seg)
		if !ok {
			return nil, false
		}
	}
	if !v.IsValid() {
		return nil, true
	}
	return v.Interface(), true
}

func (r *reflectAccessor) Set(obj any, path string, value any) error {
	segs, ok := splitPath(path)
	if !ok {
		return pathError(ErrNoSuchProperty, path)
	}
	v := reflect.ValueOf(obj)
	for _, seg := range segs[:len(segs)-1] {
		v, ok = resolveSegment(v, seg)
		if !ok {
			return pathError(ErrNoSuchProperty, path)
		}
	}
	v, ok = deref(v)
	if !ok {
		return pathError(ErrNoSuchProperty, path)
	}
	leaf := segs[len(segs)-1]
	if len(leaf.indexes) > 0 {
		return pathError(ErrNotAddressable, path)
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return pathError(ErrNoSuchProperty, path)
		}
		val, err := coerce(reflect.ValueOf(value), v.Type().Elem())
		if err != nil {
			return err
		}
		v.SetMapIndex(reflect.ValueOf(leaf.name).Convert(v.Type().Key()), val)
		return nil
	case reflect.Struct:
		fm, ok := fieldsOf(v.Type())[strings.ToLower(leaf.name)]
		if !ok {
			return pathError(ErrNoSuchProperty, path)
		}
		f, ok := fieldByIndex(v, fm.index)
		if !ok || !f.CanSet() {
			return pathError(ErrNotAddressable, path)
		}
		val, err := coerce(reflect.ValueOf(value), f.Type())
		if err != nil {
			return err
		}
		f.Set(val)
		return nil
	}
	return pathError(ErrNoSuchProperty, path)
}

// deref unwraps pointers and interfaces. Nil anywhere along the way means
// the property chain cannot continue.
func deref(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	return v, true
}

func resolveSegment(v reflect.Value, seg segment) (reflect.Value, bool) {
	v, ok := deref(v)
	if !ok {
		return reflect.Value{}, false
	}
	if seg.name != "" {
		switch v.Kind() {
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return reflect.Value{}, false
			}
			elem := v.MapIndex(reflect.ValueOf(seg.name).Convert(v.Type().Key()))
			if !elem.IsValid() {
				return reflect.Value{}, false
			}
			v = elem
		case reflect.Struct:
			fm, ok := fieldsOf(v.Type())[strings.ToLower(seg.name)]
			if !ok {
				return reflect.Value{}, false
			}
			v, ok = fieldByIndex(v, fm.index)
			if !ok {
				return reflect.Value{}, false
			}
		default:
			return reflect.Value{}, false
		}
	}
	for _, idx := range seg.indexes {
		v, ok = deref(v)
		if !ok {
			return reflect.Value{}, false
		}
		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			return reflect.Value{}, false
		}
		if idx < 0 || idx >= v.Len() {
			return reflect.Value{}, false
		}
		v = v.Index(idx)
	}
	return v, true
}

func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 {
			var ok bool
			v, ok = deref(v)
			if !ok || v.Kind() != reflect.Struct {
				return reflect.Value{}, false
			}
		}
		v = v.Field(x)
	}
	return v, true
}

func coerce(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(t), nil
	}
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if v.Type().ConvertibleTo(t) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("props: cannot assign %s to %s", v.Type(), t)
}
