package props

import (
	"reflect"
	"strings"
)

// Env flattens the top-level properties of obj into a map suitable as an
// expression environment. Map entries are copied as-is. Struct fields are
// exposed under their exported name plus a lower-camel alias, so a field
// UserID answers to both "UserID" and "userID", and ID answers to "id".
// Scalars and slices produce an empty map; they are reachable through the
// reserved bindings instead.
func Env(obj any) map[string]any {
	env := make(map[string]any)
	if obj == nil {
		return env
	}
	v, ok := deref(reflect.ValueOf(obj))
	if !ok {
		return env
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return env
		}
		iter := v.MapRange()
		for iter.Next() {
			env[iter.Key().String()] = iter.Value().Interface()
		}
	case reflect.Struct:
		for _, fm := range fieldsOf(v.Type()) {
			fv, ok := fieldByIndex(v, fm.index)
			if !ok {
				continue
			}
			val := fv.Interface()
			env[fm.name] = val
			if alias := lowerAlias(fm.name); alias != fm.name {
				if _, taken := env[alias]; !taken {
					env[alias] = val
				}
			}
		}
	}
	return env
}

func lowerAlias(name string) string {
	if name == "" {
		return name
	}
	if strings.ToUpper(name) == name {
		return strings.ToLower(name)
	}
	return strings.ToLower(name[:1]) + name[1:]
}
