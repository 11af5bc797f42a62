// Package props is the property access layer of the mapping runtime. It
// resolves dotted property paths ("user.address.city", "items[0].sku")
// against arbitrary parameter objects: maps, structs, pointers, slices.
//
// The rendering context consults an Accessor whenever a name is not found
// among its explicit bindings, and parameter resolution uses it to pull
// placeholder values out of the parameter object. Key generation uses the
// write side to assign generated ids back onto parameters.
package props

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAddressable is returned by Set when the target object cannot be
	// written through (non-pointer struct roots, unexported fields).
	ErrNotAddressable = errors.New("props: target is not addressable")

	// ErrNoSuchProperty is returned by Set when the path does not exist.
	ErrNoSuchProperty = errors.New("props: no such property")
)

// Accessor resolves property paths against parameter objects.
// Implementations must be safe for concurrent use.
type Accessor interface {
	// Has reports whether obj exposes the named property path.
	Has(obj any, path string) bool

	// Get resolves path against obj. The second result is false when the
	// path does not exist; a nil value with true means the property exists
	// and holds nil.
	Get(obj any, path string) (any, bool)

	// Set assigns value through path. The root must be a pointer when the
	// path traverses struct fields.
	Set(obj any, path string, value any) error
}

var defaultAccessor Accessor = &reflectAccessor{}

// Default returns the shared reflection-backed accessor.
func Default() Accessor {
	return defaultAccessor
}

// pathError decorates resolution failures with the offending path.
func pathError(err error, path string) error {
	return fmt.Errorf("%w: %q", err, path)
}
