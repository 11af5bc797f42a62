// Package statement holds the metadata model of the mapping runtime: what
// a statement is (kind, caching policy, parameter modes, result shape) and
// the contracts the rendering and execution layers meet in the middle
// (SQLSource, BoundSQL, RowBounds).
package statement

import (
	"reflect"

	"github.com/Konsultn-Engineering/enmap/cache"
)

// Kind classifies a statement by its SQL verb.
type Kind int

const (
	Unknown Kind = iota
	Select
	Insert
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Select:
		return "select"
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// IsSelect reports whether the statement reads rather than writes.
func (k Kind) IsSelect() bool {
	return k == Select
}

// Type selects how the statement reaches the driver.
type Type int

const (
	// TypePrepared statements run as prepared statements. The default.
	TypePrepared Type = iota
	// TypeCallable statements invoke stored procedures and may declare
	// out-mode parameters.
	TypeCallable
)

// Mode is the direction of one declared parameter.
type Mode int

const (
	ModeIn Mode = iota
	ModeOut
	ModeInOut
)

// SQLSource renders executable SQL for one parameter object. The dynamic
// package provides the implementations.
type SQLSource interface {
	BoundSQL(param any) (*BoundSQL, error)
}

// KeyGenerator assigns a generated key to the parameter object before an
// insert statement runs.
type KeyGenerator interface {
	Assign(param any) error
}

// Statement is the immutable definition of one mapped statement. Built
// once through the Builder, shared across sessions.
type Statement struct {
	ID         string
	Kind       Kind
	Type       Type
	Source     SQLSource
	UseCache   bool
	FlushCache bool
	Cache      cache.Cache
	ParamModes []Mode
	KeyGen     KeyGenerator
	Result     reflect.Type
}

// HasOutParams reports whether any declared parameter is out-mode. Results
// delivered through out parameters cannot be reconstructed from a cache
// entry, so the caching layer rejects such statements.
func (s *Statement) HasOutParams() bool {
	for _, m := range s.ParamModes {
		if m == ModeOut || m == ModeInOut {
			return true
		}
	}
	return false
}

// Cached reports whether results of this statement may be served from its
// shared cache.
func (s *Statement) Cached() bool {
	return s.Cache != nil && s.UseCache
}
