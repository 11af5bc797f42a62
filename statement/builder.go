package statement

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/Konsultn-Engineering/enmap/cache"
)

// Builder assembles a Statement definition. Caching flags default by kind
// when left unset: selects use their cache and do not flush, writes flush
// and do not cache.
type Builder struct {
	stmt       Statement
	useCache   *bool
	flushCache *bool
}

func NewBuilder(id string, kind Kind) *Builder {
	return &Builder{stmt: Statement{ID: id, Kind: kind}}
}

// Source sets the SQL source the statement renders through.
func (b *Builder) Source(src SQLSource) *Builder {
	b.stmt.Source = src
	return b
}

// Callable marks the statement as a stored procedure call.
func (b *Builder) Callable() *Builder {
	b.stmt.Type = TypeCallable
	return b
}

// Cache attaches the shared cache the statement participates in.
func (b *Builder) Cache(c cache.Cache) *Builder {
	b.stmt.Cache = c
	return b
}

// UseCache overrides the kind default (selects: true, writes: false).
func (b *Builder) UseCache(v bool) *Builder {
	b.useCache = &v
	return b
}

// FlushCache overrides the kind default (selects: false, writes: true).
func (b *Builder) FlushCache(v bool) *Builder {
	b.flushCache = &v
	return b
}

// ParamModes declares parameter directions for callable statements.
func (b *Builder) ParamModes(modes ...Mode) *Builder {
	b.stmt.ParamModes = modes
	return b
}

// KeyGenerator assigns generated keys to insert parameters.
func (b *Builder) KeyGenerator(kg KeyGenerator) *Builder {
	b.stmt.KeyGen = kg
	return b
}

// Result declares the row type results are mapped into. Accepts a sample
// value or a reflect.Type.
func (b *Builder) Result(sample any) *Builder {
	if t, ok := sample.(reflect.Type); ok {
		b.stmt.Result = t
	} else {
		b.stmt.Result = reflect.TypeOf(sample)
	}
	return b
}

func (b *Builder) Build() (*Statement, error) {
	if b.stmt.ID == "" {
		return nil, errors.New("statement: id is required")
	}
	if b.stmt.Kind == Unknown {
		return nil, fmt.Errorf("statement %s: kind is required", b.stmt.ID)
	}
	if b.stmt.Source == nil {
		return nil, fmt.Errorf("statement %s: source is required", b.stmt.ID)
	}
	stmt := b.stmt
	if b.useCache != nil {
		stmt.UseCache = *b.useCache
	} else {
		stmt.UseCache = stmt.Kind.IsSelect()
	}
	if b.flushCache != nil {
		stmt.FlushCache = *b.flushCache
	} else {
		stmt.FlushCache = !stmt.Kind.IsSelect()
	}
	if stmt.KeyGen != nil && stmt.Kind != Insert {
		return nil, fmt.Errorf("statement %s: key generators only apply to inserts", stmt.ID)
	}
	return &stmt, nil
}
