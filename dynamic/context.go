// Package dynamic renders fragment trees into SQL. A statement is built
// once as an immutable Node tree; each execution applies the tree to a
// fresh Context that collects SQL fragments and bindings, then resolves
// #{} placeholders into dialect markers and an ordered argument list.
package dynamic

import (
	"strings"

	"github.com/Konsultn-Engineering/enmap/props"
)

// Reserved binding names present in every rendering context.
const (
	// ParameterKey binds the whole parameter object.
	ParameterKey = "_parameter"
	// DatabaseIDKey binds the dialect's database id.
	DatabaseIDKey = "_databaseId"
)

// Scope is the surface a node renders through: append SQL, bind values,
// read the binding environment, draw loop sequence numbers. The root
// Context implements it; loop and trim views wrap another Scope and share
// the one underlying context.
type Scope interface {
	AppendSQL(fragment string)
	Bind(name string, value any)
	Bindings() *Bindings
	NextSeq() int
}

// Bindings is the binding environment of one render: an explicit map in
// front of property-access fallback over the parameter object.
type Bindings struct {
	values   map[string]any
	param    any
	accessor props.Accessor
}

func NewBindings(param any, accessor props.Accessor) *Bindings {
	if accessor == nil {
		accessor = props.Default()
	}
	return &Bindings{
		values:   make(map[string]any),
		param:    param,
		accessor: accessor,
	}
}

func (b *Bindings) Put(name string, value any) {
	b.values[name] = value
}

func (b *Bindings) Delete(name string) {
	delete(b.values, name)
}

// Lookup resolves a name or dotted path. The explicit map wins; a path
// whose head is explicitly bound resolves its tail against that value;
// anything else falls through to the parameter object's properties.
func (b *Bindings) Lookup(path string) (any, bool) {
	if v, ok := b.values[path]; ok {
		return v, true
	}
	if head, rest := splitHead(path); rest != "" {
		if v, ok := b.values[head]; ok {
			return b.accessor.Get(v, rest)
		}
	}
	if b.param == nil {
		return nil, false
	}
	return b.accessor.Get(b.param, path)
}

// Env materializes the environment expressions evaluate against: the
// parameter object's top-level properties overlaid with the explicit
// bindings.
func (b *Bindings) Env() map[string]any {
	env := props.Env(b.param)
	for k, v := range b.values {
		env[k] = v
	}
	return env
}

func splitHead(path string) (head, rest string) {
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '.':
			return path[:i], path[i+1:]
		case '[':
			return path[:i], path[i:]
		}
	}
	return path, ""
}

// Context is the root rendering scope. It owns the bindings, accumulates
// SQL fragments, and issues loop sequence numbers. Sequence numbers only
// increase; a number handed out is never reissued within the same render.
type Context struct {
	bindings *Bindings
	parts    []string
	seq      int
}

var _ Scope = (*Context)(nil)

func NewContext(param any, databaseID string, accessor props.Accessor) *Context {
	b := NewBindings(param, accessor)
	b.Put(ParameterKey, param)
	b.Put(DatabaseIDKey, databaseID)
	return &Context{bindings: b}
}

func (c *Context) AppendSQL(fragment string) {
	c.parts = append(c.parts, fragment)
}

func (c *Context) Bind(name string, value any) {
	c.bindings.Put(name, value)
}

func (c *Context) Bindings() *Bindings {
	return c.bindings
}

func (c *Context) NextSeq() int {
	n := c.seq
	c.seq++
	return n
}

// SQL returns the accumulated fragments joined by single spaces, trimmed.
func (c *Context) SQL() string {
	return strings.TrimSpace(strings.Join(c.parts, " "))
}
