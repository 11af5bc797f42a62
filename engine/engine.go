// Package engine ties the mapping runtime together. An Engine carries the
// long-lived configuration: the database handle, the dialect, the
// statement registry, the shared caches, reusable fragments and key
// generators. Sessions are the unit of work: each one owns a caching
// executor over its own database transaction and must stay on one
// goroutine.
package engine

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/Konsultn-Engineering/enmap/cache"
	"github.com/Konsultn-Engineering/enmap/database"
	"github.com/Konsultn-Engineering/enmap/dialect"
	"github.com/Konsultn-Engineering/enmap/dynamic"
	"github.com/Konsultn-Engineering/enmap/executor"
	"github.com/Konsultn-Engineering/enmap/keygen"
	"github.com/Konsultn-Engineering/enmap/props"
	"github.com/Konsultn-Engineering/enmap/scan"
	"github.com/Konsultn-Engineering/enmap/statement"
)

// Engine is the shared, immutable-after-setup core of the runtime. Safe
// for concurrent use once statement registration is done.
type Engine struct {
	db         database.DB
	dialect    dialect.Dialect
	accessor   props.Accessor
	logger     *slog.Logger
	statements *statement.Registry
	fragments  *dynamic.Fragments
	generators *keygen.Registry

	mu     sync.Mutex
	caches map[string]cache.Cache
}

func New(db database.DB, d dialect.Dialect) *Engine {
	return &Engine{
		db:         db,
		dialect:    d,
		accessor:   props.Default(),
		logger:     slog.Default(),
		statements: statement.NewRegistry(),
		fragments:  dynamic.NewFragments(),
		generators: keygen.NewRegistry(),
		caches:     make(map[string]cache.Cache),
	}
}

// WithLogger replaces the engine's logger. Sessions, executors and
// cursors created afterwards log through it.
func (e *Engine) WithLogger(l *slog.Logger) *Engine {
	if l != nil {
		e.logger = l
	}
	return e
}

// WithAccessor replaces the property access layer used for parameter
// binding and expression environments.
func (e *Engine) WithAccessor(a props.Accessor) *Engine {
	if a != nil {
		e.accessor = a
	}
	return e
}

func (e *Engine) DB() database.DB { return e.db }

func (e *Engine) Dialect() dialect.Dialect { return e.dialect }

func (e *Engine) Logger() *slog.Logger { return e.logger }

// Fragments is the registry Include nodes resolve against.
func (e *Engine) Fragments() *dynamic.Fragments { return e.fragments }

// Generators is the key generator registry, preloaded with the built-ins.
func (e *Engine) Generators() *keygen.Registry { return e.generators }

// Cache returns the shared cache registered under id, creating a
// perpetual one on first request. Statement groups that want bounded or
// blocking caches register them with AddCache before building statements.
func (e *Engine) Cache(id string) cache.Cache {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.caches[id]
	if !ok {
		c = cache.NewPerpetual(id)
		e.caches[id] = c
	}
	return c
}

// AddCache registers a prebuilt shared cache under its own id.
func (e *Engine) AddCache(c cache.Cache) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.caches[c.ID()]; exists {
		return fmt.Errorf("engine: duplicate cache %q", c.ID())
	}
	e.caches[c.ID()] = c
	return nil
}

// Register adds built statements to the engine.
func (e *Engine) Register(stmts ...*statement.Statement) error {
	for _, s := range stmts {
		if err := e.statements.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister is Register for setup code that treats a bad statement
// definition as fatal.
func (e *Engine) MustRegister(stmts ...*statement.Statement) {
	if err := e.Register(stmts...); err != nil {
		panic(err)
	}
}

// Statement looks up a registered statement by id.
func (e *Engine) Statement(id string) (*statement.Statement, bool) {
	return e.statements.Lookup(id)
}

// Dynamic builds a fragment-tree SQL source over the engine's dialect and
// accessor.
func (e *Engine) Dynamic(root dynamic.Node) *dynamic.Source {
	return dynamic.NewSource(root, e.dialect).WithAccessor(e.accessor)
}

// Raw builds a plain-text SQL source with #{} placeholders.
func (e *Engine) Raw(sql string) *dynamic.RawSource {
	return dynamic.NewRawSource(sql, e.dialect).WithAccessor(e.accessor)
}

// DynamicFor builds a dynamic source for statements over entity, with
// ${_table} bound to the entity's derived table name. entity is a value
// (or pointer) of the mapped struct type.
func (e *Engine) DynamicFor(entity any, root dynamic.Node) (*dynamic.Source, error) {
	m, err := scan.Introspect(reflect.TypeOf(entity))
	if err != nil {
		return nil, err
	}
	return e.Dynamic(root).WithVar("_table", m.Table), nil
}

// Session opens a unit of work: a caching executor over a database
// transaction that begins lazily with the first statement.
func (e *Engine) Session() *Session {
	base := executor.NewSimple(e.db, e.dialect, e.logger)
	return &Session{
		engine: e,
		exec:   executor.NewCaching(base, e.logger),
	}
}
