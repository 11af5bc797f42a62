// Package enmap is a statement-centric SQL mapping runtime: statements
// are defined once as dynamic fragment trees or raw text with #{}
// placeholders, registered on an Engine, and executed through Sessions
// that add transactional second-level caching and lazy cursor streaming
// on top of the database transaction.
package enmap

import (
	"context"

	"github.com/Konsultn-Engineering/enmap/connector"
	"github.com/Konsultn-Engineering/enmap/engine"
	"github.com/Konsultn-Engineering/enmap/statement"
)

// Re-exported configuration and statement types, so simple callers only
// import the root package.
type (
	Config       = connector.Config
	PoolConfig   = connector.PoolConfig
	RetryOptions = connector.RetryOptions
	RowBounds    = statement.RowBounds
	Engine       = engine.Engine
	Session      = engine.Session
)

// NoBounds leaves result streams untrimmed.
var NoBounds = statement.NoBounds

// NewRowBounds trims a result to limit rows after skipping offset rows.
func NewRowBounds(offset, limit int) RowBounds {
	return statement.NewRowBounds(offset, limit)
}

// Connect dials the named provider (postgres, sqlite, or anything
// registered with connector.Register) and wraps the connection in an
// Engine ready for statement registration.
func Connect(ctx context.Context, provider string, cfg Config) (*Engine, error) {
	c, err := connector.New(provider, cfg)
	if err != nil {
		return nil, err
	}
	conn, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return engine.New(conn.DB(), conn.Dialect()), nil
}

// Open wraps an already-established connection in an Engine.
func Open(conn connector.Connection) *Engine {
	return engine.New(conn.DB(), conn.Dialect())
}
