// Package connector bootstraps database connections for the mapping
// runtime. Providers register themselves by name (postgres, sqlite); a
// Connector built from a Config dials through the named provider and
// yields a Connection carrying the database handle and its dialect.
package connector

import (
	"context"

	"github.com/Konsultn-Engineering/enmap/database"
	"github.com/Konsultn-Engineering/enmap/dialect"
)

// Connection is an established database connection: the handle the engine
// executes through, the dialect statements render against, and pool
// health/stats surfaces.
type Connection interface {
	DB() database.DB
	Dialect() dialect.Dialect
	Health(ctx context.Context) error
	Stats() ConnectionStats
	Close() error
}

// Connector dials connections for one provider/config pair.
type Connector interface {
	Connect(ctx context.Context) (Connection, error)
	ConnectWithRetry(ctx context.Context, opts RetryOptions) (Connection, error)
}
