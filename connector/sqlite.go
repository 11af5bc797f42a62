package connector

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Konsultn-Engineering/enmap/database"
	"github.com/Konsultn-Engineering/enmap/dialect"
)

func init() {
	Register("sqlite", &SQLiteProvider{})
}

// SQLiteProvider dials SQLite files (or in-memory databases) through
// database/sql and the go-sqlite3 driver. Config.Database is the file
// path; empty means a shared in-memory database.
type SQLiteProvider struct{}

var _ Provider = (*SQLiteProvider)(nil)

func (p *SQLiteProvider) Connect(ctx context.Context, cfg Config) (Connection, error) {
	db, err := sql.Open("sqlite3", buildSQLiteDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("connector: open sqlite: %w", err)
	}

	pool := cfg.Pool.withDefaults()
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)
	db.SetConnMaxIdleTime(pool.MaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connector: connect sqlite: %w", err)
	}

	return &sqliteConnection{
		std:     db,
		db:      database.NewSQLDatabaseSize(db, cfg.Pool.StmtCacheSize),
		dialect: dialect.NewSQLiteDialect(),
	}, nil
}

func (p *SQLiteProvider) Dialect() dialect.Dialect {
	return dialect.NewSQLiteDialect()
}

func (p *SQLiteProvider) HealthCheck(ctx context.Context, conn Connection) error {
	return conn.Health(ctx)
}

func buildSQLiteDSN(cfg Config) string {
	params := url.Values{}
	for k, v := range cfg.Params {
		if v != "" {
			params.Set(k, v)
		}
	}

	name := cfg.Database
	if name == "" || name == ":memory:" {
		// shared cache keeps one memory database visible to every pooled
		// connection
		name = "file::memory:"
		if params.Get("cache") == "" {
			params.Set("cache", "shared")
		}
	} else {
		name = "file:" + name
	}

	if encoded := params.Encode(); encoded != "" {
		return name + "?" + encoded
	}
	return name
}

type sqliteConnection struct {
	std     *sql.DB
	db      *database.SQLDatabase
	dialect dialect.Dialect
}

var _ Connection = (*sqliteConnection)(nil)

func (c *sqliteConnection) DB() database.DB {
	return c.db
}

// StdDB exposes the underlying database/sql handle.
func (c *sqliteConnection) StdDB() *sql.DB {
	return c.std
}

func (c *sqliteConnection) Dialect() dialect.Dialect {
	return c.dialect
}

func (c *sqliteConnection) Health(ctx context.Context) error {
	return c.std.PingContext(ctx)
}

func (c *sqliteConnection) Stats() ConnectionStats {
	s := c.std.Stats()
	return ConnectionStats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
	}
}

func (c *sqliteConnection) Close() error {
	return c.db.Close()
}
