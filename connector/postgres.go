package connector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Konsultn-Engineering/enmap/database"
	"github.com/Konsultn-Engineering/enmap/dialect"
)

func init() {
	Register("postgres", &PostgresProvider{})
}

// PostgresProvider dials PostgreSQL through a pgx connection pool.
type PostgresProvider struct{}

var _ Provider = (*PostgresProvider)(nil)

func (p *PostgresProvider) Connect(ctx context.Context, cfg Config) (Connection, error) {
	dsn := buildPostgresDSN(cfg)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("connector: parse postgres config: %w", err)
	}

	pool := cfg.Pool.withDefaults()
	poolCfg.MaxConns = int32(pool.MaxOpen)
	poolCfg.MinConns = int32(pool.MaxIdle)
	poolCfg.MaxConnLifetime = pool.MaxLifetime
	poolCfg.MaxConnIdleTime = pool.MaxIdleTime

	pgPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connector: connect postgres: %w", err)
	}

	return &postgresConnection{pool: pgPool, dialect: dialect.NewPostgresDialect()}, nil
}

func (p *PostgresProvider) Dialect() dialect.Dialect {
	return dialect.NewPostgresDialect()
}

func (p *PostgresProvider) HealthCheck(ctx context.Context, conn Connection) error {
	return conn.Health(ctx)
}

func buildPostgresDSN(cfg Config) string {
	return NewDSNBuilder("postgres").
		Auth(cfg.Username, cfg.Password).
		Host(cfg.Host, cfg.Port).
		Database(cfg.Database).
		Param("sslmode", cfg.SSLMode).
		Params(cfg.Params).
		Build()
}

type postgresConnection struct {
	pool    *pgxpool.Pool
	dialect dialect.Dialect
}

var _ Connection = (*postgresConnection)(nil)

func (c *postgresConnection) DB() database.DB {
	return database.NewPgxDatabase(c.pool)
}

// Pool exposes the underlying pgx pool for driver-level tuning.
func (c *postgresConnection) Pool() *pgxpool.Pool {
	return c.pool
}

// StdDB opens a database/sql view over the pool, for tooling that speaks
// only *sql.DB.
func (c *postgresConnection) StdDB() *sql.DB {
	return stdlib.OpenDBFromPool(c.pool)
}

func (c *postgresConnection) Dialect() dialect.Dialect {
	return c.dialect
}

func (c *postgresConnection) Health(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *postgresConnection) Stats() ConnectionStats {
	s := c.pool.Stat()
	return ConnectionStats{
		OpenConnections: int(s.TotalConns()),
		InUse:           int(s.AcquiredConns()),
		Idle:            int(s.IdleConns()),
	}
}

func (c *postgresConnection) Close() error {
	c.pool.Close()
	return nil
}
