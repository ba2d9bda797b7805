// Package postgres implements the network backend on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joacominatel/dbdash/internal/database"
)

const (
	defaultMaxConns = 5
	defaultMinConns = 1
)

// Compile-time check: Conn implements database.Conn.
var _ database.Conn = (*Conn)(nil)

func init() {
	database.Register(database.Postgres, func(ctx context.Context, dsn string, opts database.Options) database.Conn {
		return Connect(ctx, dsn, opts)
	})
}

// Conn implements database.Conn for PostgreSQL over a pgxpool.
type Conn struct {
	pool   *pgxpool.Pool
	dbName string
	err    *database.ConnectionError
}

// Connect establishes a connection pool to PostgreSQL. It never returns nil:
// a malformed DSN or an unreachable server leaves the connection Failed.
func Connect(ctx context.Context, dsn string, opts database.Options) *Conn {
	c := &Conn{}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		c.err = &database.ConnectionError{Code: database.CodeInvalidDSN, Message: err.Error(), Err: err}
		return c
	}

	cfg.MaxConns = defaultMaxConns
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MinConns = defaultMinConns
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}
	c.dbName = cfg.ConnConfig.Database

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		c.err = connectionError(database.CodeInvalidDSN, err)
		return c
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		c.err = connectionError(database.CodeUnreachable, err)
		return c
	}

	c.pool = pool
	return c
}

// Backend reports database.Postgres.
func (c *Conn) Backend() database.Backend {
	return database.Postgres
}

// Name returns the name of the connected database.
func (c *Conn) Name() string {
	return c.dbName
}

// State reports whether construction succeeded.
func (c *Conn) State() database.State {
	if c.err != nil {
		return database.StateFailed
	}
	return database.StateReady
}

// Err returns the construction failure, if any.
func (c *Conn) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err
}

// Ping checks if the connection is alive.
func (c *Conn) Ping(ctx context.Context) error {
	if c.err != nil {
		return fmt.Errorf("ping: %w", c.err)
	}
	return c.pool.Ping(ctx)
}

// Close closes the connection pool, waiting for acquired connections to be released.
func (c *Conn) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

// connectionError prefers the server's SQLSTATE over the fallback code.
func connectionError(fallback string, err error) *database.ConnectionError {
	code := fallback
	msg := err.Error()
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code = pgErr.Code
		msg = pgErr.Message
	}
	return &database.ConnectionError{Code: code, Message: msg, Err: err}
}
