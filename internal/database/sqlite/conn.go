// Package sqlite implements the embedded-file backend on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joacominatel/dbdash/internal/database"
	sqlite3 "modernc.org/sqlite"
)

const (
	driverName      = "sqlite"
	memoryPath      = ":memory:"
	defaultMaxConns = 5
)

// bootstrapSchema is applied on every connect; it must stay idempotent.
const bootstrapSchema = `
	CREATE TABLE IF NOT EXISTS users(
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		email VARCHAR(100) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		role VARCHAR(20)
	);`

// Compile-time check: Conn implements database.Conn.
var _ database.Conn = (*Conn)(nil)

func init() {
	database.Register(database.SQLite, func(ctx context.Context, dsn string, opts database.Options) database.Conn {
		return Connect(ctx, dsn, opts)
	})
}

// Conn is a pooled connection to one SQLite file.
type Conn struct {
	db   *sql.DB
	path string
	err  *database.ConnectionError
}

// Connect creates the database file if needed, opens a pool on it and applies
// the baseline schema. It never returns nil: failures are reported through
// Err and State.
func Connect(ctx context.Context, path string, opts database.Options) *Conn {
	c := &Conn{path: path}

	if path == "" {
		c.err = &database.ConnectionError{Code: database.CodeInvalidDSN, Message: "empty database path"}
		return c
	}

	if path != memoryPath && !strings.HasPrefix(path, "file:") {
		if err := ensureFile(path); err != nil {
			c.err = &database.ConnectionError{Code: database.CodeFileCreate, Message: "error creating file: " + err.Error(), Err: err}
			return c
		}
	}

	db, err := sql.Open(driverName, dataSource(path))
	if err != nil {
		c.err = connectionError(database.CodeInvalidDSN, err)
		return c
	}

	maxConns := int(opts.MaxConns)
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	if path == memoryPath {
		// Every connection to :memory: is a separate database.
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		c.err = connectionError(database.CodeUnreachable, err)
		return c
	}

	if _, err := db.ExecContext(ctx, bootstrapSchema); err != nil {
		db.Close()
		c.err = connectionError(database.CodeBootstrap, err)
		return c
	}

	c.db = db
	return c
}

// Backend reports database.SQLite.
func (c *Conn) Backend() database.Backend {
	return database.SQLite
}

// Name returns the database file name.
func (c *Conn) Name() string {
	if c.path == memoryPath {
		return c.path
	}
	return filepath.Base(c.path)
}

// Path returns the path the connection was opened with.
func (c *Conn) Path() string {
	return c.path
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

// Ping checks the pool.
func (c *Conn) Ping(ctx context.Context) error {
	if c.err != nil {
		return fmt.Errorf("ping: %w", c.err)
	}
	return c.db.PingContext(ctx)
}

// Close waits for running statements and closes the pool.
func (c *Conn) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// ensureFile creates the database file when it does not exist yet.
func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// dataSource appends per-connection pragmas, so every pooled connection gets them.
func dataSource(path string) string {
	if path == memoryPath || strings.HasPrefix(path, "file:") {
		return path
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return path + "?" + q.Encode()
}

func connectionError(fallback string, err error) *database.ConnectionError {
	code := fallback
	var sqlErr *sqlite3.Error
	if errors.As(err, &sqlErr) {
		code = strconv.Itoa(sqlErr.Code())
	}
	return &database.ConnectionError{Code: code, Message: err.Error(), Err: err}
}
