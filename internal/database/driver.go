package database

import "context"

// Backend names a database implementation.
type Backend string

const (
	SQLite   Backend = "sqlite"
	Postgres Backend = "postgres"
)

// State is the terminal state a connection reaches once constructed.
type State int

const (
	StateReady State = iota
	StateFailed
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "failed"
}

// Options tunes the connection pool.
type Options struct {
	MaxConns int32
	MinConns int32
}

// Conn is a pooled connection to one database. Once constructed it never
// changes state; all methods are safe for concurrent use. A connection whose
// construction failed answers every operation with an error wrapping its
// *ConnectionError and never touches the database.
type Conn interface {
	// Backend reports which implementation serves the connection.
	Backend() Backend

	// Name returns the database name (or file name for embedded databases).
	Name() string

	// State reports Ready or Failed.
	State() State

	// Err returns the *ConnectionError of a failed connection, or nil.
	Err() error

	// Ping checks that a pooled connection can reach the database.
	Ping(ctx context.Context) error

	// QueryAll runs a row-returning statement with positional arguments.
	QueryAll(ctx context.Context, query string, args ...Value) ([]Row, error)

	// QueryFields is QueryAll that also returns the result's fields, known
	// even when the statement yields no rows.
	QueryFields(ctx context.Context, query string, args ...Value) ([]Field, []Row, error)

	// Execute runs a statement and returns the number of affected rows.
	Execute(ctx context.Context, query string, args ...Value) (int64, error)

	// TableInfo returns the columns of a table in declaration order.
	TableInfo(ctx context.Context, table string) ([]Column, error)

	// ListTables returns the user tables, sorted by name.
	ListTables(ctx context.Context) ([]string, error)

	// Decode converts native rows into records using each column's reported type.
	Decode(rows []Row) ([]Record, error)

	// Close waits for in-flight operations and releases the pool.
	Close() error
}
