package database

import (
	"errors"
	"fmt"
)

// Connection failure codes used when the backend did not supply its own.
const (
	CodeInvalidDSN  = "invalid_dsn"
	CodeUnreachable = "unreachable"
	CodeFileCreate  = "file_create"
	CodeBootstrap   = "bootstrap"
)

// ErrTableNotFound is wrapped by SchemaError when the catalog knows no such table.
var ErrTableNotFound = errors.New("table not found")

// ConnectionError is the terminal failure of a connection. Every operation on
// a failed connection returns an error wrapping it.
type ConnectionError struct {
	Code    string
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error [%s]: %s", e.Code, e.Message)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError is a driver-reported failure of a statement.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// BindError reports arguments that cannot be bound to a statement: a count
// that does not match its placeholders, or a value kind the backend refuses.
type BindError struct {
	Expected int
	Got      int
	Index    int
	Kind     Kind
	Reason   string
}

func (e *BindError) Error() string {
	if e.Reason != "" && e.Index < 0 {
		return "bind error: " + e.Reason
	}
	if e.Reason != "" {
		return fmt.Sprintf("bind error: argument %d (%s): %s", e.Index+1, e.Kind, e.Reason)
	}
	return fmt.Sprintf("bind error: statement expects %d argument(s), got %d", e.Expected, e.Got)
}

// ParseError reports a result column whose reported type has no decoding, or
// whose value does not fit the type it reported.
type ParseError struct {
	Column   string
	Index    int
	TypeName string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: column %q (%s): %v", e.Column, e.TypeName, e.Err)
	}
	return fmt.Sprintf("parse error: column %q has unsupported type %q", e.Column, e.TypeName)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError reports a failed or malformed table introspection.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: table %q: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// KindOf returns the short label of the error's category, or "error" when
// err is none of this package's types.
func KindOf(err error) string {
	var (
		connErr   *ConnectionError
		queryErr  *QueryError
		bindErr   *BindError
		parseErr  *ParseError
		schemaErr *SchemaError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &bindErr):
		return "bind"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &schemaErr):
		return "schema"
	case errors.As(err, &queryErr):
		return "query"
	case errors.As(err, &connErr):
		return "connection"
	default:
		return "error"
	}
}
