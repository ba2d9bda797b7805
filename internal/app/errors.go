package app

import (
	"errors"
	"fmt"

	"github.com/joacominatel/dbdash/internal/database"
)

// ErrNotConnected is returned by operations that need an open connection.
var ErrNotConnected = errors.New("not connected")

// ErrConnection represents a database connection error. When the cause is
// already a classified database error its message is used as is.
type ErrConnection struct {
	Backend string
	Cause   error
}

func (e *ErrConnection) Error() string {
	if classified(e.Cause) {
		return e.Cause.Error()
	}
	if e.Backend != "" {
		return fmt.Sprintf("connection error (%s): %v", e.Backend, e.Cause)
	}
	return fmt.Sprintf("connection error: %v", e.Cause)
}

func (e *ErrConnection) Unwrap() error {
	return e.Cause
}

// ErrQuery represents a query execution error.
type ErrQuery struct {
	Query string
	Cause error
}

func (e *ErrQuery) Error() string {
	if classified(e.Cause) {
		return e.Cause.Error()
	}
	return fmt.Sprintf("query error: %v", e.Cause)
}

func (e *ErrQuery) Unwrap() error {
	return e.Cause
}

// ErrConfig represents a configuration error.
type ErrConfig struct {
	Cause error
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("config error: %v", e.Cause)
}

func (e *ErrConfig) Unwrap() error {
	return e.Cause
}

// ErrorKind labels err for display: the database error kind when there is
// one, otherwise the application error category.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if k := database.KindOf(err); k != "error" {
		return k
	}

	var (
		connErr  *ErrConnection
		queryErr *ErrQuery
		cfgErr   *ErrConfig
	)
	switch {
	case errors.As(err, &connErr):
		return "connection"
	case errors.As(err, &queryErr):
		return "query"
	case errors.As(err, &cfgErr):
		return "config"
	default:
		return "error"
	}
}

func classified(err error) bool {
	return err != nil && database.KindOf(err) != "error"
}
