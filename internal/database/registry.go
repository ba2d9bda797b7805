package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Opener constructs a connection for one backend. It must not return nil.
type Opener func(ctx context.Context, dsn string, opts Options) Conn

var (
	registryMu sync.RWMutex
	registry   = make(map[Backend]Opener)
)

// Register makes a backend available to Open. Backend packages call it from init.
func Register(backend Backend, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[backend] = open
}

// Registered returns the registered backend names, sorted.
func Registered() []Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Backend, 0, len(registry))
	for b := range registry {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Open connects through the registered backend. The returned connection may
// be in the Failed state; the error is only set when no such backend exists.
func Open(ctx context.Context, backend Backend, dsn string, opts Options) (Conn, error) {
	registryMu.RLock()
	open, ok := registry[backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (registered: %v)", backend, Registered())
	}
	return open(ctx, dsn, opts), nil
}

// DetectBackend guesses the backend from a connection string: PostgreSQL URLs
// and keyword/value DSNs select Postgres, anything else is a SQLite path.
func DetectBackend(dsn string) Backend {
	d := strings.TrimSpace(strings.ToLower(dsn))
	switch {
	case strings.HasPrefix(d, "postgres://"), strings.HasPrefix(d, "postgresql://"):
		return Postgres
	case strings.Contains(d, "host=") || strings.Contains(d, "dbname="):
		return Postgres
	default:
		return SQLite
	}
}
