package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/joacominatel/dbdash/internal/database"
)

// SchemaTree represents the loaded schema hierarchy for the explorer.
type SchemaTree struct {
	Database string
	Backend  database.Backend
	Tables   []string
}

// Result is the outcome of one statement run through the service.
type Result struct {
	Statement   string
	ReturnsRows bool
	Columns     []string
	Records     []database.Record
	Affected    int64
	Duration    time.Duration
}

// rowKeywords start statements that produce a result set.
var rowKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"PRAGMA":  true,
	"VALUES":  true,
	"EXPLAIN": true,
	"SHOW":    true,
	"TABLE":   true,
}

// Service coordinates application-level operations between the TUI, the HTTP
// API and the database. It holds one explicit connection handle; callers on
// any goroutine may use it.
type Service struct {
	opts database.Options

	mu      sync.RWMutex
	conn    database.Conn
	dsn     string
	backend database.Backend
}

// NewService creates a new application service.
func NewService(opts database.Options) *Service {
	return &Service{opts: opts}
}

// Connect opens a connection through the backend registry. An empty backend
// is detected from the DSN. A previous connection is closed once the new one
// is ready; on failure it stays in place.
func (s *Service) Connect(ctx context.Context, backend database.Backend, dsn string) error {
	if backend == "" {
		backend = database.DetectBackend(dsn)
	}

	conn, err := database.Open(ctx, backend, dsn, s.opts)
	if err != nil {
		return &ErrConnection{Backend: string(backend), Cause: err}
	}
	if err := conn.Err(); err != nil {
		_ = conn.Close()
		log.Warn().Err(err).Str("backend", string(backend)).Msg("connect failed")
		return &ErrConnection{Backend: string(backend), Cause: err}
	}

	s.mu.Lock()
	old := s.conn
	s.conn, s.dsn, s.backend = conn, dsn, backend
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	log.Info().Str("backend", string(backend)).Str("database", conn.Name()).Msg("connected")
	return nil
}

// Disconnect closes the database connection.
func (s *Service) Disconnect() error {
	s.mu.Lock()
	conn := s.conn
	s.conn, s.dsn = nil, ""
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Conn returns the current connection.
func (s *Service) Conn() (database.Conn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn, nil
}

// Connected reports whether a connection is open.
func (s *Service) Connected() bool {
	_, err := s.Conn()
	return err == nil
}

// DSN returns the connection string of the current connection.
func (s *Service) DSN() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dsn
}

// Backend returns the backend of the current connection.
func (s *Service) Backend() database.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

// DatabaseName returns the current database name.
func (s *Service) DatabaseName() string {
	conn, err := s.Conn()
	if err != nil {
		return ""
	}
	return conn.Name()
}

// LoadSchemaTree fetches the tables of the connected database.
func (s *Service) LoadSchemaTree(ctx context.Context) (*SchemaTree, error) {
	conn, err := s.Conn()
	if err != nil {
		return nil, err
	}

	tables, err := conn.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	return &SchemaTree{
		Database: conn.Name(),
		Backend:  conn.Backend(),
		Tables:   tables,
	}, nil
}

// LoadTables returns the table names of the connected database.
func (s *Service) LoadTables(ctx context.Context) ([]string, error) {
	conn, err := s.Conn()
	if err != nil {
		return nil, err
	}
	return conn.ListTables(ctx)
}

// AllTableNames flattens a schema tree into the names used for completion.
func (s *Service) AllTableNames(tree *SchemaTree) []string {
	if tree == nil {
		return nil
	}
	names := make([]string, len(tree.Tables))
	copy(names, tree.Tables)
	return names
}

// LoadColumns fetches column metadata for a specific table.
func (s *Service) LoadColumns(ctx context.Context, table string) ([]database.Column, error) {
	conn, err := s.Conn()
	if err != nil {
		return nil, err
	}
	return conn.TableInfo(ctx, table)
}

// Run executes one statement. Row-returning statements are decoded into
// records; everything else reports the affected row count.
func (s *Service) Run(ctx context.Context, query string, args ...database.Value) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ErrQuery{Query: query, Cause: errors.New("empty statement")}
	}

	conn, err := s.Conn()
	if err != nil {
		return nil, err
	}

	res := &Result{Statement: query, ReturnsRows: ReturnsRows(query)}
	kind := "exec"
	if res.ReturnsRows {
		kind = "query"
	}

	start := time.Now()
	if res.ReturnsRows {
		err = s.query(ctx, conn, res, args)
	} else {
		res.Affected, err = conn.Execute(ctx, query, args...)
	}
	res.Duration = time.Since(start)

	backend := string(conn.Backend())
	statementDuration.WithLabelValues(backend, kind).Observe(res.Duration.Seconds())

	if err != nil {
		outcome := ErrorKind(err)
		statementsTotal.WithLabelValues(backend, kind, outcome).Inc()
		log.Debug().Err(err).Str("backend", backend).Str("kind", kind).Msg("statement failed")
		return nil, &ErrQuery{Query: query, Cause: err}
	}

	statementsTotal.WithLabelValues(backend, kind, "ok").Inc()
	log.Debug().
		Str("backend", backend).
		Str("kind", kind).
		Int("records", len(res.Records)).
		Int64("affected", res.Affected).
		Dur("duration", res.Duration).
		Msg("statement")
	return res, nil
}

func (s *Service) query(ctx context.Context, conn database.Conn, res *Result, args []database.Value) error {
	fields, rows, err := conn.QueryFields(ctx, res.Statement, args...)
	if err != nil {
		return err
	}
	records, err := conn.Decode(rows)
	if err != nil {
		return err
	}
	res.Records = records
	res.Columns = columnNames(fields)
	return nil
}

// columnNames lists field names once each, in first-seen order, matching
// the keys of a decoded record.
func columnNames(fields []database.Field) []string {
	names := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		names = append(names, f.Name)
	}
	return names
}

// ReturnsRows reports whether a statement produces a result set: it starts
// with a row keyword or carries a RETURNING clause.
func ReturnsRows(query string) bool {
	words := strings.Fields(strings.ToUpper(stripLeadingComments(query)))
	if len(words) == 0 {
		return false
	}
	first := strings.TrimLeft(words[0], "(")
	if rowKeywords[first] {
		return true
	}
	for _, w := range words[1:] {
		if w == "RETURNING" {
			return true
		}
	}
	return false
}

func stripLeadingComments(q string) string {
	for {
		q = strings.TrimSpace(q)
		switch {
		case strings.HasPrefix(q, "--"):
			idx := strings.IndexByte(q, '\n')
			if idx == -1 {
				return ""
			}
			q = q[idx+1:]
		case strings.HasPrefix(q, "/*"):
			idx := strings.Index(q, "*/")
			if idx == -1 {
				return ""
			}
			q = q[idx+2:]
		default:
			return q
		}
	}
}
