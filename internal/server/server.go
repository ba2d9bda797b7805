// Package server exposes the dashboard's users, stored files and metrics
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/joacominatel/dbdash/internal/app"
	"github.com/joacominatel/dbdash/internal/auth"
)

// ErrAlreadyRunning is returned by Start on a running server.
var ErrAlreadyRunning = errors.New("server already running")

// Options controls the HTTP listener.
type Options struct {
	Addr         string
	StorageDir   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is an HTTP API that can be started and stopped repeatedly.
type Server struct {
	opts    Options
	service *app.Service
	tokens  *auth.Tokens
	revoker auth.Revoker
	handler http.Handler

	mu   sync.Mutex
	srv  *http.Server
	addr string
}

// New builds a server. revoker may be nil, in which case logout only
// succeeds without invalidating the token.
func New(opts Options, service *app.Service, tokens *auth.Tokens, revoker auth.Revoker) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	s := &Server{
		opts:    opts,
		service: service,
		tokens:  tokens,
		revoker: revoker,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	s.srv = srv
	s.addr = ln.Addr().String()

	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("api server started")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("api server error")
		}
	}()
	return nil
}

// Shutdown stops accepting connections and waits for active requests until
// ctx expires. Stopping a stopped server is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv, s.addr = nil, ""
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	log.Info().Err(err).Msg("api server stopped")
	return err
}

// Running reports whether the server is serving.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}

// Addr returns the bound address while running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Prepare makes sure the connected database has the users table the API
// authenticates against.
func (s *Server) Prepare(ctx context.Context) error {
	conn, err := s.service.Conn()
	if err != nil {
		return err
	}
	return auth.NewStore(conn).Migrate(ctx)
}
