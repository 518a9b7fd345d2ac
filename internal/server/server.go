// Package server exposes checklist sessions, comment overrides and report
// history over HTTP/JSON.
//
// Identity is taken from the X-QA-User header as an opaque key; nothing is
// authenticated here.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/identity"
	"github.com/mayerbet/QAtool/internal/report"
	"github.com/mayerbet/QAtool/internal/session"
)

// APIVersion is reported by /health.
const APIVersion = 1

// UserHeader carries the caller's user key.
const UserHeader = "X-QA-User"

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// ErrServerDisabled is returned by Start when server.enabled is false.
var ErrServerDisabled = errors.New("server: disabled in config")

// Logger is the minimal logging surface the server needs.
type Logger interface {
	Printf(format string, args ...any)
}

// HistorySource lists a user's saved reports.
type HistorySource interface {
	ListReports(ctx context.Context, user identity.UserID) ([]report.Record, error)
}

// Server wraps the HTTP listener and handlers.
type Server struct {
	settings Settings
	deps     session.Deps
	history  HistorySource
	logger   Logger
	clock    func() time.Time
	sessions *registry

	mu        sync.RWMutex
	server    *http.Server
	listener  net.Listener
	status    ServerStatus
	startTime time.Time
}

// Option customizes server construction.
type Option func(*Server)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithHistory enables GET /api/history.
func WithHistory(h HistorySource) Option {
	return func(s *Server) {
		if h != nil {
			s.history = h
		}
	}
}

// NewServer prepares a server. deps are shared by every session it creates.
func NewServer(settings Settings, deps session.Deps, opts ...Option) *Server {
	settings.normalize()
	if deps.Resolver == nil {
		deps.Resolver = comments.NewResolver(catalog.Snapshot{}, nil)
	}
	s := &Server{
		settings: settings,
		deps:     deps,
		logger:   nopLogger{},
		clock:    func() time.Time { return time.Now().UTC() },
		status:   StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.sessions = newRegistry(settings.SessionTTL, s.now)
	return s
}

// Handler returns the API routes without binding a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/topics", s.handleTopics)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("PUT /api/sessions/{id}/answers/{topic}", s.handleAnswer)
	mux.HandleFunc("POST /api/sessions/{id}/clear", s.handleClear)
	mux.HandleFunc("POST /api/sessions/{id}/report", s.handleGenerate)
	mux.HandleFunc("PUT /api/sessions/{id}/report", s.handleEditReport)
	mux.HandleFunc("POST /api/sessions/{id}/save", s.handleSave)
	mux.HandleFunc("GET /api/comments", s.handleListComments)
	mux.HandleFunc("PUT /api/comments/{topic}", s.handleSetComment)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	return mux
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server: server is nil")
	}
	if !s.settings.Enabled {
		return ErrServerDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("server: already started")
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.startTime = s.clock()
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("server: serve error: %v", err)
		}
	}()
	s.logger.Printf("server: listening on %s", listener.Addr().String())
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	s.status = StatusDraining
	deadline := ctx
	if deadline == nil {
		var cancel context.CancelFunc
		deadline, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(deadline); err != nil {
		return err
	}
	s.listener = nil
	s.server = nil
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL (scheme + host:port) for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return s.settings.URL()
	}
	return "http://" + addr
}

// Status reports the server's lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}

func (s *Server) uptimeSeconds() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startTime.IsZero() {
		return 0
	}
	return int64(s.now().Sub(s.startTime).Seconds())
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
