// Package httpapi serves the REST and streaming status surface used by the
// web dashboard and automation.
package httpapi

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/felixgeelhaar/shiplift/internal/infrastructure/sse"
	"github.com/felixgeelhaar/shiplift/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/domain/progress"
)

// DefaultAddr is where serve listens unless told otherwise.
const DefaultAddr = ":8357"

// Server is the status API server.
type Server struct {
	addr      string
	config    *application.ConfigService
	scan      *application.ScanService
	migration *application.MigrationService
	publisher *progress.Publisher
	logger    *zap.Logger
	version   string
	server    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version string reported by the health endpoint.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// NewServer creates a server over an assembled service graph.
func NewServer(addr string, services *wiring.AppServices, opts ...Option) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:      addr,
		config:    services.Config,
		scan:      services.Scan,
		migration: services.Migration,
		publisher: services.Publisher,
		logger:    services.Logger,
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/config", s.handleSaveConfig)
	mux.HandleFunc("DELETE /api/config", s.handleDeleteConfig)
	mux.HandleFunc("GET /api/test-connection", s.handleTestConnection)
	mux.HandleFunc("POST /api/scan", s.handleStartScan)
	mux.HandleFunc("GET /api/scan/status", s.handleScanStatus)
	mux.HandleFunc("GET /api/scan/results", s.handleScanResults)
	mux.HandleFunc("GET /api/repos", s.handleRepos)
	mux.HandleFunc("POST /api/migrate", s.handleStartMigration)
	mux.HandleFunc("GET /api/migrate/status", s.handleMigrationStatus)
	mux.HandleFunc("GET /ws/progress", s.handleProgressWS)
	mux.Handle("GET /api/events", sse.NewHandler(s.publisher))

	return s.withLogging(mux)
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
	}

	s.logger.Info("Status server starting", zap.String("addr", s.addr))
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server. Streaming
// connections end when the publisher closes.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// statusRecorder captures the response code for request logging while
// passing hijack and flush through to the streaming handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
