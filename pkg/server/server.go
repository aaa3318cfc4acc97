package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/querysync/internal/config"
	"github.com/vango-dev/querysync/pkg/middleware"
	"github.com/vango-dev/querysync/pkg/querysync"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Server is the HTTP/websocket server.
type Server struct {
	config *config.Config
	mux    chi.Router
	logger *slog.Logger

	upgrader websocket.Upgrader

	registry  *prometheus.Registry
	metrics   *middleware.Metrics
	qsMetrics *querysync.Metrics
	tracer    trace.Tracer

	mu       sync.RWMutex
	sessions map[string]*Session

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry sets the Prometheus registry. Default: a fresh registry
// with the Go and process collectors.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

// WithTracer sets the tracer. Default: otel.Tracer(cfg.Tracing.Tracer) when
// tracing is enabled, a no-op tracer otherwise.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// New creates a Server for cfg. A nil cfg uses config.New().
func New(cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.New()
	}

	s := &Server{
		config:   cfg,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	if s.tracer == nil {
		if cfg.Tracing.Enabled {
			s.tracer = otel.Tracer(cfg.Tracing.Tracer)
		} else {
			s.tracer = noop.NewTracerProvider().Tracer(cfg.Tracing.Tracer)
		}
	}

	if cfg.Metrics.Enabled {
		if s.registry == nil {
			s.registry = prometheus.NewRegistry()
			s.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}
		s.metrics = middleware.NewMetrics(
			middleware.WithRegistry(s.registry),
			middleware.WithNamespace(cfg.Metrics.Namespace),
		)
		s.qsMetrics = querysync.NewMetrics(
			querysync.WithRegistry(s.registry),
			querysync.WithNamespace(cfg.Metrics.Namespace),
		)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.mux = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.metrics.Handler)
	if s.config.Tracing.Enabled {
		r.Use(middleware.OpenTelemetry(middleware.WithTracer(s.tracer)))
	}

	r.Get("/ws", s.HandleWebSocket)
	r.Get("/healthz", s.handleHealth)
	r.Get("/state", s.handleState)
	if s.registry != nil {
		r.Handle(s.config.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// HandleWebSocket upgrades the request and starts a session.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		s.metrics.WebSocketError("upgrade")
		return
	}

	sess := newSession(conn, s.config, s.logger, s.metrics, s.qsMetrics, s.tracer)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	go func() {
		<-sess.Done()
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
	}()

	s.logger.Info("session started", "session", sess.ID, "remote", r.RemoteAddr)
	sess.Start()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.config.Server.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range allowed {
		if o == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.SessionCount(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.States())
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// States returns a snapshot of every live session, sorted by ID.
func (s *Server) States() []SessionState {
	s.mu.RLock()
	states := make([]SessionState, 0, len(s.sessions))
	for _, sess := range s.sessions {
		states = append(states, sess.State())
	}
	s.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: s.config.ReadTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	for _, sess := range sessions {
		sess.Close()
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
