// Package api serves quiz sessions over HTTP and WebSocket.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/p-n-ai/pai-reader/internal/agent"
	"github.com/p-n-ai/pai-reader/internal/platform/metrics"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StatsReader returns aggregated quiz statistics.
type StatsReader interface {
	Stats(ctx context.Context) (agent.Stats, error)
}

// Options holds dependencies for the API server.
type Options struct {
	Store          *agent.SessionStore
	Metrics        *metrics.Metrics
	Stats          StatsReader
	Checks         map[string]HealthChecker
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Server represents the HTTP API server
type Server struct {
	store   *agent.SessionStore
	metrics *metrics.Metrics
	stats   StatsReader
	checks  map[string]HealthChecker
	origins []string
	timeout time.Duration
	router  *chi.Mux
	now     func() time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	store := opts.Store
	if store == nil {
		store = agent.NewSessionStore(agent.StoreConfig{})
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Server{
		store:   store,
		metrics: opts.Metrics,
		stats:   opts.Stats,
		checks:  opts.Checks,
		origins: origins,
		timeout: timeout,
		now:     time.Now,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		timeout := middleware.Timeout(s.timeout)

		r.With(timeout).Get("/catalog", s.handleCatalog)
		r.With(timeout).Get("/stats", s.handleStats)
		r.With(timeout).Post("/sessions", s.handleCreateSession)

		r.Route("/sessions/{id}", func(r chi.Router) {
			// The stream is long-lived and skips the request timeout.
			r.Get("/stream", s.handleStream)

			r.Group(func(r chi.Router) {
				r.Use(timeout)
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/actions", s.handleAction)
				r.Get("/export.xlsx", s.handleExport)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog and counts them by route.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
			if s.metrics != nil {
				route := "unmatched"
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}
				s.metrics.ObserveRequest(route, strconv.Itoa(status))
			}
		}()

		next.ServeHTTP(ww, r)
	})
}
