// Package http provides the HTTP server and handlers.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/developmentseed/stac-tiler/internal/application"
	"github.com/developmentseed/stac-tiler/internal/config"
	"github.com/developmentseed/stac-tiler/internal/ports/output"
)

// Deps carries the collaborators the server hands to its handlers.
type Deps struct {
	Registry  *application.ItemRegistry
	Health    *application.HealthService
	Janitor   *application.CacheJanitor // nil: no cache prune endpoint
	Opener    output.RasterOpener
	Evaluator output.Evaluator
	Metrics   output.MetricsCollector
	TileCache output.TileCache // nil: no tile caching
	// Middleware is appended to the router chain, e.g. the Prometheus
	// request middleware.
	Middleware []mux.MiddlewareFunc
	Logger     *slog.Logger
}

// Server wraps the HTTP server with application handlers.
type Server struct {
	server    *http.Server
	router    *mux.Router
	registry  *application.ItemRegistry
	health    *application.HealthService
	janitor   *application.CacheJanitor
	opener    output.RasterOpener
	eval      output.Evaluator
	metrics   output.MetricsCollector
	tiles     output.TileCache
	cors      *corsPolicy
	logger    *slog.Logger
	config    config.ServerConfig
	readerCfg config.ReaderConfig
}

// NewServer creates a new HTTP server.
func NewServer(cfg config.ServerConfig, readerCfg config.ReaderConfig, deps Deps) *Server {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}

	s := &Server{
		registry:  deps.Registry,
		health:    deps.Health,
		janitor:   deps.Janitor,
		opener:    deps.Opener,
		eval:      deps.Evaluator,
		metrics:   metrics,
		tiles:     deps.TileCache,
		logger:    deps.Logger,
		config:    cfg,
		readerCfg: readerCfg,
	}
	if cfg.CORS.Enabled() {
		s.cors = newCORSPolicy(cfg.CORS.AllowedOrigins)
	}

	s.router = s.setupRoutes(deps.Middleware)

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(extra []mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()

	// Add middleware
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	// Add CORS middleware if configured
	if s.cors != nil {
		r.Use(s.corsMiddleware)
	}

	for _, mw := range extra {
		r.Use(mw)
	}

	// Health endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()

	// Registry endpoints
	api.HandleFunc("/items", s.handleListItems).Methods(http.MethodGet)
	api.HandleFunc("/items/{itemId}/assets", s.handleAssets).Methods(http.MethodGet)

	// Read endpoints
	api.HandleFunc("/items/{itemId}/tiles/{z:[0-9]+}/{x:[0-9]+}/{y:[0-9]+}.png", s.handleTile).Methods(http.MethodGet)
	api.HandleFunc("/items/{itemId}/preview.png", s.handlePreview).Methods(http.MethodGet)
	// Coordinate segments need explicit patterns so the comma
	// separators are not swallowed by the default greedy match.
	coord := "-?[0-9]+(?:\\.[0-9]+)?"
	api.HandleFunc(fmt.Sprintf("/items/{itemId}/crop/{minx:%[1]s},{miny:%[1]s},{maxx:%[1]s},{maxy:%[1]s}.png", coord), s.handleCrop).Methods(http.MethodGet)
	api.HandleFunc(fmt.Sprintf("/items/{itemId}/point/{lon:%[1]s},{lat:%[1]s}", coord), s.handlePoint).Methods(http.MethodGet)
	api.HandleFunc("/items/{itemId}/statistics", s.handleStatistics).Methods(http.MethodGet)
	api.HandleFunc("/items/{itemId}/info", s.handleInfo).Methods(http.MethodGet)
	api.HandleFunc("/items/{itemId}/metadata", s.handleMetadata).Methods(http.MethodGet)

	// Cache prune endpoint (only if the janitor is configured)
	if s.janitor != nil {
		api.HandleFunc("/cache/prune", s.handlePrune).Methods(http.MethodPost)
	}

	// OpenAPI spec and Swagger UI
	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)
	r.HandleFunc("/docs", s.handleSwaggerUI).Methods(http.MethodGet)

	return r
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.config.Address())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
