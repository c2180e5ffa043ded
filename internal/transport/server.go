package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	defaultPort            = 8080
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 120 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultMaxBodyBytes    = 1 << 20
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	AllowedOrigins  []string
	Service         SlidesService
	Version         string
	Logger          *slog.Logger
}

// DefaultServerConfig returns configuration with default values.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            defaultPort,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		IdleTimeout:     defaultIdleTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		MaxBodyBytes:    defaultMaxBodyBytes,
		AllowedOrigins:  []string{"*"},
		Version:         "1.0.0",
		Logger:          slog.Default(),
	}
}

// APIKeyMiddleware is the interface for API key validation middleware.
type APIKeyMiddleware interface {
	Middleware(next http.HandlerFunc) http.HandlerFunc
}

// RateLimitMiddleware is the interface for rate limiting middleware.
type RateLimitMiddleware interface {
	Middleware(next http.HandlerFunc) http.HandlerFunc
}

// Server is the Slides content HTTP server.
type Server struct {
	config              ServerConfig
	httpServer          *http.Server
	mux                 *http.ServeMux
	service             SlidesService
	apiKeyMiddleware    APIKeyMiddleware
	rateLimitMiddleware RateLimitMiddleware
	logger              *slog.Logger
	mu                  sync.RWMutex
	running             bool
}

// NewServer creates a new HTTP server.
func NewServer(config ServerConfig) *Server {
	if config.Port == 0 {
		config.Port = defaultPort
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaultReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaultWriteTimeout
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = defaultIdleTimeout
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	if config.Version == "" {
		config.Version = "1.0.0"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		config:  config,
		mux:     http.NewServeMux(),
		service: config.Service,
		logger:  config.Logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// No auth
	s.mux.HandleFunc("/", s.withMiddleware(s.handleRoot))
	s.mux.HandleFunc("/health", s.withMiddleware(s.handleHealth))

	// API key and rate limit
	s.mux.HandleFunc("/template", s.withMiddleware(s.protected(s.handleTemplate)))
	s.mux.HandleFunc("/slides/read", s.withMiddleware(s.protected(s.handleRead)))
	s.mux.HandleFunc("/slides/write", s.withMiddleware(s.protected(s.handleWrite)))
	s.mux.HandleFunc("/slides/write/cells", s.withMiddleware(s.protected(s.handleWriteCells)))
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// protected authenticates the caller, then rate limits per caller.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.withAPIKeyAuth(s.withRateLimit(next))
}

// withAPIKeyAuth wraps a handler with API key authentication.
func (s *Server) withAPIKeyAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKeyMiddleware != nil {
			s.apiKeyMiddleware.Middleware(next)(w, r)
		} else {
			next(w, r)
		}
	}
}

// withRateLimit wraps a handler with rate limiting.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimitMiddleware != nil {
			s.rateLimitMiddleware.Middleware(next)(w, r)
		} else {
			next(w, r)
		}
	}
}

// SetAPIKeyMiddleware sets the API key validation middleware.
func (s *Server) SetAPIKeyMiddleware(middleware APIKeyMiddleware) {
	s.apiKeyMiddleware = middleware
}

// SetRateLimitMiddleware sets the rate limiting middleware.
func (s *Server) SetRateLimitMiddleware(middleware RateLimitMiddleware) {
	s.rateLimitMiddleware = middleware
}

// withMiddleware wraps a handler with CORS and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		s.applyCORS(w, r)

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.Info("request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.statusCode),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_addr", r.RemoteAddr),
		)
	}
}

// applyCORS applies CORS headers to the response.
func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	allowed := false
	for _, o := range s.config.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}

	if allowed {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")
	}
}

// Start starts the HTTP server and blocks until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.mux,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Info("starting slides content server",
		slog.Int("port", s.config.Port),
		slog.String("version", s.config.Version),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		if err == nil {
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("server shutdown complete")
	return nil
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.config.Port
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
