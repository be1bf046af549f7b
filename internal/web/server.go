// Package web provides the HTTP API for batch reconciliation and
// chain-of-command lookups.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/JonMunkholm/orgsync/internal/config"
	"github.com/JonMunkholm/orgsync/internal/core"
	"github.com/JonMunkholm/orgsync/internal/web/middleware"
)

// Server is the HTTP server.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	limits  limiter.Store
}

// NewServer creates a Server for service configured by cfg.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.limits = newLimiterStore(cfg.Rate)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func newLimiterStore(cfg config.RateLimitConfig) limiter.Store {
	if cfg.Storage == "redis" {
		store, err := middleware.NewRedisStore(cfg.RedisURL)
		if err == nil {
			return store
		}
		slog.Warn("redis rate limit store unavailable, falling back to memory", "error", err)
	}
	return middleware.NewMemoryStore()
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	if s.cfg.Telemetry.TracingEnabled {
		s.router.Use(middleware.Tracing)
	}
	if s.cfg.Telemetry.MetricsEnabled {
		s.router.Use(middleware.Metrics)
	}
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.cfg.Telemetry.MetricsEnabled {
		s.router.Handle(s.cfg.Telemetry.MetricsPath, promhttp.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))

		// Batch upload has its own budget and runs under the batch
		// timeout, so it sits outside the request timeout group.
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit("upload", s.cfg.Rate.UploadLimit))
			r.Post("/employees/upload", s.handleUpload)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit("api", s.cfg.Rate.RequestsPerMinute))
			if s.cfg.Server.RequestTimeout > 0 {
				r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
			}
			r.Get("/employees/{email}", s.handleGetEmployee)
			r.Get("/employees/{email}/chain", s.handleGetChain)
			r.Get("/batches/status", s.handleBatchStatus)
		})
	})
}

// rateLimit returns the limiter for a route group, or a pass-through when
// rate limiting is disabled.
func (s *Server) rateLimit(prefix string, perMinute int) func(http.Handler) http.Handler {
	if s.limits == nil || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerPeriod: perMinute,
		Prefix:            prefix,
		Store:             s.limits,
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	sc := s.cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	slog.Info("starting server", "addr", sc.Addr())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v with the given status. Encoding errors are logged
// since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
