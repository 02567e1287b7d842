// Package web provides the HTTP server and handlers for the indicator explorer.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/healthdash/internal/config"
	"github.com/JonMunkholm/healthdash/internal/core"
	mw "github.com/JonMunkholm/healthdash/internal/web/middleware"
)

// Server is the HTTP server for the indicator explorer.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	// stop ends the rate limiter cleanup loops.
	stop context.CancelFunc
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
		stop:    stop,
	}
	s.setupMiddleware()
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	limit := func(perMinute int) func(http.Handler) http.Handler {
		if !s.cfg.Rate.Enabled || perMinute <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		return newRateLimiter(ctx, perMinute, time.Minute).middleware
	}
	timeout := func(d time.Duration) func(http.Handler) http.Handler {
		if d <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.Timeout(d)
	}

	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(limit(s.cfg.Rate.RequestsPerMinute))
		r.Use(timeout(s.cfg.Server.RequestTimeout))
		r.Use(s.sessionMiddleware)

		// Pages
		r.Get("/", s.handleDashboard)

		// Reference data
		r.Get("/api/sources", s.handleListSources)
		r.Get("/api/indicators", s.handleListIndicators)
		r.Get("/api/countries", s.handleListCountries)

		// Explore mode
		r.Get("/api/explore", s.handleExplore)
	})

	// Profiles fetch every profile indicator and wait for the narrative,
	// so they get their own limit and timeout.
	s.router.Group(func(r chi.Router) {
		r.Use(limit(s.cfg.Rate.ProfileLimit))
		r.Use(timeout(s.cfg.Server.ProfileTimeout))
		r.Use(s.sessionMiddleware)

		r.Get("/profile/{country}", s.handleProfilePage)
		r.Get("/api/profile/{country}", s.handleProfile)
		r.Get("/api/profile/{country}/export", s.handleProfileExport)
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// The dashboard uses inline script and style and loads nothing else.
			if csp {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
