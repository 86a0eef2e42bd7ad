// Package web serves report results over HTTP: JSON under /api and an
// HTML table under /reports.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/transactions/internal/config"
	"github.com/JonMunkholm/transactions/internal/core"
	"github.com/JonMunkholm/transactions/internal/database"
	"github.com/JonMunkholm/transactions/internal/logging"
	"github.com/JonMunkholm/transactions/internal/metrics"
	"github.com/JonMunkholm/transactions/internal/web/middleware"
)

// Opener opens a database session. *database.Connector satisfies it.
type Opener interface {
	Connect(ctx context.Context, cfg config.DatabaseConfig) (database.Session, error)
}

// Options carries the server's collaborators.
type Options struct {
	Service  *core.Service
	Opener   Opener
	Database config.DatabaseConfig

	// Query supplies the filters used when a request omits them.
	Query   config.QueryConfig
	Metrics *metrics.Metrics
}

// Server is the HTTP report server. Each request opens and closes its own
// session.
type Server struct {
	opts    Options
	cfg     config.ServerConfig
	limiter *sessionLimiter
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server with middleware and routes installed.
func NewServer(cfg config.ServerConfig, opts Options) *Server {
	s := &Server{
		opts:    opts,
		cfg:     cfg,
		limiter: newSessionLimiter(cfg.MaxSessions, cfg.SessionWait),
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		s.router.Handle("/metrics", s.opts.Metrics.Handler())
	}

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(s.cfg.Keys()))

		r.Get("/api/reports", s.handleListReports)
		r.Get("/api/reports/{name}", s.handleReportJSON)
		r.Get("/reports/{name}", s.handleReportHTML)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	logging.FromContext(context.Background()).Info("serve.start", "addr", s.server.Addr)
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

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON. Encoding errors are only logged since the
// headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
