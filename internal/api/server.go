// SPDX-License-Identifier: MIT

// Package api provides the HTTP server for the workpulse daemon.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Aathif-M/workpulse/internal/api/middleware"
	"github.com/Aathif-M/workpulse/internal/auth"
	"github.com/Aathif-M/workpulse/internal/clock"
	"github.com/Aathif-M/workpulse/internal/config"
	"github.com/Aathif-M/workpulse/internal/hub"
	"github.com/Aathif-M/workpulse/internal/log"
	"github.com/Aathif-M/workpulse/internal/store"
)

// Sweeper lets mutating handlers trigger an immediate monitor pass instead
// of waiting for the next tick.
type Sweeper interface {
	Sweep(ctx context.Context)
}

// Server is the workpulse HTTP API server.
type Server struct {
	cfg      config.AppConfig
	store    *store.Store
	sessions auth.Sessions
	events   *hub.Hub
	clk      clock.Clock
	sweeper  Sweeper
	logger   zerolog.Logger
	version  string
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithSweeper attaches a break monitor for post-mutation sweeps.
func WithSweeper(s Sweeper) Option {
	return func(srv *Server) { srv.sweeper = s }
}

// WithVersion sets the build version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(srv *Server) { srv.version = v }
}

// New assembles the server from its collaborators.
func New(cfg config.AppConfig, st *store.Store, sessions auth.Sessions, events *hub.Hub, clk clock.Clock, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		events:   events,
		clk:      clk,
		logger:   log.WithComponent("api"),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with the canonical middleware stack and every
// API route mounted.
func (s *Server) Router() *chi.Mux {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:      true,
		AllowedOrigins:  s.cfg.AllowedOrigins,
		EnableMetrics:   true,
		TracingService:  tracingService(s.cfg),
		EnableLogging:   true,
		EnableRateLimit: s.cfg.RateLimitEnabled,
		RateLimitPerMin: s.cfg.RateLimitRPM,
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.LoginRateLimit())
			r.Post("/auth/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/auth/logout", s.handleLogout)
			r.Post("/auth/password", s.handleChangePassword)
			r.Get("/auth/me", s.handleMe)

			r.Post("/breaks/start", s.handleStartBreak)
			r.Post("/breaks/end", s.handleEndBreak)
			r.Get("/breaks/active", s.handleActiveBreak)
			r.Get("/breaks/history", s.handleHistory)

			r.Get("/break-types", s.handleListBreakTypes)

			r.Get("/events", s.handleEvents)

			r.Group(func(r chi.Router) {
				r.Use(s.requireManager)

				r.Get("/breaks/history/all", s.handleHistoryAll)
				r.Post("/breaks/{sessionID}/cancel", s.handleCancelBreak)

				r.Post("/break-types", s.handleCreateBreakType)
				r.Put("/break-types/{breakTypeID}", s.handleUpdateBreakType)
				r.Delete("/break-types/{breakTypeID}", s.handleDeleteBreakType)

				r.Get("/users", s.handleListUsers)
				r.Post("/users", s.handleCreateUser)
				r.Get("/users/{userID}", s.handleGetUser)
				r.Put("/users/{userID}", s.handleUpdateUser)
				r.Delete("/users/{userID}", s.handleDeleteUser)
				r.Post("/users/{userID}/logout", s.handleForceLogout)
			})
		})
	})

	return r
}

// sweep triggers an immediate monitor pass when one is attached.
func (s *Server) sweep(ctx context.Context) {
	if s.sweeper != nil {
		s.sweeper.Sweep(ctx)
	}
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.TracingEnabled {
		return ""
	}
	return "workpulse.api"
}

// handleHealth reports liveness plus build info.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}
