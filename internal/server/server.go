// Package server assembles the HTTP surface of the content hub: router,
// middleware ordering, and the binding between endpoints and their
// admission guards.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lorehall/lorehall/internal/config"
	"github.com/lorehall/lorehall/internal/server/handlers"
	servermw "github.com/lorehall/lorehall/internal/server/middleware"
)

// Server represents the HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	logger *zap.Logger
}

// New wires the router. Middleware order matters: request id first for
// correlation, then logging, then CORS ahead of the per-route guards so
// preflights are answered before any limiter runs.
func New(cfg config.ServerConfig, api *handlers.API, health *handlers.HealthManager, version handlers.VersionInfo, logger *zap.Logger) *Server {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestLogger(logger))
	r.Use(servermw.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	s := &Server{
		router: r,
		cfg:    cfg,
		logger: logger,
	}

	s.registerRoutes(api, health, version)
	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
