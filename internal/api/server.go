// Package api serves the autoapply REST interface.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/blackwell-systems/autoapply/internal/config"
	"github.com/blackwell-systems/autoapply/internal/session"
)

// Version is reported by the index route.
const Version = "1.0.0"

// Server holds the router and the components handlers act on.
type Server struct {
	router  *chi.Mux
	config  *config.Store
	manager *session.Manager
	started time.Time
}

// NewServer creates a Server backed by cfg and mgr.
func NewServer(cfg *config.Store, mgr *session.Manager) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		manager: mgr,
		started: time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", s.handleHealth)
	s.router.Post("/auth/login", s.handleLogin)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Get("/auth/status", s.handleAuthStatus)

		r.Get("/config", s.handleGetConfig)
		r.Post("/config", s.handleSaveConfig)

		r.Get("/statistics", s.handleStatistics)
		r.Get("/statistics/advanced", s.handleAdvancedStatistics)

		r.Post("/session/start", s.handleStartSession)
		r.Get("/session/{id}", s.handleGetSession)

		r.Delete("/data", s.handleClearData)
	})
}
