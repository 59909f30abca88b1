// Package api serves the dashboard backend over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/claimguard/internal/domain"
	"github.com/opensource-finance/claimguard/internal/predict"
	"github.com/opensource-finance/claimguard/internal/session"
	"github.com/opensource-finance/claimguard/internal/worker"
)

// Deps are the components the handlers read and mutate.
type Deps struct {
	Repository domain.Repository
	Cache      domain.Cache
	EventBus   domain.EventBus
	Sessions   *session.Store
	Workflow   *predict.Workflow
	Worker     *worker.Worker
	Limiter    *SessionLimiter
	Version    string

	// HistoryLimit caps GET /predictions when no limit is given.
	HistoryLimit int
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Deps) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health and reference data need no session.
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Get("/dashboard", handler.Dashboard)
	router.Get("/models", handler.ListModels)
	router.Get("/models/{id}", handler.GetModel)
	router.Get("/features", handler.Features)
	router.Get("/form", handler.Form)
	router.Get("/stats/predictions", handler.PredictionStats)

	router.Group(func(r chi.Router) {
		r.Use(SessionMiddleware)

		r.Get("/session", handler.GetSession)
		r.Put("/session", handler.UpdateSession)
		r.Patch("/session/form", handler.UpdateForm)
		r.Delete("/session/form", handler.ResetForm)

		r.With(RateLimitMiddleware(deps.Limiter)).Post("/predict", handler.Predict)

		r.Get("/predictions", handler.ListPredictions)
		r.Get("/predictions/{id}", handler.GetPrediction)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start listens until Shutdown. It returns http.ErrServerClosed after a
// graceful stop.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
