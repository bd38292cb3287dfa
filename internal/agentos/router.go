package agentos

import (
	"net/http"

	mw "github.com/Harshitk-cp/agente-basico/internal/agentos/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

func (o *AgentOS) newRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(o.metrics.Middleware)
	r.Use(mw.Logging(o.logger))
	r.Use(middleware.Recoverer)
	r.Use(o.limiter.Middleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   o.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: true,
	}).Handler)

	// Public
	r.Get("/health", o.handleHealth)
	r.Get("/docs", o.handleDocs)
	r.Get("/openapi.json", o.handleOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(mw.SecurityKeyAuth(o.opts.SecurityKey))

		r.Get("/config", o.handleConfig)
		r.Get("/metrics", o.handleMetrics)

		r.Get("/agents", o.handleListAgents)
		r.Get("/agents/{agent_id}", o.handleGetAgent)
		r.Post("/agents/{agent_id}/runs", o.handleCreateRun)

		r.Get("/sessions", o.handleListSessions)
		r.Get("/sessions/{session_id}", o.handleGetSession)
		r.Get("/sessions/{session_id}/runs", o.handleSessionRuns)
		r.Delete("/sessions/{session_id}", o.handleDeleteSession)
	})

	o.docs = collectRoutes(r)
	return r
}
