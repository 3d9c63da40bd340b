package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/safespace/safespace-agent/internal/handler/chat"
	"github.com/safespace/safespace-agent/internal/handler/media"
	"github.com/safespace/safespace-agent/internal/handler/sessions"
	"github.com/safespace/safespace-agent/internal/handler/system"
	middlewarePkg "github.com/safespace/safespace-agent/internal/middleware"
	"github.com/safespace/safespace-agent/internal/service/knowledge"
	"github.com/safespace/safespace-agent/internal/service/orchestrator"
)

// NewRouter wires HTTP routes to the interaction orchestrator.
func NewRouter(orch *orchestrator.Orchestrator, kb *knowledge.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(orch)
	mediaHandler := media.New(orch)
	sessionHandler := sessions.New(orch)
	systemHandler := system.New(orch, kb)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		mediaHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		systemHandler.RegisterRoutes(api)
	})

	return r
}
