package sessions

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safespace/safespace-agent/internal/model/session"
	"github.com/safespace/safespace-agent/pkg/utils"
)

// Orchestrator is the slice of the interaction orchestrator the session
// endpoints need.
type Orchestrator interface {
	History(sessionID string) (session.Session, bool)
	ClearSession(sessionID string) bool
	EndSession(sessionID string) *session.Summary
}

// Handler serves session history and lifecycle endpoints.
type Handler struct {
	orch Orchestrator
}

func New(orch Orchestrator) *Handler {
	return &Handler{orch: orch}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/{sessionID}", h.handleHistory)
	r.Delete("/session/{sessionID}", h.handleClear)
	r.Post("/session/{sessionID}/end", h.handleEnd)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, ok := h.orch.History(sessionID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, sess)
}

// handleClear resets the log in place. Clearing an unknown session is a
// no-op, reported as cleared=false rather than an error.
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	cleared := h.orch.ClearSession(sessionID)
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
}

// handleEnd summarizes and evicts the session. Ending an unknown session
// is a no-op.
func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	summary := h.orch.EndSession(sessionID)
	if summary == nil {
		utils.RespondJSON(w, http.StatusOK, map[string]any{"ended": false})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"ended":   true,
		"summary": summary,
	})
}
