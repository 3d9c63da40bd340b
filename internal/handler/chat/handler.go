package chat

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safespace/safespace-agent/internal/model/therapy"
	"github.com/safespace/safespace-agent/pkg/utils"
)

// Orchestrator is the slice of the interaction orchestrator the chat
// endpoints need.
type Orchestrator interface {
	ProcessText(ctx context.Context, sessionID, message string) therapy.Response
	Regenerate(ctx context.Context, sessionID string) (therapy.Response, bool)
}

// Handler serves the conversational endpoints.
type Handler struct {
	orch Orchestrator
}

func New(orch Orchestrator) *Handler {
	return &Handler{orch: orch}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ask", h.handleAsk)
	r.Post("/regenerate", h.handleRegenerate)
	r.Get("/stream/{sessionID}", h.handleStream)
}

type askRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type askResponse struct {
	Response      string   `json:"response"`
	ResponseType  string   `json:"responseType"`
	ToolsUsed     []string `json:"toolsUsed"`
	Confidence    float64  `json:"confidence"`
	EmergencyFlag bool     `json:"emergencyFlag"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload askRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp := h.orch.ProcessText(r.Context(), payload.SessionID, payload.Message)
	utils.RespondJSON(w, http.StatusOK, askResponse{
		Response:      resp.Content,
		ResponseType:  string(resp.Type),
		ToolsUsed:     resp.ToolsUsed,
		Confidence:    resp.Confidence,
		EmergencyFlag: resp.EmergencyFlag,
	})
}

// handleRegenerate replaces the latest assistant reply with a fresh one.
func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	resp, ok := h.orch.Regenerate(r.Context(), payload.SessionID)
	if !ok {
		utils.RespondError(w, http.StatusConflict, "no assistant reply to regenerate")
		return
	}
	utils.RespondJSON(w, http.StatusOK, askResponse{
		Response:      resp.Content,
		ResponseType:  string(resp.Type),
		ToolsUsed:     resp.ToolsUsed,
		Confidence:    resp.Confidence,
		EmergencyFlag: resp.EmergencyFlag,
	})
}

// handleStream is the SSE variant of ask: a status frame, the full
// response frame, then a done frame.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEChunk(w, flusher, map[string]any{
		"event":   "status",
		"message": "processing",
	})

	resp := h.orch.ProcessText(r.Context(), sessionID, message)

	utils.SendSSEChunk(w, flusher, map[string]any{
		"event":         "response",
		"content":       resp.Content,
		"responseType":  string(resp.Type),
		"toolsUsed":     resp.ToolsUsed,
		"confidence":    resp.Confidence,
		"emergencyFlag": resp.EmergencyFlag,
	})
	utils.SendSSEChunk(w, flusher, map[string]any{"event": "done"})
}
