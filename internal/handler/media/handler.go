package media

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safespace/safespace-agent/internal/model/therapy"
	"github.com/safespace/safespace-agent/pkg/utils"
)

// Orchestrator is the slice of the interaction orchestrator the media
// endpoints need.
type Orchestrator interface {
	ProcessImage(ctx context.Context, sessionID, imageRef, query string) (therapy.Response, therapy.ImageAnalysis)
	ProcessAudio(ctx context.Context, sessionID, audioRef string, transcriptionOnly bool) (therapy.Response, therapy.VoiceAnalysis)
	ProcessMultimodal(ctx context.Context, sessionID, text, imageRef, audioRef string) therapy.Response
	GenerateVoice(ctx context.Context, text string, usePremium bool) (string, bool, error)
}

// Handler serves image, audio, multimodal, and voice-synthesis endpoints.
type Handler struct {
	orch Orchestrator
}

func New(orch Orchestrator) *Handler {
	return &Handler{orch: orch}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze-image", h.handleAnalyzeImage)
	r.Post("/process-audio", h.handleProcessAudio)
	r.Post("/multimodal-query", h.handleMultimodal)
	r.Post("/generate-voice", h.handleGenerateVoice)
}

func (h *Handler) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		ImageRef  string `json:"imageRef"`
		Query     string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" || payload.ImageRef == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId and imageRef are required")
		return
	}

	resp, analysis := h.orch.ProcessImage(r.Context(), payload.SessionID, payload.ImageRef, payload.Query)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"response":   resp.Content,
		"toolsUsed":  resp.ToolsUsed,
		"confidence": resp.Confidence,
		"analysis":   analysis,
	})
}

func (h *Handler) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID         string `json:"sessionId"`
		AudioRef          string `json:"audioRef"`
		TranscriptionOnly bool   `json:"transcriptionOnly"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" || payload.AudioRef == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId and audioRef are required")
		return
	}

	resp, analysis := h.orch.ProcessAudio(r.Context(), payload.SessionID, payload.AudioRef, payload.TranscriptionOnly)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"transcription": analysis.Transcription,
		"urgencyLevel":  analysis.UrgencyLevel,
		"response":      resp.Content,
		"toolsUsed":     resp.ToolsUsed,
		"confidence":    resp.Confidence,
		"emergencyFlag": resp.EmergencyFlag,
	})
}

func (h *Handler) handleMultimodal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Text      string `json:"text"`
		ImageRef  string `json:"imageRef"`
		AudioRef  string `json:"audioRef"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	resp := h.orch.ProcessMultimodal(r.Context(), payload.SessionID, payload.Text, payload.ImageRef, payload.AudioRef)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"response":      resp.Content,
		"toolsUsed":     resp.ToolsUsed,
		"confidence":    resp.Confidence,
		"emergencyFlag": resp.EmergencyFlag,
	})
}

func (h *Handler) handleGenerateVoice(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text       string `json:"text"`
		UsePremium bool   `json:"usePremium"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	audioRef, premium, err := h.orch.GenerateVoice(r.Context(), payload.Text, payload.UsePremium)
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "voice generation failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"audioRef":    audioRef,
		"premiumUsed": premium,
	})
}
