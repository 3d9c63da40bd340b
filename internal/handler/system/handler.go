package system

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safespace/safespace-agent/internal/service/knowledge"
	"github.com/safespace/safespace-agent/internal/service/orchestrator"
	"github.com/safespace/safespace-agent/pkg/utils"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// StatusReporter exposes process health for the status endpoint.
type StatusReporter interface {
	GetStatus() orchestrator.Status
}

// Handler serves system status and knowledge-base uploads.
type Handler struct {
	status    StatusReporter
	knowledge *knowledge.Store
}

func New(status StatusReporter, kb *knowledge.Store) *Handler {
	return &Handler{status: status, knowledge: kb}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/system/status", h.handleStatus)
	r.Post("/upload", h.handleUpload)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := h.status.GetStatus()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"activeSessions": status.ActiveSessions,
		"providers":      status.Providers,
		"knowledgeDocs":  h.knowledge.Size(),
	})
}

// handleUpload adds one multipart document to the knowledge base.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	if err := h.knowledge.AddDocument(header.Filename, string(content)); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"name": header.Filename,
		"docs": h.knowledge.Size(),
	})
}
