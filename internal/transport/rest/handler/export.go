package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"vigilore/internal/service"
)

// ExportHandler handles export generation and retrieval
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Create handles POST /v1/interviews/{id}/export
func (h *ExportHandler) Create(w http.ResponseWriter, r *http.Request) {
	export, err := h.exports.Export(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, export)
}

// Get handles GET /v1/exports/{sessionId}
func (h *ExportHandler) Get(w http.ResponseWriter, r *http.Request) {
	export, err := h.exports.Get(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, export)
}
