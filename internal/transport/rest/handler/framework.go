package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"vigilore/internal/bank"
)

// FrameworkHandler serves the question bank catalog
type FrameworkHandler struct {
	registry *bank.Registry
}

// NewFrameworkHandler creates a new framework handler
func NewFrameworkHandler(registry *bank.Registry) *FrameworkHandler {
	return &FrameworkHandler{registry: registry}
}

// List handles GET /v1/frameworks
func (h *FrameworkHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"frameworks": h.registry.Frameworks(),
	})
}

// Categories handles GET /v1/frameworks/{id}/categories
func (h *FrameworkHandler) Categories(w http.ResponseWriter, r *http.Request) {
	b, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		var nf *bank.NotFoundError
		if errors.As(err, &nf) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"framework":  b.Framework,
		"categories": b.Categories(),
	})
}

// Questions handles GET /v1/frameworks/{id}/questions with an optional
// category query filter
func (h *FrameworkHandler) Questions(w http.ResponseWriter, r *http.Request) {
	b, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		var nf *bank.NotFoundError
		if errors.As(err, &nf) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var categories []string
	if c := r.URL.Query()["category"]; len(c) > 0 {
		categories = c
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"framework": b.Framework,
		"questions": b.MainQuestions(categories),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
