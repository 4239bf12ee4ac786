package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"vigilore/internal/bank"
	"vigilore/internal/model"
	"vigilore/internal/service"
)

// InterviewHandler handles interview lifecycle endpoints
type InterviewHandler struct {
	interviews *service.InterviewService
}

// NewInterviewHandler creates a new interview handler
func NewInterviewHandler(interviews *service.InterviewService) *InterviewHandler {
	return &InterviewHandler{interviews: interviews}
}

// Start handles POST /v1/interviews
func (h *InterviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.interviews.StartSession(r.Context(), req)
	if err != nil {
		var nf *bank.NotFoundError
		if errors.As(err, &nf) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// Get handles GET /v1/interviews/{id}
func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.interviews.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Progress handles GET /v1/interviews/{id}/progress
func (h *InterviewHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session, err := h.interviews.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	categories, err := h.interviews.CategoryProgress(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId":            session.SessionID,
		"status":               session.Status,
		"progressPercentage":   session.ProgressPercentage,
		"answeredQuestions":    len(session.Answers),
		"totalQuestions":       session.TotalQuestions,
		"estimatedSecondsLeft": session.EstimatedSecondsLeft,
		"categoriesCompleted":  session.CategoriesCompleted,
		"categories":           categories,
	})
}

// NextQuestion handles GET /v1/interviews/{id}/question/next
func (h *InterviewHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.interviews.NextQuestion(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if question == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"question": nil, "complete": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"question": question, "complete": false})
}

// SubmitAnswer handles POST /v1/interviews/{id}/answers
func (h *InterviewHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.interviews.SubmitAnswer(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if resp.Status == model.SubmissionValidationError {
		if resp.ValidationError != nil && resp.ValidationError.ErrorType == model.ErrSessionError &&
			strings.Contains(resp.ValidationError.Message, "not found") {
			status = http.StatusNotFound
		} else {
			status = http.StatusUnprocessableEntity
		}
	}
	writeJSON(w, status, resp)
}

// ClarificationsRequest carries answered deep-dive exchanges to attach. An
// empty body asks the server to generate clarification questions instead.
type ClarificationsRequest struct {
	Clarifications []model.AIClarification `json:"clarifications"`
}

// Clarifications handles POST /v1/interviews/{id}/answers/{questionId}/clarifications
func (h *InterviewHandler) Clarifications(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, questionID := vars["id"], vars["questionId"]

	var req ClarificationsRequest
	if r.Body != nil {
		// tolerate an empty body
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if len(req.Clarifications) > 0 {
		if err := h.interviews.RecordClarifications(r.Context(), id, questionID, req.Clarifications); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"recorded": len(req.Clarifications)})
		return
	}

	clars, err := h.interviews.GenerateClarifications(r.Context(), id, questionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"clarifications": clars})
}

// Pause handles POST /v1/interviews/{id}/pause
func (h *InterviewHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.interviews.Pause)
}

// Resume handles POST /v1/interviews/{id}/resume
func (h *InterviewHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.interviews.Resume)
}

// Abandon handles POST /v1/interviews/{id}/abandon
func (h *InterviewHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.interviews.Abandon)
}

// Complete handles POST /v1/interviews/{id}/complete
func (h *InterviewHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.interviews.Complete)
}

func (h *InterviewHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*model.InterviewSession, error)) {
	session, err := fn(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}
