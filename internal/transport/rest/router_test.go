package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigilore/internal/bank"
	"vigilore/internal/service"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	registry, err := bank.Load()
	require.NoError(t, err)
	interviews := service.NewInterviewService(registry, nil, nil, nil, nil, nil)
	exports := service.NewExportService(interviews, nil, nil, nil)
	return NewRouter(&Container{
		Registry:         registry,
		InterviewService: interviews,
		ExportService:    exports,
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListFrameworks(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/v1/frameworks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "DRC_Mining_Code")
	assert.Contains(t, rec.Body.String(), "ISO_14001")
}

func TestFrameworkQuestionsAndCategories(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/frameworks/DRC_Mining_Code/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Permits")

	rec = doJSON(t, router, http.MethodGet, "/v1/frameworks/DRC_Mining_Code/questions?category=Permits", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "drc_001")
	assert.NotContains(t, rec.Body.String(), "drc_010")

	rec = doJSON(t, router, http.MethodGet, "/v1/frameworks/no_such/questions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInterviewLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	// unknown framework
	rec := doJSON(t, router, http.MethodPost, "/v1/interviews", map[string]interface{}{
		"framework": "no_such", "siteName": "X", "auditorName": "Y",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/interviews", map[string]interface{}{
		"framework":   "DRC_Mining_Code",
		"siteName":    "Kamoto Site",
		"auditorName": "A. Mwamba",
		"categories":  []string{"Permits"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var session struct {
		SessionID      string `json:"sessionId"`
		TotalQuestions int    `json:"totalQuestions"`
	}
	decode(t, rec, &session)
	require.NotEmpty(t, session.SessionID)
	assert.Equal(t, 4, session.TotalQuestions)
	base := "/v1/interviews/" + session.SessionID

	rec = doJSON(t, router, http.MethodGet, base+"/question/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var next struct {
		Question *struct {
			ID string `json:"id"`
		} `json:"question"`
		Complete bool `json:"complete"`
	}
	decode(t, rec, &next)
	require.NotNil(t, next.Question)
	assert.Equal(t, "drc_001", next.Question.ID)

	// invalid answer comes back as 422 with the submission payload
	rec = doJSON(t, router, http.MethodPost, base+"/answers", map[string]interface{}{
		"questionId": "drc_001", "answer": "maybe",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "type_error")

	for _, submit := range []map[string]interface{}{
		{"questionId": "drc_001", "answer": true},
		{"questionId": "drc_002", "answer": "2024-03-15"},
		{"questionId": "drc_003", "answer": true},
		{"questionId": "drc_004", "answer": []string{"None - all documents current"}},
	} {
		rec = doJSON(t, router, http.MethodPost, base+"/answers", submit)
		require.Equal(t, http.StatusOK, rec.Code, "question %v: %s", submit["questionId"], rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, base+"/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress struct {
		Status             string  `json:"status"`
		ProgressPercentage float64 `json:"progressPercentage"`
		AnsweredQuestions  int     `json:"answeredQuestions"`
	}
	decode(t, rec, &progress)
	assert.Equal(t, "completed", progress.Status)
	assert.Equal(t, 100.0, progress.ProgressPercentage)
	assert.Equal(t, 4, progress.AnsweredQuestions)

	rec = doJSON(t, router, http.MethodGet, base+"/question/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"complete":true`)

	rec = doJSON(t, router, http.MethodPost, base+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "structuredResponses")
	assert.Contains(t, rec.Body.String(), "complianceScores")
}

func TestInterviewTransitionsOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/interviews", map[string]interface{}{
		"framework": "DRC_Mining_Code", "siteName": "Kolwezi Site", "auditorName": "B. Ilunga",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var session struct {
		SessionID string `json:"sessionId"`
	}
	decode(t, rec, &session)
	base := "/v1/interviews/" + session.SessionID

	rec = doJSON(t, router, http.MethodPost, base+"/pause", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// pausing a paused session is a conflict
	rec = doJSON(t, router, http.MethodPost, base+"/pause", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/resume", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/abandon", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "abandoned")

	rec = doJSON(t, router, http.MethodPost, "/v1/interviews/missing/pause", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClarificationsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/interviews", map[string]interface{}{
		"framework": "DRC_Mining_Code", "siteName": "Kamoto Site", "auditorName": "A. Mwamba",
		"categories": []string{"Permits"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var session struct {
		SessionID string `json:"sessionId"`
	}
	decode(t, rec, &session)
	base := fmt.Sprintf("/v1/interviews/%s/answers", session.SessionID)

	rec = doJSON(t, router, http.MethodPost, base, map[string]interface{}{
		"questionId": "drc_001", "answer": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"needsAiFollowup":true`)

	// no provider configured: generation degrades to an empty list
	rec = doJSON(t, router, http.MethodPost, base+"/drc_001/clarifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clarifications":[]}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, base+"/drc_001/clarifications", map[string]interface{}{
		"clarifications": []map[string]string{
			{"question": "Which authority issued the permit?", "answer": "CAMI"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"recorded":1}`, rec.Body.String())

	// unanswered question
	rec = doJSON(t, router, http.MethodPost, base+"/drc_002/clarifications", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
