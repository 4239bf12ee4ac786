package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"vigilore/internal/bank"
	"vigilore/internal/metrics"
	"vigilore/internal/service"
	"vigilore/internal/transport/rest/handler"
	"vigilore/internal/transport/rest/middleware"
	"vigilore/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	Registry         *bank.Registry
	InterviewService *service.InterviewService
	ExportService    *service.ExportService
	Metrics          *metrics.Metrics
	WSHub            *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	frameworkHandler := handler.NewFrameworkHandler(c.Registry)
	interviewHandler := handler.NewInterviewHandler(c.InterviewService)
	exportHandler := handler.NewExportHandler(c.ExportService)
	wsHandler := ws.NewHandler(c.WSHub, c.InterviewService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)
	r.Use(middleware.Observe(c.Metrics))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")
	}

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Framework catalog
	v1.HandleFunc("/frameworks", frameworkHandler.List).Methods("GET", "OPTIONS")
	v1.HandleFunc("/frameworks/{id}/categories", frameworkHandler.Categories).Methods("GET", "OPTIONS")
	v1.HandleFunc("/frameworks/{id}/questions", frameworkHandler.Questions).Methods("GET", "OPTIONS")

	// Interview lifecycle
	v1.HandleFunc("/interviews", interviewHandler.Start).Methods("POST", "OPTIONS")
	v1.HandleFunc("/interviews/{id}", interviewHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/interviews/{id}/progress", interviewHandler.Progress).Methods("GET", "OPTIONS")
	v1.HandleFunc("/interviews/{id}/question/next", interviewHandler.NextQuestion).Methods("GET", "OPTIONS")
	v1.HandleFunc("/interviews/{id}/answers", interviewHandler.SubmitAnswer).Methods("POST", "OPTIONS")
	v1.HandleFunc("/interviews/{id}/answers/{questionId}/clarifications", interviewHandler.Clarifications).Methods("POST", "OPTIONS")
	v1.HandleFunc("/interviews/{id}/pause", interviewHandler.Pause).Methods("POST", "OPTIONS")
	v1.HandleFunc("/interviews/{id}/resume", interviewHandler.Resume).Methods("POST", "OPTIONS")
	v1.HandleFunc("/interviews/{id}/abandon", interviewHandler.Abandon).Methods("POST", "OPTIONS")
	v1.HandleFunc("/interviews/{id}/complete", interviewHandler.Complete).Methods("POST", "OPTIONS")

	// Exports
	v1.HandleFunc("/interviews/{id}/export", exportHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/exports/{sessionId}", exportHandler.Get).Methods("GET", "OPTIONS")

	// WebSocket observer stream
	v1.HandleFunc("/ws/interviews/{id}", wsHandler.ObserveWS).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
