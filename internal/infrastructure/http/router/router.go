package router

import (
	"net/http"

	"fraud-risk-engine/internal/interfaces/http/handler"
)

// Router holds all HTTP handlers
type Router struct {
	mux            *http.ServeMux
	riskHandler    *handler.RiskHandler
	healthHandler  *handler.HealthHandler
	metricsHandler http.Handler
}

// NewRouter creates a new router with all routes configured
func NewRouter(
	riskHandler *handler.RiskHandler,
	healthHandler *handler.HealthHandler,
	metricsHandler http.Handler,
) *Router {
	r := &Router{
		mux:            http.NewServeMux(),
		riskHandler:    riskHandler,
		healthHandler:  healthHandler,
		metricsHandler: metricsHandler,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// Health endpoints
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	r.mux.HandleFunc("GET /ready", r.healthHandler.Ready)
	r.mux.HandleFunc("GET /live", r.healthHandler.Live)

	// Risk analysis endpoints
	r.mux.HandleFunc("POST /api/v1/risk/analyze", r.riskHandler.Analyze)
	r.mux.HandleFunc("POST /api/v1/risk/analyze/batch", r.riskHandler.BatchAnalyze)

	// Bulk dataset ingestion
	r.mux.HandleFunc("POST /api/v1/risk/ingest", r.riskHandler.IngestCSV)

	// User profiles
	r.mux.HandleFunc("GET /api/v1/risk/users/{id}/profile", r.riskHandler.GetUserProfile)

	// Recorded transactions and dashboard
	r.mux.HandleFunc("GET /api/v1/risk/transactions", r.riskHandler.ListTransactions)
	r.mux.HandleFunc("GET /api/v1/risk/dashboard", r.riskHandler.Dashboard)

	// Prometheus metrics
	if r.metricsHandler != nil {
		r.mux.Handle("GET /metrics", r.metricsHandler)
	}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r
}
