package router

import (
	"net/http"

	"risk-scoring-engine/internal/interfaces/http/handler"
)

// Router holds all HTTP handlers
type Router struct {
	mux           *http.ServeMux
	riskHandler   *handler.RiskHandler
	healthHandler *handler.HealthHandler
}

// NewRouter creates a new router with all routes configured
func NewRouter(
	riskHandler *handler.RiskHandler,
	healthHandler *handler.HealthHandler,
) *Router {
	r := &Router{
		mux:           http.NewServeMux(),
		riskHandler:   riskHandler,
		healthHandler: healthHandler,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// Health endpoints
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	r.mux.HandleFunc("GET /ready", r.healthHandler.Ready)
	r.mux.HandleFunc("GET /live", r.healthHandler.Live)

	// Metrics
	r.mux.Handle("GET /metrics", handler.MetricsHandler())

	// Risk scoring endpoints
	r.mux.HandleFunc("POST /api/v1/risk/score", r.riskHandler.ScoreTransaction)
	r.mux.HandleFunc("POST /api/v1/risk/feedback", r.riskHandler.ReportFraud)
	r.mux.HandleFunc("GET /api/v1/risk/statistics", r.riskHandler.Statistics)
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
