package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is an interface for dependencies that can be health-checked
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints. A nil checker means the
// dependency was unavailable at startup and the engine is running on its
// in-memory substitute.
type HealthHandler struct {
	dbClient HealthChecker
	kvClient HealthChecker
	version  string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(dbClient, kvClient HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		dbClient: dbClient,
		kvClient: kvClient,
		version:  version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string)
	ready := true

	check := func(name string, checker HealthChecker) {
		if checker == nil {
			services[name] = "standalone (in-memory)"
			return
		}
		if err := checker.Ping(ctx); err != nil {
			services[name] = "unhealthy: " + err.Error()
			ready = false
		} else {
			services[name] = "healthy"
		}
	}
	check("postgres", h.dbClient)
	check("redis", h.kvClient)

	response := HealthResponse{
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	}

	if ready {
		response.Status = "ready"
		writeJSON(w, http.StatusOK, response)
	} else {
		response.Status = "not ready"
		writeJSON(w, http.StatusServiceUnavailable, response)
	}
}

// Live handles GET /live
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
