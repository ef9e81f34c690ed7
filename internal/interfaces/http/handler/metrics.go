package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the engine metrics (scoring latency, decisions,
// model fallbacks and updates) from the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
