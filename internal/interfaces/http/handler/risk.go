package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	riskapp "risk-scoring-engine/internal/application/risk"
	riskdomain "risk-scoring-engine/internal/domain/risk"
	"risk-scoring-engine/internal/domain/transaction"
)

// RiskHandler handles the scoring, feedback and statistics endpoints
type RiskHandler struct {
	scoreUseCase      *riskapp.ScoreTransactionUseCase
	reportUseCase     *riskapp.ReportFraudUseCase
	statisticsUseCase *riskapp.StatisticsUseCase
}

// NewRiskHandler creates a new risk handler
func NewRiskHandler(
	scoreUseCase *riskapp.ScoreTransactionUseCase,
	reportUseCase *riskapp.ReportFraudUseCase,
	statisticsUseCase *riskapp.StatisticsUseCase,
) *RiskHandler {
	return &RiskHandler{
		scoreUseCase:      scoreUseCase,
		reportUseCase:     reportUseCase,
		statisticsUseCase: statisticsUseCase,
	}
}

// ScoreTransaction handles POST /api/v1/risk/score
func (h *RiskHandler) ScoreTransaction(w http.ResponseWriter, r *http.Request) {
	var req riskapp.ScoreTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.scoreUseCase.Execute(r.Context(), &req, clientIP(r))
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ReportFraud handles POST /api/v1/risk/feedback
func (h *RiskHandler) ReportFraud(w http.ResponseWriter, r *http.Request) {
	var req riskapp.ReportFraudRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.reportUseCase.Execute(r.Context(), &req)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Statistics handles GET /api/v1/risk/statistics
func (h *RiskHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	result, err := h.statisticsUseCase.Execute(r.Context())
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeUseCaseError maps the error taxonomy onto status codes: validation
// 400, unknown transaction 404, transient infrastructure 503, deadline 504.
func writeUseCaseError(w http.ResponseWriter, err error) {
	var invalid *riskapp.ValidationError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": invalid.Fields,
		})
	case errors.Is(err, transaction.ErrNotFound):
		writeError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "Scoring deadline exceeded")
	case errors.Is(err, riskdomain.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Dependency unavailable: "+err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Request failed: "+err.Error())
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the peer address
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
