package risk

import "github.com/google/uuid"

// Action is the engine's recommendation for a scored transaction
type Action string

const (
	ActionAllow Action = "ALLOW"
	ActionDeny  Action = "DENY"
)

// Assessment is the outcome of scoring one transaction
type Assessment struct {
	TransactionID     uuid.UUID `json:"transaction_id"`
	RiskScore         float64   `json:"risk_score"`
	IsHighRisk        bool      `json:"is_high_risk"`
	Reasons           []string  `json:"reasons"`
	RecommendedAction Action    `json:"recommended_action"`
}
