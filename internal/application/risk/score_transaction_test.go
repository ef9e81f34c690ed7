package risk

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	riskdomain "risk-scoring-engine/internal/domain/risk"
	memorydb "risk-scoring-engine/internal/infrastructure/database/memory"
	"risk-scoring-engine/internal/infrastructure/kv"
	"risk-scoring-engine/internal/infrastructure/ml"
	"risk-scoring-engine/internal/infrastructure/rules"
	"risk-scoring-engine/internal/infrastructure/state"
)

func newUseCases(t *testing.T) (*ScoreTransactionUseCase, *ReportFraudUseCase, *StatisticsUseCase) {
	t.Helper()
	store := kv.NewMemoryStore()
	log := zap.NewNop()
	service := riskdomain.NewService(
		state.NewWindows(store, log),
		rules.NewEngine(rules.DefaultConfig(), log),
		ml.NewFeatureExtractor(ml.DefaultFeatureStats()),
		ml.NewScorer(t.TempDir(), store, log),
		memorydb.NewTransactionRepository(),
		riskdomain.Config{RuleWeight: 1, ModelWeight: 0, FlagThreshold: 0.7},
		log,
		nil,
	)
	return NewScoreTransactionUseCase(service, 5*time.Second),
		NewReportFraudUseCase(service),
		NewStatisticsUseCase(service)
}

func validRequest() *ScoreTransactionRequest {
	return &ScoreTransactionRequest{
		UserID:          "u1",
		DeviceID:        "d1",
		Amount:          decimal.NewFromInt(5000),
		Currency:        "NGN",
		TransactionType: "TRANSFER",
	}
}

func TestScoreRequestSucceeds(t *testing.T) {
	score, _, _ := newUseCases(t)

	resp, err := score.Execute(context.Background(), validRequest(), "203.0.113.10")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.TransactionID)
	assert.Equal(t, "ALLOW", resp.RecommendedAction)
	assert.False(t, resp.IsHighRisk)
	assert.NotNil(t, resp.Reasons)
}

func TestScoreRequestMissingFields(t *testing.T) {
	score, _, _ := newUseCases(t)

	req := &ScoreTransactionRequest{Amount: decimal.NewFromInt(100)}
	_, err := score.Execute(context.Background(), req, "")

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Fields, "userId")
	assert.Contains(t, invalid.Fields, "deviceId")
	assert.Contains(t, invalid.Fields, "currency")
	assert.Contains(t, invalid.Fields, "transactionType")
}

func TestScoreRequestRejectsBadType(t *testing.T) {
	score, _, _ := newUseCases(t)

	req := validRequest()
	req.TransactionType = "WIRE"
	_, err := score.Execute(context.Background(), req, "")

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Fields, "transactionType")
}

func TestScoreRequestRejectsNegativeAmount(t *testing.T) {
	score, _, _ := newUseCases(t)

	req := validRequest()
	req.Amount = decimal.NewFromInt(-5)
	_, err := score.Execute(context.Background(), req, "")

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Fields, "amount")
}

func TestScoreRequestRejectsBadCoordinates(t *testing.T) {
	score, _, _ := newUseCases(t)

	req := validRequest()
	req.Location = &LocationPayload{Latitude: 123, Longitude: 10}
	_, err := score.Execute(context.Background(), req, "")

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Fields, "latitude")
}

func TestReportFraudRoundTrip(t *testing.T) {
	score, report, _ := newUseCases(t)

	resp, err := score.Execute(context.Background(), validRequest(), "")
	require.NoError(t, err)

	wasFraud := true
	ack, err := report.Execute(context.Background(), &ReportFraudRequest{
		TransactionID:    resp.TransactionID,
		WasActuallyFraud: &wasFraud,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", ack.Message)
}

func TestReportFraudRequiresLabel(t *testing.T) {
	_, report, _ := newUseCases(t)

	_, err := report.Execute(context.Background(), &ReportFraudRequest{
		TransactionID: "0b961d72-49a9-4f76-9161-cbcdfb0a3c4c",
	})

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Fields, "wasActuallyFraud")
}

func TestReportFraudRejectsBadID(t *testing.T) {
	_, report, _ := newUseCases(t)

	wasFraud := false
	_, err := report.Execute(context.Background(), &ReportFraudRequest{
		TransactionID:    "not-a-uuid",
		WasActuallyFraud: &wasFraud,
	})

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
}

func TestStatisticsShape(t *testing.T) {
	score, _, stats := newUseCases(t)

	_, err := score.Execute(context.Background(), validRequest(), "")
	require.NoError(t, err)

	resp, err := stats.Execute(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Last24Hours)
	assert.Len(t, resp.RiskDistribution, 3)
}
