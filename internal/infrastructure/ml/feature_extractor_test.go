package ml

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"risk-scoring-engine/internal/domain/transaction"
	"risk-scoring-engine/internal/infrastructure/state"
)

func testTx(amount float64, at time.Time) *transaction.Transaction {
	return &transaction.Transaction{
		ID:        uuid.New(),
		UserID:    "u1",
		DeviceID:  "d1",
		Type:      transaction.TypeTransfer,
		Amount:    decimal.NewFromFloat(amount),
		Currency:  "NGN",
		CreatedAt: at,
	}
}

func fullAggregates() *state.Aggregates {
	return &state.Aggregates{
		AmountHistoryOK:  true,
		DeviceOK:         true,
		GeoOK:            true,
		SummaryOK:        true,
		DeviceUsers:      []string{"u1", "u2"},
		UniqueDevices24h: 2,
		TxCount24h:       4,
		AvgAmount24h:     10_000,
		TxCount7d:        12,
		AvgAmount7d:      8_000,
	}
}

func TestExtractLengthAndFiniteness(t *testing.T) {
	e := NewFeatureExtractor(DefaultFeatureStats())
	vector := e.Extract(testTx(5000, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)), fullAggregates())

	require.Len(t, vector, FeatureCount)
	for i, v := range vector {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "feature %d not finite", i)
	}
}

func TestExtractNormalization(t *testing.T) {
	stats := DefaultFeatureStats()
	e := NewFeatureExtractor(stats)

	at := time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC) // Monday, 18:00
	vector := e.Extract(testTx(250_000, at), fullAggregates())

	assert.InDelta(t, (250_000-stats[featAmount].Mean)/stats[featAmount].Std, vector[featAmount], 1e-9)
	assert.InDelta(t, (18-stats[featHour].Mean)/stats[featHour].Std, vector[featHour], 1e-9)
	assert.InDelta(t, (1-stats[featDayOfWeek].Mean)/stats[featDayOfWeek].Std, vector[featDayOfWeek], 1e-9)
	// known device set is non-empty, so the new-device flag is 0
	assert.InDelta(t, (0-stats[featIsNewDevice].Mean)/stats[featIsNewDevice].Std, vector[featIsNewDevice], 1e-9)
	assert.InDelta(t, (2-stats[featDeviceUserCount].Mean)/stats[featDeviceUserCount].Std, vector[featDeviceUserCount], 1e-9)
	assert.InDelta(t, (4-stats[featTxCount24h].Mean)/stats[featTxCount24h].Std, vector[featTxCount24h], 1e-9)
}

func TestExtractNewDeviceFlag(t *testing.T) {
	stats := DefaultFeatureStats()
	e := NewFeatureExtractor(stats)

	agg := fullAggregates()
	agg.DeviceUsers = nil

	vector := e.Extract(testTx(1000, time.Now()), agg)
	assert.InDelta(t, (1-stats[featIsNewDevice].Mean)/stats[featIsNewDevice].Std, vector[featIsNewDevice], 1e-9)
}

func TestExtractDegradedWindowsNormalizeToZero(t *testing.T) {
	e := NewFeatureExtractor(DefaultFeatureStats())

	// no window group reachable: history-derived features sit at their means
	vector := e.Extract(testTx(1000, time.Now()), &state.Aggregates{})

	for _, i := range []int{featIsNewDevice, featDeviceUserCount, featTxCount24h, featAvgAmount24h, featTxCount7d, featAvgAmount7d, featUniqueDevices24h} {
		assert.InDelta(t, 0, vector[i], 1e-9, "feature %d", i)
	}
}

func TestExtractReplacesNonFiniteInputs(t *testing.T) {
	e := NewFeatureExtractor(DefaultFeatureStats())

	agg := fullAggregates()
	agg.AvgAmount24h = math.NaN()
	agg.AvgAmount7d = math.Inf(1)

	vector := e.Extract(testTx(1000, time.Now()), agg)
	assert.InDelta(t, 0, vector[featAvgAmount24h], 1e-9)
	assert.InDelta(t, 0, vector[featAvgAmount7d], 1e-9)
}
