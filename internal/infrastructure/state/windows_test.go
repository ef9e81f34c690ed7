package state

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"risk-scoring-engine/internal/domain/transaction"
	"risk-scoring-engine/internal/infrastructure/kv"
)

func newTx(userID, deviceID string, amount float64, at time.Time) *transaction.Transaction {
	return &transaction.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		DeviceID:  deviceID,
		Type:      transaction.TypeTransfer,
		Amount:    decimal.NewFromFloat(amount),
		Currency:  "NGN",
		CreatedAt: at,
	}
}

func TestGatherCountsOwnSample(t *testing.T) {
	ctx := context.Background()
	w := NewWindows(kv.NewMemoryStore(), zap.NewNop())

	agg, err := w.Gather(ctx, newTx("u1", "d1", 5000, time.Now()))
	require.NoError(t, err)

	// write-then-read: the transaction sees itself
	assert.Equal(t, int64(1), agg.VelocityLastMinute)
	assert.Equal(t, int64(1), agg.VelocityLastHour)
}

func TestGatherVelocityAccumulates(t *testing.T) {
	ctx := context.Background()
	w := NewWindows(kv.NewMemoryStore(), zap.NewNop())

	base := time.Now()
	for i := 0; i < 5; i++ {
		_, err := w.Gather(ctx, newTx("u1", "d1", 1000, base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	agg, err := w.Gather(ctx, newTx("u1", "d1", 1000, base.Add(6*time.Second)))
	require.NoError(t, err)
	assert.Equal(t, int64(6), agg.VelocityLastMinute)
}

func TestGatherAmountMeanExcludesCurrent(t *testing.T) {
	ctx := context.Background()
	w := NewWindows(kv.NewMemoryStore(), zap.NewNop())

	base := time.Now()
	agg, err := w.Gather(ctx, newTx("u1", "d1", 100, base))
	require.NoError(t, err)
	assert.True(t, agg.AmountHistoryOK)
	assert.Zero(t, agg.AmountCount24h)

	agg, err = w.Gather(ctx, newTx("u1", "d1", 500, base.Add(time.Second)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.AmountCount24h)
	assert.InDelta(t, 100, agg.AmountMean24h, 1e-9)
}

func TestGatherDeviceMembershipBeforeInsert(t *testing.T) {
	ctx := context.Background()
	w := NewWindows(kv.NewMemoryStore(), zap.NewNop())

	agg, err := w.Gather(ctx, newTx("u1", "d1", 100, time.Now()))
	require.NoError(t, err)
	assert.Empty(t, agg.DeviceUsers)
	assert.False(t, agg.KnownDevice("u1"))

	agg, err = w.Gather(ctx, newTx("u2", "d1", 100, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, agg.DeviceUsers)
	assert.False(t, agg.KnownDevice("u2"))

	agg, err = w.Gather(ctx, newTx("u1", "d1", 100, time.Now()))
	require.NoError(t, err)
	assert.True(t, agg.KnownDevice("u1"))
}

func TestGatherGeoReadsBeforeOverwrite(t *testing.T) {
	ctx := context.Background()
	w := NewWindows(kv.NewMemoryStore(), zap.NewNop())

	abuja := &transaction.Location{Latitude: 9.0765, Longitude: 7.3986}
	lagos := &transaction.Location{Latitude: 6.5244, Longitude: 3.3792}

	tx := newTx("u1", "d1", 100, time.Now())
	tx.Location = abuja
	agg, err := w.Gather(ctx, tx)
	require.NoError(t, err)
	assert.Nil(t, agg.LastGeo)

	tx = newTx("u1", "d1", 100, time.Now())
	tx.Location = lagos
	agg, err = w.Gather(ctx, tx)
	require.NoError(t, err)
	require.NotNil(t, agg.LastGeo)
	assert.InDelta(t, abuja.Latitude, agg.LastGeo.Lat, 1e-9)
	assert.InDelta(t, abuja.Longitude, agg.LastGeo.Lon, 1e-9)
}

func TestGatherGeoKeptWithoutLocation(t *testing.T) {
	ctx := context.Background()
	w := NewWindows(kv.NewMemoryStore(), zap.NewNop())

	tx := newTx("u1", "d1", 100, time.Now())
	tx.Location = &transaction.Location{Latitude: 9.0765, Longitude: 7.3986}
	_, err := w.Gather(ctx, tx)
	require.NoError(t, err)

	// no location on the second transaction: last geo is not overwritten
	agg, err := w.Gather(ctx, newTx("u1", "d1", 100, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, agg.LastGeo)
	assert.InDelta(t, 9.0765, agg.LastGeo.Lat, 1e-9)
}

func TestGatherSummaries(t *testing.T) {
	ctx := context.Background()
	w := NewWindows(kv.NewMemoryStore(), zap.NewNop())

	base := time.Now()
	for i, amount := range []float64{100, 200, 300} {
		_, err := w.Gather(ctx, newTx("u1", "d1", amount, base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	agg, err := w.Gather(ctx, newTx("u1", "d1", 999, base.Add(3*time.Second)))
	require.NoError(t, err)
	assert.True(t, agg.SummaryOK)
	assert.Equal(t, int64(3), agg.TxCount24h)
	assert.InDelta(t, 200, agg.AvgAmount24h, 1e-9)
	assert.Equal(t, int64(3), agg.TxCount7d)
	assert.InDelta(t, 200, agg.AvgAmount7d, 1e-9)
}

func TestGatherSummariesFilterByAge(t *testing.T) {
	ctx := context.Background()
	w := NewWindows(kv.NewMemoryStore(), zap.NewNop())

	base := time.Now()
	_, err := w.Gather(ctx, newTx("u1", "d1", 100, base.Add(-30*time.Hour)))
	require.NoError(t, err)
	_, err = w.Gather(ctx, newTx("u1", "d1", 400, base.Add(-time.Hour)))
	require.NoError(t, err)

	agg, err := w.Gather(ctx, newTx("u1", "d1", 999, base))
	require.NoError(t, err)

	// the 30h-old sample is outside the 24h window but inside the 7d window
	assert.Equal(t, int64(1), agg.TxCount24h)
	assert.InDelta(t, 400, agg.AvgAmount24h, 1e-9)
	assert.Equal(t, int64(2), agg.TxCount7d)
	assert.InDelta(t, 250, agg.AvgAmount7d, 1e-9)
}

func TestGatherUniqueDevices(t *testing.T) {
	ctx := context.Background()
	w := NewWindows(kv.NewMemoryStore(), zap.NewNop())

	_, err := w.Gather(ctx, newTx("u1", "d1", 100, time.Now()))
	require.NoError(t, err)
	agg, err := w.Gather(ctx, newTx("u1", "d2", 100, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, int64(2), agg.UniqueDevices24h)
}

func TestVelocityWindowExpires(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	w := NewWindows(store, zap.NewNop())

	base := time.Now()
	clock := base
	store.SetClock(func() time.Time { return clock })

	_, err := w.Gather(ctx, newTx("u1", "d1", 100, base))
	require.NoError(t, err)

	clock = base.Add(2 * time.Hour)
	agg, err := w.Gather(ctx, newTx("u1", "d1", 100, base.Add(2*time.Hour)))
	require.NoError(t, err)

	// the first sample's key expired; only the current sample remains
	assert.Equal(t, int64(1), agg.VelocityLastHour)
}

func TestPeekDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	w := NewWindows(kv.NewMemoryStore(), zap.NewNop())

	tx := newTx("u1", "d1", 100, time.Now())
	agg, err := w.Peek(ctx, tx)
	require.NoError(t, err)
	assert.Zero(t, agg.VelocityLastMinute)
	assert.Empty(t, agg.DeviceUsers)

	agg, err = w.Gather(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.VelocityLastMinute)
}

func TestParseSample(t *testing.T) {
	amount, ts, ok := parseSample("2500.75:1717243200000")
	require.True(t, ok)
	assert.InDelta(t, 2500.75, amount, 1e-9)
	assert.Equal(t, int64(1717243200000), ts)

	_, _, ok = parseSample("garbage")
	assert.False(t, ok)
}
