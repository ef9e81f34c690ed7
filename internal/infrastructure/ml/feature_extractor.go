package ml

import (
	"math"

	"risk-scoring-engine/internal/domain/transaction"
	"risk-scoring-engine/internal/infrastructure/state"
)

// FeatureCount is the fixed length of the model input vector
const FeatureCount = 10

// Feature indexes, in wire order
const (
	featAmount = iota
	featHour
	featDayOfWeek
	featIsNewDevice
	featDeviceUserCount
	featTxCount24h
	featAvgAmount24h
	featTxCount7d
	featAvgAmount7d
	featUniqueDevices24h
)

// FeatureStats is the (mean, std) pair used for z-score normalization of one
// feature. The table is part of the model artifact.
type FeatureStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// DefaultFeatureStats returns the bootstrap normalization table used until a
// model artifact carries its own.
func DefaultFeatureStats() [FeatureCount]FeatureStats {
	return [FeatureCount]FeatureStats{
		featAmount:           {Mean: 50_000, Std: 200_000},
		featHour:             {Mean: 12, Std: 6.93},
		featDayOfWeek:        {Mean: 3, Std: 2},
		featIsNewDevice:      {Mean: 0.1, Std: 0.3},
		featDeviceUserCount:  {Mean: 1.5, Std: 1.0},
		featTxCount24h:       {Mean: 5, Std: 10},
		featAvgAmount24h:     {Mean: 50_000, Std: 200_000},
		featTxCount7d:        {Mean: 20, Std: 30},
		featAvgAmount7d:      {Mean: 50_000, Std: 200_000},
		featUniqueDevices24h: {Mean: 1.5, Std: 1.0},
	}
}

// FeatureExtractor derives the fixed-length normalized feature vector for a
// transaction from its fields and the current window aggregates.
type FeatureExtractor struct {
	stats [FeatureCount]FeatureStats
}

// NewFeatureExtractor creates an extractor with the given normalization table
func NewFeatureExtractor(stats [FeatureCount]FeatureStats) *FeatureExtractor {
	return &FeatureExtractor{stats: stats}
}

// Extract returns the length-10 z-normalized vector. Degraded window groups
// feed the feature mean, which normalizes to zero. Every entry is finite:
// a non-finite raw value is replaced by its feature mean before scaling.
func (e *FeatureExtractor) Extract(tx *transaction.Transaction, agg *state.Aggregates) []float64 {
	raw := make([]float64, FeatureCount)

	raw[featAmount] = tx.Amount.InexactFloat64()
	raw[featHour] = float64(tx.CreatedAt.Hour())
	raw[featDayOfWeek] = float64(tx.CreatedAt.Weekday())

	if agg.DeviceOK {
		if len(agg.DeviceUsers) == 0 {
			raw[featIsNewDevice] = 1
		}
		raw[featDeviceUserCount] = float64(len(agg.DeviceUsers))
		raw[featUniqueDevices24h] = float64(agg.UniqueDevices24h)
	} else {
		raw[featIsNewDevice] = e.stats[featIsNewDevice].Mean
		raw[featDeviceUserCount] = e.stats[featDeviceUserCount].Mean
		raw[featUniqueDevices24h] = e.stats[featUniqueDevices24h].Mean
	}

	if agg.SummaryOK {
		raw[featTxCount24h] = float64(agg.TxCount24h)
		raw[featAvgAmount24h] = agg.AvgAmount24h
		raw[featTxCount7d] = float64(agg.TxCount7d)
		raw[featAvgAmount7d] = agg.AvgAmount7d
	} else {
		raw[featTxCount24h] = e.stats[featTxCount24h].Mean
		raw[featAvgAmount24h] = e.stats[featAvgAmount24h].Mean
		raw[featTxCount7d] = e.stats[featTxCount7d].Mean
		raw[featAvgAmount7d] = e.stats[featAvgAmount7d].Mean
	}

	vector := make([]float64, FeatureCount)
	for i, x := range raw {
		s := e.stats[i]
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = s.Mean
		}
		if s.Std > 0 {
			vector[i] = (x - s.Mean) / s.Std
		}
		if math.IsNaN(vector[i]) || math.IsInf(vector[i], 0) {
			vector[i] = 0
		}
	}
	return vector
}

// Stats exposes the normalization table for artifact persistence
func (e *FeatureExtractor) Stats() [FeatureCount]FeatureStats {
	return e.stats
}
