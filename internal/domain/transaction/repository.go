package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusCount aggregates records sharing a status within a time window
type StatusCount struct {
	Status      Status          `json:"status"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// RiskBucket labels a risk-score band for distribution reporting
type RiskBucket string

const (
	BucketLow    RiskBucket = "LOW"
	BucketMedium RiskBucket = "MEDIUM"
	BucketHigh   RiskBucket = "HIGH"
)

// BucketCount is the number of records whose score fell into a bucket
type BucketCount struct {
	Bucket RiskBucket `json:"bucket"`
	Count  int64      `json:"count"`
}

// Repository is the transaction record sink: append, fetch by id, label
// updates and the aggregates behind the statistics endpoint.
type Repository interface {
	// Create appends a new transaction record
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a transaction by its id
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// UpdateStatus transitions a record's status
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// CountByStatusSince groups records created after since by status
	CountByStatusSince(ctx context.Context, since time.Time) ([]StatusCount, error)

	// RiskDistributionSince buckets records created after since by risk score.
	// Bucket edges: LOW < medium, MEDIUM < high, HIGH >= high.
	RiskDistributionSince(ctx context.Context, since time.Time, medium, high float64) ([]BucketCount, error)
}
