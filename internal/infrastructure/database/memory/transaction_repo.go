package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"risk-scoring-engine/internal/domain/transaction"
)

// TransactionRepository implements transaction.Repository in memory.
// It backs standalone mode (no database reachable) and the test suite.
type TransactionRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*transaction.Transaction
}

// NewTransactionRepository creates an empty in-memory repository
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		records: make(map[uuid.UUID]*transaction.Transaction),
	}
}

// Create appends a new transaction record
func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *tx
	r.records[tx.ID] = &copied
	return nil
}

// GetByID retrieves a transaction by id
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.records[id]
	if !ok {
		return nil, transaction.ErrNotFound
	}
	copied := *tx
	return &copied, nil
}

// UpdateStatus transitions a record's status
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status transaction.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.records[id]
	if !ok {
		return transaction.ErrNotFound
	}
	tx.Status = status
	tx.UpdatedAt = time.Now()
	return nil
}

// CountByStatusSince groups records created after since by status
func (r *TransactionRepository) CountByStatusSince(ctx context.Context, since time.Time) ([]transaction.StatusCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byStatus := make(map[transaction.Status]*transaction.StatusCount)
	for _, tx := range r.records {
		if tx.CreatedAt.Before(since) {
			continue
		}
		entry, ok := byStatus[tx.Status]
		if !ok {
			entry = &transaction.StatusCount{Status: tx.Status, TotalAmount: decimal.Zero}
			byStatus[tx.Status] = entry
		}
		entry.Count++
		entry.TotalAmount = entry.TotalAmount.Add(tx.Amount)
	}

	counts := make([]transaction.StatusCount, 0, len(byStatus))
	for _, entry := range byStatus {
		counts = append(counts, *entry)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Status < counts[j].Status })
	return counts, nil
}

// RiskDistributionSince buckets records created after since by risk score
func (r *TransactionRepository) RiskDistributionSince(ctx context.Context, since time.Time, medium, high float64) ([]transaction.BucketCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var low, mid, hi int64
	for _, tx := range r.records {
		if tx.CreatedAt.Before(since) {
			continue
		}
		switch {
		case tx.RiskScore >= high:
			hi++
		case tx.RiskScore >= medium:
			mid++
		default:
			low++
		}
	}
	return []transaction.BucketCount{
		{Bucket: transaction.BucketLow, Count: low},
		{Bucket: transaction.BucketMedium, Count: mid},
		{Bucket: transaction.BucketHigh, Count: hi},
	}, nil
}
