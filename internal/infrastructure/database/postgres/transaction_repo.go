package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"risk-scoring-engine/internal/domain/transaction"
)

// TransactionModel is the database model for transaction records
type TransactionModel struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID              string          `gorm:"type:varchar(100);index;not null"`
	DeviceID            string          `gorm:"type:varchar(100);index;not null"`
	Type                string          `gorm:"type:varchar(20);not null"`
	Status              string          `gorm:"type:varchar(20);index;not null"`
	Amount              decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency            string          `gorm:"type:varchar(3);not null"`
	Location            string          `gorm:"type:jsonb"`
	BeneficiaryAccount  string          `gorm:"type:varchar(64)"`
	BeneficiaryBankCode string          `gorm:"type:varchar(32)"`
	MerchantID          string          `gorm:"type:varchar(100)"`
	CardDetails         string          `gorm:"type:jsonb"`
	IPAddress           string          `gorm:"type:varchar(45)"`
	RiskScore           float64         `gorm:"type:decimal(5,4);not null"`
	CreatedAt           time.Time       `gorm:"index;not null"`
	UpdatedAt           time.Time       `gorm:"not null"`
}

// TableName returns the table name for transaction records
func (TransactionModel) TableName() string {
	return "transactions"
}

// TransactionRepository implements transaction.Repository on PostgreSQL
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(client *Client) *TransactionRepository {
	return &TransactionRepository{db: client.DB()}
}

// Create appends a new transaction record
func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	model := &TransactionModel{
		ID:                  tx.ID,
		UserID:              tx.UserID,
		DeviceID:            tx.DeviceID,
		Type:                string(tx.Type),
		Status:              string(tx.Status),
		Amount:              tx.Amount,
		Currency:            tx.Currency,
		BeneficiaryAccount:  tx.BeneficiaryAccount,
		BeneficiaryBankCode: tx.BeneficiaryBankCode,
		MerchantID:          tx.MerchantID,
		IPAddress:           tx.IPAddress,
		RiskScore:           tx.RiskScore,
		CreatedAt:           tx.CreatedAt,
		UpdatedAt:           tx.UpdatedAt,
	}
	if tx.Location != nil {
		if data, err := json.Marshal(tx.Location); err == nil {
			model.Location = string(data)
		}
	}
	if tx.Card != nil {
		if data, err := json.Marshal(tx.Card); err == nil {
			model.CardDetails = string(data)
		}
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// GetByID retrieves a transaction by id
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	var model TransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, transaction.ErrNotFound
		}
		return nil, err
	}
	return modelToTransaction(&model), nil
}

// UpdateStatus transitions a record's status
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status transaction.Status) error {
	result := r.db.WithContext(ctx).Model(&TransactionModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return transaction.ErrNotFound
	}
	return nil
}

// CountByStatusSince groups records created after since by status
func (r *TransactionRepository) CountByStatusSince(ctx context.Context, since time.Time) ([]transaction.StatusCount, error) {
	var rows []struct {
		Status      string
		Count       int64
		TotalAmount decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&TransactionModel{}).
		Select("status, count(*) as count, coalesce(sum(amount), 0) as total_amount").
		Where("created_at >= ?", since).
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make([]transaction.StatusCount, len(rows))
	for i, row := range rows {
		counts[i] = transaction.StatusCount{
			Status:      transaction.Status(row.Status),
			Count:       row.Count,
			TotalAmount: row.TotalAmount,
		}
	}
	return counts, nil
}

// RiskDistributionSince buckets records created after since by risk score
func (r *TransactionRepository) RiskDistributionSince(ctx context.Context, since time.Time, medium, high float64) ([]transaction.BucketCount, error) {
	var rows []struct {
		Bucket string
		Count  int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT CASE
			WHEN risk_score >= ? THEN 'HIGH'
			WHEN risk_score >= ? THEN 'MEDIUM'
			ELSE 'LOW'
		END AS bucket, count(*) AS count
		FROM transactions
		WHERE created_at >= ?
		GROUP BY bucket`, high, medium, since).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byBucket := make(map[transaction.RiskBucket]int64, len(rows))
	for _, row := range rows {
		byBucket[transaction.RiskBucket(row.Bucket)] = row.Count
	}
	return []transaction.BucketCount{
		{Bucket: transaction.BucketLow, Count: byBucket[transaction.BucketLow]},
		{Bucket: transaction.BucketMedium, Count: byBucket[transaction.BucketMedium]},
		{Bucket: transaction.BucketHigh, Count: byBucket[transaction.BucketHigh]},
	}, nil
}

func modelToTransaction(m *TransactionModel) *transaction.Transaction {
	tx := &transaction.Transaction{
		ID:                  m.ID,
		UserID:              m.UserID,
		DeviceID:            m.DeviceID,
		Type:                transaction.Type(m.Type),
		Status:              transaction.Status(m.Status),
		Amount:              m.Amount,
		Currency:            m.Currency,
		BeneficiaryAccount:  m.BeneficiaryAccount,
		BeneficiaryBankCode: m.BeneficiaryBankCode,
		MerchantID:          m.MerchantID,
		IPAddress:           m.IPAddress,
		RiskScore:           m.RiskScore,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if m.Location != "" {
		var loc transaction.Location
		if err := json.Unmarshal([]byte(m.Location), &loc); err == nil {
			tx.Location = &loc
		}
	}
	if m.CardDetails != "" {
		var card transaction.CardDetails
		if err := json.Unmarshal([]byte(m.CardDetails), &card); err == nil {
			tx.Card = &card
		}
	}
	return tx
}
