package risk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	riskdomain "risk-scoring-engine/internal/domain/risk"
	"risk-scoring-engine/internal/domain/transaction"
)

// ValidationError carries the list of invalid fields for 400 responses
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// LocationPayload is the request shape of a transaction location
type LocationPayload struct {
	Latitude  float64 `json:"lat" validate:"min=-90,max=90"`
	Longitude float64 `json:"lon" validate:"min=-180,max=180"`
}

// CardDetailsPayload is the request shape of card context
type CardDetailsPayload struct {
	Last4   string `json:"last4"`
	BIN     string `json:"bin"`
	Country string `json:"country"`
}

// ScoreTransactionRequest is the API request for scoring one transaction
type ScoreTransactionRequest struct {
	UserID              string              `json:"userId" validate:"required"`
	DeviceID            string              `json:"deviceId" validate:"required"`
	Amount              decimal.Decimal     `json:"amount"`
	Currency            string              `json:"currency" validate:"required,len=3"`
	TransactionType     string              `json:"transactionType" validate:"required,oneof=TRANSFER CARD QR POS"`
	Location            *LocationPayload    `json:"location,omitempty"`
	BeneficiaryAccount  string              `json:"beneficiaryAccount,omitempty"`
	BeneficiaryBankCode string              `json:"beneficiaryBankCode,omitempty"`
	MerchantID          string              `json:"merchantId,omitempty"`
	CardDetails         *CardDetailsPayload `json:"cardDetails,omitempty"`
	CreatedAt           *time.Time          `json:"createdAt,omitempty"`
}

// ScoreTransactionResponse is the API response for a scoring request
type ScoreTransactionResponse struct {
	TransactionID     string   `json:"transactionId"`
	RiskScore         float64  `json:"riskScore"`
	IsHighRisk        bool     `json:"isHighRisk"`
	Reasons           []string `json:"reasons"`
	RecommendedAction string   `json:"recommendedAction"`
}

// ScoreTransactionUseCase validates a scoring request, runs it through the
// risk service under the per-request deadline and shapes the response.
type ScoreTransactionUseCase struct {
	service  *riskdomain.Service
	validate *validator.Validate
	timeout  time.Duration
}

// NewScoreTransactionUseCase creates the scoring use case
func NewScoreTransactionUseCase(service *riskdomain.Service, timeout time.Duration) *ScoreTransactionUseCase {
	return &ScoreTransactionUseCase{
		service:  service,
		validate: validator.New(),
		timeout:  timeout,
	}
}

// Execute scores one transaction. ipAddress is recorded on the persisted
// transaction; no state is mutated when validation fails.
func (uc *ScoreTransactionUseCase) Execute(ctx context.Context, req *ScoreTransactionRequest, ipAddress string) (*ScoreTransactionResponse, error) {
	tx, err := uc.toTransaction(req)
	if err != nil {
		return nil, err
	}
	tx.IPAddress = ipAddress

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	assessment, err := uc.service.ScoreTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	return &ScoreTransactionResponse{
		TransactionID:     assessment.TransactionID.String(),
		RiskScore:         assessment.RiskScore,
		IsHighRisk:        assessment.IsHighRisk,
		Reasons:           assessment.Reasons,
		RecommendedAction: string(assessment.RecommendedAction),
	}, nil
}

func (uc *ScoreTransactionUseCase) toTransaction(req *ScoreTransactionRequest) (*transaction.Transaction, error) {
	if err := uc.validate.Struct(req); err != nil {
		var fields []string
		if invalid, ok := err.(validator.ValidationErrors); ok {
			for _, f := range invalid {
				fields = append(fields, fieldName(f))
			}
			return nil, &ValidationError{Fields: fields}
		}
		return nil, fmt.Errorf("validate request: %w", err)
	}
	if req.Amount.IsNegative() {
		return nil, &ValidationError{Fields: []string{"amount"}}
	}

	var createdAt time.Time
	if req.CreatedAt != nil {
		createdAt = *req.CreatedAt
	}

	tx := transaction.New(
		req.UserID,
		req.DeviceID,
		transaction.Type(req.TransactionType),
		req.Amount,
		strings.ToUpper(req.Currency),
		createdAt,
	)
	tx.BeneficiaryAccount = req.BeneficiaryAccount
	tx.BeneficiaryBankCode = req.BeneficiaryBankCode
	tx.MerchantID = req.MerchantID
	if req.Location != nil {
		tx.Location = &transaction.Location{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
		}
	}
	if req.CardDetails != nil {
		tx.Card = &transaction.CardDetails{
			Last4:   req.CardDetails.Last4,
			BIN:     req.CardDetails.BIN,
			Country: req.CardDetails.Country,
		}
	}

	if err := tx.Validate(); err != nil {
		return nil, &ValidationError{Fields: []string{err.Error()}}
	}
	return tx, nil
}

// fieldName lowercases the leading struct field letter and writes a trailing
// "ID" as "Id" to match the JSON casing callers see.
func fieldName(f validator.FieldError) string {
	name := f.Field()
	if name == "" {
		return "request"
	}
	name = strings.ToLower(name[:1]) + name[1:]
	if strings.HasSuffix(name, "ID") {
		name = strings.TrimSuffix(name, "ID") + "Id"
	}
	return name
}
