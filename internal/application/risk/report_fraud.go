package risk

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	riskdomain "risk-scoring-engine/internal/domain/risk"
)

// ReportFraudRequest is the API request for a ground-truth label
type ReportFraudRequest struct {
	TransactionID    string `json:"transactionId" validate:"required,uuid"`
	WasActuallyFraud *bool  `json:"wasActuallyFraud" validate:"required"`
}

// ReportFraudResponse acknowledges a processed label
type ReportFraudResponse struct {
	Message string `json:"message"`
}

// ReportFraudUseCase validates a feedback request and forwards the label to
// the risk service.
type ReportFraudUseCase struct {
	service  *riskdomain.Service
	validate *validator.Validate
}

// NewReportFraudUseCase creates the feedback use case
func NewReportFraudUseCase(service *riskdomain.Service) *ReportFraudUseCase {
	return &ReportFraudUseCase{service: service, validate: validator.New()}
}

// Execute applies one feedback label
func (uc *ReportFraudUseCase) Execute(ctx context.Context, req *ReportFraudRequest) (*ReportFraudResponse, error) {
	if err := uc.validate.Struct(req); err != nil {
		var fields []string
		if invalid, ok := err.(validator.ValidationErrors); ok {
			for _, f := range invalid {
				fields = append(fields, fieldName(f))
			}
			return nil, &ValidationError{Fields: fields}
		}
		return nil, err
	}

	txID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return nil, &ValidationError{Fields: []string{"transactionId"}}
	}

	if err := uc.service.ReportFraud(ctx, txID, *req.WasActuallyFraud); err != nil {
		return nil, err
	}
	return &ReportFraudResponse{Message: "ok"}, nil
}
