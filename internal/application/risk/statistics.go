package risk

import (
	"context"

	riskdomain "risk-scoring-engine/internal/domain/risk"
)

// StatusCountPayload is one status row in the statistics response
type StatusCountPayload struct {
	Status      string `json:"status"`
	Count       int64  `json:"count"`
	TotalAmount string `json:"totalAmount"`
}

// BucketCountPayload is one risk bucket row in the statistics response
type BucketCountPayload struct {
	Bucket string `json:"bucket"`
	Count  int64  `json:"count"`
}

// StatisticsResponse is the API response for the statistics endpoint
type StatisticsResponse struct {
	Last24Hours      []StatusCountPayload `json:"last24Hours"`
	RiskDistribution []BucketCountPayload `json:"riskDistribution"`
}

// StatisticsUseCase serves the aggregate statistics view
type StatisticsUseCase struct {
	service *riskdomain.Service
}

// NewStatisticsUseCase creates the statistics use case
func NewStatisticsUseCase(service *riskdomain.Service) *StatisticsUseCase {
	return &StatisticsUseCase{service: service}
}

// Execute returns the last-24h status counts and risk distribution
func (uc *StatisticsUseCase) Execute(ctx context.Context) (*StatisticsResponse, error) {
	stats, err := uc.service.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	resp := &StatisticsResponse{
		Last24Hours:      make([]StatusCountPayload, 0, len(stats.Last24Hours)),
		RiskDistribution: make([]BucketCountPayload, 0, len(stats.RiskDistribution)),
	}
	for _, c := range stats.Last24Hours {
		resp.Last24Hours = append(resp.Last24Hours, StatusCountPayload{
			Status:      string(c.Status),
			Count:       c.Count,
			TotalAmount: c.TotalAmount.String(),
		})
	}
	for _, b := range stats.RiskDistribution {
		resp.RiskDistribution = append(resp.RiskDistribution, BucketCountPayload{
			Bucket: string(b.Bucket),
			Count:  b.Count,
		})
	}
	return resp, nil
}
