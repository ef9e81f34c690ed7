package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"risk-scoring-engine/internal/domain/transaction"
	"risk-scoring-engine/internal/infrastructure/ml"
	"risk-scoring-engine/internal/infrastructure/rules"
	"risk-scoring-engine/internal/infrastructure/state"
	"risk-scoring-engine/internal/pkg/metrics"
)

// Risk-distribution bucket edges for the statistics report
const (
	bucketMediumEdge = 0.3
	bucketHighEdge   = 0.7
)

// Config holds the fusion and decision parameters
type Config struct {
	RuleWeight    float64
	ModelWeight   float64
	FlagThreshold float64
	EnableMLModel bool
}

// DefaultConfig returns the stock fusion parameters
func DefaultConfig() Config {
	return Config{
		RuleWeight:    0.6,
		ModelWeight:   0.4,
		FlagThreshold: 0.7,
		EnableMLModel: true,
	}
}

// Validate checks the fusion invariants
func (c Config) Validate() error {
	if math.Abs(c.RuleWeight+c.ModelWeight-1) > 1e-9 {
		return ErrInvalidWeights
	}
	if c.FlagThreshold < 0 || c.FlagThreshold > 1 {
		return fmt.Errorf("flag threshold must be in [0,1], got %v", c.FlagThreshold)
	}
	return nil
}

// Statistics is the aggregate view served by the statistics endpoint
type Statistics struct {
	Last24Hours      []transaction.StatusCount `json:"last24Hours"`
	RiskDistribution []transaction.BucketCount `json:"riskDistribution"`
}

// Service orchestrates one scoring pass: behavioral window update, rule
// evaluation and learned scoring in sequence, then fusion into the final
// bounded score, decision and persistence. It also handles feedback labels
// and statistics.
type Service struct {
	windows   *state.Windows
	rules     *rules.Engine
	extractor *ml.FeatureExtractor
	scorer    *ml.Scorer
	txRepo    transaction.Repository
	cfg       Config
	log       *zap.Logger
	metrics   *metrics.Metrics
}

// NewService creates the risk scoring service
func NewService(
	windows *state.Windows,
	ruleEngine *rules.Engine,
	extractor *ml.FeatureExtractor,
	scorer *ml.Scorer,
	txRepo transaction.Repository,
	cfg Config,
	log *zap.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		windows:   windows,
		rules:     ruleEngine,
		extractor: extractor,
		scorer:    scorer,
		txRepo:    txRepo,
		cfg:       cfg,
		log:       log,
		metrics:   m,
	}
}

// ScoreTransaction scores tx, persists the record and returns the
// assessment. The transaction must already be validated; the service
// assigns the outcome fields.
func (s *Service) ScoreTransaction(ctx context.Context, tx *transaction.Transaction) (*Assessment, error) {
	start := time.Now()

	agg, err := s.windows.Gather(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	outcome := s.rules.Evaluate(tx, agg)

	modelScore := 0.0
	if s.cfg.EnableMLModel {
		vector := s.extractor.Extract(tx, agg)
		modelScore = s.scorer.PredictRisk(vector, tx.Amount.InexactFloat64())
	}

	final := s.fuse(outcome.RuleScore, modelScore)
	isHighRisk := final >= s.cfg.FlagThreshold

	tx.SetOutcome(final, isHighRisk)
	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: persist transaction: %w", ErrUnavailable, err)
	}

	action := ActionAllow
	if isHighRisk {
		action = ActionDeny
	}

	if s.metrics != nil {
		s.metrics.ScoringDuration.Observe(time.Since(start).Seconds())
		s.metrics.Decisions.WithLabelValues(string(action)).Inc()
	}
	s.log.Debug("transaction scored",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("user_id", tx.UserID),
		zap.Float64("rule_score", outcome.RuleScore),
		zap.Float64("model_score", modelScore),
		zap.Float64("risk_score", final),
		zap.Bool("high_risk", isHighRisk))

	return &Assessment{
		TransactionID:     tx.ID,
		RiskScore:         final,
		IsHighRisk:        isHighRisk,
		Reasons:           outcome.Reasons,
		RecommendedAction: action,
	}, nil
}

// fuse convex-combines the two scores and clamps the result into [0,1].
// A pre-clamp value outside the unit interval is an internal invariant
// violation: it is logged and clamped, never surfaced.
func (s *Service) fuse(ruleScore, modelScore float64) float64 {
	final := s.cfg.RuleWeight*ruleScore + s.cfg.ModelWeight*modelScore
	if final < 0 || final > 1 {
		s.log.Error("fused score out of bounds before clamp",
			zap.Float64("rule_score", ruleScore),
			zap.Float64("model_score", modelScore),
			zap.Float64("fused", final))
	}
	return math.Max(0, math.Min(1, final))
}

// ReportFraud applies a ground-truth label to a recorded transaction:
// the status transitions to DENIED or APPROVED and the learned scorer takes
// one online update from the transaction's feature vector.
func (s *Service) ReportFraud(ctx context.Context, txID uuid.UUID, wasFraud bool) error {
	tx, err := s.txRepo.GetByID(ctx, txID)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: fetch transaction: %v", ErrUnavailable, err)
	}

	status := transaction.StatusApproved
	if wasFraud {
		status = transaction.StatusDenied
	}
	if err := s.txRepo.UpdateStatus(ctx, txID, status); err != nil {
		return fmt.Errorf("%w: update status: %v", ErrUnavailable, err)
	}

	if !s.cfg.EnableMLModel {
		return nil
	}
	if !s.scorer.Loaded() {
		s.log.Warn("feedback label recorded without model update, scorer degraded",
			zap.String("transaction_id", txID.String()))
		return nil
	}

	agg, err := s.windows.Peek(ctx, tx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	vector := s.extractor.Extract(tx, agg)
	if err := s.scorer.Update(ctx, vector, wasFraud); err != nil {
		return fmt.Errorf("%w: model update: %v", ErrUnavailable, err)
	}
	if s.metrics != nil {
		s.metrics.ModelUpdates.Inc()
	}
	s.log.Info("feedback label applied",
		zap.String("transaction_id", txID.String()),
		zap.Bool("was_fraud", wasFraud),
		zap.Int64("model_version", s.scorer.Version()))
	return nil
}

// Statistics reports the last-24h status counts and the risk-score
// distribution over the same window.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	since := time.Now().Add(-24 * time.Hour)

	counts, err := s.txRepo.CountByStatusSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("%w: status counts: %v", ErrUnavailable, err)
	}
	dist, err := s.txRepo.RiskDistributionSince(ctx, since, bucketMediumEdge, bucketHighEdge)
	if err != nil {
		return nil, fmt.Errorf("%w: risk distribution: %v", ErrUnavailable, err)
	}

	if counts == nil {
		counts = []transaction.StatusCount{}
	}
	return &Statistics{Last24Hours: counts, RiskDistribution: dist}, nil
}
