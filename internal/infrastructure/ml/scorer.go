package ml

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"risk-scoring-engine/internal/infrastructure/kv"
)

// Adam hyperparameters for the single-sample online updates
const (
	learningRate = 1e-3
	adamBeta1    = 0.9
	adamBeta2    = 0.999
	adamEpsilon  = 1e-8
	l2Penalty    = 1e-3
)

const versionKey = "model:version"

// model is one immutable weight snapshot. Predictions read whichever
// snapshot is installed; updates build a new one and swap it in, so readers
// never observe a torn weight vector.
type model struct {
	weights []float64
	bias    float64
	adam    AdamState
	version int64
}

// Scorer is the learned risk scorer: a binary classifier over the fixed
// feature layout, updated online one labelled sample at a time. When no
// model is loaded, or inference produces a non-finite value, it returns the
// deterministic amount-bucket fallback; degraded mode is contractual, never
// an error.
type Scorer struct {
	mu    sync.RWMutex // guards the snapshot pointer
	updMu sync.Mutex   // serializes online updates
	model *model

	dir   string
	store kv.Store
	log   *zap.Logger

	onFallback func()
}

// NewScorer creates a scorer persisting its artifact under dir and recording
// update versions in the KV store. The scorer starts unloaded; LoadOrInit
// materializes the model.
func NewScorer(dir string, store kv.Store, log *zap.Logger) *Scorer {
	return &Scorer{dir: dir, store: store, log: log}
}

// SetFallbackHook registers a callback invoked whenever a prediction takes
// the fallback path. Used for metrics.
func (s *Scorer) SetFallbackHook(hook func()) {
	s.onFallback = hook
}

// LoadOrInit loads the persisted weights, or instantiates a fresh model,
// runs one dummy fit step to materialize the optimizer state, and persists
// it. The scorer is usable either way.
func (s *Scorer) LoadOrInit(ctx context.Context) error {
	if a, err := LoadArtifact(s.dir); err == nil {
		s.install(&model{weights: a.Weights, bias: a.Bias, adam: a.Adam, version: a.Version})
		s.log.Info("model weights loaded",
			zap.String("topology", a.Topology),
			zap.Int64("version", a.Version))
		return nil
	} else {
		s.log.Warn("no usable model artifact, initializing fresh weights", zap.Error(err))
	}

	fresh := &model{
		weights: make([]float64, FeatureCount),
		adam: AdamState{
			M: make([]float64, FeatureCount),
			V: make([]float64, FeatureCount),
		},
	}
	s.install(fresh)

	// One dummy step against a neutral sample materializes the Adam moments
	// before the first real update arrives.
	if err := s.Update(ctx, make([]float64, FeatureCount), false); err != nil {
		return fmt.Errorf("initialize model: %w", err)
	}
	return nil
}

// Loaded reports whether a weight snapshot is installed
func (s *Scorer) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// Version returns the current model version
func (s *Scorer) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return 0
	}
	return s.model.version
}

func (s *Scorer) install(m *model) {
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
}

func (s *Scorer) snapshot() *model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// PredictRisk returns a risk probability in [0,1] for the feature vector.
// amount drives the fallback buckets when the model cannot answer.
func (s *Scorer) PredictRisk(vector []float64, amount float64) float64 {
	m := s.snapshot()
	if m == nil || len(vector) != len(m.weights) {
		s.fallback("model unavailable")
		return FallbackScore(amount)
	}

	p := sigmoid(floats.Dot(m.weights, vector) + m.bias)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		s.fallback("non-finite model output")
		return FallbackScore(amount)
	}
	return clamp01(p)
}

func (s *Scorer) fallback(cause string) {
	s.log.Warn("learned scorer degraded, using amount-bucket fallback", zap.String("cause", cause))
	if s.onFallback != nil {
		s.onFallback()
	}
}

// FallbackScore is the deterministic amount-bucket score used when the
// learned scorer is unavailable or non-finite.
func FallbackScore(amount float64) float64 {
	switch {
	case amount > 1_000_000:
		return 0.9
	case amount > 500_000:
		return 0.7
	case amount > 100_000:
		return 0.5
	default:
		return 0.2
	}
}

// Update applies one labelled sample as a single Adam step on the binary
// cross-entropy gradient, installs the new snapshot, persists the artifact
// and increments the model version counter. Updates are serialized against
// each other; predictions keep reading the previous snapshot until the swap.
func (s *Scorer) Update(ctx context.Context, vector []float64, isFraud bool) error {
	s.updMu.Lock()
	defer s.updMu.Unlock()

	cur := s.snapshot()
	if cur == nil {
		return fmt.Errorf("model not initialized")
	}
	if len(vector) != len(cur.weights) {
		return fmt.Errorf("feature vector length %d, want %d", len(vector), len(cur.weights))
	}

	y := 0.0
	if isFraud {
		y = 1.0
	}
	p := sigmoid(floats.Dot(cur.weights, vector) + cur.bias)
	// d(BCE)/dz for a sigmoid output
	grad := p - y

	next := &model{
		weights: append([]float64(nil), cur.weights...),
		bias:    cur.bias,
		adam: AdamState{
			M:     append([]float64(nil), cur.adam.M...),
			V:     append([]float64(nil), cur.adam.V...),
			MBias: cur.adam.MBias,
			VBias: cur.adam.VBias,
			Step:  cur.adam.Step + 1,
		},
	}

	t := float64(next.adam.Step)
	for i := range next.weights {
		g := grad*vector[i] + l2Penalty*next.weights[i]
		next.adam.M[i] = adamBeta1*next.adam.M[i] + (1-adamBeta1)*g
		next.adam.V[i] = adamBeta2*next.adam.V[i] + (1-adamBeta2)*g*g
		mHat := next.adam.M[i] / (1 - math.Pow(adamBeta1, t))
		vHat := next.adam.V[i] / (1 - math.Pow(adamBeta2, t))
		next.weights[i] -= learningRate * mHat / (math.Sqrt(vHat) + adamEpsilon)
	}
	next.adam.MBias = adamBeta1*next.adam.MBias + (1-adamBeta1)*grad
	next.adam.VBias = adamBeta2*next.adam.VBias + (1-adamBeta2)*grad*grad
	mHat := next.adam.MBias / (1 - math.Pow(adamBeta1, t))
	vHat := next.adam.VBias / (1 - math.Pow(adamBeta2, t))
	next.bias -= learningRate * mHat / (math.Sqrt(vHat) + adamEpsilon)

	version, err := s.store.Incr(ctx, versionKey)
	if err != nil {
		return fmt.Errorf("increment model version: %w", err)
	}
	next.version = version

	s.install(next)

	// Persistence happens outside the readers' critical section.
	artifact := &Artifact{
		Topology:     Topology,
		Version:      next.version,
		Weights:      next.weights,
		Bias:         next.bias,
		Adam:         next.adam,
		FeatureStats: DefaultFeatureStats(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := SaveArtifact(s.dir, artifact); err != nil {
		return fmt.Errorf("persist model weights: %w", err)
	}

	s.log.Debug("model updated",
		zap.Int64("version", next.version),
		zap.Bool("is_fraud", isFraud))
	return nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
