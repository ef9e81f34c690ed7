package rules

import (
	"math"
	"time"

	"go.uber.org/zap"

	"risk-scoring-engine/internal/domain/transaction"
	"risk-scoring-engine/internal/infrastructure/state"
)

// Reason strings are the engine's fixed explanation vocabulary; the API
// returns them verbatim.
const (
	ReasonVelocityMinute = "High transaction velocity detected (per minute)"
	ReasonVelocityHour   = "High transaction velocity detected (per hour)"
	ReasonAmountSpike    = "Transaction amount significantly higher than usual pattern"
	ReasonRoundNumber    = "Round number transaction detected"
	ReasonSharedDevice   = "Device associated with multiple users"
	ReasonGeoJump        = "Unusual geographical location"
	ReasonAmountCap      = "Transaction amount exceeds threshold"
	ReasonNightTime      = "Night time transaction"
)

// Config holds the rule thresholds
type Config struct {
	MaxVelocityPerMinute int64
	MaxVelocityPerHour   int64
	MaxTransactionAmount float64
	NightTimeStart       int
	NightTimeEnd         int
}

// DefaultConfig returns the stock thresholds
func DefaultConfig() Config {
	return Config{
		MaxVelocityPerMinute: 5,
		MaxVelocityPerHour:   20,
		MaxTransactionAmount: 1_000_000,
		NightTimeStart:       23,
		NightTimeEnd:         5,
	}
}

const (
	amountSpikeFactor = 10
	amountSpikeFloor  = 100_000
	roundNumberStep   = 10_000
	roundNumberFloor  = 50_000
	geoJumpKm         = 100
)

// Contributions per rule. Triggered rules add these into the pre-clamp sum.
const (
	scoreVelocityMinute = 0.8
	scoreVelocityHour   = 0.6
	scoreAmountSpike    = 0.7
	scoreRoundNumber    = 0.3
	scoreSharedDevice   = 0.7
	scoreGeoJump        = 0.6
	scoreAmountCap      = 0.5
	scoreNightTime      = 0.3
)

// Outcome is the rule engine result: the clamped sum of triggered
// contributions and the ordered, duplicate-free reason list.
type Outcome struct {
	RuleScore float64  `json:"rule_score"`
	Reasons   []string `json:"reasons"`
}

// Engine evaluates the fixed rule set against a transaction and its window
// aggregates. All checks are pure: the window I/O happened in state.Windows,
// which also enforces the write-then-read contract the velocity thresholds
// assume. Degraded window groups contribute zero.
type Engine struct {
	cfg Config
	log *zap.Logger
}

// NewEngine creates a rule engine
func NewEngine(cfg Config, log *zap.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

type check struct {
	triggered bool
	score     float64
	reason    string
}

// Evaluate runs every rule and combines the triggered contributions with a
// commutative sum clamped to 1. Reasons keep first-occurrence order.
func (e *Engine) Evaluate(tx *transaction.Transaction, agg *state.Aggregates) *Outcome {
	amount := tx.Amount.InexactFloat64()

	if !agg.AmountHistoryOK || !agg.DeviceOK || !agg.GeoOK {
		e.log.Debug("evaluating with degraded window groups",
			zap.Bool("amount_history", agg.AmountHistoryOK),
			zap.Bool("device", agg.DeviceOK),
			zap.Bool("geo", agg.GeoOK))
	}

	checks := []check{
		e.velocityPerMinute(agg),
		e.velocityPerHour(agg),
		e.amountSpike(amount, agg),
		e.roundNumber(amount),
		e.sharedDevice(tx.UserID, agg),
		e.geoJump(tx.Location, agg),
		e.amountCap(amount),
		e.nightTime(tx.CreatedAt),
	}

	outcome := &Outcome{Reasons: []string{}}
	seen := make(map[string]struct{}, len(checks))
	sum := 0.0
	for _, c := range checks {
		if !c.triggered {
			continue
		}
		sum += c.score
		if _, dup := seen[c.reason]; !dup {
			seen[c.reason] = struct{}{}
			outcome.Reasons = append(outcome.Reasons, c.reason)
		}
	}

	outcome.RuleScore = math.Min(sum, 1)
	return outcome
}

func (e *Engine) velocityPerMinute(agg *state.Aggregates) check {
	return check{
		triggered: agg.VelocityLastMinute > e.cfg.MaxVelocityPerMinute,
		score:     scoreVelocityMinute,
		reason:    ReasonVelocityMinute,
	}
}

func (e *Engine) velocityPerHour(agg *state.Aggregates) check {
	return check{
		triggered: agg.VelocityLastHour > e.cfg.MaxVelocityPerHour,
		score:     scoreVelocityHour,
		reason:    ReasonVelocityHour,
	}
}

// amountSpike fires when the amount is an order of magnitude above the
// user's 24h mean and clears the absolute floor. No history, no spike.
func (e *Engine) amountSpike(amount float64, agg *state.Aggregates) check {
	triggered := agg.AmountHistoryOK &&
		agg.AmountCount24h > 0 &&
		amount > amountSpikeFactor*agg.AmountMean24h &&
		amount > amountSpikeFloor
	return check{triggered: triggered, score: scoreAmountSpike, reason: ReasonAmountSpike}
}

func (e *Engine) roundNumber(amount float64) check {
	triggered := amount >= roundNumberFloor && math.Mod(amount, roundNumberStep) == 0
	return check{triggered: triggered, score: scoreRoundNumber, reason: ReasonRoundNumber}
}

// sharedDevice tests membership against the device's user set as it was
// before this transaction's insert.
func (e *Engine) sharedDevice(userID string, agg *state.Aggregates) check {
	triggered := agg.DeviceOK && len(agg.DeviceUsers) > 0 && !agg.KnownDevice(userID)
	return check{triggered: triggered, score: scoreSharedDevice, reason: ReasonSharedDevice}
}

// geoJump is skipped without a location: no contribution, no reason.
func (e *Engine) geoJump(loc *transaction.Location, agg *state.Aggregates) check {
	if loc == nil || !agg.GeoOK || agg.LastGeo == nil {
		return check{}
	}
	distance := Haversine(loc.Latitude, loc.Longitude, agg.LastGeo.Lat, agg.LastGeo.Lon)
	return check{triggered: distance > geoJumpKm, score: scoreGeoJump, reason: ReasonGeoJump}
}

func (e *Engine) amountCap(amount float64) check {
	return check{
		triggered: amount > e.cfg.MaxTransactionAmount,
		score:     scoreAmountCap,
		reason:    ReasonAmountCap,
	}
}

// nightTime uses an inclusive wrap-around hour range, 23..5 by default
func (e *Engine) nightTime(at time.Time) check {
	hour := at.Hour()
	start, end := e.cfg.NightTimeStart, e.cfg.NightTimeEnd
	var night bool
	if start <= end {
		night = hour >= start && hour <= end
	} else {
		night = hour >= start || hour <= end
	}
	return check{triggered: night, score: scoreNightTime, reason: ReasonNightTime}
}

// Haversine returns the great-circle distance in kilometers between two
// lat/lon points on a sphere of radius 6371 km.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371.0 // km

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
