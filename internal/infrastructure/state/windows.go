package state

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"risk-scoring-engine/internal/domain/transaction"
	"risk-scoring-engine/internal/infrastructure/kv"
)

// Key namespaces. Sorted-set scores are millisecond epochs and members are
// "<amount>:<epochMs>"; the geo value is "<lat>:<lon>".
const (
	keyVelocity    = "velocity:"
	keyAmountHist  = "amounthist:"
	keyLastGeo     = "geo:last:"
	keyDeviceUsers = "device:users:"
	keyUserDevices = "user:devices24h:"
	keyTx24h       = "tx:24h:"
	keyTx7d        = "tx:7d:"
)

const (
	velocityTTL   = time.Hour
	amountHistTTL = 24 * time.Hour
	userDeviceTTL = 24 * time.Hour
	tx24hTTL      = 24 * time.Hour
	tx7dTTL       = 7 * 24 * time.Hour

	// producer-side trim bound on the summary lists
	summaryMaxLen = 1000
)

// Geo is a parsed last-known location
type Geo struct {
	Lat float64
	Lon float64
}

// Aggregates is everything the rule engine and the feature extractor read
// from the behavioral windows for one transaction. The OK flags record which
// optional window groups were reachable; a false flag degrades the dependent
// rules and features to their neutral values.
type Aggregates struct {
	// Velocity window (required). The current transaction is written before
	// these counts are taken, so it participates in its own velocity count.
	VelocityLastMinute int64
	VelocityLastHour   int64

	// 24h amount history, read before the current sample is written
	AmountCount24h  int64
	AmountMean24h   float64
	AmountHistoryOK bool

	// device -> users multimap, membership read before insertion
	DeviceUsers      []string
	UniqueDevices24h int64
	DeviceOK         bool

	// last known location, read before overwrite
	LastGeo *Geo
	GeoOK   bool

	// recent-transaction summaries, read before the current append
	TxCount24h   int64
	AvgAmount24h float64
	TxCount7d    int64
	AvgAmount7d  float64
	SummaryOK    bool
}

// KnownDevice reports whether userID was already seen on the device before
// this transaction was recorded.
func (a *Aggregates) KnownDevice(userID string) bool {
	for _, u := range a.DeviceUsers {
		if u == userID {
			return true
		}
	}
	return false
}

// Windows maintains the per-user and per-device behavioral windows in the KV
// store and returns the aggregates one scoring pass needs.
type Windows struct {
	store kv.Store
	log   *zap.Logger
}

// NewWindows creates the behavioral window accessor
func NewWindows(store kv.Store, log *zap.Logger) *Windows {
	return &Windows{store: store, log: log}
}

// Gather updates every window with the current transaction and collects the
// aggregates. Window groups touch disjoint keys and run concurrently. The
// velocity group is required: its failure fails the whole gather. The other
// groups degrade to neutral aggregates and a warning log.
func (w *Windows) Gather(ctx context.Context, tx *transaction.Transaction) (*Aggregates, error) {
	agg := &Aggregates{}
	amount := tx.Amount.InexactFloat64()
	now := tx.CreatedAt

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.gatherVelocity(gctx, tx.UserID, amount, now, agg)
	})
	g.Go(func() error {
		if err := w.gatherAmountHistory(gctx, tx.UserID, amount, now, agg); err != nil {
			w.log.Warn("amount history window unavailable", zap.String("user_id", tx.UserID), zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		if err := w.gatherDevice(gctx, tx.UserID, tx.DeviceID, agg); err != nil {
			w.log.Warn("device window unavailable", zap.String("device_id", tx.DeviceID), zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		if err := w.gatherGeo(gctx, tx.UserID, tx.Location, agg); err != nil {
			w.log.Warn("geo window unavailable", zap.String("user_id", tx.UserID), zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		if err := w.gatherSummaries(gctx, tx.UserID, amount, now, agg); err != nil {
			w.log.Warn("summary windows unavailable", zap.String("user_id", tx.UserID), zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("velocity window: %w", err)
	}
	return agg, nil
}

// gatherVelocity writes the current sample, then counts it together with the
// rest of the window. Write-before-read is contractual: the per-minute
// threshold assumes the transaction sees itself.
func (w *Windows) gatherVelocity(ctx context.Context, userID string, amount float64, now time.Time, agg *Aggregates) error {
	key := keyVelocity + userID
	if err := w.store.ZAdd(ctx, key, epochMs(now), formatSample(amount, now)); err != nil {
		return err
	}
	if err := w.store.Expire(ctx, key, velocityTTL); err != nil {
		return err
	}

	minuteAgo, err := w.store.ZRangeByScore(ctx, key, epochMs(now.Add(-time.Minute)), epochMs(now))
	if err != nil {
		return err
	}
	hourAgo, err := w.store.ZRangeByScore(ctx, key, epochMs(now.Add(-time.Hour)), epochMs(now))
	if err != nil {
		return err
	}

	agg.VelocityLastMinute = int64(len(minuteAgo))
	agg.VelocityLastHour = int64(len(hourAgo))
	return nil
}

// gatherAmountHistory reads the 24h mean before writing the current sample,
// so the spike rule compares against the prior pattern only.
func (w *Windows) gatherAmountHistory(ctx context.Context, userID string, amount float64, now time.Time, agg *Aggregates) error {
	key := keyAmountHist + userID
	members, err := w.store.ZRangeByScore(ctx, key, epochMs(now.Add(-24*time.Hour)), epochMs(now))
	if err != nil {
		return err
	}

	amounts := parseAmounts(members)
	agg.AmountCount24h = int64(len(amounts))
	if len(amounts) > 0 {
		agg.AmountMean24h = stat.Mean(amounts, nil)
	}
	agg.AmountHistoryOK = true

	if err := w.store.ZAdd(ctx, key, epochMs(now), formatSample(amount, now)); err != nil {
		return err
	}
	return w.store.Expire(ctx, key, amountHistTTL)
}

// gatherDevice reads device membership before inserting the current user:
// the "known user" test is defined over the pre-insert set.
func (w *Windows) gatherDevice(ctx context.Context, userID, deviceID string, agg *Aggregates) error {
	users, err := w.store.SMembers(ctx, keyDeviceUsers+deviceID)
	if err != nil {
		return err
	}
	agg.DeviceUsers = users
	agg.DeviceOK = true

	if err := w.store.SAdd(ctx, keyDeviceUsers+deviceID, userID); err != nil {
		return err
	}

	userKey := keyUserDevices + userID
	if err := w.store.SAdd(ctx, userKey, deviceID); err != nil {
		return err
	}
	if err := w.store.Expire(ctx, userKey, userDeviceTTL); err != nil {
		return err
	}
	count, err := w.store.SCard(ctx, userKey)
	if err != nil {
		return err
	}
	agg.UniqueDevices24h = count
	return nil
}

// gatherGeo reads the last known location, then overwrites it when the
// transaction carries one. The geo value has no TTL.
func (w *Windows) gatherGeo(ctx context.Context, userID string, loc *transaction.Location, agg *Aggregates) error {
	key := keyLastGeo + userID
	raw, err := w.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if geo, ok := parseGeo(raw); ok {
		agg.LastGeo = &geo
	}
	agg.GeoOK = true

	if loc == nil {
		return nil
	}
	value := strconv.FormatFloat(loc.Latitude, 'f', -1, 64) + ":" + strconv.FormatFloat(loc.Longitude, 'f', -1, 64)
	return w.store.Set(ctx, key, value)
}

// gatherSummaries reads the bounded recent-transaction lists, then appends
// the current sample and trims by length. Entries older than the window are
// filtered on read; the key TTL bounds total retention.
func (w *Windows) gatherSummaries(ctx context.Context, userID string, amount float64, now time.Time, agg *Aggregates) error {
	count24, avg24, err := w.readSummary(ctx, keyTx24h+userID, 24*time.Hour, now)
	if err != nil {
		return err
	}
	count7d, avg7d, err := w.readSummary(ctx, keyTx7d+userID, 7*24*time.Hour, now)
	if err != nil {
		return err
	}
	agg.TxCount24h = count24
	agg.AvgAmount24h = avg24
	agg.TxCount7d = count7d
	agg.AvgAmount7d = avg7d
	agg.SummaryOK = true

	sample := formatSample(amount, now)
	if err := w.appendSummary(ctx, keyTx24h+userID, sample, tx24hTTL); err != nil {
		return err
	}
	return w.appendSummary(ctx, keyTx7d+userID, sample, tx7dTTL)
}

// Peek collects the same aggregates as Gather without writing anything.
// The feedback path uses it to rebuild a feature vector for an already
// recorded transaction.
func (w *Windows) Peek(ctx context.Context, tx *transaction.Transaction) (*Aggregates, error) {
	agg := &Aggregates{}
	now := tx.CreatedAt

	key := keyVelocity + tx.UserID
	minuteAgo, err := w.store.ZRangeByScore(ctx, key, epochMs(now.Add(-time.Minute)), epochMs(now))
	if err != nil {
		return nil, fmt.Errorf("velocity window: %w", err)
	}
	hourAgo, err := w.store.ZRangeByScore(ctx, key, epochMs(now.Add(-time.Hour)), epochMs(now))
	if err != nil {
		return nil, fmt.Errorf("velocity window: %w", err)
	}
	agg.VelocityLastMinute = int64(len(minuteAgo))
	agg.VelocityLastHour = int64(len(hourAgo))

	if members, err := w.store.ZRangeByScore(ctx, keyAmountHist+tx.UserID, epochMs(now.Add(-24*time.Hour)), epochMs(now)); err == nil {
		amounts := parseAmounts(members)
		agg.AmountCount24h = int64(len(amounts))
		if len(amounts) > 0 {
			agg.AmountMean24h = stat.Mean(amounts, nil)
		}
		agg.AmountHistoryOK = true
	} else {
		w.log.Warn("amount history window unavailable", zap.String("user_id", tx.UserID), zap.Error(err))
	}

	if users, err := w.store.SMembers(ctx, keyDeviceUsers+tx.DeviceID); err == nil {
		agg.DeviceUsers = users
		agg.DeviceOK = true
		if count, err := w.store.SCard(ctx, keyUserDevices+tx.UserID); err == nil {
			agg.UniqueDevices24h = count
		} else {
			agg.DeviceOK = false
		}
	} else {
		w.log.Warn("device window unavailable", zap.String("device_id", tx.DeviceID), zap.Error(err))
	}

	if raw, err := w.store.Get(ctx, keyLastGeo+tx.UserID); err == nil {
		if geo, ok := parseGeo(raw); ok {
			agg.LastGeo = &geo
		}
		agg.GeoOK = true
	} else {
		w.log.Warn("geo window unavailable", zap.String("user_id", tx.UserID), zap.Error(err))
	}

	count24, avg24, err24 := w.readSummary(ctx, keyTx24h+tx.UserID, 24*time.Hour, now)
	count7d, avg7d, err7d := w.readSummary(ctx, keyTx7d+tx.UserID, 7*24*time.Hour, now)
	if err24 == nil && err7d == nil {
		agg.TxCount24h = count24
		agg.AvgAmount24h = avg24
		agg.TxCount7d = count7d
		agg.AvgAmount7d = avg7d
		agg.SummaryOK = true
	} else {
		w.log.Warn("summary windows unavailable", zap.String("user_id", tx.UserID))
	}

	return agg, nil
}

func (w *Windows) readSummary(ctx context.Context, key string, maxAge time.Duration, now time.Time) (int64, float64, error) {
	entries, err := w.store.LRange(ctx, key, 0, -1)
	if err != nil {
		return 0, 0, err
	}
	cutoff := int64(epochMs(now.Add(-maxAge)))
	var amounts []float64
	for _, e := range entries {
		amount, ts, ok := parseSample(e)
		if !ok || ts < cutoff {
			continue
		}
		amounts = append(amounts, amount)
	}
	if len(amounts) == 0 {
		return 0, 0, nil
	}
	return int64(len(amounts)), stat.Mean(amounts, nil), nil
}

func (w *Windows) appendSummary(ctx context.Context, key, sample string, ttl time.Duration) error {
	if err := w.store.LPush(ctx, key, sample); err != nil {
		return err
	}
	if err := w.store.LTrim(ctx, key, 0, summaryMaxLen-1); err != nil {
		return err
	}
	return w.store.Expire(ctx, key, ttl)
}

func epochMs(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func formatSample(amount float64, t time.Time) string {
	return strconv.FormatFloat(amount, 'f', -1, 64) + ":" + strconv.FormatInt(t.UnixMilli(), 10)
}

// parseSample splits "<amount>:<epochMs>" on the last colon
func parseSample(s string) (amount float64, ts int64, ok bool) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return 0, 0, false
	}
	amount, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, 0, false
	}
	ts, err = strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return amount, ts, true
}

func parseAmounts(members []string) []float64 {
	var amounts []float64
	for _, m := range members {
		if amount, _, ok := parseSample(m); ok {
			amounts = append(amounts, amount)
		}
	}
	return amounts
}

// parseGeo splits "<lat>:<lon>"
func parseGeo(s string) (Geo, bool) {
	if s == "" {
		return Geo{}, false
	}
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return Geo{}, false
	}
	lat, err1 := strconv.ParseFloat(s[:i], 64)
	lon, err2 := strconv.ParseFloat(s[i+1:], 64)
	if err1 != nil || err2 != nil {
		return Geo{}, false
	}
	return Geo{Lat: lat, Lon: lon}, true
}
