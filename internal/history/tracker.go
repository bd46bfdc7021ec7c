package history

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Defaults for the retention and trend policy constants. The values come from
// operating experience with the load dashboard, not from a derivation, so they
// stay configurable.
const (
	DefaultRetentionDays = 30
	DefaultThresholdPct  = 5.0
	DefaultTolerancePct  = 5.0
)

// Options tune tracker retention and statistics behaviour.
type Options struct {
	RetentionDays int
	ThresholdPct  float64
	TolerancePct  float64
	Now           func() time.Time
}

// Tracker is the sole reader and mutator of the persisted History. Every call
// reloads from the Store so a fresh process sees the same state, and the mutex
// serialises load-modify-save when several models are evaluated concurrently.
type Tracker struct {
	store  Store
	opts   Options
	logger zerolog.Logger

	mu sync.Mutex
}

// NewTracker wires a Store into a Tracker.
func NewTracker(store Store, opts Options, logger zerolog.Logger) *Tracker {
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = DefaultRetentionDays
	}
	if opts.ThresholdPct <= 0 {
		opts.ThresholdPct = DefaultThresholdPct
	}
	if opts.TolerancePct <= 0 {
		opts.TolerancePct = DefaultTolerancePct
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		store:  store,
		opts:   opts,
		logger: logger.With().Str("component", "error_tracker").Logger(),
	}
}

// AddError upserts one model's error for one date, prunes entries older than
// the retention window, and persists. Pruning is relative to the most recent
// date present after the upsert, so out-of-order backfills behave.
func (t *Tracker) AddError(ctx context.Context, model string, errorPct float64, date time.Time, extra map[string]float64) (Observation, error) {
	if model == "" {
		return Observation{}, ErrEmptyModel
	}
	if !isFinite(errorPct) {
		return Observation{}, fmt.Errorf("%w: %v", ErrNonFinite, errorPct)
	}
	for key, value := range extra {
		if !isFinite(value) {
			return Observation{}, fmt.Errorf("%w: metric %q is %v", ErrNonFinite, key, value)
		}
	}
	if date.IsZero() {
		date = t.opts.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	hist, err := t.store.Load(ctx)
	if err != nil {
		return Observation{}, fmt.Errorf("load history: %w", err)
	}

	obs := Observation{
		Error:     errorPct,
		Timestamp: t.opts.Now().UTC(),
		Extra:     cloneMetrics(extra),
	}
	hist.Upsert(model, date, obs)

	if latest, ok := hist.LatestDate(); ok {
		cutoff := latest.AddDate(0, 0, -t.opts.RetentionDays)
		if removed := hist.PruneBefore(cutoff); removed > 0 {
			t.logger.Debug().Int("removed", removed).Str("cutoff", cutoff.Format(DateLayout)).Msg("pruned expired history entries")
		}
	}

	if err := t.store.Save(ctx, hist); err != nil {
		return Observation{}, fmt.Errorf("save history: %w", err)
	}

	t.logger.Info().Str("model", model).Str("date", date.Format(DateLayout)).Float64("error_pct", errorPct).Msg("error recorded")
	return obs, nil
}

// Prune removes entries older than the retention window relative to the given
// reference date. Idempotent: a second call with the same reference is a no-op
// and skips the write entirely.
func (t *Tracker) Prune(ctx context.Context, reference time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hist, err := t.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load history: %w", err)
	}

	removed := hist.PruneBefore(reference.AddDate(0, 0, -t.opts.RetentionDays))
	if removed == 0 {
		return 0, nil
	}
	if err := t.store.Save(ctx, hist); err != nil {
		return 0, fmt.Errorf("save history: %w", err)
	}
	return removed, nil
}

// RecentErrors lists a model's (date, error) pairs within the last days,
// sorted ascending by date. An unknown model yields an empty slice.
func (t *Tracker) RecentErrors(ctx context.Context, model string, days int) ([]ErrorPoint, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recentErrorsLocked(ctx, model, days)
}

func (t *Tracker) recentErrorsLocked(ctx context.Context, model string, days int) ([]ErrorPoint, error) {
	hist, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	entries := hist[model]
	if len(entries) == 0 {
		return nil, nil
	}

	cutoffKey := t.opts.Now().AddDate(0, 0, -days).Format(DateLayout)
	points := make([]ErrorPoint, 0, len(entries))
	for key, obs := range entries {
		if key < cutoffKey {
			continue
		}
		date, err := time.Parse(DateLayout, key)
		if err != nil {
			continue
		}
		points = append(points, ErrorPoint{Date: date, Error: obs.Error})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// Statistics summarises a model's errors over the last days. Zero observations
// in range is a normal condition for new models and yields the explicit
// no-data result, not an error.
func (t *Tracker) Statistics(ctx context.Context, model string, days int) (Statistics, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	points, err := t.recentErrorsLocked(ctx, model, days)
	if err != nil {
		return Statistics{}, err
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Error
	}
	return Summarize(values, t.opts.ThresholdPct, t.opts.TolerancePct), nil
}

// Models lists the model names present in the history, sorted.
func (t *Tracker) Models(ctx context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hist, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return hist.Models(), nil
}

// ModelHistory returns a copy of one model's dated observations. Copies keep
// mutation confined to the tracker.
func (t *Tracker) ModelHistory(ctx context.Context, model string) (ModelHistory, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hist, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	entries := hist[model]
	out := make(ModelHistory, len(entries))
	for key, obs := range entries {
		obs.Extra = cloneMetrics(obs.Extra)
		out[key] = obs
	}
	return out, nil
}

func cloneMetrics(in map[string]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
