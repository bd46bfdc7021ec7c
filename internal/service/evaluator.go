package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"load-forecast-alerts/internal/alerting"
	"load-forecast-alerts/internal/config"
	"load-forecast-alerts/internal/forecast"
	"load-forecast-alerts/internal/history"
	"load-forecast-alerts/internal/storage"
)

// ErrorTracker is the slice of the history tracker the evaluator needs.
type ErrorTracker interface {
	AddError(ctx context.Context, model string, errorPct float64, date time.Time, extra map[string]float64) (history.Observation, error)
	Statistics(ctx context.Context, model string, days int) (history.Statistics, error)
}

// Outcome labels the terminal state of one model's evaluation.
type Outcome string

const (
	// OutcomeSkipped means the error was undefined (zero actual load).
	OutcomeSkipped Outcome = "skipped"
	// OutcomeBelowThreshold means the error was recorded but no alert was due.
	OutcomeBelowThreshold Outcome = "below_threshold"
	// OutcomeAlertDispatched means the notification was delivered.
	OutcomeAlertDispatched Outcome = "alert_dispatched"
	// OutcomeAlertDispatchFailed means delivery failed; the recorded history
	// is not rolled back, notification is best-effort.
	OutcomeAlertDispatchFailed Outcome = "alert_dispatch_failed"
)

// Evaluation is the result of one model's daily evaluation.
type Evaluation struct {
	Model    string
	Date     time.Time
	ErrorPct float64
	Stats    history.Statistics
	Outcome  Outcome
}

// RunReport aggregates a whole evaluation run. A degraded run completes and
// reports which models failed instead of aborting on the first error.
type RunReport struct {
	Evaluations []Evaluation
	Failures    map[string]error
}

// FailedModels lists the models whose evaluation failed, sorted.
func (r RunReport) FailedModels() []string {
	models := make([]string, 0, len(r.Failures))
	for model := range r.Failures {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// Evaluator is the alert decision point: it computes the day's forecast
// error, records it, and decides whether to notify. Stateless across
// invocations beyond what the tracker persists.
type Evaluator struct {
	tracker  ErrorTracker
	notifier alerting.Notifier
	audit    storage.AlertAuditStore
	logger   zerolog.Logger

	threshold       decimal.Decimal
	critical        decimal.Decimal
	trendWindow     int
	dispatchTimeout time.Duration
	workers         int
	alertsOn        bool
}

// New constructs the evaluator.
func New(cfg *config.Config, tracker ErrorTracker, notifier alerting.Notifier, audit storage.AlertAuditStore, logger zerolog.Logger) *Evaluator {
	dispatchTimeout := cfg.Alerting.DispatchTimeout
	if dispatchTimeout <= 0 {
		dispatchTimeout = 10 * time.Second
	}
	workers := cfg.Forecast.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Evaluator{
		tracker:         tracker,
		notifier:        notifier,
		audit:           audit,
		logger:          logger.With().Str("component", "evaluator").Logger(),
		threshold:       decimal.NewFromFloat(cfg.Alerting.ThresholdPct),
		critical:        decimal.NewFromFloat(cfg.Alerting.CriticalPct),
		trendWindow:     cfg.Trend.WindowDays,
		dispatchTimeout: dispatchTimeout,
		workers:         workers,
		alertsOn:        cfg.Alerting.Enabled,
	}
}

// Evaluate runs the full decision sequence for one model:
// compute error, record it, fetch trend context, decide, dispatch.
func (e *Evaluator) Evaluate(ctx context.Context, res forecast.Result) (Evaluation, error) {
	eval := Evaluation{Model: res.Model, Date: res.Date}

	if res.Actual == 0 {
		// Error is undefined when there is no observed load; never divide.
		e.logger.Warn().Str("model", res.Model).Time("date", res.Date).Msg("actual load is zero, forecast error undefined; skipping")
		eval.Outcome = OutcomeSkipped
		return eval, nil
	}

	errorPct := math.Abs((res.Actual-res.Predicted)/res.Actual) * 100
	eval.ErrorPct = errorPct

	extra := map[string]float64{
		"actual":    res.Actual,
		"predicted": res.Predicted,
		"abs_error": math.Abs(res.Actual - res.Predicted),
	}
	if _, err := e.tracker.AddError(ctx, res.Model, errorPct, res.Date, extra); err != nil {
		return eval, fmt.Errorf("record error for %s: %w", res.Model, err)
	}

	// Trend context is advisory; a failed read degrades the message, not the run.
	stats, err := e.tracker.Statistics(ctx, res.Model, e.trendWindow)
	if err != nil {
		e.logger.Error().Err(err).Str("model", res.Model).Msg("failed to load trend statistics")
		stats = history.Statistics{}
	}
	eval.Stats = stats

	errorDec := decimal.NewFromFloat(errorPct)
	if !errorDec.GreaterThan(e.threshold) {
		e.logger.Info().Str("model", res.Model).Float64("error_pct", errorPct).Msg("forecast error below threshold")
		eval.Outcome = OutcomeBelowThreshold
		return eval, nil
	}

	if !e.alertsOn || e.notifier == nil {
		e.logger.Debug().Str("model", res.Model).Float64("error_pct", errorPct).Msg("alerting disabled, suppressing alert")
		eval.Outcome = OutcomeBelowThreshold
		return eval, nil
	}

	severity := alerting.SeverityWarning
	message := "Forecast error exceeds acceptable threshold. Manual review recommended."
	if errorDec.GreaterThan(e.critical) {
		severity = alerting.SeverityCritical
		message = "Critical forecast deviation detected. Immediate review required."
	}
	message += e.trendContext(errorPct, stats)

	note := alerting.Notification{
		Model:        res.Model,
		Date:         res.Date,
		ErrorPct:     errorDec,
		ThresholdPct: e.threshold,
		Severity:     severity,
		Message:      message,
	}

	if e.audit != nil {
		record := storage.AlertRecord{
			Model:        res.Model,
			ForecastDate: res.Date,
			ErrorPct:     errorDec,
			ThresholdPct: e.threshold,
			Severity:     string(severity),
		}
		if _, err := e.audit.InsertAlert(ctx, record); err != nil {
			e.logger.Error().Err(err).Str("model", res.Model).Msg("failed to persist alert record")
		}
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, e.dispatchTimeout)
	dispatchErr := e.notifier.Notify(dispatchCtx, note)
	cancel()
	if dispatchErr != nil {
		// The observation is already persisted; delivery is best-effort and
		// retries belong to the transport, not here.
		e.logger.Error().Err(dispatchErr).Str("model", res.Model).Msg("failed to dispatch alert")
		eval.Outcome = OutcomeAlertDispatchFailed
		return eval, nil
	}

	eval.Outcome = OutcomeAlertDispatched
	return eval, nil
}

func (e *Evaluator) trendContext(errorPct float64, stats history.Statistics) string {
	if !stats.HasData() {
		return ""
	}

	context := ""
	if stats.Avg > 0 && errorPct > stats.Avg*1.5 {
		context += fmt.Sprintf("\nThis error is %.1fx higher than the %d-day average (%.2f%%).", errorPct/stats.Avg, e.trendWindow, stats.Avg)
	}
	if stats.Count > 1 {
		context += fmt.Sprintf("\n%d-day error trend: %s.", e.trendWindow, stats.Trend)
	}
	return context
}

// EvaluateAll evaluates each model's result concurrently. The tracker
// serialises history writes internally, and one model's failure never aborts
// the others.
func (e *Evaluator) EvaluateAll(ctx context.Context, results []forecast.Result) RunReport {
	report := RunReport{Failures: make(map[string]error)}

	var mu sync.Mutex
	group := new(errgroup.Group)
	group.SetLimit(e.workers)

	for _, res := range results {
		res := res
		group.Go(func() error {
			eval, err := e.Evaluate(ctx, res)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures[res.Model] = err
				return nil
			}
			report.Evaluations = append(report.Evaluations, eval)
			return nil
		})
	}
	_ = group.Wait()

	if len(report.Failures) > 0 {
		e.logger.Warn().Strs("models", report.FailedModels()).Msg("evaluation run completed degraded")
	}
	return report
}
