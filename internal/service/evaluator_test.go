package service

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"load-forecast-alerts/internal/alerting"
	"load-forecast-alerts/internal/config"
	"load-forecast-alerts/internal/forecast"
	"load-forecast-alerts/internal/history"
)

type fakeNotifier struct {
	mu       sync.Mutex
	notes    []alerting.Notification
	failWith error
}

func (f *fakeNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.notes = append(f.notes, note)
	return nil
}

func (f *fakeNotifier) sent() []alerting.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]alerting.Notification(nil), f.notes...)
}

func testConfig() *config.Config {
	return &config.Config{
		Trend: config.TrendConfig{WindowDays: 7, TolerancePct: 5},
		Forecast: config.ForecastConfig{
			Workers: 4,
		},
		Alerting: config.AlertingConfig{
			Enabled:         true,
			ThresholdPct:    5.0,
			CriticalPct:     10.0,
			DispatchTimeout: time.Second,
		},
	}
}

func newTestEvaluator(t *testing.T, notifier alerting.Notifier) (*Evaluator, *history.Tracker) {
	t.Helper()
	store := history.NewFileStore(filepath.Join(t.TempDir(), "error_history.json"), zerolog.Nop())
	tracker := history.NewTracker(store, history.Options{Now: testDate}, zerolog.Nop())
	return New(testConfig(), tracker, notifier, nil, zerolog.Nop()), tracker
}

func testDate() time.Time {
	return time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
}

func TestEvaluateBelowThresholdRecordsWithoutAlert(t *testing.T) {
	notifier := &fakeNotifier{}
	evaluator, tracker := newTestEvaluator(t, notifier)
	ctx := context.Background()

	eval, err := evaluator.Evaluate(ctx, forecast.Result{Model: "ARIMA", Predicted: 430, Actual: 450, Date: testDate()})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if eval.Outcome != OutcomeBelowThreshold {
		t.Fatalf("outcome = %q, want below_threshold", eval.Outcome)
	}
	if math.Abs(eval.ErrorPct-4.44) > 0.01 {
		t.Fatalf("error pct = %v, want ~4.44", eval.ErrorPct)
	}
	if len(notifier.sent()) != 0 {
		t.Fatal("no alert may be dispatched below threshold")
	}

	entries, err := tracker.ModelHistory(ctx, "ARIMA")
	if err != nil {
		t.Fatal(err)
	}
	obs, ok := entries["2024-01-15"]
	if !ok {
		t.Fatal("observation must be recorded even below threshold")
	}
	if obs.Extra["actual"] != 450 || obs.Extra["predicted"] != 430 {
		t.Fatalf("extra metrics missing: %v", obs.Extra)
	}
}

func TestEvaluateAboveThresholdDispatchesAlert(t *testing.T) {
	notifier := &fakeNotifier{}
	evaluator, _ := newTestEvaluator(t, notifier)

	eval, err := evaluator.Evaluate(context.Background(), forecast.Result{Model: "ARIMA", Predicted: 400, Actual: 450, Date: testDate()})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if eval.Outcome != OutcomeAlertDispatched {
		t.Fatalf("outcome = %q, want alert_dispatched", eval.Outcome)
	}

	sent := notifier.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one alert, got %d", len(sent))
	}
	note := sent[0]
	if note.Model != "ARIMA" {
		t.Fatalf("model = %q", note.Model)
	}
	if got := note.ErrorPct.StringFixed(2); got != "11.11" {
		t.Fatalf("error pct = %s, want 11.11", got)
	}
	if note.Severity != alerting.SeverityCritical {
		t.Fatalf("an error above 10%% escalates to critical, got %q", note.Severity)
	}
}

func TestEvaluateThresholdBoundaryIsStrict(t *testing.T) {
	notifier := &fakeNotifier{}
	evaluator, _ := newTestEvaluator(t, notifier)
	ctx := context.Background()

	// Exactly 5.00%: no alert.
	eval, err := evaluator.Evaluate(ctx, forecast.Result{Model: "ARIMA", Predicted: 95, Actual: 100, Date: testDate()})
	if err != nil {
		t.Fatal(err)
	}
	if eval.Outcome != OutcomeBelowThreshold {
		t.Fatalf("5.00%% must not alert, outcome %q", eval.Outcome)
	}

	// 5.01%: alert.
	eval, err = evaluator.Evaluate(ctx, forecast.Result{Model: "LSTM", Predicted: 94.99, Actual: 100, Date: testDate()})
	if err != nil {
		t.Fatal(err)
	}
	if eval.Outcome != OutcomeAlertDispatched {
		t.Fatalf("5.01%% must alert, outcome %q", eval.Outcome)
	}
	if sent := notifier.sent(); len(sent) != 1 || sent[0].Severity != alerting.SeverityWarning {
		t.Fatalf("5.01%% is a warning, got %+v", sent)
	}
}

func TestEvaluateZeroActualSkips(t *testing.T) {
	notifier := &fakeNotifier{}
	evaluator, tracker := newTestEvaluator(t, notifier)
	ctx := context.Background()

	eval, err := evaluator.Evaluate(ctx, forecast.Result{Model: "GRU", Predicted: 120, Actual: 0, Date: testDate()})
	if err != nil {
		t.Fatalf("zero actual must never error: %v", err)
	}
	if eval.Outcome != OutcomeSkipped {
		t.Fatalf("outcome = %q, want skipped", eval.Outcome)
	}
	if len(notifier.sent()) != 0 {
		t.Fatal("no alert may fire for an undefined error")
	}

	models, err := tracker.Models(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 0 {
		t.Fatalf("undefined error must not be recorded, got %v", models)
	}
}

func TestEvaluateDispatchFailureKeepsHistory(t *testing.T) {
	notifier := &fakeNotifier{failWith: errors.New("telegram unreachable")}
	evaluator, tracker := newTestEvaluator(t, notifier)
	ctx := context.Background()

	eval, err := evaluator.Evaluate(ctx, forecast.Result{Model: "ARIMA", Predicted: 400, Actual: 450, Date: testDate()})
	if err != nil {
		t.Fatalf("dispatch failure is non-fatal: %v", err)
	}
	if eval.Outcome != OutcomeAlertDispatchFailed {
		t.Fatalf("outcome = %q, want alert_dispatch_failed", eval.Outcome)
	}

	entries, err := tracker.ModelHistory(ctx, "ARIMA")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := entries["2024-01-15"]; !ok {
		t.Fatal("observation must survive a failed dispatch")
	}
}

func TestEvaluateAlertIncludesTrendContext(t *testing.T) {
	notifier := &fakeNotifier{}
	evaluator, tracker := newTestEvaluator(t, notifier)
	ctx := context.Background()

	// Seed a calm recent history so the fresh spike dwarfs the average.
	for i := 0; i < 5; i++ {
		date := testDate().AddDate(0, 0, i-5)
		if _, err := tracker.AddError(ctx, "ARIMA", 2.0, date, nil); err != nil {
			t.Fatal(err)
		}
	}

	_, err := evaluator.Evaluate(ctx, forecast.Result{Model: "ARIMA", Predicted: 400, Actual: 450, Date: testDate()})
	if err != nil {
		t.Fatal(err)
	}

	sent := notifier.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one alert, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Message, "higher than the 7-day average") {
		t.Fatalf("message missing trend context: %q", sent[0].Message)
	}
	if !strings.Contains(sent[0].Message, "7-day error trend: rising") {
		t.Fatalf("message missing trend label: %q", sent[0].Message)
	}
}

func TestEvaluateAllIsolatesFailures(t *testing.T) {
	notifier := &fakeNotifier{}
	evaluator, tracker := newTestEvaluator(t, notifier)
	ctx := context.Background()

	results := []forecast.Result{
		{Model: "ARIMA", Predicted: 430, Actual: 450, Date: testDate()},
		{Model: "LSTM", Predicted: math.NaN(), Actual: 450, Date: testDate()},
		{Model: "GRU", Predicted: 445, Actual: 450, Date: testDate()},
	}

	report := evaluator.EvaluateAll(ctx, results)

	if len(report.Evaluations) != 2 {
		t.Fatalf("expected 2 successful evaluations, got %d", len(report.Evaluations))
	}
	failed := report.FailedModels()
	if len(failed) != 1 || failed[0] != "LSTM" {
		t.Fatalf("failed models = %v, want [LSTM]", failed)
	}

	// Both healthy models must have landed in the shared store.
	models, err := tracker.Models(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 2 {
		t.Fatalf("lost update across concurrent evaluations: %v", models)
	}
}
