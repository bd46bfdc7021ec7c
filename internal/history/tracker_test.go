package history

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker(t *testing.T, now time.Time) *Tracker {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "error_history.json"), zerolog.Nop())
	return NewTracker(store, Options{Now: func() time.Time { return now }}, zerolog.Nop())
}

func day(value string) time.Time {
	ts, err := time.Parse(DateLayout, value)
	if err != nil {
		panic(err)
	}
	return ts
}

func TestAddErrorUpsertIsIdempotent(t *testing.T) {
	now := day("2024-01-01")
	tracker := newTestTracker(t, now)
	ctx := context.Background()

	if _, err := tracker.AddError(ctx, "ARIMA", 4.0, now, nil); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := tracker.AddError(ctx, "ARIMA", 6.5, now, nil); err != nil {
		t.Fatalf("second add: %v", err)
	}

	entries, err := tracker.ModelHistory(ctx, "ARIMA")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry for the key, got %d", len(entries))
	}
	if got := entries["2024-01-01"].Error; got != 6.5 {
		t.Fatalf("rewrite must replace the prior value, got %v", got)
	}
}

func TestAddErrorRejectsNonFiniteInput(t *testing.T) {
	tracker := newTestTracker(t, day("2024-01-01"))
	ctx := context.Background()

	for _, value := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := tracker.AddError(ctx, "GRU", value, time.Time{}, nil); err == nil {
			t.Fatalf("value %v must be rejected", value)
		}
	}

	if _, err := tracker.AddError(ctx, "GRU", 2.0, time.Time{}, map[string]float64{"actual": math.NaN()}); err == nil {
		t.Fatal("non-finite extra metric must be rejected")
	}

	// Nothing may have touched storage.
	models, err := tracker.Models(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 0 {
		t.Fatalf("rejected writes must not persist, got models %v", models)
	}
}

func TestAddErrorRejectsEmptyModel(t *testing.T) {
	tracker := newTestTracker(t, day("2024-01-01"))
	if _, err := tracker.AddError(context.Background(), "", 1.0, time.Time{}, nil); err == nil {
		t.Fatal("empty model name must be rejected")
	}
}

func TestRetentionWindowRelativeToLatestWrite(t *testing.T) {
	tracker := newTestTracker(t, day("2024-03-02"))
	ctx := context.Background()

	// 31 days before the eventual latest write: must be pruned.
	if _, err := tracker.AddError(ctx, "ARIMA", 3.0, day("2024-01-31"), nil); err != nil {
		t.Fatal(err)
	}
	// Exactly 30 days before: the boundary is inclusive, must survive.
	if _, err := tracker.AddError(ctx, "ARIMA", 3.5, day("2024-02-01"), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := tracker.AddError(ctx, "ARIMA", 4.0, day("2024-03-02"), nil); err != nil {
		t.Fatal(err)
	}

	entries, err := tracker.ModelHistory(ctx, "ARIMA")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := entries["2024-01-31"]; ok {
		t.Fatal("entry 31 days old must be pruned")
	}
	if _, ok := entries["2024-02-01"]; !ok {
		t.Fatal("entry exactly 30 days old must survive (inclusive boundary)")
	}
	if _, ok := entries["2024-03-02"]; !ok {
		t.Fatal("latest entry missing")
	}
}

func TestRetentionTolerantOfBackfillOrder(t *testing.T) {
	tracker := newTestTracker(t, day("2024-03-10"))
	ctx := context.Background()

	if _, err := tracker.AddError(ctx, "LSTM", 2.0, day("2024-03-10"), nil); err != nil {
		t.Fatal(err)
	}
	// Backfilled out of date order, inside the window of the latest write.
	if _, err := tracker.AddError(ctx, "LSTM", 2.5, day("2024-02-20"), nil); err != nil {
		t.Fatal(err)
	}

	entries, err := tracker.ModelHistory(ctx, "LSTM")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("backfill within the window must be retained, got %v", entries)
	}
}

func TestPruneIsIdempotent(t *testing.T) {
	tracker := newTestTracker(t, day("2024-03-02"))
	ctx := context.Background()

	if _, err := tracker.AddError(ctx, "ARIMA", 3.0, day("2024-03-02"), nil); err != nil {
		t.Fatal(err)
	}

	ref := day("2024-05-01")
	removed, err := tracker.Prune(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	removed, err = tracker.Prune(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Fatalf("second prune must be a no-op, removed %d", removed)
	}
}

func TestStatisticsEmptyWindow(t *testing.T) {
	tracker := newTestTracker(t, day("2024-01-10"))

	stats, err := tracker.Statistics(context.Background(), "GRU", 7)
	if err != nil {
		t.Fatalf("empty window is a normal condition, got error: %v", err)
	}
	if stats.HasData() {
		t.Fatalf("expected the explicit no-data result, got %+v", stats)
	}
}

func TestStatisticsWindowFilter(t *testing.T) {
	now := day("2024-01-10")
	tracker := newTestTracker(t, now)
	ctx := context.Background()

	if _, err := tracker.AddError(ctx, "ARIMA", 10.0, day("2024-01-01"), nil); err != nil {
		t.Fatal(err)
	}
	for i, v := range []float64{2, 2, 2, 8, 8, 8} {
		date := day("2024-01-04").AddDate(0, 0, i)
		if _, err := tracker.AddError(ctx, "ARIMA", v, date, nil); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := tracker.Statistics(ctx, "ARIMA", 7)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Count != 6 {
		t.Fatalf("count = %d, want 6 (the 9-day-old entry is outside the window)", stats.Count)
	}
	if stats.Avg != 5 {
		t.Fatalf("avg = %v, want 5", stats.Avg)
	}
	if stats.Trend != TrendRising {
		t.Fatalf("trend = %q, want rising", stats.Trend)
	}
}

func TestConcurrentWritesForDifferentModels(t *testing.T) {
	tracker := newTestTracker(t, day("2024-01-05"))
	ctx := context.Background()

	models := []string{"ARIMA", "LSTM", "GRU", "SMA"}
	var wg sync.WaitGroup
	for _, model := range models {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, err := tracker.AddError(ctx, name, 3.3, day("2024-01-05"), nil); err != nil {
				t.Errorf("add %s: %v", name, err)
			}
		}(model)
	}
	wg.Wait()

	stored, err := tracker.Models(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != len(models) {
		t.Fatalf("lost update: stored %v, want all of %v", stored, models)
	}
}
