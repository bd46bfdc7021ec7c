package history

import "testing"

func TestSummarizeTrendClassification(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   Trend
	}{
		{"rising", []float64{2, 2, 2, 8, 8, 8}, TrendRising},
		{"falling", []float64{8, 8, 8, 2, 2, 2}, TrendFalling},
		{"stable", []float64{5, 5, 5, 5, 5, 5}, TrendStable},
		{"single value", []float64{7.5}, TrendStable},
		{"within tolerance", []float64{5.0, 5.1, 5.0, 5.1}, TrendStable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Summarize(tc.values, DefaultThresholdPct, DefaultTolerancePct)
			if got.Trend != tc.want {
				t.Fatalf("trend = %q, want %q", got.Trend, tc.want)
			}
		})
	}
}

func TestSummarizeOddLengthSplitsMiddleToLaterHalf(t *testing.T) {
	// Earlier half {2, 2}, later half {2, 8, 8}: the middle element biases
	// the comparison toward recency.
	stats := Summarize([]float64{2, 2, 2, 8, 8}, DefaultThresholdPct, DefaultTolerancePct)
	if stats.Trend != TrendRising {
		t.Fatalf("trend = %q, want rising", stats.Trend)
	}
}

func TestSummarizeEmptySeries(t *testing.T) {
	stats := Summarize(nil, DefaultThresholdPct, DefaultTolerancePct)
	if stats.HasData() {
		t.Fatalf("empty series should report no data, got %+v", stats)
	}
	if stats.Count != 0 {
		t.Fatalf("count = %d, want 0", stats.Count)
	}
}

func TestSummarizeAggregates(t *testing.T) {
	stats := Summarize([]float64{2, 4, 6, 8}, 5.0, DefaultTolerancePct)
	if stats.Count != 4 {
		t.Fatalf("count = %d, want 4", stats.Count)
	}
	if stats.Avg != 5 {
		t.Fatalf("avg = %v, want 5", stats.Avg)
	}
	if stats.Min != 2 || stats.Max != 8 {
		t.Fatalf("min/max = %v/%v, want 2/8", stats.Min, stats.Max)
	}
	if stats.AboveThreshold != 2 {
		t.Fatalf("above threshold = %d, want 2 (strict comparison)", stats.AboveThreshold)
	}
}

func TestSummarizeThresholdCountIsStrict(t *testing.T) {
	stats := Summarize([]float64{5.0, 5.0}, 5.0, DefaultTolerancePct)
	if stats.AboveThreshold != 0 {
		t.Fatalf("errors exactly at the threshold must not count, got %d", stats.AboveThreshold)
	}
}
