package history

import "math"

// Summarize computes descriptive statistics over an ordered-by-date error
// series. Pure function, no storage access, so it is testable in isolation.
func Summarize(values []float64, thresholdPct, tolerancePct float64) Statistics {
	if len(values) == 0 {
		return Statistics{}
	}

	stats := Statistics{
		Count: len(values),
		Min:   values[0],
		Max:   values[0],
	}

	sum := 0.0
	for _, v := range values {
		sum += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		if v > thresholdPct {
			stats.AboveThreshold++
		}
	}
	stats.Avg = sum / float64(len(values))
	stats.Trend = classifyTrend(values, tolerancePct)

	return stats
}

// classifyTrend compares the mean of the earlier half of the window against
// the later half. The odd middle element joins the later half so the label
// leans toward recency. A single observation is not enough to call direction.
func classifyTrend(values []float64, tolerancePct float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}

	split := len(values) / 2
	earlier := mean(values[:split])
	later := mean(values[split:])
	overall := mean(values)

	tolerance := math.Abs(overall) * tolerancePct / 100
	diff := later - earlier
	if math.Abs(diff) <= tolerance {
		return TrendStable
	}
	if diff > 0 {
		return TrendRising
	}
	return TrendFalling
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
