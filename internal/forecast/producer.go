package forecast

import (
	"context"
	"time"
)

// Result is one model's forecast for one day next to the observed load.
// Producers are opaque: how the prediction was made does not matter here.
type Result struct {
	Model     string
	Predicted float64
	Actual    float64
	Date      time.Time
}

// Producer supplies the day's forecast results, one per model.
type Producer interface {
	Results(ctx context.Context) ([]Result, error)
}

// Static returns a fixed set of results; used by simulate-alert and tests.
type Static struct {
	results []Result
}

// NewStatic wraps fixed results into a Producer.
func NewStatic(results ...Result) *Static {
	return &Static{results: results}
}

// Results returns the fixed results.
func (s *Static) Results(ctx context.Context) ([]Result, error) {
	return s.results, nil
}

var _ Producer = (*Static)(nil)
