package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// fileEntry is the wire form the forecasting jobs drop into the results file.
type fileEntry struct {
	Model     string  `json:"model"`
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
	Date      string  `json:"date"`
}

// FileProducer reads forecast results from a JSON file written by the
// forecasting jobs: an array of {model, predicted, actual, date} objects.
type FileProducer struct {
	path   string
	logger zerolog.Logger
}

// NewFileProducer wires a results file path into a FileProducer.
func NewFileProducer(path string, logger zerolog.Logger) *FileProducer {
	return &FileProducer{
		path:   path,
		logger: logger.With().Str("component", "forecast_file").Logger(),
	}
}

// Results parses the results file. Entries with a blank model name or an
// unparseable date are skipped with a warning instead of failing the run.
func (p *FileProducer) Results(ctx context.Context) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read forecast results: %w", err)
	}

	var entries []fileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode forecast results: %w", err)
	}

	results := make([]Result, 0, len(entries))
	for i, entry := range entries {
		if entry.Model == "" {
			p.logger.Warn().Int("index", i).Msg("skipping result without model name")
			continue
		}

		date := time.Now()
		if entry.Date != "" {
			parsed, err := time.Parse(dateLayout, entry.Date)
			if err != nil {
				p.logger.Warn().Int("index", i).Str("date", entry.Date).Msg("skipping result with invalid date")
				continue
			}
			date = parsed
		}

		results = append(results, Result{
			Model:     entry.Model,
			Predicted: entry.Predicted,
			Actual:    entry.Actual,
			Date:      date,
		})
	}
	return results, nil
}

var _ Producer = (*FileProducer)(nil)
