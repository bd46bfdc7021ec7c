package app

import (
	"context"
	"math"
	"math/rand"
	"time"

	"load-forecast-alerts/internal/history"
)

var defaultSeedModels = []string{"ARIMA", "LSTM", "GRU", "SMA"}

// Seed generates synthetic error history for dashboard and report testing.
// Roughly 80% of the generated days fall under the alert threshold, the rest
// simulate threshold violations, with mild per-model bias.
func (a *App) Seed(ctx context.Context, opts SeedOptions) error {
	if opts.Days <= 0 {
		opts.Days = a.Config.History.RetentionDays
	}
	models := opts.Models
	if len(models) == 0 {
		models = defaultSeedModels
	}

	store := history.NewFileStore(a.Config.History.File, a.Logger)
	if opts.Clear {
		a.Logger.Warn().Msg("clearing existing error history")
		if err := store.Save(ctx, history.History{}); err != nil {
			return err
		}
	}

	tracker := a.newTracker()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()

	total := 0
	for _, model := range models {
		for day := 0; day < opts.Days; day++ {
			date := now.AddDate(0, 0, -day)

			var errorPct float64
			if rng.Float64() < 0.8 {
				errorPct = 1.5 + rng.Float64()*3.3
			} else {
				errorPct = 5.1 + rng.Float64()*6.9
			}
			switch model {
			case "ARIMA":
				errorPct *= 1.1
			case "LSTM":
				errorPct *= 0.9
			}

			actual := 350 + rng.Float64()*100
			sign := 1.0
			if rng.Float64() > 0.5 {
				sign = -1.0
			}
			predicted := actual * (1 + sign*errorPct/100)

			extra := map[string]float64{
				"actual":    actual,
				"predicted": predicted,
				"abs_error": math.Abs(actual - predicted),
			}
			if _, err := tracker.AddError(ctx, model, errorPct, date, extra); err != nil {
				return err
			}
			total++
		}
	}

	a.Logger.Info().
		Int("entries", total).
		Int("models", len(models)).
		Str("file", store.Path()).
		Msg("seeded synthetic error history")
	return nil
}
