package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"load-forecast-alerts/internal/alerting"
	"load-forecast-alerts/internal/config"
	"load-forecast-alerts/internal/forecast"
	"load-forecast-alerts/internal/history"
	"load-forecast-alerts/internal/scheduler"
	"load-forecast-alerts/internal/service"
	"load-forecast-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// newTracker builds the error history tracker over the JSON file store. One
// tracker per process; everything reaches history through it.
func (a *App) newTracker() *history.Tracker {
	store := history.NewFileStore(a.Config.History.File, a.Logger)
	return history.NewTracker(store, history.Options{
		RetentionDays: a.Config.History.RetentionDays,
		ThresholdPct:  a.Config.Alerting.ThresholdPct,
		TolerancePct:  a.Config.Trend.TolerancePct,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, a.Config.Alerting.DispatchTimeout, a.Logger)
	}
	return nil
}

func (a *App) openAudit(ctx context.Context) (*storage.AuditStore, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	audit := storage.NewAuditStore(pool)
	return audit, audit.Close, nil
}

func (a *App) newEvaluator(ctx context.Context) (*service.Evaluator, func(), error) {
	audit, closeAudit, err := a.openAudit(ctx)
	if err != nil {
		return nil, nil, err
	}

	var auditStore storage.AlertAuditStore
	if audit != nil {
		auditStore = audit
	}

	evaluator := service.New(a.Config, a.newTracker(), a.newNotifier(), auditStore, a.Logger)
	return evaluator, closeAudit, nil
}

// Run executes the long-running daily evaluation service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	evaluator, closeAudit, err := a.newEvaluator(ctx)
	if err != nil {
		return err
	}
	if closeAudit != nil {
		defer closeAudit()
	}

	producer := forecast.NewFileProducer(a.Config.Forecast.ResultsFile, a.Logger)
	sched := scheduler.New(scheduler.Options{
		RunAt:        a.Config.Scheduler.RunAt,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Str("run_at", a.Config.Scheduler.RunAt).Msg("starting forecast monitoring service")
	err = sched.Run(ctx, func(tickCtx context.Context, day time.Time) error {
		return a.runEvaluation(tickCtx, evaluator, producer)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("forecast monitoring service stopped")
	return nil
}

func (a *App) runEvaluation(ctx context.Context, evaluator *service.Evaluator, producer forecast.Producer) error {
	results, err := producer.Results(ctx)
	if err != nil {
		return fmt.Errorf("fetch forecast results: %w", err)
	}
	if len(results) == 0 {
		a.Logger.Warn().Msg("no forecast results to evaluate")
		return nil
	}

	report := evaluator.EvaluateAll(ctx, results)
	for _, eval := range report.Evaluations {
		a.Logger.Info().
			Str("model", eval.Model).
			Float64("error_pct", eval.ErrorPct).
			Str("outcome", string(eval.Outcome)).
			Msg("model evaluated")
	}

	if len(report.Failures) > 0 {
		return fmt.Errorf("evaluation failed for models: %s", strings.Join(report.FailedModels(), ", "))
	}
	return nil
}

// EvaluateOptions configure a one-shot evaluation run.
type EvaluateOptions struct {
	ResultsFile string
}

// Evaluate performs a single evaluation pass over the forecast results file.
func (a *App) Evaluate(ctx context.Context, opts EvaluateOptions) error {
	evaluator, closeAudit, err := a.newEvaluator(ctx)
	if err != nil {
		return err
	}
	if closeAudit != nil {
		defer closeAudit()
	}

	path := opts.ResultsFile
	if path == "" {
		path = a.Config.Forecast.ResultsFile
	}
	producer := forecast.NewFileProducer(path, a.Logger)
	return a.runEvaluation(ctx, evaluator, producer)
}

// ReportOptions configure the summary report.
type ReportOptions struct {
	Model string
	Days  int
}

// ExportOptions hold parameters for exporting historical errors.
type ExportOptions struct {
	Model     string
	Days      int
	Format    string
	Output    string
	PNGPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Model string
	Limit int
}

// SimulateOptions configure a simulated evaluation.
type SimulateOptions struct {
	Model     string
	Predicted float64
	Actual    float64
}

// SeedOptions configure synthetic history generation.
type SeedOptions struct {
	Days   int
	Models []string
	Clear  bool
}

// AlertsOptions configure the alert audit listing.
type AlertsOptions struct {
	Limit int
}
