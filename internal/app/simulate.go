package app

import (
	"context"
	"errors"
	"time"

	"load-forecast-alerts/internal/forecast"
	"load-forecast-alerts/internal/service"
)

// SimulateAlert 以给定的实际/预测负荷模拟一次完整的评估与告警流程。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	evaluator := service.New(a.Config, a.newTracker(), notifier, nil, a.Logger)

	eval, err := evaluator.Evaluate(ctx, forecast.Result{
		Model:     opts.Model,
		Predicted: opts.Predicted,
		Actual:    opts.Actual,
		Date:      time.Now(),
	})
	if err != nil {
		return err
	}

	a.Logger.Info().
		Str("model", opts.Model).
		Float64("error_pct", eval.ErrorPct).
		Str("outcome", string(eval.Outcome)).
		Msg("模拟评估完成")
	return nil
}
