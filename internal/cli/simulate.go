package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"load-forecast-alerts/internal/app"
)

var (
	simulateModel     string
	simulateActual    float64
	simulatePredicted float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次预测偏差并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateActual <= 0 || simulatePredicted <= 0 {
			return errors.New("--actual 与 --predicted 必须大于 0")
		}

		opts := app.SimulateOptions{
			Model:     simulateModel,
			Actual:    simulateActual,
			Predicted: simulatePredicted,
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateModel, "model", "ARIMA", "模型名称")
	simulateCmd.Flags().Float64Var(&simulateActual, "actual", 0, "实际负荷 (MW)")
	simulateCmd.Flags().Float64Var(&simulatePredicted, "predicted", 0, "预测负荷 (MW)")
}
