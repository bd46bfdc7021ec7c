package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord captures one dispatched forecast alert for auditing.
type AlertRecord struct {
	ID           int64
	Model        string
	ForecastDate time.Time
	ErrorPct     decimal.Decimal
	ThresholdPct decimal.Decimal
	Severity     string
	CreatedAt    time.Time
}
