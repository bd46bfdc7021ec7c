package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the audit pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertAlertSQL = `INSERT INTO forecast_alerts (
        model,
        forecast_date,
        error_pct,
        threshold_pct,
        severity
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (model, forecast_date) DO UPDATE
    SET error_pct     = EXCLUDED.error_pct,
        threshold_pct = EXCLUDED.threshold_pct,
        severity      = EXCLUDED.severity
    RETURNING id, model, forecast_date, error_pct, threshold_pct, severity, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        model,
        forecast_date,
        error_pct,
        threshold_pct,
        severity,
        created_at
    FROM forecast_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM forecast_alerts WHERE created_at < $1;`
)

// AlertAuditStore records dispatched alerts for later review. The JSON error
// history stays the durable record; this audit trail is optional context.
type AlertAuditStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AuditStore is the PostgreSQL-backed audit trail.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore wires a pgx pool into an AuditStore.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Close releases the underlying pool resources.
func (s *AuditStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *AuditStore) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlert persists an alert emission, one row per (model, forecast_date).
func (s *AuditStore) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, upsertAlertSQL,
		alert.Model,
		alert.ForecastDate,
		alert.ErrorPct.String(),
		alert.ThresholdPct.String(),
		alert.Severity,
	)

	rec, err := scanAlertRecord(row)
	if err != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", err)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *AuditStore) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlertRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *AuditStore) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlertRecord(row rowScanner) (AlertRecord, error) {
	var (
		rec          AlertRecord
		errorStr     string
		thresholdStr string
	)

	if err := row.Scan(
		&rec.ID,
		&rec.Model,
		&rec.ForecastDate,
		&errorStr,
		&thresholdStr,
		&rec.Severity,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	var convErr error
	rec.ErrorPct, convErr = decimal.NewFromString(errorStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse error pct: %w", convErr)
	}
	rec.ThresholdPct, convErr = decimal.NewFromString(thresholdStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse threshold pct: %w", convErr)
	}
	return rec, nil
}

var _ AlertAuditStore = (*AuditStore)(nil)
