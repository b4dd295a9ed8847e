package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// MeterRepo is the sqlx-backed MeterStore.
type MeterRepo struct {
	db *sqlx.DB
}

// NewMeterRepo wraps the database handle.
func NewMeterRepo(db *sqlx.DB) *MeterRepo {
	return &MeterRepo{db: db}
}

// GetForMonth loads the single reading row for a resident's month, if any.
func (r *MeterRepo) GetForMonth(ctx context.Context, residentID int64, year, month int) (*MeterReading, error) {
	var m MeterReading
	err := r.db.GetContext(ctx, &m, `
		SELECT * FROM meters
		WHERE resident_id = $1 AND period_year = $2 AND period_month = $3`,
		residentID, year, month)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("meters: get for month: %w", err)
	}
	return &m, nil
}

// Upsert writes the month's row, updating counters in place on resubmission.
// The unique (resident_id, period_year, period_month) index guarantees a
// single row per month.
func (r *MeterRepo) Upsert(ctx context.Context, m *MeterReading) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meters (resident_id, period_year, period_month,
			hot_kitchen, cold_kitchen, hot_bath, cold_bath)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (resident_id, period_year, period_month) DO UPDATE SET
			hot_kitchen = COALESCE(EXCLUDED.hot_kitchen, meters.hot_kitchen),
			cold_kitchen = COALESCE(EXCLUDED.cold_kitchen, meters.cold_kitchen),
			hot_bath = COALESCE(EXCLUDED.hot_bath, meters.hot_bath),
			cold_bath = COALESCE(EXCLUDED.cold_bath, meters.cold_bath),
			updated = now()`,
		m.ResidentID, m.PeriodYear, m.PeriodMonth,
		m.HotKitchen, m.ColdKitchen, m.HotBath, m.ColdBath)
	if err != nil {
		return fmt.Errorf("meters: upsert: %w", err)
	}
	return nil
}
