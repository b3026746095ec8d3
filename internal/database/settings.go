package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roomreserve/internal/domain"
	"roomreserve/internal/models"
)

func (db *DB) GetSettings(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	query := db.Rebind(`SELECT business_start_time, business_end_time, booking_interval_minutes, max_booking_days
              FROM settings WHERE id = ?`)
	if err := db.GetContext(ctx, &s, query, models.SettingsID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("settings: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &s, nil
}

// SaveSettings overwrites the singleton row.
func (db *DB) SaveSettings(ctx context.Context, s models.Settings) error {
	query := db.Rebind(`INSERT INTO settings (id, business_start_time, business_end_time, booking_interval_minutes, max_booking_days, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT (id) DO UPDATE SET
                  business_start_time = excluded.business_start_time,
                  business_end_time = excluded.business_end_time,
                  booking_interval_minutes = excluded.booking_interval_minutes,
                  max_booking_days = excluded.max_booking_days,
                  updated_at = excluded.updated_at`)
	_, err := db.ExecContext(ctx, query, models.SettingsID,
		s.BusinessStartTime, s.BusinessEndTime, s.BookingIntervalMinutes, s.MaxBookingDays, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// EnsureSettings inserts defaults when no row exists and returns the stored settings.
func (db *DB) EnsureSettings(ctx context.Context, defaults models.Settings) (*models.Settings, error) {
	query := db.Rebind(`INSERT INTO settings (id, business_start_time, business_end_time, booking_interval_minutes, max_booking_days, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT (id) DO NOTHING`)
	_, err := db.ExecContext(ctx, query, models.SettingsID,
		defaults.BusinessStartTime, defaults.BusinessEndTime, defaults.BookingIntervalMinutes, defaults.MaxBookingDays, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}
	return db.GetSettings(ctx)
}
