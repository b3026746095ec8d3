package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"roomreserve/internal/domain"
	"roomreserve/internal/models"
)

const bookingColumns = `id, room_id, room_name, date, start_time, end_time,
                 representative_name, phone_number, number_of_people, purpose, created_at`

const insertBookingQuery = `INSERT INTO bookings (` + bookingColumns + `)
              VALUES (:id, :room_id, :room_name, :date, :start_time, :end_time,
                      :representative_name, :phone_number, :number_of_people, :purpose, :created_at)`

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	query := db.Rebind(`SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`)
	if err := db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (db *DB) GetBookingsByRoomAndDate(ctx context.Context, roomID, date string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := db.Rebind(`SELECT ` + bookingColumns + ` FROM bookings
              WHERE room_id = ? AND date = ? ORDER BY start_time`)
	if err := db.SelectContext(ctx, &bookings, query, roomID, date); err != nil {
		return nil, fmt.Errorf("failed to get bookings by room and date: %w", err)
	}
	return bookings, nil
}

// GetBookingsByDateRange returns bookings with from <= date <= to.
func (db *DB) GetBookingsByDateRange(ctx context.Context, from, to string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := db.Rebind(`SELECT ` + bookingColumns + ` FROM bookings
              WHERE date >= ? AND date <= ? ORDER BY date, start_time, room_id`)
	if err := db.SelectContext(ctx, &bookings, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	return bookings, nil
}

// GetBookingsByContact matches representative name and phone exactly.
func (db *DB) GetBookingsByContact(ctx context.Context, name, phone string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := db.Rebind(`SELECT ` + bookingColumns + ` FROM bookings
              WHERE representative_name = ? AND phone_number = ?
              ORDER BY date, start_time, created_at`)
	if err := db.SelectContext(ctx, &bookings, query, name, phone); err != nil {
		return nil, fmt.Errorf("failed to get bookings by contact: %w", err)
	}
	return bookings, nil
}

// CreateBooking inserts without an overlap check.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if _, err := db.NamedExecContext(ctx, insertBookingQuery, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// CreateBookingWithLock re-checks the overlap and inserts in one transaction.
// Returns domain.ErrSlotTaken when another booking already covers part of the range.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := db.lockRoomDate(ctx, tx, booking.RoomID, booking.Date); err != nil {
		return err
	}

	// 1. Check overlap inside transaction
	var overlapping int
	queryCount := tx.Rebind(`SELECT COUNT(*) FROM bookings
              WHERE room_id = ? AND date = ? AND start_time < ? AND ? < end_time`)
	err = tx.QueryRowxContext(ctx, queryCount,
		booking.RoomID, booking.Date, booking.EndTime, booking.StartTime).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	if overlapping > 0 {
		return domain.ErrSlotTaken
	}

	// 2. Create booking
	if _, err := tx.NamedExecContext(ctx, insertBookingQuery, booking); err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	return nil
}

// lockRoomDate serializes writers for one room and day. sqlite already holds
// a write lock from BEGIN IMMEDIATE.
func (db *DB) lockRoomDate(ctx context.Context, tx *sqlx.Tx, roomID, date string) error {
	if db.driver != DriverPostgres {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, roomID+"|"+date); err != nil {
		return fmt.Errorf("failed to lock room %s on %s: %w", roomID, date, err)
	}
	return nil
}

// DeleteBooking removes a booking by ID and reports whether a row was deleted.
func (db *DB) DeleteBooking(ctx context.Context, id string) (bool, error) {
	result, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM bookings WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows > 0, nil
}
