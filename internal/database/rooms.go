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

// GetRooms returns all rooms ordered for display.
func (db *DB) GetRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	query := `SELECT id, name, capacity, sort_order, created_at FROM rooms ORDER BY sort_order, id`
	if err := db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}
	return rooms, nil
}

func (db *DB) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	query := db.Rebind(`SELECT id, name, capacity, sort_order, created_at FROM rooms WHERE id = ?`)
	if err := db.GetContext(ctx, &room, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

// SyncRooms upserts the seed list. Rooms missing from the list are left untouched
// because existing bookings reference them.
func (db *DB) SyncRooms(ctx context.Context, rooms []models.Room) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := tx.Rebind(`INSERT INTO rooms (id, name, capacity, sort_order, created_at)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT (id) DO UPDATE SET
                  name = excluded.name,
                  capacity = excluded.capacity,
                  sort_order = excluded.sort_order`)
	now := time.Now().UTC()
	for _, room := range rooms {
		if _, err := tx.ExecContext(ctx, query, room.ID, room.Name, room.Capacity, room.Order, now); err != nil {
			return fmt.Errorf("failed to upsert room %s: %w", room.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rooms: %w", err)
	}
	db.logger.Info().Int("rooms", len(rooms)).Msg("rooms synced")
	return nil
}
