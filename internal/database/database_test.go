package database

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomreserve/internal/config"
	"roomreserve/internal/models"
)

var testRooms = []models.Room{
	{ID: "room-a", Name: "Room A", Capacity: 10, Order: 1},
	{ID: "room-b", Name: "Room B", Capacity: 6, Order: 2},
	{ID: "room-c", Name: "Room C", Capacity: 4, Order: 3},
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(DriverSQLite, ":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SyncRooms(context.Background(), testRooms))
	return db
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := NewDB("mysql", "whatever", nil)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)

	_, err = Open(config.DatabaseConfig{Driver: "oracle"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestOpen_SQLiteFileIsReusable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rooms.db")
	cfg := config.DatabaseConfig{Driver: DriverSQLite, Path: path}
	ctx := context.Background()

	db, err := Open(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, db.Driver())
	require.NoError(t, db.Ping(ctx))
	require.NoError(t, db.SyncRooms(ctx, testRooms[:1]))
	require.NoError(t, db.Close())

	// schema creation is idempotent and data survives reopen
	db, err = Open(cfg, nil)
	require.NoError(t, err)
	defer db.Close()

	rooms, err := db.GetRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(DriverSQLite, ":memory:", &logger)
	require.NoError(t, err)
	db.Close() // закрываем, чтобы получить ошибки

	ctx := context.Background()

	_, err = db.GetRooms(ctx)
	assert.Error(t, err)
	_, err = db.GetSettings(ctx)
	assert.Error(t, err)
	_, err = db.GetBookingsByDateRange(ctx, "2024-01-01", "2024-01-07")
	assert.Error(t, err)
	err = db.CreateBookingWithLock(ctx, &models.Booking{ID: "x", CreatedAt: time.Now()})
	assert.Error(t, err)
	_, err = db.DeleteBooking(ctx, "x")
	assert.Error(t, err)
	assert.Error(t, db.Ping(ctx))
}
