package database

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomreserve/internal/domain"
)

func TestConcurrentBooking(t *testing.T) {
	logger := zerolog.New(io.Discard)
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(DriverSQLite, dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SyncRooms(ctx, testRooms))

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			// пересекающиеся интервалы в одной комнате
			b := newBooking(fmt.Sprintf("c%d", id), "room-a", "2024-05-15", "10:00", "11:00")
			results <- db.CreateBookingWithLock(ctx, b)
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSlotTaken)
	}

	assert.Equal(t, 1, successCount, "Only one overlapping booking should succeed")

	stored, err := db.GetBookingsByRoomAndDate(ctx, "room-a", "2024-05-15")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
