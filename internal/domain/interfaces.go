package domain

import (
	"context"
	"errors"
	"time"

	"roomreserve/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Storage-level sentinels. Implementations of Repository wrap or return these.
var (
	ErrNotFound  = errors.New("record not found")
	ErrSlotTaken = errors.New("time range overlaps an existing booking")
)

type RoomStore interface {
	GetRooms(ctx context.Context) ([]models.Room, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	SyncRooms(ctx context.Context, rooms []models.Room) error
}

type SettingsStore interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
	EnsureSettings(ctx context.Context, defaults models.Settings) (*models.Settings, error)
}

type BookingStore interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingsByRoomAndDate(ctx context.Context, roomID, date string) ([]models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, from, to string) ([]models.Booking, error)
	GetBookingsByContact(ctx context.Context, name, phone string) ([]models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, id string) (bool, error)
}

type Repository interface {
	RoomStore
	SettingsStore
	BookingStore
	Ping(ctx context.Context) error
}

// SubmissionGuard admits a key once per ttl. Release frees a key early.
type SubmissionGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// CalendarCache stores rendered calendar weeks. Get returns (nil, nil) on a miss.
type CalendarCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// StateRepository is the short-lived keyed state kept outside the SQL store.
type StateRepository interface {
	SubmissionGuard
	CalendarCache
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
