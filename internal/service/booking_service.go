package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"roomreserve/internal/clock"
	"roomreserve/internal/domain"
	"roomreserve/internal/events"
	"roomreserve/internal/metrics"
	"roomreserve/internal/models"
	"roomreserve/internal/schedule"
)

// BookingConfirmation is returned by a successful CreateBooking.
type BookingConfirmation struct {
	ID      string         `json:"id"`
	Booking models.Booking `json:"booking"`
}

// BookingLookup is the result of a contact search.
type BookingLookup struct {
	Booking   models.Booking `json:"booking"`
	IsPast    bool           `json:"isPast"`
	CanCancel bool           `json:"canCancel"`
}

type BookingService struct {
	repo            domain.Repository
	guard           domain.SubmissionGuard
	eventBus        domain.EventPublisher
	clock           clock.Clock
	loc             *time.Location
	duplicateWindow time.Duration
	newID           func() string
	logger          *zerolog.Logger
}

// NewBookingService builds the service. guard and eventBus may be nil.
func NewBookingService(
	repo domain.Repository,
	guard domain.SubmissionGuard,
	eventBus domain.EventPublisher,
	clk clock.Clock,
	loc *time.Location,
	duplicateWindow time.Duration,
	logger *zerolog.Logger,
) *BookingService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		repo:            repo,
		guard:           guard,
		eventBus:        eventBus,
		clock:           clk,
		loc:             loc,
		duplicateWindow: duplicateWindow,
		newID:           uuid.NewString,
		logger:          logger,
	}
}

// today returns midnight of the current day in the booking location.
func (s *BookingService) today() time.Time {
	now := s.clock.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

func (s *BookingService) settings(ctx context.Context) (models.Settings, error) {
	return loadSettings(ctx, s.repo, s.logger)
}

// CreateBooking validates, checks the slot and stores a new booking.
func (s *BookingService) CreateBooking(ctx context.Context, req BookingRequest) (*BookingConfirmation, error) {
	settings, err := s.settings(ctx)
	if err != nil {
		return nil, err
	}

	req.normalize()
	if fields := validateRequest(req, settings, s.today()); len(fields) > 0 {
		for field := range fields {
			metrics.IncValidationFailure(field)
		}
		return nil, fields.err()
	}

	// Проверяем пересечения до открытия транзакции
	existing, err := s.repo.GetBookingsByRoomAndDate(ctx, req.RoomID, req.Date)
	if err != nil {
		return nil, storageError(err)
	}
	if b := schedule.FindConflict(req.StartTime, req.EndTime, existing); b != nil {
		metrics.IncConflict()
		s.logger.Debug().Str("room_id", req.RoomID).Str("date", req.Date).Str("conflicts_with", b.ID).Msg("slot unavailable")
		return nil, ErrConflict
	}

	room, err := s.repo.GetRoom(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, storageError(err)
	}

	guardKey := submitKey(req.RoomID, req.Date, req.StartTime, req.PhoneNumber)
	if err := s.acquireSubmit(ctx, guardKey); err != nil {
		return nil, err
	}

	booking := models.Booking{
		ID:                 s.newID(),
		RoomID:             room.ID,
		RoomName:           room.Name,
		Date:               req.Date,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		RepresentativeName: req.RepresentativeName,
		PhoneNumber:        req.PhoneNumber,
		NumberOfPeople:     req.NumberOfPeople,
		Purpose:            req.Purpose,
		CreatedAt:          s.clock.Now().UTC(),
	}

	if err := s.repo.CreateBookingWithLock(ctx, &booking); err != nil {
		// nothing was written, the same submission may be retried at once
		s.releaseSubmit(ctx, guardKey)
		if errors.Is(err, domain.ErrSlotTaken) {
			metrics.IncConflict()
			return nil, ErrConflict
		}
		return nil, storageError(err)
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("room_id", booking.RoomID).
		Str("date", booking.Date).
		Str("start", booking.StartTime).
		Str("end", booking.EndTime).
		Msg("booking created")
	metrics.IncBookingCreated(booking.RoomID)
	s.publishEvent(events.EventBookingCreated, booking)

	return &BookingConfirmation{ID: booking.ID, Booking: booking}, nil
}

func submitKey(roomID, date, start, phone string) string {
	return strings.Join([]string{roomID, date, start, phone}, "|")
}

// acquireSubmit rejects a repeat of the same submission inside the duplicate window.
// Guard failures are logged and the request proceeds.
func (s *BookingService) acquireSubmit(ctx context.Context, key string) error {
	if s.guard == nil || s.duplicateWindow <= 0 {
		return nil
	}
	ok, err := s.guard.Acquire(ctx, key, s.duplicateWindow)
	if err != nil {
		s.logger.Warn().Err(err).Msg("duplicate-submit guard unavailable")
		return nil
	}
	if !ok {
		metrics.IncDuplicateSubmit()
		return ErrDuplicateSubmit
	}
	return nil
}

func (s *BookingService) releaseSubmit(ctx context.Context, key string) {
	if s.guard == nil || s.duplicateWindow <= 0 {
		return
	}
	if err := s.guard.Release(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("duplicate-submit guard release failed")
	}
}

// FindBooking looks a booking up by exact representative name and phone number.
// Prefers the earliest upcoming booking, otherwise the latest past one.
// Returns (nil, nil) when nothing matches.
func (s *BookingService) FindBooking(ctx context.Context, name, phone string) (*BookingLookup, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)

	fields := FieldErrors{}
	if name == "" {
		fields.add("representativeName", "representative name is required")
	}
	if phone == "" {
		fields.add("phoneNumber", "phone number is required")
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	bookings, err := s.repo.GetBookingsByContact(ctx, name, phone)
	if err != nil {
		return nil, storageError(err)
	}
	if len(bookings) == 0 {
		return nil, nil
	}

	now := s.clock.Now()
	var upcoming, past []models.Booking
	for _, b := range bookings {
		if s.isPast(b, now) {
			past = append(past, b)
		} else {
			upcoming = append(upcoming, b)
		}
	}

	// одинаковый порядок: дата, начало, время создания
	less := func(list []models.Booking) func(i, j int) bool {
		return func(i, j int) bool {
			a, b := list[i], list[j]
			if a.Date != b.Date {
				return a.Date < b.Date
			}
			if a.StartTime != b.StartTime {
				return a.StartTime < b.StartTime
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	var chosen models.Booking
	if len(upcoming) > 0 {
		sort.SliceStable(upcoming, less(upcoming))
		chosen = upcoming[0]
	} else {
		sort.SliceStable(past, less(past))
		chosen = past[len(past)-1]
	}

	isPast := s.isPast(chosen, now)
	return &BookingLookup{Booking: chosen, IsPast: isPast, CanCancel: !isPast}, nil
}

// isPast reports whether the booking started strictly before now.
// A booking with an unreadable start is treated as past.
func (s *BookingService) isPast(b models.Booking, now time.Time) bool {
	start, err := b.StartsAt(s.loc)
	if err != nil {
		s.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("booking has unreadable start")
		return true
	}
	return start.Before(now)
}

// CancelBooking deletes an upcoming booking. confirmed must be true.
// Cancelling an ID that no longer exists succeeds.
func (s *BookingService) CancelBooking(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return &ValidationError{Fields: FieldErrors{"id": "booking id is required"}}
	}

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug().Str("booking_id", id).Msg("cancel of missing booking")
			return nil
		}
		return storageError(err)
	}

	if s.isPast(*booking, s.clock.Now()) {
		return ErrBookingPast
	}

	deleted, err := s.repo.DeleteBooking(ctx, id)
	if err != nil {
		return storageError(err)
	}
	if !deleted {
		s.logger.Debug().Str("booking_id", id).Msg("booking already deleted")
		return nil
	}

	// the slot may be booked again right away by the same person
	s.releaseSubmit(ctx, submitKey(booking.RoomID, booking.Date, booking.StartTime, booking.PhoneNumber))

	s.logger.Info().Str("booking_id", id).Str("room_id", booking.RoomID).Str("date", booking.Date).Msg("booking cancelled")
	metrics.IncCancelled()
	s.publishEvent(events.EventBookingCancelled, *booking)
	return nil
}

// GetBooking returns a booking by ID or ErrBookingNotFound.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, storageError(err)
	}
	return b, nil
}

func (s *BookingService) publishEvent(eventType string, booking models.Booking) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, events.NewBookingPayload(booking)); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

// loadSettings reads the settings row, falling back to built-in defaults when it is missing.
func loadSettings(ctx context.Context, repo domain.SettingsStore, logger *zerolog.Logger) (models.Settings, error) {
	st, err := repo.GetSettings(ctx)
	if err == nil {
		return *st, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn().Msg("settings row missing, using defaults")
		return DefaultSettings(), nil
	}
	return models.Settings{}, storageError(err)
}

// DefaultSettings returns the built-in business settings.
func DefaultSettings() models.Settings {
	return models.Settings{
		BusinessStartTime:      models.DefaultBusinessStartTime,
		BusinessEndTime:        models.DefaultBusinessEndTime,
		BookingIntervalMinutes: models.DefaultBookingIntervalMinutes,
		MaxBookingDays:         models.DefaultMaxBookingDays,
	}
}
