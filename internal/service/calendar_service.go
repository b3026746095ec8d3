package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"roomreserve/internal/domain"
	"roomreserve/internal/events"
	"roomreserve/internal/models"
	"roomreserve/internal/schedule"
)

// CalendarCell describes one (room, date, slot) square of the weekly grid.
// Booking is set only on the slot where a booking starts.
type CalendarCell struct {
	BookingID string          `json:"bookingId"`
	Booking   *models.Booking `json:"booking,omitempty"`
}

// CalendarWeek is the Monday-to-Sunday view of all rooms.
type CalendarWeek struct {
	Dates    []string                `json:"dates"`
	Slots    []string                `json:"slots"`
	Rooms    []models.Room           `json:"rooms"`
	Bookings []models.Booking        `json:"bookings"`
	Cells    map[string]CalendarCell `json:"cells"`
}

// CellKey builds the key of Cells.
func CellKey(roomID, date, slot string) string {
	return roomID + "|" + date + "|" + slot
}

type CalendarService struct {
	repo   domain.Repository
	cache  domain.CalendarCache
	ttl    time.Duration
	logger *zerolog.Logger

	// bumped on every invalidation; a build that saw a bump is not cached
	generation atomic.Uint64
}

// NewCalendarService builds the service. A nil cache or ttl <= 0 disables caching.
func NewCalendarService(repo domain.Repository, cache domain.CalendarCache, ttl time.Duration, logger *zerolog.Logger) *CalendarService {
	return &CalendarService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func weekCacheKey(first string) string {
	return "calendar:" + first
}

func (s *CalendarService) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

// Week returns the calendar of the week containing date.
func (s *CalendarService) Week(ctx context.Context, date time.Time) (*CalendarWeek, error) {
	first, last := schedule.WeekRange(date)

	if s.cacheEnabled() {
		if raw, err := s.cache.Get(ctx, weekCacheKey(first)); err != nil {
			s.logger.Warn().Err(err).Msg("calendar cache read failed")
		} else if raw != nil {
			var week CalendarWeek
			if err := json.Unmarshal(raw, &week); err == nil {
				return &week, nil
			}
			s.logger.Warn().Str("week", first).Msg("calendar cache entry is corrupt")
		}
	}

	gen := s.generation.Load()
	week, err := s.build(ctx, date, first, last)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() && s.generation.Load() == gen {
		if raw, err := json.Marshal(week); err == nil {
			if err := s.cache.Set(ctx, weekCacheKey(first), raw, s.ttl); err != nil {
				s.logger.Warn().Err(err).Msg("calendar cache write failed")
			}
		}
	}
	return week, nil
}

func (s *CalendarService) build(ctx context.Context, date time.Time, first, last string) (*CalendarWeek, error) {
	settings, err := loadSettings(ctx, s.repo, s.logger)
	if err != nil {
		return nil, err
	}
	slots, err := schedule.GenerateTimeSlots(settings.BusinessStartTime, settings.BusinessEndTime, settings.BookingIntervalMinutes)
	if err != nil {
		return nil, storageError(err)
	}

	rooms, err := s.repo.GetRooms(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	bookings, err := s.repo.GetBookingsByDateRange(ctx, first, last)
	if err != nil {
		return nil, storageError(err)
	}

	week := &CalendarWeek{
		Dates:    make([]string, 0, 7),
		Slots:    slots,
		Rooms:    rooms,
		Bookings: make([]models.Booking, 0, len(bookings)),
		Cells:    make(map[string]CalendarCell),
	}
	if week.Rooms == nil {
		week.Rooms = []models.Room{}
	}
	for _, d := range schedule.WeekDates(date) {
		week.Dates = append(week.Dates, d.Format(models.DateLayout))
	}

	// контакты не показываем в общем календаре
	byRoomDate := make(map[string][]models.Booking)
	for _, b := range bookings {
		b.PhoneNumber = ""
		week.Bookings = append(week.Bookings, b)
		key := b.RoomID + "|" + b.Date
		byRoomDate[key] = append(byRoomDate[key], b)
	}

	for key, list := range byRoomDate {
		for i := range list {
			b := list[i]
			week.Cells[key+"|"+b.StartTime] = CalendarCell{BookingID: b.ID, Booking: &list[i]}
		}
		for _, slot := range slots {
			cellKey := key + "|" + slot
			if _, ok := week.Cells[cellKey]; ok {
				continue
			}
			start, _ := schedule.ParseClock(slot)
			end := schedule.FormatClock(start + settings.BookingIntervalMinutes)
			if b := schedule.FindConflict(slot, end, list); b != nil {
				week.Cells[cellKey] = CalendarCell{BookingID: b.ID}
			}
		}
	}

	return week, nil
}

// Invalidate drops the cached week containing date.
func (s *CalendarService) Invalidate(ctx context.Context, date string) {
	if !s.cacheEnabled() {
		return
	}
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return
	}
	first, _ := schedule.WeekRange(d)
	s.generation.Add(1)
	if err := s.cache.Delete(ctx, weekCacheKey(first)); err != nil {
		s.logger.Warn().Err(err).Str("week", first).Msg("calendar cache invalidation failed")
	}
}

// Subscribe invalidates cached weeks when bookings change.
func (s *CalendarService) Subscribe(bus *events.EventBus) {
	handler := func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		s.Invalidate(context.Background(), payload.Date)
		return nil
	}
	bus.Subscribe(events.EventBookingCreated, handler)
	bus.Subscribe(events.EventBookingCancelled, handler)
}
