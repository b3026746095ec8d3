package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"roomreserve/internal/clock"
	"roomreserve/internal/domain"
	"roomreserve/internal/export"
	"roomreserve/internal/models"
)

// maxAdminRangeDays bounds dashboard and export periods.
const maxAdminRangeDays = 366

// RoomStat is the number of bookings of one room in a period.
type RoomStat struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Bookings int    `json:"bookings"`
}

// Dashboard is the admin overview of a period.
type Dashboard struct {
	From     string           `json:"from"`
	To       string           `json:"to"`
	Total    int              `json:"total"`
	Rooms    []RoomStat       `json:"rooms"`
	Bookings []models.Booking `json:"bookings"`
}

// AdminService is a placeholder admin surface guarded by a shared password.
type AdminService struct {
	repo     domain.Repository
	password string
	clock    clock.Clock
	loc      *time.Location
	logger   *zerolog.Logger
}

func NewAdminService(repo domain.Repository, password string, clk clock.Clock, loc *time.Location, logger *zerolog.Logger) *AdminService {
	if loc == nil {
		loc = time.Local
	}
	return &AdminService{repo: repo, password: password, clock: clk, loc: loc, logger: logger}
}

// CheckPassword compares in constant time. An empty configured password never matches.
func (s *AdminService) CheckPassword(candidate string) bool {
	if s.password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.password)) == 1
}

// Login returns ErrUnauthorized on a wrong password.
func (s *AdminService) Login(candidate string) error {
	if !s.CheckPassword(candidate) {
		s.logger.Warn().Msg("admin login rejected")
		return ErrUnauthorized
	}
	return nil
}

// Period parses from/to (YYYY-MM-DD). Empty values default to the current
// day and the following six days.
func (s *AdminService) Period(from, to string) (time.Time, time.Time, error) {
	now := s.clock.Now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 6)
	fields := FieldErrors{}

	if from != "" {
		d, err := time.ParseInLocation(models.DateLayout, from, s.loc)
		if err != nil {
			fields.add("from", "from must be YYYY-MM-DD")
		} else {
			start = d
			if to == "" {
				end = start.AddDate(0, 0, 6)
			}
		}
	}
	if to != "" {
		d, err := time.ParseInLocation(models.DateLayout, to, s.loc)
		if err != nil {
			fields.add("to", "to must be YYYY-MM-DD")
		} else {
			end = d
		}
	}
	if len(fields) == 0 {
		if end.Before(start) {
			fields.add("to", "to must not be before from")
		} else if end.Sub(start) > maxAdminRangeDays*24*time.Hour {
			fields.add("to", fmt.Sprintf("period must not exceed %d days", maxAdminRangeDays))
		}
	}
	if err := fields.err(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (s *AdminService) load(ctx context.Context, from, to time.Time) ([]models.Room, []models.Booking, error) {
	rooms, err := s.repo.GetRooms(ctx)
	if err != nil {
		return nil, nil, storageError(err)
	}
	bookings, err := s.repo.GetBookingsByDateRange(ctx, from.Format(models.DateLayout), to.Format(models.DateLayout))
	if err != nil {
		return nil, nil, storageError(err)
	}
	return rooms, bookings, nil
}

// Dashboard counts bookings per room for the period. Rooms without bookings are included.
func (s *AdminService) Dashboard(ctx context.Context, from, to time.Time) (*Dashboard, error) {
	rooms, bookings, err := s.load(ctx, from, to)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rooms))
	for _, b := range bookings {
		counts[b.RoomID]++
	}

	stats := make([]RoomStat, 0, len(rooms))
	for _, r := range rooms {
		stats = append(stats, RoomStat{RoomID: r.ID, RoomName: r.Name, Bookings: counts[r.ID]})
	}

	return &Dashboard{
		From:     from.Format(models.DateLayout),
		To:       to.Format(models.DateLayout),
		Total:    len(bookings),
		Rooms:    stats,
		Bookings: bookings,
	}, nil
}

// Export builds the xlsx workbook for the period. The caller closes the file.
func (s *AdminService) Export(ctx context.Context, from, to time.Time) (*excelize.File, error) {
	rooms, bookings, err := s.load(ctx, from, to)
	if err != nil {
		return nil, err
	}
	f, err := export.BookingsWorkbook(rooms, bookings, from, to)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("bookings", len(bookings)).Str("from", from.Format(models.DateLayout)).Msg("bookings exported")
	return f, nil
}
