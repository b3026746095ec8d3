package service

import (
	"context"

	"github.com/rs/zerolog"

	"roomreserve/internal/domain"
	"roomreserve/internal/models"
	"roomreserve/internal/schedule"
)

// RoomService serves the read-only room catalog and business settings.
type RoomService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewRoomService(repo domain.Repository, logger *zerolog.Logger) *RoomService {
	return &RoomService{repo: repo, logger: logger}
}

func (s *RoomService) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.repo.GetRooms(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	return rooms, nil
}

func (s *RoomService) Settings(ctx context.Context) (models.Settings, error) {
	return loadSettings(ctx, s.repo, s.logger)
}

// TimeSlots returns the bookable start times for the configured business day.
func (s *RoomService) TimeSlots(ctx context.Context) ([]string, error) {
	st, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	slots, err := schedule.GenerateTimeSlots(st.BusinessStartTime, st.BusinessEndTime, st.BookingIntervalMinutes)
	if err != nil {
		s.logger.Error().Err(err).Msg("stored settings are invalid")
		return nil, storageError(err)
	}
	return slots, nil
}
