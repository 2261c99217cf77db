package reservation

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/odyssey-erp/odyssey-hotel/internal/rooms"
)

// Availability answers whether a room can be sold for a stay. It is advisory:
// Create re-checks under lock.
type Availability struct {
	RoomID         int64        `json:"room_id"`
	CheckIn        string       `json:"check_in"`
	CheckOut       string       `json:"check_out"`
	Nights         int          `json:"nights"`
	Available      bool         `json:"available"`
	RoomStatus     rooms.Status `json:"room_status"`
	Conflicts      []string     `json:"conflicts"`
	EstimatedPrice float64      `json:"estimated_price"`
}

func roomScope(roomID int64) string {
	return "room:" + strconv.FormatInt(roomID, 10)
}

// Availability reports whether roomID is free between checkIn and checkOut.
// Answers are cached per room until a write touches that room.
func (s *Service) Availability(ctx context.Context, roomID int64, checkIn, checkOut string) (Availability, error) {
	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return Availability{}, err
	}
	stay, err := ParseDateRange(checkIn, checkOut, s.loc, s.clock.Now())
	if err != nil {
		return Availability{}, err
	}

	if s.cache == nil {
		return s.computeAvailability(ctx, room, stay)
	}
	key, err := s.cache.BuildKey(ctx, roomScope(room.ID), stay.Start().Format(DateLayout), stay.End().Format(DateLayout))
	if err != nil {
		s.logger.Warn("availability cache unavailable", slog.Any("error", err))
		return s.computeAvailability(ctx, room, stay)
	}
	v, err, _ := s.flight.Do(key, func() (any, error) {
		var out Availability
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.computeAvailability(ctx, room, stay)
		})
		return out, err
	})
	if err != nil {
		return Availability{}, err
	}
	return v.(Availability), nil
}

func (s *Service) computeAvailability(ctx context.Context, room *rooms.Room, stay DateRange) (Availability, error) {
	overlapping, err := s.repo.FindOverlapping(ctx, room.ID, stay, 0)
	if err != nil {
		return Availability{}, err
	}
	conflicts := make([]string, 0, len(overlapping))
	for _, r := range overlapping {
		conflicts = append(conflicts, r.Stay().String())
	}
	return Availability{
		RoomID:         room.ID,
		CheckIn:        stay.Start().Format(DateLayout),
		CheckOut:       stay.End().Format(DateLayout),
		Nights:         stay.NightCount(),
		Available:      len(overlapping) == 0 && room.AcceptsBookings(),
		RoomStatus:     room.Status,
		Conflicts:      conflicts,
		EstimatedPrice: float64(stay.NightCount()) * room.NightlyRate,
	}, nil
}

// InvalidateRoom drops cached availability answers for roomID.
func (s *Service) InvalidateRoom(ctx context.Context, roomID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Bump(ctx, roomScope(roomID))
}

func (s *Service) invalidate(ctx context.Context, roomID int64) {
	if err := s.InvalidateRoom(ctx, roomID); err != nil {
		s.logger.Warn("invalidate availability cache", slog.Int64("room_id", roomID), slog.Any("error", err))
	}
}
