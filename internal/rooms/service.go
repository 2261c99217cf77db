package rooms

import (
	"context"
	"fmt"
	"log/slog"
)

// Invalidator is notified after a room's status changes so cached
// availability answers can be dropped.
type Invalidator interface {
	InvalidateRoom(ctx context.Context, roomID int64) error
}

// Service exposes room queries and housekeeping transitions.
type Service struct {
	store       Store
	logger      *slog.Logger
	invalidator Invalidator
}

// NewService creates a new service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// SetInvalidator registers the availability cache invalidator.
func (s *Service) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// Get returns a room by id.
func (s *Service) Get(ctx context.Context, id int64) (*Room, error) {
	return s.store.FindByID(ctx, id)
}

// List returns rooms matching filter and the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Room, int, error) {
	return s.store.List(ctx, filter)
}

// ChangeStatus moves a room to a new housekeeping status.
func (s *Service) ChangeStatus(ctx context.Context, id int64, next Status) (*Room, error) {
	if !next.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}
	room, err := s.store.Mutate(ctx, id, func(r *Room) error {
		return r.ChangeStatus(next)
	})
	if err != nil {
		return nil, err
	}
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateRoom(ctx, id); err != nil {
			s.logger.Warn("invalidate room availability", slog.Int64("room_id", id), slog.Any("error", err))
		}
	}
	return room, nil
}
