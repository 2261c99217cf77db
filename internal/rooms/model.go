// Package rooms provides the hotel room inventory and its housekeeping state.
package rooms

import (
	"fmt"
	"time"
)

// Status represents the housekeeping state of a room.
type Status string

const (
	StatusAvailable    Status = "AVAILABLE"
	StatusOccupied     Status = "OCCUPIED"
	StatusMaintenance  Status = "MAINTENANCE"
	StatusOutOfService Status = "OUT_OF_SERVICE"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusMaintenance, StatusOutOfService:
		return true
	default:
		return false
	}
}

var transitions = map[Status][]Status{
	StatusAvailable:    {StatusOccupied, StatusMaintenance, StatusOutOfService},
	StatusOccupied:     {StatusAvailable, StatusMaintenance},
	StatusMaintenance:  {StatusAvailable, StatusOutOfService},
	StatusOutOfService: {StatusAvailable, StatusMaintenance},
}

// CanTransitionTo reports whether a room in s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Room is a bookable unit.
type Room struct {
	ID          int64     `json:"id"`
	Number      string    `json:"number"`
	Type        string    `json:"type"`
	Capacity    int       `json:"capacity"`
	NightlyRate float64   `json:"nightly_rate"`
	Status      Status    `json:"status"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AcceptsBookings reports whether new stays may be sold on the room. An
// occupied room still accepts bookings for other dates.
func (r *Room) AcceptsBookings() bool {
	if r == nil || !r.IsActive {
		return false
	}
	return r.Status == StatusAvailable || r.Status == StatusOccupied
}

// ChangeStatus moves the room to next when the transition is allowed.
func (r *Room) ChangeStatus(next Status) error {
	if !next.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	return nil
}

// MarkAsAvailable releases the room back to sale.
func (r *Room) MarkAsAvailable() error {
	return r.ChangeStatus(StatusAvailable)
}
