// Package reservation implements the reservation lifecycle and the room
// availability rules that guard it.
package reservation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a reservation.
type Status string

const (
	StatusConfirmed  Status = "CONFIRMED"   // Booked, guest not arrived
	StatusInProgress Status = "IN_PROGRESS" // Guest checked in
	StatusCompleted  Status = "COMPLETED"   // Guest checked out
	StatusCancelled  Status = "CANCELLED"
)

// ActiveStatuses are the statuses that hold a room.
var ActiveStatuses = []Status{StatusConfirmed, StatusInProgress}

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the reservation still holds its room.
func (s Status) IsActive() bool {
	return s == StatusConfirmed || s == StatusInProgress
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

const (
	// CancellationWindow is how far ahead of check-in a confirmed
	// reservation must be cancelled.
	CancellationWindow = 24 * time.Hour
	// MaxCancelReasonLength bounds the cancellation reason in characters.
	MaxCancelReasonLength = 100
)

// Reservation is the booking aggregate. Its state only changes through its
// methods.
type Reservation struct {
	id             int64
	code           string
	clientID       int64
	roomID         int64
	checkIn        time.Time
	checkOut       time.Time
	status         Status
	cancelReason   *string
	idempotencyKey *string
	checkInData    *CheckInRecord
	checkOutData   *CheckOutRecord
	version        int64
	createdAt      time.Time
	updatedAt      time.Time
}

// NewParams holds the inputs of New.
type NewParams struct {
	ClientID       int64
	RoomID         int64
	Stay           DateRange
	IdempotencyKey string
	Now            time.Time
}

// New creates a confirmed reservation.
func New(p NewParams) (*Reservation, error) {
	if p.ClientID <= 0 || p.RoomID <= 0 {
		return nil, ErrInvalidReference
	}
	if p.Stay.IsZero() || !p.Stay.Start().Before(p.Stay.End()) {
		return nil, fmt.Errorf("%w: check-out must be after check-in", ErrInvalidDateRange)
	}
	return &Reservation{
		code:           newCode(p.Now),
		clientID:       p.ClientID,
		roomID:         p.RoomID,
		checkIn:        p.Stay.Start(),
		checkOut:       p.Stay.End(),
		status:         StatusConfirmed,
		idempotencyKey: optionalText(p.IdempotencyKey),
		createdAt:      p.Now,
		updatedAt:      p.Now,
	}, nil
}

func newCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("RES-%s-%s", now.UTC().Format("20060102150405"), suffix)
}

func (r *Reservation) ID() int64                     { return r.id }
func (r *Reservation) Code() string                  { return r.code }
func (r *Reservation) ClientID() int64               { return r.clientID }
func (r *Reservation) RoomID() int64                 { return r.roomID }
func (r *Reservation) CheckIn() time.Time            { return r.checkIn }
func (r *Reservation) CheckOut() time.Time           { return r.checkOut }
func (r *Reservation) Status() Status                { return r.status }
func (r *Reservation) CancelReason() *string         { return copyString(r.cancelReason) }
func (r *Reservation) IdempotencyKey() *string       { return copyString(r.idempotencyKey) }
func (r *Reservation) CheckInData() *CheckInRecord   { return r.checkInData }
func (r *Reservation) CheckOutData() *CheckOutRecord { return r.checkOutData }
func (r *Reservation) Version() int64                { return r.version }
func (r *Reservation) CreatedAt() time.Time          { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time          { return r.updatedAt }

// Stay returns the reserved dates.
func (r *Reservation) Stay() DateRange {
	return DateRange{start: r.checkIn, end: r.checkOut}
}

// IsActive reports whether the reservation holds its room.
func (r *Reservation) IsActive() bool { return r.status.IsActive() }

// CanBeModified reports whether the dates may still change.
func (r *Reservation) CanBeModified() bool { return r.status == StatusConfirmed }

// CanBeCancelled reports whether Cancel would be accepted at now.
func (r *Reservation) CanBeCancelled(now time.Time) bool {
	switch r.status {
	case StatusInProgress:
		return true
	case StatusConfirmed:
		return r.withinCancellationWindow(now)
	default:
		return false
	}
}

func (r *Reservation) withinCancellationWindow(now time.Time) bool {
	return r.checkIn.Sub(now) >= CancellationWindow
}

// ValidateCancelReason trims reason and checks its length.
func ValidateCancelReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", ErrCancelReasonRequired
	}
	if utf8.RuneCountInString(reason) > MaxCancelReasonLength {
		return "", ErrCancelReasonTooLong
	}
	return reason, nil
}

// Cancel moves the reservation to CANCELLED. Confirmed reservations must be
// cancelled at least CancellationWindow before check-in. A stay already in
// progress may be cancelled at any time.
func (r *Reservation) Cancel(reason string, now time.Time) error {
	if r.status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrCannotCancel, r.status)
	}
	reason, err := ValidateCancelReason(reason)
	if err != nil {
		return err
	}
	if r.status == StatusConfirmed && !r.withinCancellationWindow(now) {
		return ErrCancellationWindowClosed
	}
	r.status = StatusCancelled
	r.cancelReason = &reason
	r.updatedAt = now
	return nil
}

// ModifyDates replaces the stay dates of a confirmed reservation.
func (r *Reservation) ModifyDates(checkIn, checkOut, now time.Time) error {
	if !r.CanBeModified() {
		return fmt.Errorf("%w: %s", ErrCannotModify, r.status)
	}
	loc := r.checkIn.Location()
	in := calendarDay(checkIn, loc)
	out := calendarDay(checkOut, loc)
	if !in.Before(out) {
		return fmt.Errorf("%w: check-out must be after check-in", ErrInvalidDateRange)
	}
	r.checkIn = in
	r.checkOut = out
	r.updatedAt = now
	return nil
}

// StartCheckIn moves a confirmed reservation to IN_PROGRESS. record may be
// nil when no details were captured.
func (r *Reservation) StartCheckIn(record *CheckInRecord, now time.Time) error {
	if r.status != StatusConfirmed {
		return fmt.Errorf("%w: %s", ErrCannotCheckIn, r.status)
	}
	r.status = StatusInProgress
	r.checkInData = record
	r.updatedAt = now
	return nil
}

// Complete moves an in-progress reservation to COMPLETED.
func (r *Reservation) Complete(record *CheckOutRecord, now time.Time) error {
	if r.status != StatusInProgress {
		return fmt.Errorf("%w: %s", ErrCannotCheckOut, r.status)
	}
	r.status = StatusCompleted
	r.checkOutData = record
	r.updatedAt = now
	return nil
}

// NightCount returns the number of nights reserved.
func (r *Reservation) NightCount() int {
	return daysBetween(r.checkIn, r.checkOut)
}

// TotalPrice returns the stay price at nightlyRate.
func (r *Reservation) TotalPrice(nightlyRate float64) (float64, error) {
	if nightlyRate < 0 {
		return 0, ErrNegativeRate
	}
	return float64(r.NightCount()) * nightlyRate, nil
}

// ValidateStayLength checks nights against the configured bounds.
func ValidateStayLength(nights, minNights, maxNights int) error {
	if nights < minNights {
		return fmt.Errorf("%w: %d night(s), minimum %d", ErrStayTooShort, nights, minNights)
	}
	if nights > maxNights {
		return fmt.Errorf("%w: %d night(s), maximum %d", ErrStayTooLong, nights, maxNights)
	}
	return nil
}
