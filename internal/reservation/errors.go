package reservation

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrInvalidDateRange      = errors.New("invalid date range")
	ErrStayTooShort          = errors.New("stay is shorter than the minimum")
	ErrStayTooLong           = errors.New("stay is longer than the maximum")
	ErrCancelReasonRequired  = errors.New("cancellation reason is required")
	ErrCancelReasonTooLong   = errors.New("cancellation reason exceeds 100 characters")
	ErrNegativeRate          = errors.New("nightly rate must not be negative")
	ErrInvalidPerformer      = errors.New("performed_by must be a positive staff id")
	ErrInvalidRoomCondition  = errors.New("invalid room condition")
	ErrInvalidReference      = errors.New("client and room ids must be positive")
	ErrDatesRequired         = errors.New("at least one of check-in or check-out is required")
	ErrIdempotencyKeyTooLong = errors.New("idempotency key exceeds 100 characters")
)

// Not-found errors.
var (
	ErrNotFound       = errors.New("reservation not found")
	ErrClientNotFound = errors.New("client not found")
	ErrRoomNotFound   = errors.New("room not found")
)

// Precondition errors.
var (
	ErrClientInactive           = errors.New("client is inactive")
	ErrOutstandingDebt          = errors.New("client has an outstanding balance")
	ErrActiveReservationExists  = errors.New("client already holds an active reservation")
	ErrRoomInactive             = errors.New("room is inactive")
	ErrPendingLimitExceeded     = errors.New("client reached the pending reservation limit")
	ErrCannotCancel             = errors.New("cannot cancel reservation in current status")
	ErrCancellationWindowClosed = errors.New("reservation can only be cancelled 24 hours before check-in")
	ErrCannotModify             = errors.New("cannot modify reservation in current status")
	ErrCannotCheckIn            = errors.New("cannot check in reservation in current status")
	ErrCheckInTooEarly          = errors.New("check-in is not allowed before the check-in date")
	ErrCannotCheckOut           = errors.New("cannot check out reservation in current status")
)

// Conflict errors.
var (
	ErrRoomUnavailable        = errors.New("room is not available for the requested dates")
	ErrConcurrentModification = errors.New("reservation was modified concurrently")
	ErrIdempotencyKeyConflict = errors.New("idempotency key already used by another client")
)

// errDuplicateIdempotencyKey is returned by Insert when another transaction
// committed the same key first.
var errDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

// OutstandingDebtError carries the balance owed by the client.
type OutstandingDebtError struct {
	Balance float64
}

func (e *OutstandingDebtError) Error() string {
	return fmt.Sprintf("%s: %.2f", ErrOutstandingDebt, e.Balance)
}

func (e *OutstandingDebtError) Is(target error) bool {
	return target == ErrOutstandingDebt
}

// Kind classifies domain errors for callers that need to pick a response.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindPrecondition Kind = "precondition"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindValidation, []error{
		ErrInvalidDateRange, ErrStayTooShort, ErrStayTooLong, ErrCancelReasonRequired,
		ErrCancelReasonTooLong, ErrNegativeRate, ErrInvalidPerformer, ErrInvalidRoomCondition,
		ErrInvalidReference, ErrDatesRequired, ErrIdempotencyKeyTooLong,
	}},
	{KindNotFound, []error{ErrNotFound, ErrClientNotFound, ErrRoomNotFound}},
	{KindPrecondition, []error{
		ErrClientInactive, ErrOutstandingDebt, ErrActiveReservationExists, ErrRoomInactive,
		ErrPendingLimitExceeded, ErrCannotCancel, ErrCancellationWindowClosed, ErrCannotModify,
		ErrCannotCheckIn, ErrCheckInTooEarly, ErrCannotCheckOut,
	}},
	{KindConflict, []error{ErrRoomUnavailable, ErrConcurrentModification, ErrIdempotencyKeyConflict}},
}

// KindOf returns the category of err. Unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindInternal
}
