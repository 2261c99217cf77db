package reservation

import (
	"time"

	"github.com/odyssey-erp/odyssey-hotel/internal/shared"
)

// CreateRequest represents request to book a room. The idempotency key may
// also arrive in the Idempotency-Key header.
type CreateRequest struct {
	ClientID       int64  `json:"client_id" validate:"required,gt=0"`
	RoomID         int64  `json:"room_id" validate:"required,gt=0"`
	CheckIn        string `json:"check_in" validate:"required"`
	CheckOut       string `json:"check_out" validate:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=100"`
	NotifyEmail    bool   `json:"notify_email"`
	NotifySMS      bool   `json:"notify_sms"`
}

// CancelRequest represents request to cancel a reservation.
type CancelRequest struct {
	Reason          string `json:"reason" validate:"required"`
	ExpectedVersion *int64 `json:"expected_version,omitempty" validate:"omitempty,gt=0"`
}

// ModifyDatesRequest represents request to move a reservation.
type ModifyDatesRequest struct {
	CheckIn         string `json:"check_in,omitempty"`
	CheckOut        string `json:"check_out,omitempty"`
	ExpectedVersion *int64 `json:"expected_version,omitempty" validate:"omitempty,gt=0"`
}

// CheckInRequest represents front-desk check-in.
type CheckInRequest struct {
	PerformedBy       int64  `json:"performed_by" validate:"required,gt=0"`
	DocumentsVerified bool   `json:"documents_verified"`
	Observations      string `json:"observations,omitempty" validate:"max=500"`
}

// CheckOutRequest represents front-desk check-out.
type CheckOutRequest struct {
	PerformedBy   int64  `json:"performed_by" validate:"required,gt=0"`
	RoomCondition string `json:"room_condition" validate:"required,oneof=GOOD REGULAR NEEDS_DEEP_CLEANING"`
	Observations  string `json:"observations,omitempty" validate:"max=500"`
}

// ReservationResponse is the API view of a reservation.
type ReservationResponse struct {
	ID           int64             `json:"id"`
	Code         string            `json:"code"`
	ClientID     int64             `json:"client_id"`
	RoomID       int64             `json:"room_id"`
	CheckIn      string            `json:"check_in"`
	CheckOut     string            `json:"check_out"`
	Nights       int               `json:"nights"`
	Status       Status            `json:"status"`
	CancelReason *string           `json:"cancel_reason,omitempty"`
	CheckInData  *CheckInSnapshot  `json:"check_in_data,omitempty"`
	CheckOutData *CheckOutSnapshot `json:"check_out_data,omitempty"`
	Version      int64             `json:"version"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// CreateResponse is returned by the booking endpoint.
type CreateResponse struct {
	Reservation ReservationResponse `json:"reservation"`
	Nights      int                 `json:"nights"`
	TotalPrice  float64             `json:"total_price"`
	Reused      bool                `json:"reused"`
}

// ListResponse represents API response for list.
type ListResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	Pagination   shared.Pagination     `json:"pagination"`
}

func toResponse(r *Reservation) ReservationResponse {
	s := r.Snapshot()
	return ReservationResponse{
		ID:           s.ID,
		Code:         s.Code,
		ClientID:     s.ClientID,
		RoomID:       s.RoomID,
		CheckIn:      s.CheckIn.Format(DateLayout),
		CheckOut:     s.CheckOut.Format(DateLayout),
		Nights:       r.NightCount(),
		Status:       s.Status,
		CancelReason: s.CancelReason,
		CheckInData:  s.CheckInData,
		CheckOutData: s.CheckOutData,
		Version:      s.Version,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
