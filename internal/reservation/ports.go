package reservation

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-hotel/internal/clients"
	"github.com/odyssey-erp/odyssey-hotel/internal/rooms"
	"github.com/odyssey-erp/odyssey-hotel/internal/shared"
)

// ClientFinder resolves guests. It returns clients.ErrNotFound when absent.
type ClientFinder interface {
	FindByID(ctx context.Context, id int64) (*clients.Client, error)
}

// RoomFinder resolves rooms. It returns rooms.ErrNotFound when absent.
type RoomFinder interface {
	FindByID(ctx context.Context, id int64) (*rooms.Room, error)
}

// ListFilter narrows reservation listings.
type ListFilter struct {
	ClientID *int64
	RoomID   *int64
	Status   *Status
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// Repository defines the interface for reservation persistence.
type Repository interface {
	// Read operations
	FindByID(ctx context.Context, id int64) (*Reservation, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Reservation, error)
	HasActiveByClient(ctx context.Context, clientID int64) (bool, error)
	FindOverlapping(ctx context.Context, roomID int64, stay DateRange, excludeID int64) ([]*Reservation, error)
	List(ctx context.Context, filter ListFilter) ([]*Reservation, int, error)

	// Write operations (transactional)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the reads and writes that must share a transaction.
type TxRepository interface {
	// LockClient and LockRoom hold the row until the transaction ends.
	LockClient(ctx context.Context, clientID int64) (*clients.Client, error)
	LockRoom(ctx context.Context, roomID int64) (*rooms.Room, error)
	GetForUpdate(ctx context.Context, id int64) (*Reservation, error)

	FindByIdempotencyKey(ctx context.Context, key string) (*Reservation, error)
	HasActiveByClient(ctx context.Context, clientID int64) (bool, error)
	CountPendingByClient(ctx context.Context, clientID int64) (int, error)
	FindOverlapping(ctx context.Context, roomID int64, stay DateRange, excludeID int64) ([]*Reservation, error)
	// HasInProgressForRoom reports whether another guest is checked in to roomID.
	HasInProgressForRoom(ctx context.Context, roomID, excludeID int64) (bool, error)

	// Insert assigns the id and initial version.
	Insert(ctx context.Context, r *Reservation) error
	// Update persists r when its stored version still matches and advances
	// the version.
	Update(ctx context.Context, r *Reservation) error
	SetRoomStatus(ctx context.Context, roomID int64, status rooms.Status) error
}

// Confirmation is the payload handed to the notifier after a booking.
type Confirmation struct {
	ReservationID int64     `json:"reservation_id"`
	Code          string    `json:"code"`
	GuestName     string    `json:"guest_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	RoomNumber    string    `json:"room_number"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	Nights        int       `json:"nights"`
	TotalPrice    float64   `json:"total_price"`
}

// Notifier delivers booking confirmations. Failures never fail a booking.
type Notifier interface {
	SendReservationConfirmation(ctx context.Context, c Confirmation) error
	SendSMS(ctx context.Context, c Confirmation) error
}

// AuditPort records lifecycle transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// AvailabilityCache stores availability answers per room.
type AvailabilityCache interface {
	BuildKey(ctx context.Context, scope string, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	Bump(ctx context.Context, scope string) error
}

// Metrics counts orchestrator outcomes.
type Metrics interface {
	ObserveReservation(operation, outcome string)
}
