package reservation

import "time"

// CheckInSnapshot is the exported form of a CheckInRecord.
type CheckInSnapshot struct {
	At                time.Time `json:"at"`
	PerformedBy       int64     `json:"performed_by"`
	DocumentsVerified bool      `json:"documents_verified"`
	Observations      *string   `json:"observations,omitempty"`
}

// CheckOutSnapshot is the exported form of a CheckOutRecord.
type CheckOutSnapshot struct {
	At            time.Time     `json:"at"`
	PerformedBy   int64         `json:"performed_by"`
	RoomCondition RoomCondition `json:"room_condition"`
	Observations  *string       `json:"observations,omitempty"`
}

// Snapshot is a read-only copy of a reservation's state.
type Snapshot struct {
	ID             int64             `json:"id"`
	Code           string            `json:"code"`
	ClientID       int64             `json:"client_id"`
	RoomID         int64             `json:"room_id"`
	CheckIn        time.Time         `json:"check_in"`
	CheckOut       time.Time         `json:"check_out"`
	Status         Status            `json:"status"`
	CancelReason   *string           `json:"cancel_reason,omitempty"`
	IdempotencyKey *string           `json:"idempotency_key,omitempty"`
	CheckInData    *CheckInSnapshot  `json:"check_in_data,omitempty"`
	CheckOutData   *CheckOutSnapshot `json:"check_out_data,omitempty"`
	Version        int64             `json:"version"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Snapshot exports the reservation's state.
func (r *Reservation) Snapshot() Snapshot {
	s := Snapshot{
		ID:             r.id,
		Code:           r.code,
		ClientID:       r.clientID,
		RoomID:         r.roomID,
		CheckIn:        r.checkIn,
		CheckOut:       r.checkOut,
		Status:         r.status,
		CancelReason:   copyString(r.cancelReason),
		IdempotencyKey: copyString(r.idempotencyKey),
		Version:        r.version,
		CreatedAt:      r.createdAt,
		UpdatedAt:      r.updatedAt,
	}
	if rec := r.checkInData; rec != nil {
		s.CheckInData = &CheckInSnapshot{
			At:                rec.at,
			PerformedBy:       rec.performedBy,
			DocumentsVerified: rec.documentsVerified,
			Observations:      copyString(rec.observations),
		}
	}
	if rec := r.checkOutData; rec != nil {
		s.CheckOutData = &CheckOutSnapshot{
			At:            rec.at,
			PerformedBy:   rec.performedBy,
			RoomCondition: rec.roomCondition,
			Observations:  copyString(rec.observations),
		}
	}
	return s
}

// restore rebuilds an aggregate from persisted state. Dates are pinned to
// midnight in loc.
func restore(s Snapshot, loc *time.Location) *Reservation {
	stay := storedRange(s.CheckIn, s.CheckOut, loc)
	r := &Reservation{
		id:             s.ID,
		code:           s.Code,
		clientID:       s.ClientID,
		roomID:         s.RoomID,
		checkIn:        stay.start,
		checkOut:       stay.end,
		status:         s.Status,
		cancelReason:   copyString(s.CancelReason),
		idempotencyKey: copyString(s.IdempotencyKey),
		version:        s.Version,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
	}
	if d := s.CheckInData; d != nil {
		r.checkInData = &CheckInRecord{
			at:                d.At,
			performedBy:       d.PerformedBy,
			documentsVerified: d.DocumentsVerified,
			observations:      copyString(d.Observations),
		}
	}
	if d := s.CheckOutData; d != nil {
		r.checkOutData = &CheckOutRecord{
			at:            d.At,
			performedBy:   d.PerformedBy,
			roomCondition: d.RoomCondition,
			observations:  copyString(d.Observations),
		}
	}
	return r
}
