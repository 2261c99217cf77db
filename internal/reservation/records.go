package reservation

import (
	"strings"
	"time"
)

// RoomCondition is the state housekeeping finds the room in at check-out.
type RoomCondition string

const (
	ConditionGood              RoomCondition = "GOOD"
	ConditionRegular           RoomCondition = "REGULAR"
	ConditionNeedsDeepCleaning RoomCondition = "NEEDS_DEEP_CLEANING"
)

// Valid reports whether c is a known condition.
func (c RoomCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionRegular, ConditionNeedsDeepCleaning:
		return true
	}
	return false
}

// CheckInRecord captures who checked the guest in and what was verified.
type CheckInRecord struct {
	at                time.Time
	performedBy       int64
	documentsVerified bool
	observations      *string
}

// NewCheckInRecord validates and builds a check-in record.
func NewCheckInRecord(at time.Time, performedBy int64, documentsVerified bool, observations string) (*CheckInRecord, error) {
	if performedBy <= 0 {
		return nil, ErrInvalidPerformer
	}
	return &CheckInRecord{
		at:                at,
		performedBy:       performedBy,
		documentsVerified: documentsVerified,
		observations:      optionalText(observations),
	}, nil
}

func (r *CheckInRecord) At() time.Time           { return r.at }
func (r *CheckInRecord) PerformedBy() int64      { return r.performedBy }
func (r *CheckInRecord) DocumentsVerified() bool { return r.documentsVerified }
func (r *CheckInRecord) Observations() *string   { return copyString(r.observations) }

// CheckOutRecord captures who checked the guest out and the room's condition.
type CheckOutRecord struct {
	at            time.Time
	performedBy   int64
	roomCondition RoomCondition
	observations  *string
}

// NewCheckOutRecord validates and builds a check-out record.
func NewCheckOutRecord(at time.Time, performedBy int64, condition RoomCondition, observations string) (*CheckOutRecord, error) {
	if performedBy <= 0 {
		return nil, ErrInvalidPerformer
	}
	if !condition.Valid() {
		return nil, ErrInvalidRoomCondition
	}
	return &CheckOutRecord{
		at:            at,
		performedBy:   performedBy,
		roomCondition: condition,
		observations:  optionalText(observations),
	}, nil
}

func (r *CheckOutRecord) At() time.Time                { return r.at }
func (r *CheckOutRecord) PerformedBy() int64           { return r.performedBy }
func (r *CheckOutRecord) RoomCondition() RoomCondition { return r.roomCondition }
func (r *CheckOutRecord) Observations() *string        { return copyString(r.observations) }

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
