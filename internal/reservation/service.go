package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-hotel/internal/clients"
	"github.com/odyssey-erp/odyssey-hotel/internal/platform/clock"
	"github.com/odyssey-erp/odyssey-hotel/internal/rooms"
	"github.com/odyssey-erp/odyssey-hotel/internal/shared"
)

const maxIdempotencyKeyLength = 100

// Audit actions.
const (
	ActionCreated      = "reservation.created"
	ActionCancelled    = "reservation.cancelled"
	ActionDatesChanged = "reservation.dates_modified"
	ActionCheckedIn    = "reservation.checked_in"
	ActionCheckedOut   = "reservation.checked_out"
)

// Policy holds the hotel's booking limits.
type Policy struct {
	// MaxPending caps the active reservations a client may hold.
	MaxPending int
	// SingleActive limits a client to one active reservation.
	SingleActive bool
	MinNights    int
	MaxNights    int
}

// DefaultPolicy returns the standard limits.
func DefaultPolicy() Policy {
	return Policy{MaxPending: 3, SingleActive: true, MinNights: 1, MaxNights: 30}
}

// Options configures a Service.
type Options struct {
	Clock    clock.Clock
	Location *time.Location
	Policy   Policy
	Logger   *slog.Logger
}

// Service orchestrates the reservation lifecycle.
type Service struct {
	repo    Repository
	clients ClientFinder
	rooms   RoomFinder
	clock   clock.Clock
	loc     *time.Location
	policy  Policy
	logger  *slog.Logger

	notifier Notifier
	audit    AuditPort
	cache    AvailabilityCache
	metrics  Metrics
	flight   singleflight.Group
}

// NewService creates a new service.
func NewService(repo Repository, clientFinder ClientFinder, roomFinder RoomFinder, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		clients: clientFinder,
		rooms:   roomFinder,
		clock:   opts.Clock,
		loc:     opts.Location,
		policy:  opts.Policy,
		logger:  opts.Logger,
	}
}

// SetNotifier sets the confirmation notifier. A nil notifier disables
// notifications.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetAudit sets the audit trail writer.
func (s *Service) SetAudit(a AuditPort) {
	s.audit = a
}

// SetCache sets the availability cache.
func (s *Service) SetCache(c AvailabilityCache) {
	s.cache = c
}

// SetMetrics sets the outcome counters.
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

// CreateInput carries a booking request.
type CreateInput struct {
	ClientID       int64
	RoomID         int64
	CheckIn        string
	CheckOut       string
	IdempotencyKey string
	NotifyEmail    bool
	NotifySMS      bool
	ActorID        int64
}

// CreateResult is the outcome of Create. Reused is set when an earlier
// request with the same idempotency key already created the reservation.
type CreateResult struct {
	Reservation *Reservation
	Nights      int
	TotalPrice  float64
	Reused      bool
}

// Create books a room for a client.
func (s *Service) Create(ctx context.Context, in CreateInput) (result CreateResult, err error) {
	defer func() { s.observe("create", err) }()

	key := strings.TrimSpace(in.IdempotencyKey)
	if utf8.RuneCountInString(key) > maxIdempotencyKeyLength {
		return CreateResult{}, ErrIdempotencyKeyTooLong
	}
	if in.ClientID <= 0 || in.RoomID <= 0 {
		return CreateResult{}, ErrInvalidReference
	}

	if key != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, key)
		if err == nil {
			return s.reuse(ctx, existing, in.ClientID)
		}
		if !errors.Is(err, ErrNotFound) {
			return CreateResult{}, fmt.Errorf("find by idempotency key: %w", err)
		}
	}

	client, err := s.findClient(ctx, in.ClientID)
	if err != nil {
		return CreateResult{}, err
	}
	if err := checkClient(client); err != nil {
		return CreateResult{}, err
	}
	if s.policy.SingleActive {
		active, err := s.repo.HasActiveByClient(ctx, client.ID)
		if err != nil {
			return CreateResult{}, fmt.Errorf("check active reservations: %w", err)
		}
		if active {
			return CreateResult{}, ErrActiveReservationExists
		}
	}

	room, err := s.findRoom(ctx, in.RoomID)
	if err != nil {
		return CreateResult{}, err
	}
	if !room.IsActive {
		return CreateResult{}, ErrRoomInactive
	}

	now := s.clock.Now()
	stay, err := ParseDateRange(in.CheckIn, in.CheckOut, s.loc, now)
	if err != nil {
		return CreateResult{}, err
	}
	if err := ValidateStayLength(stay.NightCount(), s.policy.MinNights, s.policy.MaxNights); err != nil {
		return CreateResult{}, err
	}

	var created, reused *Reservation
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lockedClient, err := tx.LockClient(ctx, client.ID)
		if err != nil {
			return mapClientErr(err)
		}
		if err := checkClient(lockedClient); err != nil {
			return err
		}
		lockedRoom, err := tx.LockRoom(ctx, room.ID)
		if err != nil {
			return mapRoomErr(err)
		}

		if key != "" {
			existing, err := tx.FindByIdempotencyKey(ctx, key)
			if err == nil {
				reused = existing
				return nil
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		if s.policy.SingleActive {
			active, err := tx.HasActiveByClient(ctx, client.ID)
			if err != nil {
				return err
			}
			if active {
				return ErrActiveReservationExists
			}
		}
		pending, err := tx.CountPendingByClient(ctx, client.ID)
		if err != nil {
			return err
		}
		if pending >= s.policy.MaxPending {
			return fmt.Errorf("%w: %d of %d", ErrPendingLimitExceeded, pending, s.policy.MaxPending)
		}

		overlapping, err := tx.FindOverlapping(ctx, room.ID, stay, 0)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return fmt.Errorf("%w: room %s is booked for %s", ErrRoomUnavailable, lockedRoom.Number, overlapping[0].Stay())
		}
		if !lockedRoom.AcceptsBookings() {
			return fmt.Errorf("%w: room %s is %s", ErrRoomUnavailable, lockedRoom.Number, lockedRoom.Status)
		}

		res, err := New(NewParams{
			ClientID:       client.ID,
			RoomID:         room.ID,
			Stay:           stay,
			IdempotencyKey: key,
			Now:            now,
		})
		if err != nil {
			return err
		}
		if err := tx.Insert(ctx, res); err != nil {
			return err
		}
		created = res
		room = lockedRoom
		return nil
	})
	if errors.Is(err, errDuplicateIdempotencyKey) && key != "" {
		existing, ferr := s.repo.FindByIdempotencyKey(ctx, key)
		if ferr != nil {
			return CreateResult{}, fmt.Errorf("reload by idempotency key: %w", ferr)
		}
		return s.reuse(ctx, existing, in.ClientID)
	}
	if err != nil {
		return CreateResult{}, err
	}
	if reused != nil {
		return s.reuse(ctx, reused, in.ClientID)
	}

	total, err := created.TotalPrice(room.NightlyRate)
	if err != nil {
		return CreateResult{}, err
	}
	result = CreateResult{Reservation: created, Nights: created.NightCount(), TotalPrice: total}

	s.logger.Info("reservation created",
		slog.Int64("reservation_id", created.ID()),
		slog.String("code", created.Code()),
		slog.Int64("client_id", client.ID),
		slog.Int64("room_id", room.ID),
		slog.String("stay", stay.String()),
	)
	s.invalidate(ctx, room.ID)
	s.record(ctx, in.ActorID, ActionCreated, created, map[string]any{
		"room_id":   room.ID,
		"client_id": client.ID,
		"stay":      stay.String(),
		"total":     total,
	})
	s.notify(ctx, in, client, room, result)
	return result, nil
}

func (s *Service) reuse(ctx context.Context, res *Reservation, clientID int64) (CreateResult, error) {
	if res.ClientID() != clientID {
		return CreateResult{}, ErrIdempotencyKeyConflict
	}
	room, err := s.findRoom(ctx, res.RoomID())
	if err != nil {
		return CreateResult{}, err
	}
	total, err := res.TotalPrice(room.NightlyRate)
	if err != nil {
		return CreateResult{}, err
	}
	s.logger.Info("reservation reused by idempotency key",
		slog.Int64("reservation_id", res.ID()),
		slog.String("code", res.Code()),
	)
	return CreateResult{Reservation: res, Nights: res.NightCount(), TotalPrice: total, Reused: true}, nil
}

// CancelInput carries a cancellation request.
type CancelInput struct {
	Reason          string
	ExpectedVersion *int64
	ActorID         int64
}

// Cancel cancels a reservation and releases an occupied room.
func (s *Service) Cancel(ctx context.Context, id int64, in CancelInput) (res *Reservation, err error) {
	defer func() { s.observe("cancel", err) }()

	reason, err := ValidateCancelReason(in.Reason)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	var released bool
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		r, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(r, in.ExpectedVersion); err != nil {
			return err
		}
		room, err := tx.LockRoom(ctx, r.RoomID())
		if err != nil {
			return mapRoomErr(err)
		}
		if err := r.Cancel(reason, now); err != nil {
			return err
		}
		if room.Status == rooms.StatusOccupied {
			otherGuest, err := tx.HasInProgressForRoom(ctx, room.ID, r.ID())
			if err != nil {
				return err
			}
			if !otherGuest {
				if err := room.MarkAsAvailable(); err != nil {
					return err
				}
				if err := tx.SetRoomStatus(ctx, room.ID, room.Status); err != nil {
					return err
				}
				released = true
			}
		}
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation cancelled", slog.Int64("reservation_id", res.ID()), slog.Bool("room_released", released))
	s.invalidate(ctx, res.RoomID())
	s.record(ctx, in.ActorID, ActionCancelled, res, map[string]any{"reason": reason, "room_released": released})
	return res, nil
}

// ModifyDatesInput carries new stay dates. A blank side keeps its current
// value.
type ModifyDatesInput struct {
	CheckIn         string
	CheckOut        string
	ExpectedVersion *int64
	ActorID         int64
}

// ModifyDates moves a confirmed reservation to new dates on the same room.
func (s *Service) ModifyDates(ctx context.Context, id int64, in ModifyDatesInput) (res *Reservation, err error) {
	defer func() { s.observe("modify_dates", err) }()

	checkIn := strings.TrimSpace(in.CheckIn)
	checkOut := strings.TrimSpace(in.CheckOut)
	if checkIn == "" && checkOut == "" {
		return nil, ErrDatesRequired
	}
	now := s.clock.Now()
	var previous DateRange
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		r, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(r, in.ExpectedVersion); err != nil {
			return err
		}
		if !r.CanBeModified() {
			return fmt.Errorf("%w: %s", ErrCannotModify, r.Status())
		}
		if checkIn == "" {
			checkIn = r.CheckIn().Format(DateLayout)
		}
		if checkOut == "" {
			checkOut = r.CheckOut().Format(DateLayout)
		}
		stay, err := ParseDateRange(checkIn, checkOut, s.loc, now)
		if err != nil {
			return err
		}
		if err := ValidateStayLength(stay.NightCount(), s.policy.MinNights, s.policy.MaxNights); err != nil {
			return err
		}
		if _, err := tx.LockRoom(ctx, r.RoomID()); err != nil {
			return mapRoomErr(err)
		}
		overlapping, err := tx.FindOverlapping(ctx, r.RoomID(), stay, r.ID())
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return fmt.Errorf("%w: %s conflicts with %s", ErrRoomUnavailable, stay, overlapping[0].Code())
		}
		previous = r.Stay()
		if err := r.ModifyDates(stay.Start(), stay.End(), now); err != nil {
			return err
		}
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation dates modified",
		slog.Int64("reservation_id", res.ID()),
		slog.String("from", previous.String()),
		slog.String("to", res.Stay().String()),
	)
	s.invalidate(ctx, res.RoomID())
	s.record(ctx, in.ActorID, ActionDatesChanged, res, map[string]any{
		"from": previous.String(),
		"to":   res.Stay().String(),
	})
	return res, nil
}

// CheckInInput carries front-desk check-in details.
type CheckInInput struct {
	PerformedBy       int64
	DocumentsVerified bool
	Observations      string
}

// CheckIn starts the stay and marks the room occupied. Checking in a stay
// that is already in progress returns it unchanged.
func (s *Service) CheckIn(ctx context.Context, id int64, in CheckInInput) (res *Reservation, err error) {
	now := s.clock.Now()
	var repeated bool
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		r, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status() == StatusInProgress {
			repeated = true
			res = r
			return nil
		}
		if r.Status() != StatusConfirmed {
			return fmt.Errorf("%w: %s", ErrCannotCheckIn, r.Status())
		}
		record, err := NewCheckInRecord(now, in.PerformedBy, in.DocumentsVerified, in.Observations)
		if err != nil {
			return err
		}
		today := calendarDay(now.In(s.loc), s.loc)
		if today.Before(r.CheckIn()) {
			return fmt.Errorf("%w: check-in date is %s", ErrCheckInTooEarly, r.CheckIn().Format(DateLayout))
		}
		room, err := tx.LockRoom(ctx, r.RoomID())
		if err != nil {
			return mapRoomErr(err)
		}
		if err := room.ChangeStatus(rooms.StatusOccupied); err != nil {
			return fmt.Errorf("%w: %v", ErrRoomUnavailable, err)
		}
		if err := r.StartCheckIn(record, now); err != nil {
			return err
		}
		if err := tx.SetRoomStatus(ctx, room.ID, room.Status); err != nil {
			return err
		}
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if repeated && err == nil {
		s.observeOutcome("check_in", "noop")
		return res, nil
	}
	s.observe("check_in", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation checked in", slog.Int64("reservation_id", res.ID()), slog.Int64("performed_by", in.PerformedBy))
	s.invalidate(ctx, res.RoomID())
	s.record(ctx, in.PerformedBy, ActionCheckedIn, res, map[string]any{"documents_verified": in.DocumentsVerified})
	return res, nil
}

// CheckOutInput carries front-desk check-out details.
type CheckOutInput struct {
	PerformedBy   int64
	RoomCondition RoomCondition
	Observations  string
}

// CheckOut completes the stay and routes the room to housekeeping by its
// condition.
func (s *Service) CheckOut(ctx context.Context, id int64, in CheckOutInput) (res *Reservation, err error) {
	defer func() { s.observe("check_out", err) }()

	now := s.clock.Now()
	record, err := NewCheckOutRecord(now, in.PerformedBy, in.RoomCondition, in.Observations)
	if err != nil {
		return nil, err
	}

	var roomStatus rooms.Status
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		r, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := r.Complete(record, now); err != nil {
			return err
		}
		room, err := tx.LockRoom(ctx, r.RoomID())
		if err != nil {
			return mapRoomErr(err)
		}
		target := roomStatusAfterCheckOut(in.RoomCondition)
		if err := room.ChangeStatus(target); err != nil {
			s.logger.Warn("room left in current status after check-out",
				slog.Int64("room_id", room.ID),
				slog.String("status", string(room.Status)),
				slog.Any("error", err),
			)
		} else if err := tx.SetRoomStatus(ctx, room.ID, room.Status); err != nil {
			return err
		}
		roomStatus = room.Status
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation checked out",
		slog.Int64("reservation_id", res.ID()),
		slog.String("room_condition", string(in.RoomCondition)),
		slog.String("room_status", string(roomStatus)),
	)
	s.invalidate(ctx, res.RoomID())
	s.record(ctx, in.PerformedBy, ActionCheckedOut, res, map[string]any{
		"room_condition": in.RoomCondition,
		"room_status":    roomStatus,
	})
	return res, nil
}

func roomStatusAfterCheckOut(c RoomCondition) rooms.Status {
	if c == ConditionNeedsDeepCleaning {
		return rooms.StatusMaintenance
	}
	return rooms.StatusAvailable
}

// Get returns a reservation by id.
func (s *Service) Get(ctx context.Context, id int64) (*Reservation, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns a page of reservations and the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Reservation, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) findClient(ctx context.Context, id int64) (*clients.Client, error) {
	c, err := s.clients.FindByID(ctx, id)
	if err != nil {
		return nil, mapClientErr(err)
	}
	return c, nil
}

func (s *Service) findRoom(ctx context.Context, id int64) (*rooms.Room, error) {
	r, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		return nil, mapRoomErr(err)
	}
	return r, nil
}

func checkClient(c *clients.Client) error {
	if !c.IsActive {
		return ErrClientInactive
	}
	if c.HasDebt() {
		return &OutstandingDebtError{Balance: c.OutstandingBalance}
	}
	return nil
}

func checkVersion(r *Reservation, expected *int64) error {
	if expected != nil && *expected != r.Version() {
		return fmt.Errorf("%w: expected version %d, found %d", ErrConcurrentModification, *expected, r.Version())
	}
	return nil
}

func mapClientErr(err error) error {
	if errors.Is(err, clients.ErrNotFound) {
		return ErrClientNotFound
	}
	return err
}

func mapRoomErr(err error) error {
	if errors.Is(err, rooms.ErrNotFound) {
		return ErrRoomNotFound
	}
	return err
}

func (s *Service) notify(ctx context.Context, in CreateInput, client *clients.Client, room *rooms.Room, result CreateResult) {
	if s.notifier == nil || (!in.NotifyEmail && !in.NotifySMS) {
		return
	}
	res := result.Reservation
	c := Confirmation{
		ReservationID: res.ID(),
		Code:          res.Code(),
		GuestName:     client.FullName(),
		Email:         client.Email,
		Phone:         client.Phone,
		RoomNumber:    room.Number,
		CheckIn:       res.CheckIn(),
		CheckOut:      res.CheckOut(),
		Nights:        result.Nights,
		TotalPrice:    result.TotalPrice,
	}
	if in.NotifyEmail && c.Email != "" {
		if err := s.notifier.SendReservationConfirmation(ctx, c); err != nil {
			s.logger.Warn("reservation confirmation e-mail failed", slog.String("code", c.Code), slog.Any("error", err))
		}
	}
	if in.NotifySMS && c.Phone != "" {
		if err := s.notifier.SendSMS(ctx, c); err != nil {
			s.logger.Warn("reservation confirmation sms failed", slog.String("code", c.Code), slog.Any("error", err))
		}
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, res *Reservation, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["code"] = res.Code()
	meta["status"] = res.Status()
	meta["version"] = res.Version()
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "reservation",
		EntityID: strconv.FormatInt(res.ID(), 10),
		Meta:     meta,
		At:       s.clock.Now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Int64("reservation_id", res.ID()), slog.Any("error", err))
	}
}

func (s *Service) observe(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	s.observeOutcome(operation, outcome)
}

func (s *Service) observeOutcome(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveReservation(operation, outcome)
	}
}
