package reservation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-hotel/internal/clients"
	"github.com/odyssey-erp/odyssey-hotel/internal/platform/clock"
	"github.com/odyssey-erp/odyssey-hotel/internal/rooms"
	"github.com/odyssey-erp/odyssey-hotel/internal/shared"
)

type recordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *recordingMetrics) ObserveReservation(operation, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[operation+":"+outcome]++
}

func (m *recordingMetrics) get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

type fixture struct {
	store    *memStore
	clock    *clock.Fixed
	svc      *Service
	notifier *recordingNotifier
	audit    *recordingAudit
	metrics  *recordingMetrics
}

func testClients() []clients.Client {
	return []clients.Client{
		{ID: 5, FirstName: "Ana", LastName: "Lopez", Email: "ana@example.com", Phone: "+573001112233", IsActive: true},
		{ID: 6, FirstName: "Bruno", LastName: "Diaz", Email: "bruno@example.com", IsActive: true},
		{ID: 7, FirstName: "Carla", LastName: "Ruiz", IsActive: false},
		{ID: 8, FirstName: "Dario", LastName: "Gil", IsActive: true, OutstandingBalance: 50},
	}
}

func testRooms() []rooms.Room {
	return []rooms.Room{
		{ID: 10, Number: "101", Type: "DOUBLE", NightlyRate: 100, Status: rooms.StatusAvailable, IsActive: true},
		{ID: 11, Number: "102", Type: "SINGLE", NightlyRate: 80, Status: rooms.StatusMaintenance, IsActive: true},
		{ID: 12, Number: "103", Type: "SUITE", NightlyRate: 250, Status: rooms.StatusAvailable, IsActive: false},
	}
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()
	store := newMemStore(testClients(), testRooms())
	clk := clock.NewFixed(testNow)
	svc := NewService(store, clientFinder{store}, roomFinder{store}, Options{
		Clock:    clk,
		Location: time.UTC,
		Policy:   policy,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	f := &fixture{
		store:    store,
		clock:    clk,
		svc:      svc,
		notifier: &recordingNotifier{},
		audit:    &recordingAudit{},
		metrics:  &recordingMetrics{},
	}
	svc.SetNotifier(f.notifier)
	svc.SetAudit(f.audit)
	svc.SetMetrics(f.metrics)
	return f
}

func (f *fixture) book(t *testing.T, clientID, roomID int64, in, out string) *Reservation {
	t.Helper()
	result, err := f.svc.Create(context.Background(), CreateInput{ClientID: clientID, RoomID: roomID, CheckIn: in, CheckOut: out})
	require.NoError(t, err)
	return result.Reservation
}

func TestCreateReservation(t *testing.T) {
	f := newFixture(t, DefaultPolicy())

	result, err := f.svc.Create(context.Background(), CreateInput{
		ClientID:    5,
		RoomID:      10,
		CheckIn:     "2025-01-01",
		CheckOut:    "2025-01-05",
		NotifyEmail: true,
		NotifySMS:   true,
		ActorID:     3,
	})
	require.NoError(t, err)
	assert.False(t, result.Reused)
	assert.Equal(t, 4, result.Nights)
	assert.Equal(t, 400.0, result.TotalPrice)

	res := result.Reservation
	assert.Equal(t, StatusConfirmed, res.Status())
	assert.Equal(t, int64(1), res.Version())
	assert.Equal(t, "2025-01-01/2025-01-05", res.Stay().String())
	assert.True(t, strings.HasPrefix(res.Code(), "RES-"))

	require.Len(t, f.notifier.emails, 1)
	require.Len(t, f.notifier.sms, 1)
	assert.Equal(t, "Ana Lopez", f.notifier.emails[0].GuestName)
	assert.Equal(t, "101", f.notifier.emails[0].RoomNumber)
	assert.Equal(t, 400.0, f.notifier.emails[0].TotalPrice)

	assert.Equal(t, []string{ActionCreated}, f.audit.actions())
	assert.Equal(t, int64(3), f.audit.logs[0].ActorID)
	assert.Equal(t, 1, f.metrics.get("create:success"))
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.book(t, 5, 10, "2025-01-01", "2025-01-05")

	_, err := f.svc.Create(context.Background(), CreateInput{ClientID: 6, RoomID: 10, CheckIn: "2025-01-03", CheckOut: "2025-01-07"})
	assert.ErrorIs(t, err, ErrRoomUnavailable)
	assert.Equal(t, 1, f.metrics.get("create:conflict"))
	assert.Equal(t, 1, f.store.count())

	back := f.book(t, 6, 10, "2025-01-05", "2025-01-07")
	assert.Equal(t, 2, back.NightCount())
}

func TestCreateClientChecks(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{ClientID: 99, RoomID: 10, CheckIn: "2025-01-01", CheckOut: "2025-01-02"})
	assert.ErrorIs(t, err, ErrClientNotFound)

	_, err = f.svc.Create(ctx, CreateInput{ClientID: 7, RoomID: 10, CheckIn: "2025-01-01", CheckOut: "2025-01-02"})
	assert.ErrorIs(t, err, ErrClientInactive)

	_, err = f.svc.Create(ctx, CreateInput{ClientID: 8, RoomID: 10, CheckIn: "2025-01-01", CheckOut: "2025-01-02"})
	var debt *OutstandingDebtError
	require.True(t, errors.As(err, &debt))
	assert.Equal(t, 50.0, debt.Balance)
	assert.ErrorIs(t, err, ErrOutstandingDebt)

	_, err = f.svc.Create(ctx, CreateInput{ClientID: 0, RoomID: 10, CheckIn: "2025-01-01", CheckOut: "2025-01-02"})
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.Equal(t, 0, f.store.count())
}

func TestCreateRoomChecks(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{ClientID: 5, RoomID: 99, CheckIn: "2025-01-01", CheckOut: "2025-01-02"})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = f.svc.Create(ctx, CreateInput{ClientID: 5, RoomID: 12, CheckIn: "2025-01-01", CheckOut: "2025-01-02"})
	assert.ErrorIs(t, err, ErrRoomInactive)

	_, err = f.svc.Create(ctx, CreateInput{ClientID: 5, RoomID: 11, CheckIn: "2025-01-01", CheckOut: "2025-01-02"})
	assert.ErrorIs(t, err, ErrRoomUnavailable)
}

func TestCreateDateRules(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{ClientID: 5, RoomID: 10, CheckIn: "2024-12-19", CheckOut: "2024-12-22"})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = f.svc.Create(ctx, CreateInput{ClientID: 5, RoomID: 10, CheckIn: "2025-01-01", CheckOut: "2025-02-01"})
	assert.ErrorIs(t, err, ErrStayTooLong)

	_, err = f.svc.Create(ctx, CreateInput{ClientID: 5, RoomID: 10, CheckIn: "2025-01-01", CheckOut: "2025-01-31"})
	assert.NoError(t, err)
}

func TestCreateSingleActivePolicy(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.book(t, 5, 10, "2025-01-01", "2025-01-05")

	_, err := f.svc.Create(context.Background(), CreateInput{ClientID: 5, RoomID: 10, CheckIn: "2025-02-01", CheckOut: "2025-02-03"})
	assert.ErrorIs(t, err, ErrActiveReservationExists)
	assert.Equal(t, 1, f.metrics.get("create:precondition"))
}

func TestCreatePendingLimit(t *testing.T) {
	f := newFixture(t, Policy{MaxPending: 2, SingleActive: false, MinNights: 1, MaxNights: 30})
	f.book(t, 5, 10, "2025-01-01", "2025-01-03")
	f.book(t, 5, 10, "2025-01-10", "2025-01-12")

	_, err := f.svc.Create(context.Background(), CreateInput{ClientID: 5, RoomID: 10, CheckIn: "2025-01-20", CheckOut: "2025-01-22"})
	assert.ErrorIs(t, err, ErrPendingLimitExceeded)
	assert.Equal(t, 2, f.store.count())
}

func TestCreateIdempotentRetry(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()
	in := CreateInput{ClientID: 5, RoomID: 10, CheckIn: "2025-01-01", CheckOut: "2025-01-05", IdempotencyKey: "req-123", NotifyEmail: true}

	first, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	assert.True(t, second.Reused)
	assert.Equal(t, first.Reservation.ID(), second.Reservation.ID())
	assert.Equal(t, 400.0, second.TotalPrice)
	assert.Equal(t, 1, f.store.count())
	assert.Len(t, f.notifier.emails, 1)

	in.ClientID = 6
	_, err = f.svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrIdempotencyKeyConflict)

	in.IdempotencyKey = strings.Repeat("k", 101)
	_, err = f.svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrIdempotencyKeyTooLong)
}

func TestCreateIdempotencyKeyRaceReusesWinner(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	key := "req-race"
	f.store.raceInsert = func() Snapshot {
		return Snapshot{
			Code:           "RES-WINNER",
			ClientID:       5,
			RoomID:         10,
			CheckIn:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			CheckOut:       time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			Status:         StatusConfirmed,
			IdempotencyKey: &key,
			Version:        1,
			CreatedAt:      testNow,
			UpdatedAt:      testNow,
		}
	}

	result, err := f.svc.Create(context.Background(), CreateInput{
		ClientID: 5, RoomID: 10, CheckIn: "2025-01-01", CheckOut: "2025-01-05", IdempotencyKey: key,
	})
	require.NoError(t, err)
	assert.True(t, result.Reused)
	assert.Equal(t, "RES-WINNER", result.Reservation.Code())
	assert.Equal(t, 1, f.store.count())
}

// memStore serialises transactions, so this only checks that concurrent
// callers get one booking and typed conflicts. Row locking against a real
// database is covered by TestPostgresConcurrentCreateSameRoom.
func TestConcurrentCreateSameRoom(t *testing.T) {
	store := newMemStore(nil, testRooms())
	for i := int64(1); i <= 10; i++ {
		store.clients[100+i] = clients.Client{ID: 100 + i, FirstName: fmt.Sprintf("Guest %d", i), IsActive: true}
	}
	svc := NewService(store, clientFinder{store}, roomFinder{store}, Options{
		Clock:    clock.NewFixed(testNow),
		Location: time.UTC,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	var (
		mu        sync.Mutex
		successes int
		conflicts int
	)
	var g errgroup.Group
	for i := int64(1); i <= 10; i++ {
		clientID := 100 + i
		g.Go(func() error {
			_, err := svc.Create(context.Background(), CreateInput{ClientID: clientID, RoomID: 10, CheckIn: "2025-03-01", CheckOut: "2025-03-04"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrRoomUnavailable):
				conflicts++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, successes)
	assert.Equal(t, 9, conflicts)
	assert.Equal(t, 1, store.count())
}

func TestCreateNotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.notifier.fail = true

	result, err := f.svc.Create(context.Background(), CreateInput{
		ClientID: 5, RoomID: 10, CheckIn: "2025-01-01", CheckOut: "2025-01-05", NotifyEmail: true, NotifySMS: true,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, result.Reservation.Status())
	assert.Equal(t, 1, f.store.count())
}

func TestCancelReservation(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()
	res := f.book(t, 5, 10, "2025-01-01", "2025-01-05")

	_, err := f.svc.Cancel(ctx, res.ID(), CancelInput{Reason: "  "})
	assert.ErrorIs(t, err, ErrCancelReasonRequired)

	stale := int64(7)
	_, err = f.svc.Cancel(ctx, res.ID(), CancelInput{Reason: "Guest request", ExpectedVersion: &stale})
	assert.ErrorIs(t, err, ErrConcurrentModification)

	cancelled, err := f.svc.Cancel(ctx, res.ID(), CancelInput{Reason: "Guest request", ActorID: 2})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status())
	assert.Equal(t, int64(2), cancelled.Version())
	assert.Equal(t, "Guest request", *cancelled.CancelReason())
	assert.Equal(t, []string{ActionCreated, ActionCancelled}, f.audit.actions())

	_, err = f.svc.Cancel(ctx, res.ID(), CancelInput{Reason: "again"})
	assert.ErrorIs(t, err, ErrCannotCancel)

	// The dates are free again and the client may book again.
	f.book(t, 6, 10, "2025-01-01", "2025-01-05")
	f.book(t, 5, 10, "2025-02-01", "2025-02-03")

	_, err = f.svc.Cancel(ctx, 404, CancelInput{Reason: "Guest request"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelInsideWindow(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	res := f.book(t, 5, 10, "2025-01-01", "2025-01-05")

	f.clock.Set(time.Date(2024, 12, 31, 0, 1, 0, 0, time.UTC))
	_, err := f.svc.Cancel(context.Background(), res.ID(), CancelInput{Reason: "Guest request"})
	assert.ErrorIs(t, err, ErrCancellationWindowClosed)

	stored, err := f.svc.Get(context.Background(), res.ID())
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status())
}

func TestCancelInProgressReleasesRoom(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()
	res := f.book(t, 5, 10, "2024-12-20", "2024-12-23")

	_, err := f.svc.CheckIn(ctx, res.ID(), CheckInInput{PerformedBy: 9, DocumentsVerified: true})
	require.NoError(t, err)
	assert.Equal(t, rooms.StatusOccupied, f.store.room(10).Status)

	cancelled, err := f.svc.Cancel(ctx, res.ID(), CancelInput{Reason: "Family emergency"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status())
	assert.Equal(t, rooms.StatusAvailable, f.store.room(10).Status)
}

func TestCancelConfirmedReleasesOccupiedRoom(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()
	res := f.book(t, 5, 10, "2025-01-01", "2025-01-05")
	f.store.setRoomStatus(10, rooms.StatusOccupied)

	cancelled, err := f.svc.Cancel(ctx, res.ID(), CancelInput{Reason: "Guest request"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status())
	assert.Equal(t, rooms.StatusAvailable, f.store.room(10).Status)
}

func TestCancelConfirmedKeepsRoomOfCheckedInGuest(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()
	current := f.book(t, 6, 10, "2024-12-20", "2024-12-22")
	_, err := f.svc.CheckIn(ctx, current.ID(), CheckInInput{PerformedBy: 9, DocumentsVerified: true})
	require.NoError(t, err)
	require.Equal(t, rooms.StatusOccupied, f.store.room(10).Status)

	res := f.book(t, 5, 10, "2025-01-01", "2025-01-05")
	cancelled, err := f.svc.Cancel(ctx, res.ID(), CancelInput{Reason: "Guest request"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status())
	assert.Equal(t, rooms.StatusOccupied, f.store.room(10).Status)

	stay, err := f.svc.Get(ctx, current.ID())
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, stay.Status())
}

func TestCheckIn(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()
	res := f.book(t, 5, 10, "2024-12-21", "2024-12-23")

	_, err := f.svc.CheckIn(ctx, res.ID(), CheckInInput{PerformedBy: 9})
	assert.ErrorIs(t, err, ErrCheckInTooEarly)

	_, err = f.svc.CheckIn(ctx, res.ID(), CheckInInput{PerformedBy: 0})
	assert.ErrorIs(t, err, ErrInvalidPerformer)

	f.clock.Advance(24 * time.Hour)
	checkedIn, err := f.svc.CheckIn(ctx, res.ID(), CheckInInput{PerformedBy: 9, DocumentsVerified: true, Observations: "late arrival"})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, checkedIn.Status())
	require.NotNil(t, checkedIn.CheckInData())
	assert.Equal(t, int64(9), checkedIn.CheckInData().PerformedBy())
	assert.Equal(t, rooms.StatusOccupied, f.store.room(10).Status)

	f.clock.Advance(time.Hour)
	again, err := f.svc.CheckIn(ctx, res.ID(), CheckInInput{PerformedBy: 4})
	require.NoError(t, err)
	assert.Equal(t, checkedIn.Version(), again.Version())
	require.NotNil(t, again.CheckInData())
	assert.True(t, checkedIn.CheckInData().At().Equal(again.CheckInData().At()))
	assert.Equal(t, checkedIn.CheckInData().PerformedBy(), again.CheckInData().PerformedBy())
	assert.Equal(t, 1, f.metrics.get("check_in:noop"))
	assert.Equal(t, 1, f.metrics.get("check_in:success"))
}

func TestCheckInRepeatIgnoresPerformer(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()
	res := f.book(t, 5, 10, "2024-12-20", "2024-12-22")

	first, err := f.svc.CheckIn(ctx, res.ID(), CheckInInput{PerformedBy: 9})
	require.NoError(t, err)

	again, err := f.svc.CheckIn(ctx, res.ID(), CheckInInput{})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, again.Status())
	assert.Equal(t, first.Version(), again.Version())
	assert.Equal(t, int64(9), again.CheckInData().PerformedBy())
	assert.Equal(t, 1, f.metrics.get("check_in:noop"))
}

func TestCheckInNeedsSellableRoom(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()
	res := f.book(t, 5, 10, "2024-12-20", "2024-12-22")

	f.store.mu.Lock()
	room := f.store.rooms[10]
	room.Status = rooms.StatusOutOfService
	f.store.rooms[10] = room
	f.store.mu.Unlock()

	_, err := f.svc.CheckIn(ctx, res.ID(), CheckInInput{PerformedBy: 9})
	assert.ErrorIs(t, err, ErrRoomUnavailable)

	stored, err := f.svc.Get(ctx, res.ID())
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status())
}

func TestCheckOutRoutesRoom(t *testing.T) {
	cases := []struct {
		condition RoomCondition
		want      rooms.Status
	}{
		{ConditionGood, rooms.StatusAvailable},
		{ConditionRegular, rooms.StatusAvailable},
		{ConditionNeedsDeepCleaning, rooms.StatusMaintenance},
	}
	for _, tc := range cases {
		t.Run(string(tc.condition), func(t *testing.T) {
			f := newFixture(t, DefaultPolicy())
			ctx := context.Background()
			res := f.book(t, 5, 10, "2024-12-20", "2024-12-22")

			_, err := f.svc.CheckOut(ctx, res.ID(), CheckOutInput{PerformedBy: 9, RoomCondition: tc.condition})
			assert.ErrorIs(t, err, ErrCannotCheckOut)

			_, err = f.svc.CheckIn(ctx, res.ID(), CheckInInput{PerformedBy: 9})
			require.NoError(t, err)

			f.clock.Advance(48 * time.Hour)
			done, err := f.svc.CheckOut(ctx, res.ID(), CheckOutInput{PerformedBy: 9, RoomCondition: tc.condition})
			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, done.Status())
			assert.Equal(t, tc.condition, done.CheckOutData().RoomCondition())
			assert.Equal(t, tc.want, f.store.room(10).Status)
			assert.Equal(t, []string{ActionCreated, ActionCheckedIn, ActionCheckedOut}, f.audit.actions())
		})
	}

	f := newFixture(t, DefaultPolicy())
	_, err := f.svc.CheckOut(context.Background(), 1, CheckOutInput{PerformedBy: 9, RoomCondition: "DIRTY"})
	assert.ErrorIs(t, err, ErrInvalidRoomCondition)
}

func TestModifyDates(t *testing.T) {
	f := newFixture(t, Policy{MaxPending: 3, SingleActive: false, MinNights: 1, MaxNights: 30})
	ctx := context.Background()
	res := f.book(t, 5, 10, "2025-01-01", "2025-01-05")
	f.book(t, 6, 10, "2025-01-10", "2025-01-12")

	moved, err := f.svc.ModifyDates(ctx, res.ID(), ModifyDatesInput{CheckIn: "2025-01-03", CheckOut: "2025-01-07"})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-03/2025-01-07", moved.Stay().String())
	assert.Equal(t, int64(2), moved.Version())

	_, err = f.svc.ModifyDates(ctx, res.ID(), ModifyDatesInput{CheckOut: "2025-01-11"})
	assert.ErrorIs(t, err, ErrRoomUnavailable)

	extended, err := f.svc.ModifyDates(ctx, res.ID(), ModifyDatesInput{CheckOut: "2025-01-10"})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-03/2025-01-10", extended.Stay().String())

	_, err = f.svc.ModifyDates(ctx, res.ID(), ModifyDatesInput{})
	assert.ErrorIs(t, err, ErrDatesRequired)

	_, err = f.svc.ModifyDates(ctx, res.ID(), ModifyDatesInput{CheckIn: "2025-01-09"})
	assert.NoError(t, err)

	_, err = f.svc.ModifyDates(ctx, res.ID(), ModifyDatesInput{CheckIn: "2025-01-10"})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	stale := int64(1)
	_, err = f.svc.ModifyDates(ctx, res.ID(), ModifyDatesInput{CheckOut: "2025-01-10", ExpectedVersion: &stale})
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestModifyDatesRequiresConfirmed(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	ctx := context.Background()
	res := f.book(t, 5, 10, "2024-12-20", "2024-12-22")
	_, err := f.svc.CheckIn(ctx, res.ID(), CheckInInput{PerformedBy: 9})
	require.NoError(t, err)

	_, err = f.svc.ModifyDates(ctx, res.ID(), ModifyDatesInput{CheckOut: "2024-12-24"})
	assert.ErrorIs(t, err, ErrCannotModify)
}

func TestListClampsLimit(t *testing.T) {
	f := newFixture(t, Policy{MaxPending: 5, SingleActive: false, MinNights: 1, MaxNights: 30})
	f.book(t, 5, 10, "2025-01-01", "2025-01-02")
	f.book(t, 5, 10, "2025-01-02", "2025-01-03")
	f.book(t, 6, 10, "2025-01-03", "2025-01-04")

	client := int64(5)
	items, total, err := f.svc.List(context.Background(), ListFilter{ClientID: &client, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = f.svc.List(context.Background(), ListFilter{Limit: 1, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, int64(6), items[0].ClientID())
}
