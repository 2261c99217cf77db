package reservation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-hotel/internal/clients"
	"github.com/odyssey-erp/odyssey-hotel/internal/rooms"
)

// memStore is an in-memory Repository. Transactions run one at a time and
// roll back on error, which is the isolation the row locks give in Postgres.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	loc  *time.Location

	nextID       int64
	reservations map[int64]Snapshot
	clients      map[int64]clients.Client
	rooms        map[int64]rooms.Room

	// raceInsert simulates another session committing the same idempotency
	// key between our lookup and our insert.
	raceInsert func() Snapshot
	foreign    []Snapshot
}

func newMemStore(cs []clients.Client, rs []rooms.Room) *memStore {
	s := &memStore{
		loc:          time.UTC,
		reservations: make(map[int64]Snapshot),
		clients:      make(map[int64]clients.Client),
		rooms:        make(map[int64]rooms.Room),
	}
	for _, c := range cs {
		s.clients[c.ID] = c
	}
	for _, r := range rs {
		s.rooms[r.ID] = r
	}
	return s
}

func (m *memStore) room(id int64) rooms.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[id]
}

func (m *memStore) setRoomStatus(id int64, status rooms.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room := m.rooms[id]
	room.Status = status
	m.rooms[id] = room
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

func (m *memStore) load(id int64) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return restore(s, m.loc), nil
}

func (m *memStore) FindByID(_ context.Context, id int64) (*Reservation, error) {
	return m.load(id)
}

func (m *memStore) FindByIdempotencyKey(_ context.Context, key string) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.reservations {
		if s.IdempotencyKey != nil && *s.IdempotencyKey == key {
			return restore(s, m.loc), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) HasActiveByClient(_ context.Context, clientID int64) (bool, error) {
	return m.countActive(clientID) > 0, nil
}

func (m *memStore) countActive(clientID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.reservations {
		if s.ClientID == clientID && s.Status.IsActive() {
			n++
		}
	}
	return n
}

func (m *memStore) FindOverlapping(_ context.Context, roomID int64, stay DateRange, excludeID int64) ([]*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Reservation
	for _, s := range m.reservations {
		if s.RoomID != roomID || s.ID == excludeID || !s.Status.IsActive() {
			continue
		}
		if storedRange(s.CheckIn, s.CheckOut, m.loc).Overlaps(stay) {
			out = append(out, restore(s, m.loc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn().Before(out[j].CheckIn()) })
	return out, nil
}

func (m *memStore) List(_ context.Context, filter ListFilter) ([]*Reservation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Reservation
	for _, s := range m.reservations {
		if filter.ClientID != nil && s.ClientID != *filter.ClientID {
			continue
		}
		if filter.RoomID != nil && s.RoomID != *filter.RoomID {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		all = append(all, restore(s, m.loc))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID() < all[j].ID() })
	total := len(all)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return all[filter.Offset:end], total, nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	savedRes := make(map[int64]Snapshot, len(m.reservations))
	for k, v := range m.reservations {
		savedRes[k] = v
	}
	savedRooms := make(map[int64]rooms.Room, len(m.rooms))
	for k, v := range m.rooms {
		savedRooms[k] = v
	}
	savedID := m.nextID
	m.mu.Unlock()

	err := fn(ctx, &memTx{m: m})
	if err != nil {
		m.mu.Lock()
		m.reservations = savedRes
		m.rooms = savedRooms
		m.nextID = savedID
		for _, s := range m.foreign {
			m.nextID++
			s.ID = m.nextID
			m.reservations[s.ID] = s
		}
		m.foreign = nil
		m.mu.Unlock()
	}
	return err
}

type memTx struct {
	m *memStore
}

func (t *memTx) LockClient(_ context.Context, clientID int64) (*clients.Client, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	c, ok := t.m.clients[clientID]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return &c, nil
}

func (t *memTx) LockRoom(_ context.Context, roomID int64) (*rooms.Room, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	r, ok := t.m.rooms[roomID]
	if !ok {
		return nil, rooms.ErrNotFound
	}
	return &r, nil
}

func (t *memTx) GetForUpdate(_ context.Context, id int64) (*Reservation, error) {
	return t.m.load(id)
}

func (t *memTx) FindByIdempotencyKey(ctx context.Context, key string) (*Reservation, error) {
	return t.m.FindByIdempotencyKey(ctx, key)
}

func (t *memTx) HasActiveByClient(ctx context.Context, clientID int64) (bool, error) {
	return t.m.HasActiveByClient(ctx, clientID)
}

func (t *memTx) CountPendingByClient(_ context.Context, clientID int64) (int, error) {
	return t.m.countActive(clientID), nil
}

func (t *memTx) FindOverlapping(ctx context.Context, roomID int64, stay DateRange, excludeID int64) ([]*Reservation, error) {
	return t.m.FindOverlapping(ctx, roomID, stay, excludeID)
}

func (t *memTx) HasInProgressForRoom(_ context.Context, roomID, excludeID int64) (bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, s := range t.m.reservations {
		if s.RoomID == roomID && s.ID != excludeID && s.Status == StatusInProgress {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) Insert(ctx context.Context, r *Reservation) error {
	if t.m.raceInsert != nil {
		t.m.foreign = append(t.m.foreign, t.m.raceInsert())
		t.m.raceInsert = nil
		return errDuplicateIdempotencyKey
	}
	overlapping, _ := t.m.FindOverlapping(ctx, r.RoomID(), r.Stay(), 0)
	if len(overlapping) > 0 {
		return fmt.Errorf("%w: overlapping active reservation", ErrRoomUnavailable)
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.nextID++
	r.id = t.m.nextID
	r.version = 1
	t.m.reservations[r.id] = r.Snapshot()
	return nil
}

func (t *memTx) Update(_ context.Context, r *Reservation) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	stored, ok := t.m.reservations[r.id]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != r.version {
		return fmt.Errorf("%w: stale version %d", ErrConcurrentModification, r.version)
	}
	r.version++
	t.m.reservations[r.id] = r.Snapshot()
	return nil
}

func (t *memTx) SetRoomStatus(_ context.Context, roomID int64, status rooms.Status) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	room, ok := t.m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	room.Status = status
	t.m.rooms[roomID] = room
	return nil
}

type clientFinder struct{ m *memStore }

func (f clientFinder) FindByID(_ context.Context, id int64) (*clients.Client, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	c, ok := f.m.clients[id]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return &c, nil
}

type roomFinder struct{ m *memStore }

func (f roomFinder) FindByID(_ context.Context, id int64) (*rooms.Room, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	r, ok := f.m.rooms[id]
	if !ok {
		return nil, rooms.ErrNotFound
	}
	return &r, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	emails []Confirmation
	sms    []Confirmation
	fail   bool
}

func (n *recordingNotifier) SendReservationConfirmation(_ context.Context, c Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp: connection refused")
	}
	n.emails = append(n.emails, c)
	return nil
}

func (n *recordingNotifier) SendSMS(_ context.Context, c Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("sms gateway down")
	}
	n.sms = append(n.sms, c)
	return nil
}
