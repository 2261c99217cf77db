package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-hotel/internal/clients"
	"github.com/odyssey-erp/odyssey-hotel/internal/platform/db"
	"github.com/odyssey-erp/odyssey-hotel/internal/rooms"
)

const idempotencyKeyConstraint = "reservations_idempotency_key_key"

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewRepository creates a new repository. Stored dates are read back as
// calendar days in loc.
func NewRepository(pool *pgxpool.Pool, loc *time.Location) Repository {
	if loc == nil {
		loc = time.Local
	}
	return &repository{pool: pool, loc: loc}
}

// txRepository implements TxRepository.
type txRepository struct {
	tx  pgx.Tx
	loc *time.Location
}

// WithTx runs fn at READ COMMITTED. Writers serialise on the room and client
// row locks taken through TxRepository, and every statement after the lock
// sees rows committed by the previous holder.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, loc: r.loc})
	})
	return translateErr(err)
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsExclusionViolation(err):
		return fmt.Errorf("%w: overlapping active reservation", ErrRoomUnavailable)
	case db.IsRetryable(err):
		return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	}
	return err
}

const reservationColumns = `
	id, code, client_id, room_id, check_in, check_out, status, cancel_reason, idempotency_key,
	check_in_at, check_in_by, check_in_documents_verified, check_in_observations,
	check_out_at, check_out_by, check_out_room_condition, check_out_observations,
	version, created_at, updated_at`

// pgDate sends a calendar day as text so the session time zone cannot shift it.
func pgDate(t time.Time) string {
	return t.Format(DateLayout)
}

var activeStatusList = "('" + string(StatusConfirmed) + "','" + string(StatusInProgress) + "')"

func scanReservation(row pgx.Row, loc *time.Location) (*Reservation, error) {
	var (
		s       Snapshot
		inAt    *time.Time
		inBy    *int64
		inDocs  *bool
		inObs   *string
		outAt   *time.Time
		outBy   *int64
		outCond *string
		outObs  *string
	)
	err := row.Scan(
		&s.ID, &s.Code, &s.ClientID, &s.RoomID, &s.CheckIn, &s.CheckOut, &s.Status,
		&s.CancelReason, &s.IdempotencyKey,
		&inAt, &inBy, &inDocs, &inObs,
		&outAt, &outBy, &outCond, &outObs,
		&s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if inAt != nil && inBy != nil {
		s.CheckInData = &CheckInSnapshot{At: *inAt, PerformedBy: *inBy, Observations: inObs}
		if inDocs != nil {
			s.CheckInData.DocumentsVerified = *inDocs
		}
	}
	if outAt != nil && outBy != nil && outCond != nil {
		s.CheckOutData = &CheckOutSnapshot{At: *outAt, PerformedBy: *outBy, RoomCondition: RoomCondition(*outCond), Observations: outObs}
	}
	return restore(s, loc), nil
}

func collectReservations(rows pgx.Rows, loc *time.Location) ([]*Reservation, error) {
	defer rows.Close()
	var out []*Reservation
	for rows.Next() {
		res, err := scanReservation(rows, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func findByID(ctx context.Context, q dbtx, loc *time.Location, id int64, lock bool) (*Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	return scanReservation(q.QueryRow(ctx, query, id), loc)
}

func findByIdempotencyKey(ctx context.Context, q dbtx, loc *time.Location, key string) (*Reservation, error) {
	return scanReservation(q.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE idempotency_key = $1`, key), loc)
}

func hasActiveByClient(ctx context.Context, q dbtx, clientID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE client_id = $1 AND status IN `+activeStatusList+`)`, clientID).Scan(&exists)
	return exists, err
}

func findOverlapping(ctx context.Context, q dbtx, loc *time.Location, roomID int64, stay DateRange, excludeID int64) ([]*Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE room_id = $1
		  AND status IN ` + activeStatusList + `
		  AND check_in < $3::date
		  AND check_out > $2::date
		  AND id <> $4
		ORDER BY check_in`
	rows, err := q.Query(ctx, query, roomID, pgDate(stay.Start()), pgDate(stay.End()), excludeID)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows, loc)
}

// FindByID retrieves a reservation by ID.
func (r *repository) FindByID(ctx context.Context, id int64) (*Reservation, error) {
	return findByID(ctx, r.pool, r.loc, id, false)
}

// FindByIdempotencyKey retrieves the reservation created with key.
func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*Reservation, error) {
	return findByIdempotencyKey(ctx, r.pool, r.loc, key)
}

// HasActiveByClient reports whether the client holds an active reservation.
func (r *repository) HasActiveByClient(ctx context.Context, clientID int64) (bool, error) {
	return hasActiveByClient(ctx, r.pool, clientID)
}

// FindOverlapping returns active reservations on roomID that share a night
// with stay.
func (r *repository) FindOverlapping(ctx context.Context, roomID int64, stay DateRange, excludeID int64) ([]*Reservation, error) {
	return findOverlapping(ctx, r.pool, r.loc, roomID, stay, excludeID)
}

// List returns reservations matching filter ordered by check-in.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]*Reservation, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", argPos))
		args = append(args, *filter.ClientID)
		argPos++
	}
	if filter.RoomID != nil {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", argPos))
		args = append(args, *filter.RoomID)
		argPos++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("check_out > $%d::date", argPos))
		args = append(args, pgDate(*filter.From))
		argPos++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("check_in < $%d::date", argPos))
		args = append(args, pgDate(*filter.To))
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM reservations "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM reservations %s ORDER BY check_in, id LIMIT $%d OFFSET $%d`,
		reservationColumns, where, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectReservations(rows, r.loc)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// LockClient locks the client row.
func (t *txRepository) LockClient(ctx context.Context, clientID int64) (*clients.Client, error) {
	return clients.NewRepository(t.tx).GetForUpdate(ctx, clientID)
}

// LockRoom locks the room row. Every writer touching a room's calendar takes
// this lock first.
func (t *txRepository) LockRoom(ctx context.Context, roomID int64) (*rooms.Room, error) {
	return rooms.NewRepository(t.tx).GetForUpdate(ctx, roomID)
}

// GetForUpdate loads and locks a reservation.
func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (*Reservation, error) {
	return findByID(ctx, t.tx, t.loc, id, true)
}

func (t *txRepository) FindByIdempotencyKey(ctx context.Context, key string) (*Reservation, error) {
	return findByIdempotencyKey(ctx, t.tx, t.loc, key)
}

func (t *txRepository) HasActiveByClient(ctx context.Context, clientID int64) (bool, error) {
	return hasActiveByClient(ctx, t.tx, clientID)
}

// CountPendingByClient counts the client's active reservations.
func (t *txRepository) CountPendingByClient(ctx context.Context, clientID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE client_id = $1 AND status IN `+activeStatusList, clientID).Scan(&n)
	return n, err
}

func (t *txRepository) FindOverlapping(ctx context.Context, roomID int64, stay DateRange, excludeID int64) ([]*Reservation, error) {
	return findOverlapping(ctx, t.tx, t.loc, roomID, stay, excludeID)
}

func (t *txRepository) HasInProgressForRoom(ctx context.Context, roomID, excludeID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reservations WHERE room_id = $1 AND status = $2 AND id <> $3)`,
		roomID, StatusInProgress, excludeID,
	).Scan(&exists)
	return exists, err
}

// Insert creates the reservation row.
func (t *txRepository) Insert(ctx context.Context, res *Reservation) error {
	query := `
		INSERT INTO reservations (
			code, client_id, room_id, check_in, check_out, status, idempotency_key,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4::date, $5::date, $6, $7, 1, $8, $8)
		RETURNING id, version`
	err := t.tx.QueryRow(ctx, query,
		res.code, res.clientID, res.roomID, pgDate(res.checkIn), pgDate(res.checkOut), res.status,
		res.idempotencyKey, res.createdAt,
	).Scan(&res.id, &res.version)
	if err != nil {
		if db.IsUniqueViolation(err) && db.ConstraintName(err) == idempotencyKeyConstraint {
			return errDuplicateIdempotencyKey
		}
		return translateErr(err)
	}
	return nil
}

// Update persists the aggregate's mutable fields when the stored version
// still matches and advances it.
func (t *txRepository) Update(ctx context.Context, res *Reservation) error {
	var (
		inAt    *time.Time
		inBy    *int64
		inDocs  *bool
		inObs   *string
		outAt   *time.Time
		outBy   *int64
		outCond *string
		outObs  *string
	)
	if rec := res.checkInData; rec != nil {
		inAt, inBy, inDocs, inObs = &rec.at, &rec.performedBy, &rec.documentsVerified, rec.observations
	}
	if rec := res.checkOutData; rec != nil {
		cond := string(rec.roomCondition)
		outAt, outBy, outCond, outObs = &rec.at, &rec.performedBy, &cond, rec.observations
	}

	query := `
		UPDATE reservations SET
			check_in = $3::date, check_out = $4::date, status = $5, cancel_reason = $6,
			check_in_at = $7, check_in_by = $8, check_in_documents_verified = $9, check_in_observations = $10,
			check_out_at = $11, check_out_by = $12, check_out_room_condition = $13, check_out_observations = $14,
			version = version + 1, updated_at = $15
		WHERE id = $1 AND version = $2
		RETURNING version`
	err := t.tx.QueryRow(ctx, query,
		res.id, res.version,
		pgDate(res.checkIn), pgDate(res.checkOut), res.status, res.cancelReason,
		inAt, inBy, inDocs, inObs,
		outAt, outBy, outCond, outObs,
		res.updatedAt,
	).Scan(&res.version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: reservation %d is no longer at version %d", ErrConcurrentModification, res.id, res.version)
		}
		return translateErr(err)
	}
	return nil
}

// SetRoomStatus persists a room status change.
func (t *txRepository) SetRoomStatus(ctx context.Context, roomID int64, status rooms.Status) error {
	err := rooms.NewRepository(t.tx).UpdateStatus(ctx, roomID, status)
	if errors.Is(err, rooms.ErrNotFound) {
		return ErrRoomNotFound
	}
	return err
}
