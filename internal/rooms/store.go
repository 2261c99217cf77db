package rooms

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-hotel/internal/platform/db"
)

// Store is the persistence contract used by Service.
type Store interface {
	FindByID(ctx context.Context, id int64) (*Room, error)
	List(ctx context.Context, filter ListFilter) ([]Room, int, error)
	// Mutate loads the room under lock, applies fn and persists the status.
	Mutate(ctx context.Context, id int64, fn func(*Room) error) (*Room, error)
}

type pgStore struct {
	*Repository
	pool *pgxpool.Pool
}

// NewStore returns a Store backed by pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{Repository: NewRepository(pool), pool: pool}
}

func (s *pgStore) Mutate(ctx context.Context, id int64, fn func(*Room) error) (*Room, error) {
	var out *Room
	err := db.WithTx(ctx, s.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		repo := NewRepository(tx)
		room, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(room); err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, id, room.Status); err != nil {
			return err
		}
		out = room
		return nil
	})
	return out, err
}
