// README: Location store backed by PostgreSQL.
package location

import (
	"context"
	"errors"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

type Repository interface {
	Create(ctx context.Context, l *Location) error
	Get(ctx context.Context, id types.ID) (*Location, error)
	List(ctx context.Context, activeOnly bool) ([]Location, error)
	SetActive(ctx context.Context, id types.ID, active bool) (*Location, error)
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, l *Location) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO locations (name, description, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		l.Name, l.Description, l.IsActive,
	).Scan(&l.ID, &l.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateName
	}
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Location, error) {
	var l Location
	err := pgxscan.Get(ctx, s.db, &l, `
		SELECT id, name, description, is_active, created_at
		FROM locations WHERE id = $1`, id)
	if pgxscan.NotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) List(ctx context.Context, activeOnly bool) ([]Location, error) {
	var out []Location
	err := pgxscan.Select(ctx, s.db, &out, `
		SELECT id, name, description, is_active, created_at
		FROM locations
		WHERE is_active OR NOT $1
		ORDER BY id ASC`, activeOnly)
	return out, err
}

func (s *Store) SetActive(ctx context.Context, id types.ID, active bool) (*Location, error) {
	var l Location
	err := pgxscan.Get(ctx, s.db, &l, `
		UPDATE locations SET is_active = $2
		WHERE id = $1
		RETURNING id, name, description, is_active, created_at`, id, active)
	if pgxscan.NotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
