// README: Service rates stored in PostgreSQL.
package pricing

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RateStore interface {
	Rate(ctx context.Context, service string) (*Rate, error)
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Rate(ctx context.Context, service string) (*Rate, error) {
	var r Rate
	err := pgxscan.Get(ctx, s.db, &r, `
		SELECT service, base_fee, per_kg, currency
		FROM service_rates WHERE service = $1`, service)
	if pgxscan.NotFound(err) {
		return nil, ErrRateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) Upsert(ctx context.Context, r Rate) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO service_rates (service, base_fee, per_kg, currency)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (service) DO UPDATE
		SET base_fee = EXCLUDED.base_fee, per_kg = EXCLUDED.per_kg, currency = EXCLUDED.currency`,
		r.Service, r.BaseFee, r.PerKg, r.Currency)
	return err
}
