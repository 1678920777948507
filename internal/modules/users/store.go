// README: User store backed by PostgreSQL; also the staff pool queries used by assignment.
package users

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

const userColumns = `id, firebase_uid, username, full_name, phone, fcm_token, role, staff_type,
	service_location_id, location, pickup_address, is_active, is_staff, is_superuser,
	completed_jobs, created_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, u *User) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (
			firebase_uid, username, full_name, phone, fcm_token, role, staff_type,
			service_location_id, location, pickup_address, is_active, is_staff, is_superuser, completed_jobs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`,
		u.FirebaseUID, u.Username, u.FullName, u.Phone, u.FCMToken, string(u.Role), string(u.StaffType),
		u.ServiceLocationID, u.Location, u.PickupAddress, u.IsActive, u.IsStaff, u.IsSuperuser, u.CompletedJobs,
	)
	return row.Scan(&u.ID, &u.CreatedAt)
}

func (s *Store) Get(ctx context.Context, id types.ID) (*User, error) {
	var u User
	err := pgxscan.Get(ctx, s.db, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if pgxscan.NotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetByFirebaseUID(ctx context.Context, uid string) (*User, error) {
	var u User
	err := pgxscan.Get(ctx, s.db, &u, `SELECT `+userColumns+` FROM users WHERE firebase_uid = $1`, uid)
	if pgxscan.NotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListActive returns active workers of kind, least busy first. A nil location means system-wide.
func (s *Store) ListActive(ctx context.Context, kind Kind, locationID *types.ID) ([]User, error) {
	var out []User
	err := pgxscan.Select(ctx, s.db, &out, `
		SELECT `+userColumns+`
		FROM users
		WHERE is_active
		  AND (role = $1 OR staff_type = $1)
		  AND ($2::bigint IS NULL OR service_location_id = $2)
		ORDER BY completed_jobs ASC, id ASC`,
		string(kind), locationID,
	)
	return out, err
}

func (s *Store) ListAdmins(ctx context.Context) ([]User, error) {
	var out []User
	err := pgxscan.Select(ctx, s.db, &out, `
		SELECT `+userColumns+`
		FROM users
		WHERE is_active AND (role = 'admin' OR is_superuser)
		ORDER BY id ASC`)
	return out, err
}

// Lock is the row lock SelectLeastBusy takes on the chosen worker.
type Lock int

const (
	NoLock Lock = iota
	// LockWait blocks until a concurrent holder commits.
	LockWait
	// LockSkip passes over rows held by concurrent transactions.
	LockSkip
)

// SelectLeastBusy runs the staff pool query on q: the least busy active worker
// of kind at locationID (nil = any), or nil.
func SelectLeastBusy(ctx context.Context, q pgxscan.Querier, kind Kind, locationID *types.ID, lock Lock) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_active
		  AND (role = $1 OR staff_type = $1)
		  AND ($2::bigint IS NULL OR service_location_id = $2)
		ORDER BY completed_jobs ASC, id ASC
		LIMIT 1`
	switch lock {
	case LockWait:
		query += ` FOR UPDATE`
	case LockSkip:
		query += ` FOR UPDATE SKIP LOCKED`
	}
	var u User
	err := pgxscan.Get(ctx, q, &u, query, string(kind), locationID)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select least busy %s: %w", kind, err)
	}
	return &u, nil
}

// BumpCompletedJobs increments the fairness counter of each worker inside tx.
func BumpCompletedJobs(ctx context.Context, tx pgx.Tx, ids []types.ID) error {
	for _, id := range ids {
		if _, err := tx.Exec(ctx, `UPDATE users SET completed_jobs = completed_jobs + 1 WHERE id = $1`, id); err != nil {
			return fmt.Errorf("bump completed jobs for %d: %w", id, err)
		}
	}
	return nil
}
