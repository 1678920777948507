package notify

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

//go:generate mockgen -source ./store.go -destination=./mocks/store.go -package=mock_notify
type Sink interface {
	Save(ctx context.Context, n *Notification) error
}

// Store keeps in-app notifications in PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Save(ctx context.Context, n *Notification) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, order_id, message, notification_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		n.UserID, n.OrderID, n.Message, string(n.Kind),
	).Scan(&n.ID, &n.CreatedAt)
}

func (s *Store) ListForUser(ctx context.Context, userID types.ID, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []Notification
	err := pgxscan.Select(ctx, s.db, &out, `
		SELECT id, user_id, order_id, message, notification_type, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, userID, unreadOnly, limit)
	return out, err
}

func (s *Store) MarkRead(ctx context.Context, userID, id types.ID) error {
	tag, err := s.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
