// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

const orderColumns = `id, code, order_type, drop_off_type, status, status_version,
	customer_id, customer_name, customer_phone, created_by,
	service, pickup_address, dropoff_address, urgency,
	location_id, rider_id, washer_id, folder_id,
	price, actual_price, currency, weight_kg, quantity, description,
	created_at, updated_at, washed_at, folded_at, delivered_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, o *Order, created Event) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO orders (
				code, order_type, drop_off_type, status, status_version,
				customer_id, customer_name, customer_phone, created_by,
				service, pickup_address, dropoff_address, urgency,
				location_id, rider_id, price, actual_price, currency,
				weight_kg, quantity, description, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5,
				$6, $7, $8, $9,
				$10, $11, $12, $13,
				$14, $15, $16, $17, $18,
				$19, $20, $21, $22, $22
			)
			RETURNING id`,
			o.Code, string(o.Type), string(o.DropOffType), string(o.Status), o.StatusVersion,
			o.CustomerID, o.CustomerName, o.CustomerPhone, o.CreatedBy,
			o.Service, o.PickupAddress, o.DropoffAddress, o.Urgency,
			o.LocationID, o.RiderID, o.Price, o.ActualPrice, o.Currency,
			o.WeightKg, o.Quantity, o.Description, o.CreatedAt,
		).Scan(&o.ID)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateCode
		}
		if err != nil {
			return err
		}
		created.OrderID = o.ID
		return appendEvents(ctx, tx, []Event{created})
	})
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	return getOrder(ctx, s.db, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (s *Store) GetByCode(ctx context.Context, code string) (*Order, error) {
	return getOrder(ctx, s.db, `SELECT `+orderColumns+` FROM orders WHERE code = $1`, code)
}

func getOrder(ctx context.Context, q pgxscan.Querier, query string, arg any) (*Order, error) {
	var o Order
	err := pgxscan.Get(ctx, q, &o, query, arg)
	if pgxscan.NotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) List(ctx context.Context, f Filter) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.LocationID != nil {
		where = append(where, "location_id = "+arg(*f.LocationID))
	}
	if len(f.Statuses) > 0 {
		ss := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			ss[i] = string(st)
		}
		where = append(where, "status = ANY("+arg(ss)+")")
	}
	if f.RiderID != nil {
		where = append(where, "rider_id = "+arg(*f.RiderID))
	}
	if f.CustomerID != nil {
		where = append(where, "customer_id = "+arg(*f.CustomerID))
	}
	if f.Unclaimed != "" {
		col, ok := slotColumn(f.Unclaimed)
		if !ok {
			return nil, ErrBadRequest
		}
		where = append(where, col+" IS NULL")
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit)
	}

	var out []Order
	if err := pgxscan.Select(ctx, s.db, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Events(ctx context.Context, orderID types.ID) ([]Event, error) {
	var out []Event
	err := pgxscan.Select(ctx, s.db, &out, `
		SELECT id, order_id, actor_id, event_type, payload, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`, orderID)
	return out, err
}

func (s *Store) ApplyTransition(ctx context.Context, t Transition) error {
	o := t.Next
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders
			SET status = $1,
			    status_version = status_version + 1,
			    quantity = $2,
			    weight_kg = $3,
			    description = $4,
			    actual_price = $5,
			    washer_id = $6,
			    folder_id = $7,
			    washed_at = $8,
			    folded_at = $9,
			    delivered_at = $10,
			    dropoff_address = $11,
			    updated_at = $12
			WHERE id = $13 AND status_version = $14`,
			string(o.Status),
			o.Quantity,
			o.WeightKg,
			o.Description,
			o.ActualPrice,
			o.WasherID,
			o.FolderID,
			o.WashedAt,
			o.FoldedAt,
			o.DeliveredAt,
			o.DropoffAddress,
			o.UpdatedAt,
			o.ID,
			t.FromVersion,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return ErrConflict
		}
		if err := appendEvents(ctx, tx, t.Events); err != nil {
			return err
		}
		if err := users.BumpCompletedJobs(ctx, tx, t.Completed); err != nil {
			return err
		}
		o.StatusVersion = t.FromVersion + 1
		return nil
	})
}

func (s *Store) AssignLeastBusy(ctx context.Context, req AssignRequest) (*Assignment, error) {
	col, ok := slotColumn(req.Kind)
	if !ok {
		return nil, ErrBadRequest
	}
	var out *Assignment
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var (
			status Status
			slot   *types.ID
		)
		err := tx.QueryRow(ctx, `SELECT status, `+col+` FROM orders WHERE id = $1 FOR UPDATE`, req.OrderID).
			Scan(&status, &slot)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if slot != nil {
			return ErrSlotTaken
		}

		// Local workers are waited for; the system-wide fallback takes whoever is free.
		fallback := false
		worker, err := users.SelectLeastBusy(ctx, tx, req.Kind, &req.LocationID, users.LockWait)
		if err != nil {
			return err
		}
		if worker == nil {
			fallback = true
			if worker, err = users.SelectLeastBusy(ctx, tx, req.Kind, nil, users.LockSkip); err != nil {
				return err
			}
		}
		if worker == nil {
			return nil
		}

		promoted := req.PromotePending && req.Kind == users.KindRider && status == StatusPendingAssignment
		next := status
		if promoted {
			next = StatusRequested
		}
		if _, err := tx.Exec(ctx, `
			UPDATE orders
			SET `+col+` = $1,
			    location_id = COALESCE(location_id, $2),
			    status = $3,
			    status_version = status_version + 1,
			    updated_at = $4
			WHERE id = $5`,
			worker.ID, req.LocationID, string(next), req.At, req.OrderID,
		); err != nil {
			return err
		}

		evs := assignmentEvents(req, *worker, fallback, promoted)
		if err := appendEvents(ctx, tx, evs); err != nil {
			return err
		}
		out = &Assignment{Worker: *worker, Fallback: fallback, Promoted: promoted, Events: evs}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ClaimNext(ctx context.Context, kind users.Kind, workerID, locationID types.ID, at time.Time) (*Order, error) {
	queue, ok := claimQueues[kind]
	col, _ := slotColumn(kind)
	if !ok {
		return nil, ErrBadRequest
	}
	var claimed types.ID
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id FROM orders
			WHERE status = $1 AND `+col+` IS NULL AND location_id = $2
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED`,
			string(queue), locationID,
		).Scan(&claimed)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQueueEmpty
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE orders
			SET `+col+` = $1, status_version = status_version + 1, updated_at = $2
			WHERE id = $3`,
			workerID, at, claimed,
		); err != nil {
			return err
		}
		return appendEvents(ctx, tx, []Event{{
			OrderID:   claimed,
			ActorID:   &workerID,
			Type:      claimedEvent(kind),
			Payload:   map[string]any{"worker_id": int64(workerID), "location_id": int64(locationID)},
			CreatedAt: at,
		}})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, claimed)
}

func appendEvents(ctx context.Context, tx pgx.Tx, evs []Event) error {
	for i := range evs {
		e := &evs[i]
		payload := e.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO order_events (order_id, actor_id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			e.OrderID, e.ActorID, string(e.Type), payload, e.CreatedAt,
		).Scan(&e.ID); err != nil {
			return fmt.Errorf("append %s event: %w", e.Type, err)
		}
	}
	return nil
}
