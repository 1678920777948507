// README: Assignment Engine: least-busy push assignment of riders and folders.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/metrics"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/location"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/notify"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

type Engine struct {
	repo      Repository
	users     Directory
	locations LocationResolver
	notifier  Notifier
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time
}

// Assign fills the kind's slot on o with the least busy eligible worker and
// updates o in place. Washers are never pushed; they claim from their queue.
// A nil Assignment with a nil error means nothing changed: the slot was already
// filled, the order is finished, no location resolves or nobody is eligible.
func (e *Engine) Assign(ctx context.Context, o *Order, kind users.Kind, actorID *types.ID, promote bool) (*Assignment, error) {
	ctx, span := tracer.Start(ctx, "order.Assign")
	defer span.End()

	if kind != users.KindRider && kind != users.KindFolder {
		return nil, fmt.Errorf("%w: %s is not push-assigned", ErrBadRequest, kind)
	}
	if o.Slot(kind) != nil || o.Status.Terminal() {
		return nil, nil
	}
	fields := []zap.Field{zap.Int64("order_id", int64(o.ID)), zap.String("kind", string(kind))}

	res, err := e.resolve(ctx, o)
	if err != nil {
		return nil, err
	}
	if !res.Found() {
		metrics.AssignmentsTotal.WithLabelValues(string(kind), "no_location").Inc()
		e.log.Warn("assignment skipped: no active location", fields...)
		return nil, nil
	}
	fields = append(fields, zap.Int64("location_id", int64(res.Location.ID)))

	a, err := e.repo.AssignLeastBusy(ctx, AssignRequest{
		OrderID:        o.ID,
		Kind:           kind,
		LocationID:     res.Location.ID,
		ActorID:        actorID,
		PromotePending: promote,
		At:             e.now(),
	})
	if errors.Is(err, ErrSlotTaken) {
		metrics.AssignmentsTotal.WithLabelValues(string(kind), "taken").Inc()
		e.log.Debug("slot filled concurrently", fields...)
		return nil, nil
	}
	if err != nil {
		metrics.AssignmentsTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, err
	}
	if a == nil {
		metrics.AssignmentsTotal.WithLabelValues(string(kind), "no_worker").Inc()
		e.log.Warn("assignment pending: no eligible worker", fields...)
		return nil, nil
	}

	o.setSlot(kind, a.Worker.ID)
	if o.LocationID == nil {
		o.LocationID = types.IDPtr(res.Location.ID)
	}
	if a.Promoted {
		o.Status = StatusRequested
	}
	o.StatusVersion++

	outcome := "assigned"
	if a.Fallback {
		outcome = "fallback"
		e.log.Warn("assigned outside order location", append(fields, zap.Int64("worker_id", int64(a.Worker.ID)))...)
	}
	metrics.AssignmentsTotal.WithLabelValues(string(kind), outcome).Inc()
	e.log.Info("worker assigned", append(fields,
		zap.Int64("worker_id", int64(a.Worker.ID)),
		zap.Bool("promoted", a.Promoted),
	)...)
	e.publish(ctx, o, a.Events)
	return a, nil
}

// AssignAndNotify is Assign followed by a message to the new worker.
func (e *Engine) AssignAndNotify(ctx context.Context, o *Order, kind users.Kind, actorID *types.ID, promote bool) (*Assignment, error) {
	a, err := e.Assign(ctx, o, kind, actorID, promote)
	if err != nil || a == nil {
		return a, err
	}
	worker := a.Worker
	e.notifier.Dispatch(ctx, notify.Message{
		Recipient: &worker,
		OrderID:   types.IDPtr(o.ID),
		Kind:      notify.KindOrderAssigned,
		Text:      assignedText(o),
		SMS:       true,
		Key:       messageKey(o, "assigned", worker.ID),
	})
	return a, nil
}

func (e *Engine) resolve(ctx context.Context, o *Order) (location.Resolution, error) {
	var customer *users.User
	if o.LocationID == nil && o.CustomerID != nil {
		u, err := e.users.Get(ctx, *o.CustomerID)
		switch {
		case err == nil:
			customer = u
		case !errors.Is(err, users.ErrNotFound):
			return location.Resolution{}, err
		}
	}
	return e.locations.Resolve(ctx, hintsFor(o.LocationID, customer, o.PickupAddress))
}

func (e *Engine) publish(ctx context.Context, o *Order, evs []Event) {
	if e.publisher == nil || len(evs) == 0 {
		return
	}
	if err := e.publisher.Publish(ctx, o, evs); err != nil {
		e.log.Warn("event publish failed", zap.Int64("order_id", int64(o.ID)), zap.Error(err))
	}
}

// AssignWorker is the staff-triggered push for one order. Folders go only to
// washed orders. It returns the order and the worker now in the slot; the
// worker is nil when nobody eligible was free.
func (s *Service) AssignWorker(ctx context.Context, actor *users.User, id types.ID, kind users.Kind) (*Order, *users.User, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !deskStaff(actor) || (!unrestricted(actor) && !inScope(actor, o)) {
		return nil, nil, ErrPermissionDenied
	}
	switch {
	case kind != users.KindRider && kind != users.KindFolder:
		return nil, nil, fmt.Errorf("%w: %s is not push-assigned", ErrBadRequest, kind)
	case o.Status.Terminal():
		return nil, nil, fmt.Errorf("%w: order is %s", ErrConflict, o.Status)
	case kind == users.KindFolder && o.Status != StatusWashed:
		return nil, nil, fmt.Errorf("%w: folders are assigned to washed orders, order is %s", ErrConflict, o.Status)
	case kind == users.KindRider && o.Status == StatusReady && o.AwaitingDeliveryAddress():
		return nil, nil, fmt.Errorf("%w: manual order has no delivery address", ErrConflict)
	}
	if held := o.Slot(kind); held != nil {
		return o, s.lookupUser(ctx, held), nil
	}

	a, err := s.engine.AssignAndNotify(ctx, o, kind, types.IDPtr(actor.ID), o.Status == StatusPendingAssignment)
	if err != nil || a == nil {
		return o, nil, err
	}
	worker := a.Worker
	return o, &worker, nil
}
