// README: Status Transition Handler: one entry point for status and detail changes.
package order

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/metrics"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

// UpdateCommand carries the requested change. Nil and empty fields are left alone.
type UpdateCommand struct {
	OrderID types.ID
	// Actor is nil for system-initiated changes.
	Actor  *users.User
	Status string

	Quantity    *int
	WeightKg    *float64
	Description *string
	ActualPrice *int64
	DeliveredAt *time.Time
	// DropoffAddress lets staff release a manual order held for its delivery address.
	DropoffAddress *string
}

func (c UpdateCommand) hasDetails() bool {
	return c.Quantity != nil || c.WeightKg != nil || c.Description != nil ||
		c.ActualPrice != nil || c.DeliveredAt != nil || c.DropoffAddress != nil
}

// UpdateStatus applies cmd, records what changed and then runs the side effects
// of the new status. Only the write and its events can fail the call.
func (s *Service) UpdateStatus(ctx context.Context, cmd UpdateCommand) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", int64(cmd.OrderID)))

	cur, err := s.repo.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	target := cur.Status
	if cmd.Status != "" {
		if target, err = ParseStatus(cmd.Status); err != nil {
			return nil, fmt.Errorf("%w: unknown status %q", ErrBadRequest, cmd.Status)
		}
	}
	if err := authorizeUpdate(cmd.Actor, cur, cmd, target); err != nil {
		return nil, err
	}
	if cmd.DeliveredAt != nil && target != StatusDelivered {
		return nil, fmt.Errorf("%w: delivered_at requires status delivered", ErrBadRequest)
	}
	if err := validateDetails(cmd); err != nil {
		return nil, err
	}

	now := s.now()
	next := *cur
	details := diffDetails(&next, cmd)
	statusChanged := target != cur.Status
	if !statusChanged && len(details) == 0 {
		return cur, nil
	}

	var actorID *types.ID
	if cmd.Actor != nil {
		actorID = types.IDPtr(cmd.Actor.ID)
	}
	next.Status = target
	next.UpdatedAt = now

	var evs []Event
	if statusChanged {
		evs = append(evs, Event{
			OrderID:   cur.ID,
			ActorID:   actorID,
			Type:      EventStatusChanged,
			Payload:   change(string(cur.Status), string(target)),
			CreatedAt: now,
		})
	}
	if len(details) > 0 {
		evs = append(evs, Event{
			OrderID:   cur.ID,
			ActorID:   actorID,
			Type:      EventDetailsUpdated,
			Payload:   details,
			CreatedAt: now,
		})
	}

	var completed []types.ID
	if statusChanged {
		completed = stampStage(&next, cmd.Actor, now)
	}

	if err := s.repo.ApplyTransition(ctx, Transition{
		Next:        &next,
		FromVersion: cur.StatusVersion,
		Events:      evs,
		Completed:   completed,
	}); err != nil {
		return nil, err
	}
	if statusChanged {
		metrics.StatusTransitionsTotal.WithLabelValues(string(target)).Inc()
	}
	s.log.Info("order updated",
		zap.Int64("order_id", int64(next.ID)),
		zap.String("from", string(cur.Status)),
		zap.String("to", string(target)),
		zap.Int("details_changed", len(details)),
	)
	s.engine.publish(ctx, &next, evs)

	if statusChanged {
		switch target {
		case StatusWashed:
			s.onWashed(ctx, &next)
		case StatusReady:
			s.onReady(ctx, &next, actorID)
		case StatusDelivered:
			s.onDelivered(ctx, &next)
		}
	}

	if fresh, err := s.repo.Get(ctx, next.ID); err == nil {
		return fresh, nil
	}
	return &next, nil
}

func validateDetails(cmd UpdateCommand) error {
	if cmd.Quantity != nil && *cmd.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrBadRequest)
	}
	if cmd.WeightKg != nil && *cmd.WeightKg < 0 {
		return fmt.Errorf("%w: weight_kg must not be negative", ErrBadRequest)
	}
	if cmd.ActualPrice != nil && *cmd.ActualPrice < 0 {
		return fmt.Errorf("%w: actual_price must not be negative", ErrBadRequest)
	}
	return nil
}

// diffDetails applies the detail fields to o and returns {field: {old, new}}
// for those that actually changed.
func diffDetails(o *Order, cmd UpdateCommand) map[string]any {
	out := map[string]any{}
	if cmd.Quantity != nil && *cmd.Quantity != o.Quantity {
		out["quantity"] = change(o.Quantity, *cmd.Quantity)
		o.Quantity = *cmd.Quantity
	}
	if cmd.WeightKg != nil && (o.WeightKg == nil || *o.WeightKg != *cmd.WeightKg) {
		out["weight_kg"] = change(floatOrNil(o.WeightKg), *cmd.WeightKg)
		w := *cmd.WeightKg
		o.WeightKg = &w
	}
	if cmd.Description != nil && *cmd.Description != o.Description {
		out["description"] = change(o.Description, *cmd.Description)
		o.Description = *cmd.Description
	}
	if cmd.ActualPrice != nil && (o.ActualPrice == nil || *o.ActualPrice != *cmd.ActualPrice) {
		out["actual_price"] = change(intOrNil(o.ActualPrice), *cmd.ActualPrice)
		p := *cmd.ActualPrice
		o.ActualPrice = &p
	}
	if cmd.DropoffAddress != nil && *cmd.DropoffAddress != o.DropoffAddress {
		out["dropoff_address"] = change(o.DropoffAddress, *cmd.DropoffAddress)
		o.DropoffAddress = *cmd.DropoffAddress
	}
	if cmd.DeliveredAt != nil && (o.DeliveredAt == nil || !o.DeliveredAt.Equal(*cmd.DeliveredAt)) {
		out["delivered_at"] = change(timeOrNil(o.DeliveredAt), cmd.DeliveredAt.UTC().Format(time.RFC3339))
		at := *cmd.DeliveredAt
		o.DeliveredAt = &at
	}
	return out
}

// stampStage records stage completion on o and returns the workers whose
// fairness counter goes up. An eligible actor is credited with the stage; a
// slot that is already held keeps its worker.
func stampStage(o *Order, actor *users.User, now time.Time) []types.ID {
	switch o.Status {
	case StatusWashed:
		o.WashedAt = &now
		if actor.CanWork(users.KindWasher) {
			if o.WasherID == nil {
				o.WasherID = types.IDPtr(actor.ID)
			}
			return []types.ID{actor.ID}
		}
		return idList(o.WasherID)
	case StatusReady:
		if actor.CanWork(users.KindFolder) {
			o.FoldedAt = &now
			if o.FolderID == nil {
				o.FolderID = types.IDPtr(actor.ID)
			}
			return []types.ID{actor.ID}
		}
		return idList(o.FolderID)
	case StatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
		return idList(o.RiderID)
	}
	return nil
}

func idList(id *types.ID) []types.ID {
	if id == nil {
		return nil
	}
	return []types.ID{*id}
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func intOrNil(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeOrNil(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(time.RFC3339)
}
