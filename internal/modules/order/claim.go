package order

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/metrics"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
)

// ClaimNext gives the actor the oldest unclaimed order in their queue: in_progress
// orders for washers, washed orders for folders. First claim wins.
func (s *Service) ClaimNext(ctx context.Context, actor *users.User, kind users.Kind) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.ClaimNext")
	defer span.End()

	if _, ok := claimQueues[kind]; !ok {
		return nil, fmt.Errorf("%w: %s orders are assigned, not claimed", ErrBadRequest, kind)
	}
	if actor == nil || !actor.CanWork(kind) {
		return nil, ErrPermissionDenied
	}
	if actor.ServiceLocationID == nil {
		metrics.ClaimsTotal.WithLabelValues(string(kind), "no_location").Inc()
		return nil, fmt.Errorf("%w: worker has no service location", ErrPermissionDenied)
	}

	o, err := s.repo.ClaimNext(ctx, kind, actor.ID, *actor.ServiceLocationID, s.now())
	if errors.Is(err, ErrQueueEmpty) {
		metrics.ClaimsTotal.WithLabelValues(string(kind), "empty").Inc()
		return nil, err
	}
	if err != nil {
		metrics.ClaimsTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, err
	}
	metrics.ClaimsTotal.WithLabelValues(string(kind), "claimed").Inc()
	s.log.Info("order claimed",
		zap.Int64("order_id", int64(o.ID)),
		zap.Int64("worker_id", int64(actor.ID)),
		zap.String("kind", string(kind)),
	)
	if evs, err := s.repo.Events(ctx, o.ID); err == nil {
		for i := len(evs) - 1; i >= 0; i-- {
			if evs[i].Type == claimedEvent(kind) {
				s.engine.publish(ctx, o, evs[i:i+1])
				break
			}
		}
	}
	return o, nil
}
