package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
)

// sweepStatuses are the statuses in which an order without a rider is picked up again.
var sweepStatuses = []Status{StatusPendingAssignment, StatusRequested, StatusReady}

type SweepResult struct {
	Scanned  int `json:"scanned"`
	Assigned int `json:"assigned"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// SweepPending retries rider assignment for up to limit orders that still have no rider.
func (s *Service) SweepPending(ctx context.Context, limit int) (SweepResult, error) {
	ctx, span := tracer.Start(ctx, "order.SweepPending")
	defer span.End()

	var res SweepResult
	pending, err := s.repo.List(ctx, Filter{Statuses: sweepStatuses, Unclaimed: users.KindRider, Limit: limit})
	if err != nil {
		return res, err
	}
	for i := range pending {
		o := &pending[i]
		res.Scanned++
		if o.Status == StatusReady && o.AwaitingDeliveryAddress() {
			res.Skipped++
			continue
		}
		a, err := s.engine.AssignAndNotify(ctx, o, users.KindRider, nil, true)
		switch {
		case err != nil:
			res.Failed++
			s.log.Error("sweep assignment failed", zap.Int64("order_id", int64(o.ID)), zap.Error(err))
		case a == nil:
			res.Skipped++
		default:
			res.Assigned++
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}
	if res.Scanned > 0 {
		s.log.Info("pending sweep done",
			zap.Int("scanned", res.Scanned),
			zap.Int("assigned", res.Assigned),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		)
	}
	return res, nil
}

// RunPendingSweeper sweeps every interval until ctx is done.
func (s *Service) RunPendingSweeper(ctx context.Context, interval time.Duration, limit int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepPending(ctx, limit); err != nil && ctx.Err() == nil {
				s.log.Warn("pending sweep failed", zap.Error(err))
			}
		}
	}
}
