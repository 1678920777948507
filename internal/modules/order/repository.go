package order

import (
	"context"
	"time"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

// Repository is the persistence boundary of the order workflow. Every method
// that writes does so atomically together with the events it is given or produces.
type Repository interface {
	// Create inserts o with the created event, filling o.ID. ErrDuplicateCode when o.Code is taken.
	Create(ctx context.Context, o *Order, created Event) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	GetByCode(ctx context.Context, code string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	Events(ctx context.Context, orderID types.ID) ([]Event, error)

	// ApplyTransition writes t.Next if the stored version still equals t.FromVersion,
	// appends t.Events and bumps the fairness counter of t.Completed. ErrConflict otherwise.
	ApplyTransition(ctx context.Context, t Transition) error

	// AssignLeastBusy locks the order, picks the least busy eligible worker (at the
	// location, else anywhere) and fills the slot. It returns nil when nobody is
	// eligible and ErrSlotTaken when the slot is already filled.
	AssignLeastBusy(ctx context.Context, req AssignRequest) (*Assignment, error)

	// ClaimNext hands the oldest unclaimed order of the kind's queue at locationID to workerID.
	// ErrQueueEmpty when nothing is waiting.
	ClaimNext(ctx context.Context, kind users.Kind, workerID, locationID types.ID, at time.Time) (*Order, error)
}

type Transition struct {
	Next        *Order
	FromVersion int
	Events      []Event
	Completed   []types.ID
}

type AssignRequest struct {
	OrderID    types.ID
	Kind       users.Kind
	LocationID types.ID
	ActorID    *types.ID
	// PromotePending advances a pending_assignment order to requested once it has a rider.
	PromotePending bool
	At             time.Time
}

type Assignment struct {
	Worker   users.User
	Fallback bool
	Promoted bool
	Events   []Event
}

// claimQueues maps pull-model stages to the status their queue is drawn from.
var claimQueues = map[users.Kind]Status{
	users.KindWasher: StatusInProgress,
	users.KindFolder: StatusWashed,
}

func slotColumn(kind users.Kind) (string, bool) {
	switch kind {
	case users.KindRider:
		return "rider_id", true
	case users.KindWasher:
		return "washer_id", true
	case users.KindFolder:
		return "folder_id", true
	}
	return "", false
}

func assignmentEvents(req AssignRequest, worker users.User, fallback, promoted bool) []Event {
	evs := []Event{{
		OrderID: req.OrderID,
		ActorID: req.ActorID,
		Type:    assignedEvent(req.Kind),
		Payload: map[string]any{
			"worker_id":   int64(worker.ID),
			"location_id": int64(req.LocationID),
			"fallback":    fallback,
		},
		CreatedAt: req.At,
	}}
	if promoted {
		evs = append(evs, Event{
			OrderID:   req.OrderID,
			Type:      EventStatusChanged,
			Payload:   change(string(StatusPendingAssignment), string(StatusRequested)),
			CreatedAt: req.At,
		})
	}
	return evs
}
