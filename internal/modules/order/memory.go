// README: In-memory order repository used by service and handler tests.
package order

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

// WorkerPool is the slice of the staff pool the memory store needs.
// users.MemoryStore satisfies it.
type WorkerPool interface {
	Candidates(kind users.Kind, locationID *types.ID) []users.User
	BumpCompletedJobs(ids []types.ID)
}

type MemoryStore struct {
	mu        sync.Mutex
	workers   WorkerPool
	nextID    types.ID
	nextEvent int64
	orders    map[types.ID]*Order
	events    []Event
}

func NewMemoryStore(workers WorkerPool) *MemoryStore {
	return &MemoryStore{workers: workers, orders: make(map[types.ID]*Order)}
}

func (s *MemoryStore) Create(_ context.Context, o *Order, created Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orders {
		if existing.Code == o.Code {
			return ErrDuplicateCode
		}
	}
	s.nextID++
	o.ID = s.nextID
	o.UpdatedAt = o.CreatedAt
	cp := *o
	s.orders[o.ID] = &cp
	created.OrderID = o.ID
	s.appendLocked([]Event{created})
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) GetByCode(_ context.Context, code string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if strings.EqualFold(o.Code, code) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for _, o := range s.orders {
		if matches(o, f) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(o *Order, f Filter) bool {
	if f.LocationID != nil && !types.SameID(o.LocationID, f.LocationID) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if o.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.RiderID != nil && !types.SameID(o.RiderID, f.RiderID) {
		return false
	}
	if f.CustomerID != nil && !types.SameID(o.CustomerID, f.CustomerID) {
		return false
	}
	if f.Unclaimed != "" && o.Slot(f.Unclaimed) != nil {
		return false
	}
	return true
}

func (s *MemoryStore) Events(_ context.Context, orderID types.ID) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) ApplyTransition(_ context.Context, t Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[t.Next.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.StatusVersion != t.FromVersion {
		return ErrConflict
	}
	t.Next.StatusVersion = t.FromVersion + 1
	cp := *t.Next
	s.orders[cp.ID] = &cp
	s.appendLocked(t.Events)
	if s.workers != nil && len(t.Completed) > 0 {
		s.workers.BumpCompletedJobs(t.Completed)
	}
	return nil
}

func (s *MemoryStore) AssignLeastBusy(_ context.Context, req AssignRequest) (*Assignment, error) {
	if _, ok := slotColumn(req.Kind); !ok {
		return nil, ErrBadRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[req.OrderID]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Slot(req.Kind) != nil {
		return nil, ErrSlotTaken
	}
	if s.workers == nil {
		return nil, nil
	}

	fallback := false
	pool := s.workers.Candidates(req.Kind, &req.LocationID)
	if len(pool) == 0 {
		fallback = true
		pool = s.workers.Candidates(req.Kind, nil)
	}
	if len(pool) == 0 {
		return nil, nil
	}
	worker := pool[0]

	promoted := req.PromotePending && req.Kind == users.KindRider && o.Status == StatusPendingAssignment
	o.setSlot(req.Kind, worker.ID)
	if o.LocationID == nil {
		loc := req.LocationID
		o.LocationID = &loc
	}
	if promoted {
		o.Status = StatusRequested
	}
	o.StatusVersion++
	o.UpdatedAt = req.At

	evs := assignmentEvents(req, worker, fallback, promoted)
	s.appendLocked(evs)
	return &Assignment{Worker: worker, Fallback: fallback, Promoted: promoted, Events: evs}, nil
}

func (s *MemoryStore) ClaimNext(_ context.Context, kind users.Kind, workerID, locationID types.ID, at time.Time) (*Order, error) {
	queue, ok := claimQueues[kind]
	if !ok {
		return nil, ErrBadRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var next *Order
	for _, o := range s.orders {
		if o.Status != queue || o.Slot(kind) != nil || !types.SameID(o.LocationID, &locationID) {
			continue
		}
		if next == nil || o.CreatedAt.Before(next.CreatedAt) ||
			(o.CreatedAt.Equal(next.CreatedAt) && o.ID < next.ID) {
			next = o
		}
	}
	if next == nil {
		return nil, ErrQueueEmpty
	}
	next.setSlot(kind, workerID)
	next.StatusVersion++
	next.UpdatedAt = at
	s.appendLocked([]Event{{
		OrderID:   next.ID,
		ActorID:   &workerID,
		Type:      claimedEvent(kind),
		Payload:   map[string]any{"worker_id": int64(workerID), "location_id": int64(locationID)},
		CreatedAt: at,
	}})
	cp := *next
	return &cp, nil
}

// appendLocked stores payloads the way they come back from jsonb.
func (s *MemoryStore) appendLocked(evs []Event) {
	for i := range evs {
		s.nextEvent++
		evs[i].ID = s.nextEvent
		evs[i].Payload = normalizePayload(evs[i].Payload)
		s.events = append(s.events, evs[i])
	}
}

func normalizePayload(p map[string]any) map[string]any {
	out := map[string]any{}
	raw, err := json.Marshal(p)
	if err != nil {
		return p
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return p
	}
	return out
}
