// README: In-memory user store used by service and handler tests.
package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

type MemoryStore struct {
	mu     sync.Mutex
	nextID types.ID
	byID   map[types.ID]*User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[types.ID]*User)}
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u.ID = s.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetByFirebaseUID(_ context.Context, uid string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.FirebaseUID != nil && *u.FirebaseUID == uid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListActive(_ context.Context, kind Kind, locationID *types.ID) ([]User, error) {
	return s.Candidates(kind, locationID), nil
}

func (s *MemoryStore) ListAdmins(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []User
	for _, u := range s.byID {
		if u.IsActive && u.IsAdmin() {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Candidates mirrors the staff pool query: active, eligible, least busy first.
func (s *MemoryStore) Candidates(kind Kind, locationID *types.ID) []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []User
	for _, u := range s.byID {
		if !u.CanWork(kind) {
			continue
		}
		if locationID != nil && !types.SameID(u.ServiceLocationID, locationID) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedJobs != out[j].CompletedJobs {
			return out[i].CompletedJobs < out[j].CompletedJobs
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *MemoryStore) BumpCompletedJobs(ids []types.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if u, ok := s.byID[id]; ok {
			u.CompletedJobs++
		}
	}
}
