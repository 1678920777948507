// README: In-memory location store used by service and handler tests.
package location

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

type MemoryStore struct {
	mu     sync.Mutex
	nextID types.ID
	byID   map[types.ID]*Location
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[types.ID]*Location)}
}

func (s *MemoryStore) Create(_ context.Context, l *Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if strings.EqualFold(existing.Name, l.Name) {
			return ErrDuplicateName
		}
	}
	s.nextID++
	l.ID = s.nextID
	l.CreatedAt = time.Now()
	cp := *l
	s.byID[l.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, activeOnly bool) ([]Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Location
	for _, l := range s.byID {
		if activeOnly && !l.IsActive {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SetActive(_ context.Context, id types.ID, active bool) (*Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	l.IsActive = active
	cp := *l
	return &cp, nil
}
