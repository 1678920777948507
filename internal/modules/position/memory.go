// README: In-memory position store used by service and handler tests.
package position

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	fixes  []Fix
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, f *Fix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	f.ID = s.nextID
	f.CreatedAt = time.Now()
	s.fixes = append(s.fixes, *f)
	return nil
}

func (s *MemoryStore) Latest(_ context.Context) ([]Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	newest := map[types.ID]Fix{}
	for _, f := range s.fixes {
		if cur, ok := newest[f.RiderID]; !ok || newer(f, cur) {
			newest[f.RiderID] = f
		}
	}
	out := make([]Fix, 0, len(newest))
	for _, f := range newest {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out, nil
}

func (s *MemoryStore) History(_ context.Context, riderID *types.ID, limit int) ([]Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Fix
	for _, f := range s.fixes {
		if riderID == nil || f.RiderID == *riderID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newer(a, b Fix) bool {
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.After(b.RecordedAt)
	}
	return a.ID > b.ID
}
