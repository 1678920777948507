// README: Position service: riders report fixes; staff and customers read them.
package position

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
	defaultRadiusKm     = 5.0
	// Riders silent for longer than this are left out of nearby searches.
	staleAfter = 15 * time.Minute
)

type Service struct {
	repo Repository
	geo  GeoIndex
	log  *zap.Logger
	now  func() time.Time
}

// NewService wires the tracker. geo may be nil; nearby searches then scan the latest fixes.
func NewService(repo Repository, geo GeoIndex, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, geo: geo, log: log, now: time.Now}
}

type Update struct {
	Lat        float64
	Lng        float64
	Accuracy   *float64
	Heading    *float64
	Speed      *float64
	RecordedAt *time.Time
}

// Record stores a fix for the calling rider.
func (s *Service) Record(ctx context.Context, actor *users.User, u Update) (*Fix, error) {
	if actor == nil || !actor.CanWork(users.KindRider) {
		return nil, ErrPermissionDenied
	}
	if err := validate(u); err != nil {
		return nil, err
	}
	f := &Fix{
		RiderID:    actor.ID,
		Lat:        u.Lat,
		Lng:        u.Lng,
		Accuracy:   u.Accuracy,
		Heading:    u.Heading,
		Speed:      u.Speed,
		RecordedAt: s.now(),
	}
	if u.RecordedAt != nil {
		f.RecordedAt = *u.RecordedAt
	}
	if err := s.repo.Append(ctx, f); err != nil {
		return nil, err
	}
	if s.geo != nil {
		if err := s.geo.Set(ctx, f.RiderID, f.Lat, f.Lng); err != nil {
			s.log.Warn("geo index update failed", zap.Int64("rider_id", int64(f.RiderID)), zap.Error(err))
		}
	}
	return f, nil
}

func validate(u Update) error {
	switch {
	case u.Lat < -90 || u.Lat > 90:
		return fmt.Errorf("%w: latitude out of range", ErrBadRequest)
	case u.Lng < -180 || u.Lng > 180:
		return fmt.Errorf("%w: longitude out of range", ErrBadRequest)
	case u.Accuracy != nil && *u.Accuracy < 0:
		return fmt.Errorf("%w: accuracy must not be negative", ErrBadRequest)
	case u.Heading != nil && (*u.Heading < 0 || *u.Heading >= 360):
		return fmt.Errorf("%w: heading must be in [0, 360)", ErrBadRequest)
	case u.Speed != nil && *u.Speed < 0:
		return fmt.Errorf("%w: speed must not be negative", ErrBadRequest)
	}
	return nil
}

// History lists fixes newest first. Staff see every rider, anyone else only their own.
func (s *Service) History(ctx context.Context, actor *users.User, limit int) ([]Fix, error) {
	if actor == nil {
		return nil, ErrPermissionDenied
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	var rider *types.ID
	if !actor.IsStaff && !actor.IsAdmin() {
		rider = types.IDPtr(actor.ID)
	}
	return s.repo.History(ctx, rider, limit)
}

// Latest is each rider's newest fix, newest first.
func (s *Service) Latest(ctx context.Context) ([]Fix, error) {
	return s.repo.Latest(ctx)
}

// Nearby lists riders whose latest fix is within radiusKm of the point, closest first.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]Nearby, error) {
	if err := validate(Update{Lat: lat, Lng: lng}); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = defaultRadiusKm
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	latest, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-staleAfter)
	fresh := make(map[types.ID]Fix, len(latest))
	for _, f := range latest {
		if !f.RecordedAt.Before(cutoff) {
			fresh[f.RiderID] = f
		}
	}

	if s.geo != nil {
		hits, err := s.geo.Within(ctx, lat, lng, radiusKm, limit)
		if err == nil {
			out := make([]Nearby, 0, len(hits))
			for _, h := range hits {
				if f, ok := fresh[h.RiderID]; ok {
					out = append(out, Nearby{Fix: f, DistanceKm: h.DistanceKm})
				}
			}
			return out, nil
		}
		s.log.Warn("geo search failed; scanning latest fixes", zap.Error(err))
	}

	var out []Nearby
	for _, f := range fresh {
		if d := haversineKm(lat, lng, f.Lat, f.Lng); d <= radiusKm {
			out = append(out, Nearby{Fix: f, DistanceKm: d})
		}
	}
	sortByDistance(out, func(n Nearby) float64 { return n.DistanceKm })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
