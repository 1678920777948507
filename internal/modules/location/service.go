// README: Location directory and the priority chain that attributes an order to a location.
package location

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/metrics"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

// Geocoder turns a free-text address into candidate locality names.
type Geocoder interface {
	Localities(ctx context.Context, address string) ([]string, error)
}

// DefaultLocationPolicy picks a location when no rule matched.
type DefaultLocationPolicy interface {
	Choose(active []Location) *Location
}

// FirstActive chooses the oldest active location.
type FirstActive struct{}

func (FirstActive) Choose(active []Location) *Location {
	if len(active) == 0 {
		return nil
	}
	first := active[0]
	for _, l := range active[1:] {
		if l.ID < first.ID {
			first = l
		}
	}
	return &first
}

// NoDefault leaves unmatched orders without a location.
type NoDefault struct{}

func (NoDefault) Choose([]Location) *Location { return nil }

type Service struct {
	repo     Repository
	geocoder Geocoder
	policy   DefaultLocationPolicy
	log      *zap.Logger
}

// NewService wires the directory. geocoder may be nil; a nil policy means FirstActive.
func NewService(repo Repository, geocoder Geocoder, policy DefaultLocationPolicy, log *zap.Logger) *Service {
	if policy == nil {
		policy = FirstActive{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, geocoder: geocoder, policy: policy, log: log}
}

type CreateCommand struct {
	Name        string
	Description string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Location, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, ErrBadRequest
	}
	l := &Location{Name: name, Description: strings.TrimSpace(cmd.Description), IsActive: true}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	s.log.Info("location created", zap.Int64("location_id", int64(l.ID)), zap.String("name", l.Name))
	return l, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Location, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Location, error) {
	return s.repo.List(ctx, activeOnly)
}

// SetActive is the only mutation allowed once a location exists.
func (s *Service) SetActive(ctx context.Context, id types.ID, active bool) (*Location, error) {
	return s.repo.SetActive(ctx, id, active)
}

// Resolve walks the rules in order: the order's own location, the customer's
// service location, the customer's free-text location, the pickup address, a
// geocoded locality of the pickup address, then the default policy. A zero
// Resolution with a nil error means no active location exists.
func (s *Service) Resolve(ctx context.Context, h Hints) (Resolution, error) {
	if l, err := s.lookup(ctx, h.LocationID); err != nil || l != nil {
		return Resolution{Location: l, Source: SourceOrder}, err
	}
	if l, err := s.lookup(ctx, h.CustomerLocationID); err != nil || l != nil {
		return Resolution{Location: l, Source: SourceCustomer}, err
	}

	active, err := s.repo.List(ctx, true)
	if err != nil {
		return Resolution{}, err
	}
	if len(active) == 0 {
		metrics.ConfigurationGapsTotal.WithLabelValues("no_active_location").Inc()
		s.log.Warn("no active locations configured; order left without a location")
		return Resolution{}, nil
	}

	if l := matchName(active, h.CustomerLocation); l != nil {
		return Resolution{Location: l, Source: SourceCustomerText}, nil
	}
	if l := matchName(active, h.PickupAddress); l != nil {
		return Resolution{Location: l, Source: SourcePickupAddress}, nil
	}
	if l := s.geocode(ctx, active, h.PickupAddress); l != nil {
		return Resolution{Location: l, Source: SourceGeocode}, nil
	}
	if l := s.policy.Choose(active); l != nil {
		s.log.Info("location defaulted", zap.Int64("location_id", int64(l.ID)))
		return Resolution{Location: l, Source: SourceDefault}, nil
	}
	return Resolution{}, nil
}

func (s *Service) lookup(ctx context.Context, id *types.ID) (*Location, error) {
	if id == nil {
		return nil, nil
	}
	l, err := s.repo.Get(ctx, *id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return l, err
}

func (s *Service) geocode(ctx context.Context, active []Location, address string) *Location {
	if s.geocoder == nil || strings.TrimSpace(address) == "" {
		return nil
	}
	names, err := s.geocoder.Localities(ctx, address)
	if err != nil {
		s.log.Warn("geocode failed", zap.String("address", address), zap.Error(err))
		return nil
	}
	for _, n := range names {
		if l := matchName(active, n); l != nil {
			return l
		}
	}
	return nil
}

// matchName returns the active location whose name occurs in text, case-insensitively.
// The longest name wins so "Juja South" beats "Juja".
func matchName(active []Location, text string) *Location {
	haystack := strings.ToLower(strings.TrimSpace(text))
	if haystack == "" {
		return nil
	}
	var best *Location
	for i := range active {
		name := strings.ToLower(active[i].Name)
		if name == "" || !strings.Contains(haystack, name) {
			continue
		}
		if best == nil || len(active[i].Name) > len(best.Name) {
			best = &active[i]
		}
	}
	if best == nil {
		return nil
	}
	cp := *best
	return &cp
}
