// README: Order service: creation, read projections and the collaborators the workflow needs.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/metrics"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/location"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/notify"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrBadRequest       = errors.New("bad request")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("order state conflict")
	ErrDuplicateCode    = errors.New("order code already exists")
	ErrSlotTaken        = errors.New("order stage already assigned")
	ErrQueueEmpty       = errors.New("no order waiting to be claimed")
)

var tracer = otel.Tracer("github.com/xtinaharwell/wild-wash-api/internal/modules/order")

const codeAttempts = 5

// Directory looks up users and the staff pool.
type Directory interface {
	Get(ctx context.Context, id types.ID) (*users.User, error)
	ListActive(ctx context.Context, kind users.Kind, locationID *types.ID) ([]users.User, error)
	ListAdmins(ctx context.Context) ([]users.User, error)
}

type LocationResolver interface {
	Resolve(ctx context.Context, h location.Hints) (location.Resolution, error)
	Get(ctx context.Context, id types.ID) (*location.Location, error)
}

type Pricing interface {
	Estimate(ctx context.Context, service string, weightKg *float64) (types.Money, error)
	Quote(actual, estimate *types.Money, weightKg *float64) types.Money
}

// Notifier delivers best-effort messages. It never reports failure.
type Notifier interface {
	Dispatch(ctx context.Context, m notify.Message)
}

// Publisher forwards committed events downstream.
type Publisher interface {
	Publish(ctx context.Context, o *Order, evs []Event) error
}

type Deps struct {
	Repo      Repository
	Users     Directory
	Locations LocationResolver
	Pricing   Pricing
	Notifier  Notifier
	Publisher Publisher // optional
	Log       *zap.Logger
	Now       func() time.Time
}

type Service struct {
	repo      Repository
	users     Directory
	locations LocationResolver
	pricing   Pricing
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
	engine    *Engine
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	eng := &Engine{
		repo:      d.Repo,
		users:     d.Users,
		locations: d.Locations,
		notifier:  d.Notifier,
		publisher: d.Publisher,
		log:       d.Log.Named("assign"),
		now:       d.Now,
	}
	return &Service{
		repo:      d.Repo,
		users:     d.Users,
		locations: d.Locations,
		pricing:   d.Pricing,
		notifier:  d.Notifier,
		log:       d.Log,
		now:       d.Now,
		engine:    eng,
	}
}

func (s *Service) Engine() *Engine {
	return s.engine
}

type CreateCommand struct {
	Type        Type
	DropOffType DropOffType
	// Actor is the customer placing an online order or the staff member opening a manual one.
	Actor *users.User

	CustomerID    *types.ID
	CustomerName  string
	CustomerPhone string

	Service        string
	PickupAddress  string
	DropoffAddress string
	Urgency        int
	LocationID     *types.ID
	WeightKg       *float64
	Quantity       int
	Description    string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.Create")
	defer span.End()

	if err := normalizeCreate(&cmd); err != nil {
		return nil, err
	}
	customer, err := s.customerFor(ctx, cmd)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		Type:           cmd.Type,
		DropOffType:    cmd.DropOffType,
		Status:         StatusRequested,
		CustomerID:     cmd.CustomerID,
		CustomerName:   cmd.CustomerName,
		CustomerPhone:  cmd.CustomerPhone,
		Service:        cmd.Service,
		PickupAddress:  cmd.PickupAddress,
		DropoffAddress: cmd.DropoffAddress,
		Urgency:        cmd.Urgency,
		WeightKg:       cmd.WeightKg,
		Quantity:       cmd.Quantity,
		Description:    cmd.Description,
		Currency:       types.DefaultCurrency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if cmd.Type == TypeManual {
		o.Status = StatusPendingAssignment
		o.CreatedBy = types.IDPtr(cmd.Actor.ID)
	}
	if customer != nil {
		if o.CustomerName == "" {
			o.CustomerName = customer.DisplayName()
		}
		if o.CustomerPhone == "" {
			o.CustomerPhone = customer.Phone
		}
	}
	if s.pricing != nil {
		est, err := s.pricing.Estimate(ctx, o.Service, o.WeightKg)
		if err != nil {
			s.log.Debug("no price estimate", zap.String("service", o.Service), zap.Error(err))
		} else {
			o.Price = &est.Amount
			o.Currency = est.Currency
		}
	}

	res, err := s.locations.Resolve(ctx, hintsFor(cmd.LocationID, customer, o.PickupAddress))
	if err != nil {
		return nil, fmt.Errorf("resolve location: %w", err)
	}
	if res.Found() {
		o.LocationID = types.IDPtr(res.Location.ID)
	}

	created := Event{
		ActorID:   types.IDPtr(cmd.Actor.ID),
		Type:      EventCreated,
		CreatedAt: now,
	}
	for attempt := 0; ; attempt++ {
		o.Code = newCode()
		created.Payload = map[string]any{
			"code":       o.Code,
			"status":     string(o.Status),
			"order_type": string(o.Type),
		}
		err = s.repo.Create(ctx, o, created)
		if !errors.Is(err, ErrDuplicateCode) || attempt+1 >= codeAttempts {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	created.OrderID = o.ID
	metrics.OrdersCreatedTotal.WithLabelValues(string(o.Type)).Inc()
	s.log.Info("order created",
		zap.Int64("order_id", int64(o.ID)),
		zap.String("code", o.Code),
		zap.String("type", string(o.Type)),
		zap.String("location_source", string(res.Source)),
	)
	s.engine.publish(ctx, o, []Event{created})

	var rider *users.User
	if o.LocationID != nil {
		a, err := s.engine.Assign(ctx, o, users.KindRider, nil, true)
		if err != nil {
			s.log.Error("rider assignment failed", zap.Int64("order_id", int64(o.ID)), zap.Error(err))
		} else if a != nil {
			rider = &a.Worker
		}
	}

	s.notifyCreated(ctx, o, customer, rider)

	if fresh, err := s.repo.Get(ctx, o.ID); err == nil {
		return fresh, nil
	}
	return o, nil
}

func normalizeCreate(cmd *CreateCommand) error {
	if cmd.Actor == nil {
		return ErrPermissionDenied
	}
	if cmd.Type == "" {
		cmd.Type = TypeOnline
	}
	cmd.CustomerName = strings.TrimSpace(cmd.CustomerName)
	cmd.CustomerPhone = strings.TrimSpace(cmd.CustomerPhone)
	cmd.PickupAddress = strings.TrimSpace(cmd.PickupAddress)
	cmd.DropoffAddress = strings.TrimSpace(cmd.DropoffAddress)

	switch cmd.Type {
	case TypeOnline:
		cmd.CustomerID = types.IDPtr(cmd.Actor.ID)
		if cmd.DropOffType == "" {
			cmd.DropOffType = DropOffDelivery
		}
		if cmd.PickupAddress == "" {
			return fmt.Errorf("%w: pickup_address is required", ErrBadRequest)
		}
	case TypeManual:
		if !cmd.Actor.IsWorker() && !cmd.Actor.IsAdmin() {
			return ErrPermissionDenied
		}
		if cmd.CustomerID == nil && cmd.CustomerName == "" && cmd.CustomerPhone == "" {
			return fmt.Errorf("%w: customer is required", ErrBadRequest)
		}
		if cmd.DropOffType == "" {
			cmd.DropOffType = DropOffWalkIn
		}
		if cmd.DropoffAddress == "" {
			cmd.DropoffAddress = UnsetDropoff
		}
	default:
		return fmt.Errorf("%w: order_type %q", ErrBadRequest, cmd.Type)
	}

	switch cmd.DropOffType {
	case DropOffDelivery, DropOffWalkIn, DropOffPhone:
	default:
		return fmt.Errorf("%w: drop_off_type %q", ErrBadRequest, cmd.DropOffType)
	}
	if cmd.Urgency == 0 {
		cmd.Urgency = 1
	}
	if cmd.Urgency < 1 || cmd.Urgency > 5 {
		return fmt.Errorf("%w: urgency must be between 1 and 5", ErrBadRequest)
	}
	if cmd.Quantity == 0 {
		cmd.Quantity = 1
	}
	if cmd.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrBadRequest)
	}
	if cmd.WeightKg != nil && *cmd.WeightKg < 0 {
		return fmt.Errorf("%w: weight_kg must not be negative", ErrBadRequest)
	}
	return nil
}

func (s *Service) customerFor(ctx context.Context, cmd CreateCommand) (*users.User, error) {
	if cmd.Type == TypeOnline {
		return cmd.Actor, nil
	}
	if cmd.CustomerID == nil {
		return nil, nil
	}
	u, err := s.users.Get(ctx, *cmd.CustomerID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("%w: customer %d", ErrNotFound, *cmd.CustomerID)
	}
	return u, err
}

func hintsFor(locationID *types.ID, customer *users.User, pickup string) location.Hints {
	h := location.Hints{LocationID: locationID, PickupAddress: pickup}
	if customer != nil {
		h.CustomerLocationID = customer.ServiceLocationID
		h.CustomerLocation = customer.Location
	}
	return h
}

const codePrefix = "WW-"

func newCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return codePrefix + strings.ToUpper(hex[:6])
}

// Get returns the order if actor may see it.
func (s *Service) Get(ctx context.Context, actor *users.User, id types.ID) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, o) {
		return nil, ErrPermissionDenied
	}
	return o, nil
}

func (s *Service) Events(ctx context.Context, actor *users.User, id types.ID) ([]Event, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.Events(ctx, id)
}

// ListForLocation lists orders at a location. Location-scoped staff only see their own.
func (s *Service) ListForLocation(ctx context.Context, actor *users.User, locationID *types.ID) ([]Order, error) {
	scope, err := staffScope(actor)
	if err != nil {
		return nil, err
	}
	if scope != nil {
		if locationID != nil && *locationID != *scope {
			return nil, ErrPermissionDenied
		}
		locationID = scope
	}
	return s.repo.List(ctx, Filter{LocationID: locationID})
}

// ListUnassigned lists orders without a rider. An empty status means every status the sweeper looks at.
func (s *Service) ListUnassigned(ctx context.Context, actor *users.User, status string) ([]Order, error) {
	scope, err := staffScope(actor)
	if err != nil {
		return nil, err
	}
	f := Filter{LocationID: scope, Unclaimed: users.KindRider, Statuses: sweepStatuses}
	if status != "" {
		st, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		f.Statuses = []Status{st}
	}
	return s.repo.List(ctx, f)
}

// ListForWorker is the caller's own work list: riders see their deliveries, washers
// and folders the unclaimed queue at their location, customers their orders.
func (s *Service) ListForWorker(ctx context.Context, actor *users.User) ([]Order, error) {
	if actor == nil {
		return nil, ErrPermissionDenied
	}
	switch {
	case actor.CanWork(users.KindRider):
		return s.repo.List(ctx, Filter{RiderID: types.IDPtr(actor.ID), Statuses: riderStatuses})
	case actor.CanWork(users.KindWasher):
		return s.queue(ctx, actor, users.KindWasher)
	case actor.CanWork(users.KindFolder):
		return s.queue(ctx, actor, users.KindFolder)
	}
	return s.repo.List(ctx, Filter{CustomerID: types.IDPtr(actor.ID)})
}

func (s *Service) queue(ctx context.Context, actor *users.User, kind users.Kind) ([]Order, error) {
	if actor.ServiceLocationID == nil {
		s.log.Warn("worker has no service location", zap.Int64("user_id", int64(actor.ID)), zap.String("kind", string(kind)))
		return []Order{}, nil
	}
	return s.repo.List(ctx, Filter{
		LocationID: actor.ServiceLocationID,
		Statuses:   []Status{claimQueues[kind]},
		Unclaimed:  kind,
	})
}

// Inspection is everything operators look at when an order is stuck.
type Inspection struct {
	Order    *Order             `json:"order"`
	Location *location.Location `json:"location,omitempty"`
	Rider    *users.User        `json:"rider,omitempty"`
	Washer   *users.User        `json:"washer,omitempty"`
	Folder   *users.User        `json:"folder,omitempty"`
	Events   []Event            `json:"events"`
}

func (s *Service) Inspect(ctx context.Context, id types.ID) (*Inspection, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.inspect(ctx, o)
}

// InspectRef accepts either a numeric id or an order code such as "WW-1A2B3C".
func (s *Service) InspectRef(ctx context.Context, ref string) (*Inspection, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if !strings.HasPrefix(ref, codePrefix) {
		id, err := types.ParseID(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is neither an order id nor a code", ErrBadRequest, ref)
		}
		return s.Inspect(ctx, id)
	}
	o, err := s.repo.GetByCode(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.inspect(ctx, o)
}

func (s *Service) inspect(ctx context.Context, o *Order) (*Inspection, error) {
	var err error
	out := &Inspection{Order: o}
	if o.LocationID != nil {
		if l, err := s.locations.Get(ctx, *o.LocationID); err == nil {
			out.Location = l
		}
	}
	out.Rider = s.lookupUser(ctx, o.RiderID)
	out.Washer = s.lookupUser(ctx, o.WasherID)
	out.Folder = s.lookupUser(ctx, o.FolderID)
	if out.Events, err = s.repo.Events(ctx, o.ID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) lookupUser(ctx context.Context, id *types.ID) *users.User {
	if id == nil {
		return nil
	}
	u, err := s.users.Get(ctx, *id)
	if err != nil {
		s.log.Debug("user lookup failed", zap.Int64("user_id", int64(*id)), zap.Error(err))
		return nil
	}
	return u
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(context.Context, notify.Message) {}
