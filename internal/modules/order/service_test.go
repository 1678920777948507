package order

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/location"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/notify"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/pricing"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingNotifier) Dispatch(_ context.Context, m notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recordingNotifier) to(id types.ID) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Message
	for _, m := range r.msgs {
		if m.Recipient != nil && m.Recipient.ID == id {
			out = append(out, m)
		}
	}
	return out
}

func (r *recordingNotifier) ofKind(k notify.Kind) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Message
	for _, m := range r.msgs {
		if m.Kind == k {
			out = append(out, m)
		}
	}
	return out
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	svc    *Service
	orders *MemoryStore
	staff  *users.MemoryStore
	places *location.MemoryStore
	notes  *recordingNotifier
	clock  time.Time
	seq    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		staff:  users.NewMemoryStore(),
		places: location.NewMemoryStore(),
		notes:  &recordingNotifier{},
		clock:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	f.orders = NewMemoryStore(f.staff)
	f.svc = NewService(Deps{
		Repo:      f.orders,
		Users:     f.staff,
		Locations: location.NewService(f.places, nil, nil, nil),
		Pricing:   pricing.NewService(nil, 15000, types.DefaultCurrency),
		Notifier:  f.notes,
		Now: func() time.Time {
			f.clock = f.clock.Add(time.Second)
			return f.clock
		},
	})
	return f
}

func (f *fixture) location(name string) types.ID {
	f.t.Helper()
	l := &location.Location{Name: name, IsActive: true}
	require.NoError(f.t, f.places.Create(f.ctx, l))
	return l.ID
}

func (f *fixture) user(role users.Role, loc *types.ID, jobs int) *users.User {
	f.t.Helper()
	f.seq++
	u := &users.User{
		Username:          fmt.Sprintf("%s-%d", role, f.seq),
		Phone:             fmt.Sprintf("07%08d", f.seq),
		Role:              role,
		ServiceLocationID: loc,
		IsActive:          true,
		CompletedJobs:     jobs,
	}
	require.NoError(f.t, f.staff.Create(f.ctx, u))
	return u
}

func (f *fixture) superuser() *users.User {
	f.t.Helper()
	f.seq++
	u := &users.User{
		Username:    fmt.Sprintf("root-%d", f.seq),
		Phone:       fmt.Sprintf("07%08d", f.seq),
		Role:        users.RoleAdmin,
		IsActive:    true,
		IsStaff:     true,
		IsSuperuser: true,
	}
	require.NoError(f.t, f.staff.Create(f.ctx, u))
	return u
}

func (f *fixture) events(id types.ID, typ EventType) []Event {
	f.t.Helper()
	evs, err := f.orders.Events(f.ctx, id)
	require.NoError(f.t, err)
	var out []Event
	for _, e := range evs {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (f *fixture) online(customer *users.User, pickup string) *Order {
	f.t.Helper()
	o, err := f.svc.Create(f.ctx, CreateCommand{Actor: customer, PickupAddress: pickup, Service: "wash_fold"})
	require.NoError(f.t, err)
	return o
}

func TestCreateOnlineResolvesLocationFromPickupAndAssignsRider(t *testing.T) {
	f := newFixture(t)
	f.location("Westlands")
	juja := f.location("Juja")
	rider := f.user(users.RoleRider, &juja, 0)
	customer := f.user(users.RoleCustomer, nil, 0)

	o := f.online(customer, "Gate B, Juja Farm Road")

	require.NotNil(t, o.LocationID)
	assert.Equal(t, juja, *o.LocationID)
	require.NotNil(t, o.RiderID)
	assert.Equal(t, rider.ID, *o.RiderID)
	assert.Equal(t, StatusRequested, o.Status)
	assert.Equal(t, TypeOnline, o.Type)
	assert.Equal(t, DropOffDelivery, o.DropOffType)
	assert.Regexp(t, `^WW-[0-9A-F]{6}$`, o.Code)
	assert.Equal(t, customer.ID, *o.CustomerID)

	evs := f.events(o.ID, "")
	require.Len(t, evs, 2)
	assert.Equal(t, EventCreated, evs[0].Type)
	assert.Equal(t, customer.ID, *evs[0].ActorID)
	assert.Equal(t, EventAssignedRider, evs[1].Type)
	assert.Nil(t, evs[1].ActorID)
	assert.Equal(t, false, evs[1].Payload["fallback"])

	assigned := f.notes.to(rider.ID)
	require.Len(t, assigned, 1)
	assert.Equal(t, notify.KindOrderAssigned, assigned[0].Kind)
	assert.True(t, assigned[0].SMS)
	assert.Len(t, f.notes.to(customer.ID), 1)
}

func TestCreatePicksLeastBusyRiderAtLocation(t *testing.T) {
	f := newFixture(t)
	westlands := f.location("Westlands")
	kilimani := f.location("Kilimani")
	f.user(users.RoleRider, &westlands, 3)
	idle := f.user(users.RoleRider, &westlands, 1)
	f.user(users.RoleRider, &kilimani, 0)
	customer := f.user(users.RoleCustomer, nil, 0)

	o := f.online(customer, "Sarit Centre, Westlands")

	require.NotNil(t, o.RiderID)
	assert.Equal(t, idle.ID, *o.RiderID)
}

func TestCreateWithoutActiveLocations(t *testing.T) {
	f := newFixture(t)
	f.user(users.RoleRider, nil, 0)
	customer := f.user(users.RoleCustomer, nil, 0)

	o := f.online(customer, "Juja")

	assert.Nil(t, o.LocationID)
	assert.Nil(t, o.RiderID)
	assert.Equal(t, StatusRequested, o.Status)
	assert.Len(t, f.events(o.ID, EventAssignedRider), 0)
}

func TestCreateFallsBackToRiderElsewhere(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	westlands := f.location("Westlands")
	far := f.user(users.RoleRider, &westlands, 5)
	customer := f.user(users.RoleCustomer, nil, 0)

	o := f.online(customer, "Juja town")

	require.NotNil(t, o.RiderID)
	assert.Equal(t, far.ID, *o.RiderID)
	assert.Equal(t, juja, *o.LocationID)
	evs := f.events(o.ID, EventAssignedRider)
	require.Len(t, evs, 1)
	assert.Equal(t, true, evs[0].Payload["fallback"])
}

func TestCreateUsesCustomerServiceLocation(t *testing.T) {
	f := newFixture(t)
	f.location("Westlands")
	kilimani := f.location("Kilimani")
	customer := f.user(users.RoleCustomer, &kilimani, 0)

	o := f.online(customer, "somewhere unknown")

	require.NotNil(t, o.LocationID)
	assert.Equal(t, kilimani, *o.LocationID)
}

func TestCreateManualIsPendingWithoutRider(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	clerk := f.user(users.RoleStaff, &juja, 0)

	o, err := f.svc.Create(f.ctx, CreateCommand{
		Type:          TypeManual,
		Actor:         clerk,
		CustomerName:  "Wanjiru",
		CustomerPhone: "0712 345 678",
		LocationID:    &juja,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPendingAssignment, o.Status)
	assert.Equal(t, UnsetDropoff, o.DropoffAddress)
	assert.Equal(t, DropOffWalkIn, o.DropOffType)
	assert.Equal(t, clerk.ID, *o.CreatedBy)
	assert.Nil(t, o.CustomerID)
	assert.Nil(t, o.RiderID)
	assert.True(t, o.AwaitingDeliveryAddress())
}

func TestCreateManualPromotedWhenRiderFound(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	clerk := f.user(users.RoleStaff, &juja, 0)
	rider := f.user(users.RoleRider, &juja, 0)

	o, err := f.svc.Create(f.ctx, CreateCommand{
		Type:         TypeManual,
		Actor:        clerk,
		CustomerName: "Otieno",
		LocationID:   &juja,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusRequested, o.Status)
	assert.Equal(t, rider.ID, *o.RiderID)
	changed := f.events(o.ID, EventStatusChanged)
	require.Len(t, changed, 1)
	assert.Nil(t, changed[0].ActorID)
	assert.Equal(t, "pending_assignment", changed[0].Payload["old"])
	assert.Equal(t, "requested", changed[0].Payload["new"])
}

func TestCreateNotifiesAdmins(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	admin := f.superuser()
	customer := f.user(users.RoleCustomer, nil, 0)

	o := f.online(customer, "Juja")

	inApp := f.notes.to(admin.ID)
	require.Len(t, inApp, 1)
	assert.Equal(t, notify.KindNewOrder, inApp[0].Kind)
	assert.Contains(t, inApp[0].Text, o.Code)

	var sms []notify.Message
	for _, m := range f.notes.ofKind(notify.KindNewOrder) {
		if m.Recipient == nil && m.SMS {
			sms = append(sms, m)
		}
	}
	require.Len(t, sms, 1)
	assert.Equal(t, admin.Phone, sms[0].Phone)
	assert.Contains(t, sms[0].Text, "New Order Alert!")
	assert.Equal(t, juja, *o.LocationID)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	customer := f.user(users.RoleCustomer, nil, 0)

	cases := []struct {
		name string
		cmd  CreateCommand
		want error
	}{
		{"no actor", CreateCommand{PickupAddress: "Juja"}, ErrPermissionDenied},
		{"missing pickup", CreateCommand{Actor: customer}, ErrBadRequest},
		{"urgency out of range", CreateCommand{Actor: customer, PickupAddress: "Juja", Urgency: 9}, ErrBadRequest},
		{"unknown type", CreateCommand{Actor: customer, Type: "express", PickupAddress: "Juja"}, ErrBadRequest},
		{"customer opens manual order", CreateCommand{Actor: customer, Type: TypeManual, CustomerName: "x"}, ErrPermissionDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, tc.cmd)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateEstimatesPriceFromWeight(t *testing.T) {
	f := newFixture(t)
	customer := f.user(users.RoleCustomer, nil, 0)
	w := 2.0

	o, err := f.svc.Create(f.ctx, CreateCommand{Actor: customer, PickupAddress: "Juja", WeightKg: &w})
	require.NoError(t, err)

	require.NotNil(t, o.Price)
	assert.Equal(t, int64(30000), *o.Price)
	assert.Equal(t, types.DefaultCurrency, o.Currency)
}

func TestListForWorker(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	rider := f.user(users.RoleRider, &juja, 0)
	washer := f.user(users.RoleWasher, &juja, 0)
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()

	first := f.online(customer, "Juja")
	second := f.online(customer, "Juja")
	_, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: second.ID, Actor: root, Status: "in_progress"})
	require.NoError(t, err)

	mine, err := f.svc.ListForWorker(f.ctx, rider)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	queue, err := f.svc.ListForWorker(f.ctx, washer)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, second.ID, queue[0].ID)

	own, err := f.svc.ListForWorker(f.ctx, customer)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, first.ID, own[0].ID)
}

func TestListForLocationScopesStaff(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	westlands := f.location("Westlands")
	clerk := f.user(users.RoleStaff, &juja, 0)
	customer := f.user(users.RoleCustomer, nil, 0)
	f.online(customer, "Juja")
	f.online(customer, "Westlands")

	got, err := f.svc.ListForLocation(f.ctx, clerk, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, juja, *got[0].LocationID)

	_, err = f.svc.ListForLocation(f.ctx, clerk, &westlands)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.ListForLocation(f.ctx, customer, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	all, err := f.svc.ListForLocation(f.ctx, f.superuser(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListUnassigned(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()
	f.online(customer, "Juja")
	f.user(users.RoleRider, &juja, 0)
	f.online(customer, "Juja")

	got, err := f.svc.ListUnassigned(f.ctx, root, "requested")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].RiderID)

	_, err = f.svc.ListUnassigned(f.ctx, root, "lost")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestGetHidesOtherCustomersOrders(t *testing.T) {
	f := newFixture(t)
	owner := f.user(users.RoleCustomer, nil, 0)
	other := f.user(users.RoleCustomer, nil, 0)
	o := f.online(owner, "Juja")

	_, err := f.svc.Get(f.ctx, other, o.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	got, err := f.svc.Get(f.ctx, owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Code, got.Code)

	_, err = f.svc.Get(f.ctx, owner, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInspect(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	rider := f.user(users.RoleRider, &juja, 0)
	customer := f.user(users.RoleCustomer, nil, 0)
	o := f.online(customer, "Juja")

	in, err := f.svc.Inspect(f.ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, in.Location)
	assert.Equal(t, "Juja", in.Location.Name)
	require.NotNil(t, in.Rider)
	assert.Equal(t, rider.ID, in.Rider.ID)
	assert.Nil(t, in.Washer)
	assert.Len(t, in.Events, 2)
}

func TestInspectRefAcceptsIDOrCode(t *testing.T) {
	f := newFixture(t)
	f.location("Juja")
	customer := f.user(users.RoleCustomer, nil, 0)
	o := f.online(customer, "Juja")

	byCode, err := f.svc.InspectRef(f.ctx, " "+strings.ToLower(o.Code))
	require.NoError(t, err)
	assert.Equal(t, o.ID, byCode.Order.ID)
	assert.NotEmpty(t, byCode.Events)

	byID, err := f.svc.InspectRef(f.ctx, o.ID.String())
	require.NoError(t, err)
	assert.Equal(t, o.Code, byID.Order.Code)

	_, err = f.svc.InspectRef(f.ctx, "WW-000000")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.InspectRef(f.ctx, "order-7")
	assert.ErrorIs(t, err, ErrBadRequest)
}
