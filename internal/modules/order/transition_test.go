package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/notify"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
)

func intPtr(v int) *int { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }
func floatPtr(v float64) *float64 { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func TestWashReadyDeliverLifecycle(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	rider := f.user(users.RoleRider, &juja, 0)
	washer := f.user(users.RoleWasher, &juja, 0)
	folder := f.user(users.RoleFolder, &juja, 0)
	customer := f.user(users.RoleCustomer, nil, 0)

	o, err := f.svc.Create(f.ctx, CreateCommand{Actor: customer, PickupAddress: "Juja", WeightKg: floatPtr(2)})
	require.NoError(t, err)
	require.Equal(t, rider.ID, *o.RiderID)

	washed, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: washer, Status: "washed"})
	require.NoError(t, err)
	require.NotNil(t, washed.WashedAt)
	assert.Equal(t, washer.ID, *washed.WasherID)
	folderMsgs := f.notes.to(folder.ID)
	require.Len(t, folderMsgs, 1)
	assert.Equal(t, notify.KindOrderUpdate, folderMsgs[0].Kind)
	assert.True(t, folderMsgs[0].SMS)

	ready, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: folder, Status: "ready"})
	require.NoError(t, err)
	require.NotNil(t, ready.FoldedAt)
	assert.Equal(t, folder.ID, *ready.FolderID)

	var riderReady, customerReady []notify.Message
	for _, m := range f.notes.ofKind(notify.KindOrderReady) {
		switch m.Recipient.ID {
		case rider.ID:
			riderReady = append(riderReady, m)
		case customer.ID:
			customerReady = append(customerReady, m)
		}
	}
	assert.Len(t, riderReady, 1)
	require.Len(t, customerReady, 1)
	assert.Contains(t, customerReady[0].Text, "KSh 300")

	delivered, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: rider, Status: "delivered"})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.WashedAt)
	assert.NotNil(t, delivered.FoldedAt)
	assert.NotNil(t, delivered.DeliveredAt)

	confirmations := f.notes.ofKind(notify.KindOrderDelivered)
	require.Len(t, confirmations, 1)
	assert.Nil(t, confirmations[0].Recipient)
	assert.True(t, confirmations[0].SMS)
	assert.Equal(t, customer.Phone, confirmations[0].Phone)

	changes := f.events(o.ID, EventStatusChanged)
	require.Len(t, changes, 3)
	want := [][2]string{{"requested", "washed"}, {"washed", "ready"}, {"ready", "delivered"}}
	for i, w := range want {
		assert.Equal(t, w[0], changes[i].Payload["old"])
		assert.Equal(t, w[1], changes[i].Payload["new"])
	}
	assert.Len(t, f.events(o.ID, EventAssignedRider), 1)

	for _, id := range []*users.User{rider, washer, folder} {
		u, err := f.staff.Get(f.ctx, id.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, u.CompletedJobs, "completed jobs for %s", u.Username)
	}
}

func TestUpdateWithoutChangesIsNoop(t *testing.T) {
	f := newFixture(t)
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()
	o := f.online(customer, "Juja")
	before := len(f.events(o.ID, ""))
	sent := f.notes.count()

	got, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{
		OrderID:     o.ID,
		Actor:       root,
		Status:      "requested",
		Quantity:    intPtr(o.Quantity),
		Description: strPtr(o.Description),
	})
	require.NoError(t, err)

	assert.Equal(t, o.StatusVersion, got.StatusVersion)
	assert.Len(t, f.events(o.ID, ""), before)
	assert.Equal(t, sent, f.notes.count())
}

func TestUpdateDetailsRecordsOnlyChangedFields(t *testing.T) {
	f := newFixture(t)
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()
	o := f.online(customer, "Juja")

	got, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{
		OrderID:     o.ID,
		Actor:       root,
		Quantity:    intPtr(3),
		Description: strPtr(o.Description),
		WeightKg:    floatPtr(4.5),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, StatusRequested, got.Status)

	assert.Empty(t, f.events(o.ID, EventStatusChanged))
	details := f.events(o.ID, EventDetailsUpdated)
	require.Len(t, details, 1)
	assert.Equal(t, root.ID, *details[0].ActorID)
	assert.Equal(t, map[string]any{
		"quantity":  map[string]any{"old": float64(1), "new": float64(3)},
		"weight_kg": map[string]any{"old": nil, "new": 4.5},
	}, details[0].Payload)
}

func TestUpdateStatusAndDetailsEmitSeparateEvents(t *testing.T) {
	f := newFixture(t)
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()
	o := f.online(customer, "Juja")

	_, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{
		OrderID:     o.ID,
		Actor:       root,
		Status:      "picked",
		ActualPrice: int64Ptr(120000),
	})
	require.NoError(t, err)

	changes := f.events(o.ID, EventStatusChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, "picked", changes[0].Payload["new"])
	details := f.events(o.ID, EventDetailsUpdated)
	require.Len(t, details, 1)
	assert.Equal(t, map[string]any{"old": nil, "new": float64(120000)}, details[0].Payload["actual_price"])
}

func TestDeliveredAtOnlyWithDeliveredStatus(t *testing.T) {
	f := newFixture(t)
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()
	o := f.online(customer, "Juja")
	at := time.Date(2026, 3, 1, 16, 30, 0, 0, time.UTC)

	_, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: root, Status: "ready", DeliveredAt: &at})
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: root, DeliveredAt: &at})
	assert.ErrorIs(t, err, ErrBadRequest)

	got, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: root, Status: "delivered", DeliveredAt: timePtr(at)})
	require.NoError(t, err)
	require.NotNil(t, got.DeliveredAt)
	assert.True(t, at.Equal(*got.DeliveredAt))

	details := f.events(o.ID, EventDetailsUpdated)
	require.Len(t, details, 1)
	assert.Equal(t, map[string]any{"old": nil, "new": "2026-03-01T16:30:00Z"}, details[0].Payload["delivered_at"])
}

func TestDeliveredStampsNowWhenNotSupplied(t *testing.T) {
	f := newFixture(t)
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()
	o := f.online(customer, "Juja")
	require.Nil(t, o.DeliveredAt)

	got, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: root, Status: "picked"})
	require.NoError(t, err)
	assert.Nil(t, got.DeliveredAt)

	got, err = f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: root, Status: "delivered"})
	require.NoError(t, err)
	assert.NotNil(t, got.DeliveredAt)
	assert.Empty(t, f.events(o.ID, EventDetailsUpdated))
}

func TestUpdateRejectsUnknownStatusAndMissingOrder(t *testing.T) {
	f := newFixture(t)
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()
	o := f.online(customer, "Juja")

	_, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: root, Status: "lost_in_dryer"})
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Len(t, f.events(o.ID, ""), 1)

	_, err = f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: 404, Actor: root, Status: "ready"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePermissions(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	westlands := f.location("Westlands")
	owner := f.user(users.RoleCustomer, nil, 0)
	stranger := f.user(users.RoleCustomer, nil, 0)
	jujaClerk := f.user(users.RoleStaff, &juja, 0)
	westClerk := f.user(users.RoleStaff, &westlands, 0)
	floating := f.user(users.RoleWasher, nil, 0)
	scopedAdmin := f.user(users.RoleAdmin, &westlands, 0)
	root := f.superuser()

	cases := []struct {
		name  string
		actor *users.User
		cmd   UpdateCommand
		want  error
	}{
		{"staff at another location", westClerk, UpdateCommand{Status: "picked"}, ErrPermissionDenied},
		{"admin scoped to another location", scopedAdmin, UpdateCommand{Status: "picked"}, ErrPermissionDenied},
		{"staff without location", floating, UpdateCommand{Status: "picked"}, ErrPermissionDenied},
		{"customer edits details", owner, UpdateCommand{Description: strPtr("extra starch")}, ErrPermissionDenied},
		{"customer advances status", owner, UpdateCommand{Status: "washed"}, ErrPermissionDenied},
		{"other customer cancels", stranger, UpdateCommand{Status: "cancelled"}, ErrPermissionDenied},
		{"staff at order location", jujaClerk, UpdateCommand{Status: "picked"}, nil},
		{"superuser", root, UpdateCommand{Status: "in_progress"}, nil},
		{"system", nil, UpdateCommand{Status: "picked"}, nil},
		{"owner cancels", owner, UpdateCommand{Status: "cancelled"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := f.online(owner, "Juja")
			cmd := tc.cmd
			cmd.OrderID = o.ID
			cmd.Actor = tc.actor
			_, err := f.svc.UpdateStatus(f.ctx, cmd)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.Len(t, f.events(o.ID, ""), 1, "no events on a denied update")
		})
	}
}

func TestAssignedWorkerMayUpdateOutsideLocation(t *testing.T) {
	f := newFixture(t)
	f.location("Juja")
	westlands := f.location("Westlands")
	rider := f.user(users.RoleRider, &westlands, 0)
	customer := f.user(users.RoleCustomer, nil, 0)

	o := f.online(customer, "Juja")
	require.Equal(t, rider.ID, *o.RiderID)

	got, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: rider, Status: "picked"})
	require.NoError(t, err)
	assert.Equal(t, StatusPicked, got.Status)
}

func TestReadyAssignsRiderWhenMissing(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()
	o := f.online(customer, "Juja")
	require.Nil(t, o.RiderID)
	rider := f.user(users.RoleRider, &juja, 0)

	got, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: root, Status: "ready"})
	require.NoError(t, err)

	require.NotNil(t, got.RiderID)
	assert.Equal(t, rider.ID, *got.RiderID)
	assigned := f.events(o.ID, EventAssignedRider)
	require.Len(t, assigned, 1)
	assert.Equal(t, root.ID, *assigned[0].ActorID)
	msgs := f.notes.to(rider.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.KindOrderReady, msgs[0].Kind)
	assert.Nil(t, got.FoldedAt, "only a folder stamps folded_at")
}

func TestReadyWithExistingRiderAddsNoAssignment(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	rider := f.user(users.RoleRider, &juja, 0)
	f.user(users.RoleRider, &juja, 0)
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()
	o := f.online(customer, "Juja")

	got, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: root, Status: "ready"})
	require.NoError(t, err)

	assert.Equal(t, rider.ID, *got.RiderID)
	assert.Len(t, f.events(o.ID, EventAssignedRider), 1)
}

func TestManualOrderHeldUntilDeliveryAddress(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	clerk := f.user(users.RoleStaff, &juja, 0)
	o, err := f.svc.Create(f.ctx, CreateCommand{Type: TypeManual, Actor: clerk, CustomerPhone: "0712345678", LocationID: &juja})
	require.NoError(t, err)
	require.Equal(t, StatusPendingAssignment, o.Status)
	f.user(users.RoleRider, &juja, 0)

	got, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: clerk, Status: "ready"})
	require.NoError(t, err)

	assert.Nil(t, got.RiderID)
	assert.Empty(t, f.events(o.ID, EventAssignedRider))

	var sms []notify.Message
	for _, m := range f.notes.ofKind(notify.KindOrderReady) {
		if m.Recipient == nil {
			sms = append(sms, m)
		}
	}
	require.Len(t, sms, 1, "walk-in customer still hears the order is ready")
	assert.Equal(t, "0712345678", sms[0].Phone)

	got, err = f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: clerk, DropoffAddress: strPtr("Juja, House 4")})
	require.NoError(t, err)
	assert.False(t, got.AwaitingDeliveryAddress())
	assert.Nil(t, got.RiderID)
}

func TestWashedKeepsClaimedWasher(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	claimer := f.user(users.RoleWasher, &juja, 0)
	other := f.user(users.RoleWasher, &juja, 0)
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()
	o := f.online(customer, "Juja")
	_, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: root, Status: "in_progress"})
	require.NoError(t, err)
	_, err = f.svc.ClaimNext(f.ctx, claimer, users.KindWasher)
	require.NoError(t, err)

	got, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: other, Status: "washed"})
	require.NoError(t, err)

	assert.Equal(t, claimer.ID, *got.WasherID)
	u, err := f.staff.Get(f.ctx, claimer.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, u.CompletedJobs)
	u, err = f.staff.Get(f.ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.CompletedJobs)
}

func TestReadyByOtherFolderStampsFoldedAt(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	claimer := f.user(users.RoleFolder, &juja, 0)
	other := f.user(users.RoleFolder, &juja, 0)
	customer := f.user(users.RoleCustomer, nil, 0)
	root := f.superuser()
	o := f.online(customer, "Juja")
	_, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: root, Status: "washed"})
	require.NoError(t, err)
	_, err = f.svc.ClaimNext(f.ctx, claimer, users.KindFolder)
	require.NoError(t, err)

	got, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Actor: other, Status: "ready"})
	require.NoError(t, err)

	require.NotNil(t, got.FolderID)
	assert.Equal(t, claimer.ID, *got.FolderID)
	assert.NotNil(t, got.FoldedAt)
	u, err := f.staff.Get(f.ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.CompletedJobs)
	u, err = f.staff.Get(f.ctx, claimer.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, u.CompletedJobs)
}

func TestApplyTransitionDetectsStaleVersion(t *testing.T) {
	f := newFixture(t)
	customer := f.user(users.RoleCustomer, nil, 0)
	o := f.online(customer, "Juja")

	first := *o
	first.Status = StatusPicked
	require.NoError(t, f.orders.ApplyTransition(f.ctx, Transition{Next: &first, FromVersion: o.StatusVersion}))

	second := *o
	second.Status = StatusCancelled
	err := f.orders.ApplyTransition(f.ctx, Transition{Next: &second, FromVersion: o.StatusVersion})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := f.orders.Get(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPicked, got.Status)
}
