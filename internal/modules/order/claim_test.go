package order

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

func (f *fixture) inProgress(customer *users.User, pickup string) *Order {
	f.t.Helper()
	o := f.online(customer, pickup)
	got, err := f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Status: "in_progress"})
	require.NoError(f.t, err)
	return got
}

func TestClaimNextTakesOldestAtOwnLocation(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	f.location("Westlands")
	washer := f.user(users.RoleWasher, &juja, 0)
	customer := f.user(users.RoleCustomer, nil, 0)

	first := f.inProgress(customer, "Juja")
	f.inProgress(customer, "Westlands")
	second := f.inProgress(customer, "Juja")

	got, err := f.svc.ClaimNext(f.ctx, washer, users.KindWasher)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, washer.ID, *got.WasherID)
	assert.Equal(t, StatusInProgress, got.Status)

	got, err = f.svc.ClaimNext(f.ctx, washer, users.KindWasher)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = f.svc.ClaimNext(f.ctx, washer, users.KindWasher)
	assert.ErrorIs(t, err, ErrQueueEmpty)

	claims := f.events(first.ID, EventClaimedWasher)
	require.Len(t, claims, 1)
	assert.Equal(t, washer.ID, *claims[0].ActorID)
}

func TestClaimNextRejections(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	washer := f.user(users.RoleWasher, &juja, 0)
	folder := f.user(users.RoleFolder, &juja, 0)
	homeless := f.user(users.RoleWasher, nil, 0)

	_, err := f.svc.ClaimNext(f.ctx, washer, users.KindRider)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = f.svc.ClaimNext(f.ctx, folder, users.KindWasher)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.ClaimNext(f.ctx, homeless, users.KindWasher)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestFolderClaimsWashedOrders(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	folder := f.user(users.RoleFolder, &juja, 0)
	customer := f.user(users.RoleCustomer, nil, 0)
	o := f.inProgress(customer, "Juja")

	_, err := f.svc.ClaimNext(f.ctx, folder, users.KindFolder)
	assert.ErrorIs(t, err, ErrQueueEmpty)

	_, err = f.svc.UpdateStatus(f.ctx, UpdateCommand{OrderID: o.ID, Status: "washed"})
	require.NoError(t, err)

	queue, err := f.svc.ListForWorker(f.ctx, folder)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	got, err := f.svc.ClaimNext(f.ctx, folder, users.KindFolder)
	require.NoError(t, err)
	assert.Equal(t, folder.ID, *got.FolderID)

	queue, err = f.svc.ListForWorker(f.ctx, folder)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestConcurrentClaimsNeverShareAnOrder(t *testing.T) {
	f := newFixture(t)
	juja := f.location("Juja")
	customer := f.user(users.RoleCustomer, nil, 0)
	const orders, washers = 5, 12
	for i := 0; i < orders; i++ {
		f.inProgress(customer, "Juja")
	}
	crew := make([]*users.User, washers)
	for i := range crew {
		crew[i] = f.user(users.RoleWasher, &juja, 0)
	}

	var (
		mu      sync.Mutex
		claimed = map[types.ID]types.ID{}
		empty   int
		wg      sync.WaitGroup
	)
	for _, w := range crew {
		wg.Add(1)
		go func(w *users.User) {
			defer wg.Done()
			o, err := f.svc.ClaimNext(f.ctx, w, users.KindWasher)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrQueueEmpty):
				empty++
			case err == nil:
				_, dup := claimed[o.ID]
				assert.False(t, dup, "order %d claimed twice", o.ID)
				claimed[o.ID] = w.ID
			default:
				t.Errorf("claim: %v", err)
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, claimed, orders)
	assert.Equal(t, washers-orders, empty)
}
