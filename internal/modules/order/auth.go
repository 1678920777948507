package order

import (
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

// unrestricted is true for the system (nil actor), superusers and admins without a location.
func unrestricted(actor *users.User) bool {
	if actor == nil || actor.IsSuperuser {
		return true
	}
	return actor.IsAdmin() && actor.ServiceLocationID == nil
}

func staffLike(actor *users.User) bool {
	return actor.IsWorker() || actor.IsAdmin()
}

// deskStaff is office staff or an admin; workers filling a stage are not.
func deskStaff(actor *users.User) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || actor.IsStaff || actor.Role == users.RoleStaff
}

// staffScope returns the location a staff actor is confined to, nil when unrestricted.
func staffScope(actor *users.User) (*types.ID, error) {
	if unrestricted(actor) {
		return nil, nil
	}
	if !staffLike(actor) || actor.ServiceLocationID == nil {
		return nil, ErrPermissionDenied
	}
	return actor.ServiceLocationID, nil
}

func inScope(actor *users.User, o *Order) bool {
	if o.HasWorker(actor.ID) {
		return true
	}
	return actor.ServiceLocationID != nil && types.SameID(actor.ServiceLocationID, o.LocationID)
}

func canView(actor *users.User, o *Order) bool {
	switch {
	case unrestricted(actor):
		return true
	case staffLike(actor):
		return inScope(actor, o)
	}
	return types.SameID(o.CustomerID, types.IDPtr(actor.ID))
}

// authorizeUpdate: staff act inside their location or on orders they work on;
// a customer may only cancel their own order.
func authorizeUpdate(actor *users.User, o *Order, cmd UpdateCommand, target Status) error {
	switch {
	case unrestricted(actor):
		return nil
	case staffLike(actor):
		if inScope(actor, o) {
			return nil
		}
		return ErrPermissionDenied
	}
	if !types.SameID(o.CustomerID, types.IDPtr(actor.ID)) {
		return ErrPermissionDenied
	}
	if cmd.hasDetails() || (target != o.Status && target != StatusCancelled) {
		return ErrPermissionDenied
	}
	return nil
}
