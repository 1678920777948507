// README: Order aggregate, status definitions and audit events.
package order

import (
	"strings"
	"time"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

type Status string

const (
	StatusRequested         Status = "requested"
	StatusPicked            Status = "picked"
	StatusInProgress        Status = "in_progress"
	StatusWashed            Status = "washed"
	StatusReady             Status = "ready"
	StatusDelivered         Status = "delivered"
	StatusCancelled         Status = "cancelled"
	StatusPendingAssignment Status = "pending_assignment"
)

var knownStatuses = map[Status]bool{
	StatusRequested:         true,
	StatusPicked:            true,
	StatusInProgress:        true,
	StatusWashed:            true,
	StatusReady:             true,
	StatusDelivered:         true,
	StatusCancelled:         true,
	StatusPendingAssignment: true,
}

// ParseStatus rejects anything outside the closed status set.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !knownStatuses[s] {
		return "", ErrBadRequest
	}
	return s, nil
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// riderStatuses are the statuses a rider sees on their own list.
var riderStatuses = []Status{StatusRequested, StatusPicked, StatusInProgress, StatusReady, StatusDelivered}

type Type string

const (
	TypeOnline Type = "online"
	TypeManual Type = "manual"
)

type DropOffType string

const (
	DropOffDelivery DropOffType = "delivery"
	DropOffWalkIn   DropOffType = "walk_in"
	DropOffPhone    DropOffType = "phone"
)

// UnsetDropoff is what staff enter on a manual order before the delivery address is known.
const UnsetDropoff = "to be assigned"

type Order struct {
	ID            types.ID    `db:"id" json:"id"`
	Code          string      `db:"code" json:"code"`
	Type          Type        `db:"order_type" json:"order_type"`
	DropOffType   DropOffType `db:"drop_off_type" json:"drop_off_type"`
	Status        Status      `db:"status" json:"status"`
	StatusVersion int         `db:"status_version" json:"status_version"`

	CustomerID    *types.ID `db:"customer_id" json:"customer_id,omitempty"`
	CustomerName  string    `db:"customer_name" json:"customer_name"`
	CustomerPhone string    `db:"customer_phone" json:"customer_phone"`
	CreatedBy     *types.ID `db:"created_by" json:"created_by,omitempty"`

	Service        string `db:"service" json:"service"`
	PickupAddress  string `db:"pickup_address" json:"pickup_address"`
	DropoffAddress string `db:"dropoff_address" json:"dropoff_address"`
	Urgency        int    `db:"urgency" json:"urgency"`

	LocationID *types.ID `db:"location_id" json:"location_id,omitempty"`
	RiderID    *types.ID `db:"rider_id" json:"rider_id,omitempty"`
	WasherID   *types.ID `db:"washer_id" json:"washer_id,omitempty"`
	FolderID   *types.ID `db:"folder_id" json:"folder_id,omitempty"`

	// Amounts in minor units of Currency.
	Price       *int64   `db:"price" json:"price,omitempty"`
	ActualPrice *int64   `db:"actual_price" json:"actual_price,omitempty"`
	Currency    string   `db:"currency" json:"currency"`
	WeightKg    *float64 `db:"weight_kg" json:"weight_kg,omitempty"`
	Quantity    int      `db:"quantity" json:"quantity"`
	Description string   `db:"description" json:"description"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	WashedAt    *time.Time `db:"washed_at" json:"washed_at,omitempty"`
	FoldedAt    *time.Time `db:"folded_at" json:"folded_at,omitempty"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
}

// AwaitingDeliveryAddress reports the manual-order gate: no rider until staff fill in a real address.
func (o *Order) AwaitingDeliveryAddress() bool {
	if o.Type != TypeManual {
		return false
	}
	addr := strings.TrimSpace(o.DropoffAddress)
	return addr == "" || strings.EqualFold(addr, UnsetDropoff)
}

// Slot returns the worker assigned to the given stage.
func (o *Order) Slot(kind users.Kind) *types.ID {
	switch kind {
	case users.KindRider:
		return o.RiderID
	case users.KindWasher:
		return o.WasherID
	case users.KindFolder:
		return o.FolderID
	}
	return nil
}

func (o *Order) setSlot(kind users.Kind, id types.ID) {
	switch kind {
	case users.KindRider:
		o.RiderID = &id
	case users.KindWasher:
		o.WasherID = &id
	case users.KindFolder:
		o.FolderID = &id
	}
}

// HasWorker reports whether id fills any stage of the order.
func (o *Order) HasWorker(id types.ID) bool {
	for _, slot := range []*types.ID{o.RiderID, o.WasherID, o.FolderID} {
		if slot != nil && *slot == id {
			return true
		}
	}
	return false
}

func (o *Order) EstimateMoney() *types.Money {
	if o.Price == nil {
		return nil
	}
	return &types.Money{Amount: *o.Price, Currency: o.Currency}
}

func (o *Order) ActualMoney() *types.Money {
	if o.ActualPrice == nil {
		return nil
	}
	return &types.Money{Amount: *o.ActualPrice, Currency: o.Currency}
}

type EventType string

const (
	EventCreated        EventType = "created"
	EventStatusChanged  EventType = "status_changed"
	EventDetailsUpdated EventType = "details_updated"
	EventAssignedRider  EventType = "assigned_rider"
	EventAssignedWasher EventType = "assigned_washer"
	EventAssignedFolder EventType = "assigned_folder"
	EventClaimedWasher  EventType = "claimed_washer"
	EventClaimedFolder  EventType = "claimed_folder"
)

func assignedEvent(kind users.Kind) EventType {
	return EventType("assigned_" + string(kind))
}

func claimedEvent(kind users.Kind) EventType {
	return EventType("claimed_" + string(kind))
}

// Event is an append-only audit record. A nil ActorID means the system acted.
type Event struct {
	ID        int64          `db:"id" json:"id"`
	OrderID   types.ID       `db:"order_id" json:"order_id"`
	ActorID   *types.ID      `db:"actor_id" json:"actor_id"`
	Type      EventType      `db:"event_type" json:"event_type"`
	Payload   map[string]any `db:"payload" json:"payload"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

func change(old, new any) map[string]any {
	return map[string]any{"old": old, "new": new}
}

// Filter narrows list queries. Zero fields do not constrain.
type Filter struct {
	LocationID *types.ID
	Statuses   []Status
	RiderID    *types.ID
	CustomerID *types.ID
	// Unclaimed requires the slot of this kind to be empty.
	Unclaimed users.Kind
	Limit     int
}
