// README: Notification kinds, persisted in-app records and outbound messages.
package notify

import (
	"errors"
	"time"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

var ErrNotFound = errors.New("notification not found")

type Kind string

const (
	KindNewOrder       Kind = "new_order"
	KindOrderAssigned  Kind = "order_assigned"
	KindOrderUpdate    Kind = "order_update"
	KindOrderReady     Kind = "order_ready"
	KindOrderDelivered Kind = "order_delivered"
)

// Notification is the in-app record shown to a user.
type Notification struct {
	ID        types.ID  `db:"id" json:"id"`
	UserID    types.ID  `db:"user_id" json:"user_id"`
	OrderID   *types.ID `db:"order_id" json:"order_id,omitempty"`
	Message   string    `db:"message" json:"message"`
	Kind      Kind      `db:"notification_type" json:"notification_type"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Message is one best-effort delivery request. Recipient gets an in-app record
// (and a push when it has a device token); SMS goes to Phone, or to the
// recipient's phone when Phone is empty.
type Message struct {
	Recipient *users.User
	Phone     string
	OrderID   *types.ID
	Kind      Kind
	Text      string
	SMS       bool
	// Key makes delivery idempotent per channel; empty disables the guard.
	Key string
}
