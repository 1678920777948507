// README: Service areas that staff belong to and orders are matched in.
package location

import (
	"errors"
	"time"

	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

var (
	ErrNotFound      = errors.New("location not found")
	ErrDuplicateName = errors.New("location name already exists")
	ErrBadRequest    = errors.New("bad request")
)

type Location struct {
	ID          types.ID  `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Source records which rule produced a resolved location.
type Source string

const (
	SourceNone          Source = ""
	SourceOrder         Source = "order"
	SourceCustomer      Source = "customer"
	SourceCustomerText  Source = "customer_text"
	SourcePickupAddress Source = "pickup_address"
	SourceGeocode       Source = "geocode"
	SourceDefault       Source = "default"
)

// Hints are the order and customer fields location resolution looks at.
type Hints struct {
	LocationID         *types.ID
	CustomerLocationID *types.ID
	CustomerLocation   string
	PickupAddress      string
}

type Resolution struct {
	Location *Location
	Source   Source
}

func (r Resolution) Found() bool {
	return r.Location != nil
}
