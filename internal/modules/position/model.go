// README: Rider live positions: GPS fixes pushed by rider devices.
package position

import (
	"errors"
	"time"

	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

var (
	ErrBadRequest       = errors.New("bad request")
	ErrPermissionDenied = errors.New("permission denied")
)

// Fix is one reported rider position. Optional readings stay nil when the device omits them.
type Fix struct {
	ID         int64     `db:"id" json:"id"`
	RiderID    types.ID  `db:"rider_id" json:"rider_id"`
	Lat        float64   `db:"latitude" json:"latitude"`
	Lng        float64   `db:"longitude" json:"longitude"`
	Accuracy   *float64  `db:"accuracy" json:"accuracy,omitempty"`
	Heading    *float64  `db:"heading" json:"heading,omitempty"`
	Speed      *float64  `db:"speed" json:"speed,omitempty"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Nearby is a rider's latest fix with its distance from the query point.
type Nearby struct {
	Fix
	DistanceKm float64 `json:"distance_km"`
}

// Hit is what a geo index returns for a radius query.
type Hit struct {
	RiderID    types.ID
	DistanceKm float64
}
