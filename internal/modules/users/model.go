// README: Users: customers, staff and the workers that fill order stages.
package users

import (
	"errors"
	"strings"
	"time"

	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrInvalidKind = errors.New("invalid worker kind")
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleRider    Role = "rider"
	RoleWasher   Role = "washer"
	RoleFolder   Role = "folder"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

type StaffType string

const (
	StaffGeneral StaffType = "general"
	StaffWasher  StaffType = "washer"
	StaffFolder  StaffType = "folder"
)

// Kind is the order stage a worker fills.
type Kind string

const (
	KindRider  Kind = "rider"
	KindWasher Kind = "washer"
	KindFolder Kind = "folder"
)

func ParseKind(v string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(v))); k {
	case KindRider, KindWasher, KindFolder:
		return k, nil
	}
	return "", ErrInvalidKind
}

type User struct {
	ID                types.ID  `db:"id" json:"id"`
	FirebaseUID       *string   `db:"firebase_uid" json:"-"`
	Username          string    `db:"username" json:"username"`
	FullName          string    `db:"full_name" json:"full_name"`
	Phone             string    `db:"phone" json:"phone"`
	FCMToken          string    `db:"fcm_token" json:"-"`
	Role              Role      `db:"role" json:"role"`
	StaffType         StaffType `db:"staff_type" json:"staff_type,omitempty"`
	ServiceLocationID *types.ID `db:"service_location_id" json:"service_location_id,omitempty"`
	Location          string    `db:"location" json:"location,omitempty"`
	PickupAddress     string    `db:"pickup_address" json:"pickup_address,omitempty"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	IsStaff           bool      `db:"is_staff" json:"is_staff"`
	IsSuperuser       bool      `db:"is_superuser" json:"is_superuser"`
	CompletedJobs     int       `db:"completed_jobs" json:"completed_jobs"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// CanWork reports whether u may fill the given stage.
func (u *User) CanWork(kind Kind) bool {
	if u == nil || !u.IsActive {
		return false
	}
	return string(u.Role) == string(kind) || string(u.StaffType) == string(kind)
}

// IsWorker reports whether u is scoped to a location (riders, washers, folders, staff).
func (u *User) IsWorker() bool {
	switch u.Role {
	case RoleRider, RoleWasher, RoleFolder, RoleStaff:
		return true
	}
	return u.IsStaff && u.Role != RoleAdmin
}

func (u *User) IsAdmin() bool {
	return u.IsSuperuser || u.Role == RoleAdmin
}

func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
