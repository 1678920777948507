// README: Numeric identifiers shared by every module.
package types

import (
	"errors"
	"strconv"
)

var ErrInvalidID = errors.New("invalid id")

// ID is the opaque numeric primary key of a stored row.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseID(v string) (ID, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidID
	}
	return ID(n), nil
}

func IDPtr(id ID) *ID {
	return &id
}

// SameID reports whether two optional ids point at the same row.
func SameID(a, b *ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
