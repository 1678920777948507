// README: Pricing rate definition for each laundry service.
package pricing

import "errors"

var ErrRateNotFound = errors.New("rate not found")

// Rate amounts are in minor units.
type Rate struct {
	Service  string `db:"service"`
	BaseFee  int64  `db:"base_fee"`
	PerKg    int64  `db:"per_kg"`
	Currency string `db:"currency"`
}
