// README: Pricing service computes order estimates and the price quoted to customers.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

type Service struct {
	store    RateStore
	perKg    int64
	currency string
}

// NewService falls back to perKg when a service has no stored rate. store may be nil.
func NewService(store RateStore, perKg int64, currency string) *Service {
	if currency == "" {
		currency = types.DefaultCurrency
	}
	return &Service{store: store, perKg: perKg, currency: currency}
}

// Estimate prices a service by weight. Without a weight only the base fee applies.
func (s *Service) Estimate(ctx context.Context, service string, weightKg *float64) (types.Money, error) {
	rate := Rate{Service: service, PerKg: s.perKg, Currency: s.currency}
	if s.store != nil && service != "" {
		r, err := s.store.Rate(ctx, service)
		switch {
		case err == nil:
			rate = *r
		case !errors.Is(err, ErrRateNotFound):
			return types.Money{}, err
		}
	}
	amount := rate.BaseFee
	if weightKg != nil && *weightKg > 0 {
		amount += int64(math.Round(float64(rate.PerKg) * *weightKg))
	}
	return types.Money{Amount: amount, Currency: rate.Currency}, nil
}

// Quote is the price communicated when an order is ready: the staff-entered
// actual price, else the estimate, else weight at the default rate.
func (s *Service) Quote(actual, estimate *types.Money, weightKg *float64) types.Money {
	switch {
	case actual != nil:
		return *actual
	case estimate != nil && estimate.Amount > 0:
		return *estimate
	case weightKg != nil && *weightKg > 0:
		return types.Money{Amount: int64(math.Round(float64(s.perKg) * *weightKg)), Currency: s.currency}
	}
	return types.Money{Currency: s.currency}
}

// Format renders money the way receipts show it, e.g. "KSh 1,200" or "KSh 99.50".
func Format(m types.Money) string {
	symbol := m.Currency
	if symbol == "" || symbol == "KES" {
		symbol = "KSh"
	}
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole := groupThousands(amount / 100)
	if cents := amount % 100; cents != 0 {
		return fmt.Sprintf("%s %s%s.%02d", symbol, sign, whole, cents)
	}
	return fmt.Sprintf("%s %s%s", symbol, sign, whole)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	pre := len(s) % 3
	if pre > 0 {
		out = append(out, s[:pre]...)
	}
	for i := pre; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
