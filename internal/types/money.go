// README: Common money value object used across modules.
package types

const DefaultCurrency = "KES"

// Money is an amount in minor units (cents).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func KES(minor int64) Money {
	return Money{Amount: minor, Currency: DefaultCurrency}
}
