package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a KES amount stored as BIGINT cents to avoid floating point errors.
// Cents are also the gateway's minor units, so no further scaling happens at
// the provider boundary.
type Money struct {
	Amount   int64  // cents
	Currency string // ISO 4217
}

// NewMoney creates a Money from cents.
func NewMoney(amount int64, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// FromShillings converts a decimal shilling amount (e.g. user input) to cents,
// rounding half away from zero the way the original checkout did.
func FromShillings(d decimal.Decimal) Money {
	return Money{
		Amount:   d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		Currency: CurrencyKES,
	}
}

// ToDecimal converts the cents to a decimal shilling amount.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(100))
}

// MinorUnits returns the amount in the gateway's minor units.
func (m Money) MinorUnits() int64 {
	return m.Amount
}

// Add returns the sum of two amounts in the same currency.
func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Sub returns the difference of two amounts in the same currency.
func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount > 0
}

// String returns the string representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.ToDecimal().StringFixed(2), m.Currency)
}
