// Package types provides shared value types for the domain.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value expressed in minor units (cents) plus a short
// uppercase currency code. int64 keeps arithmetic exact; decimal.Decimal is
// used only at the formatting/parsing boundary.
type Amount struct {
	Cents    int64  `json:"cents"`
	Currency string `json:"currency"`
}

// NewAmount creates an Amount, normalizing the currency code to upper case.
func NewAmount(cents int64, currency string) Amount {
	return Amount{Cents: cents, Currency: strings.ToUpper(strings.TrimSpace(currency))}
}

// IsZero reports whether the amount carries no value and no currency.
func (a Amount) IsZero() bool {
	return a.Cents == 0 && a.Currency == ""
}

// Decimal returns the amount in major units (123.45 for 12345 cents).
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(a.Cents, -2)
}

// String formats the amount as "123.45 EUR"; the currency is omitted when empty.
func (a Amount) String() string {
	if a.Currency == "" {
		return a.Decimal().StringFixed(2)
	}
	return fmt.Sprintf("%s %s", a.Decimal().StringFixed(2), a.Currency)
}

// ParseAmount parses a major-unit decimal string ("123.45") into an Amount.
// Sub-cent precision is an error.
func ParseAmount(s, currency string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return Amount{}, fmt.Errorf("amount %q has sub-cent precision", s)
	}
	return NewAmount(cents.IntPart(), currency), nil
}
