// Package money provides fixed-precision decimal helpers for quotation
// pricing. All arithmetic stays in decimal form; rounding to the currency
// scale happens only when a figure is presented or persisted.
package money

import (
	"github.com/shopspring/decimal"
)

// Scale is the fractional digit count for currency amounts.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Zero is the zero amount.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// FromString parses a decimal amount from its string form.
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MustFromString parses a decimal amount and panics on malformed input.
// Reserved for constants and tests.
func MustFromString(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// PercentOf returns value * percent / 100 at full precision.
func PercentOf(value, percent decimal.Decimal) decimal.Decimal {
	return value.Mul(percent).Div(hundred)
}

// ClampNonNegative floors a value at zero.
func ClampNonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// Round applies the presentation rounding rule: half away from zero at the
// currency scale. Amounts in this domain are non-negative, so this matches
// round-half-up.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(Scale)
}

// String formats an amount at the currency scale.
func String(v decimal.Decimal) string {
	return v.StringFixed(Scale)
}
