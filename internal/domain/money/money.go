package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorExp is the exponent of one minor unit. Every supported currency uses cents.
const minorExp = -2

// Money is an amount in minor units (cents).
type Money int64

func FromDecimal(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimalValue(d)
}

func FromDecimalValue(d decimal.Decimal) (Money, error) {
	minor := d.Shift(-minorExp)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more precision than one cent", d)
	}
	return Money(minor.IntPart()), nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), minorExp)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(-minorExp)
}

// Times multiplies by a whole quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// MulRate returns m × rate rounded to the nearest cent, halves away from zero.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money(decimal.NewFromInt(int64(m)).Mul(rate).Round(0).IntPart())
}
