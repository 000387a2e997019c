// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Parsing and formatting go through
// shopspring/decimal so that no float rounding leaks into stored values.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents mirrors a 10-digit, 2-decimal column: 99 999 999.99.
const MaxAmountCents int64 = 9_999_999_999

// ParseDecimalToCents converts a decimal string with at most two fractional
// digits to cents. Nothing is rounded: extra digits yield ErrAmountPrecision.
//
// A comma is read as the decimal separator only when it is the sole separator,
// so "12,34" is 12.34 while "1,234.56" is rejected. Zero is a valid amount;
// negative values, exponents and values above MaxAmountCents are not.
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,3")   -> 1230, nil
//	ParseDecimalToCents("12.345") -> 0, ErrAmountPrecision
//	ParseDecimalToCents("-1")     -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "+-eE") {
		return 0, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		if strings.Count(s, ",") > 1 || strings.Contains(s, ".") {
			return 0, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.Exponent() < -2 {
		return 0, ErrAmountPrecision
	}
	cents := d.Shift(2)
	if cents.GreaterThan(decimal.NewFromInt(MaxAmountCents)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount in currency units for charting.
// Use cents for arithmetic.
func (m Money) Float() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// String formats the amount with exactly two decimals, e.g. "20.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}
