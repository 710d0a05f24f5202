// Package core provides money parsing and handling utilities.
//
// Amounts travel between client and server in major units (rupees) and are
// stored as integer minor units (paise). Conversions go through
// shopspring/decimal so that no float arithmetic touches a stored value.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// ParseMajorAmount parses a decimal major-unit amount with a dot separator
// (12.34). A comma is rejected. The sign is preserved; callers decide whether
// non-positive values are acceptable.
func ParseMajorAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsRune(s, ',') {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// NormalizeAmount rewrites a typed amount that uses a comma decimal separator
// (12,34) into the dot form the API accepts. Only human input paths call it.
func NormalizeAmount(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

// ToMinorUnits converts a major amount to minor units, rounding half away
// from zero on the third fractional digit.
//
// Examples:
//
//	150.50 -> 15050
//	1.005  -> 101
//	0.004  -> ErrInvalidAmount (rounds to zero)
func ToMinorUnits(major decimal.Decimal) (int64, error) {
	if !major.IsPositive() {
		return 0, ErrInvalidAmount
	}
	minor := major.Mul(hundred).Round(0)
	if !minor.IsPositive() || minor.GreaterThan(maxMinor) {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

// ParseMinorUnits parses a textual major amount straight into positive minor units.
func ParseMinorUnits(s string) (int64, error) {
	major, err := ParseMajorAmount(s)
	if err != nil {
		return 0, err
	}
	return ToMinorUnits(major)
}

// ToMajorUnits converts minor units back to an exact major amount.
func ToMajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Major returns the major-unit value as a float64 for JSON and display.
// Use Minor for arithmetic.
func (m Money) Major() float64 {
	f, _ := ToMajorUnits(m.Minor).Float64()
	return f
}

// String formats the amount as rupees with two decimals, e.g. "₹150.50".
func (m Money) String() string {
	if m.Minor < 0 {
		return "-₹" + ToMajorUnits(-m.Minor).StringFixed(2)
	}
	return "₹" + ToMajorUnits(m.Minor).StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Minor: m.Minor + o.Minor}
}
