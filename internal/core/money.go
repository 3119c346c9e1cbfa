// Package core provides money parsing and handling utilities.
//
// This file contains the exact decimal currency type used for account values
// and the lossy bridge to float64 used by proportional rate math.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol is prefixed when formatting money and stripped when parsing.
const CurrencySymbol = "£"

// minorUnits is the number of decimal places kept by the currency.
const minorUnits = 2

// Money is an exact decimal amount in the major currency unit.
type Money struct {
	Amount decimal.Decimal
}

// ZeroMoney is the neutral amount.
var ZeroMoney = Money{Amount: decimal.Zero}

// ParseMoney converts a decimal string, optionally prefixed with a currency
// symbol, to Money.
//
// Commas followed by groups of three digits are thousands separators
// (£1,000 or 1,000.50). A single comma followed by one or two digits and no
// dot is a decimal separator (12,34). Any other comma is rejected. A leading
// sign is allowed before or after the symbol.
//
// Examples:
//
//	ParseMoney("£1000.00")   -> 1000.00, nil
//	ParseMoney("£1,000")     -> 1000, nil
//	ParseMoney("12,34")      -> 12.34, nil
//	ParseMoney("12,3456")    -> ErrInvalidAmount
//	ParseMoney("-£5")        -> -5, nil
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	s = strings.TrimPrefix(s, CurrencySymbol)
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		if sign != "" {
			return Money{}, ErrInvalidAmount
		}
		sign, s = s[:1], s[1:]
	}
	s, ok := normalizeSeparators(s)
	if !ok || s == "" || strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(sign + s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Amount: d}, nil
}

// normalizeSeparators rewrites the comma forms ParseMoney accepts into a
// plain decimal string.
func normalizeSeparators(s string) (string, bool) {
	if !strings.Contains(s, ",") {
		return s, true
	}
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	groups := strings.Split(intPart, ",")
	if thousands(groups) {
		if hasDot {
			return strings.Join(groups, "") + "." + fracPart, true
		}
		return strings.Join(groups, ""), true
	}
	if !hasDot && len(groups) == 2 && groups[0] != "" && len(groups[1]) >= 1 && len(groups[1]) <= 2 {
		return groups[0] + "." + groups[1], true
	}
	return "", false
}

// thousands reports whether groups is a 1 to 3 digit lead followed by groups
// of exactly three digits.
func thousands(groups []string) bool {
	if len(groups) < 2 || len(groups[0]) < 1 || len(groups[0]) > 3 {
		return false
	}
	for i, g := range groups {
		if i > 0 && len(g) != 3 {
			return false
		}
		for _, r := range g {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// MustParseMoney is ParseMoney for literals known to be valid.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic("core: invalid money literal " + strconv.Quote(s))
	}
	return m
}

// NewMoneyFromCents builds Money from an integer count of minor units.
func NewMoneyFromCents(cents int64) Money {
	return Money{Amount: decimal.New(cents, -minorUnits)}
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount.Add(o.Amount)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Amount: m.Amount.Sub(o.Amount)}
}

// Equal reports whether both amounts are numerically equal.
func (m Money) Equal(o Money) bool {
	return m.Amount.Equal(o.Amount)
}

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// Cents returns the amount in minor units, rounded half away from zero.
func (m Money) Cents() int64 {
	return m.Amount.Shift(minorUnits).Round(0).IntPart()
}

// Fraction returns the amount as a float64 in the major unit.
// Precision beyond float64 is lost; use it only for proportional math.
func (m Money) Fraction() float64 {
	f, _ := m.Amount.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// MoneyFromFraction converts a float64 back to Money, rounded to two
// decimal places. NaN, infinities and anything that fails to parse give
// ZeroMoney.
func MoneyFromFraction(f float64) Money {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ZeroMoney
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(f, 'f', minorUnits, 64))
	if err != nil {
		return ZeroMoney
	}
	return Money{Amount: d}
}

// String formats the amount with the currency symbol and two decimals,
// e.g. £1000.00 or -£5.25.
func (m Money) String() string {
	if m.Amount.IsNegative() {
		return "-" + CurrencySymbol + m.Amount.Neg().StringFixed(minorUnits)
	}
	return CurrencySymbol + m.Amount.StringFixed(minorUnits)
}

// MarshalText encodes the amount as a plain decimal string without symbol.
// Two decimals are always written; sub-cent digits are kept, not rounded.
func (m Money) MarshalText() ([]byte, error) {
	if m.Amount.Equal(m.Amount.Round(minorUnits)) {
		return []byte(m.Amount.StringFixed(minorUnits)), nil
	}
	return []byte(m.Amount.String()), nil
}

// UnmarshalText accepts anything ParseMoney accepts.
func (m *Money) UnmarshalText(b []byte) error {
	parsed, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
