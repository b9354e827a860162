// Package core provides money parsing and handling utilities.
//
// This file contains the Money type, backed by an arbitrary precision decimal,
// and the es-CL currency formatting used across the dashboard.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in pesos with up to two decimal places.
type Money struct {
	d decimal.Decimal
}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money { return Money{d: d} }

// MoneyFromInt returns a whole peso amount.
func MoneyFromInt(v int64) Money { return Money{d: decimal.NewFromInt(v)} }

// MoneyFromCents converts a stored cents value back to Money.
func MoneyFromCents(cents int64) Money { return Money{d: decimal.New(cents, -2)} }

// ParseMoney parses a user supplied amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two decimals. Only strictly positive amounts are valid.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34, nil
//	ParseMoney("12,345") -> 12.35, nil
//	ParseMoney("-1")     -> ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

func (m Money) Decimal() decimal.Decimal { return m.d }

// Cents returns the amount in cents, rounded half-up.
func (m Money) Cents() int64 { return m.d.Round(2).Shift(2).IntPart() }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }

func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) IsZero() bool     { return m.d.IsZero() }
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

// Float64 is for chart coordinates only; sums stay in decimal.
func (m Money) Float64() float64 { return m.d.InexactFloat64() }

// String returns the plain decimal representation ("1234.5").
func (m Money) String() string { return m.d.String() }

// MarshalJSON encodes Money as a quoted decimal string.
func (m Money) MarshalJSON() ([]byte, error) { return m.d.MarshalJSON() }

// UnmarshalJSON accepts JSON numbers and numeric strings alike.
func (m *Money) UnmarshalJSON(b []byte) error { return m.d.UnmarshalJSON(b) }

func (m Money) Validate() error {
	if !m.d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Sum adds up a list of amounts.
func Sum(values ...Money) Money {
	total := Money{}
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// FormatCLP formats an amount the way es-CL locales print pesos:
// "$" prefix, "." thousands separator, "," decimals (only when non-zero).
//
//	FormatCLP(1234567)   -> "$1.234.567"
//	FormatCLP(-1500.5)   -> "-$1.500,5"
func FormatCLP(m Money) string {
	d := m.d.Round(2)
	neg := d.IsNegative()
	d = d.Abs()

	whole := d.Truncate(0)
	out := "$" + groupThousands(whole.String())
	if frac := d.Sub(whole); !frac.IsZero() {
		digits := strings.TrimRight(frac.StringFixed(2)[2:], "0")
		out += "," + digits
	}
	if neg {
		return "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
