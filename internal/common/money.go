// Package common holds the wire-level vocabulary shared by every other
// package in the matching core: money, orders, trades and the error kinds
// the core can fail with.
package common

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxScale is the maximum number of decimal places a price or quantity may
// carry (spec: scale <= 8).
const MaxScale = 8

// ErrInvalidScale is returned when a Money value carries more than MaxScale
// decimal places.
var ErrInvalidScale = errors.New("common: value exceeds maximum scale of 8")

// ErrNegative is returned when a Money value that must be non-negative is
// constructed from a negative decimal.
var ErrNegative = errors.New("common: value must be non-negative")

// Money is a fixed-point decimal used for every price and quantity in the
// core. It is a thin, validated wrapper around shopspring/decimal so that
// arithmetic never silently loses precision the way float64 would.
type Money struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{d: decimal.Zero}

// NewMoney validates and wraps a decimal.Decimal.
func NewMoney(d decimal.Decimal) (Money, error) {
	if d.Exponent() < -MaxScale {
		return Money{}, ErrInvalidScale
	}
	if d.IsNegative() {
		return Money{}, ErrNegative
	}
	return Money{d: d}, nil
}

// MustMoney panics on validation failure; only safe for compile-time
// constants and test fixtures.
func MustMoney(d decimal.Decimal) Money {
	m, err := NewMoney(d)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney parses a decimal string such as "50000.00000001".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("common: parse money %q: %w", s, err)
	}
	return NewMoney(d)
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(other Money) Money { return Money{d: m.d.Add(other.d)} }
func (m Money) Sub(other Money) Money { return Money{d: m.d.Sub(other.d)} }

func (m Money) Cmp(other Money) int { return m.d.Cmp(other.d) }

func (m Money) IsZero() bool        { return m.d.IsZero() }
func (m Money) IsPositive() bool    { return m.d.IsPositive() }
func (m Money) GreaterThan(o Money) bool       { return m.d.GreaterThan(o.d) }
func (m Money) GreaterThanOrEqual(o Money) bool { return m.d.GreaterThanOrEqual(o.d) }
func (m Money) LessThan(o Money) bool          { return m.d.LessThan(o.d) }
func (m Money) LessThanOrEqual(o Money) bool   { return m.d.LessThanOrEqual(o.d) }

// Min returns the smaller of two Money values.
func Min(a, b Money) Money {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

func (m Money) String() string { return m.d.String() }

// MarshalJSON/UnmarshalJSON let Money round-trip through the ladder
// snapshot document (spec §4.8) and the wire event payloads (spec §6).
func (m Money) MarshalJSON() ([]byte, error) {
	return m.d.MarshalJSON()
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	v, err := NewMoney(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
