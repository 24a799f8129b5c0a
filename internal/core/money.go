package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency-agnostic amount in integer cents. It marshals to and
// from a plain JSON number (e.g. 1234.5) without going through float64.
type Money struct {
	Cents int64
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.New(m.Cents, -2).String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", s, err)
	}
	m.Cents = d.Shift(2).Round(0).IntPart()
	return nil
}

// ParseMoney parses a decimal amount, accepting both "12.34" and the
// comma form "12,34" seen in user input and cached values.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Money{Cents: d.Shift(2).Round(0).IntPart()}, nil
}

// String renders the amount with a decimal point and two places.
func (m Money) String() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}

// CommaString renders the amount with a decimal comma, the form used in
// exported reports.
func (m Money) CommaString() string {
	return strings.Replace(m.String(), ".", ",", 1)
}

func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}
