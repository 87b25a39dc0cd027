// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and the JSON form used on the wire (a plain number with two decimals).
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in minor units (pesewas, cents).
type Money struct {
	Cents int64
}

// MaxAmount is the largest amount accepted as input or stored as a derived
// total. Sums of many stored amounts stay well inside int64.
var MaxAmount = Money{Cents: 1_000_000_000_000 * 100}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is rejected; use
// ParseAmount where zero is a legitimate value.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("0") -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if cents == 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseAmount is ParseDecimalToCents without the positivity requirement.
// Negative values are still rejected.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || iv > MaxAmount.Cents/100 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents > MaxAmount.Cents {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// parseExponent handles JSON numbers written as 1.5e3 or 1e-7.
func parseExponent(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 {
		return 0, ErrInvalidAmount
	}
	cents := math.Round(f * 100)
	if cents > float64(MaxAmount.Cents) {
		return 0, ErrInvalidAmount
	}
	return int64(cents), nil
}

// MustMoney parses a literal amount and panics on failure. Meant for tests
// and constants.
func MustMoney(s string) Money {
	c, err := ParseAmount(s)
	if err != nil {
		panic(fmt.Sprintf("core.MustMoney(%q): %v", s, err))
	}
	return Money{Cents: c}
}

// Add saturates at the int64 limits instead of wrapping.
func (m Money) Add(o Money) Money {
	sum := m.Cents + o.Cents
	switch {
	case o.Cents > 0 && sum < m.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents < 0 && sum > m.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: sum}
}

// Sub saturates like Add.
func (m Money) Sub(o Money) Money {
	if o.Cents == math.MinInt64 {
		return m.Add(Money{Cents: math.MaxInt64}).Add(Money{Cents: 1})
	}
	return m.Add(Money{Cents: -o.Cents})
}

// MulChecked multiplies the amount by n and reports whether the product
// fits in int64.
func (m Money) MulChecked(n int) (Money, bool) {
	if m.Cents == 0 || n == 0 {
		return Money{}, true
	}
	k := int64(n)
	p := m.Cents * k
	if p/k != m.Cents || (m.Cents == -1 && k == math.MinInt64) || (k == -1 && m.Cents == math.MinInt64) {
		return Money{}, false
	}
	return Money{Cents: p}, true
}

// Times multiplies the amount by a whole number of periods, saturating on
// overflow.
func (m Money) Times(n int) Money {
	if p, ok := m.MulChecked(n); ok {
		return p
	}
	if (m.Cents < 0) != (n < 0) {
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: math.MaxInt64}
}

// NonNegative clamps the amount at zero.
func (m Money) NonNegative() Money {
	if m.Cents < 0 {
		return Money{}
	}
	return m
}

func (m Money) IsZero() bool { return m.Cents == 0 }

// String renders the amount with two decimals and a dot separator.
func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Float returns the amount as a float64 for display and spreadsheet cells.
// Use cents for calculations.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number, a decimal string, or null.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*m = Money{}
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return ErrInvalidAmount
		}
		if strings.TrimSpace(raw) == "" {
			*m = Money{}
			return nil
		}
	}
	parse := ParseAmount
	if b[0] != '"' && strings.ContainsAny(raw, "eE") {
		parse = parseExponent
	}
	cents, err := parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, string(b))
	}
	m.Cents = cents
	return nil
}
