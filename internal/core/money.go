// Package core provides money parsing and handling utilities.
//
// Amounts are decimal values with exactly two fractional digits. Parsing
// accepts both dot and comma separators and rounds half-up to the cent.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MaxAmount bounds amounts so they fit NUMERIC(14,2) and an int64 count of cents.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// ParseAmount converts a decimal string to an amount rounded half-up to two digits.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("-1")     -> ErrNegativeAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 || (parts[0] == "" && (len(parts) == 1 || parts[1] == "")) {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) || r > unicode.MaxASCII {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if negative && !d.IsZero() {
		return decimal.Zero, ErrNegativeAmount
	}
	d = d.Round(2)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks that d is non-negative and within MaxAmount.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativeAmount
	}
	if d.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// RoundAmount rounds d half-up to the cent.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Cents returns d as an integer count of cents. d must already be rounded.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

// FromCents is the inverse of Cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
