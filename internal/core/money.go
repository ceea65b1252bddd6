// Package core provides money parsing utilities.
//
// This file contains the numeric parsing used for transaction amounts and the
// monthly budget. Parsing never produces a not-a-number value: malformed input
// is reported through ErrInvalidAmount or ErrInvalidBudget.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The sign is
// not checked; the store keeps whatever value the caller supplies.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, ok := parseDecimal(s)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseBudget converts a decimal string to a budget ceiling. Negative values
// are accepted as-is.
func ParseBudget(s string) (decimal.Decimal, error) {
	d, ok := parseDecimal(s)
	if !ok {
		return decimal.Zero, ErrInvalidBudget
	}
	return d, nil
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
