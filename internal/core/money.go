// Package core provides amount parsing and formatting utilities.
//
// Amounts are decimal.Decimal values. Parsing accepts both dot (12.34) and
// comma (12,34) decimal separators, as typed by users on mobile keyboards.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a non-negative amount. Zero is accepted.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("1,234.5") -> 1234.5, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := ParseSignedAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseSignedAmount parses an amount that may carry a leading sign, such as an
// account opening balance. A lone comma is a decimal separator. Thousands
// separators are accepted in bank-statement forms: "1,234.56", "1.234,56" and
// "1,234,567", with groups of exactly three digits.
func ParseSignedAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	body := strings.TrimLeft(s, "+-")
	sign := s[:len(s)-len(body)]
	if len(sign) > 1 || body == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	body, ok := normalizeSeparators(body)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}

	dots := 0
	for _, r := range body {
		switch {
		case r == '.':
			dots++
		case !unicode.IsDigit(r):
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if dots > 1 || body == "." {
		return decimal.Zero, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(sign + body)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// normalizeSeparators rewrites s to use a dot as the only decimal separator
// and no grouping. The separator that appears last is the decimal one.
func normalizeSeparators(s string) (string, bool) {
	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')
	switch {
	case lastComma < 0:
		return s, true
	case lastDot > lastComma:
		intPart, ok := ungroup(s[:lastDot], ",")
		return intPart + s[lastDot:], ok
	case lastDot >= 0:
		intPart, ok := ungroup(s[:lastComma], ".")
		return intPart + "." + s[lastComma+1:], ok
	case strings.Count(s, ",") > 1:
		return ungroup(s, ",")
	default:
		return strings.Replace(s, ",", ".", 1), true
	}
}

func ungroup(s, sep string) (string, bool) {
	groups := strings.Split(s, sep)
	if len(groups) == 1 {
		return s, true
	}
	if n := len(groups[0]); n < 1 || n > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

// Places returns the number of decimal places amounts in c are shown with.
func (c Currency) Places() int32 {
	switch c {
	case BTC, ETH:
		return 8
	case KES:
		return 0
	default:
		return 2
	}
}

// FormatAmount renders d for display, e.g. "KES 1,250" or "USD -12.50".
func FormatAmount(d decimal.Decimal, c Currency) string {
	s := d.StringFixed(c.Places())
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}

	out := b.String()
	if neg {
		out = "-" + out
	}
	if c == "" {
		return out
	}
	return string(c) + " " + out
}
