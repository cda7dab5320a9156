package core

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// NormalizeCategory trims surrounding whitespace and upper-cases the first
// character. The rest of the label is left as typed.
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	r, size := utf8.DecodeRuneInString(category)
	if r == utf8.RuneError {
		return category
	}
	return string(unicode.ToUpper(r)) + category[size:]
}

// NormalizeDescription trims surrounding whitespace.
func NormalizeDescription(description string) string {
	return strings.TrimSpace(description)
}

// ParseAmount parses a signed decimal amount such as "12.50", "-3" or
// "1e2". Surrounding whitespace is ignored.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
