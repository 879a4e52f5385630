package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simonvc/bookledger/internal/ledger"
)

const dateLayout = "2006-01-02"

func center(s string, w int) string {
	if len(s) >= w {
		return s
	}
	pad := (w - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-2] + ".."
	}
	return s
}

func money(d decimal.Decimal) string {
	return d.StringFixed(ledger.AmountScale)
}

// formatSigned puts negative amounts in brackets.
func formatSigned(d decimal.Decimal) string {
	if d.IsNegative() {
		return "(" + money(d.Neg()) + ")"
	}
	return money(d)
}

// column leaves zero amounts blank.
func column(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return money(d)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// dateFlag parses s, leaving an empty flag as the zero time.
func dateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseDate(s)
}

// optionalDate parses s, or returns nil for an empty flag.
func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// dateOr parses s, or falls back to today.
func dateOr(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return parseDate(s)
}
