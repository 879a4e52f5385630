package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places an amount may carry.
const AmountScale = 2

// Epsilon is the tolerance for the debit/credit balance check.
var Epsilon = decimal.New(1, -AmountScale)

// MaxAmount bounds every amount and entry total. Minor units are stored as
// int64, and sums over many lines must not overflow either.
var MaxAmount = decimal.New(1, 15)

// CheckScale rejects negative amounts, amounts with more than AmountScale
// decimal places and amounts of MaxAmount or more.
func CheckScale(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, d)
	}
	if !d.Equal(d.Round(AmountScale)) {
		return fmt.Errorf("%w: %s", ErrTooManyDecimals, d)
	}
	return checkMagnitude(d)
}

func checkMagnitude(d decimal.Decimal) error {
	if d.Abs().GreaterThanOrEqual(MaxAmount) {
		return fmt.Errorf("%w: %s", ErrAmountTooLarge, d)
	}
	return nil
}

// Round rounds d to AmountScale places.
func Round(d decimal.Decimal) decimal.Decimal { return d.Round(AmountScale) }

// ToMinor converts d to integer minor units (cents). d must pass CheckScale.
func ToMinor(d decimal.Decimal) int64 {
	return d.Shift(AmountScale).IntPart()
}

// FromMinor converts integer minor units to a decimal amount.
func FromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -AmountScale)
}

// ParseAmount parses a decimal string and checks its scale.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if err := CheckScale(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
