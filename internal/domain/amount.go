package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// MaxAmountDigits integer digits accepted in a quantity, price or cash amount.
	MaxAmountDigits = 15
	// MaxAmountScale fractional digits accepted in a quantity, price or cash amount.
	MaxAmountScale = 24
)

// CheckAmount rejects values that are too large or too fine-grained for trading arithmetic,
// wrapping kind. Only the exponent and coefficient length are inspected, the value is never expanded.
func CheckAmount(kind error, name string, v decimal.Decimal) error {
	exp := int(v.Exponent())
	if -exp > MaxAmountScale {
		return errors.Wrapf(kind, "%s has more than %d fractional digits", name, MaxAmountScale)
	}
	if digits := v.NumDigits() + exp; digits > MaxAmountDigits {
		return errors.Wrapf(kind, "%s has %d integer digits, at most %d allowed", name, digits, MaxAmountDigits)
	}
	return nil
}
