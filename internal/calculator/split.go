// Package calculator holds the money arithmetic behind expense allocation
// and group balances.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/paymenext/internal/models"
)

// AllocateEqual splits amount equally among n participants.
//
// The split is done in minor currency units (cents). Every participant gets
// floor(cents/n); the leftover cents go one each to the first participants
// in list order. 100.00 split three ways gives 33.34, 33.33, 33.33.
// The returned shares always add up to amount exactly.
func AllocateEqual(amount decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: must have at least one participant", models.ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", models.ErrValidation, amount)
	}

	cents, err := ToMinorUnits(amount)
	if err != nil {
		return nil, err
	}
	if cents < int64(n) {
		// Some participants would end up with a zero share.
		return nil, fmt.Errorf("%w: amount %s is too small to split among %d participants",
			models.ErrValidation, models.FormatAmount(amount), n)
	}

	base := cents / int64(n)
	remainder := cents % int64(n)

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		c := base
		if int64(i) < remainder {
			c++
		}
		shares[i] = FromMinorUnits(c)
	}
	return shares, nil
}

// ToMinorUnits converts an amount to an integer number of cents.
// Amounts with more precision than the currency allows are rejected.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	scaled := amount.Shift(models.CurrencyScale)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount %s has more than %d decimal places",
			models.ErrValidation, amount, models.CurrencyScale)
	}
	if scaled.GreaterThan(decimal.NewFromInt(maxMinorUnits)) {
		return 0, fmt.Errorf("%w: amount %s is out of range", models.ErrValidation, amount)
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits converts cents back to a decimal amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -models.CurrencyScale)
}

// Sum adds up a list of amounts.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

const maxMinorUnits = 1 << 53
