package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyScale is the number of fractional digits of the minor currency unit.
const CurrencyScale = 2

// Expense is a cost paid by one participant and shared by several.
// It is immutable once created; only its split entries change afterwards.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string `validate:"required"`

	// Description is what the money was spent on (e.g. "Rental").
	Description string `validate:"required,max=200"`

	// Amount is the total cost. Always positive.
	Amount decimal.Decimal

	// Date is when the expense was recorded.
	Date time.Time

	// CreatedBy is the participant who fronted the money.
	CreatedBy string `validate:"max=100"`

	// SplitEntries are the per-participant shares, in allocation order.
	SplitEntries []SplitEntry
}

// SharesTotal returns the sum of the expense's split entry shares.
func (e *Expense) SharesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range e.SplitEntries {
		total = total.Add(entry.Share)
	}
	return total
}

// FormatAmount renders an amount with exactly CurrencyScale fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(CurrencyScale)
}
