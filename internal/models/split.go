package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitEntry is one participant's share of an expense and whether it has
// been paid back.
type SplitEntry struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string

	// ExpenseID is the expense this share belongs to.
	ExpenseID string

	// Participant is the name of the person owing the share.
	Participant string `validate:"required,max=100"`

	// Share is the amount owed. Always positive.
	Share decimal.Decimal

	// Paid is true once the share has been settled.
	Paid bool

	// PaidAt is set exactly when Paid is true.
	PaidAt *time.Time
}

// MarkPaid settles the entry at the given time.
func (s *SplitEntry) MarkPaid(now time.Time) {
	s.Paid = true
	s.PaidAt = &now
}

// MarkUnpaid reopens the entry.
func (s *SplitEntry) MarkUnpaid() {
	s.Paid = false
	s.PaidAt = nil
}

// Toggle flips the paid state, keeping PaidAt consistent with Paid.
func (s *SplitEntry) Toggle(now time.Time) {
	if s.Paid {
		s.MarkUnpaid()
		return
	}
	s.MarkPaid(now)
}

// UnpaidSplit is an unpaid split entry joined with its expense and group.
type UnpaidSplit struct {
	SplitEntry

	ExpenseDescription string
	ExpenseDate        time.Time
	ExpenseCreatedBy   string
	GroupID            string
	GroupName          string
}

// SplitEntryDetail is a split entry with the parent fields needed to build
// reminder text.
type SplitEntryDetail struct {
	SplitEntry

	ExpenseDescription string
	GroupName          string
}
