package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reminder is a scheduled notification nudging a participant to pay a share.
//
// A reminder moves from scheduled (Sent=false) to sent (Sent=true) exactly
// once and never goes back.
type Reminder struct {
	// ID is the unique identifier for the reminder (UUID format).
	ID string

	// SplitEntryID is the share this reminder is about.
	SplitEntryID string

	// RemindAt is the earliest time the reminder may be dispatched.
	RemindAt time.Time

	// Sent is true once the notification went out.
	Sent bool

	// SentAt is set exactly when Sent is true.
	SentAt *time.Time

	// Message is the notification body.
	Message string
}

// MarkSent records delivery at the given time.
func (r *Reminder) MarkSent(now time.Time) {
	r.Sent = true
	r.SentAt = &now
}

// IsDue reports whether an unsent reminder may be dispatched at now.
func (r *Reminder) IsDue(now time.Time) bool {
	return !r.Sent && !r.RemindAt.After(now)
}

// DueReminder is a due reminder joined with the split entry, expense and
// group it refers to.
type DueReminder struct {
	Reminder

	Participant        string
	Share              decimal.Decimal
	ExpenseDescription string
	GroupName          string
}
