// Package models defines the core domain models for PayMeNext.
//
// # Ownership
//
// Entities form a strict ownership tree:
//
//	Group -> Expense -> SplitEntry -> Reminder
//
// Every child holds its parent's ID as a plain string. There are no pointers
// between entities, so nothing is loaded lazily: read models such as
// UnpaidSplit and DueReminder carry the parent fields a caller needs, joined
// by the store at query time.
//
// # Money
//
// Amounts are single-currency decimals with two fractional digits
// (see CurrencyScale). They are stored and transported as decimal strings to
// avoid float rounding.
//
// # Invariants
//
//   - SplitEntry.Paid is true if and only if SplitEntry.PaidAt is set.
//   - Reminder.Sent is true if and only if Reminder.SentAt is set.
//   - The shares of an expense add up to the expense amount exactly.
package models
