// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/paymenext/internal/models"
)

// Store defines the ledger storage contract the domain services depend on.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger layer.
//
// Lookups of missing rows return an error wrapping models.ErrNotFound.
// Every method that writes more than one row does so atomically.
type Store interface {
	GroupStore
	ExpenseStore
	SplitEntryStore
	ReminderStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}

// GroupStore persists groups and their ordered member lists.
type GroupStore interface {
	// CreateGroup persists a new group. ID and CreatedAt are filled in when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members in insertion order.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups retrieves all groups, newest first.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// AddGroupMembers appends names to the group's member list.
	AddGroupMembers(ctx context.Context, groupID string, names []string) error

	// DeleteGroup removes a group and everything it owns.
	DeleteGroup(ctx context.Context, groupID string) error
}

// ExpenseStore persists expenses together with their split entries.
type ExpenseStore interface {
	// CreateExpense persists the expense and all of expense.SplitEntries in
	// one transaction. Missing IDs are generated.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its split entries.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByGroup retrieves a group's expenses (with split entries),
	// most recent first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// SumGroupExpenses returns the total amount spent in a group.
	SumGroupExpenses(ctx context.Context, groupID string) (decimal.Decimal, error)

	// DeleteExpense removes an expense with its split entries and reminders.
	DeleteExpense(ctx context.Context, expenseID string) error
}

// SplitEntryStore reads and settles split entries.
type SplitEntryStore interface {
	GetSplitEntry(ctx context.Context, splitEntryID string) (*models.SplitEntry, error)

	// GetSplitEntryDetail retrieves an entry joined with its expense
	// description and group name.
	GetSplitEntryDetail(ctx context.Context, splitEntryID string) (*models.SplitEntryDetail, error)

	// ListSplitEntries retrieves an expense's entries in allocation order.
	ListSplitEntries(ctx context.Context, expenseID string) ([]*models.SplitEntry, error)

	// ListGroupSplitEntries retrieves every entry of a group joined with its
	// expense, for balance computations.
	ListGroupSplitEntries(ctx context.Context, groupID string) ([]*models.UnpaidSplit, error)

	// ToggleSplitEntryPaid flips the paid flag at now. When the entry becomes
	// paid, its unsent reminders are deleted in the same transaction.
	// Returns the updated entry and the number of reminders removed.
	ToggleSplitEntryPaid(ctx context.Context, splitEntryID string, now time.Time) (*models.SplitEntry, int, error)

	// ListUnpaidSplits retrieves a participant's unpaid entries ordered by
	// expense date, most recent first.
	ListUnpaidSplits(ctx context.Context, participant string) ([]*models.UnpaidSplit, error)
}

// ReminderStore persists reminders and their sent state.
type ReminderStore interface {
	// CreateReminder persists a reminder. ID is generated when empty.
	CreateReminder(ctx context.Context, reminder *models.Reminder) error

	GetReminder(ctx context.Context, reminderID string) (*models.Reminder, error)

	// ListReminders retrieves a split entry's reminders by remind time.
	ListReminders(ctx context.Context, splitEntryID string) ([]*models.Reminder, error)

	// ListDueReminders retrieves unsent reminders with RemindAt <= now,
	// ordered by RemindAt ascending.
	ListDueReminders(ctx context.Context, now time.Time) ([]*models.DueReminder, error)

	// MarkReminderSent marks an unsent reminder as sent at now. It reports
	// false when no row changed: the reminder was deleted or already sent.
	MarkReminderSent(ctx context.Context, reminderID string, now time.Time) (bool, error)
}

// UserStore persists participant accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns an error wrapping models.ErrNotFound when no
	// user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
