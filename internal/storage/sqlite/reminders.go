package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/paymenext/internal/models"
)

const reminderColumns = "r.id, r.split_entry_id, r.remind_at, r.sent, r.sent_at, r.message"

func scanReminder(row interface{ Scan(...any) error }, extra ...any) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	var remindAt int64
	var sentAt sql.NullInt64
	dest := append([]any{
		&reminder.ID,
		&reminder.SplitEntryID,
		&remindAt,
		&reminder.Sent,
		&sentAt,
		&reminder.Message,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	reminder.RemindAt = fromMillis(remindAt)
	reminder.SentAt = timePtr(sentAt)
	return reminder, nil
}

// CreateReminder persists a reminder. The split entry must exist.
func (s *SQLiteStore) CreateReminder(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := getSplitEntry(ctx, tx, reminder.SplitEntryID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reminders (id, split_entry_id, remind_at, sent, sent_at, message)
		VALUES (?, ?, ?, ?, ?, ?)`,
		reminder.ID, reminder.SplitEntryID, toMillis(reminder.RemindAt),
		reminder.Sent, nullMillis(reminder.SentAt), reminder.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetReminder retrieves a reminder by ID.
func (s *SQLiteStore) GetReminder(ctx context.Context, reminderID string) (*models.Reminder, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+reminderColumns+" FROM reminders r WHERE r.id = ?",
		reminderID,
	)
	reminder, err := scanReminder(row)
	if isNoRows(err) {
		return nil, notFound("reminder", reminderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return reminder, nil
}

// ListReminders retrieves a split entry's reminders ordered by remind time.
func (s *SQLiteStore) ListReminders(ctx context.Context, splitEntryID string) ([]*models.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+reminderColumns+" FROM reminders r WHERE r.split_entry_id = ? ORDER BY r.remind_at, r.rowid",
		splitEntryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	reminders := []*models.Reminder{}
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminders: %w", err)
	}
	return reminders, nil
}

// ListDueReminders retrieves unsent reminders with remind_at <= now, joined
// with the data needed to build the notification. Ties on remind_at keep
// insertion order.
func (s *SQLiteStore) ListDueReminders(ctx context.Context, now time.Time) ([]*models.DueReminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderColumns+`, se.participant, se.share, e.description, g.name
		FROM reminders r
		JOIN split_entries se ON se.id = r.split_entry_id
		JOIN expenses e ON e.id = se.expense_id
		JOIN groups g ON g.id = e.group_id
		WHERE r.sent = 0 AND r.remind_at <= ?
		ORDER BY r.remind_at ASC, r.rowid ASC`,
		toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	defer rows.Close()

	due := []*models.DueReminder{}
	for rows.Next() {
		d := &models.DueReminder{}
		reminder, err := scanReminder(rows,
			&d.Participant,
			&d.Share,
			&d.ExpenseDescription,
			&d.GroupName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due reminder: %w", err)
		}
		d.Reminder = *reminder
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due reminders: %w", err)
	}
	return due, nil
}

// MarkReminderSent marks an unsent reminder as sent. It reports false when
// the reminder no longer exists or was already sent.
func (s *SQLiteStore) MarkReminderSent(ctx context.Context, reminderID string, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE reminders SET sent = 1, sent_at = ? WHERE id = ? AND sent = 0",
		toMillis(now), reminderID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}
