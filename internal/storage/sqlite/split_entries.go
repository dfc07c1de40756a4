package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/paymenext/internal/models"
)

const splitEntryColumns = "se.id, se.expense_id, se.participant, se.share, se.paid, se.paid_at"

func scanSplitEntry(row interface{ Scan(...any) error }, extra ...any) (*models.SplitEntry, error) {
	entry := &models.SplitEntry{}
	var paidAt sql.NullInt64
	dest := append([]any{
		&entry.ID,
		&entry.ExpenseID,
		&entry.Participant,
		&entry.Share,
		&entry.Paid,
		&paidAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	entry.PaidAt = timePtr(paidAt)
	return entry, nil
}

// GetSplitEntry retrieves a split entry by ID.
func (s *SQLiteStore) GetSplitEntry(ctx context.Context, splitEntryID string) (*models.SplitEntry, error) {
	return getSplitEntry(ctx, s.db, splitEntryID)
}

func getSplitEntry(ctx context.Context, q queryRower, splitEntryID string) (*models.SplitEntry, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+splitEntryColumns+" FROM split_entries se WHERE se.id = ?",
		splitEntryID,
	)
	entry, err := scanSplitEntry(row)
	if isNoRows(err) {
		return nil, notFound("split entry", splitEntryID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split entry: %w", err)
	}
	return entry, nil
}

// GetSplitEntryDetail retrieves a split entry joined with its expense and group.
func (s *SQLiteStore) GetSplitEntryDetail(ctx context.Context, splitEntryID string) (*models.SplitEntryDetail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+splitEntryColumns+`, e.description, g.name
		FROM split_entries se
		JOIN expenses e ON e.id = se.expense_id
		JOIN groups g ON g.id = e.group_id
		WHERE se.id = ?`,
		splitEntryID,
	)

	detail := &models.SplitEntryDetail{}
	entry, err := scanSplitEntry(row, &detail.ExpenseDescription, &detail.GroupName)
	if isNoRows(err) {
		return nil, notFound("split entry", splitEntryID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split entry detail: %w", err)
	}
	detail.SplitEntry = *entry
	return detail, nil
}

// ListSplitEntries retrieves an expense's entries in allocation order.
func (s *SQLiteStore) ListSplitEntries(ctx context.Context, expenseID string) ([]*models.SplitEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+splitEntryColumns+" FROM split_entries se WHERE se.expense_id = ? ORDER BY se.position",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list split entries: %w", err)
	}
	defer rows.Close()

	entries := []*models.SplitEntry{}
	for rows.Next() {
		entry, err := scanSplitEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate split entries: %w", err)
	}
	return entries, nil
}

const joinedSplitQuery = `SELECT ` + splitEntryColumns + `,
		e.description, e.date, e.created_by, g.id, g.name
	FROM split_entries se
	JOIN expenses e ON e.id = se.expense_id
	JOIN groups g ON g.id = e.group_id`

func (s *SQLiteStore) queryJoinedSplits(ctx context.Context, query string, args ...any) ([]*models.UnpaidSplit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query split entries: %w", err)
	}
	defer rows.Close()

	splits := []*models.UnpaidSplit{}
	for rows.Next() {
		split := &models.UnpaidSplit{}
		var date int64
		entry, err := scanSplitEntry(rows,
			&split.ExpenseDescription,
			&date,
			&split.ExpenseCreatedBy,
			&split.GroupID,
			&split.GroupName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split entry: %w", err)
		}
		split.SplitEntry = *entry
		split.ExpenseDate = fromMillis(date)
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate split entries: %w", err)
	}
	return splits, nil
}

// ListGroupSplitEntries retrieves every entry of a group, paid or not.
func (s *SQLiteStore) ListGroupSplitEntries(ctx context.Context, groupID string) ([]*models.UnpaidSplit, error) {
	return s.queryJoinedSplits(ctx,
		joinedSplitQuery+" WHERE e.group_id = ? ORDER BY e.date, e.rowid, se.position",
		groupID,
	)
}

// ListUnpaidSplits retrieves a participant's unpaid entries, most recent
// expense first.
func (s *SQLiteStore) ListUnpaidSplits(ctx context.Context, participant string) ([]*models.UnpaidSplit, error) {
	return s.queryJoinedSplits(ctx,
		joinedSplitQuery+" WHERE se.participant = ? AND se.paid = 0 ORDER BY e.date DESC, e.rowid DESC",
		participant,
	)
}

// ToggleSplitEntryPaid flips the paid flag of an entry. On the transition to
// paid, the entry's unsent reminders are deleted in the same transaction;
// sent reminders are kept as history.
func (s *SQLiteStore) ToggleSplitEntryPaid(ctx context.Context, splitEntryID string, now time.Time) (*models.SplitEntry, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	entry, err := getSplitEntry(ctx, tx, splitEntryID)
	if err != nil {
		return nil, 0, err
	}

	entry.Toggle(now)

	_, err = tx.ExecContext(ctx,
		"UPDATE split_entries SET paid = ?, paid_at = ? WHERE id = ?",
		entry.Paid, nullMillis(entry.PaidAt), entry.ID,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to update split entry: %w", err)
	}

	var cancelled int64
	if entry.Paid {
		result, err := tx.ExecContext(ctx,
			"DELETE FROM reminders WHERE split_entry_id = ? AND sent = 0",
			entry.ID,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to delete pending reminders: %w", err)
		}
		cancelled, err = result.RowsAffected()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entry, int(cancelled), nil
}
