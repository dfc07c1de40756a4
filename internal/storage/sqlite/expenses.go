package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mmynk/paymenext/internal/models"
)

// CreateExpense persists an expense and all of its split entries atomically.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", expense.GroupID).Scan(&exists)
	if isNoRows(err) {
		return notFound("group", expense.GroupID)
	}
	if err != nil {
		return fmt.Errorf("failed to get group: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, amount, date, created_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Description,
		models.FormatAmount(expense.Amount), toMillis(expense.Date), expense.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range expense.SplitEntries {
		entry := &expense.SplitEntries[i]
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		entry.ExpenseID = expense.ID

		_, err = tx.ExecContext(ctx,
			`INSERT INTO split_entries (id, expense_id, position, participant, share, paid, paid_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.ExpenseID, i, entry.Participant,
			models.FormatAmount(entry.Share), entry.Paid, nullMillis(entry.PaidAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert split entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const expenseColumns = "id, group_id, description, amount, date, created_by"

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	expense := &models.Expense{}
	var date int64
	if err := row.Scan(
		&expense.ID,
		&expense.GroupID,
		&expense.Description,
		&expense.Amount,
		&date,
		&expense.CreatedBy,
	); err != nil {
		return nil, err
	}
	expense.Date = fromMillis(date)
	return expense, nil
}

// GetExpense retrieves an expense by ID, including its split entries.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?",
		expenseID,
	)
	expense, err := scanExpense(row)
	if isNoRows(err) {
		return nil, notFound("expense", expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	entries, err := s.ListSplitEntries(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	expense.SplitEntries = derefEntries(entries)

	return expense, nil
}

// ListExpensesByGroup retrieves a group's expenses, most recent first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE group_id = ? ORDER BY date DESC, rowid DESC",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, expense := range expenses {
		entries, err := s.ListSplitEntries(ctx, expense.ID)
		if err != nil {
			return nil, err
		}
		expense.SplitEntries = derefEntries(entries)
	}

	return expenses, nil
}

// SumGroupExpenses returns the total of a group's expense amounts.
// Amounts are summed as decimals, not in SQL, to avoid float conversion.
func (s *SQLiteStore) SumGroupExpenses(ctx context.Context, groupID string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT amount FROM expenses WHERE group_id = ?",
		groupID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to iterate amounts: %w", err)
	}
	return total, nil
}

// DeleteExpense removes an expense with its split entries and reminders.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteWhere(ctx, tx,
		`DELETE FROM reminders WHERE split_entry_id IN (
			SELECT id FROM split_entries WHERE expense_id = ?)`,
		expenseID,
	); err != nil {
		return err
	}
	if err := deleteWhere(ctx, tx, "DELETE FROM split_entries WHERE expense_id = ?", expenseID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return notFound("expense", expenseID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func derefEntries(entries []*models.SplitEntry) []models.SplitEntry {
	return lo.Map(entries, func(e *models.SplitEntry, _ int) models.SplitEntry {
		return *e
	})
}
