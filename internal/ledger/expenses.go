package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/paymenext/internal/calculator"
	"github.com/mmynk/paymenext/internal/models"
	"github.com/mmynk/paymenext/internal/storage"
)

// CreateExpenseParams describes a new expense.
type CreateExpenseParams struct {
	GroupID     string
	Description string
	Amount      decimal.Decimal
	CreatedBy   string

	// Participants share the expense. nil means every group member; an
	// explicitly empty slice is rejected.
	Participants []string
}

// ExpenseService records expenses and allocates their shares.
type ExpenseService struct {
	store storage.Store
	opts  options
}

func NewExpenseService(store storage.Store, opts ...Option) *ExpenseService {
	return &ExpenseService{store: store, opts: buildOptions("expenses", opts)}
}

// CreateExpense splits params.Amount equally among the participants and
// persists the expense with its split entries in one atomic write.
//
// The creator's own entries start out paid. A creator who is not among the
// participants is allowed; then no entry is pre-paid.
func (s *ExpenseService) CreateExpense(ctx context.Context, params CreateExpenseParams) (*models.Expense, error) {
	group, err := s.store.GetGroup(ctx, params.GroupID)
	if err != nil {
		return nil, err
	}

	participants := params.Participants
	if participants == nil {
		participants = group.Members
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: expense needs at least one participant", models.ErrValidation)
	}
	for _, p := range participants {
		if err := models.ValidateVar("participant", p, "required,max=100"); err != nil {
			return nil, err
		}
		if !group.HasMember(p) {
			return nil, fmt.Errorf("%w: %q is not a member of group %s", models.ErrValidation, p, group.ID)
		}
	}

	now := s.opts.now()
	expense := &models.Expense{
		GroupID:     group.ID,
		Description: params.Description,
		Amount:      params.Amount,
		Date:        now,
		CreatedBy:   params.CreatedBy,
	}
	if err := models.Validate(expense); err != nil {
		return nil, err
	}

	shares, err := calculator.AllocateEqual(params.Amount, len(participants))
	if err != nil {
		return nil, err
	}

	expense.SplitEntries = make([]models.SplitEntry, len(participants))
	for i, p := range participants {
		entry := models.SplitEntry{Participant: p, Share: shares[i]}
		if params.CreatedBy != "" && p == params.CreatedBy {
			entry.MarkPaid(now)
		}
		expense.SplitEntries[i] = entry
	}

	if total := expense.SharesTotal(); !total.Equal(expense.Amount) {
		s.opts.logger.Error("Allocated shares do not add up",
			"amount", models.FormatAmount(expense.Amount),
			"shares_total", models.FormatAmount(total),
			"participants", len(participants),
		)
		return nil, fmt.Errorf("%w: shares total %s, expense amount %s",
			models.ErrConsistency, models.FormatAmount(total), models.FormatAmount(expense.Amount))
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	s.opts.metrics.ExpenseCreated()
	s.opts.logger.Info("Expense created",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"amount", models.FormatAmount(expense.Amount),
		"participants", len(participants),
	)
	return expense, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	return s.store.GetExpense(ctx, expenseID)
}

// ListGroupExpenses returns a group's expenses, most recent first.
func (s *ExpenseService) ListGroupExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListExpensesByGroup(ctx, groupID)
}

// DeleteExpense removes an expense with its split entries and reminders.
func (s *ExpenseService) DeleteExpense(ctx context.Context, expenseID string) error {
	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	s.opts.logger.Info("Expense deleted", "expense_id", expenseID)
	return nil
}
