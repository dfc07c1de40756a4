package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mmynk/paymenext/internal/calculator"
	"github.com/mmynk/paymenext/internal/models"
	"github.com/mmynk/paymenext/internal/storage"
)

// SettlementService tracks which shares have been paid back.
type SettlementService struct {
	store storage.Store
	opts  options
}

func NewSettlementService(store storage.Store, opts ...Option) *SettlementService {
	return &SettlementService{store: store, opts: buildOptions("settlement", opts)}
}

// TogglePaid flips the paid state of a split entry and reports whether the
// entry exists. Paying an entry cancels its pending reminders; un-paying
// schedules nothing.
func (s *SettlementService) TogglePaid(ctx context.Context, splitEntryID string) (bool, error) {
	entry, cancelled, err := s.store.ToggleSplitEntryPaid(ctx, splitEntryID, s.opts.now())
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle split entry: %w", err)
	}

	s.opts.metrics.SplitToggled(entry.Paid)
	s.opts.logger.Info("Split entry toggled",
		"split_entry_id", entry.ID,
		"participant", entry.Participant,
		"paid", entry.Paid,
		"reminders_cancelled", cancelled,
	)
	return true, nil
}

// ListSplitEntries returns an expense's entries in allocation order.
func (s *SettlementService) ListSplitEntries(ctx context.Context, expenseID string) ([]*models.SplitEntry, error) {
	if _, err := s.store.GetExpense(ctx, expenseID); err != nil {
		return nil, err
	}
	return s.store.ListSplitEntries(ctx, expenseID)
}

// GroupTotal sums the amounts of every expense in a group.
func (s *SettlementService) GroupTotal(ctx context.Context, groupID string) (decimal.Decimal, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return decimal.Zero, err
	}
	return s.store.SumGroupExpenses(ctx, groupID)
}

// UnpaidForParticipant lists a participant's unpaid entries, most recent
// expense first.
func (s *SettlementService) UnpaidForParticipant(ctx context.Context, participant string) ([]*models.UnpaidSplit, error) {
	if err := models.ValidateVar("participant", participant, "required,max=100"); err != nil {
		return nil, err
	}
	return s.store.ListUnpaidSplits(ctx, participant)
}

// GroupBalances is the outstanding position of a group.
type GroupBalances struct {
	Balances []calculator.MemberBalance
	Debts    []calculator.DebtEdge
}

// GroupBalances computes who still owes whom from the group's unpaid entries.
// The creditor of an entry is the expense creator.
func (s *SettlementService) GroupBalances(ctx context.Context, groupID string) (*GroupBalances, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	splits, err := s.store.ListGroupSplitEntries(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list split entries: %w", err)
	}

	entries := lo.Map(splits, func(split *models.UnpaidSplit, _ int) calculator.EntryForBalance {
		return calculator.EntryForBalance{
			Participant: split.Participant,
			Creditor:    split.ExpenseCreatedBy,
			Share:       split.Share,
			Paid:        split.Paid,
		}
	})

	balances, debts := calculator.CalculateGroupBalances(entries)
	return &GroupBalances{Balances: balances, Debts: debts}, nil
}
