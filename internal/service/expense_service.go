package service

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mmynk/paymenext/internal/ledger"
	"github.com/mmynk/paymenext/internal/middleware"
	"github.com/mmynk/paymenext/internal/models"
)

// ExpenseServer implements paymenext.v1.ExpenseService.
type ExpenseServer struct {
	expenses   *ledger.ExpenseService
	settlement *ledger.SettlementService
}

func NewExpenseServer(expenses *ledger.ExpenseService, settlement *ledger.SettlementService) *ExpenseServer {
	return &ExpenseServer{expenses: expenses, settlement: settlement}
}

// CreateExpense records an expense split equally among its participants.
// An authenticated caller is always the creator.
func (s *ExpenseServer) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	amount, err := decimal.NewFromString(req.Msg.Amount)
	if err != nil {
		return nil, toConnectError(fmt.Errorf("%w: invalid amount %q", models.ErrValidation, req.Msg.Amount))
	}

	createdBy := req.Msg.CreatedBy
	if participant := middleware.GetParticipant(ctx); participant != "" {
		createdBy = participant
	}

	expense, err := s.expenses.CreateExpense(ctx, ledger.CreateExpenseParams{
		GroupID:      req.Msg.GroupID,
		Description:  req.Msg.Description,
		Amount:       amount,
		CreatedBy:    createdBy,
		Participants: req.Msg.Participants,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CreateExpenseResponse{Expense: toExpense(expense)}), nil
}

func (s *ExpenseServer) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	expense, err := s.expenses.GetExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetExpenseResponse{Expense: toExpense(expense)}), nil
}

func (s *ExpenseServer) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	expenses, err := s.expenses.ListGroupExpenses(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListExpensesResponse{
		Expenses: lo.Map(expenses, func(e *models.Expense, _ int) *Expense { return toExpense(e) }),
	}), nil
}

func (s *ExpenseServer) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	if err := s.expenses.DeleteExpense(ctx, req.Msg.ExpenseID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteExpenseResponse{}), nil
}

func (s *ExpenseServer) ListSplitEntries(ctx context.Context, req *connect.Request[ListSplitEntriesRequest]) (*connect.Response[ListSplitEntriesResponse], error) {
	entries, err := s.settlement.ListSplitEntries(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListSplitEntriesResponse{
		SplitEntries: lo.Map(entries, func(e *models.SplitEntry, _ int) SplitEntry { return toSplitEntry(*e) }),
	}), nil
}

// TogglePaid flips a split entry between paid and unpaid. An unknown entry
// is reported as found=false rather than an error.
func (s *ExpenseServer) TogglePaid(ctx context.Context, req *connect.Request[TogglePaidRequest]) (*connect.Response[TogglePaidResponse], error) {
	found, err := s.settlement.TogglePaid(ctx, req.Msg.SplitEntryID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&TogglePaidResponse{Found: found}), nil
}

// ListUnpaid lists the unpaid shares of a participant, defaulting to the
// caller.
func (s *ExpenseServer) ListUnpaid(ctx context.Context, req *connect.Request[ListUnpaidRequest]) (*connect.Response[ListUnpaidResponse], error) {
	participant := req.Msg.Participant
	if participant == "" {
		participant = middleware.GetParticipant(ctx)
	}

	splits, err := s.settlement.UnpaidForParticipant(ctx, participant)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListUnpaidResponse{Splits: lo.Map(splits, toUnpaidSplit)}), nil
}
