package service

import (
	"time"

	"github.com/samber/lo"

	"github.com/mmynk/paymenext/internal/calculator"
	"github.com/mmynk/paymenext/internal/ledger"
	"github.com/mmynk/paymenext/internal/models"
)

// Wire types of the paymenext.v1 API. Amounts are decimal strings with two
// fractional digits.

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

type SplitEntry struct {
	ID          string     `json:"id"`
	ExpenseID   string     `json:"expense_id"`
	Participant string     `json:"participant"`
	Share       string     `json:"share"`
	Paid        bool       `json:"paid"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

type Expense struct {
	ID           string       `json:"id"`
	GroupID      string       `json:"group_id"`
	Description  string       `json:"description"`
	Amount       string       `json:"amount"`
	Date         time.Time    `json:"date"`
	CreatedBy    string       `json:"created_by"`
	SplitEntries []SplitEntry `json:"split_entries"`
}

type UnpaidSplit struct {
	SplitEntry
	ExpenseDescription string    `json:"expense_description"`
	ExpenseDate        time.Time `json:"expense_date"`
	ExpenseCreatedBy   string    `json:"expense_created_by"`
	GroupID            string    `json:"group_id"`
	GroupName          string    `json:"group_name"`
}

type Reminder struct {
	ID           string     `json:"id"`
	SplitEntryID string     `json:"split_entry_id"`
	RemindAt     time.Time  `json:"remind_at"`
	Sent         bool       `json:"sent"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	Message      string     `json:"message"`
}

type MemberBalance struct {
	MemberName string `json:"member_name"`
	NetBalance string `json:"net_balance"`
	IsOwed     string `json:"is_owed"`
	Owes       string `json:"owes"`
}

type Debt struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthService messages.

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type MeRequest struct{}

type MeResponse struct {
	User *User `json:"user"`
}

// GroupService messages.

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddMembersRequest struct {
	GroupID string   `json:"group_id"`
	Members []string `json:"members"`
}

type AddMembersResponse struct {
	Group *Group `json:"group"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"group_id"`
}

type DeleteGroupResponse struct{}

type GetGroupTotalRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupTotalResponse struct {
	Total string `json:"total"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupBalancesResponse struct {
	Balances []MemberBalance `json:"balances"`
	Debts    []Debt          `json:"debts"`
}

// ExpenseService messages.

type CreateExpenseRequest struct {
	GroupID     string `json:"group_id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	CreatedBy   string `json:"created_by"`
	// Participants defaults to the group members when absent or null. An
	// empty array is rejected.
	Participants []string `json:"participants"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupID string `json:"group_id"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}

type ListSplitEntriesRequest struct {
	ExpenseID string `json:"expense_id"`
}

type ListSplitEntriesResponse struct {
	SplitEntries []SplitEntry `json:"split_entries"`
}

type TogglePaidRequest struct {
	SplitEntryID string `json:"split_entry_id"`
}

type TogglePaidResponse struct {
	Found bool `json:"found"`
}

type ListUnpaidRequest struct {
	// Participant defaults to the authenticated caller.
	Participant string `json:"participant"`
}

type ListUnpaidResponse struct {
	Splits []UnpaidSplit `json:"splits"`
}

// ReminderService messages.

type ScheduleReminderRequest struct {
	SplitEntryID string    `json:"split_entry_id"`
	RemindAt     time.Time `json:"remind_at"`
	Message      string    `json:"message"`
}

type ScheduleReminderResponse struct {
	Reminder *Reminder `json:"reminder"`
}

type ListRemindersRequest struct {
	SplitEntryID string `json:"split_entry_id"`
}

type ListRemindersResponse struct {
	Reminders []Reminder `json:"reminders"`
}

type SendManualReminderRequest struct {
	SplitEntryID string `json:"split_entry_id"`
	Message      string `json:"message"`
}

type SendManualReminderResponse struct {
	Sent bool `json:"sent"`
}

type DispatchDueRequest struct{}

type DispatchDueResponse struct {
	Reminders []Reminder `json:"reminders"`
}

// Conversions from domain models.

func toGroup(g *models.Group) *Group {
	return &Group{ID: g.ID, Name: g.Name, Members: g.Members, CreatedAt: g.CreatedAt}
}

func toSplitEntry(e models.SplitEntry) SplitEntry {
	return SplitEntry{
		ID:          e.ID,
		ExpenseID:   e.ExpenseID,
		Participant: e.Participant,
		Share:       models.FormatAmount(e.Share),
		Paid:        e.Paid,
		PaidAt:      e.PaidAt,
	}
}

func toExpense(e *models.Expense) *Expense {
	return &Expense{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Description:  e.Description,
		Amount:       models.FormatAmount(e.Amount),
		Date:         e.Date,
		CreatedBy:    e.CreatedBy,
		SplitEntries: lo.Map(e.SplitEntries, func(s models.SplitEntry, _ int) SplitEntry { return toSplitEntry(s) }),
	}
}

func toUnpaidSplit(s *models.UnpaidSplit, _ int) UnpaidSplit {
	return UnpaidSplit{
		SplitEntry:         toSplitEntry(s.SplitEntry),
		ExpenseDescription: s.ExpenseDescription,
		ExpenseDate:        s.ExpenseDate,
		ExpenseCreatedBy:   s.ExpenseCreatedBy,
		GroupID:            s.GroupID,
		GroupName:          s.GroupName,
	}
}

func toReminder(r models.Reminder) Reminder {
	return Reminder{
		ID:           r.ID,
		SplitEntryID: r.SplitEntryID,
		RemindAt:     r.RemindAt,
		Sent:         r.Sent,
		SentAt:       r.SentAt,
		Message:      r.Message,
	}
}

func toBalances(b *ledger.GroupBalances) *GetGroupBalancesResponse {
	return &GetGroupBalancesResponse{
		Balances: lo.Map(b.Balances, func(m calculator.MemberBalance, _ int) MemberBalance {
			return MemberBalance{
				MemberName: m.MemberName,
				NetBalance: models.FormatAmount(m.NetBalance),
				IsOwed:     models.FormatAmount(m.IsOwed),
				Owes:       models.FormatAmount(m.Owes),
			}
		}),
		Debts: lo.Map(b.Debts, func(d calculator.DebtEdge, _ int) Debt {
			return Debt{From: d.From, To: d.To, Amount: models.FormatAmount(d.Amount)}
		}),
	}
}

func toUser(u *models.User) *User {
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   time.Unix(u.CreatedAt, 0).UTC(),
	}
}
