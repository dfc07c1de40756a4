package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/paymenext/internal/auth"
	"github.com/mmynk/paymenext/internal/ledger"
	"github.com/mmynk/paymenext/internal/middleware"
	"github.com/mmynk/paymenext/internal/notify"
	"github.com/mmynk/paymenext/internal/storage/sqlite"
)

type testEnv struct {
	server *httptest.Server

	mu   sync.Mutex
	sent []notify.Notification
}

func (e *testEnv) notifications() []notify.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]notify.Notification(nil), e.sent...)
}

// setupTestServer serves every API on an httptest server backed by a fresh
// database. With authEnabled, all but Register and Login need a token.
func setupTestServer(t *testing.T, authEnabled bool) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := &testEnv{}
	notifier := notify.NotifierFunc(func(_ context.Context, n notify.Notification) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.sent = append(env.sent, n)
		return nil
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []ledger.Option{ledger.WithLogger(logger), ledger.WithThrottle(0)}
	settlement := ledger.NewSettlementService(store, opts...)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	var handlerOpts []connect.HandlerOption
	if authEnabled {
		handlerOpts = append(handlerOpts, connect.WithInterceptors(middleware.RequireAuth(jwtManager)))
	}
	handlerOpts = append(handlerOpts, connect.WithInterceptors(middleware.LoggingInterceptor(logger)))

	mux := http.NewServeMux()
	mux.Handle(NewAuthServiceHandler(
		NewAuthServer(auth.NewPasswordAuthenticator(store), store, jwtManager, logger),
		jwtManager,
		connect.WithInterceptors(middleware.LoggingInterceptor(logger)),
	))
	mux.Handle(NewGroupServiceHandler(NewGroupServer(ledger.NewGroupService(store, opts...), settlement), handlerOpts...))
	mux.Handle(NewExpenseServiceHandler(NewExpenseServer(ledger.NewExpenseService(store, opts...), settlement), handlerOpts...))
	mux.Handle(NewReminderServiceHandler(NewReminderServer(ledger.NewReminderService(store, notifier, opts...)), handlerOpts...))

	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)
	return env
}

func call[Req, Res any](t *testing.T, env *testEnv, procedure string, msg *Req, token string) (*Res, error) {
	t.Helper()
	client := connect.NewClient[Req, Res](env.server.Client(), env.server.URL+procedure, connect.WithCodec(Codec()))
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	res, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func assertCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	require.Error(t, err)
	var connectErr *connect.Error
	require.True(t, errors.As(err, &connectErr), "expected connect error, got %v", err)
	assert.Equal(t, code, connectErr.Code())
}

func createGroup(t *testing.T, env *testEnv, token string, members ...string) *Group {
	t.Helper()
	res, err := call[CreateGroupRequest, CreateGroupResponse](t, env, GroupServiceCreateGroupProcedure,
		&CreateGroupRequest{Name: "Trip", Members: members}, token)
	require.NoError(t, err)
	return res.Group
}

func TestGroupService(t *testing.T) {
	env := setupTestServer(t, false)

	group := createGroup(t, env, "", "Alice", "Bob")
	assert.NotEmpty(t, group.ID)
	assert.Equal(t, []string{"Alice", "Bob"}, group.Members)

	t.Run("get", func(t *testing.T) {
		res, err := call[GetGroupRequest, GetGroupResponse](t, env, GroupServiceGetGroupProcedure,
			&GetGroupRequest{GroupID: group.ID}, "")
		require.NoError(t, err)
		assert.Equal(t, "Trip", res.Group.Name)
	})

	t.Run("add members", func(t *testing.T) {
		res, err := call[AddMembersRequest, AddMembersResponse](t, env, GroupServiceAddMembersProcedure,
			&AddMembersRequest{GroupID: group.ID, Members: []string{"Carol"}}, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Bob", "Carol"}, res.Group.Members)

		_, err = call[AddMembersRequest, AddMembersResponse](t, env, GroupServiceAddMembersProcedure,
			&AddMembersRequest{GroupID: group.ID}, "")
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("list", func(t *testing.T) {
		res, err := call[ListGroupsRequest, ListGroupsResponse](t, env, GroupServiceListGroupsProcedure,
			&ListGroupsRequest{}, "")
		require.NoError(t, err)
		require.Len(t, res.Groups, 1)
		assert.Equal(t, group.ID, res.Groups[0].ID)
	})

	t.Run("empty total", func(t *testing.T) {
		res, err := call[GetGroupTotalRequest, GetGroupTotalResponse](t, env, GroupServiceGetGroupTotalProcedure,
			&GetGroupTotalRequest{GroupID: group.ID}, "")
		require.NoError(t, err)
		assert.Equal(t, "0.00", res.Total)
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := call[CreateGroupRequest, CreateGroupResponse](t, env, GroupServiceCreateGroupProcedure,
			&CreateGroupRequest{Members: []string{"Alice"}}, "")
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := call[DeleteGroupRequest, DeleteGroupResponse](t, env, GroupServiceDeleteGroupProcedure,
			&DeleteGroupRequest{GroupID: group.ID}, "")
		require.NoError(t, err)

		_, err = call[GetGroupRequest, GetGroupResponse](t, env, GroupServiceGetGroupProcedure,
			&GetGroupRequest{GroupID: group.ID}, "")
		assertCode(t, err, connect.CodeNotFound)
	})
}

func TestExpenseService(t *testing.T) {
	env := setupTestServer(t, false)
	group := createGroup(t, env, "", "Alice", "Bob", "Carol")

	res, err := call[CreateExpenseRequest, CreateExpenseResponse](t, env, ExpenseServiceCreateExpenseProcedure,
		&CreateExpenseRequest{GroupID: group.ID, Description: "Dinner", Amount: "100", CreatedBy: "Alice"}, "")
	require.NoError(t, err)
	expense := res.Expense

	assert.Equal(t, "100.00", expense.Amount)
	require.Len(t, expense.SplitEntries, 3)
	assert.Equal(t, "33.34", expense.SplitEntries[0].Share)
	assert.Equal(t, "33.33", expense.SplitEntries[1].Share)
	assert.Equal(t, "33.33", expense.SplitEntries[2].Share)
	assert.True(t, expense.SplitEntries[0].Paid, "creator's own share starts paid")
	assert.False(t, expense.SplitEntries[1].Paid)

	bob := expense.SplitEntries[1]

	t.Run("validation", func(t *testing.T) {
		_, err := call[CreateExpenseRequest, CreateExpenseResponse](t, env, ExpenseServiceCreateExpenseProcedure,
			&CreateExpenseRequest{GroupID: group.ID, Description: "Taxi", Amount: "abc"}, "")
		assertCode(t, err, connect.CodeInvalidArgument)

		_, err = call[CreateExpenseRequest, CreateExpenseResponse](t, env, ExpenseServiceCreateExpenseProcedure,
			&CreateExpenseRequest{GroupID: group.ID, Description: "Taxi", Amount: "10", Participants: []string{}}, "")
		assertCode(t, err, connect.CodeInvalidArgument)

		_, err = call[CreateExpenseRequest, CreateExpenseResponse](t, env, ExpenseServiceCreateExpenseProcedure,
			&CreateExpenseRequest{GroupID: "missing", Description: "Taxi", Amount: "10"}, "")
		assertCode(t, err, connect.CodeNotFound)
	})

	t.Run("group total", func(t *testing.T) {
		res, err := call[GetGroupTotalRequest, GetGroupTotalResponse](t, env, GroupServiceGetGroupTotalProcedure,
			&GetGroupTotalRequest{GroupID: group.ID}, "")
		require.NoError(t, err)
		assert.Equal(t, "100.00", res.Total)
	})

	t.Run("balances", func(t *testing.T) {
		res, err := call[GetGroupBalancesRequest, GetGroupBalancesResponse](t, env, GroupServiceGetGroupBalancesProcedure,
			&GetGroupBalancesRequest{GroupID: group.ID}, "")
		require.NoError(t, err)
		assert.ElementsMatch(t, []Debt{
			{From: "Bob", To: "Alice", Amount: "33.33"},
			{From: "Carol", To: "Alice", Amount: "33.33"},
		}, res.Debts)
	})

	t.Run("toggle paid", func(t *testing.T) {
		res, err := call[TogglePaidRequest, TogglePaidResponse](t, env, ExpenseServiceTogglePaidProcedure,
			&TogglePaidRequest{SplitEntryID: bob.ID}, "")
		require.NoError(t, err)
		assert.True(t, res.Found)

		entries, err := call[ListSplitEntriesRequest, ListSplitEntriesResponse](t, env, ExpenseServiceListSplitEntriesProcedure,
			&ListSplitEntriesRequest{ExpenseID: expense.ID}, "")
		require.NoError(t, err)
		require.Len(t, entries.SplitEntries, 3)
		assert.True(t, entries.SplitEntries[1].Paid)
		assert.NotNil(t, entries.SplitEntries[1].PaidAt)

		missing, err := call[TogglePaidRequest, TogglePaidResponse](t, env, ExpenseServiceTogglePaidProcedure,
			&TogglePaidRequest{SplitEntryID: "missing"}, "")
		require.NoError(t, err)
		assert.False(t, missing.Found)
	})

	t.Run("unpaid", func(t *testing.T) {
		res, err := call[ListUnpaidRequest, ListUnpaidResponse](t, env, ExpenseServiceListUnpaidProcedure,
			&ListUnpaidRequest{Participant: "Carol"}, "")
		require.NoError(t, err)
		require.Len(t, res.Splits, 1)
		assert.Equal(t, "Dinner", res.Splits[0].ExpenseDescription)
		assert.Equal(t, "Trip", res.Splits[0].GroupName)
		assert.Equal(t, "33.33", res.Splits[0].Share)

		_, err = call[ListUnpaidRequest, ListUnpaidResponse](t, env, ExpenseServiceListUnpaidProcedure,
			&ListUnpaidRequest{}, "")
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("list and delete", func(t *testing.T) {
		list, err := call[ListExpensesRequest, ListExpensesResponse](t, env, ExpenseServiceListExpensesProcedure,
			&ListExpensesRequest{GroupID: group.ID}, "")
		require.NoError(t, err)
		require.Len(t, list.Expenses, 1)

		_, err = call[DeleteExpenseRequest, DeleteExpenseResponse](t, env, ExpenseServiceDeleteExpenseProcedure,
			&DeleteExpenseRequest{ExpenseID: expense.ID}, "")
		require.NoError(t, err)

		_, err = call[GetExpenseRequest, GetExpenseResponse](t, env, ExpenseServiceGetExpenseProcedure,
			&GetExpenseRequest{ExpenseID: expense.ID}, "")
		assertCode(t, err, connect.CodeNotFound)
	})
}

func TestReminderService(t *testing.T) {
	env := setupTestServer(t, false)
	group := createGroup(t, env, "", "Alice", "Bob")

	res, err := call[CreateExpenseRequest, CreateExpenseResponse](t, env, ExpenseServiceCreateExpenseProcedure,
		&CreateExpenseRequest{GroupID: group.ID, Description: "Rental", Amount: "50", CreatedBy: "Alice"}, "")
	require.NoError(t, err)
	bob := res.Expense.SplitEntries[1]

	scheduled, err := call[ScheduleReminderRequest, ScheduleReminderResponse](t, env, ReminderServiceScheduleReminderProcedure,
		&ScheduleReminderRequest{SplitEntryID: bob.ID, RemindAt: time.Now().Add(-time.Minute)}, "")
	require.NoError(t, err)
	assert.Equal(t, "Reminder: You owe 25.00 for 'Rental' in group 'Trip'", scheduled.Reminder.Message)
	assert.False(t, scheduled.Reminder.Sent)

	_, err = call[ScheduleReminderRequest, ScheduleReminderResponse](t, env, ReminderServiceScheduleReminderProcedure,
		&ScheduleReminderRequest{SplitEntryID: "missing", RemindAt: time.Now()}, "")
	assertCode(t, err, connect.CodeNotFound)

	dispatched, err := call[DispatchDueRequest, DispatchDueResponse](t, env, ReminderServiceDispatchDueProcedure,
		&DispatchDueRequest{}, "")
	require.NoError(t, err)
	require.Len(t, dispatched.Reminders, 1)
	assert.True(t, dispatched.Reminders[0].Sent)

	sent := env.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, "Bob", sent[0].Recipient)
	assert.Equal(t, notify.DefaultTitle, sent[0].Title)

	manual, err := call[SendManualReminderRequest, SendManualReminderResponse](t, env, ReminderServiceSendManualReminderProcedure,
		&SendManualReminderRequest{SplitEntryID: bob.ID, Message: "Please pay"}, "")
	require.NoError(t, err)
	assert.True(t, manual.Sent)
	assert.Len(t, env.notifications(), 2)

	missing, err := call[SendManualReminderRequest, SendManualReminderResponse](t, env, ReminderServiceSendManualReminderProcedure,
		&SendManualReminderRequest{SplitEntryID: "missing", Message: "Please pay"}, "")
	require.NoError(t, err)
	assert.False(t, missing.Sent)

	list, err := call[ListRemindersRequest, ListRemindersResponse](t, env, ReminderServiceListRemindersProcedure,
		&ListRemindersRequest{SplitEntryID: bob.ID}, "")
	require.NoError(t, err)
	require.Len(t, list.Reminders, 2)
	for _, r := range list.Reminders {
		assert.True(t, r.Sent)
	}
}

func TestAuthenticatedFlow(t *testing.T) {
	env := setupTestServer(t, true)

	reg, err := call[RegisterRequest, RegisterResponse](t, env, AuthServiceRegisterProcedure,
		&RegisterRequest{Email: "alice@example.com", DisplayName: "Alice", Password: "correct-horse"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, reg.Token)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := call[RegisterRequest, RegisterResponse](t, env, AuthServiceRegisterProcedure,
			&RegisterRequest{Email: "alice@example.com", DisplayName: "Alice", Password: "correct-horse"}, "")
		assertCode(t, err, connect.CodeAlreadyExists)
	})

	t.Run("login", func(t *testing.T) {
		res, err := call[LoginRequest, LoginResponse](t, env, AuthServiceLoginProcedure,
			&LoginRequest{Email: "alice@example.com", Password: "correct-horse"}, "")
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, res.User.ID)

		_, err = call[LoginRequest, LoginResponse](t, env, AuthServiceLoginProcedure,
			&LoginRequest{Email: "alice@example.com", Password: "wrong-password"}, "")
		assertCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("me", func(t *testing.T) {
		res, err := call[MeRequest, MeResponse](t, env, AuthServiceMeProcedure, &MeRequest{}, reg.Token)
		require.NoError(t, err)
		assert.Equal(t, "Alice", res.User.DisplayName)

		_, err = call[MeRequest, MeResponse](t, env, AuthServiceMeProcedure, &MeRequest{}, "")
		assertCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("token required", func(t *testing.T) {
		_, err := call[ListGroupsRequest, ListGroupsResponse](t, env, GroupServiceListGroupsProcedure,
			&ListGroupsRequest{}, "")
		assertCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("caller is the creator", func(t *testing.T) {
		group := createGroup(t, env, reg.Token, "Alice", "Bob")

		res, err := call[CreateExpenseRequest, CreateExpenseResponse](t, env, ExpenseServiceCreateExpenseProcedure,
			&CreateExpenseRequest{GroupID: group.ID, Description: "Fuel", Amount: "20", CreatedBy: "Bob"}, reg.Token)
		require.NoError(t, err)
		assert.Equal(t, "Alice", res.Expense.CreatedBy)
		assert.True(t, res.Expense.SplitEntries[0].Paid)
		assert.False(t, res.Expense.SplitEntries[1].Paid)

		unpaid, err := call[ListUnpaidRequest, ListUnpaidResponse](t, env, ExpenseServiceListUnpaidProcedure,
			&ListUnpaidRequest{}, reg.Token)
		require.NoError(t, err)
		assert.Empty(t, unpaid.Splits)
	})
}
