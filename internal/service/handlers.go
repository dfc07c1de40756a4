package service

import (
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/paymenext/internal/auth"
	"github.com/mmynk/paymenext/internal/middleware"
)

const (
	AuthServiceName     = "paymenext.v1.AuthService"
	GroupServiceName    = "paymenext.v1.GroupService"
	ExpenseServiceName  = "paymenext.v1.ExpenseService"
	ReminderServiceName = "paymenext.v1.ReminderService"
)

const (
	AuthServiceRegisterProcedure = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure    = "/" + AuthServiceName + "/Login"
	AuthServiceMeProcedure       = "/" + AuthServiceName + "/Me"

	GroupServiceCreateGroupProcedure      = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure         = "/" + GroupServiceName + "/GetGroup"
	GroupServiceListGroupsProcedure       = "/" + GroupServiceName + "/ListGroups"
	GroupServiceAddMembersProcedure       = "/" + GroupServiceName + "/AddMembers"
	GroupServiceDeleteGroupProcedure      = "/" + GroupServiceName + "/DeleteGroup"
	GroupServiceGetGroupTotalProcedure    = "/" + GroupServiceName + "/GetGroupTotal"
	GroupServiceGetGroupBalancesProcedure = "/" + GroupServiceName + "/GetGroupBalances"

	ExpenseServiceCreateExpenseProcedure    = "/" + ExpenseServiceName + "/CreateExpense"
	ExpenseServiceGetExpenseProcedure       = "/" + ExpenseServiceName + "/GetExpense"
	ExpenseServiceListExpensesProcedure     = "/" + ExpenseServiceName + "/ListExpenses"
	ExpenseServiceDeleteExpenseProcedure    = "/" + ExpenseServiceName + "/DeleteExpense"
	ExpenseServiceListSplitEntriesProcedure = "/" + ExpenseServiceName + "/ListSplitEntries"
	ExpenseServiceTogglePaidProcedure       = "/" + ExpenseServiceName + "/TogglePaid"
	ExpenseServiceListUnpaidProcedure       = "/" + ExpenseServiceName + "/ListUnpaid"

	ReminderServiceScheduleReminderProcedure   = "/" + ReminderServiceName + "/ScheduleReminder"
	ReminderServiceListRemindersProcedure      = "/" + ReminderServiceName + "/ListReminders"
	ReminderServiceSendManualReminderProcedure = "/" + ReminderServiceName + "/SendManualReminder"
	ReminderServiceDispatchDueProcedure        = "/" + ReminderServiceName + "/DispatchDue"
)

// Codec returns the codec every handler and client of this API uses.
func Codec() connect.Codec { return jsonCodec{} }

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
}

type routes map[string]http.Handler

func (r routes) mount(service string) (string, http.Handler) {
	mux := http.NewServeMux()
	for procedure, h := range r {
		mux.Handle(procedure, h)
	}
	return "/" + service + "/", mux
}

// NewAuthServiceHandler builds the account handlers. Register and Login are
// always public; Me requires a token signed by jwtManager.
func NewAuthServiceHandler(s *AuthServer, jwtManager *auth.JWTManager, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	meOpts := append(append([]connect.HandlerOption{}, opts...),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager)))

	return routes{
		AuthServiceRegisterProcedure: connect.NewUnaryHandler(AuthServiceRegisterProcedure, s.Register, opts...),
		AuthServiceLoginProcedure:    connect.NewUnaryHandler(AuthServiceLoginProcedure, s.Login, opts...),
		AuthServiceMeProcedure:       connect.NewUnaryHandler(AuthServiceMeProcedure, s.Me, meOpts...),
	}.mount(AuthServiceName)
}

func NewGroupServiceHandler(s *GroupServer, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return routes{
		GroupServiceCreateGroupProcedure:      connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, s.CreateGroup, opts...),
		GroupServiceGetGroupProcedure:         connect.NewUnaryHandler(GroupServiceGetGroupProcedure, s.GetGroup, opts...),
		GroupServiceListGroupsProcedure:       connect.NewUnaryHandler(GroupServiceListGroupsProcedure, s.ListGroups, opts...),
		GroupServiceAddMembersProcedure:       connect.NewUnaryHandler(GroupServiceAddMembersProcedure, s.AddMembers, opts...),
		GroupServiceDeleteGroupProcedure:      connect.NewUnaryHandler(GroupServiceDeleteGroupProcedure, s.DeleteGroup, opts...),
		GroupServiceGetGroupTotalProcedure:    connect.NewUnaryHandler(GroupServiceGetGroupTotalProcedure, s.GetGroupTotal, opts...),
		GroupServiceGetGroupBalancesProcedure: connect.NewUnaryHandler(GroupServiceGetGroupBalancesProcedure, s.GetGroupBalances, opts...),
	}.mount(GroupServiceName)
}

func NewExpenseServiceHandler(s *ExpenseServer, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return routes{
		ExpenseServiceCreateExpenseProcedure:    connect.NewUnaryHandler(ExpenseServiceCreateExpenseProcedure, s.CreateExpense, opts...),
		ExpenseServiceGetExpenseProcedure:       connect.NewUnaryHandler(ExpenseServiceGetExpenseProcedure, s.GetExpense, opts...),
		ExpenseServiceListExpensesProcedure:     connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, s.ListExpenses, opts...),
		ExpenseServiceDeleteExpenseProcedure:    connect.NewUnaryHandler(ExpenseServiceDeleteExpenseProcedure, s.DeleteExpense, opts...),
		ExpenseServiceListSplitEntriesProcedure: connect.NewUnaryHandler(ExpenseServiceListSplitEntriesProcedure, s.ListSplitEntries, opts...),
		ExpenseServiceTogglePaidProcedure:       connect.NewUnaryHandler(ExpenseServiceTogglePaidProcedure, s.TogglePaid, opts...),
		ExpenseServiceListUnpaidProcedure:       connect.NewUnaryHandler(ExpenseServiceListUnpaidProcedure, s.ListUnpaid, opts...),
	}.mount(ExpenseServiceName)
}

func NewReminderServiceHandler(s *ReminderServer, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return routes{
		ReminderServiceScheduleReminderProcedure:   connect.NewUnaryHandler(ReminderServiceScheduleReminderProcedure, s.ScheduleReminder, opts...),
		ReminderServiceListRemindersProcedure:      connect.NewUnaryHandler(ReminderServiceListRemindersProcedure, s.ListReminders, opts...),
		ReminderServiceSendManualReminderProcedure: connect.NewUnaryHandler(ReminderServiceSendManualReminderProcedure, s.SendManualReminder, opts...),
		ReminderServiceDispatchDueProcedure:        connect.NewUnaryHandler(ReminderServiceDispatchDueProcedure, s.DispatchDue, opts...),
	}.mount(ReminderServiceName)
}
