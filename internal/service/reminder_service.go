package service

import (
	"context"

	"connectrpc.com/connect"
	"github.com/samber/lo"

	"github.com/mmynk/paymenext/internal/ledger"
	"github.com/mmynk/paymenext/internal/models"
)

// ReminderServer implements paymenext.v1.ReminderService.
type ReminderServer struct {
	reminders *ledger.ReminderService
}

func NewReminderServer(reminders *ledger.ReminderService) *ReminderServer {
	return &ReminderServer{reminders: reminders}
}

func (s *ReminderServer) ScheduleReminder(ctx context.Context, req *connect.Request[ScheduleReminderRequest]) (*connect.Response[ScheduleReminderResponse], error) {
	reminder, err := s.reminders.Schedule(ctx, req.Msg.SplitEntryID, req.Msg.RemindAt, req.Msg.Message)
	if err != nil {
		return nil, toConnectError(err)
	}
	r := toReminder(*reminder)
	return connect.NewResponse(&ScheduleReminderResponse{Reminder: &r}), nil
}

func (s *ReminderServer) ListReminders(ctx context.Context, req *connect.Request[ListRemindersRequest]) (*connect.Response[ListRemindersResponse], error) {
	reminders, err := s.reminders.ListReminders(ctx, req.Msg.SplitEntryID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListRemindersResponse{
		Reminders: lo.Map(reminders, func(r *models.Reminder, _ int) Reminder { return toReminder(*r) }),
	}), nil
}

// SendManualReminder notifies a participant immediately. sent=false means
// the entry is unknown or the notifier failed.
func (s *ReminderServer) SendManualReminder(ctx context.Context, req *connect.Request[SendManualReminderRequest]) (*connect.Response[SendManualReminderResponse], error) {
	sent, err := s.reminders.SendManual(ctx, req.Msg.SplitEntryID, req.Msg.Message)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SendManualReminderResponse{Sent: sent}), nil
}

// DispatchDue runs one dispatch pass outside the scheduler.
func (s *ReminderServer) DispatchDue(ctx context.Context, _ *connect.Request[DispatchDueRequest]) (*connect.Response[DispatchDueResponse], error) {
	sent, err := s.reminders.DispatchDue(ctx)
	if err != nil && ctx.Err() == nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DispatchDueResponse{Reminders: lo.Map(sent, func(r models.Reminder, _ int) Reminder { return toReminder(r) })}), nil
}
