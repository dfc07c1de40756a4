package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/paymenext/internal/models"
	"github.com/mmynk/paymenext/internal/notify"
	"github.com/mmynk/paymenext/internal/storage"
)

// DefaultReminderMessage is the text sent when a reminder has no custom
// message.
func DefaultReminderMessage(share decimal.Decimal, description, group string) string {
	return fmt.Sprintf("Reminder: You owe %s for '%s' in group '%s'",
		models.FormatAmount(share), description, group)
}

// ManualReminderMessage is the text of an immediate reminder.
func ManualReminderMessage(message string, share decimal.Decimal, description string) string {
	return fmt.Sprintf("Manual Reminder: %s - You owe %s for '%s'",
		message, models.FormatAmount(share), description)
}

// ReminderService schedules payment reminders and dispatches the due ones.
type ReminderService struct {
	store    storage.Store
	notifier notify.Notifier
	opts     options
}

func NewReminderService(store storage.Store, notifier notify.Notifier, opts ...Option) *ReminderService {
	o := buildOptions("reminders", opts)
	if o.icon == "" {
		o.icon = notify.DefaultIcon
	}
	return &ReminderService{store: store, notifier: notifier, opts: o}
}

// Schedule creates a reminder for a split entry. An empty message is
// replaced by DefaultReminderMessage.
//
// remindAt is rounded up to the next whole millisecond, the precision the
// store keeps, so the reminder never fires before the requested time.
func (s *ReminderService) Schedule(ctx context.Context, splitEntryID string, remindAt time.Time, message string) (*models.Reminder, error) {
	if remindAt.IsZero() {
		return nil, fmt.Errorf("%w: remind time is required", models.ErrValidation)
	}
	if err := models.ValidateVar("message", message, "max=500"); err != nil {
		return nil, err
	}

	detail, err := s.store.GetSplitEntryDetail(ctx, splitEntryID)
	if err != nil {
		return nil, err
	}

	if message == "" {
		message = DefaultReminderMessage(detail.Share, detail.ExpenseDescription, detail.GroupName)
	}

	reminder := &models.Reminder{
		SplitEntryID: splitEntryID,
		RemindAt:     ceilMillis(remindAt.UTC()),
		Message:      message,
	}
	if err := s.store.CreateReminder(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	s.opts.logger.Info("Reminder scheduled",
		"reminder_id", reminder.ID,
		"split_entry_id", splitEntryID,
		"remind_at", reminder.RemindAt,
	)
	return reminder, nil
}

// ListReminders returns a split entry's reminders, sent or not.
func (s *ReminderService) ListReminders(ctx context.Context, splitEntryID string) ([]*models.Reminder, error) {
	if _, err := s.store.GetSplitEntry(ctx, splitEntryID); err != nil {
		return nil, err
	}
	return s.store.ListReminders(ctx, splitEntryID)
}

// SendManual notifies the participant of a split entry right away and
// records the reminder as already sent. It reports false when the entry does
// not exist or the notifier fails.
func (s *ReminderService) SendManual(ctx context.Context, splitEntryID, message string) (bool, error) {
	if err := models.ValidateVar("message", message, "max=500"); err != nil {
		return false, err
	}

	detail, err := s.store.GetSplitEntryDetail(ctx, splitEntryID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get split entry: %w", err)
	}

	body := ManualReminderMessage(message, detail.Share, detail.ExpenseDescription)
	if err := s.notifier.Notify(ctx, s.notification(detail.Participant, body)); err != nil {
		s.opts.metrics.NotifyFailed()
		s.opts.logger.Warn("Manual reminder failed",
			"split_entry_id", splitEntryID,
			"error", err,
		)
		return false, nil
	}

	now := s.opts.now()
	reminder := &models.Reminder{
		SplitEntryID: splitEntryID,
		RemindAt:     now,
		Message:      body,
	}
	reminder.MarkSent(now)
	if err := s.store.CreateReminder(context.WithoutCancel(ctx), reminder); err != nil {
		return false, fmt.Errorf("failed to record manual reminder: %w", err)
	}

	s.opts.metrics.ReminderDispatched()
	s.opts.logger.Info("Manual reminder sent",
		"reminder_id", reminder.ID,
		"split_entry_id", splitEntryID,
		"participant", detail.Participant,
	)
	return true, nil
}

// DispatchDue sends every unsent reminder whose remind time has passed, in
// ascending remind time, and returns the ones marked sent.
//
// A reminder whose notification fails stays unsent and is retried by a later
// call. Cancelling ctx stops the dispatch between two reminders; the reminder
// in flight always completes.
func (s *ReminderService) DispatchDue(ctx context.Context) ([]models.Reminder, error) {
	due, err := s.store.ListDueReminders(context.WithoutCancel(ctx), s.opts.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	if len(due) == 0 {
		return nil, nil
	}

	s.opts.logger.Debug("Dispatching due reminders", "count", len(due))

	sent := make([]models.Reminder, 0, len(due))
	for i, d := range due {
		if i > 0 {
			if err := s.opts.sleep(ctx, s.opts.throttle); err != nil {
				s.opts.logger.Info("Dispatch interrupted",
					"sent", len(sent),
					"remaining", len(due)-i,
				)
				return sent, err
			}
		}

		if reminder, ok := s.dispatchOne(ctx, d); ok {
			sent = append(sent, reminder)
		}
	}
	return sent, nil
}

// dispatchOne notifies and marks a single reminder. Panics are recovered so
// one bad reminder cannot stop the rest of the cycle.
func (s *ReminderService) dispatchOne(ctx context.Context, d *models.DueReminder) (reminder models.Reminder, ok bool) {
	logger := s.opts.logger.With("reminder_id", d.ID, "split_entry_id", d.SplitEntryID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while dispatching reminder", "panic", r)
			ok = false
		}
	}()

	if !d.IsDue(s.opts.now()) {
		logger.Debug("Reminder is not due yet", "remind_at", d.RemindAt)
		return models.Reminder{}, false
	}

	ctx = context.WithoutCancel(ctx)

	body := d.Message
	if body == "" {
		body = DefaultReminderMessage(d.Share, d.ExpenseDescription, d.GroupName)
	}

	if err := s.notifier.Notify(ctx, s.notification(d.Participant, body)); err != nil {
		s.opts.metrics.NotifyFailed()
		logger.Warn("Reminder notification failed, will retry", "error", err)
		return models.Reminder{}, false
	}

	now := s.opts.now()
	marked, err := s.store.MarkReminderSent(ctx, d.ID, now)
	if err != nil {
		logger.Error("Failed to mark reminder sent", "error", err)
		return models.Reminder{}, false
	}
	if !marked {
		logger.Debug("Reminder was cancelled or already sent")
		return models.Reminder{}, false
	}

	s.opts.metrics.ReminderDispatched()
	logger.Info("Reminder sent", "participant", d.Participant)

	reminder = d.Reminder
	reminder.MarkSent(now)
	return reminder, true
}

func ceilMillis(t time.Time) time.Time {
	if r := t.Truncate(time.Millisecond); r.Before(t) {
		return r.Add(time.Millisecond)
	}
	return t
}

func (s *ReminderService) notification(recipient, body string) notify.Notification {
	return notify.Notification{
		Title:     notify.DefaultTitle,
		Body:      body,
		IconRef:   s.opts.icon,
		Recipient: recipient,
	}
}
