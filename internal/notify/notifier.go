// Package notify delivers reminder notifications to participants.
//
// Every error returned by a Notifier wraps models.ErrNotifier so callers can
// tell transport failures apart from store failures.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/paymenext/internal/models"
)

// DefaultTitle is the title of every payment reminder.
const DefaultTitle = "Payment Reminder"

// DefaultIcon is the icon reference used when none is configured.
const DefaultIcon = "/icon-192.png"

// Notification is a single message to a participant.
type Notification struct {
	Title     string
	Body      string
	IconRef   string
	Recipient string
}

// Notifier delivers a notification. Delivery is best effort; a returned
// error means the caller may retry later.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Notification) error {
	if err := ctx.Err(); err != nil {
		return wrap(err)
	}
	n.logger.InfoContext(ctx, "notification",
		"title", msg.Title,
		"body", msg.Body,
		"icon", msg.IconRef,
		"recipient", msg.Recipient,
	)
	return nil
}

// wrap marks err as a notifier failure.
func wrap(err error) error {
	return fmt.Errorf("%w: %w", models.ErrNotifier, err)
}
