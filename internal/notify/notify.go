// Package notify is the channel agents use to talk to their operator:
// plain notifications and approval requests for high-stakes actions.
package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers messages to the operator. Implementations must be safe
// for concurrent use by all agents; the source parameter identifies the
// calling agent.
type Notifier interface {
	// Notify sends a message attributed to source.
	Notify(ctx context.Context, message, source string) error

	// RequestApproval asks the operator to approve an action before it is
	// taken. Returns true when approved.
	RequestApproval(ctx context.Context, source, action, details string) (bool, error)
}

// LogNotifier writes notifications to the log. Used when no delivery
// channel is configured so agents never block on a missing notifier.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, message, source string) error {
	n.logger.Info("notification", "source", source, "message", message)
	return nil
}

// RequestApproval auto-approves with a warning: with no channel there is
// nobody to ask, and blocking the workforce on an unanswerable question
// would be worse.
func (n *LogNotifier) RequestApproval(ctx context.Context, source, action, details string) (bool, error) {
	n.logger.Warn("no notification channel for approval, auto-approving",
		"source", source, "action", action)
	return true, nil
}
