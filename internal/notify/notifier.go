// Package notify delivers operator notifications over Telegram.
package notify

import (
	"context"

	"github.com/blockedby/reactdl/internal/logger"
)

// Sender is the message-send surface of the telegram client.
type Sender interface {
	SendMessage(ctx context.Context, ref string, text string) error
}

// Notifier sends fire-and-forget messages to the configured target chat.
// Send failures are logged and swallowed: notifications must never
// affect the download pipeline.
type Notifier struct {
	sender Sender
	target string
	log    *logger.Logger
}

// New creates a notifier. An empty target disables all notifications.
func New(sender Sender, target string, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Get()
	}
	return &Notifier{
		sender: sender,
		target: target,
		log:    log,
	}
}

// Enabled reports whether a notification target is configured.
func (n *Notifier) Enabled() bool {
	return n.target != ""
}

// Notify sends the text to the target chat, logging any failure.
func (n *Notifier) Notify(ctx context.Context, text string) {
	if n.target == "" {
		return
	}

	if err := n.sender.SendMessage(ctx, n.target, text); err != nil {
		n.log.Warn().Err(err).Str("target", n.target).Msg("failed to send notification")
	}
}
