package notifier

import (
	"context"

	"github.com/joblink/chat-service/internal/domain"
)

// Notifier carries new_message_notification events to an identity's personal
// channel, independent of any room subscription. Publishing is
// fire-and-forget; there is no delivery confirmation.
type Notifier interface {
	// NotifyNewMessage publishes the notification on the identity's personal
	// channel.
	NotifyNewMessage(ctx context.Context, identityID string, event *domain.NewMessageNotificationEvent) error
	// Run consumes personal channels and hands payloads to the deliver
	// callback until ctx is cancelled.
	Run(ctx context.Context, deliver DeliverFunc) error
	Close() error
}

// DeliverFunc pushes a personal-channel payload to an identity's live
// connections.
type DeliverFunc func(identityID string, payload []byte)
