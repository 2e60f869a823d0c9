package push

import (
	"context"
	"time"
)

// Record is the hook-point payload emitted when a participant has no live
// connection at all. Downstream push infrastructure consumes the topic;
// delivery mechanics are not this service's concern.
type Record struct {
	RecipientID    string    `json:"recipient_id"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Preview        string    `json:"preview"`
	CreatedAt      time.Time `json:"created_at"`
}

// Producer emits offline push records. Fire-and-forget.
type Producer interface {
	ProduceRecord(ctx context.Context, rec *Record) error
	Close() error
}

// NoopProducer is used when no broker is configured.
type NoopProducer struct{}

func (NoopProducer) ProduceRecord(ctx context.Context, rec *Record) error { return nil }
func (NoopProducer) Close() error                                         { return nil }
