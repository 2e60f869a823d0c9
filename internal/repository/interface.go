package repository

import (
	"context"
	"errors"

	"github.com/joblink/chat-service/internal/domain"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

// ConversationRepository defines persistence for conversations.
type ConversationRepository interface {
	// FindOrCreate returns the conversation for the unordered participant
	// pair, creating it if none exists. At most one conversation exists per
	// pair; concurrent calls for the same pair converge on the same row.
	FindOrCreate(ctx context.Context, participant1, participant2 string, jobID *string) (*domain.Conversation, error)
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	// ListForParticipant returns conversations the identity takes part in,
	// most recently active first.
	ListForParticipant(ctx context.Context, identityID string) ([]*domain.Conversation, error)
}

// MessageRepository defines persistence for messages.
type MessageRepository interface {
	// Create persists the message and advances the owning conversation's
	// last-message pointer in a single transaction. The message's Seq is
	// populated on return.
	Create(ctx context.Context, msg *domain.Message) error
	// ListByConversation returns the conversation's messages ordered by
	// (created_at, seq) ascending.
	ListByConversation(ctx context.Context, conversationID string) ([]*domain.Message, error)
	// MarkRead flips every unread message in the conversation not sent by
	// readerID to read with the given timestamp. Idempotent; returns the
	// number of rows changed.
	MarkRead(ctx context.Context, conversationID, readerID string) (int64, error)
}
