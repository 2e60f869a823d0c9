package service

import (
	"context"
	"errors"

	"github.com/joblink/chat-service/internal/domain"
	"github.com/joblink/chat-service/internal/hub"
)

var (
	ErrEmptyText          = errors.New("message text is empty")
	ErrTextTooLong        = errors.New("message text exceeds maximum length")
	ErrNotParticipant     = errors.New("identity is not a participant of the conversation")
	ErrMissingParticipant = errors.New("participant id is required")
	ErrSelfConversation   = errors.New("cannot start a conversation with yourself")
)

// ChatService implements the chat subsystem's operations: room membership,
// the message pipeline, typing relay, and read-state transitions.
type ChatService interface {
	// WebSocket-driven operations. Errors that concern the client are
	// reported to it as error events; the returned error is for logging.
	HandleJoinChat(ctx context.Context, c *hub.Client, conversationID string) error
	HandleLeaveChat(ctx context.Context, c *hub.Client, conversationID string) error
	HandleSendMessage(ctx context.Context, c *hub.Client, conversationID, text string) error
	HandleTyping(ctx context.Context, c *hub.Client, conversationID string) error
	HandleStopTyping(ctx context.Context, c *hub.Client, conversationID string) error
	HandleDisconnect(ctx context.Context, c *hub.Client) error

	// REST-driven operations.
	ListConversations(ctx context.Context, identityID string) ([]*domain.ConversationSummary, error)
	FindOrCreateConversation(ctx context.Context, callerID, participantID string, jobID *string) (*domain.ConversationSummary, error)
	ConversationHistory(ctx context.Context, callerID, conversationID string) (*domain.ConversationSummary, []*domain.Message, error)
	MarkRead(ctx context.Context, readerID, conversationID string) (int64, error)
}
