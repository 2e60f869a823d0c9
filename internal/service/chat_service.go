package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/joblink/chat-service/internal/audit"
	"github.com/joblink/chat-service/internal/config"
	"github.com/joblink/chat-service/internal/domain"
	"github.com/joblink/chat-service/internal/hub"
	"github.com/joblink/chat-service/internal/notifier"
	"github.com/joblink/chat-service/internal/push"
	"github.com/joblink/chat-service/internal/repository"
	"github.com/joblink/chat-service/pkg/log"
)

type chatService struct {
	hub       *hub.Hub
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	notifier  notifier.Notifier
	pusher    push.Producer
	cfg       config.ChatConfig
	findGroup singleflight.Group
}

// NewChatService wires the chat operations together.
func NewChatService(
	h *hub.Hub,
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	n notifier.Notifier,
	pusher push.Producer,
	cfg config.ChatConfig,
) ChatService {
	if cfg.MaxTextRunes <= 0 {
		cfg.MaxTextRunes = 4096
	}
	return &chatService{
		hub:      h,
		convRepo: convRepo,
		msgRepo:  msgRepo,
		notifier: n,
		pusher:   pusher,
		cfg:      cfg,
	}
}

// HandleJoinChat subscribes the connection to the conversation room after
// checking the conversation exists and the connection's identity is one of
// its two participants. Denials produce an error event; the connection never
// enters the subscriber set.
func (s *chatService) HandleJoinChat(ctx context.Context, c *hub.Client, conversationID string) error {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			c.SendEvent(domain.NewErrorEvent("Conversation not found"))
			return err
		}
		c.SendEvent(domain.NewErrorEvent("Failed to join chat"))
		return err
	}

	identity := c.Identity()
	if !conv.HasParticipant(identity.ID) {
		audit.LogWithTarget(ctx, audit.ActionJoinDenied, identity.ID, conversationID, "join denied")
		c.SendEvent(domain.NewErrorEvent("Not authorized"))
		return ErrNotParticipant
	}

	s.hub.JoinRoom(c, conversationID)
	audit.LogWithTarget(ctx, audit.ActionJoinChat, identity.ID, conversationID, "joined chat")

	return c.SendEvent(domain.NewJoinedChatEvent(conversationID))
}

// HandleLeaveChat drops the room subscription. Leaving a room that was never
// joined is a no-op.
func (s *chatService) HandleLeaveChat(ctx context.Context, c *hub.Client, conversationID string) error {
	s.hub.LeaveRoom(c, conversationID)
	audit.LogWithTarget(ctx, audit.ActionLeaveChat, c.Identity().ID, conversationID, "left chat")
	return nil
}

// HandleSendMessage runs the message pipeline: validate, persist with the
// server-assigned timestamp, broadcast to the room, then notify each
// participant who has no connection in the room via their personal channel.
func (s *chatService) HandleSendMessage(ctx context.Context, c *hub.Client, conversationID, text string) error {
	identity := c.Identity()

	if err := s.validateText(text); err != nil {
		c.SendEvent(domain.NewErrorEvent(err.Error()))
		return err
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			c.SendEvent(domain.NewErrorEvent("Conversation not found"))
			return err
		}
		c.SendEvent(domain.NewErrorEvent("Failed to send message"))
		return err
	}

	if !conv.HasParticipant(identity.ID) {
		c.SendEvent(domain.NewErrorEvent("Not authorized"))
		return ErrNotParticipant
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		Sender:         identity,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.msgRepo.Create(ctx, msg); err != nil {
		// Transient store failure; surfaced to the sender only, no retry.
		c.SendEvent(domain.NewErrorEvent("Failed to send message"))
		return err
	}

	conv.LastMessageID = &msg.ID
	conv.LastMessageAt = &msg.CreatedAt

	if err := s.hub.Broadcast(conv.ID, domain.NewNewMessageEvent(msg), ""); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldConversationID, conv.ID).Msg("room broadcast failed")
	}

	s.notifyOutOfRoom(ctx, conv, msg)

	audit.LogWithTarget(ctx, audit.ActionSendMessage, identity.ID, conv.ID, "message sent")
	return nil
}

// notifyOutOfRoom walks the conversation's two participants and, for each
// non-sender with no connection subscribed to the room, emits a personal
// channel notification; a participant with no connections at all also gets
// an offline push record.
func (s *chatService) notifyOutOfRoom(ctx context.Context, conv *domain.Conversation, msg *domain.Message) {
	l := log.Ctx(ctx)

	for _, participantID := range conv.Participants() {
		if participantID == msg.Sender.ID {
			continue
		}
		if s.hub.IdentityInRoom(conv.ID, participantID) {
			continue
		}

		event := domain.NewNotificationEvent(msg, conv)
		if err := s.notifier.NotifyNewMessage(ctx, participantID, event); err != nil {
			l.Warn().Err(err).
				Str(log.FieldUserID, participantID).
				Str(log.FieldConversationID, conv.ID).
				Msg("personal notification failed")
		}

		if len(s.hub.ConnectionsFor(participantID)) == 0 {
			rec := &push.Record{
				RecipientID:    participantID,
				ConversationID: conv.ID,
				MessageID:      msg.ID,
				SenderID:       msg.Sender.ID,
				SenderName:     msg.Sender.DisplayName,
				Preview:        preview(msg.Text),
				CreatedAt:      msg.CreatedAt,
			}
			if err := s.pusher.ProduceRecord(ctx, rec); err != nil {
				l.Warn().Err(err).
					Str(log.FieldUserID, participantID).
					Msg("offline push record failed")
			}
		}
	}
}

// HandleTyping relays a typing-start signal to the room, excluding the
// originating connection. The only check is that this connection joined the
// room; join time already validated participation.
func (s *chatService) HandleTyping(ctx context.Context, c *hub.Client, conversationID string) error {
	if !c.Session.InRoom(conversationID) {
		return nil
	}
	return s.hub.Broadcast(conversationID, domain.NewUserTypingEvent(c.Identity()), c.ID)
}

// HandleStopTyping relays a typing-stop signal the same way.
func (s *chatService) HandleStopTyping(ctx context.Context, c *hub.Client, conversationID string) error {
	if !c.Session.InRoom(conversationID) {
		return nil
	}
	return s.hub.Broadcast(conversationID, domain.NewUserStopTypingEvent(c.Identity()), c.ID)
}

// HandleDisconnect records the disconnect; room and registry cleanup happens
// in the hub on unregistration.
func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	audit.Log(ctx, audit.ActionDisconnect, c.Identity().ID, "client disconnected")
	return nil
}

// ListConversations returns the identity's conversations, most recently
// active first.
func (s *chatService) ListConversations(ctx context.Context, identityID string) ([]*domain.ConversationSummary, error) {
	convs, err := s.convRepo.ListForParticipant(ctx, identityID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		out = append(out, conv.Summary())
	}
	return out, nil
}

// FindOrCreateConversation returns the one conversation for the caller and
// participant pair, creating it on first contact. Concurrent requests for
// the same pair are collapsed into a single store round-trip.
func (s *chatService) FindOrCreateConversation(ctx context.Context, callerID, participantID string, jobID *string) (*domain.ConversationSummary, error) {
	if participantID == "" {
		return nil, ErrMissingParticipant
	}
	if participantID == callerID {
		return nil, ErrSelfConversation
	}

	a, b := domain.NormalizePair(callerID, participantID)
	v, err, _ := s.findGroup.Do(a+":"+b, func() (interface{}, error) {
		return s.convRepo.FindOrCreate(ctx, callerID, participantID, jobID)
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Conversation).Summary(), nil
}

// ConversationHistory returns the conversation and its totally ordered
// messages for a participant.
func (s *chatService) ConversationHistory(ctx context.Context, callerID, conversationID string) (*domain.ConversationSummary, []*domain.Message, error) {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if !conv.HasParticipant(callerID) {
		return nil, nil, ErrNotParticipant
	}

	msgs, err := s.msgRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	return conv.Summary(), msgs, nil
}

// MarkRead bulk-marks every message not sent by the reader as read. The
// transition is one-way and repeating the call has no further effect.
func (s *chatService) MarkRead(ctx context.Context, readerID, conversationID string) (int64, error) {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if !conv.HasParticipant(readerID) {
		return 0, ErrNotParticipant
	}

	n, err := s.msgRepo.MarkRead(ctx, conversationID, readerID)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		audit.LogWithTarget(ctx, audit.ActionMarkRead, readerID, conversationID, "messages marked read")
	}
	return n, nil
}

func (s *chatService) validateText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if utf8.RuneCountInString(text) > s.cfg.MaxTextRunes {
		return ErrTextTooLong
	}
	return nil
}

func preview(text string) string {
	const max = 120
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}
