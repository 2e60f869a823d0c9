package domain

// Wire event names from client. These are part of the public protocol and
// must not be renamed.
const (
	EventJoinChat    = "join_chat"
	EventLeaveChat   = "leave_chat"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
)

// Wire event names to client.
const (
	EventJoinedChat             = "joined_chat"
	EventNewMessage             = "new_message"
	EventNewMessageNotification = "new_message_notification"
	EventUserTyping             = "user_typing"
	EventUserStopTyping         = "user_stop_typing"
	EventError                  = "error"
)

// BaseEvent is the envelope shared by all wire events; Type selects the
// concrete payload shape.
type BaseEvent struct {
	Type string `json:"type"`
}

// Client -> Server events

type JoinChatEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
}

type LeaveChatEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
}

type SendMessageEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

type TypingEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
}

// Server -> Client events

type JoinedChatEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
}

type NewMessageEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

// NewMessageNotificationEvent is delivered on a participant's personal
// channel when they have no connection subscribed to the room.
type NewMessageNotificationEvent struct {
	Type                string               `json:"type"`
	ConversationID      string               `json:"conversationId"`
	Message             *Message             `json:"message"`
	ConversationSummary *ConversationSummary `json:"conversationSummary"`
}

type UserTypingEvent struct {
	Type           string `json:"type"`
	SenderIdentity string `json:"senderIdentity"`
	DisplayName    string `json:"displayName"`
}

type UserStopTypingEvent struct {
	Type           string `json:"type"`
	SenderIdentity string `json:"senderIdentity"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewJoinedChatEvent(conversationID string) *JoinedChatEvent {
	return &JoinedChatEvent{Type: EventJoinedChat, ConversationID: conversationID}
}

func NewNewMessageEvent(msg *Message) *NewMessageEvent {
	return &NewMessageEvent{Type: EventNewMessage, Message: msg}
}

func NewNotificationEvent(msg *Message, conv *Conversation) *NewMessageNotificationEvent {
	return &NewMessageNotificationEvent{
		Type:                EventNewMessageNotification,
		ConversationID:      conv.ID,
		Message:             msg,
		ConversationSummary: conv.Summary(),
	}
}

func NewUserTypingEvent(sender Identity) *UserTypingEvent {
	return &UserTypingEvent{
		Type:           EventUserTyping,
		SenderIdentity: sender.ID,
		DisplayName:    sender.DisplayName,
	}
}

func NewUserStopTypingEvent(sender Identity) *UserStopTypingEvent {
	return &UserStopTypingEvent{Type: EventUserStopTyping, SenderIdentity: sender.ID}
}

func NewErrorEvent(message string) *ErrorEvent {
	return &ErrorEvent{Type: EventError, Message: message}
}
