package domain

import (
	"time"
)

// Message is a persisted chat message. CreatedAt is assigned server-side;
// Seq is the insertion sequence used to break timestamp ties so every
// conversation has a total message order.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	Sender         Identity   `json:"senderIdentity"`
	Text           string     `json:"text"`
	CreatedAt      time.Time  `json:"createdAt"`
	Seq            int64      `json:"-"`
	Read           bool       `json:"read"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

// MessageModel is the GORM model for the messages table. Sender display
// fields are denormalized from the verified identity so history reads never
// need the platform's user store.
type MessageModel struct {
	ID             string     `gorm:"type:varchar(36);primaryKey"`
	ConversationID string     `gorm:"type:varchar(36);not null;index:idx_conversation_order,priority:1;uniqueIndex:idx_conversation_seq,priority:1"`
	SenderID       string     `gorm:"type:varchar(36);not null;index"`
	SenderName     string     `gorm:"type:varchar(100)"`
	SenderAvatar   string     `gorm:"type:varchar(255)"`
	Text           string     `gorm:"type:text;not null"`
	CreatedAt      time.Time  `gorm:"index:idx_conversation_order,priority:2"`
	Seq            int64      `gorm:"not null;uniqueIndex:idx_conversation_seq,priority:2"`
	Read           bool       `gorm:"column:is_read;not null;default:false"`
	ReadAt         *time.Time ``
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to a domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender: Identity{
			ID:          m.SenderID,
			DisplayName: m.SenderName,
			AvatarURL:   m.SenderAvatar,
		},
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
		Seq:       m.Seq,
		Read:      m.Read,
		ReadAt:    m.ReadAt,
	}
}

// MessageToModel converts a domain Message to its GORM model.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.Sender.ID,
		SenderName:     msg.Sender.DisplayName,
		SenderAvatar:   msg.Sender.AvatarURL,
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt,
		Seq:            msg.Seq,
		Read:           msg.Read,
		ReadAt:         msg.ReadAt,
	}
}
