package domain

import (
	"strings"
	"time"
)

// Conversation is a persistent two-party chat thread. ParticipantA and
// ParticipantB are stored in lexicographic order so the unordered pair maps
// to exactly one row (unique composite index).
type Conversation struct {
	ID            string     `json:"id"`
	ParticipantA  string     `json:"-"`
	ParticipantB  string     `json:"-"`
	JobID         *string    `json:"jobId,omitempty"`
	LastMessageID *string    `json:"lastMessageId,omitempty"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Participants returns the two participant ids in stored order.
func (c *Conversation) Participants() [2]string {
	return [2]string{c.ParticipantA, c.ParticipantB}
}

// HasParticipant reports whether id is one of the two participants.
func (c *Conversation) HasParticipant(id string) bool {
	return id == c.ParticipantA || id == c.ParticipantB
}

// OtherParticipant returns the participant that is not id. The caller is
// expected to have checked HasParticipant first.
func (c *Conversation) OtherParticipant(id string) string {
	if id == c.ParticipantA {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// NormalizePair orders two participant ids so that the same unordered pair
// always produces the same (a, b) tuple.
func NormalizePair(id1, id2 string) (string, string) {
	if strings.Compare(id1, id2) > 0 {
		return id2, id1
	}
	return id1, id2
}

// ConversationSummary is the denormalized view sent in API responses and
// new_message_notification payloads.
type ConversationSummary struct {
	ID            string     `json:"id"`
	Participants  []string   `json:"participants"`
	JobID         *string    `json:"jobId,omitempty"`
	LastMessageID *string    `json:"lastMessageId,omitempty"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Summary converts a Conversation to its API representation.
func (c *Conversation) Summary() *ConversationSummary {
	return &ConversationSummary{
		ID:            c.ID,
		Participants:  []string{c.ParticipantA, c.ParticipantB},
		JobID:         c.JobID,
		LastMessageID: c.LastMessageID,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
	}
}

// ConversationModel is the GORM model for the conversations table.
type ConversationModel struct {
	ID            string     `gorm:"type:varchar(36);primaryKey"`
	ParticipantA  string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_participant_pair,priority:1;index"`
	ParticipantB  string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_participant_pair,priority:2;index"`
	JobID         *string    `gorm:"type:varchar(36)"`
	LastMessageID *string    `gorm:"type:varchar(36)"`
	LastMessageAt *time.Time `gorm:"index"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
}

// TableName specifies the table name for ConversationModel.
func (ConversationModel) TableName() string {
	return "conversations"
}

// ToDomain converts ConversationModel to a domain Conversation.
func (m *ConversationModel) ToDomain() *Conversation {
	return &Conversation{
		ID:            m.ID,
		ParticipantA:  m.ParticipantA,
		ParticipantB:  m.ParticipantB,
		JobID:         m.JobID,
		LastMessageID: m.LastMessageID,
		LastMessageAt: m.LastMessageAt,
		CreatedAt:     m.CreatedAt,
	}
}

// ConversationToModel converts a domain Conversation to its GORM model.
func ConversationToModel(c *Conversation) *ConversationModel {
	return &ConversationModel{
		ID:            c.ID,
		ParticipantA:  c.ParticipantA,
		ParticipantB:  c.ParticipantB,
		JobID:         c.JobID,
		LastMessageID: c.LastMessageID,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
	}
}
