package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/joblink/chat-service/internal/domain"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create inserts the message and advances the conversation's last-message
// pointer in one transaction, so no reader observes a persisted message
// without the pointer update. The insertion sequence is the next free slot
// within the conversation; losing a race on the (conversation, seq) unique
// index retries the whole transaction.
func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	model := domain.MessageToModel(msg)

	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = r.createOnce(ctx, model)
		if err == nil {
			msg.Seq = model.Seq
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
	}
	return err
}

func (r *GormMessageRepository) createOnce(ctx context.Context, model *domain.MessageModel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq sql.NullInt64
		err := tx.Model(&domain.MessageModel{}).
			Where("conversation_id = ?", model.ConversationID).
			Select("MAX(seq)").
			Scan(&maxSeq).Error
		if err != nil {
			return err
		}
		model.Seq = maxSeq.Int64 + 1

		if err := tx.Create(model).Error; err != nil {
			return err
		}

		result := tx.Model(&domain.ConversationModel{}).
			Where("id = ?", model.ConversationID).
			Updates(map[string]interface{}{
				"last_message_id": model.ID,
				"last_message_at": model.CreatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConversationNotFound
		}
		return nil
	})
}

// ListByConversation returns all messages of a conversation in their total
// order: server-assigned timestamp, insertion sequence as tie-break.
func (r *GormMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Message, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToDomain())
	}
	return out, nil
}

// MarkRead bulk-flips unread messages not sent by readerID. Read state only
// moves false -> true, so repeating the call changes nothing.
func (r *GormMessageRepository) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
