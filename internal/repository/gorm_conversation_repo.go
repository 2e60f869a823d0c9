package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/joblink/chat-service/internal/domain"
)

// GormConversationRepository implements ConversationRepository using GORM.
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-based conversation repository.
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// FindOrCreate returns the conversation for the unordered pair, creating it
// on first use. The participant columns hold the pair in sorted order and
// carry a unique composite index, so a racing create loses to the existing
// row and is re-read.
func (r *GormConversationRepository) FindOrCreate(ctx context.Context, participant1, participant2 string, jobID *string) (*domain.Conversation, error) {
	a, b := domain.NormalizePair(participant1, participant2)

	var model domain.ConversationModel
	err := r.db.WithContext(ctx).
		First(&model, "participant_a = ? AND participant_b = ?", a, b).Error
	if err == nil {
		return model.ToDomain(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	model = domain.ConversationModel{
		ID:           uuid.New().String(),
		ParticipantA: a,
		ParticipantB: b,
		JobID:        jobID,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost the race; the pair's row exists now.
			var existing domain.ConversationModel
			if ferr := r.db.WithContext(ctx).
				First(&existing, "participant_a = ? AND participant_b = ?", a, b).Error; ferr != nil {
				return nil, ferr
			}
			return existing.ToDomain(), nil
		}
		return nil, err
	}

	return model.ToDomain(), nil
}

// GetByID retrieves a conversation by id.
func (r *GormConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var model domain.ConversationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListForParticipant returns the identity's conversations ordered by most
// recent activity, never-messaged conversations last.
func (r *GormConversationRepository) ListForParticipant(ctx context.Context, identityID string) ([]*domain.Conversation, error) {
	var models []domain.ConversationModel
	err := r.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", identityID, identityID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Conversation, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToDomain())
	}
	return out, nil
}

// isUniqueViolation reports whether err is a unique constraint violation for
// any of the supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || // postgres
		strings.Contains(s, "Duplicate entry") || // mysql
		strings.Contains(s, "UNIQUE constraint") // sqlite
}
