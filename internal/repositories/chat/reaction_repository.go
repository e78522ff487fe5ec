package chat

import (
	"errors"

	"commhub/internal/models/chat"

	"gorm.io/gorm"
)

type ReactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

func (r *ReactionRepository) Find(messageID, userID, emoji string) (*chat.MessageReaction, error) {
	var reaction chat.MessageReaction
	err := r.db.
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		First(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *ReactionRepository) Create(reaction *chat.MessageReaction) error {
	return r.db.Create(reaction).Error
}

func (r *ReactionRepository) Delete(id string) error {
	return r.db.Delete(&chat.MessageReaction{}, "id = ?", id).Error
}

func (r *ReactionRepository) ListByMessage(messageID string) ([]chat.MessageReaction, error) {
	var reactions []chat.MessageReaction
	err := r.db.Where("message_id = ?", messageID).Order("created_at ASC").Find(&reactions).Error
	return reactions, err
}
