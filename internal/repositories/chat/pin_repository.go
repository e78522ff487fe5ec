package chat

import (
	"errors"

	"commhub/internal/models/chat"

	"gorm.io/gorm"
)

type PinRepository struct {
	db *gorm.DB
}

func NewPinRepository(db *gorm.DB) *PinRepository {
	return &PinRepository{db: db}
}

func (r *PinRepository) Find(conversationID, messageID string) (*chat.MessagePin, error) {
	var pin chat.MessagePin
	err := r.db.
		Where("conversation_id = ? AND message_id = ?", conversationID, messageID).
		First(&pin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pin, nil
}

func (r *PinRepository) Create(pin *chat.MessagePin) error {
	return r.db.Create(pin).Error
}

func (r *PinRepository) Delete(id string) error {
	return r.db.Delete(&chat.MessagePin{}, "id = ?", id).Error
}

func (r *PinRepository) ListByConversation(conversationID string) ([]chat.MessagePin, error) {
	var pins []chat.MessagePin
	err := r.db.Where("conversation_id = ?", conversationID).Order("created_at ASC").Find(&pins).Error
	return pins, err
}
