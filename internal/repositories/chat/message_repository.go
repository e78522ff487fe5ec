package chat

import (
	"commhub/internal/models/chat"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(msg *chat.Message) error {
	return r.db.Create(msg).Error
}

func (r *MessageRepository) FindByID(id string) (*chat.Message, error) {
	var msg chat.Message
	if err := r.db.First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepository) Save(msg *chat.Message) error {
	return r.db.Save(msg).Error
}

func (r *MessageRepository) GetByConversation(conversationID string, limit int) ([]chat.Message, error) {
	var messages []chat.Message
	q := r.db.Where("conversation_id = ?", conversationID).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&messages).Error
	return messages, err
}

// UnreadBy returns messages in the conversation that userID has not yet
// receipted, excluding the user's own messages and deleted ones.
func (r *MessageRepository) UnreadBy(conversationID, userID string) ([]chat.Message, error) {
	var messages []chat.Message
	err := r.db.
		Where("conversation_id = ? AND sender_id <> ? AND deleted_at IS NULL", conversationID, userID).
		Where("id NOT IN (?)", r.db.Model(&chat.MessageReadReceipt{}).
			Select("message_id").Where("user_id = ?", userID)).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *MessageRepository) SetStatus(messageIDs []string, status string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	return r.db.Model(&chat.Message{}).
		Where("id IN ?", messageIDs).
		Update("status", status).Error
}

// --- read receipts ---

func (r *MessageRepository) CreateReceipts(receipts []chat.MessageReadReceipt) error {
	if len(receipts) == 0 {
		return nil
	}
	return r.db.Create(&receipts).Error
}

func (r *MessageRepository) ReceiptExists(userID, messageID string) (bool, error) {
	var count int64
	err := r.db.Model(&chat.MessageReadReceipt{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&count).Error
	return count > 0, err
}
