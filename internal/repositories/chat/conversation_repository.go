package chat

import (
	"time"

	"commhub/internal/models/chat"

	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(conv *chat.Conversation) error {
	return r.db.Create(conv).Error
}

func (r *ConversationRepository) FindByID(id string) (*chat.Conversation, error) {
	var conv chat.Conversation
	err := r.db.Preload("Participants").First(&conv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// IsParticipant reports current membership: joined and not left.
func (r *ConversationRepository) IsParticipant(userID, conversationID string) (bool, error) {
	var count int64
	err := r.db.Model(&chat.Participant{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

// ActiveParticipants returns everyone currently in the conversation.
func (r *ConversationRepository) ActiveParticipants(conversationID string) ([]chat.Participant, error) {
	var participants []chat.Participant
	err := r.db.
		Where("conversation_id = ? AND left_at IS NULL", conversationID).
		Find(&participants).Error
	return participants, err
}

func (r *ConversationRepository) AddParticipant(p *chat.Participant) error {
	return r.db.Create(p).Error
}

func (r *ConversationRepository) Leave(userID, conversationID string) error {
	now := time.Now()
	return r.db.Model(&chat.Participant{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationID, userID).
		Update("left_at", now).Error
}

// TouchActivity bumps the conversation's last-activity timestamp.
func (r *ConversationRepository) TouchActivity(conversationID string, at time.Time) error {
	return r.db.Model(&chat.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_activity_at", at).Error
}
