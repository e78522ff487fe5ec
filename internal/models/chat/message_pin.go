package chat

import "commhub/internal/models"

// MessagePin is unique per (conversation, message); toggle semantics.
type MessagePin struct {
	models.BaseModel
	ConversationID string `gorm:"not null;index;uniqueIndex:idx_pin_key"`
	MessageID      string `gorm:"not null;uniqueIndex:idx_pin_key"`
	PinnedBy       string `gorm:"not null"`
}
