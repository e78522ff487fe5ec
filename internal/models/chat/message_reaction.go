package chat

import "commhub/internal/models"

// MessageReaction is unique per (message, user, emoji); the service layer
// gives it toggle semantics.
type MessageReaction struct {
	models.BaseModel
	MessageID string `gorm:"not null;index;uniqueIndex:idx_reaction_key"`
	UserID    string `gorm:"not null;uniqueIndex:idx_reaction_key"`
	Emoji     string `gorm:"type:varchar(16);not null;uniqueIndex:idx_reaction_key"`
}
