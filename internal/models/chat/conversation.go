package chat

import (
	"time"

	"commhub/internal/models"
)

// Conversation owns its messages; deleting a conversation cascades.
type Conversation struct {
	models.BaseModel
	TenantID       string `gorm:"not null;index"`
	Title          *string
	IsGroup        bool      `gorm:"default:false"`
	LastActivityAt time.Time `gorm:"index"`

	Participants []Participant `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	Messages     []Message     `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// Participant membership. A row with LeftAt set is a former participant;
// active conversations have at least one row with LeftAt == nil.
type Participant struct {
	models.BaseModel
	ConversationID string `gorm:"not null;index;uniqueIndex:idx_conv_user"`
	UserID         string `gorm:"not null;index;uniqueIndex:idx_conv_user"`
	Role           string `gorm:"default:'member'"`
	JoinedAt       time.Time
	LeftAt         *time.Time
	NotifyEnabled  bool `gorm:"default:true"`
}
