package chat

import (
	"time"

	"commhub/internal/models"
)

// Message statuses move forward only (sent -> delivered -> read); an edit
// moves the status back to edited, a delete is terminal.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
	MessageStatusEdited    = "edited"
	MessageStatusDeleted   = "deleted"
)

type Message struct {
	models.BaseModel
	ConversationID string `gorm:"not null;index"`
	TenantID       string `gorm:"not null;index"`
	SenderID       string `gorm:"not null;index"`
	Content        string `gorm:"type:text"`

	// Attachment ref only; byte storage is the file service's problem.
	AttachmentURL  *string
	AttachmentName *string

	ReplyToID *string `gorm:"index"` // single level, replies to replies point at the original
	Status    string  `gorm:"default:'sent'"`
	EditedAt  *time.Time
	DeletedAt *time.Time // soft delete, content is blanked

	Reactions    []MessageReaction    `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	ReadReceipts []MessageReadReceipt `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

// HasContent reports whether the message carries text or an attachment.
func (m *Message) HasContent() bool {
	return m.Content != "" || (m.AttachmentURL != nil && *m.AttachmentURL != "")
}

type MessageReadReceipt struct {
	models.BaseModel
	MessageID string `gorm:"not null;index;uniqueIndex:idx_receipt_message_user"`
	UserID    string `gorm:"not null;index;uniqueIndex:idx_receipt_message_user"`
	ReadAt    time.Time
}
