package database

import (
	"commhub/internal/models"
	"commhub/internal/models/chat"

	"gorm.io/gorm"
)

// Migrate creates or updates the schema for every model the core owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&chat.Conversation{},
		&chat.Participant{},
		&chat.Message{},
		&chat.MessageReadReceipt{},
		&chat.MessageReaction{},
		&chat.MessagePin{},
		&models.Notification{},
		&models.NotificationAdvanced{},
		&models.NotificationRecipient{},
		&models.NotificationRule{},
		&models.TenantNotificationSettings{},
		&models.UserNotificationPreferences{},
		&models.NotificationMetrics{},
		&models.EmailDelivery{},
	)
}
