package models

// TenantNotificationSettings is a per-tenant configuration singleton,
// created idempotently on first need. Zero-valued retention fields fall
// back to the legacy server-wide defaults.
type TenantNotificationSettings struct {
	BaseModel
	TenantID string `gorm:"not null;uniqueIndex"`

	AdvancedDelivery bool `gorm:"default:true"`

	HourlyLimit int `gorm:"default:100"`
	DailyLimit  int `gorm:"default:1000"`

	EmailEnabled bool `gorm:"default:true"`
	SMSEnabled   bool `gorm:"default:false"`
	PushEnabled  bool `gorm:"default:false"`

	// Local hours [0,24); nil disables quiet hours. During quiet hours the
	// external channels are suppressed, in-app still delivers.
	QuietHoursStart *int
	QuietHoursEnd   *int

	ExpireDays            int `gorm:"default:0"`
	ReadRetentionDays     int `gorm:"default:0"`
	ArchivedRetentionDays int `gorm:"default:0"`
}

// UserNotificationPreferences is a per-user configuration singleton.
type UserNotificationPreferences struct {
	BaseModel
	TenantID string `gorm:"not null;uniqueIndex:idx_user_prefs"`
	UserID   string `gorm:"not null;uniqueIndex:idx_user_prefs"`

	Enabled bool `gorm:"default:true"` // global opt-out when false

	InAppEnabled bool `gorm:"default:true"`
	EmailEnabled bool `gorm:"default:true"`
	SMSEnabled   bool `gorm:"default:true"`
	PushEnabled  bool `gorm:"default:true"`

	DisabledKinds      StringList `gorm:"type:jsonb"`
	DisabledPriorities StringList `gorm:"type:jsonb"`
	BlockedModules     StringList `gorm:"type:jsonb"`
}
