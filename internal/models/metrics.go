package models

import "time"

// NotificationMetrics is an append-only counter bucket keyed by
// (tenant, date, hour). At most one row per key; increments are upserts.
type NotificationMetrics struct {
	BaseModel
	TenantID string `gorm:"not null;uniqueIndex:idx_metrics_bucket"`
	Date     string `gorm:"not null;uniqueIndex:idx_metrics_bucket"` // YYYY-MM-DD
	Hour     int    `gorm:"not null;uniqueIndex:idx_metrics_bucket"`

	CreatedCount   int64 `gorm:"default:0"`
	SentCount      int64 `gorm:"default:0"`
	DeliveredCount int64 `gorm:"default:0"`
	ReadCount      int64 `gorm:"default:0"`

	InAppSentCount int64 `gorm:"default:0"`
	EmailSentCount int64 `gorm:"default:0"`
	SMSSentCount   int64 `gorm:"default:0"`
	PushSentCount  int64 `gorm:"default:0"`

	// Derived from EmailDelivery rows.
	EmailDeliveredCount int64 `gorm:"default:0"`
	EmailOpenedCount    int64 `gorm:"default:0"`
	EmailClickedCount   int64 `gorm:"default:0"`
}

// EmailDelivery records one email attempt. The row itself is immutable;
// only OpenedAt/ClickedAt are set later by the tracking callback.
type EmailDelivery struct {
	BaseModel
	TenantID       string `gorm:"not null;index"`
	NotificationID string `gorm:"not null;index"`
	RecipientID    string `gorm:"not null;index"`
	EmailAddress   string `gorm:"not null"`
	Subject        string
	Status         string `gorm:"not null"` // sent, failed, bounced, complained
	Error          string
	SentAt         time.Time
	OpenedAt       *time.Time
	ClickedAt      *time.Time
}
