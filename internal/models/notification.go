package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is the lightweight single-recipient in-app record. Other
// modules produce these through the notification service; clients consume
// them through the read APIs and the overview channel.
type Notification struct {
	BaseModel
	TenantID    string `gorm:"not null;index:idx_notifications_tenant_created"`
	RecipientID string `gorm:"not null;index"`
	Kind        string `gorm:"not null"`
	Title       string `gorm:"not null"`
	Body        string
	Priority    string `gorm:"default:'normal'"`
	Status      string `gorm:"default:'unread';index"`
	ReadAt      *time.Time
	ExpiresAt   *time.Time

	// Origin of the record, used for dedup grouping and read-sync.
	SourceModule  string `gorm:"index"`
	SourceEvent   string
	CorrelationID string `gorm:"index"` // module-specific key, e.g. origin event or conversation id

	// AdvancedID points at the multi-recipient pair created alongside this
	// record when the tenant has advanced delivery on; empty otherwise.
	// Reads propagate through it to the recipient sub-record.
	AdvancedID string `gorm:"index"`

	Data datatypes.JSON `gorm:"type:jsonb"`
}

// NotificationAdvanced is the multi-recipient record with per-channel
// delivery tracking. One content row, N recipient sub-records.
type NotificationAdvanced struct {
	BaseModel
	TenantID     string `gorm:"not null;index:idx_adv_tenant_created"`
	Kind         string `gorm:"not null"`
	Title        string `gorm:"not null"`
	Body         string
	Priority     string `gorm:"default:'normal'"`
	Status       string `gorm:"default:'pending';index"`
	ExpiresAt    *time.Time
	SourceModule string `gorm:"index"`

	// Identity of the domain object that caused the notification, used for
	// dedup grouping.
	SourceObjectType string
	SourceObjectID   string

	Data datatypes.JSON `gorm:"type:jsonb"`

	Recipients []NotificationRecipient `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE"`
}

// NotificationRecipient tracks delivery of one advanced notification to one
// user, with a sent flag per channel.
type NotificationRecipient struct {
	BaseModel
	NotificationID string `gorm:"not null;index"`
	UserID         string `gorm:"not null;index"`
	Status         string `gorm:"default:'pending';index"`
	ReadAt         *time.Time

	InAppSent bool `gorm:"default:false"`
	EmailSent bool `gorm:"default:false"`
	SMSSent   bool `gorm:"default:false"`
	PushSent  bool `gorm:"default:false"`
}

// NotificationRule maps (tenant, source module, event type) to a template
// and a recipient-resolution strategy. Fired by the Emit entry point.
type NotificationRule struct {
	BaseModel
	TenantID     string `gorm:"not null;index:idx_rules_lookup"`
	SourceModule string `gorm:"not null;index:idx_rules_lookup"`
	EventType    string `gorm:"not null;index:idx_rules_lookup"`
	Enabled      bool   `gorm:"default:true"`

	// Field-equality conditions evaluated against the event payload.
	Conditions datatypes.JSON `gorm:"type:jsonb"`

	TitleTemplate string `gorm:"not null"`
	BodyTemplate  string
	Kind          string `gorm:"not null"`
	Priority      string `gorm:"default:'normal'"`

	RecipientStrategy string         `gorm:"default:'explicit'"`
	RecipientIDs      datatypes.JSON `gorm:"type:jsonb"` // for the explicit strategy
}
