package models

// Notification lifecycle. Forward-only: unread -> read -> archived; any
// state can move to expired by time. Archived and expired are terminal
// except for deletion.
const (
	NotificationStatusUnread   = "unread"
	NotificationStatusRead     = "read"
	NotificationStatusArchived = "archived"
	NotificationStatusExpired  = "expired"
)

// Per-recipient delivery lifecycle for the advanced model.
const (
	RecipientStatusPending  = "pending"
	RecipientStatusSent     = "sent"
	RecipientStatusRead     = "read"
	RecipientStatusExpired  = "expired"
	RecipientStatusArchived = "archived"
)

// Aggregate status of an advanced notification.
const (
	AdvancedStatusPending  = "pending"
	AdvancedStatusSent     = "sent"
	AdvancedStatusRead     = "read"
	AdvancedStatusExpired  = "expired"
	AdvancedStatusArchived = "archived"
)

// Delivery channels.
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelPush  = "push"
)

// Outcome of a single external delivery attempt. Rows are immutable once
// written; open/click timestamps are filled by the tracking callback.
const (
	DeliveryStatusSent       = "sent"
	DeliveryStatusFailed     = "failed"
	DeliveryStatusBounced    = "bounced"
	DeliveryStatusComplained = "complained"
)

// Priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Recipient resolution strategies for notification rules. Only explicit
// lists are resolved in v1; the rest are extension points.
const (
	RecipientStrategyExplicit   = "explicit"
	RecipientStrategyRole       = "role"
	RecipientStrategyDepartment = "department"
	RecipientStrategyDynamic    = "dynamic"
)
