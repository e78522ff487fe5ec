package dto

import "time"

// CreateNotificationRequest is the production entry point payload used by
// sibling modules (and the rule engine) to fan a notification out to one or
// more recipients.
type CreateNotificationRequest struct {
	TenantID      string                 `json:"tenant_id" validate:"required"`
	Recipients    []string               `json:"recipients" validate:"required,min=1"`
	Title         string                 `json:"title" validate:"required,max=200"`
	Body          string                 `json:"body" validate:"omitempty,max=2000"`
	Kind          string                 `json:"kind" validate:"required"`
	Priority      string                 `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	SourceModule  string                 `json:"source_module" validate:"required"`
	SourceEvent   string                 `json:"source_event"`
	CorrelationID string                 `json:"correlation_id"`
	ExpiresAt     *time.Time             `json:"expires_at"`
	Data          map[string]interface{} `json:"data"`

	// Identity of the causing domain object, used by advanced-model dedup.
	SourceObjectType string `json:"source_object_type"`
	SourceObjectID   string `json:"source_object_id"`
}

// CreateNotificationResult reports what production actually did; blocked
// recipients are a silent no-op, not an error.
type CreateNotificationResult struct {
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
	AdvancedID string `json:"advanced_id,omitempty"`
}

type NotificationResponse struct {
	ID            string                 `json:"id"`
	Kind          string                 `json:"kind"`
	Title         string                 `json:"title"`
	Body          string                 `json:"body"`
	Priority      string                 `json:"priority"`
	Status        string                 `json:"status"`
	SourceModule  string                 `json:"source_module"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
	ReadAt        *time.Time             `json:"read_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	Total         int64                   `json:"total"`
	Page          int                     `json:"page"`
	PageSize      int                     `json:"page_size"`
}

// EmitRequest fires the rule engine for a domain event.
type EmitRequest struct {
	EventType    string                 `json:"event_type" validate:"required"`
	SourceModule string                 `json:"source_module" validate:"required"`
	Payload      map[string]interface{} `json:"payload"`
}
