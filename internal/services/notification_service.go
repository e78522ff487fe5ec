package services

import (
	"encoding/json"
	"fmt"
	"time"

	"commhub/internal/logger"
	"commhub/internal/models"
	"commhub/internal/repositories"
	"commhub/internal/services/dto"
	"commhub/internal/validator"
	"commhub/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Source modules this core produces for on its own.
const SourceModuleChat = "chat"

// NotificationService is the production engine: sibling modules hand it
// (tenant, recipients, content) and it decides, per recipient, whether a
// record is created at all, then hands advanced records to the dispatcher.
type NotificationService interface {
	Create(req *dto.CreateNotificationRequest) (*dto.CreateNotificationResult, error)

	GetForRecipient(tenantID, recipientID string, criteria repositories.NotificationCriteria) (*dto.NotificationListResponse, error)
	UnreadCount(tenantID, recipientID string) (int64, error)
	MarkAsRead(tenantID, recipientID, notificationID string) error
	MarkAllAsRead(tenantID, recipientID string) error

	// Chat integration: explicit event publication from the chat component,
	// consumed here so the two modules stay decoupled.
	NotifyChatMessage(tenantID, recipientID, senderID, conversationID, preview string) error
	SyncChatRead(tenantID, userID, conversationID string) error
}

type notificationService struct {
	notifications repositories.NotificationRepository
	advanced      repositories.AdvancedRepository
	settings      repositories.SettingsRepository
	metrics       repositories.MetricsRepository
	dispatcher    *DispatchService
	validate      *validator.Validator
	defaults      repositories.TenantDefaults
}

func NewNotificationService(
	notifications repositories.NotificationRepository,
	advanced repositories.AdvancedRepository,
	settings repositories.SettingsRepository,
	metrics repositories.MetricsRepository,
	dispatcher *DispatchService,
	validate *validator.Validator,
	defaults repositories.TenantDefaults,
) NotificationService {
	return &notificationService{
		notifications: notifications,
		advanced:      advanced,
		settings:      settings,
		metrics:       metrics,
		dispatcher:    dispatcher,
		validate:      validate,
		defaults:      defaults,
	}
}

func (s *notificationService) Create(req *dto.CreateNotificationRequest) (*dto.CreateNotificationResult, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, apperrors.ValidationError("notifications", err.Error())
	}
	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}

	var dataJSON datatypes.JSON
	if req.Data != nil {
		raw, err := json.Marshal(req.Data)
		if err != nil {
			return nil, apperrors.ValidationError("notifications", fmt.Sprintf("bad payload: %v", err))
		}
		dataJSON = datatypes.JSON(raw)
	}

	tenantSettings, err := s.settings.GetOrCreateTenantSettings(req.TenantID, s.defaults)
	if err != nil {
		return nil, apperrors.DatabaseError("notifications", err)
	}
	// The pair's id is assigned up front so every simple record can carry
	// the link before the pair itself exists.
	advancedID := ""
	if tenantSettings.AdvancedDelivery {
		advancedID = uuid.NewString()
	}

	result := &dto.CreateNotificationResult{}
	var allowed []string
	for _, recipientID := range req.Recipients {
		blocked, err := s.recipientBlocked(req, recipientID)
		if err != nil {
			return nil, err
		}
		if blocked {
			// Opt-outs are a silent no-op by contract.
			result.Skipped++
			continue
		}

		n := &models.Notification{
			TenantID:      req.TenantID,
			RecipientID:   recipientID,
			Kind:          req.Kind,
			Title:         req.Title,
			Body:          req.Body,
			Priority:      req.Priority,
			Status:        models.NotificationStatusUnread,
			ExpiresAt:     req.ExpiresAt,
			SourceModule:  req.SourceModule,
			SourceEvent:   req.SourceEvent,
			CorrelationID: req.CorrelationID,
			AdvancedID:    advancedID,
			Data:          dataJSON,
		}
		if err := s.notifications.Create(n); err != nil {
			return nil, apperrors.DatabaseError("notifications", err)
		}
		allowed = append(allowed, recipientID)
		result.Created++
	}

	if len(allowed) == 0 || advancedID == "" {
		return result, nil
	}

	adv := &models.NotificationAdvanced{
		BaseModel:        models.BaseModel{ID: advancedID},
		TenantID:         req.TenantID,
		Kind:             req.Kind,
		Title:            req.Title,
		Body:             req.Body,
		Priority:         req.Priority,
		Status:           models.AdvancedStatusPending,
		ExpiresAt:        req.ExpiresAt,
		SourceModule:     req.SourceModule,
		SourceObjectType: req.SourceObjectType,
		SourceObjectID:   req.SourceObjectID,
		Data:             dataJSON,
	}
	for _, recipientID := range allowed {
		adv.Recipients = append(adv.Recipients, models.NotificationRecipient{
			UserID: recipientID,
			Status: models.RecipientStatusPending,
		})
	}
	if err := s.advanced.Create(adv); err != nil {
		return nil, apperrors.DatabaseError("notifications", err)
	}
	result.AdvancedID = adv.ID

	// Dispatch failures for individual channels are recorded inside; an
	// error here is an unexpected failure, observable but non-fatal to the
	// already-created records.
	if err := s.dispatcher.Deliver(adv.ID); err != nil {
		logger.Error("notification dispatch failed",
			"notification_id", adv.ID, "tenant_id", req.TenantID, "error", err.Error())
	}

	return result, nil
}

// recipientBlocked evaluates the recipient's preference gates: global
// opt-out, per-kind, per-priority, per-module block list.
func (s *notificationService) recipientBlocked(req *dto.CreateNotificationRequest, recipientID string) (bool, error) {
	prefs, err := s.settings.GetOrCreateUserPreferences(req.TenantID, recipientID)
	if err != nil {
		return false, apperrors.DatabaseError("notifications", err)
	}
	switch {
	case !prefs.Enabled:
		return true, nil
	case prefs.DisabledKinds.Contains(req.Kind):
		return true, nil
	case prefs.DisabledPriorities.Contains(req.Priority):
		return true, nil
	case prefs.BlockedModules.Contains(req.SourceModule):
		return true, nil
	}
	return false, nil
}

// --- read APIs ---

func (s *notificationService) GetForRecipient(tenantID, recipientID string, criteria repositories.NotificationCriteria) (*dto.NotificationListResponse, error) {
	notifications, total, err := s.notifications.FindForRecipient(tenantID, recipientID, criteria)
	if err != nil {
		return nil, apperrors.DatabaseError("notifications", err)
	}

	responses := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, buildNotificationResponse(&notifications[i]))
	}
	return &dto.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		Page:          criteria.Page,
		PageSize:      criteria.PageSize,
	}, nil
}

func (s *notificationService) UnreadCount(tenantID, recipientID string) (int64, error) {
	return s.notifications.UnreadCount(tenantID, recipientID)
}

func (s *notificationService) MarkAsRead(tenantID, recipientID, notificationID string) error {
	if err := s.notifications.MarkAsRead(tenantID, recipientID, notificationID); err != nil {
		if err == repositories.ErrNotificationNotFound {
			return apperrors.NotFound("notifications", "Notification not found")
		}
		return apperrors.DatabaseError("notifications", err)
	}
	if n, err := s.notifications.FindByID(notificationID); err == nil && n.AdvancedID != "" {
		s.syncAdvancedRead(tenantID, recipientID, []string{n.AdvancedID})
	}
	if err := s.metrics.Increment(tenantID, time.Now(), repositories.MetricDeltas{Read: 1}); err != nil {
		logger.Warn("read metric increment failed", "tenant_id", tenantID, "error", err.Error())
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(tenantID, recipientID string) error {
	advancedIDs, err := s.notifications.UnreadAdvancedIDs(tenantID, recipientID, "", "")
	if err != nil {
		logger.Warn("advanced read lookup failed", "tenant_id", tenantID, "error", err.Error())
	}
	if err := s.notifications.MarkAllAsRead(tenantID, recipientID); err != nil {
		return apperrors.DatabaseError("notifications", err)
	}
	s.syncAdvancedRead(tenantID, recipientID, advancedIDs)
	return nil
}

// syncAdvancedRead flips the user's recipient sub-records behind a read and
// rolls each aggregate up to read once its last recipient is done.
func (s *notificationService) syncAdvancedRead(tenantID, userID string, advancedIDs []string) {
	for _, id := range advancedIDs {
		if id == "" {
			continue
		}
		if err := s.advanced.MarkReadForUser(tenantID, userID, id); err != nil {
			logger.Warn("advanced read sync failed",
				"notification_id", id, "user_id", userID, "error", err.Error())
			continue
		}
		adv, err := s.advanced.FindByID(id)
		if err != nil {
			continue
		}
		done := true
		for i := range adv.Recipients {
			switch adv.Recipients[i].Status {
			case models.RecipientStatusPending, models.RecipientStatusSent:
				done = false
			}
		}
		if !done {
			continue
		}
		if adv.Status == models.AdvancedStatusPending || adv.Status == models.AdvancedStatusSent {
			if err := s.advanced.SetStatus(id, models.AdvancedStatusRead); err != nil {
				logger.Warn("advanced status rollup failed",
					"notification_id", id, "error", err.Error())
			}
		}
	}
}

// --- chat integration ---

func (s *notificationService) NotifyChatMessage(tenantID, recipientID, senderID, conversationID, preview string) error {
	_, err := s.Create(&dto.CreateNotificationRequest{
		TenantID:      tenantID,
		Recipients:    []string{recipientID},
		Title:         "New message",
		Body:          preview,
		Kind:          "new_message",
		Priority:      models.PriorityNormal,
		SourceModule:  SourceModuleChat,
		SourceEvent:   "message_sent",
		CorrelationID: conversationID,
		Data: map[string]interface{}{
			"conversation_id": conversationID,
			"sender_id":       senderID,
		},
	})
	return err
}

func (s *notificationService) SyncChatRead(tenantID, userID, conversationID string) error {
	advancedIDs, err := s.notifications.UnreadAdvancedIDs(tenantID, userID, SourceModuleChat, conversationID)
	if err != nil {
		logger.Warn("advanced read lookup failed", "tenant_id", tenantID, "error", err.Error())
	}
	affected, err := s.notifications.MarkCorrelationRead(tenantID, userID, SourceModuleChat, conversationID)
	if err != nil {
		return apperrors.DatabaseError("notifications", err)
	}
	s.syncAdvancedRead(tenantID, userID, advancedIDs)
	if affected > 0 {
		if err := s.metrics.Increment(tenantID, time.Now(), repositories.MetricDeltas{Read: affected}); err != nil {
			logger.Warn("read metric increment failed", "tenant_id", tenantID, "error", err.Error())
		}
	}
	return nil
}

func buildNotificationResponse(n *models.Notification) *dto.NotificationResponse {
	resp := &dto.NotificationResponse{
		ID:            n.ID,
		Kind:          n.Kind,
		Title:         n.Title,
		Body:          n.Body,
		Priority:      n.Priority,
		Status:        n.Status,
		SourceModule:  n.SourceModule,
		CorrelationID: n.CorrelationID,
		ReadAt:        n.ReadAt,
		CreatedAt:     n.CreatedAt,
	}
	if len(n.Data) > 0 {
		var data map[string]interface{}
		if err := json.Unmarshal(n.Data, &data); err == nil {
			resp.Data = data
		}
	}
	return resp
}
