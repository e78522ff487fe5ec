package services

import (
	"fmt"
	"time"

	"commhub/internal/logger"
	"commhub/internal/models"
	"commhub/internal/pkg/email"
	"commhub/internal/repositories"

	"github.com/google/uuid"
)

// AddressBook resolves a user ID to delivery endpoints. The directory
// service owning user profiles lives outside this module.
type AddressBook interface {
	EmailAddress(tenantID, userID string) (string, error)
	PhoneNumber(tenantID, userID string) (string, error)
}

// SMSSender and PushSender mirror the email sink contract for the other
// external channels.
type SMSSender interface {
	SendSMS(phone, body string) error
}

type PushSender interface {
	SendPush(userID, title, body string) error
}

// NoopAddressBook is the default when no directory is wired: external
// channels fail addressing and only in-app delivers.
type NoopAddressBook struct{}

func (NoopAddressBook) EmailAddress(tenantID, userID string) (string, error) {
	return "", fmt.Errorf("no address book configured")
}

func (NoopAddressBook) PhoneNumber(tenantID, userID string) (string, error) {
	return "", fmt.Errorf("no address book configured")
}

// LogSMSSender and LogPushSender are stand-in sinks for environments
// without a provider account.
type LogSMSSender struct{}

func (LogSMSSender) SendSMS(phone, body string) error {
	logger.Info("sms (log sink)", "phone", phone, "body", body)
	return nil
}

type LogPushSender struct{}

func (LogPushSender) SendPush(userID, title, body string) error {
	logger.Info("push (log sink)", "user_id", userID, "title", title)
	return nil
}

// DispatchService fans one advanced notification out to its recipients
// across the enabled channels. In-app delivery is the database record
// itself and cannot fail; external channels are best-effort and every
// attempt outcome is recorded.
type DispatchService struct {
	advanced  repositories.AdvancedRepository
	settings  repositories.SettingsRepository
	metrics   repositories.MetricsRepository
	addresses AddressBook
	emails    email.Sender
	templates *email.TemplateManager
	sms       SMSSender
	push      PushSender
	trackBase string
	defaults  repositories.TenantDefaults
	clock     func() time.Time
}

func NewDispatchService(
	advanced repositories.AdvancedRepository,
	settings repositories.SettingsRepository,
	metrics repositories.MetricsRepository,
	addresses AddressBook,
	emails email.Sender,
	templates *email.TemplateManager,
	sms SMSSender,
	push PushSender,
	trackBase string,
	defaults repositories.TenantDefaults,
) *DispatchService {
	return &DispatchService{
		advanced:  advanced,
		settings:  settings,
		metrics:   metrics,
		addresses: addresses,
		emails:    emails,
		templates: templates,
		sms:       sms,
		push:      push,
		trackBase: trackBase,
		defaults:  defaults,
		clock:     time.Now,
	}
}

// Deliver runs the full channel fan-out for one advanced notification.
// A quota overrun is a soft skip: the records stay pending and the skip
// is logged, nothing errors out.
func (s *DispatchService) Deliver(notificationID string) error {
	n, err := s.advanced.FindByID(notificationID)
	if err != nil {
		return err
	}
	if len(n.Recipients) == 0 {
		return nil
	}

	tenantSettings, err := s.settings.GetOrCreateTenantSettings(n.TenantID, s.defaults)
	if err != nil {
		return err
	}

	now := s.clock()
	if skipped, window := s.overQuota(n.TenantID, tenantSettings, now); skipped {
		logger.Warn("notification dispatch skipped, tenant over quota",
			"tenant_id", n.TenantID, "notification_id", n.ID, "window", window)
		return nil
	}

	quiet := inQuietHours(tenantSettings, now)
	deltas := repositories.MetricDeltas{Created: 1, Sent: 1}

	for i := range n.Recipients {
		rec := &n.Recipients[i]
		prefs, err := s.settings.GetOrCreateUserPreferences(n.TenantID, rec.UserID)
		if err != nil {
			return err
		}

		// In-app is the record itself: always delivered.
		if prefs.InAppEnabled {
			rec.InAppSent = true
			deltas.InAppSent++
		}

		if !quiet {
			if tenantSettings.EmailEnabled && prefs.EmailEnabled {
				if s.attemptEmail(n, rec, now, &deltas) {
					rec.EmailSent = true
					deltas.EmailSent++
				}
			}
			if tenantSettings.SMSEnabled && prefs.SMSEnabled {
				if s.attemptSMS(n, rec) {
					rec.SMSSent = true
					deltas.SMSSent++
				}
			}
			if tenantSettings.PushEnabled && prefs.PushEnabled {
				if s.attemptPush(n, rec) {
					rec.PushSent = true
					deltas.PushSent++
				}
			}
		}

		rec.Status = models.RecipientStatusSent
		if err := s.advanced.SaveRecipient(rec); err != nil {
			return err
		}
		deltas.Delivered++
	}

	if err := s.advanced.SetStatus(n.ID, models.AdvancedStatusSent); err != nil {
		return err
	}
	if err := s.metrics.Increment(n.TenantID, now, deltas); err != nil {
		logger.Warn("dispatch metric increment failed", "tenant_id", n.TenantID, "error", err.Error())
	}
	return nil
}

// overQuota checks the trailing hourly and daily windows. The counts
// include the record being dispatched, so the limit itself still goes
// through and the one after it is skipped.
func (s *DispatchService) overQuota(tenantID string, settings *models.TenantNotificationSettings, now time.Time) (bool, string) {
	if settings.HourlyLimit > 0 {
		count, err := s.advanced.CountCreatedSince(tenantID, now.Add(-time.Hour))
		if err != nil {
			logger.Warn("quota count failed", "tenant_id", tenantID, "error", err.Error())
		} else if count > int64(settings.HourlyLimit) {
			return true, "hourly"
		}
	}
	if settings.DailyLimit > 0 {
		count, err := s.advanced.CountCreatedSince(tenantID, now.Add(-24*time.Hour))
		if err != nil {
			logger.Warn("quota count failed", "tenant_id", tenantID, "error", err.Error())
		} else if count > int64(settings.DailyLimit) {
			return true, "daily"
		}
	}
	return false, ""
}

// inQuietHours checks the tenant's local-hour window, which may wrap
// midnight (22 -> 6).
func inQuietHours(settings *models.TenantNotificationSettings, now time.Time) bool {
	if settings.QuietHoursStart == nil || settings.QuietHoursEnd == nil {
		return false
	}
	start, end := *settings.QuietHoursStart, *settings.QuietHoursEnd
	hour := now.Hour()
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// attemptEmail sends one email and records the attempt as an
// EmailDelivery row whatever the outcome. The delivery ID is assigned up
// front so the tracking pixel URL baked into the body resolves.
func (s *DispatchService) attemptEmail(n *models.NotificationAdvanced, rec *models.NotificationRecipient, now time.Time, deltas *repositories.MetricDeltas) bool {
	delivery := &models.EmailDelivery{
		BaseModel:      models.BaseModel{ID: uuid.NewString()},
		TenantID:       n.TenantID,
		NotificationID: n.ID,
		RecipientID:    rec.UserID,
		Subject:        n.Title,
		SentAt:         now,
	}

	address, err := s.addresses.EmailAddress(n.TenantID, rec.UserID)
	if err != nil {
		delivery.Status = models.DeliveryStatusFailed
		delivery.Error = err.Error()
		s.recordEmailDelivery(delivery)
		return false
	}
	delivery.EmailAddress = address

	body := s.renderEmailBody(n, delivery.ID)
	sendErr := s.emails.Send(&email.Message{
		To:       []string{address},
		Subject:  n.Title,
		Body:     n.Body,
		HTMLBody: body,
	})
	if sendErr != nil {
		logger.Warn("email send failed",
			"notification_id", n.ID, "recipient_id", rec.UserID, "error", sendErr.Error())
		delivery.Status = models.DeliveryStatusFailed
		delivery.Error = sendErr.Error()
		s.recordEmailDelivery(delivery)
		return false
	}

	delivery.Status = models.DeliveryStatusSent
	if s.recordEmailDelivery(delivery) {
		deltas.EmailDelivered++
	}
	return true
}

func (s *DispatchService) recordEmailDelivery(d *models.EmailDelivery) bool {
	if err := s.metrics.CreateEmailDelivery(d); err != nil {
		logger.Error("email delivery record failed", "notification_id", d.NotificationID, "error", err.Error())
		return false
	}
	return true
}

func (s *DispatchService) renderEmailBody(n *models.NotificationAdvanced, deliveryID string) string {
	trackURL := ""
	if s.trackBase != "" {
		trackURL = fmt.Sprintf("%s/api/v1/email/track/%s/open", s.trackBase, deliveryID)
	}
	body, err := s.templates.Render("notification", email.NotificationData{
		Title:    n.Title,
		Body:     n.Body,
		Priority: n.Priority,
		TrackURL: trackURL,
	})
	if err != nil {
		logger.Warn("email template render failed", "notification_id", n.ID, "error", err.Error())
		return n.Body
	}
	return body
}

func (s *DispatchService) attemptSMS(n *models.NotificationAdvanced, rec *models.NotificationRecipient) bool {
	phone, err := s.addresses.PhoneNumber(n.TenantID, rec.UserID)
	if err != nil {
		logger.Warn("sms addressing failed", "recipient_id", rec.UserID, "error", err.Error())
		return false
	}
	if err := s.sms.SendSMS(phone, n.Title); err != nil {
		logger.Warn("sms send failed", "recipient_id", rec.UserID, "error", err.Error())
		return false
	}
	return true
}

func (s *DispatchService) attemptPush(n *models.NotificationAdvanced, rec *models.NotificationRecipient) bool {
	if err := s.push.SendPush(rec.UserID, n.Title, n.Body); err != nil {
		logger.Warn("push send failed", "recipient_id", rec.UserID, "error", err.Error())
		return false
	}
	return true
}
