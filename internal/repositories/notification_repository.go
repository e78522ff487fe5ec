package repositories

import (
	"errors"
	"time"

	"commhub/internal/models"

	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Criteria for paging a recipient's notifications.
type NotificationCriteria struct {
	UnreadOnly bool   `form:"unread_only"`
	Kind       string `form:"kind"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// NotificationRepository is the data access layer for the simple
// (single-recipient in-app) notification model.
type NotificationRepository interface {
	Create(n *models.Notification) error
	FindByID(id string) (*models.Notification, error)
	FindForRecipient(tenantID, recipientID string, criteria NotificationCriteria) ([]models.Notification, int64, error)
	UnreadCount(tenantID, recipientID string) (int64, error)
	MarkAsRead(tenantID, recipientID, id string) error
	MarkAllAsRead(tenantID, recipientID string) error
	// MarkCorrelationRead is the read-sync used by chat: every unread
	// notification the module produced for this correlation key flips to read.
	MarkCorrelationRead(tenantID, recipientID, sourceModule, correlationID string) (int64, error)
	// UnreadAdvancedIDs lists the advanced pairs behind the recipient's
	// unread records, optionally narrowed to one module's correlation key.
	UnreadAdvancedIDs(tenantID, recipientID, sourceModule, correlationID string) ([]string, error)
	Delete(id string) error

	// Janitor support.
	DistinctTenants() ([]string, error)
	FindWindow(since time.Time) ([]models.Notification, error)
	ArchiveByIDs(ids []string) error
	CountExpirable(tenantID string, cutoff, now time.Time) (int64, error)
	ExpireTenant(tenantID string, cutoff, now time.Time) (int64, error)
	CountReadBefore(tenantID string, cutoff time.Time) (int64, error)
	DeleteReadBefore(tenantID string, cutoff time.Time) (int64, error)
	CountArchivedBefore(tenantID string, cutoff time.Time) (int64, error)
	DeleteArchivedBefore(tenantID string, cutoff time.Time) (int64, error)
	RelabelModule(oldModule, newModule string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

func (r *notificationRepository) FindByID(id string) (*models.Notification, error) {
	var n models.Notification
	err := r.db.First(&n, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) FindForRecipient(tenantID, recipientID string, criteria NotificationCriteria) ([]models.Notification, int64, error) {
	q := r.db.Model(&models.Notification{}).
		Where("tenant_id = ? AND recipient_id = ?", tenantID, recipientID)
	if criteria.UnreadOnly {
		q = q.Where("status = ?", models.NotificationStatusUnread)
	}
	if criteria.Kind != "" {
		q = q.Where("kind = ?", criteria.Kind)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := criteria.Page
	if page < 1 {
		page = 1
	}
	pageSize := criteria.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var notifications []models.Notification
	err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&notifications).Error
	return notifications, total, err
}

func (r *notificationRepository) UnreadCount(tenantID, recipientID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("tenant_id = ? AND recipient_id = ? AND status = ?",
			tenantID, recipientID, models.NotificationStatusUnread).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkAsRead(tenantID, recipientID, id string) error {
	now := time.Now()
	res := r.db.Model(&models.Notification{}).
		Where("id = ? AND tenant_id = ? AND recipient_id = ? AND status = ?",
			id, tenantID, recipientID, models.NotificationStatusUnread).
		Updates(map[string]interface{}{
			"status":  models.NotificationStatusRead,
			"read_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(tenantID, recipientID string) error {
	now := time.Now()
	return r.db.Model(&models.Notification{}).
		Where("tenant_id = ? AND recipient_id = ? AND status = ?",
			tenantID, recipientID, models.NotificationStatusUnread).
		Updates(map[string]interface{}{
			"status":  models.NotificationStatusRead,
			"read_at": now,
		}).Error
}

func (r *notificationRepository) MarkCorrelationRead(tenantID, recipientID, sourceModule, correlationID string) (int64, error) {
	now := time.Now()
	res := r.db.Model(&models.Notification{}).
		Where("tenant_id = ? AND recipient_id = ? AND source_module = ? AND correlation_id = ? AND status = ?",
			tenantID, recipientID, sourceModule, correlationID, models.NotificationStatusUnread).
		Updates(map[string]interface{}{
			"status":  models.NotificationStatusRead,
			"read_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) UnreadAdvancedIDs(tenantID, recipientID, sourceModule, correlationID string) ([]string, error) {
	q := r.db.Model(&models.Notification{}).
		Where("tenant_id = ? AND recipient_id = ? AND status = ? AND advanced_id <> ''",
			tenantID, recipientID, models.NotificationStatusUnread)
	if sourceModule != "" {
		q = q.Where("source_module = ?", sourceModule)
	}
	if correlationID != "" {
		q = q.Where("correlation_id = ?", correlationID)
	}
	var ids []string
	err := q.Distinct("advanced_id").Pluck("advanced_id", &ids).Error
	return ids, err
}

func (r *notificationRepository) Delete(id string) error {
	return r.db.Delete(&models.Notification{}, "id = ?", id).Error
}

// --- janitor support ---

func (r *notificationRepository) DistinctTenants() ([]string, error) {
	var tenants []string
	err := r.db.Model(&models.Notification{}).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}

func (r *notificationRepository) FindWindow(since time.Time) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.
		Where("created_at >= ? AND status NOT IN ?", since,
			[]string{models.NotificationStatusArchived, models.NotificationStatusExpired}).
		Order("created_at ASC").
		Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) ArchiveByIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Notification{}).
		Where("id IN ?", ids).
		Update("status", models.NotificationStatusArchived).Error
}

func (r *notificationRepository) expirableQuery(tenantID string, cutoff, now time.Time) *gorm.DB {
	return r.db.Model(&models.Notification{}).
		Where("tenant_id = ?", tenantID).
		Where("status IN ?", []string{models.NotificationStatusUnread, models.NotificationStatusRead}).
		Where("(expires_at IS NOT NULL AND expires_at < ?) OR created_at < ?", now, cutoff)
}

func (r *notificationRepository) CountExpirable(tenantID string, cutoff, now time.Time) (int64, error) {
	var count int64
	err := r.expirableQuery(tenantID, cutoff, now).Count(&count).Error
	return count, err
}

func (r *notificationRepository) ExpireTenant(tenantID string, cutoff, now time.Time) (int64, error) {
	res := r.expirableQuery(tenantID, cutoff, now).
		Update("status", models.NotificationStatusExpired)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) CountReadBefore(tenantID string, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("tenant_id = ? AND status = ? AND created_at < ?",
			tenantID, models.NotificationStatusRead, cutoff).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) DeleteReadBefore(tenantID string, cutoff time.Time) (int64, error) {
	res := r.db.
		Where("tenant_id = ? AND status = ? AND created_at < ?",
			tenantID, models.NotificationStatusRead, cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) CountArchivedBefore(tenantID string, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("tenant_id = ? AND status = ? AND created_at < ?",
			tenantID, models.NotificationStatusArchived, cutoff).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) DeleteArchivedBefore(tenantID string, cutoff time.Time) (int64, error) {
	res := r.db.
		Where("tenant_id = ? AND status = ? AND created_at < ?",
			tenantID, models.NotificationStatusArchived, cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) RelabelModule(oldModule, newModule string) (int64, error) {
	res := r.db.Model(&models.Notification{}).
		Where("source_module = ?", oldModule).
		Update("source_module", newModule)
	return res.RowsAffected, res.Error
}
