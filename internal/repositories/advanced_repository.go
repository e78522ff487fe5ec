package repositories

import (
	"errors"
	"time"

	"commhub/internal/models"

	"gorm.io/gorm"
)

// AdvancedRepository is the data access layer for multi-recipient
// notifications and their per-recipient delivery sub-records.
type AdvancedRepository interface {
	Create(n *models.NotificationAdvanced) error
	FindByID(id string) (*models.NotificationAdvanced, error)
	SetStatus(id, status string) error
	SaveRecipient(rec *models.NotificationRecipient) error
	MarkReadForUser(tenantID, userID, notificationID string) error

	// CountCreatedSince backs the rate limiter; it includes every record
	// created in the window, the just-created one among them.
	CountCreatedSince(tenantID string, since time.Time) (int64, error)

	// Janitor support.
	DistinctTenants() ([]string, error)
	FindWindow(since time.Time) ([]models.NotificationAdvanced, error)
	ArchiveByIDs(ids []string) error
	CountExpirable(tenantID string, cutoff, now time.Time) (int64, error)
	ExpireTenant(tenantID string, cutoff, now time.Time) (int64, error)
	CountReadBefore(tenantID string, cutoff time.Time) (int64, error)
	DeleteReadBefore(tenantID string, cutoff time.Time) (int64, error)
	CountArchivedBefore(tenantID string, cutoff time.Time) (int64, error)
	DeleteArchivedBefore(tenantID string, cutoff time.Time) (int64, error)
	RelabelModule(oldModule, newModule string) (int64, error)
}

type advancedRepository struct {
	db *gorm.DB
}

func NewAdvancedRepository(db *gorm.DB) AdvancedRepository {
	return &advancedRepository{db: db}
}

func (r *advancedRepository) Create(n *models.NotificationAdvanced) error {
	return r.db.Create(n).Error
}

func (r *advancedRepository) FindByID(id string) (*models.NotificationAdvanced, error) {
	var n models.NotificationAdvanced
	err := r.db.Preload("Recipients").First(&n, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *advancedRepository) SetStatus(id, status string) error {
	return r.db.Model(&models.NotificationAdvanced{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *advancedRepository) SaveRecipient(rec *models.NotificationRecipient) error {
	return r.db.Save(rec).Error
}

func (r *advancedRepository) MarkReadForUser(tenantID, userID, notificationID string) error {
	now := time.Now()
	return r.db.Model(&models.NotificationRecipient{}).
		Where("notification_id = ? AND user_id = ? AND status IN ?",
			notificationID, userID,
			[]string{models.RecipientStatusPending, models.RecipientStatusSent}).
		Updates(map[string]interface{}{
			"status":  models.RecipientStatusRead,
			"read_at": now,
		}).Error
}

func (r *advancedRepository) CountCreatedSince(tenantID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.NotificationAdvanced{}).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Count(&count).Error
	return count, err
}

// --- janitor support ---

func (r *advancedRepository) DistinctTenants() ([]string, error) {
	var tenants []string
	err := r.db.Model(&models.NotificationAdvanced{}).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}

func (r *advancedRepository) FindWindow(since time.Time) ([]models.NotificationAdvanced, error) {
	var notifications []models.NotificationAdvanced
	err := r.db.
		Where("created_at >= ? AND status NOT IN ?", since,
			[]string{models.AdvancedStatusArchived, models.AdvancedStatusExpired}).
		Order("created_at ASC").
		Find(&notifications).Error
	return notifications, err
}

func (r *advancedRepository) ArchiveByIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Model(&models.NotificationAdvanced{}).
		Where("id IN ?", ids).
		Update("status", models.AdvancedStatusArchived).Error; err != nil {
		return err
	}
	return r.db.Model(&models.NotificationRecipient{}).
		Where("notification_id IN ?", ids).
		Update("status", models.RecipientStatusArchived).Error
}

func (r *advancedRepository) expirableQuery(tenantID string, cutoff, now time.Time) *gorm.DB {
	return r.db.Model(&models.NotificationAdvanced{}).
		Where("tenant_id = ?", tenantID).
		Where("status IN ?", []string{
			models.AdvancedStatusPending,
			models.AdvancedStatusSent,
			models.AdvancedStatusRead,
		}).
		Where("(expires_at IS NOT NULL AND expires_at < ?) OR created_at < ?", now, cutoff)
}

func (r *advancedRepository) CountExpirable(tenantID string, cutoff, now time.Time) (int64, error) {
	var count int64
	err := r.expirableQuery(tenantID, cutoff, now).Count(&count).Error
	return count, err
}

func (r *advancedRepository) ExpireTenant(tenantID string, cutoff, now time.Time) (int64, error) {
	var ids []string
	if err := r.expirableQuery(tenantID, cutoff, now).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := r.db.Model(&models.NotificationAdvanced{}).
		Where("id IN ?", ids).
		Update("status", models.AdvancedStatusExpired).Error; err != nil {
		return 0, err
	}
	err := r.db.Model(&models.NotificationRecipient{}).
		Where("notification_id IN ?", ids).
		Where("status IN ?", []string{models.RecipientStatusPending, models.RecipientStatusSent, models.RecipientStatusRead}).
		Update("status", models.RecipientStatusExpired).Error
	return int64(len(ids)), err
}

func (r *advancedRepository) CountReadBefore(tenantID string, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.NotificationAdvanced{}).
		Where("tenant_id = ? AND status = ? AND created_at < ?",
			tenantID, models.AdvancedStatusRead, cutoff).
		Count(&count).Error
	return count, err
}

func (r *advancedRepository) DeleteReadBefore(tenantID string, cutoff time.Time) (int64, error) {
	return r.deleteWithRecipients(tenantID, models.AdvancedStatusRead, cutoff)
}

func (r *advancedRepository) CountArchivedBefore(tenantID string, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.NotificationAdvanced{}).
		Where("tenant_id = ? AND status = ? AND created_at < ?",
			tenantID, models.AdvancedStatusArchived, cutoff).
		Count(&count).Error
	return count, err
}

func (r *advancedRepository) DeleteArchivedBefore(tenantID string, cutoff time.Time) (int64, error) {
	return r.deleteWithRecipients(tenantID, models.AdvancedStatusArchived, cutoff)
}

func (r *advancedRepository) deleteWithRecipients(tenantID, status string, cutoff time.Time) (int64, error) {
	var ids []string
	err := r.db.Model(&models.NotificationAdvanced{}).
		Where("tenant_id = ? AND status = ? AND created_at < ?", tenantID, status, cutoff).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	// Recipients first so a mid-pass abort never leaves orphan sub-records
	// pointing at a deleted parent; re-running finishes the job.
	if err := r.db.Where("notification_id IN ?", ids).
		Delete(&models.NotificationRecipient{}).Error; err != nil {
		return 0, err
	}
	res := r.db.Where("id IN ?", ids).Delete(&models.NotificationAdvanced{})
	return res.RowsAffected, res.Error
}

func (r *advancedRepository) RelabelModule(oldModule, newModule string) (int64, error) {
	res := r.db.Model(&models.NotificationAdvanced{}).
		Where("source_module = ?", oldModule).
		Update("source_module", newModule)
	return res.RowsAffected, res.Error
}
