package repositories

import (
	"errors"

	"commhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository manages the per-tenant and per-user configuration
// singletons. Creation is idempotent: concurrent first-touches race on the
// unique index and both resolve to the same row.
type SettingsRepository interface {
	GetOrCreateTenantSettings(tenantID string, defaults TenantDefaults) (*models.TenantNotificationSettings, error)
	SaveTenantSettings(s *models.TenantNotificationSettings) error
	GetOrCreateUserPreferences(tenantID, userID string) (*models.UserNotificationPreferences, error)
	SaveUserPreferences(p *models.UserNotificationPreferences) error
}

// TenantDefaults seed a settings row on first touch.
type TenantDefaults struct {
	HourlyLimit int
	DailyLimit  int
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetOrCreateTenantSettings(tenantID string, defaults TenantDefaults) (*models.TenantNotificationSettings, error) {
	var settings models.TenantNotificationSettings
	err := r.db.First(&settings, "tenant_id = ?", tenantID).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	settings = models.TenantNotificationSettings{
		TenantID:         tenantID,
		AdvancedDelivery: true,
		HourlyLimit:      defaults.HourlyLimit,
		DailyLimit:       defaults.DailyLimit,
		EmailEnabled:     true,
	}
	// DoNothing + refetch: the loser of a concurrent first-touch reads the
	// winner's row instead of erroring out.
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoNothing: true,
	}).Create(&settings).Error; err != nil {
		return nil, err
	}
	if err := r.db.First(&settings, "tenant_id = ?", tenantID).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) SaveTenantSettings(s *models.TenantNotificationSettings) error {
	return r.db.Save(s).Error
}

func (r *settingsRepository) GetOrCreateUserPreferences(tenantID, userID string) (*models.UserNotificationPreferences, error) {
	var prefs models.UserNotificationPreferences
	err := r.db.First(&prefs, "tenant_id = ? AND user_id = ?", tenantID, userID).Error
	if err == nil {
		return &prefs, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prefs = models.UserNotificationPreferences{
		TenantID:     tenantID,
		UserID:       userID,
		Enabled:      true,
		InAppEnabled: true,
		EmailEnabled: true,
		SMSEnabled:   true,
		PushEnabled:  true,
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&prefs).Error; err != nil {
		return nil, err
	}
	if err := r.db.First(&prefs, "tenant_id = ? AND user_id = ?", tenantID, userID).Error; err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *settingsRepository) SaveUserPreferences(p *models.UserNotificationPreferences) error {
	return r.db.Save(p).Error
}
