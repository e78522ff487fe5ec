package services

import (
	"time"

	"commhub/internal/logger"
	"commhub/internal/repositories"
)

// RetentionDefaults are the server-wide fallbacks applied when a tenant
// has no explicit retention settings.
type RetentionDefaults struct {
	ExpireDays            int
	ReadRetentionDays     int
	ArchivedRetentionDays int
}

// CleanupOptions tunes one cleanup run. Overrides beat both the tenant
// settings and the server defaults; DryRun counts without touching rows.
type CleanupOptions struct {
	DryRun                        bool
	ExpireDaysOverride            *int
	ArchivedRetentionDaysOverride *int
	IncludeAdvanced               bool
}

// ModelCleanupCounts reports one model's share of a cleanup run.
type ModelCleanupCounts struct {
	Expired         int64
	DeletedRead     int64
	DeletedArchived int64
}

type CleanupResult struct {
	Simple   ModelCleanupCounts
	Advanced ModelCleanupCounts
}

// janitorRepository is the cleanup surface both notification models
// share.
type janitorRepository interface {
	DistinctTenants() ([]string, error)
	CountExpirable(tenantID string, cutoff, now time.Time) (int64, error)
	ExpireTenant(tenantID string, cutoff, now time.Time) (int64, error)
	CountReadBefore(tenantID string, cutoff time.Time) (int64, error)
	DeleteReadBefore(tenantID string, cutoff time.Time) (int64, error)
	CountArchivedBefore(tenantID string, cutoff time.Time) (int64, error)
	DeleteArchivedBefore(tenantID string, cutoff time.Time) (int64, error)
	RelabelModule(oldModule, newModule string) (int64, error)
}

// CleanupService ages notification records out in three passes per
// tenant: expire live records, delete old read ones, delete old archived
// ones. The passes run in that order so a record expired in this run is
// not also deleted by it.
type CleanupService struct {
	notifications repositories.NotificationRepository
	advanced      repositories.AdvancedRepository
	settings      repositories.SettingsRepository
	defaults      RetentionDefaults
	tenantSeed    repositories.TenantDefaults
	clock         func() time.Time
}

func NewCleanupService(
	notifications repositories.NotificationRepository,
	advanced repositories.AdvancedRepository,
	settings repositories.SettingsRepository,
	defaults RetentionDefaults,
	tenantSeed repositories.TenantDefaults,
) *CleanupService {
	return &CleanupService{
		notifications: notifications,
		advanced:      advanced,
		settings:      settings,
		defaults:      defaults,
		tenantSeed:    tenantSeed,
		clock:         time.Now,
	}
}

// Run cleans both models across every tenant that has records.
func (s *CleanupService) Run(opts CleanupOptions) (*CleanupResult, error) {
	result := &CleanupResult{}

	simple, err := s.cleanModel(s.notifications, opts, s.simpleRetention)
	if err != nil {
		return nil, err
	}
	result.Simple = simple

	if opts.IncludeAdvanced {
		advanced, err := s.cleanModel(s.advanced, opts, s.advancedRetention)
		if err != nil {
			return nil, err
		}
		result.Advanced = advanced
	}
	return result, nil
}

func (s *CleanupService) cleanModel(repo janitorRepository, opts CleanupOptions, retention func(tenantID string) (RetentionDefaults, error)) (ModelCleanupCounts, error) {
	var counts ModelCleanupCounts

	tenants, err := repo.DistinctTenants()
	if err != nil {
		return counts, err
	}
	now := s.clock()

	for _, tenantID := range tenants {
		days, err := retention(tenantID)
		if err != nil {
			return counts, err
		}
		if opts.ExpireDaysOverride != nil {
			days.ExpireDays = *opts.ExpireDaysOverride
		}
		if opts.ArchivedRetentionDaysOverride != nil {
			days.ArchivedRetentionDays = *opts.ArchivedRetentionDaysOverride
		}

		expireCutoff := now.AddDate(0, 0, -days.ExpireDays)
		readCutoff := now.AddDate(0, 0, -days.ReadRetentionDays)
		archivedCutoff := now.AddDate(0, 0, -days.ArchivedRetentionDays)

		if opts.DryRun {
			expired, err := repo.CountExpirable(tenantID, expireCutoff, now)
			if err != nil {
				return counts, err
			}
			deletedRead, err := repo.CountReadBefore(tenantID, readCutoff)
			if err != nil {
				return counts, err
			}
			deletedArchived, err := repo.CountArchivedBefore(tenantID, archivedCutoff)
			if err != nil {
				return counts, err
			}
			counts.Expired += expired
			counts.DeletedRead += deletedRead
			counts.DeletedArchived += deletedArchived
			continue
		}

		expired, err := repo.ExpireTenant(tenantID, expireCutoff, now)
		if err != nil {
			return counts, err
		}
		deletedRead, err := repo.DeleteReadBefore(tenantID, readCutoff)
		if err != nil {
			return counts, err
		}
		deletedArchived, err := repo.DeleteArchivedBefore(tenantID, archivedCutoff)
		if err != nil {
			return counts, err
		}
		counts.Expired += expired
		counts.DeletedRead += deletedRead
		counts.DeletedArchived += deletedArchived

		if expired+deletedRead+deletedArchived > 0 {
			logger.Info("cleanup pass",
				"tenant_id", tenantID,
				"expired", expired,
				"deleted_read", deletedRead,
				"deleted_archived", deletedArchived)
		}
	}
	return counts, nil
}

// simpleRetention: the lightweight model predates per-tenant settings and
// keeps using the server-wide defaults.
func (s *CleanupService) simpleRetention(string) (RetentionDefaults, error) {
	return s.defaults, nil
}

// advancedRetention: tenant settings win, zero values fall back to the
// server-wide defaults.
func (s *CleanupService) advancedRetention(tenantID string) (RetentionDefaults, error) {
	settings, err := s.settings.GetOrCreateTenantSettings(tenantID, s.tenantSeed)
	if err != nil {
		return RetentionDefaults{}, err
	}
	days := s.defaults
	if settings.ExpireDays > 0 {
		days.ExpireDays = settings.ExpireDays
	}
	if settings.ReadRetentionDays > 0 {
		days.ReadRetentionDays = settings.ReadRetentionDays
	}
	if settings.ArchivedRetentionDays > 0 {
		days.ArchivedRetentionDays = settings.ArchivedRetentionDays
	}
	return days, nil
}

// RelabelModule renames a source module across both models, for when a
// producing module is renamed and history should follow.
func (s *CleanupService) RelabelModule(oldModule, newModule string) (int64, error) {
	simple, err := s.notifications.RelabelModule(oldModule, newModule)
	if err != nil {
		return 0, err
	}
	advanced, err := s.advanced.RelabelModule(oldModule, newModule)
	if err != nil {
		return simple, err
	}
	return simple + advanced, nil
}
