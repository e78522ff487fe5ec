package services

import (
	"testing"
	"time"

	"commhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCleanupFixture(t *testing.T) (*engineFixture, *CleanupService) {
	t.Helper()
	f := newEngineFixture(t)
	svc := NewCleanupService(
		f.notifications, f.advanced, f.settings,
		RetentionDefaults{ExpireDays: 30, ReadRetentionDays: 90, ArchivedRetentionDays: 180},
		testDefaults,
	)
	return f, svc
}

func seedSimple(t *testing.T, f *engineFixture, status string, age time.Duration) *models.Notification {
	t.Helper()
	n := &models.Notification{
		TenantID:    "t1",
		RecipientID: "bob",
		Kind:        "deploy",
		Title:       "old news",
		Status:      status,
	}
	require.NoError(t, f.notifications.Create(n))
	setCreatedAt(t, f.db, &models.Notification{}, n.ID, time.Now().Add(-age))
	return n
}

func day(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func TestCleanupExpiresOldLiveRecords(t *testing.T) {
	f, svc := newCleanupFixture(t)

	old := seedSimple(t, f, models.NotificationStatusUnread, day(31))
	fresh := seedSimple(t, f, models.NotificationStatusUnread, day(29))

	result, err := svc.Run(CleanupOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Simple.Expired)

	stored, err := f.notifications.FindByID(old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusExpired, stored.Status)

	stored, err = f.notifications.FindByID(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusUnread, stored.Status)
}

func TestCleanupHonorsExplicitExpiry(t *testing.T) {
	f, svc := newCleanupFixture(t)

	past := time.Now().Add(-time.Hour)
	n := &models.Notification{
		TenantID:    "t1",
		RecipientID: "bob",
		Kind:        "deploy",
		Title:       "short lived",
		Status:      models.NotificationStatusUnread,
		ExpiresAt:   &past,
	}
	require.NoError(t, f.notifications.Create(n))

	result, err := svc.Run(CleanupOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Simple.Expired)
}

func TestCleanupDeletesAgedReadAndArchived(t *testing.T) {
	f, svc := newCleanupFixture(t)

	seedSimple(t, f, models.NotificationStatusRead, day(91))
	keptRead := seedSimple(t, f, models.NotificationStatusRead, day(89))
	seedSimple(t, f, models.NotificationStatusArchived, day(181))
	keptArchived := seedSimple(t, f, models.NotificationStatusArchived, day(179))

	result, err := svc.Run(CleanupOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Simple.DeletedRead)
	assert.EqualValues(t, 1, result.Simple.DeletedArchived)

	var count int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	_, err = f.notifications.FindByID(keptRead.ID)
	assert.NoError(t, err)
	_, err = f.notifications.FindByID(keptArchived.ID)
	assert.NoError(t, err)
}

func TestCleanupDryRunCountsWithoutTouching(t *testing.T) {
	f, svc := newCleanupFixture(t)

	seedSimple(t, f, models.NotificationStatusUnread, day(31))
	seedSimple(t, f, models.NotificationStatusRead, day(91))

	result, err := svc.Run(CleanupOptions{DryRun: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Simple.Expired)
	assert.EqualValues(t, 1, result.Simple.DeletedRead)

	var count int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
	var expired int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("status = ?", models.NotificationStatusExpired).Count(&expired).Error)
	assert.Zero(t, expired)
}

func TestCleanupOverrides(t *testing.T) {
	f, svc := newCleanupFixture(t)

	seedSimple(t, f, models.NotificationStatusUnread, day(10))

	short := 5
	result, err := svc.Run(CleanupOptions{ExpireDaysOverride: &short})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Simple.Expired)
}

func TestCleanupAdvancedUsesTenantRetention(t *testing.T) {
	f, svc := newCleanupFixture(t)

	settings, err := f.settings.GetOrCreateTenantSettings("t1", testDefaults)
	require.NoError(t, err)
	settings.ExpireDays = 7
	require.NoError(t, f.settings.SaveTenantSettings(settings))

	adv := seedAdvanced(t, f, "t1", "bob")
	setCreatedAt(t, f.db, &models.NotificationAdvanced{}, adv.ID, time.Now().Add(-day(8)))

	result, err := svc.Run(CleanupOptions{IncludeAdvanced: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Advanced.Expired)

	stored, err := f.advanced.FindByID(adv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvancedStatusExpired, stored.Status)
	assert.Equal(t, models.RecipientStatusExpired, stored.Recipients[0].Status)
}

func TestCleanupAdvancedDeletesRecipientsFirst(t *testing.T) {
	f, svc := newCleanupFixture(t)

	adv := seedAdvanced(t, f, "t1", "bob", "carol")
	require.NoError(t, f.advanced.SetStatus(adv.ID, models.AdvancedStatusArchived))
	setCreatedAt(t, f.db, &models.NotificationAdvanced{}, adv.ID, time.Now().Add(-day(181)))

	result, err := svc.Run(CleanupOptions{IncludeAdvanced: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Advanced.DeletedArchived)

	var recipients int64
	require.NoError(t, f.db.Model(&models.NotificationRecipient{}).Count(&recipients).Error)
	assert.Zero(t, recipients)
}

func TestRelabelModule(t *testing.T) {
	f, svc := newCleanupFixture(t)

	_, err := f.svc.Create(createRequest("bob", "carol"))
	require.NoError(t, err)

	// 2 simple records + 1 advanced record carry the module name.
	affected, err := svc.RelabelModule("ci", "pipelines")
	require.NoError(t, err)
	assert.EqualValues(t, 3, affected)

	affected, err = svc.RelabelModule("ci", "pipelines")
	require.NoError(t, err)
	assert.Zero(t, affected)

	var count int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("source_module = ?", "pipelines").Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
