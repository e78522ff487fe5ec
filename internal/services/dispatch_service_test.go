package services

import (
	"testing"
	"time"

	"commhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAdvanced(t *testing.T, f *engineFixture, tenantID string, recipients ...string) *models.NotificationAdvanced {
	t.Helper()
	adv := &models.NotificationAdvanced{
		TenantID:     tenantID,
		Kind:         "deploy",
		Title:        "Deploy finished",
		Body:         "Build 42 is live",
		Priority:     models.PriorityNormal,
		Status:       models.AdvancedStatusPending,
		SourceModule: "ci",
	}
	for _, r := range recipients {
		adv.Recipients = append(adv.Recipients, models.NotificationRecipient{
			UserID: r,
			Status: models.RecipientStatusPending,
		})
	}
	require.NoError(t, f.advanced.Create(adv))
	return adv
}

func TestDeliverMarksRecipientsSent(t *testing.T) {
	f := newEngineFixture(t)
	adv := seedAdvanced(t, f, "t1", "bob", "carol")

	require.NoError(t, f.dispatcher.Deliver(adv.ID))

	stored, err := f.advanced.FindByID(adv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvancedStatusSent, stored.Status)
	for _, rec := range stored.Recipients {
		assert.Equal(t, models.RecipientStatusSent, rec.Status)
		assert.True(t, rec.InAppSent)
		assert.True(t, rec.EmailSent)
	}
	assert.Len(t, f.emails.sent, 2)
}

func TestDeliverZeroRecipientsIsNoop(t *testing.T) {
	f := newEngineFixture(t)
	adv := seedAdvanced(t, f, "t1")

	require.NoError(t, f.dispatcher.Deliver(adv.ID))

	stored, err := f.advanced.FindByID(adv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvancedStatusPending, stored.Status)
	assert.Empty(t, f.emails.sent)
}

func TestDeliverHonorsRecipientChannelPrefs(t *testing.T) {
	f := newEngineFixture(t)

	prefs, err := f.settings.GetOrCreateUserPreferences("t1", "bob")
	require.NoError(t, err)
	prefs.EmailEnabled = false
	require.NoError(t, f.settings.SaveUserPreferences(prefs))

	adv := seedAdvanced(t, f, "t1", "bob")
	require.NoError(t, f.dispatcher.Deliver(adv.ID))

	stored, err := f.advanced.FindByID(adv.ID)
	require.NoError(t, err)
	assert.True(t, stored.Recipients[0].InAppSent)
	assert.False(t, stored.Recipients[0].EmailSent)
	assert.Empty(t, f.emails.sent)
}

func TestDeliverRecordsFailedEmailAttempt(t *testing.T) {
	f := newEngineFixture(t)
	f.emails.fail = true

	adv := seedAdvanced(t, f, "t1", "bob")
	require.NoError(t, f.dispatcher.Deliver(adv.ID))

	stored, err := f.advanced.FindByID(adv.ID)
	require.NoError(t, err)
	// Delivery still completes; only the email channel failed.
	assert.Equal(t, models.RecipientStatusSent, stored.Recipients[0].Status)
	assert.True(t, stored.Recipients[0].InAppSent)
	assert.False(t, stored.Recipients[0].EmailSent)

	var deliveries []models.EmailDelivery
	require.NoError(t, f.db.Find(&deliveries).Error)
	require.Len(t, deliveries, 1)
	assert.Equal(t, models.DeliveryStatusFailed, deliveries[0].Status)
	assert.NotEmpty(t, deliveries[0].Error)
}

func TestDeliverUnknownAddressFailsEmailOnly(t *testing.T) {
	f := newEngineFixture(t)

	adv := seedAdvanced(t, f, "t1", "dave") // no address on file
	require.NoError(t, f.dispatcher.Deliver(adv.ID))

	stored, err := f.advanced.FindByID(adv.ID)
	require.NoError(t, err)
	assert.True(t, stored.Recipients[0].InAppSent)
	assert.False(t, stored.Recipients[0].EmailSent)

	var deliveries []models.EmailDelivery
	require.NoError(t, f.db.Find(&deliveries).Error)
	require.Len(t, deliveries, 1)
	assert.Equal(t, models.DeliveryStatusFailed, deliveries[0].Status)
}

func TestHourlyQuotaSoftSkip(t *testing.T) {
	f := newEngineFixture(t)

	settings, err := f.settings.GetOrCreateTenantSettings("t1", testDefaults)
	require.NoError(t, err)
	settings.HourlyLimit = 2
	require.NoError(t, f.settings.SaveTenantSettings(settings))

	// The count includes the record being dispatched: the limit-th record
	// still goes out, the one after it is skipped.
	first := seedAdvanced(t, f, "t1", "bob")
	require.NoError(t, f.dispatcher.Deliver(first.ID))
	second := seedAdvanced(t, f, "t1", "bob")
	require.NoError(t, f.dispatcher.Deliver(second.ID))
	third := seedAdvanced(t, f, "t1", "bob")
	require.NoError(t, f.dispatcher.Deliver(third.ID))

	stored, err := f.advanced.FindByID(second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvancedStatusSent, stored.Status)

	skipped, err := f.advanced.FindByID(third.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvancedStatusPending, skipped.Status)
	assert.Equal(t, models.RecipientStatusPending, skipped.Recipients[0].Status)
	assert.Len(t, f.emails.sent, 2)
}

func TestQuotaWindowIsTrailing(t *testing.T) {
	f := newEngineFixture(t)

	settings, err := f.settings.GetOrCreateTenantSettings("t1", testDefaults)
	require.NoError(t, err)
	settings.HourlyLimit = 1
	require.NoError(t, f.settings.SaveTenantSettings(settings))

	old := seedAdvanced(t, f, "t1", "bob")
	require.NoError(t, f.dispatcher.Deliver(old.ID))
	// Push the first record out of the trailing hour.
	setCreatedAt(t, f.db, &models.NotificationAdvanced{}, old.ID, time.Now().Add(-2*time.Hour))

	fresh := seedAdvanced(t, f, "t1", "bob")
	require.NoError(t, f.dispatcher.Deliver(fresh.ID))

	stored, err := f.advanced.FindByID(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvancedStatusSent, stored.Status)
}

func TestQuotaIsPerTenant(t *testing.T) {
	f := newEngineFixture(t)

	settings, err := f.settings.GetOrCreateTenantSettings("t1", testDefaults)
	require.NoError(t, err)
	settings.HourlyLimit = 1
	require.NoError(t, f.settings.SaveTenantSettings(settings))

	first := seedAdvanced(t, f, "t1", "bob")
	require.NoError(t, f.dispatcher.Deliver(first.ID))
	blocked := seedAdvanced(t, f, "t1", "bob")
	require.NoError(t, f.dispatcher.Deliver(blocked.ID))

	// Another tenant is unaffected.
	other := seedAdvanced(t, f, "t2", "bob")
	require.NoError(t, f.dispatcher.Deliver(other.ID))

	stored, err := f.advanced.FindByID(other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvancedStatusSent, stored.Status)
}

func TestQuietHoursSuppressExternalChannelsOnly(t *testing.T) {
	f := newEngineFixture(t)

	now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	f.dispatcher.clock = func() time.Time { return now }

	settings, err := f.settings.GetOrCreateTenantSettings("t1", testDefaults)
	require.NoError(t, err)
	start, end := 22, 6 // wraps midnight
	settings.QuietHoursStart = &start
	settings.QuietHoursEnd = &end
	require.NoError(t, f.settings.SaveTenantSettings(settings))

	adv := seedAdvanced(t, f, "t1", "bob")
	require.NoError(t, f.dispatcher.Deliver(adv.ID))

	stored, err := f.advanced.FindByID(adv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecipientStatusSent, stored.Recipients[0].Status)
	assert.True(t, stored.Recipients[0].InAppSent)
	assert.False(t, stored.Recipients[0].EmailSent)
	assert.Empty(t, f.emails.sent)
}

func TestQuietHoursWindowMath(t *testing.T) {
	start, end := 22, 6
	s := &models.TenantNotificationSettings{QuietHoursStart: &start, QuietHoursEnd: &end}

	at := func(hour int) time.Time {
		return time.Date(2026, 3, 1, hour, 0, 0, 0, time.UTC)
	}
	assert.True(t, inQuietHours(s, at(23)))
	assert.True(t, inQuietHours(s, at(2)))
	assert.False(t, inQuietHours(s, at(12)))
	assert.False(t, inQuietHours(s, at(6))) // end is exclusive

	day := 9
	s = &models.TenantNotificationSettings{QuietHoursStart: &day, QuietHoursEnd: &start}
	assert.True(t, inQuietHours(s, at(12)))
	assert.False(t, inQuietHours(s, at(8)))

	assert.False(t, inQuietHours(&models.TenantNotificationSettings{}, at(3)))
}

func TestEmailTrackingIsIdempotent(t *testing.T) {
	f := newEngineFixture(t)

	adv := seedAdvanced(t, f, "t1", "bob")
	require.NoError(t, f.dispatcher.Deliver(adv.ID))

	var deliveries []models.EmailDelivery
	require.NoError(t, f.db.Find(&deliveries).Error)
	require.Len(t, deliveries, 1)
	id := deliveries[0].ID

	now := time.Now()
	require.NoError(t, f.metrics.TrackEmailOpen(id, now))
	require.NoError(t, f.metrics.TrackEmailOpen(id, now.Add(time.Minute)))
	require.NoError(t, f.metrics.TrackEmailClick(id, now))

	bucket, err := f.metrics.FindBucket("t1", now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, bucket.EmailOpenedCount)
	assert.EqualValues(t, 1, bucket.EmailClickedCount)
	assert.EqualValues(t, 1, bucket.EmailDeliveredCount)
}
