package services

import (
	"testing"
	"time"

	"commhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCorrelated(t *testing.T, f *engineFixture, recipient, correlationID string, age time.Duration) *models.Notification {
	t.Helper()
	n := &models.Notification{
		TenantID:      "t1",
		RecipientID:   recipient,
		Kind:          "new_message",
		Title:         "New message",
		Status:        models.NotificationStatusUnread,
		SourceModule:  "chat",
		CorrelationID: correlationID,
	}
	require.NoError(t, f.notifications.Create(n))
	setCreatedAt(t, f.db, &models.Notification{}, n.ID, time.Now().Add(-age))
	return n
}

func TestDedupArchivesAllButNewest(t *testing.T) {
	f := newEngineFixture(t)
	svc := NewDedupService(f.notifications, f.advanced)

	seedCorrelated(t, f, "bob", "conv-1", 3*time.Minute)
	seedCorrelated(t, f, "bob", "conv-1", 2*time.Minute)
	newest := seedCorrelated(t, f, "bob", "conv-1", time.Minute)

	result, err := svc.Run(DedupOptions{Window: 5 * time.Minute})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.SimpleArchived)

	stored, err := f.notifications.FindByID(newest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusUnread, stored.Status)

	var archived int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("status = ?", models.NotificationStatusArchived).Count(&archived).Error)
	assert.EqualValues(t, 2, archived)

	// A second sweep finds nothing: archived records are out of the window
	// query and the survivor has no duplicates left.
	result, err = svc.Run(DedupOptions{Window: 5 * time.Minute})
	require.NoError(t, err)
	assert.Zero(t, result.SimpleArchived)
}

func TestDedupGroupsPerRecipientAndCorrelation(t *testing.T) {
	f := newEngineFixture(t)
	svc := NewDedupService(f.notifications, f.advanced)

	seedCorrelated(t, f, "bob", "conv-1", 2*time.Minute)
	seedCorrelated(t, f, "bob", "conv-2", time.Minute)
	seedCorrelated(t, f, "carol", "conv-1", time.Minute)

	result, err := svc.Run(DedupOptions{Window: 5 * time.Minute})
	require.NoError(t, err)
	assert.Zero(t, result.SimpleArchived)
}

func TestDedupIgnoresRecordsOutsideWindow(t *testing.T) {
	f := newEngineFixture(t)
	svc := NewDedupService(f.notifications, f.advanced)

	seedCorrelated(t, f, "bob", "conv-1", 10*time.Minute)
	seedCorrelated(t, f, "bob", "conv-1", time.Minute)

	result, err := svc.Run(DedupOptions{Window: 5 * time.Minute})
	require.NoError(t, err)
	assert.Zero(t, result.SimpleArchived)
}

func TestDedupFallsBackToKindAndTitle(t *testing.T) {
	f := newEngineFixture(t)
	svc := NewDedupService(f.notifications, f.advanced)

	for i := 0; i < 2; i++ {
		n := &models.Notification{
			TenantID:     "t1",
			RecipientID:  "bob",
			Kind:         "alert",
			Title:        "Disk almost full",
			Status:       models.NotificationStatusUnread,
			SourceModule: "monitoring",
		}
		require.NoError(t, f.notifications.Create(n))
	}

	result, err := svc.Run(DedupOptions{Window: 5 * time.Minute})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.SimpleArchived)
}

func TestDedupDryRun(t *testing.T) {
	f := newEngineFixture(t)
	svc := NewDedupService(f.notifications, f.advanced)

	seedCorrelated(t, f, "bob", "conv-1", 2*time.Minute)
	seedCorrelated(t, f, "bob", "conv-1", time.Minute)

	result, err := svc.Run(DedupOptions{Window: 5 * time.Minute, DryRun: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.SimpleArchived)

	var archived int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("status = ?", models.NotificationStatusArchived).Count(&archived).Error)
	assert.Zero(t, archived)
}

func TestDedupAdvancedBySourceObject(t *testing.T) {
	f := newEngineFixture(t)
	svc := NewDedupService(f.notifications, f.advanced)

	for i := 0; i < 3; i++ {
		adv := &models.NotificationAdvanced{
			TenantID:         "t1",
			Kind:             "deploy",
			Title:            "Deploy finished",
			Status:           models.AdvancedStatusPending,
			SourceModule:     "ci",
			SourceObjectType: "pipeline",
			SourceObjectID:   "p-1",
			Recipients: []models.NotificationRecipient{
				{UserID: "bob", Status: models.RecipientStatusPending},
			},
		}
		require.NoError(t, f.advanced.Create(adv))
	}

	result, err := svc.Run(DedupOptions{Window: 5 * time.Minute, IncludeAdvanced: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.AdvancedArchived)

	// Archived roll-up cascades to the recipient sub-records.
	var archivedRecipients int64
	require.NoError(t, f.db.Model(&models.NotificationRecipient{}).
		Where("status = ?", models.RecipientStatusArchived).Count(&archivedRecipients).Error)
	assert.EqualValues(t, 2, archivedRecipients)
}
