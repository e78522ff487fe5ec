package services

import (
	"testing"
	"time"

	"commhub/internal/models"
	"commhub/internal/pkg/email"
	"commhub/internal/repositories"
	"commhub/internal/validator"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDefaults = repositories.TenantDefaults{HourlyLimit: 100, DailyLimit: 1000}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Notification{},
		&models.NotificationAdvanced{},
		&models.NotificationRecipient{},
		&models.NotificationRule{},
		&models.TenantNotificationSettings{},
		&models.UserNotificationPreferences{},
		&models.NotificationMetrics{},
		&models.EmailDelivery{},
	))
	return db
}

type engineFixture struct {
	db         *gorm.DB
	svc        NotificationService
	dispatcher *DispatchService
	addresses  *fakeAddressBook
	emails     *fakeEmailSender

	notifications repositories.NotificationRepository
	advanced      repositories.AdvancedRepository
	settings      repositories.SettingsRepository
	metrics       repositories.MetricsRepository
}

type fakeAddressBook struct {
	emails map[string]string
	phones map[string]string
}

func (f *fakeAddressBook) EmailAddress(tenantID, userID string) (string, error) {
	if addr, ok := f.emails[userID]; ok {
		return addr, nil
	}
	return "", errNoAddress
}

func (f *fakeAddressBook) PhoneNumber(tenantID, userID string) (string, error) {
	if phone, ok := f.phones[userID]; ok {
		return phone, nil
	}
	return "", errNoAddress
}

var errNoAddress = &addressError{}

type addressError struct{}

func (*addressError) Error() string { return "unknown user" }

type fakeEmailSender struct {
	sent []*email.Message
	fail bool
}

func (f *fakeEmailSender) Send(msg *email.Message) error {
	if f.fail {
		return &addressError{}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := openTestDB(t)

	notificationRepo := repositories.NewNotificationRepository(db)
	advancedRepo := repositories.NewAdvancedRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	metricsRepo := repositories.NewMetricsRepository(db)

	addresses := &fakeAddressBook{
		emails: map[string]string{"bob": "bob@example.com", "carol": "carol@example.com"},
		phones: map[string]string{"bob": "+100"},
	}
	emails := &fakeEmailSender{}
	templates, err := email.NewTemplateManager("")
	require.NoError(t, err)

	dispatcher := NewDispatchService(
		advancedRepo, settingsRepo, metricsRepo,
		addresses, emails, templates,
		LogSMSSender{}, LogPushSender{},
		"http://localhost:8080", testDefaults,
	)

	svc := NewNotificationService(
		notificationRepo, advancedRepo, settingsRepo, metricsRepo,
		dispatcher, validator.New(), testDefaults,
	)

	return &engineFixture{
		db:            db,
		svc:           svc,
		dispatcher:    dispatcher,
		addresses:     addresses,
		emails:        emails,
		notifications: notificationRepo,
		advanced:      advancedRepo,
		settings:      settingsRepo,
		metrics:       metricsRepo,
	}
}

// setCreatedAt backdates a record; retention and dedup tests depend on it.
func setCreatedAt(t *testing.T, db *gorm.DB, model interface{}, id string, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(model).
		Where("id = ?", id).
		Update("created_at", at).Error)
}
