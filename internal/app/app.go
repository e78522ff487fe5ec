// Package app assembles the service graph and runs the HTTP server.
package app

import (
	"context"
	"fmt"

	"commhub/database"
	"commhub/internal/bus"
	"commhub/internal/config"
	"commhub/internal/handlers"
	"commhub/internal/logger"
	"commhub/internal/pkg/email"
	"commhub/internal/presence"
	"commhub/internal/repositories"
	chatrepo "commhub/internal/repositories/chat"
	"commhub/internal/routes"
	"commhub/internal/services"
	chatservice "commhub/internal/services/chat"
	"commhub/internal/validator"
	"commhub/internal/workers"
	"commhub/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Run builds everything from configuration and blocks serving HTTP.
func Run() error {
	config.LoadConfig()
	cfg := config.GetConfig()
	logger.Init(cfg.Server.Env)

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Presence: in-process unless a Redis URL is configured.
	var presenceStore presence.Store
	var memoryStore *presence.MemoryStore
	if cfg.Redis.URL != "" {
		redisStore, err := presence.NewRedisStoreFromURL(ctx, cfg.Redis.URL, cfg.Presence.ConversationTTL.Std())
		if err != nil {
			return fmt.Errorf("presence backend: %w", err)
		}
		presenceStore = redisStore
		logger.Info("presence backend", "kind", "redis")
	} else {
		memoryStore = presence.NewMemoryStore()
		presenceStore = memoryStore
		logger.Info("presence backend", "kind", "memory")
	}

	eventBus := bus.NewGroupBus()
	validate := validator.New()

	// Repositories.
	notificationRepo := repositories.NewNotificationRepository(db)
	advancedRepo := repositories.NewAdvancedRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	metricsRepo := repositories.NewMetricsRepository(db)
	ruleRepo := repositories.NewRuleRepository(db)
	conversationRepo := chatrepo.NewConversationRepository(db)
	messageRepo := chatrepo.NewMessageRepository(db)
	reactionRepo := chatrepo.NewReactionRepository(db)
	pinRepo := chatrepo.NewPinRepository(db)

	// Email sink: SMTP when configured, log sink otherwise.
	var emailSender email.Sender
	emailCfg := email.Config{
		Host:         cfg.Email.SMTPHost,
		Port:         cfg.Email.SMTPPort,
		Username:     cfg.Email.SMTPUsername,
		Password:     cfg.Email.SMTPPassword,
		FromEmail:    cfg.Email.FromEmail,
		FromName:     cfg.Email.FromName,
		TemplatesDir: cfg.Email.TemplatesDir,
	}
	if smtp, err := email.NewSMTPSender(emailCfg); err == nil {
		emailSender = smtp
		logger.Info("email sink", "kind", "smtp", "host", emailCfg.Host)
	} else {
		emailSender = email.LogSender{}
		logger.Warn("email sink falling back to log", "reason", err.Error())
	}
	templates, err := email.NewTemplateManager(cfg.Email.TemplatesDir)
	if err != nil {
		return fmt.Errorf("email templates: %w", err)
	}

	tenantSeed := repositories.TenantDefaults{
		HourlyLimit: cfg.Notifications.DefaultHourlyLimit,
		DailyLimit:  cfg.Notifications.DefaultDailyLimit,
	}
	trackBase := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Services.
	dispatcher := services.NewDispatchService(
		advancedRepo, settingsRepo, metricsRepo,
		services.NoopAddressBook{}, emailSender, templates,
		services.LogSMSSender{}, services.LogPushSender{},
		trackBase, tenantSeed,
	)
	notificationService := services.NewNotificationService(
		notificationRepo, advancedRepo, settingsRepo, metricsRepo,
		dispatcher, validate, tenantSeed,
	)
	ruleService := services.NewRuleService(ruleRepo, notificationService)
	cleanupService := services.NewCleanupService(
		notificationRepo, advancedRepo, settingsRepo,
		services.RetentionDefaults{
			ExpireDays:            cfg.Notifications.ExpireDays,
			ReadRetentionDays:     cfg.Notifications.ReadRetentionDays,
			ArchivedRetentionDays: cfg.Notifications.ArchivedRetentionDays,
		},
		tenantSeed,
	)
	dedupService := services.NewDedupService(notificationRepo, advancedRepo)

	windows := chatservice.PresenceWindows{
		Conversation: cfg.Presence.ConversationQueryWindow.Std(),
		Global:       cfg.Presence.GlobalQueryWindow.Std(),
	}
	chatSvc := chatservice.NewChatService(
		conversationRepo, messageRepo, eventBus, presenceStore, windows, notificationService,
	)
	reactionSvc := chatservice.NewReactionService(reactionRepo, messageRepo, conversationRepo, eventBus)
	pinSvc := chatservice.NewPinService(pinRepo, messageRepo, conversationRepo, eventBus)

	// Background janitor.
	janitor := workers.NewJanitorWorker(
		cleanupService, dedupService, memoryStore,
		cfg.Notifications.JanitorInterval.Std(),
		cfg.Notifications.DedupWindow.Std(),
		cfg.Presence.ConversationTTL.Std(), cfg.Presence.GlobalTTL.Std(),
	)
	go janitor.Start(ctx)

	// HTTP.
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	routes.Setup(r,
		handlers.NewNotificationHandler(notificationService),
		handlers.NewEventHandler(ruleService, metricsRepo),
		ws.NewHandler(chatSvc, reactionSvc, pinSvc, eventBus, presenceStore, windows),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting", "addr", addr)
	return r.Run(addr)
}
