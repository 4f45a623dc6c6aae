package main

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/grovehq/grove/backend/internal/config"
	"github.com/grovehq/grove/backend/internal/handlers"
	"github.com/grovehq/grove/backend/internal/models"
	"github.com/grovehq/grove/backend/internal/services"
	"github.com/grovehq/grove/backend/internal/services/polar"
	"github.com/grovehq/grove/backend/internal/storage"
	"github.com/grovehq/grove/backend/internal/utils"
	"github.com/grovehq/grove/backend/pkg/logger"
)

const logRetentionDays = 30

// appServices holds the wired handlers and background schedulers.
type appServices struct {
	cfg            *config.Config
	cron           *cron.Cron
	authHandler    *handlers.AuthHandler
	accessHandler  *handlers.AccessHandler
	projectHandler *handlers.ProjectHandler
	mediaHandler   *handlers.MediaHandler
	noteHandler    *handlers.NoteHandler
	billingHandler *handlers.BillingHandler
	healthHandler  *handlers.HealthHandler
	logHandler     *handlers.SystemLogHandler
}

// bootstrap initializes the database, external clients, handlers and cron
// schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	db := models.GetDB()
	services.InitSystemLogger(db)

	store, err := storage.New(&cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize object storage: %v", err)
	}

	billing := polar.NewClient(&cfg.Polar)
	subscriptionService := services.NewSubscriptionService(db, billing, &cfg.Polar)
	logService := services.NewSystemLogService(db)

	svc := &appServices{
		cfg:            cfg,
		cron:           cron.New(),
		authHandler:    handlers.NewAuthHandler(db, cfg),
		accessHandler:  handlers.NewAccessHandler(db),
		projectHandler: handlers.NewProjectHandler(db, cfg),
		mediaHandler:   handlers.NewMediaHandler(db, store),
		noteHandler:    handlers.NewNoteHandler(db),
		billingHandler: handlers.NewBillingHandler(db, billing, cfg),
		healthHandler:  handlers.NewHealthHandler(),
		logHandler:     handlers.NewSystemLogHandler(db),
	}

	// Periodic billing reconciliation for linked accounts.
	if cfg.Polar.SyncInterval > 0 {
		spec := fmt.Sprintf("@every %dm", cfg.Polar.SyncInterval)
		if _, err := svc.cron.AddFunc(spec, func() {
			subscriptionService.SyncAllLinkedUsers(context.Background())
		}); err != nil {
			logger.Fatalf("Failed to schedule billing sync: %v", err)
		}
	}

	// Daily audit log retention sweep.
	if _, err := svc.cron.AddFunc("@daily", func() {
		logService.RunCleanup(logRetentionDays)
	}); err != nil {
		logger.Fatalf("Failed to schedule log cleanup: %v", err)
	}

	svc.cron.Start()
	return svc
}

func (s *appServices) shutdown() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
