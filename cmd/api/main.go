package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nandi-systems/ledgerflow-api/internal/application/service"
	"github.com/nandi-systems/ledgerflow-api/internal/config"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/nandi-systems/ledgerflow-api/internal/infrastructure/billing"
	"github.com/nandi-systems/ledgerflow-api/internal/infrastructure/database"
	"github.com/nandi-systems/ledgerflow-api/internal/infrastructure/logger"
	"github.com/nandi-systems/ledgerflow-api/internal/infrastructure/repository"
	"github.com/nandi-systems/ledgerflow-api/internal/presentation/http/handler"
	"github.com/nandi-systems/ledgerflow-api/internal/presentation/http/routes"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	appLog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLog.Sync() }()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Open the local submission journal
	db, err := database.NewSQLiteDB(cfg.Journal.Path)
	if err != nil {
		appLog.Fatal("Failed to open submission journal", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		appLog.Fatal("Failed to migrate submission journal", zap.Error(err))
	}
	submissionRepo := repository.NewSubmissionRepository(db)

	// Connect to the upstream billing backend
	client, err := billing.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, appLog)
	if err != nil {
		appLog.Fatal("Invalid backend base URL", zap.Error(err))
	}

	tolerance, err := decimal.NewFromString(cfg.Engine.Tolerance)
	if err != nil {
		appLog.Warn("Invalid reconcile tolerance, using 0.01", zap.String("value", cfg.Engine.Tolerance))
		tolerance = decimal.New(1, -2)
	}
	ceiling, err := decimal.NewFromString(cfg.Payment.Ceiling)
	if err != nil {
		appLog.Warn("Invalid payment ceiling, disabling the cap", zap.String("value", cfg.Payment.Ceiling))
		ceiling = decimal.Zero
	}
	tz, err := time.LoadLocation(cfg.Payment.Timezone)
	if err != nil {
		appLog.Warn("Unknown timezone, using UTC", zap.String("value", cfg.Payment.Timezone))
		tz = time.UTC
	}

	// Initialize services
	gate := service.NewFlightGate(appLog)
	throttle := service.NewRefreshThrottle(cfg.Engine.RefreshInterval, appLog)
	reconciler := service.NewReconciler(tolerance, client, appLog)
	ledgerService := service.NewLedgerService(gate, client, client, client, client, reconciler, appLog)
	convergence := service.NewConvergenceScheduler(client, ledgerService, throttle,
		func() { appLog.Debug("customer summary refresh due") },
		cfg.Engine.ConvergenceDelay, cfg.Backend.Timeout, appLog,
	)
	paymentService := service.NewPaymentService(
		client, client, submissionRepo, convergence, throttle,
		tolerance, ceiling, tz, cfg.Payment.Timeout, appLog,
	)
	pipeline := service.NewFilterPipeline(cfg.Engine.FilterQuiet, func(f entity.LedgerFilter) {
		req, err := ledgerService.CommitFilter(f)
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout)
		defer cancel()
		if _, err := ledgerService.Load(ctx, req); err != nil {
			appLog.Debug("filter-commit load skipped", zap.Error(err))
		}
	}, appLog)

	// Age out old journal records in the background
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := submissionRepo.DeleteExpired(ctx); err != nil {
				appLog.Warn("journal cleanup failed", zap.Error(err))
			}
			cancel()
		}
	}()

	// Initialize handlers
	handlers := &routes.Handlers{
		Ledger:  handler.NewLedgerHandler(ledgerService, reconciler, pipeline, convergence),
		Payment: handler.NewPaymentHandler(paymentService, ledgerService),
		Filter:  handler.NewFilterHandler(pipeline),
	}

	router := routes.Setup(handlers, &routes.Deps{Cfg: cfg, Log: appLog})

	appLog.Info("Starting server",
		zap.String("service", cfg.App.Name),
		zap.String("port", cfg.App.Port),
		zap.String("backend", cfg.Backend.BaseURL),
	)
	if err := router.Run(":" + cfg.App.Port); err != nil {
		appLog.Fatal("Failed to start server", zap.Error(err))
	}
}
