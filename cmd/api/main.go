package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/renovation-api/docs"
	"github.com/straye-as/renovation-api/internal/bulk"
	"github.com/straye-as/renovation-api/internal/config"
	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/http/handler"
	"github.com/straye-as/renovation-api/internal/http/middleware"
	"github.com/straye-as/renovation-api/internal/http/router"
	"github.com/straye-as/renovation-api/internal/jobs"
	"github.com/straye-as/renovation-api/internal/logger"
	"github.com/straye-as/renovation-api/internal/metrics"
	"github.com/straye-as/renovation-api/internal/repository"
	"github.com/straye-as/renovation-api/internal/service"
	"github.com/straye-as/renovation-api/internal/storage"
	"go.uber.org/zap"
)

// @title Straye Renovation API
// @version 1.0
// @description Customers, sales pipeline and renovation projects

// @contact.name API Support
// @contact.email support@straye.io

// @host localhost:8080
// @BasePath /api/v1

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if basicCfg.App.Environment == "development" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	} else {
		docs.SwaggerInfo.Host = ""
	}

	// Resolve database and storage credentials (Key Vault in staging/production)
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := storage.NewStorage(ctx, &cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	var recorder service.Recorder
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		m := metrics.New()
		recorder = m
		metricsHandler = m.Handler()
	}

	// Repositories
	customerRepo := repository.NewCustomerRepository(db)
	dealRepo := repository.NewDealRepository(db)
	dealStageHistoryRepo := repository.NewDealStageHistoryRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)

	// Services
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, log)
	customerService := service.NewCustomerService(customerRepo, dealRepo, projectRepo, recorder, log, db)
	dealService := service.NewDealService(dealRepo, dealStageHistoryRepo, customerRepo, projectRepo, customerService, numberSequenceService, recorder, log, db)
	projectService := service.NewProjectService(projectRepo, customerRepo, numberSequenceService, log, db)
	bulkService := service.NewBulkService(customerService, dealService, projectService, service.BulkOptions{
		Policy:      bulk.Policy(cfg.Bulk.Policy),
		Concurrency: cfg.Bulk.Concurrency,
	}, database.NewTxRunner(db).Run, recorder, log)
	snapshotService := service.NewSnapshotService(customerRepo, dealRepo, projectRepo, db)
	exportService := service.NewExportService(snapshotService, store, cfg.Export.Prefix, recorder, log)

	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Handlers
	rt := router.NewRouter(
		cfg,
		log,
		db,
		rateLimiter,
		metricsHandler,
		handler.NewCustomerHandler(customerService, log),
		handler.NewDealHandler(dealService, log),
		handler.NewProjectHandler(projectService, log),
		handler.NewBulkHandler(bulkService, log),
		handler.NewSnapshotHandler(snapshotService, exportService, log),
	)

	var scheduler *jobs.Scheduler
	if cfg.Export.Enabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterExportJob(scheduler, exportService, log, cfg.Export.Cron, cfg.Export.TimeoutDuration()); err != nil {
			return fmt.Errorf("failed to register export job: %w", err)
		}
		scheduler.Start()
	} else {
		log.Info("Scheduled export disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		log.Info("Server stopped gracefully")
	}

	return nil
}
