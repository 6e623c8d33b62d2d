package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	analyticsapp "github.com/kpiplatform/backend/internal/application/analytics"
	kpiapp "github.com/kpiplatform/backend/internal/application/kpi"
	"github.com/kpiplatform/backend/internal/infrastructure/config"
	sheetimport "github.com/kpiplatform/backend/internal/infrastructure/import"
	"github.com/kpiplatform/backend/internal/infrastructure/logger"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence"
	"github.com/kpiplatform/backend/internal/infrastructure/scheduler"
	"github.com/kpiplatform/backend/internal/infrastructure/telemetry"
	"github.com/kpiplatform/backend/internal/interfaces/http/handler"
	"github.com/kpiplatform/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting KPI backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		if err := lp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	// level was validated by logger.New
	exportLevel, _ := logger.ParseLevel(cfg.Log.Level)
	log = telemetry.BridgeLogger(log, lp, cfg.Telemetry.ServiceName, exportLevel)

	business, err := telemetry.NewBusinessMetrics(mp.Meter("kpi.business"))
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver()))

	// postgres schemas are owned by cmd/migrate
	if db.Driver() == config.DriverSQLite {
		if err := db.AutoMigrate(ctx); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBName:     cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, mp, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.DBMetricsEnabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThreshold,
		PoolStatsInterval:  cfg.Telemetry.DBPoolStatsInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	// Repositories
	entityRepo := persistence.NewGormEntityRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	pnlRepo := persistence.NewGormPnLRepository(db.DB)
	tbRepo := persistence.NewGormTrialBalanceRepository(db.DB)
	kpiRepo := persistence.NewGormKPIRepository(db.DB)
	indicatorRepo := persistence.NewGormIndicatorRepository(db.DB)
	bonusRepo := persistence.NewGormBonusRepository(db.DB)
	monthRepo := persistence.NewGormMonthStatusRepository(db.DB)

	// Spreadsheet ingestion
	extractorOpts := []sheetimport.ExtractorOption{
		sheetimport.WithStrict(cfg.Import.StrictMode),
		sheetimport.WithMaxDiagnostics(cfg.Import.MaxDiagnostics),
		sheetimport.WithHeaderKeywords(cfg.Import.Keywords),
	}
	classifier := sheetimport.NewClassifier(
		sheetimport.WithKeywords(cfg.Import.Keywords),
		sheetimport.WithScanRows(cfg.Import.ScanRows),
	)
	pnlExtractor := sheetimport.NewPnLExtractor(
		append(extractorOpts, sheetimport.WithColumns(cfg.Import.PnLColumns))...,
	)
	tbExtractor := sheetimport.NewTrialBalanceExtractor(
		append(extractorOpts, sheetimport.WithColumns(cfg.Import.TrialBalanceColumns))...,
	)

	// Application services
	reportService := analyticsapp.NewReportService(entityRepo, categoryRepo, pnlRepo, tbRepo, log,
		analyticsapp.WithMetrics(cfg.Forecast.Metrics),
		analyticsapp.WithTrendWindow(cfg.Forecast.TrendWindow),
	)
	uploadService := analyticsapp.NewUploadService(entityRepo, pnlRepo, tbRepo,
		persistence.NewGormAnalyticsTransactionScope(db.DB), log,
		analyticsapp.WithClassifier(classifier),
		analyticsapp.WithPnLExtractor(pnlExtractor),
		analyticsapp.WithTrialBalanceExtractor(tbExtractor),
		analyticsapp.WithBusinessMetrics(business),
	)
	kpiService := kpiapp.NewKPIService(kpiRepo, indicatorRepo, bonusRepo, monthRepo,
		persistence.NewGormKPITransactionScope(db.DB), log,
		kpiapp.WithBusinessMetrics(business),
	)

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tp.IsEnabled(),
		Metrics:        mp,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, log, router.Handlers{
		System: handler.NewSystemHandler(cfg.App.Name, version, db),
		Entity: handler.NewEntityHandler(reportService),
		Upload: handler.NewUploadHandler(uploadService, cfg.Import.MaxFileSize),
		Report: handler.NewReportHandler(reportService),
		KPI:    handler.NewKPIHandler(kpiService),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	var jobs *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobs, err = scheduler.New(scheduler.Config{
			TimeZone:      cfg.Scheduler.TimeZone,
			JobTimeout:    cfg.Scheduler.JobTimeout,
			RetryAttempts: cfg.Scheduler.RetryAttempts,
			RetryDelay:    cfg.Scheduler.RetryDelay,
		}, log, scheduler.WithMetrics(business))
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		if err := scheduler.RegisterMonthJobs(jobs, kpiService, scheduler.MonthJobsConfig{
			GenerateSchedule: cfg.Scheduler.GenerateSchedule,
			CloseSchedule:    cfg.Scheduler.CloseSchedule,
			User:             cfg.Scheduler.User,
		}); err != nil {
			log.Fatal("Failed to register month jobs", zap.Error(err))
		}
		jobs.Start()
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if jobs != nil {
		if err := jobs.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler did not stop cleanly", zap.Error(err))
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}
