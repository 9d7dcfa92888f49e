package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	identifierapp "github.com/estatehub/backend/internal/application/identifier"
	reconciliationapp "github.com/estatehub/backend/internal/application/reconciliation"
	revenueapp "github.com/estatehub/backend/internal/application/revenue"
	"github.com/estatehub/backend/internal/domain/revenue"
	"github.com/estatehub/backend/internal/infrastructure/cache"
	"github.com/estatehub/backend/internal/infrastructure/config"
	"github.com/estatehub/backend/internal/infrastructure/logger"
	"github.com/estatehub/backend/internal/infrastructure/persistence"
	"github.com/estatehub/backend/internal/infrastructure/scheduler"
	"github.com/estatehub/backend/internal/infrastructure/telemetry"
	"github.com/estatehub/backend/internal/interfaces/http/handler"
	"github.com/estatehub/backend/internal/interfaces/http/router"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting EstateHub backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("timezone", cfg.App.Location().String()),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.LogFullSQL = cfg.App.Env == "development"
		if cfg.Database.Driver == "sqlite" {
			dbTracing.DBSystem = "sqlite"
		}
		if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	passMetrics, err := telemetry.NewPassMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create pass metrics", zap.Error(err))
	}

	// Repositories
	identifierRepo := persistence.NewGormIdentifierRepository(db.DB)
	legacyReader := persistence.NewGormLegacyReader(db.DB)
	listingRepo := persistence.NewGormListingRepository(db.DB)
	bookingRepo := persistence.NewGormBookingRepository(db.DB)
	ticketRepo := persistence.NewGormTicketRepository(db.DB)
	landlordDir := persistence.NewGormLandlordDirectory(db.DB)
	leaseRepo := persistence.NewGormLeaseRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	revenueRepo := persistence.NewGormRevenueRepository(db.DB)
	runRepo := persistence.NewGormRunRepository(db.DB)

	trendCache, closeTrendCache, err := newTrendCache(cfg, redisClient, log)
	if err != nil {
		log.Fatal("Failed to create trend cache", zap.Error(err))
	}
	defer closeTrendCache()

	// Application services
	identifierService := identifierapp.NewService(identifierRepo, legacyReader, log, identifierapp.ServiceConfig{
		MaxRetries: cfg.Identifier.MaxRetries,
		PadWidth:   cfg.Identifier.PadWidth,
	})
	revenueService := revenueapp.NewService(listingRepo, bookingRepo, revenueRepo, landlordDir, log,
		revenueapp.ServiceConfig{
			Location:       cfg.App.Location(),
			MaxConcurrency: cfg.Scheduler.MaxConcurrency,
		},
		revenueapp.WithTrendCache(trendCache),
		revenueapp.WithMetrics(passMetrics),
	)

	reconciliationOpts := []reconciliationapp.Option{reconciliationapp.WithMetrics(passMetrics)}
	if redisClient != nil {
		reconciliationOpts = append(reconciliationOpts,
			reconciliationapp.WithPassLock(cache.NewRedisPassLock(redisClient, cfg.Scheduler.LockTTL)))
	}
	reconciliationService := reconciliationapp.NewService(reconciliationapp.Repositories{
		Leases:   leaseRepo,
		Invoices: invoiceRepo,
		Listings: listingRepo,
		Bookings: bookingRepo,
		Tickets:  ticketRepo,
		Runs:     runRepo,
	}, revenueService, log, reconciliationapp.ServiceConfig{
		Location:             cfg.App.Location(),
		PassTimeout:          cfg.Scheduler.PassTimeout,
		MaxConcurrency:       cfg.Scheduler.MaxConcurrency,
		IncludePreviousMonth: true,
	}, reconciliationOpts...)

	passScheduler, err := scheduler.NewReconciliationScheduler(scheduler.ReconciliationSchedulerConfig{
		Enabled:         cfg.Scheduler.Enabled,
		DailySchedule:   cfg.Scheduler.DailyCronSchedule,
		MonthlySchedule: cfg.Scheduler.MonthlyCronSchedule,
		Location:        cfg.App.Location(),
	}, reconciliationService, log)
	if err != nil {
		log.Fatal("Failed to create reconciliation scheduler", zap.Error(err))
	}
	if err := passScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
	}

	// HTTP
	checks := map[string]handler.Pinger{
		"database": handler.PingerFunc(func(context.Context) error { return db.Ping() }),
	}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		Meter:          meter,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, router.Handlers{
		Identifier:     handler.NewIdentifierHandler(identifierService),
		Status:         handler.NewStatusHandler(reconciliationService),
		Revenue:        handler.NewRevenueHandler(revenueService),
		Reconciliation: handler.NewReconciliationHandler(passScheduler, reconciliationService),
		Health:         handler.NewHealthHandler(cfg.App.Name, checks),
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// waits for in-flight cron passes
	if err := passScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Scheduler did not stop cleanly", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newTrendCache builds the in-process cache, backed by Redis when one is
// configured. cmd/reconcile only clears Redis, so L1 keeps a short TTL.
func newTrendCache(cfg *config.Config, client *redis.Client, log *zap.Logger) (revenue.TrendCache, func(), error) {
	l1, err := cache.NewRistrettoTrendCache(cfg.Revenue.L1CacheMaxCost, cfg.Revenue.L1CacheTTL)
	if err != nil {
		return nil, nil, err
	}
	var l2 *cache.RedisTrendCache
	if client != nil {
		l2 = cache.NewRedisTrendCache(client, cfg.Revenue.TrendCacheTTL, log)
	}
	return cache.NewTieredTrendCache(l1, l2, log), l1.Close, nil
}
