// Command reconcile runs reconciliation passes and the legacy identifier
// registration once, outside the server process.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	identifierapp "github.com/estatehub/backend/internal/application/identifier"
	reconciliationapp "github.com/estatehub/backend/internal/application/reconciliation"
	revenueapp "github.com/estatehub/backend/internal/application/revenue"
	"github.com/estatehub/backend/internal/domain/identifier"
	"github.com/estatehub/backend/internal/domain/reconciliation"
	"github.com/estatehub/backend/internal/infrastructure/cache"
	"github.com/estatehub/backend/internal/infrastructure/config"
	"github.com/estatehub/backend/internal/infrastructure/logger"
	"github.com/estatehub/backend/internal/infrastructure/persistence"
)

func main() {
	var (
		month    int
		year     int
		logLevel string
	)
	flag.IntVar(&month, "month", 0, "Month for the revenue command (default: current and previous month)")
	flag.IntVar(&year, "year", 0, "Year for the revenue command")
	flag.StringVar(&logLevel, "log-level", "", "Override the configured log level")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	// stdout carries the JSON result
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     "stderr",
		TimeFormat: time.DateTime,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	listingRepo := persistence.NewGormListingRepository(db.DB)
	bookingRepo := persistence.NewGormBookingRepository(db.DB)

	revenueService := revenueapp.NewService(listingRepo, bookingRepo,
		persistence.NewGormRevenueRepository(db.DB),
		persistence.NewGormLandlordDirectory(db.DB),
		log, revenueapp.ServiceConfig{
			Location:       cfg.App.Location(),
			MaxConcurrency: cfg.Scheduler.MaxConcurrency,
		})

	var opts []reconciliationapp.Option
	if redisClient != nil {
		// shares the lock with running servers
		opts = append(opts, reconciliationapp.WithPassLock(cache.NewRedisPassLock(redisClient, cfg.Scheduler.LockTTL)))
	}
	passes := reconciliationapp.NewService(reconciliationapp.Repositories{
		Leases:   persistence.NewGormLeaseRepository(db.DB),
		Invoices: persistence.NewGormInvoiceRepository(db.DB),
		Listings: listingRepo,
		Bookings: bookingRepo,
		Tickets:  persistence.NewGormTicketRepository(db.DB),
		Runs:     persistence.NewGormRunRepository(db.DB),
	}, revenueService, log, reconciliationapp.ServiceConfig{
		Location:             cfg.App.Location(),
		PassTimeout:          cfg.Scheduler.PassTimeout,
		MaxConcurrency:       cfg.Scheduler.MaxConcurrency,
		IncludePreviousMonth: true,
	}, opts...)

	var (
		result any
		failed bool
	)
	switch args[0] {
	case "daily":
		summary, err := passes.RunDailyReconciliation(ctx, reconciliation.TriggerManual)
		result, failed = passOutcome(log, summary, err)
	case "revenue":
		if month != 0 || year != 0 {
			if month < 1 || month > 12 || year == 0 {
				log.Fatal("Both -month (1-12) and -year are required", zap.Int("month", month), zap.Int("year", year))
			}
			batch, err := revenueService.ProcessAllAdminRevenue(ctx, month, year)
			if err != nil {
				log.Fatal("Revenue aggregation failed", zap.Error(err))
			}
			result, failed = batch, len(batch.Errors) > 0
			break
		}
		summary, err := passes.RunMonthlyRevenueReconciliation(ctx, reconciliation.TriggerManual)
		result, failed = passOutcome(log, summary, err)
	case "backlog":
		summary, err := passes.RunFullHistoricalBacklog(ctx, reconciliation.TriggerManual)
		result, failed = passOutcome(log, summary, err)
	case "register-ids":
		registry := identifierapp.NewService(
			persistence.NewGormIdentifierRepository(db.DB),
			persistence.NewGormLegacyReader(db.DB),
			log, identifierapp.ServiceConfig{MaxRetries: cfg.Identifier.MaxRetries, PadWidth: cfg.Identifier.PadWidth},
		)
		sources, err := legacySources(args[1:])
		if err != nil {
			log.Fatal("Invalid entity type", zap.Error(err))
		}
		res, err := registry.RegisterLegacy(ctx, sources)
		if err != nil {
			log.Fatal("Legacy registration failed", zap.Error(err))
		}
		result, failed = res, len(res.Errors) > 0
	default:
		printUsage()
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Error("Failed to write result", zap.Error(err))
	}
	if failed {
		os.Exit(1)
	}
}

// passOutcome keeps the summary of a pass that ran, even a failed one.
func passOutcome(log *zap.Logger, summary *reconciliation.PassSummary, err error) (any, bool) {
	if summary == nil {
		log.Fatal("Pass did not run", zap.Error(err))
	}
	if err != nil {
		log.Error("Pass finished with error", zap.Error(err))
	}
	return summary, summary.State != reconciliation.StateCompleted
}

func legacySources(names []string) ([]identifier.LegacySource, error) {
	sources := make([]identifier.LegacySource, 0, len(names))
	for _, name := range names {
		t := identifier.EntityType(name)
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown entity type %q", name)
		}
		sources = append(sources, identifier.LegacySource{EntityType: t})
	}
	return sources, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: reconcile [flags] <command>

Commands:
  daily                      Re-derive lease, invoice and listing statuses
  revenue                    Aggregate revenue for the current and previous month
  -month M -year Y revenue   Aggregate revenue for one month
  backlog                    Aggregate every month from the earliest booking to now
  register-ids [types...]    Register pre-existing codes (all entity types by default)

Flags:
`)
	flag.PrintDefaults()
}
