// Package reconciliation runs the passes that re-derive lease, invoice and
// listing status and materialize monthly revenue.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/estatehub/backend/internal/domain/booking"
	"github.com/estatehub/backend/internal/domain/invoice"
	"github.com/estatehub/backend/internal/domain/lease"
	"github.com/estatehub/backend/internal/domain/listing"
	"github.com/estatehub/backend/internal/domain/reconciliation"
	"github.com/estatehub/backend/internal/domain/revenue"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/estatehub/backend/internal/infrastructure/logger"
	"github.com/estatehub/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Entity names used in item errors and metrics
const (
	EntityLease    = "lease"
	EntityInvoice  = "invoice"
	EntityListing  = "listing"
	EntityLandlord = "landlord"
	EntityMonth    = "month"
)

// RevenueProcessor is the part of the revenue aggregator the passes drive
type RevenueProcessor interface {
	CurrentPeriod() shared.Period
	ProcessAllAdminRevenue(ctx context.Context, month, year int) (*revenue.BatchResult, error)
	ProcessHistoricalBacklog(ctx context.Context) (*revenue.BacklogResult, error)
}

// ServiceConfig contains configuration for Service
type ServiceConfig struct {
	Location       *time.Location
	PassTimeout    time.Duration
	MaxConcurrency int
	// IncludePreviousMonth makes the monthly pass also refresh the month
	// before the current one.
	IncludePreviousMonth bool
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Location:             time.UTC,
		PassTimeout:          30 * time.Minute,
		MaxConcurrency:       4,
		IncludePreviousMonth: true,
	}
}

// Repositories groups the stores a pass reads and writes
type Repositories struct {
	Leases   lease.Repository
	Invoices invoice.Repository
	Listings listing.Repository
	Bookings booking.Repository
	Tickets  listing.TicketRepository
	Runs     reconciliation.RunRepository
}

// Option configures optional Service collaborators
type Option func(*Service)

// WithPassLock adds a cross-process lock on top of the in-process guard
func WithPassLock(lock reconciliation.PassLock) Option {
	return func(s *Service) {
		s.lock = lock
	}
}

// WithMetrics records pass and item counters
func WithMetrics(metrics *telemetry.PassMetrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service runs reconciliation passes. Scheduled and manual runs call the
// same methods.
type Service struct {
	repos   Repositories
	revenue RevenueProcessor
	lock    reconciliation.PassLock
	metrics *telemetry.PassMetrics
	logger  *zap.Logger
	config  ServiceConfig
	now     func() time.Time

	mu      sync.Mutex
	running map[reconciliation.Kind]bool
}

// NewService creates a new reconciliation Service
func NewService(repos Repositories, rev RevenueProcessor, logger *zap.Logger, config ServiceConfig, opts ...Option) *Service {
	defaults := DefaultServiceConfig()
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if config.PassTimeout <= 0 {
		config.PassTimeout = defaults.PassTimeout
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		repos:   repos,
		revenue: rev,
		logger:  logger,
		config:  config,
		now:     time.Now,
		running: make(map[reconciliation.Kind]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return s.now().In(s.config.Location)
}

// IsRunning reports whether a pass of kind is in progress in this process
func (s *Service) IsRunning(kind reconciliation.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[kind]
}

func (s *Service) acquire(kind reconciliation.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[kind] {
		return false
	}
	s.running[kind] = true
	return true
}

func (s *Service) release(kind reconciliation.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, kind)
}

// passFunc does the work of one pass. It fills summary counts and returns
// the number of succeeded items and the per-item errors. A returned error
// means the pass could not run at all.
type passFunc func(ctx context.Context, log *zap.Logger, summary *reconciliation.PassSummary) (int, []reconciliation.ItemError, error)

func (s *Service) runPass(ctx context.Context, kind reconciliation.Kind, trigger reconciliation.Trigger, work passFunc) (*reconciliation.PassSummary, error) {
	if !s.acquire(kind) {
		return nil, reconciliation.ErrPassInProgress.Wrap(fmt.Sprintf("%s pass already running", kind), nil)
	}
	defer s.release(kind)

	if s.lock != nil {
		unlock, ok, err := s.lock.TryLock(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("acquire %s pass lock: %w", kind, err)
		}
		if !ok {
			return nil, reconciliation.ErrPassInProgress.Wrap(fmt.Sprintf("%s pass running on another instance", kind), nil)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release pass lock", zap.String("kind", string(kind)), zap.Error(err))
			}
		}()
	}

	run := reconciliation.NewRun(kind, trigger)
	if err := run.Start(s.now()); err != nil {
		return nil, err
	}
	if err := s.repos.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("record %s run: %w", kind, err)
	}

	passCtx, cancel := context.WithTimeout(ctx, s.config.PassTimeout)
	defer cancel()
	passCtx, log := logger.WithRunID(passCtx, s.logger, run.ID.String())
	log = log.With(zap.String("kind", string(kind)), zap.String("trigger", string(trigger)))

	passCtx, span := telemetry.StartServiceSpan(passCtx, "reconciliation", string(kind),
		telemetry.SpanAttrPassKind, string(kind),
		telemetry.SpanAttrRunID, run.ID.String(),
		telemetry.SpanAttrTrigger, string(trigger),
	)
	defer span.End()

	log.Info("Reconciliation pass started")

	summary := &reconciliation.PassSummary{}
	succeeded, itemErrs, passErr := work(passCtx, log, summary)
	if passErr == nil && passCtx.Err() != nil {
		passErr = passCtx.Err()
	}

	finishedAt := s.now()
	if passErr != nil {
		_ = run.Abort(passErr, finishedAt)
		run.Succeeded = succeeded
		run.Failed = len(itemErrs)
		if itemErrs != nil {
			run.Errors = itemErrs
		}
		telemetry.RecordError(span, passErr)
	} else {
		_ = run.Finish(succeeded, itemErrs, finishedAt)
	}

	if err := s.repos.Runs.Update(context.WithoutCancel(ctx), run); err != nil {
		log.Error("Failed to record run outcome", zap.Error(err))
	}
	s.metrics.RecordRun(ctx, string(kind), string(trigger), string(run.State), run.Duration(), finishedAt)

	summary.Summarize(run)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrItems, run.Succeeded,
		telemetry.SpanAttrFailed, run.Failed,
	)

	fields := []zap.Field{
		zap.String("state", string(run.State)),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("failed", run.Failed),
		zap.Duration("duration", run.Duration()),
	}
	if passErr != nil {
		log.Error("Reconciliation pass failed", append(fields, zap.Error(passErr))...)
		return summary, passErr
	}
	if run.State == reconciliation.StatePartiallyFailed {
		log.Warn("Reconciliation pass finished with errors", fields...)
	} else {
		log.Info("Reconciliation pass completed", fields...)
	}
	return summary, nil
}

// itemCollector gathers outcomes from concurrent item workers
type itemCollector struct {
	mu        sync.Mutex
	succeeded int
	errs      []reconciliation.ItemError
}

func (c *itemCollector) record(counts *reconciliation.EntityCounts, entity, id string, changed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts.Checked++
	if err != nil {
		counts.Failed++
		c.errs = append(c.errs, reconciliation.ItemError{Entity: entity, ID: id, Error: err.Error()})
		return
	}
	c.succeeded++
	if changed {
		counts.Updated++
	}
}

// RunDailyReconciliation re-derives every non-expired lease, every unpaid
// invoice and every listing for today.
func (s *Service) RunDailyReconciliation(ctx context.Context, trigger reconciliation.Trigger) (*reconciliation.PassSummary, error) {
	return s.runPass(ctx, reconciliation.KindDaily, trigger, s.dailyPass)
}

func (s *Service) dailyPass(ctx context.Context, log *zap.Logger, summary *reconciliation.PassSummary) (int, []reconciliation.ItemError, error) {
	now := s.today()
	var c itemCollector

	if leases, err := s.repos.Leases.FindNonTerminal(ctx); err != nil {
		log.Error("Failed to load leases", zap.Error(err))
		c.record(&summary.Leases, EntityLease, "*", false, fmt.Errorf("load leases: %w", err))
	} else {
		s.forEach(ctx, len(leases), func(i int) {
			changed, err := s.reconcileLease(ctx, log, &leases[i], now)
			s.metrics.RecordItem(ctx, string(reconciliation.KindDaily), EntityLease, err == nil)
			c.record(&summary.Leases, EntityLease, leases[i].ID.String(), changed, err)
		})
	}

	if invoices, err := s.repos.Invoices.FindUnpaid(ctx); err != nil {
		log.Error("Failed to load invoices", zap.Error(err))
		c.record(&summary.Invoices, EntityInvoice, "*", false, fmt.Errorf("load invoices: %w", err))
	} else {
		s.forEach(ctx, len(invoices), func(i int) {
			changed, err := s.reconcileInvoice(ctx, log, &invoices[i], now)
			s.metrics.RecordItem(ctx, string(reconciliation.KindDaily), EntityInvoice, err == nil)
			c.record(&summary.Invoices, EntityInvoice, invoices[i].ID.String(), changed, err)
		})
	}

	if listings, err := s.repos.Listings.FindAll(ctx); err != nil {
		log.Error("Failed to load listings", zap.Error(err))
		c.record(&summary.Listings, EntityListing, "*", false, fmt.Errorf("load listings: %w", err))
	} else {
		s.forEach(ctx, len(listings), func(i int) {
			changed, err := s.deriveListing(ctx, log, &listings[i], now)
			s.metrics.RecordItem(ctx, string(reconciliation.KindDaily), EntityListing, err == nil)
			c.record(&summary.Listings, EntityListing, listings[i].ID.String(), changed, err)
		})
	}

	return c.succeeded, c.errs, nil
}

// forEach runs fn for 0..n-1 with bounded concurrency. Items not yet started
// when ctx ends are skipped.
func (s *Service) forEach(ctx context.Context, n int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(s.config.MaxConcurrency)
	for i := range n {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) reconcileLease(ctx context.Context, log *zap.Logger, l *lease.Lease, now time.Time) (bool, error) {
	tr, err := l.Reconcile(now)
	if tr.Warning != nil {
		log.Warn("Lease has inconsistent dates",
			zap.String("lease_id", l.ID.String()),
			zap.String("code", l.Code),
			zap.Error(tr.Warning))
	}
	if err != nil {
		return false, err
	}
	if !tr.Changed {
		return false, nil
	}
	if err := s.repos.Leases.UpdateStatus(ctx, l); err != nil {
		return false, fmt.Errorf("save lease %s: %w", l.ID, err)
	}
	log.Debug("Lease status updated",
		zap.String("lease_id", l.ID.String()),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)))
	return true, nil
}

func (s *Service) reconcileInvoice(ctx context.Context, log *zap.Logger, inv *invoice.Invoice, now time.Time) (bool, error) {
	changed, err := inv.Reconcile(now)
	if err != nil || !changed {
		return false, err
	}
	if err := s.repos.Invoices.UpdateStatus(ctx, inv); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// paid while we were deriving; the payment wins
			log.Info("Invoice changed concurrently, skipping",
				zap.String("invoice_id", inv.ID.String()))
			return false, nil
		}
		return false, fmt.Errorf("save invoice %s: %w", inv.ID, err)
	}
	log.Debug("Invoice status updated",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("status", string(inv.Status)))
	return true, nil
}

func (s *Service) deriveListing(ctx context.Context, log *zap.Logger, l *listing.Listing, now time.Time) (bool, error) {
	refs := l.Refs()
	bookings, err := s.repos.Bookings.FindByListingRefs(ctx, refs)
	if err != nil {
		return false, fmt.Errorf("load bookings for listing %s: %w", l.ID, err)
	}
	stays := make([]booking.Stay, 0, len(bookings))
	for i := range bookings {
		stay, err := bookings[i].Stay(s.config.Location)
		if err != nil {
			log.Warn("Skipping booking with invalid dates",
				zap.String("listing_id", l.ID.String()),
				zap.Error(err))
			continue
		}
		stays = append(stays, stay)
	}

	tickets, err := s.repos.Tickets.FindByListingRefs(ctx, refs)
	if err != nil {
		return false, fmt.Errorf("load tickets for listing %s: %w", l.ID, err)
	}

	if !l.ApplyStatus(listing.DeriveStatus(stays, tickets, now), now) {
		return false, nil
	}
	if err := s.repos.Listings.UpdateStatus(ctx, l); err != nil {
		return false, fmt.Errorf("save listing %s: %w", l.ID, err)
	}
	return true, nil
}

// RunMonthlyRevenueReconciliation materializes revenue for the current month
// and, when configured, the previous one.
func (s *Service) RunMonthlyRevenueReconciliation(ctx context.Context, trigger reconciliation.Trigger) (*reconciliation.PassSummary, error) {
	return s.runPass(ctx, reconciliation.KindMonthlyRevenue, trigger, s.monthlyPass)
}

func (s *Service) monthlyPass(ctx context.Context, log *zap.Logger, summary *reconciliation.PassSummary) (int, []reconciliation.ItemError, error) {
	current := s.revenue.CurrentPeriod()
	periods := []shared.Period{current}
	if s.config.IncludePreviousMonth {
		periods = []shared.Period{current.Add(-1), current}
	}

	succeeded := 0
	errs := []reconciliation.ItemError{}
	for _, p := range periods {
		batch, err := s.revenue.ProcessAllAdminRevenue(ctx, p.Month, p.Year)
		if batch != nil {
			summary.Revenue = append(summary.Revenue, *batch)
			succeeded += batch.ProcessedAdmins
			errs = append(errs, adminErrors(batch)...)
		}
		if err != nil {
			return succeeded, errs, fmt.Errorf("revenue for %s: %w", p, err)
		}
		log.Info("Revenue month processed",
			zap.String("period", p.String()),
			zap.Int("stored", batch.StoredRecords),
			zap.Int("errors", len(batch.Errors)))
	}
	return succeeded, errs, nil
}

// RunFullHistoricalBacklog recomputes every month from the earliest booking
// check-in to the current month.
func (s *Service) RunFullHistoricalBacklog(ctx context.Context, trigger reconciliation.Trigger) (*reconciliation.PassSummary, error) {
	return s.runPass(ctx, reconciliation.KindBacklog, trigger, func(ctx context.Context, _ *zap.Logger, summary *reconciliation.PassSummary) (int, []reconciliation.ItemError, error) {
		backlog, err := s.revenue.ProcessHistoricalBacklog(ctx)
		if backlog == nil {
			return 0, nil, err
		}
		summary.Backlog = backlog
		errs := []reconciliation.ItemError{}
		for i := range backlog.Months {
			errs = append(errs, adminErrors(&backlog.Months[i])...)
		}
		return backlog.ProcessedMonths, errs, err
	})
}

func adminErrors(batch *revenue.BatchResult) []reconciliation.ItemError {
	out := make([]reconciliation.ItemError, 0, len(batch.Errors))
	period := shared.Period{Year: batch.Year, Month: batch.Month}
	for _, e := range batch.Errors {
		out = append(out, reconciliation.ItemError{
			Entity: EntityLandlord,
			ID:     e.AdminID.String(),
			Error:  period.String() + ": " + e.Error,
		})
	}
	return out
}

// ReconcileLease re-derives and saves one lease's status
func (s *Service) ReconcileLease(ctx context.Context, id uuid.UUID) (*lease.Lease, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reconcile_lease", telemetry.SpanAttrEntityID, id.String())
	defer span.End()

	l, err := s.repos.Leases.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if _, err := s.reconcileLease(ctx, logger.WithTraceContext(ctx, s.logger), l, s.today()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return l, nil
}

// ReconcileInvoice re-derives and saves one invoice's status
func (s *Service) ReconcileInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reconcile_invoice", telemetry.SpanAttrEntityID, id.String())
	defer span.End()

	inv, err := s.repos.Invoices.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if _, err := s.reconcileInvoice(ctx, logger.WithTraceContext(ctx, s.logger), inv, s.today()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return inv, nil
}

// DeriveListingStatus re-derives and saves one listing's occupancy
func (s *Service) DeriveListingStatus(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "derive_listing", telemetry.SpanAttrEntityID, id.String())
	defer span.End()

	l, err := s.repos.Listings.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if _, err := s.deriveListing(ctx, logger.WithTraceContext(ctx, s.logger), l, s.today()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return l, nil
}

// LatestRuns returns the most recent run of each kind that has run
func (s *Service) LatestRuns(ctx context.Context) (map[reconciliation.Kind]*reconciliation.Run, error) {
	out := make(map[reconciliation.Kind]*reconciliation.Run, 3)
	for _, kind := range []reconciliation.Kind{reconciliation.KindDaily, reconciliation.KindMonthlyRevenue, reconciliation.KindBacklog} {
		run, err := s.repos.Runs.Latest(ctx, kind)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("latest %s run: %w", kind, err)
		}
		out[kind] = run
	}
	return out, nil
}

// RecentRuns lists the last limit runs across kinds, newest first
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]reconciliation.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repos.Runs.ListRecent(ctx, limit)
}
