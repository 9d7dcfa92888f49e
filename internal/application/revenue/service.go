// Package revenue computes, stores and reads per-landlord monthly revenue.
package revenue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/estatehub/backend/internal/domain/booking"
	"github.com/estatehub/backend/internal/domain/listing"
	"github.com/estatehub/backend/internal/domain/revenue"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/estatehub/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServiceConfig contains configuration for Service
type ServiceConfig struct {
	// Location decides which calendar day and month "now" falls in.
	Location       *time.Location
	MaxConcurrency int
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Location:       time.UTC,
		MaxConcurrency: 4,
	}
}

// Option configures optional Service collaborators
type Option func(*Service)

// WithTrendCache caches GetRevenueTrend results
func WithTrendCache(cache revenue.TrendCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics records stored revenue counts
func WithMetrics(metrics *telemetry.PassMetrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// Service is the revenue aggregator
type Service struct {
	listings  listing.Repository
	bookings  booking.Repository
	records   revenue.Repository
	landlords revenue.LandlordDirectory
	cache     revenue.TrendCache
	metrics   *telemetry.PassMetrics
	logger    *zap.Logger

	loc            *time.Location
	maxConcurrency int
	now            func() time.Time
}

// NewService creates a new revenue Service
func NewService(
	listings listing.Repository,
	bookings booking.Repository,
	records revenue.Repository,
	landlords revenue.LandlordDirectory,
	logger *zap.Logger,
	config ServiceConfig,
	opts ...Option,
) *Service {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultServiceConfig().MaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		listings:       listings,
		bookings:       bookings,
		records:        records,
		landlords:      landlords,
		logger:         logger,
		loc:            config.Location,
		maxConcurrency: config.MaxConcurrency,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// CurrentPeriod returns the month containing now in the configured location
func (s *Service) CurrentPeriod() shared.Period {
	return shared.PeriodOf(s.today())
}

// CalculateMonthlyRevenue sums the eligible bookings of adminID's listings
// whose check-in falls in month/year. Bookings with unparseable dates are
// logged and left out.
func (s *Service) CalculateMonthlyRevenue(ctx context.Context, adminID uuid.UUID, month, year int) (*revenue.Result, error) {
	period, err := shared.NewPeriod(year, month)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "revenue", "calculate_monthly",
		telemetry.SpanAttrAdminID, adminID.String(),
		telemetry.SpanAttrPeriod, period.String(),
	)
	defer span.End()

	listings, err := s.listings.FindByLandlord(ctx, adminID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("load listings for %s: %w", adminID, err)
	}

	byRef := make(map[string]*listing.Listing, len(listings)*2)
	refs := make([]string, 0, len(listings)*2)
	for i := range listings {
		for _, ref := range listings[i].Refs() {
			byRef[ref] = &listings[i]
			refs = append(refs, ref)
		}
	}

	bookings, err := s.bookings.FindByListingRefs(ctx, refs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("load bookings for %s: %w", adminID, err)
	}

	type dated struct {
		checkIn time.Time
		detail  revenue.BookingDetail
	}
	matched := make([]dated, 0, len(bookings))
	seen := make(map[uuid.UUID]struct{}, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}

		if !booking.IsRevenueEligible(b.Status) {
			continue
		}
		checkIn, err := b.CheckIn(s.loc)
		if err != nil {
			s.logger.Warn("Skipping booking with invalid check-in date",
				zap.String("admin_id", adminID.String()),
				zap.String("booking_id", b.ID.String()),
				zap.String("check_in_date", b.CheckInDate),
				zap.Error(err))
			continue
		}
		if !period.Contains(checkIn) {
			continue
		}

		l := byRef[b.ListingRef]
		detail := revenue.BookingDetail{
			BookingID:    b.ID,
			Code:         b.Code,
			TenantRef:    b.TenantRef,
			CheckInDate:  b.CheckInDate,
			CheckOutDate: b.CheckOutDate,
			TotalPrice:   b.TotalPrice,
			Status:       b.Status,
		}
		if l != nil {
			detail.ListingID = l.ID
			detail.ListingTitle = l.Title
			detail.ListingAddress = l.Address
		}
		matched = append(matched, dated{checkIn: checkIn, detail: detail})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].checkIn.Equal(matched[j].checkIn) {
			return matched[i].checkIn.Before(matched[j].checkIn)
		}
		return matched[i].detail.BookingID.String() < matched[j].detail.BookingID.String()
	})
	details := make([]revenue.BookingDetail, 0, len(matched))
	for _, m := range matched {
		details = append(details, m.detail)
	}

	result := revenue.NewResult(adminID, period, details, s.now())
	telemetry.SetAttributes(span, "booking_count", result.BookingCount, "total_revenue", result.TotalRevenue.String())
	return result, nil
}

// StoreMonthlyRevenue upserts result by (admin, year, month). A concurrent
// insert of the same key is absorbed by reloading and updating.
func (s *Service) StoreMonthlyRevenue(ctx context.Context, result *revenue.Result) (*revenue.MonthlyRecord, error) {
	if result == nil {
		return nil, shared.ErrInvalidInput.Wrap("revenue result is required", nil)
	}
	if _, err := shared.NewPeriod(result.Year, result.Month); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "revenue", "store_monthly",
		telemetry.SpanAttrAdminID, result.AdminID.String(),
		telemetry.SpanAttrPeriod, result.Period().String(),
	)
	defer span.End()

	rec, err := s.upsert(ctx, result)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, result.AdminID); err != nil {
			s.logger.Warn("Failed to invalidate revenue trend cache",
				zap.String("admin_id", result.AdminID.String()),
				zap.Error(err))
		}
	}
	s.metrics.RecordRevenueStored(ctx, 1)

	s.logger.Debug("Monthly revenue stored",
		zap.String("admin_id", result.AdminID.String()),
		zap.String("period", result.Period().String()),
		zap.String("total_revenue", rec.TotalRevenue.String()),
		zap.Int("booking_count", rec.BookingCount))
	return rec, nil
}

func (s *Service) upsert(ctx context.Context, result *revenue.Result) (*revenue.MonthlyRecord, error) {
	now := s.now()
	existing, err := s.records.FindByKey(ctx, result.AdminID, result.Year, result.Month)
	switch {
	case err == nil:
		existing.Overwrite(result, now)
		if err := s.records.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update revenue record: %w", err)
		}
		return existing, nil
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("load revenue record: %w", err)
	}

	rec := revenue.NewMonthlyRecord(result, now)
	err = s.records.Create(ctx, rec)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, revenue.ErrDuplicateKey) {
		return nil, fmt.Errorf("insert revenue record: %w", err)
	}

	// lost the insert race; the winner's row takes our data
	existing, err = s.records.FindByKey(ctx, result.AdminID, result.Year, result.Month)
	if err != nil {
		return nil, fmt.Errorf("reload revenue record: %w", err)
	}
	existing.Overwrite(result, now)
	if err := s.records.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update revenue record: %w", err)
	}
	return existing, nil
}

// GetStoredRevenue returns the stored records for year, or only month when set
func (s *Service) GetStoredRevenue(ctx context.Context, adminID uuid.UUID, year int, month *int) ([]revenue.MonthlyRecord, error) {
	m := 1
	if month != nil {
		m = *month
	}
	if _, err := shared.NewPeriod(year, m); err != nil {
		return nil, err
	}
	return s.records.FindByAdmin(ctx, adminID, year, month)
}

// GetRevenueTrend returns exactly revenue.TrendMonths points ending at the
// current month, oldest first, zero-filled where nothing is stored.
func (s *Service) GetRevenueTrend(ctx context.Context, adminID uuid.UUID) ([]revenue.TrendPoint, error) {
	end := s.CurrentPeriod()

	if s.cache != nil {
		points, ok, err := s.cache.Get(ctx, adminID, end)
		if err != nil {
			s.logger.Warn("Revenue trend cache read failed",
				zap.String("admin_id", adminID.String()),
				zap.Error(err))
		}
		if ok {
			return points, nil
		}
	}

	records, err := s.records.FindRange(ctx, adminID, end.Add(-(revenue.TrendMonths - 1)), end)
	if err != nil {
		return nil, fmt.Errorf("load revenue trend: %w", err)
	}
	points := revenue.BuildTrend(records, end)

	if s.cache != nil {
		if err := s.cache.Set(ctx, adminID, end, points); err != nil {
			s.logger.Warn("Revenue trend cache write failed",
				zap.String("admin_id", adminID.String()),
				zap.Error(err))
		}
	}
	return points, nil
}

// ProcessAllAdminRevenue calculates month/year for every landlord owning a
// listing and stores the non-zero results. A landlord's failure is recorded
// in the result and does not stop the others. The returned error is set only
// when landlords cannot be enumerated or ctx ends early.
func (s *Service) ProcessAllAdminRevenue(ctx context.Context, month, year int) (*revenue.BatchResult, error) {
	period, err := shared.NewPeriod(year, month)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "revenue", "process_all_admins",
		telemetry.SpanAttrPeriod, period.String(),
	)
	defer span.End()

	admins, err := s.landlords.ListWithListings(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("list landlords: %w", err)
	}

	result := &revenue.BatchResult{
		Year:         year,
		Month:        month,
		TotalRevenue: decimal.Zero,
		Errors:       []revenue.AdminError{},
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.maxConcurrency)

	for _, adminID := range admins {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			stored, total, err := s.processAdmin(ctx, adminID, period)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, revenue.AdminError{AdminID: adminID, Error: err.Error()})
				s.logger.Warn("Revenue processing failed for landlord",
					zap.String("admin_id", adminID.String()),
					zap.String("period", period.String()),
					zap.Error(err))
				return nil
			}
			result.ProcessedAdmins++
			if stored {
				result.StoredRecords++
				result.TotalRevenue = result.TotalRevenue.Add(total)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].AdminID.String() < result.Errors[j].AdminID.String()
	})
	telemetry.SetAttributes(span,
		telemetry.SpanAttrItems, result.ProcessedAdmins,
		telemetry.SpanAttrFailed, len(result.Errors),
	)

	s.logger.Info("Monthly revenue processed",
		zap.String("period", period.String()),
		zap.Int("landlords", len(admins)),
		zap.Int("processed", result.ProcessedAdmins),
		zap.Int("stored", result.StoredRecords),
		zap.Int("errors", len(result.Errors)),
		zap.String("total_revenue", result.TotalRevenue.String()))

	if err := ctx.Err(); err != nil {
		telemetry.RecordError(span, err)
		return result, err
	}
	return result, nil
}

func (s *Service) processAdmin(ctx context.Context, adminID uuid.UUID, period shared.Period) (bool, decimal.Decimal, error) {
	res, err := s.CalculateMonthlyRevenue(ctx, adminID, period.Month, period.Year)
	if err != nil {
		return false, decimal.Zero, err
	}
	if res.IsZero() {
		// an existing row is zeroed so cancelled or moved bookings stop counting
		_, err := s.records.FindByKey(ctx, adminID, period.Year, period.Month)
		if errors.Is(err, shared.ErrNotFound) {
			return false, decimal.Zero, nil
		}
		if err != nil {
			return false, decimal.Zero, fmt.Errorf("load revenue record: %w", err)
		}
	}
	if _, err := s.StoreMonthlyRevenue(ctx, res); err != nil {
		return false, decimal.Zero, err
	}
	return true, res.TotalRevenue, nil
}

// ProcessHistoricalBacklog runs ProcessAllAdminRevenue for every month from
// the earliest booking check-in up to the current month.
func (s *Service) ProcessHistoricalBacklog(ctx context.Context) (*revenue.BacklogResult, error) {
	current := s.CurrentPeriod()

	dates, err := s.bookings.ListCheckInDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list check-in dates: %w", err)
	}

	earliest := current
	for _, d := range dates {
		t, err := shared.ParseDate(d, s.loc)
		if err != nil {
			s.logger.Warn("Ignoring unparseable check-in date in backlog scan",
				zap.String("check_in_date", d),
				zap.Error(err))
			continue
		}
		if p := shared.PeriodOf(t); p.Before(earliest) {
			earliest = p
		}
	}

	result := &revenue.BacklogResult{
		From:         earliest.String(),
		To:           current.String(),
		TotalRevenue: decimal.Zero,
		Months:       []revenue.BatchResult{},
	}

	s.logger.Info("Historical revenue backlog started",
		zap.String("from", result.From),
		zap.String("to", result.To))

	for p := earliest; !current.Before(p); p = p.Add(1) {
		batch, err := s.ProcessAllAdminRevenue(ctx, p.Month, p.Year)
		if batch != nil {
			result.ProcessedMonths++
			result.StoredRecords += batch.StoredRecords
			result.TotalRevenue = result.TotalRevenue.Add(batch.TotalRevenue)
			result.ErrorCount += len(batch.Errors)
			result.Months = append(result.Months, *batch)
		}
		if err != nil {
			return result, fmt.Errorf("backlog month %s: %w", p, err)
		}
	}

	s.logger.Info("Historical revenue backlog completed",
		zap.Int("months", result.ProcessedMonths),
		zap.Int("stored", result.StoredRecords),
		zap.Int("errors", result.ErrorCount))
	return result, nil
}
