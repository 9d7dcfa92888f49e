// Package revenue models per-landlord monthly revenue and its trend.
package revenue

import (
	"context"
	"time"

	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrendMonths is the fixed length of a revenue trend.
const TrendMonths = 12

// ErrDuplicateKey is returned by Repository.Create when a record for the
// same (admin, year, month) already exists.
var ErrDuplicateKey = shared.NewDomainError("DUPLICATE_REVENUE_KEY", "Revenue record already exists for this admin and month")

// BookingDetail is one booking contributing to a month's revenue, enriched
// with listing details.
type BookingDetail struct {
	BookingID      uuid.UUID       `json:"booking_id"`
	Code           string          `json:"code,omitempty"`
	ListingID      uuid.UUID       `json:"listing_id"`
	ListingTitle   string          `json:"listing_title"`
	ListingAddress string          `json:"listing_address"`
	TenantRef      string          `json:"tenant_ref"`
	CheckInDate    string          `json:"check_in_date"`
	CheckOutDate   string          `json:"check_out_date"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Status         string          `json:"status"`
}

// Result is a freshly calculated month of revenue for one landlord
type Result struct {
	AdminID      uuid.UUID       `json:"admin_id"`
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	BookingCount int             `json:"booking_count"`
	Bookings     []BookingDetail `json:"bookings"`
	CalculatedAt time.Time       `json:"calculated_at"`
}

// NewResult sums details into a result for period.
func NewResult(adminID uuid.UUID, period shared.Period, details []BookingDetail, now time.Time) *Result {
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.TotalPrice)
	}
	if details == nil {
		details = []BookingDetail{}
	}
	return &Result{
		AdminID:      adminID,
		Year:         period.Year,
		Month:        period.Month,
		TotalRevenue: total,
		BookingCount: len(details),
		Bookings:     details,
		CalculatedAt: now,
	}
}

// Period returns the result's month
func (r *Result) Period() shared.Period {
	return shared.Period{Year: r.Year, Month: r.Month}
}

// IsZero reports whether the result carries no revenue.
func (r *Result) IsZero() bool {
	return r.TotalRevenue.IsZero() && r.BookingCount == 0
}

// MonthlyRecord is the materialized revenue for (AdminID, Year, Month).
type MonthlyRecord struct {
	ID           uuid.UUID
	AdminID      uuid.UUID
	Year         int
	Month        int
	TotalRevenue decimal.Decimal
	BookingCount int
	Bookings     []BookingDetail
	CalculatedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewMonthlyRecord creates a record from a result
func NewMonthlyRecord(r *Result, now time.Time) *MonthlyRecord {
	rec := &MonthlyRecord{
		ID:        uuid.New(),
		AdminID:   r.AdminID,
		Year:      r.Year,
		Month:     r.Month,
		CreatedAt: now,
	}
	rec.Overwrite(r, now)
	return rec
}

// Overwrite replaces the record's data with r, keeping identity and CreatedAt.
func (m *MonthlyRecord) Overwrite(r *Result, now time.Time) {
	m.TotalRevenue = r.TotalRevenue
	m.BookingCount = r.BookingCount
	m.Bookings = r.Bookings
	m.CalculatedAt = r.CalculatedAt
	m.UpdatedAt = now
}

// TrendPoint is one month in a revenue trend
type TrendPoint struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	Label        string          `json:"label"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	BookingCount int             `json:"booking_count"`
}

// BuildTrend lays records onto the TrendMonths months ending at end, oldest
// first, filling months without a record with zero.
func BuildTrend(records []MonthlyRecord, end shared.Period) []TrendPoint {
	byPeriod := make(map[shared.Period]MonthlyRecord, len(records))
	for _, r := range records {
		byPeriod[shared.Period{Year: r.Year, Month: r.Month}] = r
	}

	points := make([]TrendPoint, 0, TrendMonths)
	for i := TrendMonths - 1; i >= 0; i-- {
		p := end.Add(-i)
		point := TrendPoint{Year: p.Year, Month: p.Month, Label: p.String(), TotalRevenue: decimal.Zero}
		if r, ok := byPeriod[p]; ok {
			point.TotalRevenue = r.TotalRevenue
			point.BookingCount = r.BookingCount
		}
		points = append(points, point)
	}
	return points
}

// AdminError records one landlord's failure inside a batch
type AdminError struct {
	AdminID uuid.UUID `json:"admin_id"`
	Error   string    `json:"error"`
}

// BatchResult summarizes processing one month for every landlord
type BatchResult struct {
	Year            int             `json:"year"`
	Month           int             `json:"month"`
	ProcessedAdmins int             `json:"processed_admins"`
	StoredRecords   int             `json:"stored_records"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	Errors          []AdminError    `json:"errors"`
}

// BacklogResult summarizes a historical recomputation
type BacklogResult struct {
	From            string          `json:"from"`
	To              string          `json:"to"`
	ProcessedMonths int             `json:"processed_months"`
	StoredRecords   int             `json:"stored_records"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	Months          []BatchResult   `json:"months"`
	ErrorCount      int             `json:"error_count"`
}

// Repository persists monthly revenue records
type Repository interface {
	FindByKey(ctx context.Context, adminID uuid.UUID, year, month int) (*MonthlyRecord, error)
	// Create inserts rec, returning ErrDuplicateKey on a key collision.
	Create(ctx context.Context, rec *MonthlyRecord) error
	Update(ctx context.Context, rec *MonthlyRecord) error
	// FindByAdmin returns records for year, or just month when month is set,
	// in chronological order.
	FindByAdmin(ctx context.Context, adminID uuid.UUID, year int, month *int) ([]MonthlyRecord, error)
	// FindRange returns records with from <= (year, month) <= to.
	FindRange(ctx context.Context, adminID uuid.UUID, from, to shared.Period) ([]MonthlyRecord, error)
}

// LandlordDirectory enumerates landlords
type LandlordDirectory interface {
	// ListWithListings returns every active landlord owning at least one listing.
	ListWithListings(ctx context.Context) ([]uuid.UUID, error)
}

// TrendCache holds computed trends keyed by landlord. A cached trend is only
// valid for the end month it was built for.
type TrendCache interface {
	Get(ctx context.Context, adminID uuid.UUID, end shared.Period) ([]TrendPoint, bool, error)
	Set(ctx context.Context, adminID uuid.UUID, end shared.Period, points []TrendPoint) error
	Invalidate(ctx context.Context, adminID uuid.UUID) error
}
