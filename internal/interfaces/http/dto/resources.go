package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/estatehub/backend/internal/domain/invoice"
	"github.com/estatehub/backend/internal/domain/lease"
	"github.com/estatehub/backend/internal/domain/listing"
	"github.com/estatehub/backend/internal/domain/reconciliation"
	"github.com/estatehub/backend/internal/domain/revenue"
)

// IdentifierResponse carries a freshly issued value
type IdentifierResponse struct {
	Value      string `json:"value"`
	EntityType string `json:"entity_type"`
}

// ExistsResponse reports whether a value is registered
type ExistsResponse struct {
	Value  string `json:"value"`
	Exists bool   `json:"exists"`
}

// LeaseResponse is a lease after status derivation
type LeaseResponse struct {
	ID               uuid.UUID       `json:"id"`
	Code             string          `json:"code,omitempty"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date"`
	RentAmount       decimal.Decimal `json:"rent_amount"`
	Status           string          `json:"status"`
	LastStatusUpdate *time.Time      `json:"last_status_update,omitempty"`
}

// InvoiceResponse is an invoice after status derivation
type InvoiceResponse struct {
	ID               uuid.UUID       `json:"id"`
	Code             string          `json:"code,omitempty"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          string          `json:"due_date"`
	Status           string          `json:"status"`
	PaidDate         *time.Time      `json:"paid_date,omitempty"`
	LastStatusUpdate *time.Time      `json:"last_status_update,omitempty"`
}

// ListingResponse is a listing after status derivation
type ListingResponse struct {
	ID               uuid.UUID  `json:"id"`
	Code             string     `json:"code,omitempty"`
	LandlordID       uuid.UUID  `json:"landlord_id"`
	Title            string     `json:"title"`
	Status           string     `json:"status"`
	LastStatusUpdate *time.Time `json:"last_status_update,omitempty"`
}

// MonthlyRevenueResponse is one stored revenue record
type MonthlyRevenueResponse struct {
	AdminID      uuid.UUID               `json:"admin_id"`
	Year         int                     `json:"year"`
	Month        int                     `json:"month"`
	TotalRevenue decimal.Decimal         `json:"total_revenue"`
	BookingCount int                     `json:"booking_count"`
	Bookings     []revenue.BookingDetail `json:"bookings"`
	CalculatedAt time.Time               `json:"calculated_at"`
}

// RunResponse is one recorded reconciliation run
type RunResponse struct {
	ID         uuid.UUID                  `json:"id"`
	Kind       reconciliation.Kind        `json:"kind"`
	Trigger    reconciliation.Trigger     `json:"trigger"`
	State      reconciliation.State       `json:"state"`
	StartedAt  *time.Time                 `json:"started_at,omitempty"`
	FinishedAt *time.Time                 `json:"finished_at,omitempty"`
	Succeeded  int                        `json:"succeeded"`
	Failed     int                        `json:"failed"`
	Errors     []reconciliation.ItemError `json:"errors"`
	Message    string                     `json:"message,omitempty"`
}

// ToLeaseResponse maps a lease
func ToLeaseResponse(l *lease.Lease) LeaseResponse {
	return LeaseResponse{
		ID:               l.ID,
		Code:             l.Code,
		StartDate:        l.StartDate,
		EndDate:          l.EndDate,
		RentAmount:       l.RentAmount,
		Status:           string(l.Status),
		LastStatusUpdate: l.LastStatusUpdate,
	}
}

// ToInvoiceResponse maps an invoice
func ToInvoiceResponse(inv *invoice.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:               inv.ID,
		Code:             inv.Code,
		Description:      inv.Description,
		Amount:           inv.Amount,
		DueDate:          inv.DueDate,
		Status:           string(inv.Status),
		PaidDate:         inv.PaidDate,
		LastStatusUpdate: inv.LastStatusUpdate,
	}
}

// ToListingResponse maps a listing
func ToListingResponse(l *listing.Listing) ListingResponse {
	return ListingResponse{
		ID:               l.ID,
		Code:             l.Code,
		LandlordID:       l.LandlordID,
		Title:            l.Title,
		Status:           string(l.Status),
		LastStatusUpdate: l.LastStatusUpdate,
	}
}

// ToMonthlyRevenueResponses maps stored records
func ToMonthlyRevenueResponses(records []revenue.MonthlyRecord) []MonthlyRevenueResponse {
	out := make([]MonthlyRevenueResponse, 0, len(records))
	for _, r := range records {
		bookings := r.Bookings
		if bookings == nil {
			bookings = []revenue.BookingDetail{}
		}
		out = append(out, MonthlyRevenueResponse{
			AdminID:      r.AdminID,
			Year:         r.Year,
			Month:        r.Month,
			TotalRevenue: r.TotalRevenue,
			BookingCount: r.BookingCount,
			Bookings:     bookings,
			CalculatedAt: r.CalculatedAt,
		})
	}
	return out
}

// ToRunResponse maps a run record
func ToRunResponse(r *reconciliation.Run) RunResponse {
	errs := r.Errors
	if errs == nil {
		errs = []reconciliation.ItemError{}
	}
	return RunResponse{
		ID:         r.ID,
		Kind:       r.Kind,
		Trigger:    r.Trigger,
		State:      r.State,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		Errors:     errs,
		Message:    r.Message,
	}
}
