// Package booking holds the read-only booking facts used for occupancy and
// revenue derivation.
package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking as stored. ListingRef holds either the listing's UUID or its
// legacy code; CheckInDate and CheckOutDate are DD-MM-YYYY strings.
type Booking struct {
	ID           uuid.UUID
	Code         string
	ListingRef   string
	TenantRef    string
	CheckInDate  string
	CheckOutDate string
	TotalPrice   decimal.Decimal
	Status       string
}

// Stay is a booking with parsed dates.
type Stay struct {
	BookingID uuid.UUID
	CheckIn   time.Time
	CheckOut  time.Time
	Status    string
}

// NormalizeStatus lower-cases and trims a free-form status value.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// IsOccupyingStatus reports whether a booking in this status can occupy a listing.
func IsOccupyingStatus(status string) bool {
	switch NormalizeStatus(status) {
	case "active", "confirmed":
		return true
	}
	return false
}

// IsRevenueEligible reports whether a booking in this status counts toward revenue.
func IsRevenueEligible(status string) bool {
	switch NormalizeStatus(status) {
	case "active", "confirmed", "expired", "completed":
		return true
	}
	return false
}

// CheckIn parses the check-in date in loc.
func (b *Booking) CheckIn(loc *time.Location) (time.Time, error) {
	t, err := shared.ParseDate(b.CheckInDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("booking %s check-in: %w", b.label(), err)
	}
	return t, nil
}

// Stay parses both dates in loc.
func (b *Booking) Stay(loc *time.Location) (Stay, error) {
	in, err := b.CheckIn(loc)
	if err != nil {
		return Stay{}, err
	}
	out, err := shared.ParseDate(b.CheckOutDate, loc)
	if err != nil {
		return Stay{}, fmt.Errorf("booking %s check-out: %w", b.label(), err)
	}
	return Stay{BookingID: b.ID, CheckIn: in, CheckOut: out, Status: b.Status}, nil
}

func (b *Booking) label() string {
	if b.Code != "" {
		return b.Code
	}
	return b.ID.String()
}

// IsActiveOn reports whether the stay occupies the calendar day of now:
// check-in inclusive, check-out exclusive, status active or confirmed.
func (s Stay) IsActiveOn(now time.Time) bool {
	if !IsOccupyingStatus(s.Status) {
		return false
	}
	today := shared.StartOfDay(now.In(s.CheckIn.Location()))
	return !today.Before(s.CheckIn) && today.Before(s.CheckOut)
}
