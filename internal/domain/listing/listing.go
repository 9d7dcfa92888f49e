// Package listing derives listing occupancy from bookings and maintenance
// tickets.
package listing

import (
	"context"
	"strings"
	"time"

	"github.com/estatehub/backend/internal/domain/booking"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Status represents the occupancy status of a listing
type Status string

const (
	StatusVacant           Status = "Vacant"
	StatusOccupied         Status = "Occupied"
	StatusUnderMaintenance Status = "UnderMaintenance"
)

// IsValid checks if the status is a valid listing status
func (s Status) IsValid() bool {
	switch s {
	case StatusVacant, StatusOccupied, StatusUnderMaintenance:
		return true
	}
	return false
}

// Listing is a rentable unit owned by a landlord
type Listing struct {
	shared.BaseEntity
	Code             string
	LandlordID       uuid.UUID
	Title            string
	Address          string
	Status           Status
	LastStatusUpdate *time.Time
}

// Refs returns every form a booking or ticket may use to point at this
// listing: the UUID and, when set, the legacy code.
func (l *Listing) Refs() []string {
	refs := []string{l.ID.String()}
	if l.Code != "" {
		refs = append(refs, l.Code)
	}
	return refs
}

// ApplyStatus stores next, stamping LastStatusUpdate. Returns false when
// nothing changed.
func (l *Listing) ApplyStatus(next Status, now time.Time) bool {
	if l.Status == next {
		return false
	}
	l.Status = next
	l.LastStatusUpdate = &now
	l.UpdatedAt = now
	return true
}

// MaintenanceTicket is a repair request against a listing
type MaintenanceTicket struct {
	ID         uuid.UUID
	ListingRef string
	Status     string
}

// IsOpen reports whether the ticket still blocks the unit.
func (t MaintenanceTicket) IsOpen() bool {
	s := booking.NormalizeStatus(t.Status)
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	return s == "pending" || s == "in-progress"
}

// DeriveStatus computes occupancy for the calendar day of now. An active
// stay wins over an open ticket.
func DeriveStatus(stays []booking.Stay, tickets []MaintenanceTicket, now time.Time) Status {
	for _, s := range stays {
		if s.IsActiveOn(now) {
			return StatusOccupied
		}
	}
	for _, t := range tickets {
		if t.IsOpen() {
			return StatusUnderMaintenance
		}
	}
	return StatusVacant
}

// Repository persists listings
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	FindAll(ctx context.Context) ([]Listing, error)
	FindByLandlord(ctx context.Context, landlordID uuid.UUID) ([]Listing, error)
	UpdateStatus(ctx context.Context, l *Listing) error
}

// TicketRepository reads maintenance tickets
type TicketRepository interface {
	FindByListingRefs(ctx context.Context, refs []string) ([]MaintenanceTicket, error)
}
