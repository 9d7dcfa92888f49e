// Package lease derives lease lifecycle status from the lease's date range.
package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle status of a lease
type Status string

const (
	StatusPending Status = "Pending"
	StatusActive  Status = "Active"
	StatusExpired Status = "Expired"
)

// IsValid checks if the status is a valid lease status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExpired:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusExpired
}

var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusExpired},
	StatusActive:  {StatusExpired},
}

// CanTransitionTo reports whether moving from s to next is a forward transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var (
	// ErrInvalidDateRange flags an end date on or before the start date.
	// DeriveStatus still returns Expired alongside it.
	ErrInvalidDateRange = shared.NewDomainError("INVALID_DATE_RANGE", "Lease end date is not after its start date")
	// ErrInvalidTransition reports a derived status the lease may not move to.
	ErrInvalidTransition = shared.NewDomainError("INVALID_TRANSITION", "Lease status transition not allowed")
)

// DeriveStatus computes the lease status for the calendar day of now.
// Day comparisons use now's location.
func DeriveStatus(start, end, now time.Time) (Status, error) {
	startDay := shared.StartOfDay(start)
	endDay := shared.StartOfDay(end)
	if !endDay.After(startDay) {
		return StatusExpired, ErrInvalidDateRange.Wrap(
			fmt.Sprintf("end %s is not after start %s", shared.FormatDate(end), shared.FormatDate(start)), nil)
	}

	today := shared.StartOfDay(now)
	switch {
	case endDay.Before(today):
		return StatusExpired, nil
	case !startDay.After(today):
		return StatusActive, nil
	default:
		return StatusPending, nil
	}
}

// Lease is a tenancy agreement. Status caches the value of DeriveStatus.
type Lease struct {
	shared.BaseEntity
	Code             string
	BookingID        string
	Tenant           string
	Property         string
	StartDate        string
	EndDate          string
	RentAmount       decimal.Decimal
	Status           Status
	LastStatusUpdate *time.Time
}

// Transition is the outcome of reconciling one lease.
type Transition struct {
	From    Status
	To      Status
	Changed bool
	// Warning carries a data-quality problem that did not block derivation.
	Warning error
}

// Reconcile re-derives the status for now and applies it when the move is
// allowed. Unparseable dates return an INVALID_INPUT error and leave the
// lease untouched; a disallowed move returns ErrInvalidTransition.
func (l *Lease) Reconcile(now time.Time) (Transition, error) {
	loc := now.Location()
	start, err := shared.ParseDate(l.StartDate, loc)
	if err != nil {
		return Transition{}, fmt.Errorf("lease %s start date: %w", l.Code, err)
	}
	end, err := shared.ParseDate(l.EndDate, loc)
	if err != nil {
		return Transition{}, fmt.Errorf("lease %s end date: %w", l.Code, err)
	}

	derived, warning := DeriveStatus(start, end, now)
	tr := Transition{From: l.Status, To: derived, Warning: warning}
	if derived == l.Status {
		return tr, nil
	}
	// an empty status comes from rows written before derivation existed
	if l.Status != "" && !l.Status.CanTransitionTo(derived) {
		return tr, ErrInvalidTransition.Wrap(
			fmt.Sprintf("lease %s cannot move from %s to %s", l.Code, l.Status, derived), nil)
	}

	l.Status = derived
	l.LastStatusUpdate = &now
	l.UpdatedAt = now
	tr.Changed = true
	return tr, nil
}

// Repository persists leases
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Lease, error)
	// FindNonTerminal returns every lease whose status is not Expired.
	FindNonTerminal(ctx context.Context) ([]Lease, error)
	UpdateStatus(ctx context.Context, l *Lease) error
}
