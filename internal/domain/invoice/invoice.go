// Package invoice derives invoice payment status from the due date.
package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the payment status of an invoice
type Status string

const (
	StatusPending Status = "Pending"
	StatusOverdue Status = "Overdue"
	StatusPaid    Status = "Paid"
)

// IsValid checks if the status is a valid invoice status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusOverdue, StatusPaid:
		return true
	}
	return false
}

// IsTerminal reports whether date logic may no longer change the status
func (s Status) IsTerminal() bool {
	return s == StatusPaid
}

// Label is the marker appended to descriptions, e.g. "[OVERDUE]".
func (s Status) Label() string {
	return "[" + strings.ToUpper(string(s)) + "]"
}

// DeriveStatus computes the status for now. Paid is returned unchanged; an
// invoice due today becomes overdue only once the day has ended.
func DeriveStatus(due time.Time, current Status, now time.Time) Status {
	if current == StatusPaid {
		return StatusPaid
	}
	if now.After(shared.EndOfDay(due)) {
		return StatusOverdue
	}
	return StatusPending
}

// Invoice billed to a tenant under a lease
type Invoice struct {
	shared.BaseEntity
	Code             string
	AdminID          uuid.UUID
	LeaseRef         string
	Description      string
	Amount           decimal.Decimal
	DueDate          string
	Status           Status
	PaidDate         *time.Time
	LastStatusUpdate *time.Time
}

// Reconcile re-derives the status for now and applies it when it differs.
// It reports whether the invoice changed.
func (inv *Invoice) Reconcile(now time.Time) (bool, error) {
	if inv.Status == StatusPaid {
		return false, nil
	}
	due, err := shared.ParseDate(inv.DueDate, now.Location())
	if err != nil {
		return false, fmt.Errorf("invoice %s due date: %w", inv.Code, err)
	}
	return inv.ApplyStatus(DeriveStatus(due, inv.Status, now), now), nil
}

// ApplyStatus moves the invoice to next, regenerating the description and
// stamping LastStatusUpdate. Returns false when nothing changed.
func (inv *Invoice) ApplyStatus(next Status, now time.Time) bool {
	if next == inv.Status {
		return false
	}
	inv.Status = next
	inv.Description = RenderDescription(inv.Description, next)
	inv.LastStatusUpdate = &now
	inv.UpdatedAt = now
	return true
}

// MarkPaid records a payment on the aggregate. Reconcile never moves an
// invoice into Paid; payments are written by the billing side of the
// platform, which this service does not host.
func (inv *Invoice) MarkPaid(paidAt time.Time) error {
	if inv.Status == StatusPaid {
		return shared.ErrInvalidState.Wrap(fmt.Sprintf("invoice %s is already paid", inv.Code), nil)
	}
	inv.PaidDate = &paidAt
	inv.ApplyStatus(StatusPaid, paidAt)
	return nil
}

// RenderDescription replaces any trailing status label in description with
// the label for status.
func RenderDescription(description string, status Status) string {
	base := strings.TrimSpace(description)
	for _, s := range []Status{StatusPending, StatusOverdue, StatusPaid} {
		if trimmed, ok := strings.CutSuffix(base, s.Label()); ok {
			base = strings.TrimSpace(trimmed)
			break
		}
	}
	if base == "" {
		return status.Label()
	}
	return base + " " + status.Label()
}

// Repository persists invoices
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindUnpaid returns every invoice whose status is not Paid.
	FindUnpaid(ctx context.Context) ([]Invoice, error)
	UpdateStatus(ctx context.Context, inv *Invoice) error
}
