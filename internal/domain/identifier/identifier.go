// Package identifier models the cross-entity registry of issued
// human-readable identifiers such as L-0001 or I-0042.
package identifier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EntityType names the kind of entity that owns an identifier
type EntityType string

const (
	EntityListing           EntityType = "listing"
	EntityBooking           EntityType = "booking"
	EntityLease             EntityType = "lease"
	EntityInvoice           EntityType = "invoice"
	EntityMaintenanceTicket EntityType = "maintenance_ticket"
)

// IsValid checks if the entity type is known
func (e EntityType) IsValid() bool {
	switch e {
	case EntityListing, EntityBooking, EntityLease, EntityInvoice, EntityMaintenanceTicket:
		return true
	}
	return false
}

// Collection returns the table that stores entities of this type.
func (e EntityType) Collection() string {
	switch e {
	case EntityListing:
		return "listings"
	case EntityBooking:
		return "bookings"
	case EntityLease:
		return "leases"
	case EntityInvoice:
		return "invoices"
	case EntityMaintenanceTicket:
		return "maintenance_tickets"
	}
	return ""
}

// Status of a registry entry
type Status string

const (
	StatusActive  Status = "active"
	StatusRetired Status = "retired"
)

// DefaultFieldPath is the column holding the identifier on every owning table.
const DefaultFieldPath = "code"

var (
	ErrIdentifierExhausted = shared.NewDomainError("IDENTIFIER_EXHAUSTED", "Could not issue a unique identifier within the retry budget")
	ErrDuplicateValue      = shared.NewDomainError("DUPLICATE_IDENTIFIER", "Identifier is already registered")
	ErrInvalidPrefix       = shared.NewDomainError("INVALID_PREFIX", "Identifier prefix must be 1-5 uppercase letters")

	prefixPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)
)

// Record is one registered identifier
type Record struct {
	ID         uuid.UUID
	Value      string
	EntityType EntityType
	Collection string
	FieldPath  string
	Status     Status
	CreatedAt  time.Time
}

// NewRecord creates an active record for value
func NewRecord(value string, entityType EntityType, collection, fieldPath string) (*Record, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, shared.ErrInvalidInput.Wrap("identifier value cannot be empty", nil)
	}
	if !entityType.IsValid() {
		return nil, shared.ErrInvalidInput.Wrap(fmt.Sprintf("unknown entity type %q", entityType), nil)
	}
	if collection == "" {
		collection = entityType.Collection()
	}
	if fieldPath == "" {
		fieldPath = DefaultFieldPath
	}
	return &Record{
		ID:         uuid.New(),
		Value:      value,
		EntityType: entityType,
		Collection: collection,
		FieldPath:  fieldPath,
		Status:     StatusActive,
		CreatedAt:  time.Now(),
	}, nil
}

// Retire marks the record retired. Retired values stay reserved.
func (r *Record) Retire() error {
	if r.Status == StatusRetired {
		return shared.ErrInvalidState.Wrap(fmt.Sprintf("identifier %s is already retired", r.Value), nil)
	}
	r.Status = StatusRetired
	return nil
}

// ValidatePrefix checks that prefix is usable for issuance.
func ValidatePrefix(prefix string) error {
	if !prefixPattern.MatchString(prefix) {
		return ErrInvalidPrefix.Wrap(fmt.Sprintf("invalid prefix %q", prefix), nil)
	}
	return nil
}

// Format renders prefix-n zero padded to width digits. Wider numbers are
// rendered in full.
func Format(prefix string, n, width int) string {
	return fmt.Sprintf("%s-%0*d", prefix, width, n)
}

// ParseSuffix extracts the numeric suffix of a P-#### value. ok is false
// when value does not belong to prefix or the suffix is not numeric.
func ParseSuffix(value, prefix string) (n int, ok bool) {
	rest, found := strings.CutPrefix(value, prefix+"-")
	if !found || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxSuffix returns the largest numeric suffix among values for prefix,
// ignoring values that do not parse. Zero when none match.
func MaxSuffix(values []string, prefix string) int {
	maxN := 0
	for _, v := range values {
		if n, ok := ParseSuffix(v, prefix); ok && n > maxN {
			maxN = n
		}
	}
	return maxN
}
