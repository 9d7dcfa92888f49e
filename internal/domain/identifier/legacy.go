package identifier

import "context"

// LegacySource points at a table column holding codes issued before the
// registry existed.
type LegacySource struct {
	EntityType EntityType
	Collection string
	FieldPath  string
}

// DefaultLegacySources covers every entity type at its default column.
func DefaultLegacySources() []LegacySource {
	types := []EntityType{EntityListing, EntityBooking, EntityLease, EntityInvoice, EntityMaintenanceTicket}
	out := make([]LegacySource, 0, len(types))
	for _, t := range types {
		out = append(out, LegacySource{EntityType: t, Collection: t.Collection(), FieldPath: DefaultFieldPath})
	}
	return out
}

// SourceError is a legacy value that could not be registered
type SourceError struct {
	Collection string `json:"collection"`
	Value      string `json:"value,omitempty"`
	Error      string `json:"error"`
}

// MigrationResult summarizes one legacy registration run
type MigrationResult struct {
	Registered int           `json:"registered"`
	Skipped    int           `json:"skipped"`
	Errors     []SourceError `json:"errors"`
}

// LegacyReader reads existing codes out of entity tables.
type LegacyReader interface {
	// ListValues returns the non-empty values of field in collection.
	ListValues(ctx context.Context, collection, field string) ([]string, error)
}
