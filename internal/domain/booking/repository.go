package booking

import "context"

// Repository reads bookings
type Repository interface {
	// FindByListingRefs returns bookings whose listing_ref equals any of refs.
	FindByListingRefs(ctx context.Context, refs []string) ([]Booking, error)
	// ListCheckInDates returns every stored check-in date string.
	ListCheckInDates(ctx context.Context) ([]string, error)
}
