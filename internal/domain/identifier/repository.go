package identifier

import "context"

// Repository persists registry records. Create must return an error
// satisfying errors.Is(err, ErrDuplicateValue) when value is taken.
type Repository interface {
	// ListValues returns every registered value starting with prefix + "-",
	// retired ones included so they are never proposed again.
	ListValues(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, value string) (bool, error)
	FindByValue(ctx context.Context, value string) (*Record, error)
	Create(ctx context.Context, record *Record) error
	Save(ctx context.Context, record *Record) error
}
