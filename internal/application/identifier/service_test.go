package identifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/estatehub/backend/internal/domain/identifier"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/estatehub/backend/internal/infrastructure/config"
	"github.com/estatehub/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockIdentifierRepo is a mock implementation of identifier.Repository
type mockIdentifierRepo struct {
	mock.Mock
}

func (m *mockIdentifierRepo) ListValues(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockIdentifierRepo) Exists(ctx context.Context, value string) (bool, error) {
	args := m.Called(ctx, value)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdentifierRepo) FindByValue(ctx context.Context, value string) (*identifier.Record, error) {
	args := m.Called(ctx, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identifier.Record), args.Error(1)
}

func (m *mockIdentifierRepo) Create(ctx context.Context, record *identifier.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockIdentifierRepo) Save(ctx context.Context, record *identifier.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// mockLegacyReader is a mock implementation of identifier.LegacyReader
type mockLegacyReader struct {
	mock.Mock
}

func (m *mockLegacyReader) ListValues(ctx context.Context, collection, field string) ([]string, error) {
	args := m.Called(ctx, collection, field)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func withValue(value string) any {
	return mock.MatchedBy(func(r *identifier.Record) bool { return r.Value == value })
}

func newSQLiteService(t *testing.T, cfg ServiceConfig) (*Service, *persistence.GormIdentifierRepository) {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := persistence.NewGormIdentifierRepository(db.DB)
	return NewService(repo, persistence.NewGormLegacyReader(db.DB), zap.NewNop(), cfg), repo
}

func TestService_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("continues after the highest registered suffix", func(t *testing.T) {
		repo := new(mockIdentifierRepo)
		repo.On("ListValues", ctx, "L").Return([]string{"L-0001", "L-0007", "L-legacy"}, nil)
		repo.On("Exists", ctx, "L-0008").Return(false, nil)
		repo.On("Create", ctx, withValue("L-0008")).Return(nil)

		svc := NewService(repo, nil, zap.NewNop(), DefaultServiceConfig())
		value, err := svc.Issue(ctx, identifier.EntityLease, "L")

		require.NoError(t, err)
		assert.Equal(t, "L-0008", value)
		repo.AssertExpectations(t)
	})

	t.Run("first value for an empty prefix", func(t *testing.T) {
		repo := new(mockIdentifierRepo)
		repo.On("ListValues", ctx, "I").Return([]string{}, nil)
		repo.On("Exists", ctx, "I-0001").Return(false, nil)
		repo.On("Create", ctx, withValue("I-0001")).Return(nil)

		svc := NewService(repo, nil, zap.NewNop(), DefaultServiceConfig())
		value, err := svc.Issue(ctx, identifier.EntityInvoice, "I")

		require.NoError(t, err)
		assert.Equal(t, "I-0001", value)
	})

	t.Run("retries past a duplicate insert", func(t *testing.T) {
		repo := new(mockIdentifierRepo)
		repo.On("ListValues", ctx, "P").Return([]string{"P-0004"}, nil).Once()
		repo.On("ListValues", ctx, "P").Return([]string{"P-0004", "P-0005"}, nil).Once()
		repo.On("Exists", ctx, "P-0005").Return(false, nil).Once()
		repo.On("Create", ctx, withValue("P-0005")).Return(identifier.ErrDuplicateValue).Once()
		repo.On("Exists", ctx, "P-0006").Return(false, nil).Once()
		repo.On("Create", ctx, withValue("P-0006")).Return(nil).Once()

		svc := NewService(repo, nil, zap.NewNop(), DefaultServiceConfig())
		value, err := svc.Issue(ctx, identifier.EntityListing, "P")

		require.NoError(t, err)
		assert.Equal(t, "P-0006", value)
		repo.AssertExpectations(t)
	})

	t.Run("skips a retired value that is not in the active scan", func(t *testing.T) {
		repo := new(mockIdentifierRepo)
		repo.On("ListValues", ctx, "B").Return([]string{"B-0002"}, nil)
		repo.On("Exists", ctx, "B-0003").Return(true, nil)
		repo.On("Exists", ctx, "B-0004").Return(false, nil)
		repo.On("Create", ctx, withValue("B-0004")).Return(nil)

		svc := NewService(repo, nil, zap.NewNop(), DefaultServiceConfig())
		value, err := svc.Issue(ctx, identifier.EntityBooking, "B")

		require.NoError(t, err)
		assert.Equal(t, "B-0004", value)
	})

	t.Run("exhausts the retry budget", func(t *testing.T) {
		repo := new(mockIdentifierRepo)
		repo.On("ListValues", ctx, "P").Return([]string{}, nil)
		repo.On("Exists", ctx, mock.Anything).Return(false, nil)
		repo.On("Create", ctx, mock.Anything).Return(identifier.ErrDuplicateValue)

		svc := NewService(repo, nil, zap.NewNop(), ServiceConfig{MaxRetries: 3})
		_, err := svc.Issue(ctx, identifier.EntityListing, "P")

		require.Error(t, err)
		assert.True(t, errors.Is(err, identifier.ErrIdentifierExhausted))
		repo.AssertNumberOfCalls(t, "Create", 3)
	})

	t.Run("store errors are not retried", func(t *testing.T) {
		repo := new(mockIdentifierRepo)
		storeErr := errors.New("connection reset")
		repo.On("ListValues", ctx, "P").Return(nil, storeErr)

		svc := NewService(repo, nil, zap.NewNop(), DefaultServiceConfig())
		_, err := svc.Issue(ctx, identifier.EntityListing, "P")

		assert.ErrorIs(t, err, storeErr)
		repo.AssertNumberOfCalls(t, "ListValues", 1)
	})

	t.Run("skips past trailing retired values", func(t *testing.T) {
		cfg := DefaultServiceConfig()
		svc, _ := newSQLiteService(t, cfg)

		issued := make([]string, 0, cfg.MaxRetries+1)
		for range cfg.MaxRetries + 1 {
			v, err := svc.Issue(ctx, identifier.EntityLease, "L")
			require.NoError(t, err)
			issued = append(issued, v)
		}
		for _, v := range issued[1:] {
			require.NoError(t, svc.Retire(ctx, v))
		}

		value, err := svc.Issue(ctx, identifier.EntityLease, "L")
		require.NoError(t, err)
		assert.Equal(t, identifier.Format("L", cfg.MaxRetries+2, cfg.PadWidth), value)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		svc := NewService(new(mockIdentifierRepo), nil, zap.NewNop(), DefaultServiceConfig())

		_, err := svc.Issue(ctx, identifier.EntityListing, "p1")
		assert.True(t, errors.Is(err, identifier.ErrInvalidPrefix))

		_, err = svc.Issue(ctx, identifier.EntityType("tenant"), "T")
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestService_Issue_Concurrent(t *testing.T) {
	svc, _ := newSQLiteService(t, DefaultServiceConfig())
	ctx := context.Background()

	const workers = 10
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values []string
	)
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.Issue(ctx, identifier.EntityListing, "P")
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, values, workers)
	seen := make(map[string]struct{}, workers)
	for _, v := range values {
		_, dup := seen[v]
		assert.False(t, dup, "value %s issued twice", v)
		seen[v] = struct{}{}
	}
	assert.Contains(t, seen, "P-0001")
	assert.Contains(t, seen, "P-0010")
}

func TestService_Retire(t *testing.T) {
	svc, _ := newSQLiteService(t, DefaultServiceConfig())
	ctx := context.Background()

	first, err := svc.Issue(ctx, identifier.EntityInvoice, "I")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, identifier.EntityInvoice, "I")
	require.NoError(t, err)

	require.NoError(t, svc.Retire(ctx, second))

	exists, err := svc.Exists(ctx, second)
	require.NoError(t, err)
	assert.True(t, exists, "retired values stay reserved")

	next, err := svc.Issue(ctx, identifier.EntityInvoice, "I")
	require.NoError(t, err)
	assert.Equal(t, "I-0001", first)
	assert.Equal(t, "I-0003", next)

	err = svc.Retire(ctx, second)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))

	err = svc.Retire(ctx, "I-9999")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestService_RegisterLegacy(t *testing.T) {
	ctx := context.Background()

	t.Run("is idempotent", func(t *testing.T) {
		svc, _ := newSQLiteService(t, DefaultServiceConfig())
		reader := new(mockLegacyReader)
		reader.On("ListValues", ctx, "listings", "code").Return([]string{"P-0001", "P-0002"}, nil)
		reader.On("ListValues", ctx, "leases", "code").Return([]string{"L-0001", "P-0001"}, nil)
		svc.legacy = reader

		sources := []identifier.LegacySource{
			{EntityType: identifier.EntityListing},
			{EntityType: identifier.EntityLease},
		}

		first, err := svc.RegisterLegacy(ctx, sources)
		require.NoError(t, err)
		assert.Equal(t, 3, first.Registered)
		assert.Equal(t, 1, first.Skipped)
		assert.Empty(t, first.Errors)

		second, err := svc.RegisterLegacy(ctx, sources)
		require.NoError(t, err)
		assert.Equal(t, 0, second.Registered)
		assert.Equal(t, 4, second.Skipped)

		value, err := svc.Issue(ctx, identifier.EntityListing, "P")
		require.NoError(t, err)
		assert.Equal(t, "P-0003", value)
	})

	t.Run("collects source failures", func(t *testing.T) {
		repo := new(mockIdentifierRepo)
		reader := new(mockLegacyReader)
		reader.On("ListValues", ctx, "bookings", "code").Return(nil, errors.New("relation does not exist"))

		svc := NewService(repo, reader, zap.NewNop(), DefaultServiceConfig())
		result, err := svc.RegisterLegacy(ctx, []identifier.LegacySource{
			{EntityType: identifier.EntityBooking},
			{EntityType: identifier.EntityType("unknown"), Collection: "unknown"},
		})

		require.NoError(t, err)
		assert.Len(t, result.Errors, 2)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("requires a reader", func(t *testing.T) {
		svc := NewService(new(mockIdentifierRepo), nil, zap.NewNop(), DefaultServiceConfig())
		_, err := svc.RegisterLegacy(ctx, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})
}
