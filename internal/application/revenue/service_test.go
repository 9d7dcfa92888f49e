package revenue

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/estatehub/backend/internal/domain/booking"
	"github.com/estatehub/backend/internal/domain/revenue"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/estatehub/backend/internal/infrastructure/cache"
	"github.com/estatehub/backend/internal/infrastructure/config"
	"github.com/estatehub/backend/internal/infrastructure/persistence"
	"github.com/estatehub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fixedNow is 15-04-2024, so the current trend month is 2024-04.
var fixedNow = time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	listings *persistence.GormListingRepository
	bookings booking.Repository
	records  *persistence.GormRevenueRepository
	admins   *persistence.GormLandlordDirectory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &fixture{
		db:       db.DB,
		listings: persistence.NewGormListingRepository(db.DB),
		bookings: persistence.NewGormBookingRepository(db.DB),
		records:  persistence.NewGormRevenueRepository(db.DB),
		admins:   persistence.NewGormLandlordDirectory(db.DB),
	}
}

func (f *fixture) service(opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(f.listings, f.bookings, f.records, f.admins, zap.NewNop(), DefaultServiceConfig(), opts...)
}

func (f *fixture) landlord(t *testing.T) uuid.UUID {
	t.Helper()
	m := &models.LandlordModel{Name: "Landlord", Email: uuid.NewString() + "@example.com", Active: true}
	m.ID = uuid.New()
	require.NoError(t, f.db.Create(m).Error)
	return m.ID
}

func (f *fixture) listing(t *testing.T, landlordID uuid.UUID, code string) *models.ListingModel {
	t.Helper()
	m := &models.ListingModel{Code: code, LandlordID: landlordID, Title: "Flat " + code, Address: code + " Quay Road", Status: "Vacant"}
	m.ID = uuid.New()
	m.CreatedAt = fixedNow
	m.UpdatedAt = fixedNow
	require.NoError(t, f.db.Create(m).Error)
	return m
}

func (f *fixture) booking(t *testing.T, listingRef, in, out, price, status string) uuid.UUID {
	t.Helper()
	m := &models.BookingModel{
		ListingRef:   listingRef,
		TenantRef:    "tenant-1",
		CheckInDate:  in,
		CheckOutDate: out,
		TotalPrice:   decimal.RequireFromString(price),
		Status:       status,
	}
	m.ID = uuid.New()
	require.NoError(t, f.db.Create(m).Error)
	return m.ID
}

// failingBookings fails lookups that touch any of the poisoned refs.
type failingBookings struct {
	booking.Repository
	poisoned []string
}

func (r *failingBookings) FindByListingRefs(ctx context.Context, refs []string) ([]booking.Booking, error) {
	for _, ref := range refs {
		if slices.Contains(r.poisoned, ref) {
			return nil, errors.New("booking store unavailable")
		}
	}
	return r.Repository.FindByListingRefs(ctx, refs)
}

func TestService_CalculateMonthlyRevenue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.landlord(t)
	flat := f.listing(t, admin, "P-0001")
	other := f.listing(t, f.landlord(t), "P-0002")

	second := f.booking(t, flat.ID.String(), "20-03-2024", "25-03-2024", "300.50", "Completed")
	first := f.booking(t, "P-0001", "02-03-2024", "06-03-2024", "200", "confirmed")
	f.booking(t, "P-0001", "10-03-2024", "12-03-2024", "999", "Cancelled")
	f.booking(t, "P-0001", "28-02-2024", "02-03-2024", "150", "Active")
	f.booking(t, "P-0001", "2024-03-15", "17-03-2024", "75", "Active")
	f.booking(t, other.ID.String(), "05-03-2024", "07-03-2024", "500", "Active")

	res, err := f.service().CalculateMonthlyRevenue(ctx, admin, 3, 2024)
	require.NoError(t, err)

	assert.Equal(t, admin, res.AdminID)
	assert.Equal(t, 2024, res.Year)
	assert.Equal(t, 3, res.Month)
	assert.Equal(t, 2, res.BookingCount)
	assert.True(t, decimal.RequireFromString("500.50").Equal(res.TotalRevenue), res.TotalRevenue.String())
	require.Len(t, res.Bookings, 2)
	assert.Equal(t, first, res.Bookings[0].BookingID)
	assert.Equal(t, second, res.Bookings[1].BookingID)
	assert.Equal(t, flat.ID, res.Bookings[0].ListingID)
	assert.Equal(t, "Flat P-0001", res.Bookings[0].ListingTitle)
	assert.Equal(t, "P-0001 Quay Road", res.Bookings[1].ListingAddress)
}

func TestService_CalculateMonthlyRevenue_NoListings(t *testing.T) {
	f := newFixture(t)
	res, err := f.service().CalculateMonthlyRevenue(context.Background(), f.landlord(t), 1, 2024)
	require.NoError(t, err)
	assert.True(t, res.IsZero())
	assert.NotNil(t, res.Bookings)
}

func TestService_CalculateMonthlyRevenue_InvalidMonth(t *testing.T) {
	f := newFixture(t)
	_, err := f.service().CalculateMonthlyRevenue(context.Background(), uuid.New(), 13, 2024)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestService_StoreMonthlyRevenue_Upsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()
	admin := uuid.New()
	period := shared.Period{Year: 2024, Month: 3}

	firstRes := revenue.NewResult(admin, period, []revenue.BookingDetail{
		{BookingID: uuid.New(), TotalPrice: decimal.NewFromInt(100), Status: "active"},
	}, fixedNow)
	secondRes := revenue.NewResult(admin, period, []revenue.BookingDetail{
		{BookingID: uuid.New(), TotalPrice: decimal.NewFromInt(250), Status: "completed"},
		{BookingID: uuid.New(), TotalPrice: decimal.NewFromInt(50), Status: "active"},
	}, fixedNow.Add(time.Hour))

	stored, err := svc.StoreMonthlyRevenue(ctx, firstRes)
	require.NoError(t, err)
	again, err := svc.StoreMonthlyRevenue(ctx, secondRes)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, again.ID)

	var count int64
	require.NoError(t, f.db.Model(&models.MonthlyRevenueModel{}).Where("admin_id = ?", admin).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	got, err := svc.GetStoredRevenue(ctx, admin, 2024, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, decimal.NewFromInt(300).Equal(got[0].TotalRevenue))
	assert.Equal(t, 2, got[0].BookingCount)
	assert.Len(t, got[0].Bookings, 2)
}

type mockRecords struct {
	mock.Mock
}

func (m *mockRecords) FindByKey(ctx context.Context, adminID uuid.UUID, year, month int) (*revenue.MonthlyRecord, error) {
	args := m.Called(ctx, adminID, year, month)
	if rec := args.Get(0); rec != nil {
		return rec.(*revenue.MonthlyRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRecords) Create(ctx context.Context, rec *revenue.MonthlyRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockRecords) Update(ctx context.Context, rec *revenue.MonthlyRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockRecords) FindByAdmin(ctx context.Context, adminID uuid.UUID, year int, month *int) ([]revenue.MonthlyRecord, error) {
	args := m.Called(ctx, adminID, year, month)
	return args.Get(0).([]revenue.MonthlyRecord), args.Error(1)
}

func (m *mockRecords) FindRange(ctx context.Context, adminID uuid.UUID, from, to shared.Period) ([]revenue.MonthlyRecord, error) {
	args := m.Called(ctx, adminID, from, to)
	return args.Get(0).([]revenue.MonthlyRecord), args.Error(1)
}

func TestService_StoreMonthlyRevenue_LostInsertRace(t *testing.T) {
	ctx := context.Background()
	admin := uuid.New()
	res := revenue.NewResult(admin, shared.Period{Year: 2024, Month: 3}, []revenue.BookingDetail{
		{BookingID: uuid.New(), TotalPrice: decimal.NewFromInt(80)},
	}, fixedNow)
	winner := &revenue.MonthlyRecord{ID: uuid.New(), AdminID: admin, Year: 2024, Month: 3, TotalRevenue: decimal.NewFromInt(10)}

	records := new(mockRecords)
	records.On("FindByKey", ctx, admin, 2024, 3).Return(nil, shared.ErrNotFound).Once()
	records.On("Create", ctx, mock.Anything).Return(revenue.ErrDuplicateKey).Once()
	records.On("FindByKey", ctx, admin, 2024, 3).Return(winner, nil).Once()
	records.On("Update", ctx, winner).Return(nil).Once()

	svc := NewService(nil, nil, records, nil, zap.NewNop(), DefaultServiceConfig(), WithClock(func() time.Time { return fixedNow }))
	rec, err := svc.StoreMonthlyRevenue(ctx, res)

	require.NoError(t, err)
	assert.Equal(t, winner.ID, rec.ID)
	assert.True(t, decimal.NewFromInt(80).Equal(rec.TotalRevenue))
	records.AssertExpectations(t)
}

func TestService_StoreMonthlyRevenue_LookupError(t *testing.T) {
	ctx := context.Background()
	admin := uuid.New()
	boom := errors.New("connection reset")

	records := new(mockRecords)
	records.On("FindByKey", ctx, admin, 2024, 3).Return(nil, boom)

	svc := NewService(nil, nil, records, nil, zap.NewNop(), DefaultServiceConfig())
	_, err := svc.StoreMonthlyRevenue(ctx, revenue.NewResult(admin, shared.Period{Year: 2024, Month: 3}, nil, fixedNow))

	assert.ErrorIs(t, err, boom)
	records.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_GetStoredRevenue_InvalidMonth(t *testing.T) {
	f := newFixture(t)
	month := 0
	_, err := f.service().GetStoredRevenue(context.Background(), uuid.New(), 2024, &month)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestService_GetRevenueTrend(t *testing.T) {
	ctx := context.Background()

	t.Run("always twelve months ending at the current month", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service()
		admin := uuid.New()

		for _, p := range []shared.Period{{Year: 2023, Month: 5}, {Year: 2024, Month: 2}, {Year: 2023, Month: 4}} {
			_, err := svc.StoreMonthlyRevenue(ctx, revenue.NewResult(admin, p, []revenue.BookingDetail{
				{BookingID: uuid.New(), TotalPrice: decimal.NewFromInt(int64(p.Month * 100))},
			}, fixedNow))
			require.NoError(t, err)
		}

		points, err := svc.GetRevenueTrend(ctx, admin)
		require.NoError(t, err)
		require.Len(t, points, revenue.TrendMonths)
		assert.Equal(t, "2023-05", points[0].Label)
		assert.Equal(t, "2024-04", points[11].Label)
		assert.True(t, decimal.NewFromInt(500).Equal(points[0].TotalRevenue))
		assert.True(t, decimal.NewFromInt(200).Equal(points[9].TotalRevenue))
		assert.True(t, points[11].TotalRevenue.IsZero())

		empty, err := svc.GetRevenueTrend(ctx, uuid.New())
		require.NoError(t, err)
		assert.Len(t, empty, revenue.TrendMonths)
	})

	t.Run("store invalidates the cached trend", func(t *testing.T) {
		f := newFixture(t)
		l1, err := cache.NewRistrettoTrendCache(1<<20, time.Minute)
		require.NoError(t, err)
		t.Cleanup(l1.Close)
		tiered := cache.NewTieredTrendCache(l1, nil, zap.NewNop())
		svc := f.service(WithTrendCache(tiered))
		admin := uuid.New()

		points, err := svc.GetRevenueTrend(ctx, admin)
		require.NoError(t, err)
		assert.True(t, points[11].TotalRevenue.IsZero())

		_, err = svc.GetRevenueTrend(ctx, admin)
		require.NoError(t, err)
		l1Hits, _, _ := tiered.Stats()
		assert.EqualValues(t, 1, l1Hits)

		_, err = svc.StoreMonthlyRevenue(ctx, revenue.NewResult(admin, shared.Period{Year: 2024, Month: 4}, []revenue.BookingDetail{
			{BookingID: uuid.New(), TotalPrice: decimal.NewFromInt(42)},
		}, fixedNow))
		require.NoError(t, err)

		points, err = svc.GetRevenueTrend(ctx, admin)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(42).Equal(points[11].TotalRevenue))
	})
}

func TestService_ProcessAllAdminRevenue(t *testing.T) {
	ctx := context.Background()

	t.Run("one failing landlord does not stop the others", func(t *testing.T) {
		f := newFixture(t)
		good := f.landlord(t)
		bad := f.landlord(t)
		goodFlat := f.listing(t, good, "P-0001")
		badFlat := f.listing(t, bad, "P-0002")
		f.booking(t, goodFlat.ID.String(), "04-03-2024", "09-03-2024", "450", "Active")
		f.booking(t, badFlat.ID.String(), "04-03-2024", "09-03-2024", "900", "Active")

		f.bookings = &failingBookings{Repository: f.bookings, poisoned: []string{"P-0002"}}
		svc := f.service()

		res, err := svc.ProcessAllAdminRevenue(ctx, 3, 2024)
		require.NoError(t, err)

		require.Len(t, res.Errors, 1)
		assert.Equal(t, bad, res.Errors[0].AdminID)
		assert.Contains(t, res.Errors[0].Error, "booking store unavailable")
		assert.Equal(t, 1, res.ProcessedAdmins)
		assert.Equal(t, 1, res.StoredRecords)
		assert.True(t, decimal.NewFromInt(450).Equal(res.TotalRevenue))

		stored, err := f.records.FindByKey(ctx, good, 2024, 3)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(450).Equal(stored.TotalRevenue))

		_, err = f.records.FindByKey(ctx, bad, 2024, 3)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("zero months are not stored", func(t *testing.T) {
		f := newFixture(t)
		admin := f.landlord(t)
		f.listing(t, admin, "P-0001")

		res, err := f.service().ProcessAllAdminRevenue(ctx, 3, 2024)
		require.NoError(t, err)
		assert.Equal(t, 1, res.ProcessedAdmins)
		assert.Equal(t, 0, res.StoredRecords)
		assert.Empty(t, res.Errors)

		_, err = f.records.FindByKey(ctx, admin, 2024, 3)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("month that dropped to zero overwrites the stored record", func(t *testing.T) {
		f := newFixture(t)
		admin := f.landlord(t)
		f.listing(t, admin, "P-0001")
		stale := revenue.NewMonthlyRecord(&revenue.Result{
			AdminID:      admin,
			Year:         2024,
			Month:        3,
			TotalRevenue: decimal.NewFromInt(640),
			BookingCount: 2,
		}, time.Now())
		require.NoError(t, f.records.Create(ctx, stale))

		res, err := f.service().ProcessAllAdminRevenue(ctx, 3, 2024)
		require.NoError(t, err)
		assert.Equal(t, 1, res.ProcessedAdmins)
		assert.Equal(t, 1, res.StoredRecords)

		stored, err := f.records.FindByKey(ctx, admin, 2024, 3)
		require.NoError(t, err)
		assert.True(t, stored.TotalRevenue.IsZero())
		assert.Equal(t, 0, stored.BookingCount)
	})

	t.Run("rerun leaves one record per landlord and month", func(t *testing.T) {
		f := newFixture(t)
		admin := f.landlord(t)
		flat := f.listing(t, admin, "P-0001")
		f.booking(t, "P-0001", "01-03-2024", "03-03-2024", "120", "Confirmed")
		svc := f.service()

		_, err := svc.ProcessAllAdminRevenue(ctx, 3, 2024)
		require.NoError(t, err)
		f.booking(t, flat.ID.String(), "11-03-2024", "13-03-2024", "80", "Active")
		_, err = svc.ProcessAllAdminRevenue(ctx, 3, 2024)
		require.NoError(t, err)

		records, err := f.records.FindByAdmin(ctx, admin, 2024, nil)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.True(t, decimal.NewFromInt(200).Equal(records[0].TotalRevenue))
		assert.Equal(t, 2, records[0].BookingCount)
	})

	t.Run("rejects invalid month", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service().ProcessAllAdminRevenue(ctx, 0, 2024)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestService_ProcessHistoricalBacklog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.landlord(t)
	f.listing(t, admin, "P-0001")
	f.booking(t, "P-0001", "10-01-2024", "12-01-2024", "100", "Completed")
	f.booking(t, "P-0001", "03-03-2024", "05-03-2024", "60", "Active")
	f.booking(t, "P-0001", "not-a-date", "05-03-2024", "999", "Active")

	res, err := f.service().ProcessHistoricalBacklog(ctx)
	require.NoError(t, err)

	assert.Equal(t, "2024-01", res.From)
	assert.Equal(t, "2024-04", res.To)
	assert.Equal(t, 4, res.ProcessedMonths)
	assert.Equal(t, 2, res.StoredRecords)
	assert.True(t, decimal.NewFromInt(160).Equal(res.TotalRevenue))
	assert.Zero(t, res.ErrorCount)

	records, err := f.records.FindByAdmin(ctx, admin, 2024, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Month)
	assert.Equal(t, 3, records[1].Month)
}
