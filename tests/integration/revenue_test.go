//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	revenueapp "github.com/estatehub/backend/internal/application/revenue"
	"github.com/estatehub/backend/internal/infrastructure/persistence"
	"github.com/estatehub/backend/internal/infrastructure/persistence/models"
)

func seedPortfolio(t *testing.T, tdb *TestDB) uuid.UUID {
	t.Helper()
	landlord := &models.LandlordModel{Name: "Owner", Email: uuid.NewString() + "@example.com", Active: true}
	landlord.ID = uuid.New()
	require.NoError(t, tdb.DB.Create(landlord).Error)

	listing := &models.ListingModel{Code: "LS0001", LandlordID: landlord.ID, Title: "Loft", Status: "Vacant"}
	listing.ID = uuid.New()
	require.NoError(t, tdb.DB.Create(listing).Error)

	bookings := []struct {
		ref, in, out, price, status string
	}{
		{listing.ID.String(), "03-03-2024", "10-03-2024", "700.00", "confirmed"},
		{listing.ID.String(), "20-03-2024", "25-03-2024", "300.50", "completed"},
		{listing.ID.String(), "21-03-2024", "22-03-2024", "90.00", "cancelled"},
		{listing.ID.String(), "01-04-2024", "05-04-2024", "400.00", "active"},
	}
	for _, b := range bookings {
		m := &models.BookingModel{
			ListingRef: b.ref, TenantRef: "tenant", CheckInDate: b.in, CheckOutDate: b.out,
			TotalPrice: decimal.RequireFromString(b.price), Status: b.status,
		}
		m.ID = uuid.New()
		require.NoError(t, tdb.DB.Create(m).Error)
	}
	return landlord.ID
}

func newRevenueService(tdb *TestDB) *revenueapp.Service {
	return revenueapp.NewService(
		persistence.NewGormListingRepository(tdb.DB),
		persistence.NewGormBookingRepository(tdb.DB),
		persistence.NewGormRevenueRepository(tdb.DB),
		persistence.NewGormLandlordDirectory(tdb.DB),
		zap.NewNop(),
		revenueapp.ServiceConfig{Location: time.UTC, MaxConcurrency: 4},
		revenueapp.WithClock(func() time.Time { return time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC) }),
	)
}

func TestRevenue_ProcessAllAdminRevenueUpserts(t *testing.T) {
	tdb := NewTestDB(t)
	adminID := seedPortfolio(t, tdb)
	svc := newRevenueService(tdb)
	ctx := context.Background()

	for range 2 {
		batch, err := svc.ProcessAllAdminRevenue(ctx, 3, 2024)
		require.NoError(t, err)
		assert.Equal(t, 1, batch.ProcessedAdmins)
		assert.Empty(t, batch.Errors)
	}

	assert.EqualValues(t, 1, tdb.Count(t, "monthly_revenue"))
	month := 3
	records, err := svc.GetStoredRevenue(ctx, adminID, 2024, &month)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].BookingCount)
	assert.True(t, records[0].TotalRevenue.Equal(decimal.RequireFromString("1000.50")),
		records[0].TotalRevenue.String())
}

func TestRevenue_ConcurrentStoreKeepsOneRow(t *testing.T) {
	tdb := NewTestDB(t)
	adminID := seedPortfolio(t, tdb)
	svc := newRevenueService(tdb)
	ctx := context.Background()

	result, err := svc.CalculateMonthlyRevenue(ctx, adminID, 4, 2024)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.StoreMonthlyRevenue(ctx, result)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, tdb.Count(t, "monthly_revenue"))
}
