package persistence

import (
	"testing"
	"time"

	"github.com/estatehub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedLandlord(t *testing.T, db *gorm.DB, active bool) uuid.UUID {
	t.Helper()
	m := &models.LandlordModel{Name: "Landlord", Email: uuid.NewString() + "@example.com", Active: active}
	m.ID = uuid.New()
	require.NoError(t, db.Create(m).Error)
	if !active {
		require.NoError(t, db.Model(m).Update("active", false).Error)
	}
	return m.ID
}

func seedListing(t *testing.T, db *gorm.DB, landlordID uuid.UUID, code string) *models.ListingModel {
	t.Helper()
	m := &models.ListingModel{Code: code, LandlordID: landlordID, Title: "Flat " + code, Address: code + " High Street", Status: "Vacant"}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	require.NoError(t, db.Create(m).Error)
	return m
}

func seedBooking(t *testing.T, db *gorm.DB, listingRef, in, out, price, status string) *models.BookingModel {
	t.Helper()
	m := &models.BookingModel{
		ListingRef:   listingRef,
		TenantRef:    "tenant-" + listingRef,
		CheckInDate:  in,
		CheckOutDate: out,
		TotalPrice:   decimal.RequireFromString(price),
		Status:       status,
	}
	m.ID = uuid.New()
	require.NoError(t, db.Create(m).Error)
	return m
}
