package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/estatehub/backend/internal/domain/booking"
	"github.com/estatehub/backend/internal/domain/listing"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/estatehub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormListingRepository implements listing.Repository using GORM
type GormListingRepository struct {
	db *gorm.DB
}

// NewGormListingRepository creates a new GormListingRepository
func NewGormListingRepository(db *gorm.DB) *GormListingRepository {
	return &GormListingRepository{db: db}
}

// FindByID finds a listing by its ID
func (r *GormListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	var model models.ListingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every listing ordered by creation
func (r *GormListingRepository) FindAll(ctx context.Context) ([]listing.Listing, error) {
	var rows []models.ListingModel
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toListings(rows), nil
}

// FindByLandlord returns the listings owned by landlordID
func (r *GormListingRepository) FindByLandlord(ctx context.Context, landlordID uuid.UUID) ([]listing.Listing, error) {
	var rows []models.ListingModel
	if err := r.db.WithContext(ctx).
		Where("landlord_id = ?", landlordID).
		Order("created_at, id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toListings(rows), nil
}

// UpdateStatus writes only the derived status columns
func (r *GormListingRepository) UpdateStatus(ctx context.Context, l *listing.Listing) error {
	return updateStatusColumns(ctx, r.db, &models.ListingModel{}, l.ID, map[string]any{
		"status":             l.Status,
		"last_status_update": l.LastStatusUpdate,
		"updated_at":         l.UpdatedAt,
	})
}

// Create inserts a listing
func (r *GormListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	return r.db.WithContext(ctx).Create(models.ListingModelFromDomain(l)).Error
}

func toListings(rows []models.ListingModel) []listing.Listing {
	out := make([]listing.Listing, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

// GormBookingRepository implements booking.Repository using GORM
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByListingRefs matches listing_ref against every representation in
// refs with a single IN query.
func (r *GormBookingRepository) FindByListingRefs(ctx context.Context, refs []string) ([]booking.Booking, error) {
	if len(refs) == 0 {
		return []booking.Booking{}, nil
	}
	var rows []models.BookingModel
	if err := r.db.WithContext(ctx).
		Where("listing_ref IN ?", refs).
		Order("created_at, id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]booking.Booking, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// ListCheckInDates returns every stored check-in date string
func (r *GormBookingRepository) ListCheckInDates(ctx context.Context) ([]string, error) {
	var dates []string
	if err := r.db.WithContext(ctx).
		Model(&models.BookingModel{}).
		Distinct().
		Pluck("check_in_date", &dates).Error; err != nil {
		return nil, err
	}
	return dates, nil
}

// GormTicketRepository implements listing.TicketRepository using GORM
type GormTicketRepository struct {
	db *gorm.DB
}

// NewGormTicketRepository creates a new GormTicketRepository
func NewGormTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

// FindByListingRefs returns tickets pointing at any of refs
func (r *GormTicketRepository) FindByListingRefs(ctx context.Context, refs []string) ([]listing.MaintenanceTicket, error) {
	if len(refs) == 0 {
		return []listing.MaintenanceTicket{}, nil
	}
	var rows []models.MaintenanceTicketModel
	if err := r.db.WithContext(ctx).Where("listing_ref IN ?", refs).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]listing.MaintenanceTicket, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// GormLandlordDirectory implements revenue.LandlordDirectory using GORM
type GormLandlordDirectory struct {
	db *gorm.DB
}

// NewGormLandlordDirectory creates a new GormLandlordDirectory
func NewGormLandlordDirectory(db *gorm.DB) *GormLandlordDirectory {
	return &GormLandlordDirectory{db: db}
}

// ListWithListings returns active landlords that own at least one listing
func (d *GormLandlordDirectory) ListWithListings(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := d.db.WithContext(ctx).
		Model(&models.LandlordModel{}).
		Where("active = ?", true).
		Where("EXISTS (SELECT 1 FROM listings WHERE listings.landlord_id = landlords.id)").
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func updateStatusColumns(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, cols map[string]any) error {
	if ts, ok := cols["updated_at"].(time.Time); ok && ts.IsZero() {
		cols["updated_at"] = time.Now()
	}
	result := db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
