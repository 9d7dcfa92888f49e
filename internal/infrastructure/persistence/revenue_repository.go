package persistence

import (
	"context"
	"errors"

	"github.com/estatehub/backend/internal/domain/revenue"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/estatehub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRevenueRepository implements revenue.Repository using GORM
type GormRevenueRepository struct {
	db *gorm.DB
}

// NewGormRevenueRepository creates a new GormRevenueRepository
func NewGormRevenueRepository(db *gorm.DB) *GormRevenueRepository {
	return &GormRevenueRepository{db: db}
}

// FindByKey finds the record for (adminID, year, month)
func (r *GormRevenueRepository) FindByKey(ctx context.Context, adminID uuid.UUID, year, month int) (*revenue.MonthlyRecord, error) {
	var model models.MonthlyRevenueModel
	if err := r.db.WithContext(ctx).
		Where("admin_id = ? AND year = ? AND month = ?", adminID, year, month).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts rec. idx_monthly_revenue_key turns a racing insert into
// revenue.ErrDuplicateKey.
func (r *GormRevenueRepository) Create(ctx context.Context, rec *revenue.MonthlyRecord) error {
	err := r.db.WithContext(ctx).Create(models.MonthlyRevenueModelFromDomain(rec)).Error
	if isUniqueViolation(err) {
		return revenue.ErrDuplicateKey.Wrap("revenue record already exists", err)
	}
	return err
}

// Update overwrites the data columns of rec, located by its natural key
func (r *GormRevenueRepository) Update(ctx context.Context, rec *revenue.MonthlyRecord) error {
	result := r.db.WithContext(ctx).
		Model(&models.MonthlyRevenueModel{}).
		Where("admin_id = ? AND year = ? AND month = ?", rec.AdminID, rec.Year, rec.Month).
		Updates(map[string]any{
			"total_revenue": rec.TotalRevenue,
			"booking_count": rec.BookingCount,
			"bookings":      models.BookingDetails(rec.Bookings),
			"calculated_at": rec.CalculatedAt,
			"updated_at":    rec.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByAdmin returns a year of records, or one month when month is set
func (r *GormRevenueRepository) FindByAdmin(ctx context.Context, adminID uuid.UUID, year int, month *int) ([]revenue.MonthlyRecord, error) {
	q := r.db.WithContext(ctx).Where("admin_id = ? AND year = ?", adminID, year)
	if month != nil {
		q = q.Where("month = ?", *month)
	}
	var rows []models.MonthlyRevenueModel
	if err := q.Order("month").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMonthlyRecords(rows), nil
}

// FindRange returns records with from <= (year, month) <= to
func (r *GormRevenueRepository) FindRange(ctx context.Context, adminID uuid.UUID, from, to shared.Period) ([]revenue.MonthlyRecord, error) {
	var rows []models.MonthlyRevenueModel
	err := r.db.WithContext(ctx).
		Where("admin_id = ?", adminID).
		Where("year * 100 + month BETWEEN ? AND ?", from.Year*100+from.Month, to.Year*100+to.Month).
		Order("year, month").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toMonthlyRecords(rows), nil
}

func toMonthlyRecords(rows []models.MonthlyRevenueModel) []revenue.MonthlyRecord {
	out := make([]revenue.MonthlyRecord, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}
