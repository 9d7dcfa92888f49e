package persistence

import (
	"context"
	"errors"

	"github.com/estatehub/backend/internal/domain/identifier"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/estatehub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormIdentifierRepository implements identifier.Repository using GORM
type GormIdentifierRepository struct {
	db *gorm.DB
}

// NewGormIdentifierRepository creates a new GormIdentifierRepository
func NewGormIdentifierRepository(db *gorm.DB) *GormIdentifierRepository {
	return &GormIdentifierRepository{db: db}
}

// ListValues returns every registered value, retired included, that starts
// with prefix + "-"
func (r *GormIdentifierRepository) ListValues(ctx context.Context, prefix string) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).
		Model(&models.IdentifierRecordModel{}).
		Where("value LIKE ?", prefix+"-%").
		Pluck("value", &values).Error
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Exists reports whether value is registered in any status
func (r *GormIdentifierRepository) Exists(ctx context.Context, value string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.IdentifierRecordModel{}).
		Where("value = ?", value).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByValue finds a record by its value
func (r *GormIdentifierRepository) FindByValue(ctx context.Context, value string) (*identifier.Record, error) {
	var model models.IdentifierRecordModel
	if err := r.db.WithContext(ctx).Where("value = ?", value).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a record. A taken value yields identifier.ErrDuplicateValue.
func (r *GormIdentifierRepository) Create(ctx context.Context, record *identifier.Record) error {
	err := r.db.WithContext(ctx).Create(models.IdentifierRecordModelFromDomain(record)).Error
	if isUniqueViolation(err) {
		return identifier.ErrDuplicateValue.Wrap("identifier "+record.Value+" is already registered", err)
	}
	return err
}

// Save updates an existing record
func (r *GormIdentifierRepository) Save(ctx context.Context, record *identifier.Record) error {
	result := r.db.WithContext(ctx).
		Model(&models.IdentifierRecordModel{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{"status": record.Status})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
