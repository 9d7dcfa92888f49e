package persistence

import (
	"context"
	"fmt"
	"regexp"

	"github.com/estatehub/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var sqlIdentPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// GormLegacyReader implements identifier.LegacyReader using GORM
type GormLegacyReader struct {
	db *gorm.DB
}

// NewGormLegacyReader creates a new GormLegacyReader
func NewGormLegacyReader(db *gorm.DB) *GormLegacyReader {
	return &GormLegacyReader{db: db}
}

// ListValues returns distinct non-empty values of collection.field
func (r *GormLegacyReader) ListValues(ctx context.Context, collection, field string) ([]string, error) {
	if !sqlIdentPattern.MatchString(collection) || !sqlIdentPattern.MatchString(field) {
		return nil, shared.ErrInvalidInput.Wrap(fmt.Sprintf("invalid legacy source %s.%s", collection, field), nil)
	}
	var values []string
	err := r.db.WithContext(ctx).
		Table(collection).
		Where(clause.Neq{Column: clause.Column{Name: field}, Value: ""}).
		Distinct().
		Order(clause.OrderByColumn{Column: clause.Column{Name: field}}).
		Pluck(field, &values).Error
	if err != nil {
		return nil, err
	}
	return values, nil
}
