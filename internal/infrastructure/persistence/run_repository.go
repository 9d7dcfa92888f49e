package persistence

import (
	"context"
	"errors"

	"github.com/estatehub/backend/internal/domain/reconciliation"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/estatehub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRunRepository implements reconciliation.RunRepository using GORM
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Create records a new run
func (r *GormRunRepository) Create(ctx context.Context, run *reconciliation.Run) error {
	return r.db.WithContext(ctx).Create(models.ReconciliationRunModelFromDomain(run)).Error
}

// Update saves the run's current state
func (r *GormRunRepository) Update(ctx context.Context, run *reconciliation.Run) error {
	m := models.ReconciliationRunModelFromDomain(run)
	return r.db.WithContext(ctx).
		Model(&models.ReconciliationRunModel{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"state":       m.State,
			"started_at":  m.StartedAt,
			"finished_at": m.FinishedAt,
			"succeeded":   m.Succeeded,
			"failed":      m.Failed,
			"errors":      m.Errors,
			"message":     m.Message,
		}).Error
}

// Latest returns the most recent run of kind
func (r *GormRunRepository) Latest(ctx context.Context, kind reconciliation.Kind) (*reconciliation.Run, error) {
	var model models.ReconciliationRunModel
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListRecent returns the latest runs across kinds, newest first
func (r *GormRunRepository) ListRecent(ctx context.Context, limit int) ([]reconciliation.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.ReconciliationRunModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]reconciliation.Run, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}
