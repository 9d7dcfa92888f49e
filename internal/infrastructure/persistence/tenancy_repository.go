package persistence

import (
	"context"
	"errors"

	"github.com/estatehub/backend/internal/domain/invoice"
	"github.com/estatehub/backend/internal/domain/lease"
	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/estatehub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLeaseRepository implements lease.Repository using GORM
type GormLeaseRepository struct {
	db *gorm.DB
}

// NewGormLeaseRepository creates a new GormLeaseRepository
func NewGormLeaseRepository(db *gorm.DB) *GormLeaseRepository {
	return &GormLeaseRepository{db: db}
}

// FindByID finds a lease by its ID
func (r *GormLeaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*lease.Lease, error) {
	var model models.LeaseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindNonTerminal returns leases that have not expired, including rows
// with no status yet
func (r *GormLeaseRepository) FindNonTerminal(ctx context.Context) ([]lease.Lease, error) {
	var rows []models.LeaseModel
	if err := r.db.WithContext(ctx).
		Where("status IS NULL OR status <> ?", lease.StatusExpired).
		Order("created_at, id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]lease.Lease, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// UpdateStatus writes only the derived status columns
func (r *GormLeaseRepository) UpdateStatus(ctx context.Context, l *lease.Lease) error {
	return updateStatusColumns(ctx, r.db, &models.LeaseModel{}, l.ID, map[string]any{
		"status":             l.Status,
		"last_status_update": l.LastStatusUpdate,
		"updated_at":         l.UpdatedAt,
	})
}

// Create inserts a lease
func (r *GormLeaseRepository) Create(ctx context.Context, l *lease.Lease) error {
	return r.db.WithContext(ctx).Create(models.LeaseModelFromDomain(l)).Error
}

// GormInvoiceRepository implements invoice.Repository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnpaid returns every invoice whose status is not Paid
func (r *GormInvoiceRepository) FindUnpaid(ctx context.Context) ([]invoice.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("status <> ?", invoice.StatusPaid).
		Order("created_at, id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]invoice.Invoice, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// UpdateStatus writes the derived status columns. The status guard keeps a
// concurrent payment from being overwritten by date logic.
func (r *GormInvoiceRepository) UpdateStatus(ctx context.Context, inv *invoice.Invoice) error {
	q := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("id = ?", inv.ID)
	if inv.Status != invoice.StatusPaid {
		q = q.Where("status <> ?", invoice.StatusPaid)
	}
	result := q.Updates(map[string]any{
		"status":             inv.Status,
		"description":        inv.Description,
		"paid_date":          inv.PaidDate,
		"last_status_update": inv.LastStatusUpdate,
		"updated_at":         inv.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.Wrap("invoice "+inv.Code+" was paid or removed concurrently", nil)
	}
	return nil
}

// Create inserts an invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	return r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(inv)).Error
}
