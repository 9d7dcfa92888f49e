package models

import (
	"time"

	"github.com/estatehub/backend/internal/domain/invoice"
	"github.com/estatehub/backend/internal/domain/lease"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaseModel is the persistence model for a lease
type LeaseModel struct {
	BaseModel
	Code             string          `gorm:"type:varchar(64);index"`
	BookingID        string          `gorm:"type:varchar(64);index"`
	Tenant           string          `gorm:"type:varchar(200)"`
	Property         string          `gorm:"type:varchar(200)"`
	StartDate        string          `gorm:"type:varchar(10);not null"`
	EndDate          string          `gorm:"type:varchar(10);not null"`
	RentAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status           lease.Status    `gorm:"type:varchar(20);index"`
	LastStatusUpdate *time.Time
}

// TableName returns the table name for GORM
func (LeaseModel) TableName() string {
	return "leases"
}

// ToDomain converts the persistence model to a domain Lease
func (m *LeaseModel) ToDomain() *lease.Lease {
	return &lease.Lease{
		BaseEntity:       m.BaseModel.ToDomain(),
		Code:             m.Code,
		BookingID:        m.BookingID,
		Tenant:           m.Tenant,
		Property:         m.Property,
		StartDate:        m.StartDate,
		EndDate:          m.EndDate,
		RentAmount:       m.RentAmount,
		Status:           m.Status,
		LastStatusUpdate: m.LastStatusUpdate,
	}
}

// LeaseModelFromDomain creates a persistence model from a domain Lease
func LeaseModelFromDomain(l *lease.Lease) *LeaseModel {
	m := &LeaseModel{
		Code:             l.Code,
		BookingID:        l.BookingID,
		Tenant:           l.Tenant,
		Property:         l.Property,
		StartDate:        l.StartDate,
		EndDate:          l.EndDate,
		RentAmount:       l.RentAmount,
		Status:           l.Status,
		LastStatusUpdate: l.LastStatusUpdate,
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	return m
}

// InvoiceModel is the persistence model for an invoice
type InvoiceModel struct {
	BaseModel
	Code             string          `gorm:"type:varchar(64);index"`
	AdminID          uuid.UUID       `gorm:"type:uuid;index"`
	LeaseRef         string          `gorm:"type:varchar(64);index"`
	Description      string          `gorm:"type:text"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DueDate          string          `gorm:"type:varchar(10);not null"`
	Status           invoice.Status  `gorm:"type:varchar(20);not null;default:'Pending';index"`
	PaidDate         *time.Time
	LastStatusUpdate *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *invoice.Invoice {
	return &invoice.Invoice{
		BaseEntity:       m.BaseModel.ToDomain(),
		Code:             m.Code,
		AdminID:          m.AdminID,
		LeaseRef:         m.LeaseRef,
		Description:      m.Description,
		Amount:           m.Amount,
		DueDate:          m.DueDate,
		Status:           m.Status,
		PaidDate:         m.PaidDate,
		LastStatusUpdate: m.LastStatusUpdate,
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *invoice.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Code:             inv.Code,
		AdminID:          inv.AdminID,
		LeaseRef:         inv.LeaseRef,
		Description:      inv.Description,
		Amount:           inv.Amount,
		DueDate:          inv.DueDate,
		Status:           inv.Status,
		PaidDate:         inv.PaidDate,
		LastStatusUpdate: inv.LastStatusUpdate,
	}
	m.FromDomainBaseEntity(inv.BaseEntity)
	return m
}
