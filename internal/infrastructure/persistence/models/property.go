package models

import (
	"time"

	"github.com/estatehub/backend/internal/domain/booking"
	"github.com/estatehub/backend/internal/domain/listing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LandlordModel is a directory entry for a landlord (admin) account
type LandlordModel struct {
	BaseModel
	Name   string `gorm:"type:varchar(200);not null"`
	Email  string `gorm:"type:varchar(200);uniqueIndex"`
	Active bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (LandlordModel) TableName() string {
	return "landlords"
}

// ListingModel is the persistence model for a listing
type ListingModel struct {
	BaseModel
	Code             string         `gorm:"type:varchar(64);index"`
	LandlordID       uuid.UUID      `gorm:"type:uuid;not null;index"`
	Title            string         `gorm:"type:varchar(200)"`
	Address          string         `gorm:"type:varchar(500)"`
	Status           listing.Status `gorm:"type:varchar(30);not null;default:'Vacant'"`
	LastStatusUpdate *time.Time
}

// TableName returns the table name for GORM
func (ListingModel) TableName() string {
	return "listings"
}

// ToDomain converts the persistence model to a domain Listing
func (m *ListingModel) ToDomain() *listing.Listing {
	return &listing.Listing{
		BaseEntity:       m.BaseModel.ToDomain(),
		Code:             m.Code,
		LandlordID:       m.LandlordID,
		Title:            m.Title,
		Address:          m.Address,
		Status:           m.Status,
		LastStatusUpdate: m.LastStatusUpdate,
	}
}

// ListingModelFromDomain creates a persistence model from a domain Listing
func ListingModelFromDomain(l *listing.Listing) *ListingModel {
	m := &ListingModel{
		Code:             l.Code,
		LandlordID:       l.LandlordID,
		Title:            l.Title,
		Address:          l.Address,
		Status:           l.Status,
		LastStatusUpdate: l.LastStatusUpdate,
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	return m
}

// BookingModel is the persistence model for a booking. Dates are stored
// as DD-MM-YYYY text exactly as the booking flow writes them.
type BookingModel struct {
	BaseModel
	Code         string          `gorm:"type:varchar(64);index"`
	ListingRef   string          `gorm:"type:varchar(64);not null;index"`
	TenantRef    string          `gorm:"type:varchar(100)"`
	CheckInDate  string          `gorm:"type:varchar(10);not null"`
	CheckOutDate string          `gorm:"type:varchar(10);not null"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status       string          `gorm:"type:varchar(30);not null"`
}

// TableName returns the table name for GORM
func (BookingModel) TableName() string {
	return "bookings"
}

// ToDomain converts the persistence model to a domain Booking
func (m *BookingModel) ToDomain() booking.Booking {
	return booking.Booking{
		ID:           m.ID,
		Code:         m.Code,
		ListingRef:   m.ListingRef,
		TenantRef:    m.TenantRef,
		CheckInDate:  m.CheckInDate,
		CheckOutDate: m.CheckOutDate,
		TotalPrice:   m.TotalPrice,
		Status:       m.Status,
	}
}

// MaintenanceTicketModel is the persistence model for a maintenance ticket
type MaintenanceTicketModel struct {
	BaseModel
	Code       string `gorm:"type:varchar(64);index"`
	ListingRef string `gorm:"type:varchar(64);not null;index"`
	Summary    string `gorm:"type:varchar(500)"`
	Status     string `gorm:"type:varchar(30);not null"`
}

// TableName returns the table name for GORM
func (MaintenanceTicketModel) TableName() string {
	return "maintenance_tickets"
}

// ToDomain converts the persistence model to a domain MaintenanceTicket
func (m *MaintenanceTicketModel) ToDomain() listing.MaintenanceTicket {
	return listing.MaintenanceTicket{
		ID:         m.ID,
		ListingRef: m.ListingRef,
		Status:     m.Status,
	}
}
