package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/estatehub/backend/internal/domain/revenue"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingDetails stores revenue.BookingDetail slices as JSONB
type BookingDetails []revenue.BookingDetail

// Value implements driver.Valuer interface for GORM to store as JSONB
func (b BookingDetails) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (b *BookingDetails) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*b = BookingDetails{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("failed to scan BookingDetails: unsupported type")
	}
	if len(data) == 0 {
		*b = BookingDetails{}
		return nil
	}
	return json.Unmarshal(data, b)
}

// MonthlyRevenueModel is the materialized revenue of one landlord for one
// month. idx_monthly_revenue_key backs the upsert.
type MonthlyRevenueModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	AdminID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_monthly_revenue_key,priority:1"`
	Year         int             `gorm:"not null;uniqueIndex:idx_monthly_revenue_key,priority:2"`
	Month        int             `gorm:"not null;uniqueIndex:idx_monthly_revenue_key,priority:3"`
	TotalRevenue decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	BookingCount int             `gorm:"not null;default:0"`
	Bookings     BookingDetails  `gorm:"type:jsonb"`
	CalculatedAt time.Time       `gorm:"not null"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MonthlyRevenueModel) TableName() string {
	return "monthly_revenue"
}

// ToDomain converts the persistence model to a domain MonthlyRecord
func (m *MonthlyRevenueModel) ToDomain() *revenue.MonthlyRecord {
	bookings := []revenue.BookingDetail(m.Bookings)
	if bookings == nil {
		bookings = []revenue.BookingDetail{}
	}
	return &revenue.MonthlyRecord{
		ID:           m.ID,
		AdminID:      m.AdminID,
		Year:         m.Year,
		Month:        m.Month,
		TotalRevenue: m.TotalRevenue,
		BookingCount: m.BookingCount,
		Bookings:     bookings,
		CalculatedAt: m.CalculatedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// MonthlyRevenueModelFromDomain creates a persistence model from a domain MonthlyRecord
func MonthlyRevenueModelFromDomain(r *revenue.MonthlyRecord) *MonthlyRevenueModel {
	return &MonthlyRevenueModel{
		ID:           r.ID,
		AdminID:      r.AdminID,
		Year:         r.Year,
		Month:        r.Month,
		TotalRevenue: r.TotalRevenue,
		BookingCount: r.BookingCount,
		Bookings:     BookingDetails(r.Bookings),
		CalculatedAt: r.CalculatedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
