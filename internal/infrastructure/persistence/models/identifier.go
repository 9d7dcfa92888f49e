package models

import (
	"time"

	"github.com/estatehub/backend/internal/domain/identifier"
	"github.com/google/uuid"
)

// IdentifierRecordModel is the persistence model for a registry entry.
// The unique index on value is the final guard against double issuance.
type IdentifierRecordModel struct {
	ID         uuid.UUID             `gorm:"type:uuid;primary_key"`
	Value      string                `gorm:"type:varchar(64);not null;uniqueIndex:idx_identifier_records_value"`
	EntityType identifier.EntityType `gorm:"type:varchar(40);not null;index"`
	Collection string                `gorm:"type:varchar(100);not null"`
	FieldPath  string                `gorm:"type:varchar(100);not null"`
	Status     identifier.Status     `gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt  time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IdentifierRecordModel) TableName() string {
	return "identifier_records"
}

// ToDomain converts the persistence model to a domain Record
func (m *IdentifierRecordModel) ToDomain() *identifier.Record {
	return &identifier.Record{
		ID:         m.ID,
		Value:      m.Value,
		EntityType: m.EntityType,
		Collection: m.Collection,
		FieldPath:  m.FieldPath,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
	}
}

// IdentifierRecordModelFromDomain creates a persistence model from a domain Record
func IdentifierRecordModelFromDomain(r *identifier.Record) *IdentifierRecordModel {
	return &IdentifierRecordModel{
		ID:         r.ID,
		Value:      r.Value,
		EntityType: r.EntityType,
		Collection: r.Collection,
		FieldPath:  r.FieldPath,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
	}
}
