package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/estatehub/backend/internal/domain/reconciliation"
	"github.com/google/uuid"
)

// ItemErrors stores per-item failures of a run as JSONB
type ItemErrors []reconciliation.ItemError

// Value implements driver.Valuer interface for GORM to store as JSONB
func (e ItemErrors) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (e *ItemErrors) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*e = ItemErrors{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("failed to scan ItemErrors: unsupported type")
	}
	if len(data) == 0 {
		*e = ItemErrors{}
		return nil
	}
	return json.Unmarshal(data, e)
}

// ReconciliationRunModel records one pass execution
type ReconciliationRunModel struct {
	ID         uuid.UUID              `gorm:"type:uuid;primary_key"`
	Kind       reconciliation.Kind    `gorm:"type:varchar(40);not null;index:idx_reconciliation_runs_kind_started,priority:1"`
	Trigger    reconciliation.Trigger `gorm:"type:varchar(20);not null"`
	State      reconciliation.State   `gorm:"type:varchar(20);not null"`
	StartedAt  *time.Time             `gorm:"index:idx_reconciliation_runs_kind_started,priority:2"`
	FinishedAt *time.Time
	Succeeded  int        `gorm:"not null;default:0"`
	Failed     int        `gorm:"not null;default:0"`
	Errors     ItemErrors `gorm:"type:jsonb"`
	Message    string     `gorm:"type:text"`
	CreatedAt  time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReconciliationRunModel) TableName() string {
	return "reconciliation_runs"
}

// ToDomain converts the persistence model to a domain Run
func (m *ReconciliationRunModel) ToDomain() *reconciliation.Run {
	errs := []reconciliation.ItemError(m.Errors)
	if errs == nil {
		errs = []reconciliation.ItemError{}
	}
	return &reconciliation.Run{
		ID:         m.ID,
		Kind:       m.Kind,
		Trigger:    m.Trigger,
		State:      m.State,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		Succeeded:  m.Succeeded,
		Failed:     m.Failed,
		Errors:     errs,
		Message:    m.Message,
	}
}

// ReconciliationRunModelFromDomain creates a persistence model from a domain Run
func ReconciliationRunModelFromDomain(r *reconciliation.Run) *ReconciliationRunModel {
	return &ReconciliationRunModel{
		ID:         r.ID,
		Kind:       r.Kind,
		Trigger:    r.Trigger,
		State:      r.State,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		Errors:     ItemErrors(r.Errors),
		Message:    r.Message,
	}
}
