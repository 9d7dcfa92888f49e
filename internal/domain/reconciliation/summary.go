package reconciliation

import (
	"time"

	"github.com/estatehub/backend/internal/domain/revenue"
	"github.com/google/uuid"
)

// EntityCounts tallies one entity type inside a pass
type EntityCounts struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// PassSummary is what a pass reports back to its caller
type PassSummary struct {
	RunID      uuid.UUID              `json:"run_id"`
	Kind       Kind                   `json:"kind"`
	Trigger    Trigger                `json:"trigger"`
	State      State                  `json:"state"`
	StartedAt  *time.Time             `json:"started_at,omitempty"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
	Leases     EntityCounts           `json:"leases"`
	Invoices   EntityCounts           `json:"invoices"`
	Listings   EntityCounts           `json:"listings"`
	Revenue    []revenue.BatchResult  `json:"revenue,omitempty"`
	Backlog    *revenue.BacklogResult `json:"backlog,omitempty"`
	Errors     []ItemError            `json:"errors"`
	Message    string                 `json:"message,omitempty"`
}

// Summarize copies the run's outcome into s
func (s *PassSummary) Summarize(run *Run) {
	s.RunID = run.ID
	s.Kind = run.Kind
	s.Trigger = run.Trigger
	s.State = run.State
	s.StartedAt = run.StartedAt
	s.FinishedAt = run.FinishedAt
	s.DurationMs = run.Duration().Milliseconds()
	s.Errors = run.Errors
	s.Message = run.Message
	if s.Errors == nil {
		s.Errors = []ItemError{}
	}
}
