// Package reconciliation models one execution of a reconciliation pass.
package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/estatehub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Kind identifies which pass a run executed
type Kind string

const (
	KindDaily          Kind = "daily"
	KindMonthlyRevenue Kind = "monthly_revenue"
	KindBacklog        Kind = "historical_backlog"
)

// IsValid checks if the kind is known
func (k Kind) IsValid() bool {
	switch k {
	case KindDaily, KindMonthlyRevenue, KindBacklog:
		return true
	}
	return false
}

// State of a run: Idle -> Running -> {Completed, PartiallyFailed, Failed}
type State string

const (
	StateIdle            State = "Idle"
	StateRunning         State = "Running"
	StateCompleted       State = "Completed"
	StatePartiallyFailed State = "PartiallyFailed"
	// StateFailed marks a pass that could not enumerate its work at all.
	StateFailed State = "Failed"
)

// IsTerminal reports whether the run has finished
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StatePartiallyFailed || s == StateFailed
}

// Trigger records what started the run
type Trigger string

const (
	TriggerCron   Trigger = "cron"
	TriggerManual Trigger = "manual"
)

// ItemError is one failed work item inside a pass
type ItemError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Error  string `json:"error"`
}

// Run is one execution of a pass
type Run struct {
	ID         uuid.UUID
	Kind       Kind
	Trigger    Trigger
	State      State
	StartedAt  *time.Time
	FinishedAt *time.Time
	Succeeded  int
	Failed     int
	Errors     []ItemError
	Message    string
}

// NewRun creates an idle run
func NewRun(kind Kind, trigger Trigger) *Run {
	return &Run{
		ID:      uuid.New(),
		Kind:    kind,
		Trigger: trigger,
		State:   StateIdle,
		Errors:  []ItemError{},
	}
}

// Start moves an idle run to Running
func (r *Run) Start(now time.Time) error {
	if r.State != StateIdle {
		return shared.ErrInvalidState.Wrap(fmt.Sprintf("run %s cannot start from %s", r.ID, r.State), nil)
	}
	r.State = StateRunning
	r.StartedAt = &now
	return nil
}

// Finish closes a running run. Any item error makes it PartiallyFailed.
func (r *Run) Finish(succeeded int, errs []ItemError, now time.Time) error {
	if r.State != StateRunning {
		return shared.ErrInvalidState.Wrap(fmt.Sprintf("run %s cannot finish from %s", r.ID, r.State), nil)
	}
	if errs == nil {
		errs = []ItemError{}
	}
	r.Succeeded = succeeded
	r.Failed = len(errs)
	r.Errors = errs
	r.FinishedAt = &now
	if len(errs) > 0 {
		r.State = StatePartiallyFailed
	} else {
		r.State = StateCompleted
	}
	return nil
}

// Abort closes a running run that could not proceed
func (r *Run) Abort(cause error, now time.Time) error {
	if r.State != StateRunning {
		return shared.ErrInvalidState.Wrap(fmt.Sprintf("run %s cannot abort from %s", r.ID, r.State), nil)
	}
	r.State = StateFailed
	r.FinishedAt = &now
	if cause != nil {
		r.Message = cause.Error()
	}
	return nil
}

// Duration returns how long the run took, zero while unfinished
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// RunRepository persists run history
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	Update(ctx context.Context, run *Run) error
	// Latest returns the most recent run of kind, or shared.ErrNotFound.
	Latest(ctx context.Context, kind Kind) (*Run, error)
	ListRecent(ctx context.Context, limit int) ([]Run, error)
}

// ErrPassInProgress is returned when a pass of the same kind is already running
var ErrPassInProgress = shared.NewDomainError("PASS_IN_PROGRESS", "A reconciliation pass of this kind is already running")

// PassLock serializes passes of one kind across processes.
type PassLock interface {
	// TryLock returns ok=false without blocking when another holder has kind.
	TryLock(ctx context.Context, kind Kind) (unlock func(context.Context) error, ok bool, err error)
}
