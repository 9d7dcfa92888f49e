package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/estatehub/backend/internal/domain/reconciliation"
	"github.com/estatehub/backend/internal/infrastructure/scheduler"
	"github.com/estatehub/backend/internal/interfaces/http/dto"
)

const defaultRecentRuns = 20

// PassTrigger starts passes outside their cron cadence
type PassTrigger interface {
	TriggerManual(ctx context.Context, kind reconciliation.Kind) (*reconciliation.PassSummary, error)
	GetStatus() scheduler.Status
}

// RunHistory reads recorded pass executions
type RunHistory interface {
	LatestRuns(ctx context.Context) (map[reconciliation.Kind]*reconciliation.Run, error)
	RecentRuns(ctx context.Context, limit int) ([]reconciliation.Run, error)
}

// ReconciliationStatusResponse combines scheduler state and run history
type ReconciliationStatusResponse struct {
	Scheduler scheduler.Status                         `json:"scheduler"`
	Latest    map[reconciliation.Kind]dto.RunResponse `json:"latest"`
	Recent    []dto.RunResponse                        `json:"recent"`
}

// ReconciliationHandler runs passes on demand and reports their history
type ReconciliationHandler struct {
	BaseHandler
	trigger PassTrigger
	history RunHistory
}

// NewReconciliationHandler creates a ReconciliationHandler
func NewReconciliationHandler(trigger PassTrigger, history RunHistory) *ReconciliationHandler {
	return &ReconciliationHandler{trigger: trigger, history: history}
}

// RunDaily handles POST /reconciliation/daily
func (h *ReconciliationHandler) RunDaily(c *gin.Context) {
	h.run(c, reconciliation.KindDaily)
}

// RunRevenue handles POST /reconciliation/revenue
func (h *ReconciliationHandler) RunRevenue(c *gin.Context) {
	h.run(c, reconciliation.KindMonthlyRevenue)
}

// RunBacklog handles POST /reconciliation/backlog
func (h *ReconciliationHandler) RunBacklog(c *gin.Context) {
	h.run(c, reconciliation.KindBacklog)
}

// run executes the pass synchronously. The pass is detached from the
// request so a dropped client does not abort it halfway; the pass timeout
// still bounds it. A pass that ran reports its summary even when it failed.
func (h *ReconciliationHandler) run(c *gin.Context, kind reconciliation.Kind) {
	ctx := context.WithoutCancel(c.Request.Context())
	summary, err := h.trigger.TriggerManual(ctx, kind)
	if err != nil && (summary == nil || errors.Is(err, reconciliation.ErrPassInProgress)) {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, summary)
}

// Status handles GET /reconciliation/status?limit=
func (h *ReconciliationHandler) Status(c *gin.Context) {
	var q dto.RunsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultRecentRuns
	}

	ctx := c.Request.Context()
	latest, err := h.history.LatestRuns(ctx)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	recent, err := h.history.RecentRuns(ctx, q.Limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := ReconciliationStatusResponse{
		Scheduler: h.trigger.GetStatus(),
		Latest:    make(map[reconciliation.Kind]dto.RunResponse, len(latest)),
		Recent:    make([]dto.RunResponse, 0, len(recent)),
	}
	for kind, run := range latest {
		resp.Latest[kind] = dto.ToRunResponse(run)
	}
	for i := range recent {
		resp.Recent = append(resp.Recent, dto.ToRunResponse(&recent[i]))
	}
	h.Success(c, resp)
}
