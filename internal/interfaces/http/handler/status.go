package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/estatehub/backend/internal/domain/invoice"
	"github.com/estatehub/backend/internal/domain/lease"
	"github.com/estatehub/backend/internal/domain/listing"
	"github.com/estatehub/backend/internal/interfaces/http/dto"
)

// StatusService re-derives the status of a single entity on demand
type StatusService interface {
	ReconcileLease(ctx context.Context, id uuid.UUID) (*lease.Lease, error)
	ReconcileInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error)
	DeriveListingStatus(ctx context.Context, id uuid.UUID) (*listing.Listing, error)
}

// StatusHandler exposes on-demand status derivation
type StatusHandler struct {
	BaseHandler
	service StatusService
}

// NewStatusHandler creates a StatusHandler
func NewStatusHandler(service StatusService) *StatusHandler {
	return &StatusHandler{service: service}
}

// Lease handles POST /leases/:id/status
func (h *StatusHandler) Lease(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	l, err := h.service.ReconcileLease(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.ToLeaseResponse(l))
}

// Invoice handles POST /invoices/:id/status
func (h *StatusHandler) Invoice(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	inv, err := h.service.ReconcileInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.ToInvoiceResponse(inv))
}

// Listing handles POST /listings/:id/status
func (h *StatusHandler) Listing(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	l, err := h.service.DeriveListingStatus(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.ToListingResponse(l))
}
