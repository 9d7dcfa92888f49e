package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/estatehub/backend/internal/domain/identifier"
	"github.com/estatehub/backend/internal/interfaces/http/dto"
)

// IdentifierService is the registry as seen by the HTTP layer
type IdentifierService interface {
	Issue(ctx context.Context, entityType identifier.EntityType, prefix string) (string, error)
	Retire(ctx context.Context, value string) error
	Exists(ctx context.Context, value string) (bool, error)
}

// IdentifierHandler serves the identifier registry
type IdentifierHandler struct {
	BaseHandler
	service IdentifierService
}

// NewIdentifierHandler creates an IdentifierHandler
func NewIdentifierHandler(service IdentifierService) *IdentifierHandler {
	return &IdentifierHandler{service: service}
}

// Issue handles POST /identifiers
func (h *IdentifierHandler) Issue(c *gin.Context) {
	var req dto.IssueIdentifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entityType := identifier.EntityType(req.EntityType)
	value, err := h.service.Issue(c.Request.Context(), entityType, req.Prefix)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, dto.IdentifierResponse{Value: value, EntityType: req.EntityType})
}

// Exists handles GET /identifiers/:value
func (h *IdentifierHandler) Exists(c *gin.Context) {
	value := c.Param("value")
	exists, err := h.service.Exists(c.Request.Context(), value)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.ExistsResponse{Value: value, Exists: exists})
}

// Retire handles DELETE /identifiers/:value. The value stays reserved.
func (h *IdentifierHandler) Retire(c *gin.Context) {
	if err := h.service.Retire(c.Request.Context(), c.Param("value")); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}
