package handler

import (
	"github.com/gin-gonic/gin"
	analyticsapp "github.com/kpiplatform/backend/internal/application/analytics"
)

// EntityHandler manages reporting entities (headquarters and branches)
type EntityHandler struct {
	BaseHandler
	reportService *analyticsapp.ReportService
}

// NewEntityHandler creates a new EntityHandler
func NewEntityHandler(reportService *analyticsapp.ReportService) *EntityHandler {
	return &EntityHandler{reportService: reportService}
}

// List returns every entity, headquarters first
func (h *EntityHandler) List(c *gin.Context) {
	entities, err := h.reportService.ListEntities(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entities)
}

// Create registers an entity. Names are unique ignoring case.
func (h *EntityHandler) Create(c *gin.Context) {
	var req analyticsapp.SaveEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entity, err := h.reportService.CreateEntity(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entity)
}

// Update renames an entity or changes its headquarters flag
func (h *EntityHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req analyticsapp.SaveEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entity, err := h.reportService.UpdateEntity(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entity)
}
