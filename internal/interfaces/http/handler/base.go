package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/kpiplatform/backend/internal/infrastructure/logger"
	"github.com/kpiplatform/backend/internal/interfaces/http/dto"
	"github.com/kpiplatform/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindError reports a failed bind with per-field details
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError converts an error to a response. Domain errors keep their
// code and message; anything else is logged and reported as a 500 without
// leaking the cause.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	logger.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// pathID parses the :id path parameter, writing a 400 when it is not a UUID
func (h *BaseHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return uuid.Nil, false
	}
	return uuid.MustParse(req.ID), true
}

// pathMonth parses the :month path parameter (YYYY-MM)
func (h *BaseHandler) pathMonth(c *gin.Context) (time.Time, bool) {
	var req dto.MonthRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return time.Time{}, false
	}
	month, err := shared.ParsePeriod(req.Month)
	if err != nil {
		h.HandleError(c, err)
		return time.Time{}, false
	}
	return month, true
}

// queryPeriod reads a required YYYY-MM query parameter
func (h *BaseHandler) queryPeriod(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		h.BadRequest(c, name+" is required")
		return time.Time{}, false
	}
	period, err := shared.ParsePeriod(raw)
	if err != nil {
		h.HandleError(c, err)
		return time.Time{}, false
	}
	return period, true
}

// userID returns the caller identity recorded in audit entries
func userID(c *gin.Context) string {
	return middleware.GetUserID(c)
}
