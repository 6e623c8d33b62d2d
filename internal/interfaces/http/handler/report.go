package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	analyticsapp "github.com/kpiplatform/backend/internal/application/analytics"
)

// ReportHandler serves the consolidated reports and the annual forecast
type ReportHandler struct {
	BaseHandler
	reportService *analyticsapp.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *analyticsapp.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// BranchQuery selects one entity and month
type BranchQuery struct {
	EntityID string `form:"entity_id" binding:"required,uuid"`
	Period   string `form:"period" binding:"required"`
}

// AuditQuery selects the year of the upload audit; zero means the current year
type AuditQuery struct {
	Year int `form:"year" binding:"omitempty,min=1900,max=9999"`
}

// Periods lists the months that hold data
func (h *ReportHandler) Periods(c *gin.Context) {
	periods, err := h.reportService.Periods(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, periods)
}

// ConsolidatedPnL returns the category by entity matrix for ?period=YYYY-MM
func (h *ReportHandler) ConsolidatedPnL(c *gin.Context) {
	period, ok := h.queryPeriod(c, "period")
	if !ok {
		return
	}
	matrix, err := h.reportService.ConsolidatedPnL(c.Request.Context(), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, matrix)
}

// ConsolidatedTrialBalance returns the account by entity matrix for ?period=YYYY-MM
func (h *ReportHandler) ConsolidatedTrialBalance(c *gin.Context) {
	period, ok := h.queryPeriod(c, "period")
	if !ok {
		return
	}
	matrix, err := h.reportService.ConsolidatedTrialBalance(c.Request.Context(), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, matrix)
}

// Branch returns the plan-vs-fact dashboard of one entity
func (h *ReportHandler) Branch(c *gin.Context) {
	var q BranchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	period, ok := h.queryPeriod(c, "period")
	if !ok {
		return
	}

	dashboard, err := h.reportService.BranchDashboard(c.Request.Context(), uuid.MustParse(q.EntityID), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dashboard)
}

// Annual returns the seasonal forecast. Years come as repeated or
// comma-separated ?years= values; entity_id narrows to one entity.
func (h *ReportHandler) Annual(c *gin.Context) {
	years, err := parseYears(c.QueryArray("years"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var entityID *uuid.UUID
	if raw := c.Query("entity_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "entity_id must be a UUID")
			return
		}
		entityID = &id
	}

	result, err := h.reportService.AnnualAnalytics(c.Request.Context(), years, entityID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// UploadAudit shows which documents each entity uploaded per month
func (h *ReportHandler) UploadAudit(c *gin.Context) {
	var q AuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	audit, err := h.reportService.UploadAudit(c.Request.Context(), q.Year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, audit)
}

func parseYears(values []string) ([]int, error) {
	var years []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			year, err := strconv.Atoi(part)
			if err != nil || year < 1900 || year > 9999 {
				return nil, fmt.Errorf("invalid year %q", part)
			}
			years = append(years, year)
		}
	}
	return years, nil
}
