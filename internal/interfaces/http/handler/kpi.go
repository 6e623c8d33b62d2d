package handler

import (
	"github.com/gin-gonic/gin"
	kpiapp "github.com/kpiplatform/backend/internal/application/kpi"
)

// KPIHandler serves scorecards, their indicators and bonuses, and the
// month lifecycle
type KPIHandler struct {
	BaseHandler
	kpiService *kpiapp.KPIService
}

// NewKPIHandler creates a new KPIHandler
func NewKPIHandler(kpiService *kpiapp.KPIService) *KPIHandler {
	return &KPIHandler{kpiService: kpiService}
}

// Create creates a KPI or a template
func (h *KPIHandler) Create(c *gin.Context) {
	var req kpiapp.CreateKPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	k, err := h.kpiService.CreateKPI(c.Request.Context(), req, userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, k)
}

// List returns KPIs filtered by target, month and state
func (h *KPIHandler) List(c *gin.Context) {
	var q kpiapp.ListKPIsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	ks, err := h.kpiService.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ks)
}

// Get returns a KPI with indicators, bonus and score
func (h *KPIHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	detail, err := h.kpiService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// Score returns the weighted score and projected payout
func (h *KPIHandler) Score(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	detail, err := h.kpiService.Score(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// AddIndicator adds a draft indicator
func (h *KPIHandler) AddIndicator(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req kpiapp.AddIndicatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	ind, err := h.kpiService.AddIndicator(c.Request.Context(), id, req, userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ind)
}

// ConfigureBonus sets the bonus target and thresholds
func (h *KPIHandler) ConfigureBonus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req kpiapp.ConfigureBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	bonus, err := h.kpiService.ConfigureBonus(c.Request.Context(), id, req, userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bonus)
}

// CreateVersion deactivates the KPI and copies it into a new version
func (h *KPIHandler) CreateVersion(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	result, err := h.kpiService.CreateNewVersion(c.Request.Context(), id, userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// FinalizeBonus fixes the payout once every indicator is approved
func (h *KPIHandler) FinalizeBonus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	bonus, err := h.kpiService.FinalizeBonus(c.Request.Context(), id, userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bonus)
}

// ResetBonus reopens a finalized bonus while its month is open
func (h *KPIHandler) ResetBonus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	bonus, err := h.kpiService.ResetBonus(c.Request.Context(), id, userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bonus)
}

// GenerateNextMonth instantiates every active template for next month
func (h *KPIHandler) GenerateNextMonth(c *gin.Context) {
	result, err := h.kpiService.GenerateNextMonth(c.Request.Context(), userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SubmitFact records an indicator's facts and sends it for review
func (h *KPIHandler) SubmitFact(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req kpiapp.SubmitFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	ind, err := h.kpiService.SubmitFact(c.Request.Context(), id, req, userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ind)
}

// Approve approves an indicator. The bonus is finalized when it was the
// last one pending.
func (h *KPIHandler) Approve(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req kpiapp.ApproveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	result, err := h.kpiService.Approve(c.Request.Context(), id, req, userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reject sends an indicator back with a reason
func (h *KPIHandler) Reject(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req kpiapp.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	ind, err := h.kpiService.Reject(c.Request.Context(), id, req, userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ind)
}

// CloseMonth closes a month and finalizes its outstanding bonuses
func (h *KPIHandler) CloseMonth(c *gin.Context) {
	month, ok := h.pathMonth(c)
	if !ok {
		return
	}
	result, err := h.kpiService.CloseMonth(c.Request.Context(), month, userID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// MonthSummary counts the month's KPIs and indicators by state
func (h *KPIHandler) MonthSummary(c *gin.Context) {
	month, ok := h.pathMonth(c)
	if !ok {
		return
	}
	summary, err := h.kpiService.StatusSummary(c.Request.Context(), month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
