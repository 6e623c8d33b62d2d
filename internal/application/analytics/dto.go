package analytics

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	sheetimport "github.com/kpiplatform/backend/internal/infrastructure/import"
)

// UploadFile is one workbook of an upload
type UploadFile struct {
	Filename string
	Content  io.Reader
}

// UploadRequest describes a P&L and/or trial-balance upload for one entity.
// Month is ignored for multi-month P&L files, whose months come from the
// sheet header.
type UploadRequest struct {
	EntityID     uuid.UUID `validate:"required"`
	Year         int       `validate:"min=1900,max=9999"`
	Month        int       `validate:"min=0,max=12"`
	MultiMonth   bool
	Overwrite    bool
	PnL          *UploadFile
	TrialBalance *UploadFile
	UserID       string
}

// UploadResult reports what an upload wrote. When NeedsConfirmation is set
// nothing was written and the caller must repeat the request with Overwrite.
type UploadResult struct {
	EntityID             uuid.UUID                     `json:"entity_id"`
	Periods              []string                      `json:"periods"`
	NeedsConfirmation    bool                          `json:"needs_confirmation"`
	PnLRows              int                           `json:"pnl_rows"`
	TrialBalanceRows     int                           `json:"trial_balance_rows"`
	CategoriesCreated    int                           `json:"categories_created"`
	DeletedRows          int64                         `json:"deleted_rows"`
	Warnings             []string                      `json:"warnings"`
	Collisions           []analytics.CategoryCollision `json:"collisions,omitempty"`
	Diagnostics          []sheetimport.RowError        `json:"diagnostics,omitempty"`
	DiagnosticsTruncated bool                          `json:"diagnostics_truncated,omitempty"`
}

// EntityResponse is the API view of a reporting entity
type EntityResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsHQ      bool      `json:"is_hq"`
	CreatedAt time.Time `json:"created_at"`
}

// ToEntityResponse converts a domain entity
func ToEntityResponse(e *analytics.Entity) EntityResponse {
	return EntityResponse{ID: e.ID, Name: e.Name, IsHQ: e.IsHQ, CreatedAt: e.CreatedAt}
}

// SaveEntityRequest creates or renames an entity
type SaveEntityRequest struct {
	Name string `json:"name" binding:"required,max=255"`
	IsHQ bool   `json:"is_hq"`
}

// PeriodsResponse lists the periods that hold data, newest first
type PeriodsResponse struct {
	PnL          []string `json:"pnl"`
	TrialBalance []string `json:"trial_balance"`
	Years        []int    `json:"years"`
}

// AnnualAnalytics is the seasonal forecast of every configured metric for
// each requested year
type AnnualAnalytics struct {
	EntityID *uuid.UUID               `json:"entity_id,omitempty"`
	Years    []int                    `json:"years"`
	Metrics  []analytics.Metric       `json:"metrics"`
	Series   []analytics.AnnualSeries `json:"series"`
}
