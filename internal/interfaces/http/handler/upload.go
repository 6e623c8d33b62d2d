package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	analyticsapp "github.com/kpiplatform/backend/internal/application/analytics"
	"github.com/kpiplatform/backend/internal/interfaces/http/dto"
)

// UploadHandler accepts P&L and trial-balance workbooks
type UploadHandler struct {
	BaseHandler
	uploadService *analyticsapp.UploadService
	maxFileSize   int64
}

// NewUploadHandler creates a new UploadHandler. maxFileSize caps each
// workbook; zero disables the check.
func NewUploadHandler(uploadService *analyticsapp.UploadService, maxFileSize int64) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		maxFileSize:   maxFileSize,
	}
}

// UploadForm is the multipart upload request. file_pnl is the P&L
// workbook and file_osv the trial balance; at least one is required.
type UploadForm struct {
	EntityID     string                `form:"entity_id" binding:"required,uuid"`
	Year         int                   `form:"year" binding:"required,min=1900,max=9999"`
	Month        int                   `form:"month" binding:"omitempty,min=1,max=12"`
	MultiMonth   bool                  `form:"multi_month"`
	Overwrite    bool                  `form:"overwrite"`
	PnL          *multipart.FileHeader `form:"file_pnl"`
	TrialBalance *multipart.FileHeader `form:"file_osv"`
}

// Upload ingests the workbooks. A 200 with needs_confirmation set means
// data already exists for the target periods and nothing was written; the
// client repeats the request with overwrite=true. Files that are not the
// expected document or cannot be read give 422.
func (h *UploadHandler) Upload(c *gin.Context) {
	var form UploadForm
	if err := c.ShouldBind(&form); err != nil {
		h.BindError(c, err)
		return
	}

	req := analyticsapp.UploadRequest{
		EntityID:   uuid.MustParse(form.EntityID),
		Year:       form.Year,
		Month:      form.Month,
		MultiMonth: form.MultiMonth,
		Overwrite:  form.Overwrite,
		UserID:     userID(c),
	}

	var files []multipart.File
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	open := func(fh *multipart.FileHeader) (*analyticsapp.UploadFile, bool) {
		if fh == nil {
			return nil, true
		}
		if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
				fmt.Sprintf("%s exceeds the %d byte file limit", fh.Filename, h.maxFileSize))
			return nil, false
		}
		f, err := fh.Open()
		if err != nil {
			h.BadRequest(c, fmt.Sprintf("cannot read %s: %v", fh.Filename, err))
			return nil, false
		}
		files = append(files, f)
		return &analyticsapp.UploadFile{Filename: fh.Filename, Content: f}, true
	}

	var ok bool
	if req.PnL, ok = open(form.PnL); !ok {
		return
	}
	if req.TrialBalance, ok = open(form.TrialBalance); !ok {
		return
	}

	result, err := h.uploadService.Upload(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
