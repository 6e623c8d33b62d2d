package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/domain/audit"
	"github.com/kpiplatform/backend/internal/domain/shared"
	sheetimport "github.com/kpiplatform/backend/internal/infrastructure/import"
	"github.com/kpiplatform/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// auditModelUpload is the model name of upload audit entries
const auditModelUpload = "upload"

// UploadService ingests P&L and trial-balance workbooks for an entity.
// Every file is classified before anything is written, and all writes of
// an upload share one transaction.
type UploadService struct {
	entityRepo   analytics.EntityRepository
	pnlRepo      analytics.PnLRepository
	tbRepo       analytics.TrialBalanceRepository
	txScope      TransactionScope
	classifier   *sheetimport.Classifier
	pnlExtractor *sheetimport.PnLExtractor
	tbExtractor  *sheetimport.TrialBalanceExtractor
	validate     *validator.Validate
	metrics      *telemetry.BusinessMetrics
	logger       *zap.Logger
}

// UploadServiceOption configures an UploadService
type UploadServiceOption func(*UploadService)

// WithClassifier replaces the default classifier
func WithClassifier(c *sheetimport.Classifier) UploadServiceOption {
	return func(s *UploadService) {
		s.classifier = c
	}
}

// WithPnLExtractor replaces the default P&L extractor
func WithPnLExtractor(e *sheetimport.PnLExtractor) UploadServiceOption {
	return func(s *UploadService) {
		s.pnlExtractor = e
	}
}

// WithTrialBalanceExtractor replaces the default trial-balance extractor
func WithTrialBalanceExtractor(e *sheetimport.TrialBalanceExtractor) UploadServiceOption {
	return func(s *UploadService) {
		s.tbExtractor = e
	}
}

// WithBusinessMetrics counts uploads and stored rows
func WithBusinessMetrics(m *telemetry.BusinessMetrics) UploadServiceOption {
	return func(s *UploadService) {
		s.metrics = m
	}
}

// NewUploadService creates a new UploadService
func NewUploadService(
	entityRepo analytics.EntityRepository,
	pnlRepo analytics.PnLRepository,
	tbRepo analytics.TrialBalanceRepository,
	txScope TransactionScope,
	logger *zap.Logger,
	opts ...UploadServiceOption,
) *UploadService {
	s := &UploadService{
		entityRepo:   entityRepo,
		pnlRepo:      pnlRepo,
		tbRepo:       tbRepo,
		txScope:      txScope,
		classifier:   sheetimport.NewClassifier(),
		pnlExtractor: sheetimport.NewPnLExtractor(),
		tbExtractor:  sheetimport.NewTrialBalanceExtractor(),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// parsedUpload holds the extracted content of every file of a request
type parsedUpload struct {
	periods []time.Time
	pnl     *sheetimport.PnLResult
	tb      *sheetimport.TrialBalanceResult
}

// Upload classifies, extracts and stores the files of req. When data
// already exists for the target periods and req.Overwrite is false the
// result asks for confirmation and nothing is written.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "upload", "process",
		telemetry.AttrEntityID, req.EntityID.String(),
	)
	defer span.End()

	result, err := s.upload(ctx, req)
	telemetry.RecordError(span, err)
	if result != nil {
		telemetry.SetAttributes(span, telemetry.AttrRows, result.PnLRows+result.TrialBalanceRows)
	}
	s.recordMetrics(ctx, req, result, err)
	return result, err
}

// recordMetrics counts every file of the request under the request outcome
func (s *UploadService) recordMetrics(ctx context.Context, req UploadRequest, result *UploadResult, err error) {
	outcome := telemetry.UploadStored
	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &domainErr):
		outcome = telemetry.UploadRejected
	case err != nil:
		outcome = telemetry.UploadFailed
	case result.NeedsConfirmation:
		outcome = telemetry.UploadNeedsConfirmation
	}

	if req.PnL != nil {
		s.metrics.RecordUpload(ctx, string(sheetimport.KindPnL), outcome)
	}
	if req.TrialBalance != nil {
		s.metrics.RecordUpload(ctx, string(sheetimport.KindTrialBalance), outcome)
	}
	if outcome == telemetry.UploadStored {
		s.metrics.RecordUploadRows(ctx, string(sheetimport.KindPnL), result.PnLRows)
		s.metrics.RecordUploadRows(ctx, string(sheetimport.KindTrialBalance), result.TrialBalanceRows)
	}
}

func (s *UploadService) upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}

	if _, err := s.entityRepo.FindByID(ctx, req.EntityID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Entity not found")
		}
		return nil, err
	}

	parsed, err := s.parse(req)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{
		EntityID: req.EntityID,
		Periods:  make([]string, len(parsed.periods)),
		Warnings: []string{},
	}
	for i, p := range parsed.periods {
		result.Periods[i] = shared.FormatPeriod(p)
	}
	for _, diag := range [][]sheetimport.RowError{pnlDiagnostics(parsed.pnl), tbDiagnostics(parsed.tb)} {
		result.Diagnostics = append(result.Diagnostics, diag...)
	}
	result.DiagnosticsTruncated = (parsed.pnl != nil && parsed.pnl.Truncated) || (parsed.tb != nil && parsed.tb.Truncated)

	exists, err := s.hasData(ctx, req, parsed.periods)
	if err != nil {
		return nil, err
	}
	if exists && !req.Overwrite {
		result.NeedsConfirmation = true
		s.logger.Info("upload needs overwrite confirmation",
			zap.String("entity_id", req.EntityID.String()),
			zap.Strings("periods", result.Periods),
		)
		return result, nil
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.write(ctx, repos, req, parsed, result)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	s.logger.Info("upload processed",
		zap.String("entity_id", req.EntityID.String()),
		zap.Strings("periods", result.Periods),
		zap.Int("pnl_rows", result.PnLRows),
		zap.Int("trial_balance_rows", result.TrialBalanceRows),
		zap.Int("categories_created", result.CategoriesCreated),
		zap.Int64("deleted_rows", result.DeletedRows),
		zap.Int("diagnostics", len(result.Diagnostics)),
	)
	return result, nil
}

func (s *UploadService) checkRequest(req UploadRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, err.Error())
	}
	if req.PnL == nil && req.TrialBalance == nil {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "at least one file is required")
	}
	if req.MultiMonth {
		if req.PnL == nil || req.TrialBalance != nil {
			return shared.NewDomainError(shared.ErrInvalidInput.Code, "multi-month uploads accept a single P&L file")
		}
		return nil
	}
	if req.Month < 1 {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "month is required for single-month uploads")
	}
	return nil
}

// parse classifies every file first so that a mismatched second file
// rejects the whole request, then extracts rows
func (s *UploadService) parse(req UploadRequest) (*parsedUpload, error) {
	var pnlGrid, tbGrid sheetimport.Grid
	var err error
	if req.PnL != nil {
		if pnlGrid, err = s.classify(req.PnL, sheetimport.KindPnL); err != nil {
			return nil, err
		}
	}
	if req.TrialBalance != nil {
		if tbGrid, err = s.classify(req.TrialBalance, sheetimport.KindTrialBalance); err != nil {
			return nil, err
		}
	}

	parsed := &parsedUpload{}
	if pnlGrid != nil {
		if req.MultiMonth {
			parsed.pnl, err = s.pnlExtractor.ExtractMultiMonth(pnlGrid)
		} else {
			parsed.pnl, err = s.pnlExtractor.ExtractSingleMonth(pnlGrid)
		}
		if err != nil {
			return nil, analytics.NewStructuralFailure(req.PnL.Filename, err)
		}
	}
	if tbGrid != nil {
		if parsed.tb, err = s.tbExtractor.Extract(tbGrid); err != nil {
			return nil, analytics.NewStructuralFailure(req.TrialBalance.Filename, err)
		}
	}

	if req.MultiMonth {
		for _, m := range parsed.pnl.Months {
			period, err := shared.Period(req.Year, m)
			if err != nil {
				return nil, err
			}
			parsed.periods = append(parsed.periods, period)
		}
		return parsed, nil
	}

	period, err := shared.Period(req.Year, req.Month)
	if err != nil {
		return nil, err
	}
	parsed.periods = []time.Time{period}
	return parsed, nil
}

func (s *UploadService) classify(f *UploadFile, kind sheetimport.DocumentKind) (sheetimport.Grid, error) {
	grid, verdict, err := s.classifier.ReadAndClassify(f.Filename, f.Content, kind)
	if err != nil || !verdict.OK {
		s.logger.Warn("upload rejected by classifier",
			zap.String("file", f.Filename),
			zap.String("expected", string(kind)),
			zap.String("reason", verdict.Reason),
		)
		return nil, analytics.NewClassificationMismatch(f.Filename, verdict.Reason)
	}
	return grid, nil
}

// hasData reports whether the upload would replace stored rows. A
// single-month overwrite replaces both document kinds of the period, a
// multi-month upload only P&L rows.
func (s *UploadService) hasData(ctx context.Context, req UploadRequest, periods []time.Time) (bool, error) {
	exists, err := s.pnlRepo.ExistsForEntityPeriods(ctx, req.EntityID, periods)
	if err != nil || exists || req.MultiMonth {
		return exists, err
	}
	return s.tbRepo.ExistsForEntityPeriods(ctx, req.EntityID, periods)
}

func (s *UploadService) write(ctx context.Context, repos TransactionalRepositories, req UploadRequest, parsed *parsedUpload, result *UploadResult) error {
	pnlRepo := repos.PnLRepo()
	tbRepo := repos.TrialBalanceRepo()

	switch {
	case req.MultiMonth:
		n, err := pnlRepo.DeleteByEntityAndPeriods(ctx, req.EntityID, parsed.periods)
		if err != nil {
			return err
		}
		result.DeletedRows += n
	case req.Overwrite:
		n, err := pnlRepo.DeleteByEntityAndPeriods(ctx, req.EntityID, parsed.periods)
		if err != nil {
			return err
		}
		result.DeletedRows += n
		if n, err = tbRepo.DeleteByEntityAndPeriods(ctx, req.EntityID, parsed.periods); err != nil {
			return err
		}
		result.DeletedRows += n
	}

	if parsed.pnl != nil {
		categories, err := s.resolveCategories(ctx, repos.CategoryRepo(), parsed.pnl.Rows, !req.MultiMonth, result)
		if err != nil {
			return err
		}
		records := s.pnlRecords(req, parsed, categories, result)
		if req.MultiMonth {
			err = pnlRepo.CreateBatch(ctx, records)
		} else {
			err = pnlRepo.Upsert(ctx, records)
		}
		if err != nil {
			return err
		}
		result.PnLRows = len(records)
	}

	if parsed.tb != nil {
		records := s.trialBalanceRecords(req.EntityID, parsed.periods[0], parsed.tb.Rows, result)
		if err := tbRepo.Upsert(ctx, records); err != nil {
			return err
		}
		result.TrialBalanceRows = len(records)
	}

	entry := audit.NewEntry(req.UserID, audit.ActionUpload, auditModelUpload, req.EntityID, map[string]any{
		"periods":            result.Periods,
		"multi_month":        req.MultiMonth,
		"overwrite":          req.Overwrite,
		"pnl_rows":           result.PnLRows,
		"trial_balance_rows": result.TrialBalanceRows,
		"deleted_rows":       result.DeletedRows,
	})
	return repos.AuditRepo().Save(ctx, entry)
}

// resolveCategories maps every row label to a category by its folded key,
// creating missing categories. Single-month uploads also refresh the sort
// order and total flag of existing categories.
func (s *UploadService) resolveCategories(ctx context.Context, repo analytics.CategoryRepository, rows []sheetimport.PnLRow, refresh bool, result *UploadResult) (map[string]*analytics.Category, error) {
	existing, err := repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*analytics.Category, len(existing))
	for i := range existing {
		byKey[existing[i].NameKey] = &existing[i]
	}

	var dirty []string
	isDirty := make(map[string]bool)
	markDirty := func(key string) {
		if !isDirty[key] {
			isDirty[key] = true
			dirty = append(dirty, key)
		}
	}
	reported := make(map[string]bool)

	for _, row := range rows {
		name := analytics.NormalizeCategoryName(row.Name)
		key := analytics.CategoryKey(name)
		cat, ok := byKey[key]
		if !ok {
			created, err := analytics.NewCategory(name, row.SortOrder, row.IsTotal)
			if err != nil {
				return nil, err
			}
			byKey[key] = created
			markDirty(key)
			result.CategoriesCreated++
			continue
		}

		if cat.Name != name && !reported[name] {
			reported[name] = true
			result.Collisions = append(result.Collisions, analytics.CategoryCollision{Label: name, Existing: cat.Name, Key: key})
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: category %q merged into existing %q", row.Row, name, cat.Name))
			s.logger.Warn("category label collision",
				zap.String("label", name),
				zap.String("existing", cat.Name),
				zap.String("key", key),
			)
		}
		if refresh && (cat.SortOrder != row.SortOrder || cat.IsTotal != row.IsTotal) {
			cat.SortOrder = row.SortOrder
			cat.IsTotal = row.IsTotal
			cat.Touch()
			markDirty(key)
		}
	}

	for _, key := range dirty {
		if err := repo.Save(ctx, byKey[key]); err != nil {
			return nil, fmt.Errorf("failed to save category %q: %w", byKey[key].Name, err)
		}
	}
	return byKey, nil
}

// pnlRecords builds one record per (category, period). A category repeated
// in the sheet keeps its last row.
func (s *UploadService) pnlRecords(req UploadRequest, parsed *parsedUpload, categories map[string]*analytics.Category, result *UploadResult) []analytics.PnLRecord {
	type recordKey struct {
		category uuid.UUID
		period   time.Time
	}
	index := make(map[recordKey]int, len(parsed.pnl.Rows))
	records := make([]analytics.PnLRecord, 0, len(parsed.pnl.Rows))

	for _, row := range parsed.pnl.Rows {
		cat := categories[analytics.CategoryKey(row.Name)]
		period := parsed.periods[0]
		if req.MultiMonth {
			period = time.Date(req.Year, time.Month(row.Month), 1, 0, 0, 0, 0, time.UTC)
		}
		rec := analytics.NewPnLRecord(req.EntityID, cat.ID, period, row.Plan, row.Fact)
		k := recordKey{category: cat.ID, period: rec.Period}
		if i, ok := index[k]; ok {
			records[i] = rec
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: duplicate category %q for %s, last row kept", row.Row, cat.Name, shared.FormatPeriod(period)))
			continue
		}
		index[k] = len(records)
		records = append(records, rec)
	}
	return records
}

// trialBalanceRecords builds one record per account code; a repeated code
// keeps its last row
func (s *UploadService) trialBalanceRecords(entityID uuid.UUID, period time.Time, rows []sheetimport.TrialBalanceRow, result *UploadResult) []analytics.TrialBalanceRecord {
	index := make(map[string]int, len(rows))
	records := make([]analytics.TrialBalanceRecord, 0, len(rows))
	for _, row := range rows {
		rec := analytics.NewTrialBalanceRecord(entityID, period, row.Code, row.Name, row.Debit, row.Credit)
		if i, ok := index[row.Code]; ok {
			records[i] = rec
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: duplicate account %s, last row kept", row.Row, row.Code))
			continue
		}
		index[row.Code] = len(records)
		records = append(records, rec)
	}
	return records
}

func pnlDiagnostics(r *sheetimport.PnLResult) []sheetimport.RowError {
	if r == nil {
		return nil
	}
	return r.Diagnostics
}

func tbDiagnostics(r *sheetimport.TrialBalanceResult) []sheetimport.RowError {
	if r == nil {
		return nil
	}
	return r.Diagnostics
}
