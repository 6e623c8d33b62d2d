package analytics

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/analytics"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReportService builds consolidated reports, branch dashboards and the
// seasonal forecast from stored records
type ReportService struct {
	entityRepo   analytics.EntityRepository
	categoryRepo analytics.CategoryRepository
	pnlRepo      analytics.PnLRepository
	tbRepo       analytics.TrialBalanceRepository
	metrics      []analytics.Metric
	trendWindow  int
	now          func() time.Time
	logger       *zap.Logger
}

// ReportServiceOption configures a ReportService
type ReportServiceOption func(*ReportService)

// WithMetrics sets the metrics of the annual analytics
func WithMetrics(metrics []analytics.Metric) ReportServiceOption {
	return func(s *ReportService) {
		if len(metrics) > 0 {
			s.metrics = metrics
		}
	}
}

// WithTrendWindow sets how many latest non-zero months form the baseline
func WithTrendWindow(n int) ReportServiceOption {
	return func(s *ReportService) {
		if n > 0 {
			s.trendWindow = n
		}
	}
}

// WithClock overrides the time source used for the current year
func WithClock(now func() time.Time) ReportServiceOption {
	return func(s *ReportService) {
		s.now = now
	}
}

// NewReportService creates a new ReportService
func NewReportService(
	entityRepo analytics.EntityRepository,
	categoryRepo analytics.CategoryRepository,
	pnlRepo analytics.PnLRepository,
	tbRepo analytics.TrialBalanceRepository,
	logger *zap.Logger,
	opts ...ReportServiceOption,
) *ReportService {
	s := &ReportService{
		entityRepo:   entityRepo,
		categoryRepo: categoryRepo,
		pnlRepo:      pnlRepo,
		tbRepo:       tbRepo,
		metrics:      analytics.DefaultMetrics(),
		trendWindow:  analytics.DefaultTrendWindow,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListEntities returns all entities, headquarters first
func (s *ReportService) ListEntities(ctx context.Context) ([]EntityResponse, error) {
	entities, err := s.entityRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]EntityResponse, len(entities))
	for i := range entities {
		out[i] = ToEntityResponse(&entities[i])
	}
	return out, nil
}

// CreateEntity adds a reporting entity. Names are unique ignoring case.
func (s *ReportService) CreateEntity(ctx context.Context, req SaveEntityRequest) (*EntityResponse, error) {
	entity, err := analytics.NewEntity(req.Name, req.IsHQ)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, entity.Name, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.entityRepo.Save(ctx, entity); err != nil {
		return nil, err
	}
	resp := ToEntityResponse(entity)
	return &resp, nil
}

// UpdateEntity renames an entity or changes its headquarters flag
func (s *ReportService) UpdateEntity(ctx context.Context, id uuid.UUID, req SaveEntityRequest) (*EntityResponse, error) {
	entity, err := s.findEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entity.Rename(req.Name, req.IsHQ); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, entity.Name, entity.ID); err != nil {
		return nil, err
	}
	if err := s.entityRepo.Save(ctx, entity); err != nil {
		return nil, err
	}
	resp := ToEntityResponse(entity)
	return &resp, nil
}

func (s *ReportService) ensureUniqueName(ctx context.Context, name string, self uuid.UUID) error {
	entities, err := s.entityRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	for _, e := range entities {
		if e.ID != self && strings.EqualFold(e.Name, name) {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, "Entity with this name already exists")
		}
	}
	return nil
}

func (s *ReportService) findEntity(ctx context.Context, id uuid.UUID) (*analytics.Entity, error) {
	entity, err := s.entityRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Entity not found")
		}
		return nil, err
	}
	return entity, nil
}

// Periods lists the months holding P&L or trial-balance data
func (s *ReportService) Periods(ctx context.Context) (*PeriodsResponse, error) {
	pnl, err := s.pnlRepo.ListPeriods(ctx, nil)
	if err != nil {
		return nil, err
	}
	tb, err := s.tbRepo.ListPeriods(ctx)
	if err != nil {
		return nil, err
	}

	resp := &PeriodsResponse{
		PnL:          formatPeriods(pnl),
		TrialBalance: formatPeriods(tb),
		Years:        yearsDesc(pnl, tb),
	}
	return resp, nil
}

// ConsolidatedPnL builds the category × entity fact matrix of a period
func (s *ReportService) ConsolidatedPnL(ctx context.Context, period time.Time) (*analytics.PnLMatrix, error) {
	period = shared.MonthStart(period)
	entities, err := s.entityRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.pnlRepo.FindByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	return analytics.BuildPnLMatrix(period, entities, categories, records), nil
}

// ConsolidatedTrialBalance builds the account × entity turnover matrix of a period
func (s *ReportService) ConsolidatedTrialBalance(ctx context.Context, period time.Time) (*analytics.TrialBalanceMatrix, error) {
	period = shared.MonthStart(period)
	entities, err := s.entityRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.tbRepo.FindByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	return analytics.BuildTrialBalanceMatrix(period, entities, records), nil
}

// BranchDashboard returns the plan-vs-fact view of one entity
func (s *ReportService) BranchDashboard(ctx context.Context, entityID uuid.UUID, period time.Time) (*analytics.BranchDashboard, error) {
	if _, err := s.findEntity(ctx, entityID); err != nil {
		return nil, err
	}
	period = shared.MonthStart(period)
	facts, err := s.pnlRepo.FindFactsByEntityAndPeriod(ctx, entityID, period)
	if err != nil {
		return nil, err
	}
	return analytics.BuildBranchDashboard(entityID, period, facts), nil
}

// UploadAudit returns which documents each entity uploaded per month of year
func (s *ReportService) UploadAudit(ctx context.Context, year int) (*analytics.UploadAudit, error) {
	current := s.now().Year()
	if year == 0 {
		year = current
	}
	entities, err := s.entityRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	pnl, err := s.pnlRepo.ListEntityPeriods(ctx, year)
	if err != nil {
		return nil, err
	}
	tb, err := s.tbRepo.ListEntityPeriods(ctx, year)
	if err != nil {
		return nil, err
	}
	pnlPeriods, err := s.pnlRepo.ListPeriods(ctx, nil)
	if err != nil {
		return nil, err
	}
	tbPeriods, err := s.tbRepo.ListPeriods(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.BuildUploadAudit(year, current, entities, pnl, tb, yearsDesc(pnlPeriods, tbPeriods)), nil
}

// AnnualAnalytics projects every configured metric over each year. The
// seasonal profile of a metric is taken from all of its history, so older
// years shape the forecast of the requested ones. entityID narrows the
// data to one entity; nil aggregates all of them.
func (s *ReportService) AnnualAnalytics(ctx context.Context, years []int, entityID *uuid.UUID) (*AnnualAnalytics, error) {
	if len(years) == 0 {
		years = []int{s.now().Year()}
	}
	if entityID != nil {
		if _, err := s.findEntity(ctx, *entityID); err != nil {
			return nil, err
		}
	}

	facts, err := s.pnlRepo.FindFacts(ctx, entityID)
	if err != nil {
		return nil, err
	}
	var tbRecords []analytics.TrialBalanceRecord
	for _, m := range s.metrics {
		if m.FromTrialBalance() {
			if tbRecords, err = s.tbRepo.FindAll(ctx, entityID); err != nil {
				return nil, err
			}
			break
		}
	}

	resp := &AnnualAnalytics{
		EntityID: entityID,
		Years:    years,
		Metrics:  s.metrics,
		Series:   make([]analytics.AnnualSeries, 0, len(years)*len(s.metrics)),
	}
	for _, metric := range s.metrics {
		var history []analytics.Observation
		if metric.FromTrialBalance() {
			history = analytics.CollectTrialBalance(metric, tbRecords)
		} else {
			history = analytics.CollectPnL(metric, facts)
		}

		for _, year := range years {
			series := analytics.BuildAnnualSeries(metric, history, year, s.trendWindow)
			s.logger.Debug("forecast computed",
				zap.String("metric", metric.Key),
				zap.Int("year", year),
				zap.Int("observations", len(history)),
				zap.String("baseline", series.Baseline.String()),
				zap.Strings("seasonal_index", decimalStrings(series.Index[:])),
			)
			resp.Series = append(resp.Series, series)
		}
	}
	return resp, nil
}

func formatPeriods(periods []time.Time) []string {
	out := make([]string, len(periods))
	for i, p := range periods {
		out[i] = shared.FormatPeriod(p)
	}
	return out
}

// yearsDesc returns the distinct years of the periods, newest first
func yearsDesc(groups ...[]time.Time) []int {
	seen := make(map[int]bool)
	var years []int
	for _, periods := range groups {
		for _, p := range periods {
			if y := p.Year(); !seen[y] {
				seen[y] = true
				years = append(years, y)
			}
		}
	}
	slices.Sort(years)
	slices.Reverse(years)
	if years == nil {
		years = []int{}
	}
	return years
}

func decimalStrings(values []decimal.Decimal) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.StringFixed(4)
	}
	return out
}
