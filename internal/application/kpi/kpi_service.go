package kpi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kpiplatform/backend/internal/domain/audit"
	"github.com/kpiplatform/backend/internal/domain/kpi"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/kpiplatform/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Audit model names
const (
	auditModelKPI       = "kpi"
	auditModelIndicator = "indicator"
	auditModelBonus     = "bonus"
	auditModelMonth     = "month"
)

// KPIService manages scorecards, their indicators and bonus payouts.
// Every state change is written together with its audit entry in one
// transaction.
type KPIService struct {
	kpiRepo       kpi.KPIRepository
	indicatorRepo kpi.IndicatorRepository
	bonusRepo     kpi.BonusRepository
	monthRepo     kpi.MonthStatusRepository
	txScope       TransactionScope
	now           func() time.Time
	metrics       *telemetry.BusinessMetrics
	logger        *zap.Logger
}

// KPIServiceOption configures a KPIService
type KPIServiceOption func(*KPIService)

// WithClock overrides the time source used for finalization timestamps
// and next-month generation
func WithClock(now func() time.Time) KPIServiceOption {
	return func(s *KPIService) {
		s.now = now
	}
}

// WithBusinessMetrics counts bonus finalizations and month closes
func WithBusinessMetrics(m *telemetry.BusinessMetrics) KPIServiceOption {
	return func(s *KPIService) {
		s.metrics = m
	}
}

// NewKPIService creates a new KPIService
func NewKPIService(
	kpiRepo kpi.KPIRepository,
	indicatorRepo kpi.IndicatorRepository,
	bonusRepo kpi.BonusRepository,
	monthRepo kpi.MonthStatusRepository,
	txScope TransactionScope,
	logger *zap.Logger,
	opts ...KPIServiceOption,
) *KPIService {
	s := &KPIService{
		kpiRepo:       kpiRepo,
		indicatorRepo: indicatorRepo,
		bonusRepo:     bonusRepo,
		monthRepo:     monthRepo,
		txScope:       txScope,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateKPI creates the first version of a scorecard. Only one active
// version may exist per target, name and month.
func (s *KPIService) CreateKPI(ctx context.Context, req CreateKPIRequest, userID string) (*KPIResponse, error) {
	var forMonth *time.Time
	if req.ForMonth != "" {
		m, err := shared.ParsePeriod(req.ForMonth)
		if err != nil {
			return nil, err
		}
		forMonth = &m
	}

	k, err := kpi.NewKPI(req.Name, kpi.Period(req.Period), kpi.TargetType(req.TargetType), req.TargetRef, forMonth, req.IsTemplate)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.KPIRepo().FindActiveByLineage(ctx, k.Lineage()); err == nil {
			return kpi.ErrActiveVersionExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if err := repos.KPIRepo().Save(ctx, k); err != nil {
			return err
		}
		return repos.AuditRepo().Save(ctx, audit.NewEntry(userID, audit.ActionCreate, auditModelKPI, k.ID, map[string]any{
			"name":        k.Name,
			"target_type": string(k.TargetType),
			"is_template": k.IsTemplate,
		}))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("kpi created",
		zap.String("kpi_id", k.ID.String()),
		zap.String("name", k.Name),
		zap.Bool("template", k.IsTemplate),
	)
	resp := ToKPIResponse(k)
	return &resp, nil
}

// Get returns a KPI with its indicators, score and bonus
func (s *KPIService) Get(ctx context.Context, id uuid.UUID) (*KPIDetail, error) {
	k, err := findKPI(ctx, s.kpiRepo, id)
	if err != nil {
		return nil, err
	}
	inds, err := s.indicatorRepo.FindByKPI(ctx, id)
	if err != nil {
		return nil, err
	}
	bonus, err := findBonus(ctx, s.bonusRepo, id)
	if err != nil && !errors.Is(err, kpi.ErrBonusNotConfigured) {
		return nil, err
	}

	score := kpi.TotalScore(inds)
	detail := &KPIDetail{
		KPI:         ToKPIResponse(k),
		Indicators:  ToIndicatorResponses(inds),
		Score:       score,
		AllApproved: kpi.AllApproved(inds),
		Bonus:       ToBonusResponse(bonus),
	}
	if bonus != nil {
		payout := bonus.Preview(score)
		detail.ProjectedPayout = &payout
	}
	return detail, nil
}

// Score returns the weighted score of a KPI's indicators
func (s *KPIService) Score(ctx context.Context, id uuid.UUID) (*KPIDetail, error) {
	return s.Get(ctx, id)
}

// List returns KPIs matching the query, newest first
func (s *KPIService) List(ctx context.Context, q ListKPIsQuery) ([]KPIResponse, error) {
	filter := kpi.Filter{
		ActiveOnly: q.ActiveOnly,
		Templates:  q.Templates,
		OrderBy:    q.SortBy,
		OrderDir:   q.SortOrder,
	}
	if q.TargetType != "" {
		t := kpi.TargetType(q.TargetType)
		filter.TargetType = &t
	}
	if q.TargetRef != "" {
		ref, err := uuid.Parse(q.TargetRef)
		if err != nil {
			return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "invalid target_ref")
		}
		filter.TargetRef = &ref
	}
	if q.Month != "" {
		m, err := shared.ParsePeriod(q.Month)
		if err != nil {
			return nil, err
		}
		filter.Month = &m
	}

	ks, err := s.kpiRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ToKPIResponses(ks), nil
}

// AddIndicator appends a draft indicator to an active KPI
func (s *KPIService) AddIndicator(ctx context.Context, kpiID uuid.UUID, req AddIndicatorRequest, userID string) (*IndicatorResponse, error) {
	var ind *kpi.Indicator
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		k, err := s.editableKPI(ctx, repos, kpiID)
		if err != nil {
			return err
		}

		ind, err = kpi.NewIndicator(k.ID, req.Name, kpi.IndicatorType(req.Type), req.PlanValue, req.Weight)
		if err != nil {
			return err
		}
		ind.DescQuantitative = req.DescQuantitative
		ind.DescQualitative = req.DescQualitative
		if req.ThresholdMin != nil {
			ind.ThresholdMin = *req.ThresholdMin
		}
		if req.ThresholdMax != nil {
			ind.ThresholdMax = *req.ThresholdMax
		}
		if ind.ThresholdMax.LessThan(ind.ThresholdMin) {
			return shared.NewDomainError("INVALID_THRESHOLD", "Thresholds must satisfy min <= max")
		}

		if err := repos.IndicatorRepo().Save(ctx, ind); err != nil {
			return err
		}
		return repos.AuditRepo().Save(ctx, audit.NewEntry(userID, audit.ActionCreate, auditModelIndicator, ind.ID, map[string]any{
			"kpi_id": k.ID.String(),
			"name":   ind.Name,
			"weight": ind.Weight,
		}))
	})
	if err != nil {
		return nil, err
	}
	resp := ToIndicatorResponse(ind)
	return &resp, nil
}

// ConfigureBonus creates or changes the bonus of a KPI. A finalized bonus
// must be reset first.
func (s *KPIService) ConfigureBonus(ctx context.Context, kpiID uuid.UUID, req ConfigureBonusRequest, userID string) (*BonusResponse, error) {
	var bonus *kpi.Bonus
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := findKPI(ctx, repos.KPIRepo(), kpiID); err != nil {
			return err
		}

		var err error
		bonus, err = findBonus(ctx, repos.BonusRepo(), kpiID)
		switch {
		case errors.Is(err, kpi.ErrBonusNotConfigured):
			if bonus, err = kpi.NewBonus(kpiID, req.TargetAmount, req.ThresholdMin, req.ThresholdMax); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := bonus.Configure(req.TargetAmount, req.ThresholdMin, req.ThresholdMax); err != nil {
				return err
			}
		}

		if err := repos.BonusRepo().Save(ctx, bonus); err != nil {
			return err
		}
		return repos.AuditRepo().Save(ctx, audit.NewEntry(userID, audit.ActionUpdate, auditModelBonus, bonus.ID, map[string]any{
			"kpi_id":        kpiID.String(),
			"target_amount": bonus.TargetAmount.String(),
			"threshold_min": bonus.ThresholdMin.String(),
			"threshold_max": bonus.ThresholdMax.String(),
		}))
	})
	if err != nil {
		return nil, err
	}
	return ToBonusResponse(bonus), nil
}

// SubmitFact records indicator facts and sends the indicator to review
func (s *KPIService) SubmitFact(ctx context.Context, indicatorID uuid.UUID, req SubmitFactRequest, userID string) (*IndicatorResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "kpi", "submit_fact", telemetry.AttrIndicatorID, indicatorID.String())
	defer span.End()

	var ind *kpi.Indicator
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if ind, err = findIndicator(ctx, repos.IndicatorRepo(), indicatorID); err != nil {
			return err
		}
		if _, err := s.editableKPI(ctx, repos, ind.KPIID); err != nil {
			return err
		}
		if err := ind.SubmitFact(req.FactQuantitative, req.FactQualitative); err != nil {
			return err
		}
		if err := repos.IndicatorRepo().Save(ctx, ind); err != nil {
			return err
		}
		return repos.AuditRepo().Save(ctx, audit.NewEntry(userID, audit.ActionUpdate, auditModelIndicator, ind.ID, map[string]any{
			"fact_quantitative": ind.FactQuantitative.String(),
			"fact_qualitative":  ind.FactQualitative.String(),
			"status":            string(ind.Status),
		}))
	})
	telemetry.RecordError(span, err)
	if err != nil {
		return nil, err
	}
	resp := ToIndicatorResponse(ind)
	return &resp, nil
}

// Approve accepts an indicator's facts. When it was the last indicator
// awaiting approval and the KPI's month is still open, the bonus is
// finalized in the same transaction.
func (s *KPIService) Approve(ctx context.Context, indicatorID uuid.UUID, req ApproveRequest, userID string) (*ApproveResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "kpi", "approve", telemetry.AttrIndicatorID, indicatorID.String())
	defer span.End()

	result := &ApproveResult{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		ind, err := findIndicator(ctx, repos.IndicatorRepo(), indicatorID)
		if err != nil {
			return err
		}
		changed, err := ind.Approve(req.Comment)
		if err != nil {
			return err
		}
		result.Indicator = ToIndicatorResponse(ind)
		if !changed {
			return nil
		}

		if err := repos.IndicatorRepo().Save(ctx, ind); err != nil {
			return err
		}
		if err := repos.AuditRepo().Save(ctx, audit.NewEntry(userID, audit.ActionApprove, auditModelIndicator, ind.ID, map[string]any{
			"comment": ind.HRComment,
		})); err != nil {
			return err
		}

		result.BonusFinalized, err = s.autoFinalize(ctx, repos, ind.KPIID, userID)
		return err
	})
	telemetry.RecordError(span, err)
	if err != nil {
		return nil, err
	}
	if result.BonusFinalized {
		s.metrics.RecordBonusFinalized(ctx, telemetry.FinalizeApproval, false)
		s.logger.Info("bonus finalized on last approval",
			zap.String("indicator_id", indicatorID.String()),
			zap.String("kpi_id", result.Indicator.KPIID.String()),
		)
	}
	return result, nil
}

func (s *KPIService) autoFinalize(ctx context.Context, repos TransactionalRepositories, kpiID uuid.UUID, userID string) (bool, error) {
	k, err := findKPI(ctx, repos.KPIRepo(), kpiID)
	if err != nil {
		return false, err
	}
	if closed, err := monthClosed(ctx, repos.MonthRepo(), k); err != nil || closed {
		return false, err
	}
	inds, err := repos.IndicatorRepo().FindByKPI(ctx, kpiID)
	if err != nil {
		return false, err
	}
	if !kpi.AllApproved(inds) {
		return false, nil
	}
	bonus, err := findBonus(ctx, repos.BonusRepo(), kpiID)
	if errors.Is(err, kpi.ErrBonusNotConfigured) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if bonus.IsCalculated {
		return false, nil
	}
	return true, s.finalize(ctx, repos, bonus, inds, telemetry.FinalizeApproval, userID)
}

// Reject returns an indicator to its owner
func (s *KPIService) Reject(ctx context.Context, indicatorID uuid.UUID, req RejectRequest, userID string) (*IndicatorResponse, error) {
	var ind *kpi.Indicator
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if ind, err = findIndicator(ctx, repos.IndicatorRepo(), indicatorID); err != nil {
			return err
		}
		if _, err := s.editableKPI(ctx, repos, ind.KPIID); err != nil {
			return err
		}
		if err := ind.Reject(req.Reason); err != nil {
			return err
		}
		if err := repos.IndicatorRepo().Save(ctx, ind); err != nil {
			return err
		}
		return repos.AuditRepo().Save(ctx, audit.NewEntry(userID, audit.ActionReject, auditModelIndicator, ind.ID, map[string]any{
			"reason": ind.RejectionReason,
		}))
	})
	if err != nil {
		return nil, err
	}
	resp := ToIndicatorResponse(ind)
	return &resp, nil
}

// CreateNewVersion archives the active KPI and creates its successor with
// draft copies of the indicators and an unfinalized copy of the bonus
func (s *KPIService) CreateNewVersion(ctx context.Context, kpiID uuid.UUID, userID string) (*VersionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "kpi", "new_version", telemetry.AttrKPIID, kpiID.String())
	defer span.End()

	result := &VersionResult{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		k, err := findKPI(ctx, repos.KPIRepo(), kpiID)
		if err != nil {
			return err
		}
		inds, err := repos.IndicatorRepo().FindByKPI(ctx, kpiID)
		if err != nil {
			return err
		}
		next, copies, err := k.NewVersion(inds)
		if err != nil {
			return err
		}

		// the old version is saved first so at most one version is active
		if err := repos.KPIRepo().Save(ctx, k); err != nil {
			return err
		}
		if err := repos.KPIRepo().Save(ctx, next); err != nil {
			return err
		}
		if err := repos.IndicatorRepo().SaveBatch(ctx, copies); err != nil {
			return err
		}
		if err := copyBonus(ctx, repos.BonusRepo(), k.ID, next.ID); err != nil {
			return err
		}
		if err := repos.AuditRepo().Save(ctx, audit.NewEntry(userID, audit.ActionCreate, auditModelKPI, next.ID, map[string]any{
			"previous_id": k.ID.String(),
			"version":     next.Version,
		})); err != nil {
			return err
		}

		result.Previous = ToKPIResponse(k)
		result.Current = ToKPIResponse(next)
		result.Indicators = ToIndicatorResponses(copies)
		return nil
	})
	telemetry.RecordError(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("kpi version created",
		zap.String("previous_id", result.Previous.ID.String()),
		zap.String("kpi_id", result.Current.ID.String()),
		zap.Int("version", result.Current.Version),
	)
	return result, nil
}

// FinalizeBonus freezes the payout of a KPI whose indicators are all approved
func (s *KPIService) FinalizeBonus(ctx context.Context, kpiID uuid.UUID, userID string) (*BonusResponse, error) {
	var bonus *kpi.Bonus
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := findKPI(ctx, repos.KPIRepo(), kpiID); err != nil {
			return err
		}
		inds, err := repos.IndicatorRepo().FindByKPI(ctx, kpiID)
		if err != nil {
			return err
		}
		if !kpi.AllApproved(inds) {
			return kpi.ErrIndicatorsNotApproved
		}
		if bonus, err = findBonus(ctx, repos.BonusRepo(), kpiID); err != nil {
			return err
		}
		return s.finalize(ctx, repos, bonus, inds, telemetry.FinalizeManual, userID)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordBonusFinalized(ctx, telemetry.FinalizeManual, false)
	return ToBonusResponse(bonus), nil
}

// ResetBonus unfreezes a payout. A closed month keeps its payouts.
func (s *KPIService) ResetBonus(ctx context.Context, kpiID uuid.UUID, userID string) (*BonusResponse, error) {
	var bonus *kpi.Bonus
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		k, err := findKPI(ctx, repos.KPIRepo(), kpiID)
		if err != nil {
			return err
		}
		if closed, err := monthClosed(ctx, repos.MonthRepo(), k); err != nil {
			return err
		} else if closed {
			return kpi.ErrMonthClosed
		}
		if bonus, err = findBonus(ctx, repos.BonusRepo(), kpiID); err != nil {
			return err
		}

		previous := bonus.FinalPayout
		bonus.Reset()
		if err := repos.BonusRepo().Save(ctx, bonus); err != nil {
			return err
		}
		return repos.AuditRepo().Save(ctx, audit.NewEntry(userID, audit.ActionReset, auditModelBonus, bonus.ID, map[string]any{
			"kpi_id":          kpiID.String(),
			"previous_payout": previous.String(),
		}))
	})
	if err != nil {
		return nil, err
	}
	return ToBonusResponse(bonus), nil
}

// CloseMonth closes a month and finalizes every unfinalized bonus of its
// active KPIs with the current score. Closing a closed month is a no-op.
func (s *KPIService) CloseMonth(ctx context.Context, month time.Time, userID string) (*CloseMonthResult, error) {
	month = shared.MonthStart(month)
	ctx, span := telemetry.StartServiceSpan(ctx, "kpi", "close_month", telemetry.AttrPeriod, shared.FormatPeriod(month))
	defer span.End()

	result := &CloseMonthResult{Month: shared.FormatPeriod(month)}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		status, err := repos.MonthRepo().FindByMonth(ctx, month)
		if errors.Is(err, shared.ErrNotFound) {
			status, err = kpi.NewMonthStatus(month), nil
		}
		if err != nil {
			return err
		}

		if !status.Close(userID, s.now()) {
			result.AlreadyClosed = true
			result.ClosedBy = status.ClosedBy
			result.ClosedAt = status.ClosedAt
			return nil
		}
		if err := repos.MonthRepo().Save(ctx, status); err != nil {
			return err
		}
		result.ClosedBy = status.ClosedBy
		result.ClosedAt = status.ClosedAt

		ks, err := repos.KPIRepo().FindActiveByMonth(ctx, month)
		if err != nil {
			return err
		}
		for i := range ks {
			finalized, forced, err := s.finalizeOnClose(ctx, repos, ks[i].ID, userID)
			if err != nil {
				return fmt.Errorf("failed to finalize bonus of kpi %s: %w", ks[i].ID, err)
			}
			if finalized {
				result.BonusesFinalized++
			}
			if forced {
				result.ForcedFinalizations++
			}
		}

		return repos.AuditRepo().Save(ctx, audit.NewEntry(userID, audit.ActionClose, auditModelMonth, status.ID, map[string]any{
			"month":                result.Month,
			"bonuses_finalized":    result.BonusesFinalized,
			"forced_finalizations": result.ForcedFinalizations,
		}))
	})
	telemetry.RecordError(span, err)
	if err != nil {
		return nil, err
	}

	if result.AlreadyClosed {
		s.logger.Info("month already closed", zap.String("month", result.Month))
		return result, nil
	}

	s.metrics.RecordMonthClosed(ctx)
	for i := 0; i < result.BonusesFinalized; i++ {
		s.metrics.RecordBonusFinalized(ctx, telemetry.FinalizeMonthClose, i < result.ForcedFinalizations)
	}
	s.logger.Info("month closed",
		zap.String("month", result.Month),
		zap.String("closed_by", userID),
		zap.Int("bonuses_finalized", result.BonusesFinalized),
		zap.Int("forced_finalizations", result.ForcedFinalizations),
	)
	return result, nil
}

// finalizeOnClose freezes an outstanding payout at the current score.
// forced reports that some indicators were still unapproved.
func (s *KPIService) finalizeOnClose(ctx context.Context, repos TransactionalRepositories, kpiID uuid.UUID, userID string) (finalized, forced bool, err error) {
	bonus, err := findBonus(ctx, repos.BonusRepo(), kpiID)
	if errors.Is(err, kpi.ErrBonusNotConfigured) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	if bonus.IsCalculated {
		return false, false, nil
	}
	inds, err := repos.IndicatorRepo().FindByKPI(ctx, kpiID)
	if err != nil {
		return false, false, err
	}
	if err := s.finalize(ctx, repos, bonus, inds, telemetry.FinalizeMonthClose, userID); err != nil {
		return false, false, err
	}
	return true, kpi.Unapproved(inds) > 0, nil
}

// GenerateNextMonth instantiates every active template for the month after
// the current one
func (s *KPIService) GenerateNextMonth(ctx context.Context, userID string) (*GenerateResult, error) {
	return s.GenerateMonth(ctx, shared.NextMonth(s.now()), userID)
}

// GenerateMonth instantiates every active template for month. Templates
// already instantiated for the month, or whose target already has an
// active KPI of that name for the month, are skipped.
func (s *KPIService) GenerateMonth(ctx context.Context, month time.Time, userID string) (*GenerateResult, error) {
	month = shared.MonthStart(month)
	ctx, span := telemetry.StartServiceSpan(ctx, "kpi", "generate_month", telemetry.AttrPeriod, shared.FormatPeriod(month))
	defer span.End()

	result := &GenerateResult{Month: shared.FormatPeriod(month), Created: []KPIResponse{}}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		templates, err := repos.KPIRepo().FindActiveTemplates(ctx)
		if err != nil {
			return err
		}
		for i := range templates {
			created, err := s.instantiate(ctx, repos, &templates[i], month, userID)
			if err != nil {
				return fmt.Errorf("failed to instantiate template %s: %w", templates[i].ID, err)
			}
			if created == nil {
				result.Skipped++
				continue
			}
			result.Created = append(result.Created, ToKPIResponse(created))
		}
		return nil
	})
	telemetry.RecordError(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("kpis generated from templates",
		zap.String("month", result.Month),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *KPIService) instantiate(ctx context.Context, repos TransactionalRepositories, tmpl *kpi.KPI, month time.Time, userID string) (*kpi.KPI, error) {
	exists, err := repos.KPIRepo().ExistsFromTemplate(ctx, tmpl.ID, month)
	if err != nil || exists {
		return nil, err
	}
	inds, err := repos.IndicatorRepo().FindByKPI(ctx, tmpl.ID)
	if err != nil {
		return nil, err
	}
	inst, copies, err := tmpl.Instantiate(month, inds)
	if err != nil {
		return nil, err
	}
	if _, err := repos.KPIRepo().FindActiveByLineage(ctx, inst.Lineage()); err == nil {
		return nil, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if err := repos.KPIRepo().Save(ctx, inst); err != nil {
		return nil, err
	}
	if err := repos.IndicatorRepo().SaveBatch(ctx, copies); err != nil {
		return nil, err
	}
	if err := copyBonus(ctx, repos.BonusRepo(), tmpl.ID, inst.ID); err != nil {
		return nil, err
	}
	return inst, repos.AuditRepo().Save(ctx, audit.NewEntry(userID, audit.ActionGenerate, auditModelKPI, inst.ID, map[string]any{
		"template_id": tmpl.ID.String(),
		"month":       shared.FormatPeriod(month),
	}))
}

// StatusSummary counts the indicators of a month's active KPIs per status
func (s *KPIService) StatusSummary(ctx context.Context, month time.Time) (*kpi.StatusSummary, error) {
	month = shared.MonthStart(month)
	counts, err := s.indicatorRepo.CountByStatus(ctx, month)
	if err != nil {
		return nil, err
	}
	summary := &kpi.StatusSummary{Month: month}
	for status, n := range counts {
		summary.Add(status, n)
	}
	return summary, nil
}

// finalize freezes bonus at the score of inds. The audit entry names the
// trigger and how many indicators were still unapproved.
func (s *KPIService) finalize(ctx context.Context, repos TransactionalRepositories, bonus *kpi.Bonus, inds []kpi.Indicator, trigger, userID string) error {
	score := kpi.TotalScore(inds)
	if err := bonus.Finalize(score, s.now()); err != nil {
		return err
	}
	if err := repos.BonusRepo().Save(ctx, bonus); err != nil {
		return err
	}
	return repos.AuditRepo().Save(ctx, audit.NewEntry(userID, audit.ActionFinalize, auditModelBonus, bonus.ID, map[string]any{
		"kpi_id":                bonus.KPIID.String(),
		"score":                 score.String(),
		"payout":                bonus.FinalPayout.String(),
		"trigger":               trigger,
		"unapproved_indicators": kpi.Unapproved(inds),
	}))
}

// editableKPI loads a KPI that accepts indicator changes: active and not
// in a closed month
func (s *KPIService) editableKPI(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (*kpi.KPI, error) {
	k, err := findKPI(ctx, repos.KPIRepo(), id)
	if err != nil {
		return nil, err
	}
	if !k.IsActive {
		return nil, kpi.ErrKPIInactive
	}
	closed, err := monthClosed(ctx, repos.MonthRepo(), k)
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, kpi.ErrMonthClosed
	}
	return k, nil
}

func findKPI(ctx context.Context, repo kpi.KPIRepository, id uuid.UUID) (*kpi.KPI, error) {
	k, err := repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "KPI not found")
	}
	return k, err
}

func findIndicator(ctx context.Context, repo kpi.IndicatorRepository, id uuid.UUID) (*kpi.Indicator, error) {
	ind, err := repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Indicator not found")
	}
	return ind, err
}

func findBonus(ctx context.Context, repo kpi.BonusRepository, kpiID uuid.UUID) (*kpi.Bonus, error) {
	b, err := repo.FindByKPI(ctx, kpiID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, kpi.ErrBonusNotConfigured
	}
	return b, err
}

func copyBonus(ctx context.Context, repo kpi.BonusRepository, from, to uuid.UUID) error {
	b, err := findBonus(ctx, repo, from)
	if errors.Is(err, kpi.ErrBonusNotConfigured) {
		return nil
	}
	if err != nil {
		return err
	}
	return repo.Save(ctx, b.CopyFor(to))
}

// monthClosed reports whether the KPI's target month is closed. KPIs
// without a month are never locked.
func monthClosed(ctx context.Context, repo kpi.MonthStatusRepository, k *kpi.KPI) (bool, error) {
	if k.ForMonth == nil {
		return false, nil
	}
	status, err := repo.FindByMonth(ctx, *k.ForMonth)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status.IsClosed, nil
}
