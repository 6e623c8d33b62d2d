package scheduler

import (
	"context"
	"time"

	kpiapp "github.com/kpiplatform/backend/internal/application/kpi"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Job names
const (
	JobGenerateNextMonth  = "kpi.generate_next_month"
	JobClosePreviousMonth = "kpi.close_previous_month"
)

// MonthJobRunner is the part of the KPI service driven by the month jobs
type MonthJobRunner interface {
	GenerateNextMonth(ctx context.Context, userID string) (*kpiapp.GenerateResult, error)
	CloseMonth(ctx context.Context, month time.Time, userID string) (*kpiapp.CloseMonthResult, error)
}

// MonthJobsConfig holds the month job schedules. An empty schedule leaves
// the job unregistered.
type MonthJobsConfig struct {
	GenerateSchedule string
	CloseSchedule    string
	User             string
	Now              func() time.Time
}

// RegisterMonthJobs adds template generation for the coming month and the
// close of the month that just ended
func RegisterMonthJobs(s *Scheduler, runner MonthJobRunner, cfg MonthJobsConfig) error {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	if cfg.GenerateSchedule != "" {
		err := s.Register(JobGenerateNextMonth, cfg.GenerateSchedule, func(ctx context.Context) error {
			res, err := runner.GenerateNextMonth(ctx, cfg.User)
			if err != nil {
				return err
			}
			s.logger.Info("Generated KPIs from templates",
				zap.String("month", res.Month),
				zap.Int("created", len(res.Created)),
				zap.Int("skipped", res.Skipped),
			)
			return nil
		})
		if err != nil {
			return err
		}
	}

	if cfg.CloseSchedule != "" {
		err := s.Register(JobClosePreviousMonth, cfg.CloseSchedule, func(ctx context.Context) error {
			month := shared.MonthStart(now()).AddDate(0, -1, 0)
			res, err := runner.CloseMonth(ctx, month, cfg.User)
			if err != nil {
				return err
			}
			s.logger.Info("Closed month",
				zap.String("month", res.Month),
				zap.Bool("already_closed", res.AlreadyClosed),
				zap.Int("bonuses_finalized", res.BonusesFinalized),
			)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
