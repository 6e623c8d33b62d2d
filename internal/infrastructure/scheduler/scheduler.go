// Package scheduler runs named background jobs on cron schedules with a
// per-run timeout and bounded retries.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/kpiplatform/backend/internal/infrastructure/telemetry"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus represents the outcome of the latest run
type JobStatus string

const (
	JobStatusIdle    JobStatus = "IDLE"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobFunc is the body of a job
type JobFunc func(ctx context.Context) error

// Config holds scheduler configuration
type Config struct {
	TimeZone      string
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		TimeZone:      "UTC",
		JobTimeout:    10 * time.Minute,
		RetryAttempts: 3,
		RetryDelay:    time.Minute,
	}
}

// JobState is a snapshot of a registered job
type JobState struct {
	Name          string     `json:"name"`
	Schedule      string     `json:"schedule"`
	Status        JobStatus  `json:"status"`
	Runs          int        `json:"runs"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
}

type job struct {
	fn      JobFunc
	entry   cron.EntryID
	running bool
	state   JobState
}

// Scheduler wraps a cron runner. Runs of the same job never overlap and
// domain errors are not retried since they would fail the same way again.
type Scheduler struct {
	config  Config
	cron    *cron.Cron
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger

	mu        sync.Mutex
	jobs      map[string]*job
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithMetrics records run outcomes and durations
func WithMetrics(m *telemetry.BusinessMetrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// New creates a scheduler evaluating schedules in the configured time zone
func New(config Config, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	if config.JobTimeout <= 0 || config.RetryAttempts < 0 || config.RetryDelay < 0 {
		return nil, ErrInvalidConfig
	}
	loc := time.UTC
	if config.TimeZone != "" {
		l, err := time.LoadLocation(config.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("%w: time zone %q: %v", ErrInvalidConfig, config.TimeZone, err)
		}
		loc = l
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		config: config,
		cron:   cron.New(cron.WithLocation(loc)),
		logger: logger,
		jobs:   make(map[string]*job),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ValidateSchedule checks a standard five-field cron expression
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Register adds a job under a unique name
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	if err := ValidateSchedule(spec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		if err := s.RunNow(s.ctx, name); err != nil && !errors.Is(err, ErrJobAlreadyRunning) {
			s.logger.Error("Scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.jobs[name] = &job{
		fn:    fn,
		entry: id,
		state: JobState{Name: name, Schedule: spec, Status: JobStatusIdle},
	}
	s.logger.Info("Job registered", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// Start begins firing registered jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop cancels running jobs and waits for them until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.isRunning = false
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop().Done()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow executes a job synchronously with the configured timeout and
// retries. It returns the error of the final attempt.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if j.running {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobAlreadyRunning, name)
	}
	j.running = true
	started := time.Now()
	j.state.Status = JobStatusRunning
	j.state.LastRunAt = &started
	j.state.Runs++
	s.mu.Unlock()

	log := s.logger.With(zap.String("job", name))
	log.Info("Job started")

	err := s.attempt(ctx, log, j.fn)

	s.mu.Lock()
	j.running = false
	if err != nil {
		j.state.Status = JobStatusFailed
		j.state.LastError = err.Error()
	} else {
		finished := time.Now()
		j.state.Status = JobStatusSuccess
		j.state.LastError = ""
		j.state.LastSuccessAt = &finished
	}
	status := j.state.Status
	s.mu.Unlock()

	s.metrics.RecordJobRun(ctx, name, string(status), time.Since(started))

	if err != nil {
		return err
	}
	log.Info("Job completed", zap.Duration("duration", time.Since(started)))
	return nil
}

func (s *Scheduler) attempt(ctx context.Context, log *zap.Logger, fn JobFunc) error {
	var err error
	for attempt := 0; attempt <= s.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			log.Info("Retrying job", zap.Int("attempt", attempt), zap.Duration("delay", s.config.RetryDelay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.config.RetryDelay):
			}
		}

		runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
		err = fn(runCtx)
		cancel()
		if err == nil {
			return nil
		}

		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) || ctx.Err() != nil {
			return err
		}
		log.Warn("Job attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	return err
}

// States returns a snapshot of every job sorted by name
func (s *Scheduler) States() []JobState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobState, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := j.state
		if next := s.cron.Entry(j.entry).Next; !next.IsZero() {
			st.NextRunAt = &next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}
