package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	kpiapp "github.com/kpiplatform/backend/internal/application/kpi"
	"github.com/kpiplatform/backend/internal/domain/kpi"
	"github.com/kpiplatform/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(Config{
		TimeZone:      "UTC",
		JobTimeout:    time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{JobTimeout: 0}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{JobTimeout: time.Second, TimeZone: "Mars/Olympus"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRegister(t *testing.T) {
	s := newTestScheduler(t)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Register("a", "0 3 25 * *", noop))
	assert.ErrorIs(t, s.Register("a", "0 3 25 * *", noop), ErrDuplicateJob)
	assert.Error(t, s.Register("b", "every tuesday", noop))

	states := s.States()
	require.Len(t, states, 1)
	assert.Equal(t, "a", states[0].Name)
	assert.Equal(t, JobStatusIdle, states[0].Status)
}

func TestRunNow(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		s := newTestScheduler(t)
		var calls atomic.Int32
		require.NoError(t, s.Register("flaky", "@daily", func(context.Context) error {
			if calls.Add(1) < 3 {
				return errors.New("connection reset")
			}
			return nil
		}))

		require.NoError(t, s.RunNow(context.Background(), "flaky"))
		assert.Equal(t, int32(3), calls.Load())

		st := s.States()[0]
		assert.Equal(t, JobStatusSuccess, st.Status)
		assert.Equal(t, 1, st.Runs)
		assert.NotNil(t, st.LastSuccessAt)
		assert.Empty(t, st.LastError)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		s := newTestScheduler(t)
		var calls atomic.Int32
		require.NoError(t, s.Register("broken", "@daily", func(context.Context) error {
			calls.Add(1)
			return errors.New("connection reset")
		}))

		assert.EqualError(t, s.RunNow(context.Background(), "broken"), "connection reset")
		assert.Equal(t, int32(3), calls.Load())
		st := s.States()[0]
		assert.Equal(t, JobStatusFailed, st.Status)
		assert.Equal(t, "connection reset", st.LastError)
	})

	t.Run("domain errors are not retried", func(t *testing.T) {
		s := newTestScheduler(t)
		var calls atomic.Int32
		require.NoError(t, s.Register("closed", "@daily", func(context.Context) error {
			calls.Add(1)
			return kpi.ErrMonthClosed
		}))

		assert.ErrorIs(t, s.RunNow(context.Background(), "closed"), kpi.ErrMonthClosed)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("unknown job", func(t *testing.T) {
		s := newTestScheduler(t)
		assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrJobNotFound)
	})

	t.Run("overlapping run is rejected", func(t *testing.T) {
		s := newTestScheduler(t)
		started := make(chan struct{})
		release := make(chan struct{})
		require.NoError(t, s.Register("slow", "@daily", func(context.Context) error {
			close(started)
			<-release
			return nil
		}))

		done := make(chan error, 1)
		go func() { done <- s.RunNow(context.Background(), "slow") }()
		<-started
		assert.ErrorIs(t, s.RunNow(context.Background(), "slow"), ErrJobAlreadyRunning)
		close(release)
		assert.NoError(t, <-done)
	})

	t.Run("job sees the timeout", func(t *testing.T) {
		s, err := New(Config{JobTimeout: 10 * time.Millisecond}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, s.Register("hang", "@daily", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))
		assert.ErrorIs(t, s.RunNow(context.Background(), "hang"), context.DeadlineExceeded)
	})
}

func TestRunNow_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	bm, err := telemetry.NewBusinessMetrics(telemetry.NewMeterProviderWithReader(reader, zap.NewNop()).Meter("kpi.business"))
	require.NoError(t, err)

	s, err := New(Config{JobTimeout: time.Second}, zap.NewNop(), WithMetrics(bm))
	require.NoError(t, err)
	require.NoError(t, s.Register("ok", "@daily", func(context.Context) error { return nil }))
	require.NoError(t, s.Register("closed", "@daily", func(context.Context) error { return kpi.ErrMonthClosed }))

	require.NoError(t, s.RunNow(ctx, "ok"))
	require.NoError(t, s.RunNow(ctx, "ok"))
	require.Error(t, s.RunNow(ctx, "closed"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	runs := map[string]int64{}
	var durations uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if m.Name != "kpi_job_run_total" {
					continue
				}
				for _, dp := range data.DataPoints {
					job, _ := dp.Attributes.Value(telemetry.AttrJob)
					status, _ := dp.Attributes.Value(telemetry.AttrJobStatus)
					runs[job.AsString()+"/"+status.AsString()] += dp.Value
				}
			case metricdata.Histogram[float64]:
				if m.Name != "kpi_job_duration_seconds" {
					continue
				}
				for _, dp := range data.DataPoints {
					durations += dp.Count
				}
			}
		}
	}
	assert.Equal(t, map[string]int64{"ok/SUCCESS": 2, "closed/FAILED": 1}, runs)
	assert.Equal(t, uint64(3), durations)
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(t)
	assert.ErrorIs(t, s.Stop(context.Background()), ErrSchedulerNotRunning)

	require.NoError(t, s.Register("a", "0 3 25 * *", func(context.Context) error { return nil }))
	s.Start()
	s.Start()

	st := s.States()[0]
	require.NotNil(t, st.NextRunAt)
	assert.Equal(t, 25, st.NextRunAt.Day())
	assert.Equal(t, 3, st.NextRunAt.Hour())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

type fakeRunner struct {
	generated []string
	closed    []time.Time
}

func (f *fakeRunner) GenerateNextMonth(_ context.Context, userID string) (*kpiapp.GenerateResult, error) {
	f.generated = append(f.generated, userID)
	return &kpiapp.GenerateResult{Month: "2025-06", Skipped: 1}, nil
}

func (f *fakeRunner) CloseMonth(_ context.Context, month time.Time, userID string) (*kpiapp.CloseMonthResult, error) {
	f.closed = append(f.closed, month)
	return &kpiapp.CloseMonthResult{Month: month.Format("2006-01"), ClosedBy: userID}, nil
}

func TestRegisterMonthJobs(t *testing.T) {
	s := newTestScheduler(t)
	runner := &fakeRunner{}
	now := time.Date(2025, time.June, 1, 2, 0, 0, 0, time.UTC)

	require.NoError(t, RegisterMonthJobs(s, runner, MonthJobsConfig{
		GenerateSchedule: "0 3 25 * *",
		CloseSchedule:    "0 1 1 * *",
		User:             "scheduler",
		Now:              func() time.Time { return now },
	}))
	require.Len(t, s.States(), 2)

	require.NoError(t, s.RunNow(context.Background(), JobGenerateNextMonth))
	assert.Equal(t, []string{"scheduler"}, runner.generated)

	require.NoError(t, s.RunNow(context.Background(), JobClosePreviousMonth))
	require.Len(t, runner.closed, 1)
	assert.Equal(t, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), runner.closed[0])
}

func TestRegisterMonthJobs_EmptySchedulesSkipped(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, RegisterMonthJobs(s, &fakeRunner{}, MonthJobsConfig{GenerateSchedule: "0 3 25 * *"}))

	states := s.States()
	require.Len(t, states, 1)
	assert.Equal(t, JobGenerateNextMonth, states[0].Name)
	assert.ErrorIs(t, s.RunNow(context.Background(), JobClosePreviousMonth), ErrJobNotFound)
}
