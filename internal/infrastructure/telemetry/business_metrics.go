package telemetry

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when instruments are created without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Upload outcomes
const (
	UploadStored            = "stored"
	UploadNeedsConfirmation = "needs_confirmation"
	UploadRejected          = "rejected"
	UploadFailed            = "failed"
)

// Bonus finalization triggers
const (
	FinalizeManual     = "manual"
	FinalizeApproval   = "approval"
	FinalizeMonthClose = "month_close"
)

// BusinessMetrics counts ingestion and KPI lifecycle events. A nil
// *BusinessMetrics records nothing, so services hold one unconditionally.
type BusinessMetrics struct {
	uploadTotal      *Counter
	uploadRowsTotal  *Counter
	bonusFinalized   *Counter
	monthClosedTotal *Counter
	jobRunTotal      *Counter
	jobDuration      *Histogram
}

// NewBusinessMetrics creates the instruments on meter
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	bm := &BusinessMetrics{}
	var err error
	if bm.uploadTotal, err = NewCounter(meter, "kpi_upload_total",
		"Workbook uploads by document kind and outcome", "{upload}"); err != nil {
		return nil, err
	}
	if bm.uploadRowsTotal, err = NewCounter(meter, "kpi_upload_rows_total",
		"Rows stored from uploads by document kind", "{row}"); err != nil {
		return nil, err
	}
	if bm.bonusFinalized, err = NewCounter(meter, "kpi_bonus_finalized_total",
		"Bonus payouts frozen by trigger", "{bonus}"); err != nil {
		return nil, err
	}
	if bm.monthClosedTotal, err = NewCounter(meter, "kpi_month_closed_total",
		"Months closed", "{month}"); err != nil {
		return nil, err
	}
	if bm.jobRunTotal, err = NewCounter(meter, "kpi_job_run_total",
		"Scheduled job runs by job and status", "{run}"); err != nil {
		return nil, err
	}
	if bm.jobDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "kpi_job_duration_seconds",
		Description: "Scheduled job run time including retries",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordUpload counts one file of an upload request
func (bm *BusinessMetrics) RecordUpload(ctx context.Context, kind, outcome string) {
	if bm == nil {
		return
	}
	bm.uploadTotal.Inc(ctx, AttrDocumentKind.String(kind), AttrOutcome.String(outcome))
}

// RecordUploadRows adds stored rows of one document kind
func (bm *BusinessMetrics) RecordUploadRows(ctx context.Context, kind string, rows int) {
	if bm == nil || rows <= 0 {
		return
	}
	bm.uploadRowsTotal.Add(ctx, int64(rows), AttrDocumentKind.String(kind))
}

// RecordBonusFinalized counts a frozen payout. forced marks payouts frozen
// while some indicators were still unapproved.
func (bm *BusinessMetrics) RecordBonusFinalized(ctx context.Context, trigger string, forced bool) {
	if bm == nil {
		return
	}
	bm.bonusFinalized.Inc(ctx, AttrTrigger.String(trigger), AttrForced.String(strconv.FormatBool(forced)))
}

// RecordMonthClosed counts a month transition to closed
func (bm *BusinessMetrics) RecordMonthClosed(ctx context.Context) {
	if bm == nil {
		return
	}
	bm.monthClosedTotal.Inc(ctx)
}

// RecordJobRun records the outcome and duration of a scheduled run
func (bm *BusinessMetrics) RecordJobRun(ctx context.Context, job, status string, elapsed time.Duration) {
	if bm == nil {
		return
	}
	bm.jobRunTotal.Inc(ctx, AttrJob.String(job), AttrJobStatus.String(status))
	bm.jobDuration.RecordDuration(ctx, elapsed, AttrJob.String(job))
}
