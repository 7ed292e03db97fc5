package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/target/adsync/internal/core"
	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/observability/metrics"
	"github.com/target/adsync/internal/observability/statsd"
)

// MaxErrorMessageRunes bounds the error text stored on a failed job and its integration.
const MaxErrorMessageRunes = 500

// JobProcessorOptions groups dependencies for JobProcessor.
type JobProcessorOptions struct {
	Jobs         core.SyncJobRepository     // Required
	Integrations core.IntegrationRepository // Required
	Fetcher      core.MetricsFetcher        // Required
	Writer       core.MetricsWriter         // Required
	// JobTimeout bounds the fetch and write of one job; zero disables it.
	JobTimeout time.Duration
	Clock      Clock
	Logger     *slog.Logger
	Metrics    statsd.Sink
}

// JobProcessor runs one claimed job to a terminal state.
type JobProcessor struct {
	jobs         core.SyncJobRepository
	integrations core.IntegrationRepository
	fetcher      core.MetricsFetcher
	writer       core.MetricsWriter
	jobTimeout   time.Duration
	now          Clock
	logger       *slog.Logger
	metrics      statsd.Sink
}

// NewJobProcessor constructs a JobProcessor.
func NewJobProcessor(opts JobProcessorOptions) (*JobProcessor, error) {
	switch {
	case opts.Jobs == nil:
		return nil, errors.New("SyncJobRepository is required")
	case opts.Integrations == nil:
		return nil, errors.New("IntegrationRepository is required")
	case opts.Fetcher == nil:
		return nil, errors.New("MetricsFetcher is required")
	case opts.Writer == nil:
		return nil, errors.New("MetricsWriter is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobProcessor{
		jobs:         opts.Jobs,
		integrations: opts.Integrations,
		fetcher:      opts.Fetcher,
		writer:       opts.Writer,
		jobTimeout:   opts.JobTimeout,
		now:          clockOr(opts.Clock),
		logger:       logger.With("component", "job_processor"),
		metrics:      opts.Metrics,
	}, nil
}

// Process fetches, writes and finalizes job. It never retries; a failed job is retried
// only when a later scheduling pass approves a new one.
func (p *JobProcessor) Process(ctx context.Context, job *model.SyncJob) model.JobOutcome {
	start := time.Now()
	logger := p.logger.With("job_id", job.ID, "tenant_id", job.Tenant.ID, "provider_id", job.ProviderID)

	count, err := p.run(ctx, job)
	if err != nil {
		return p.fail(ctx, logger, job, err, time.Since(start))
	}

	ok, err := p.jobs.Complete(ctx, job.ID)
	if err != nil {
		return p.fail(ctx, logger, job, fmt.Errorf("complete job: %w", err), time.Since(start))
	}
	if !ok {
		return p.notRunning(ctx, logger, job, model.SyncJobStatusSuccess)
	}

	p.markOutcome(ctx, logger, job, model.SyncOutcome{Status: model.SyncStatusSuccess, At: p.now()})
	p.emit(job, model.SyncJobStatusSuccess, time.Since(start), nil)
	logger.InfoContext(ctx, "sync job completed", "metrics", count, "duration_ms", time.Since(start).Milliseconds())
	return model.JobOutcome{Status: model.SyncJobStatusSuccess}
}

// run converts a panic in the fetcher or writer into an error so the job and its
// integration are both marked failed.
func (p *JobProcessor) run(ctx context.Context, job *model.SyncJob) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("panic: %v", rec)
		}
	}()

	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	fetched, err := p.fetcher.FetchAndNormalize(ctx, model.FetchRequest{
		Tenant:        job.Tenant,
		ProviderID:    job.ProviderID,
		AccountID:     job.AccountID,
		TimeframeDays: job.TimeframeDays,
	})
	if err != nil {
		return 0, fmt.Errorf("fetch metrics: %w", err)
	}

	written, err := p.writer.WriteMetrics(ctx, model.WriteMetricsRequest{
		Key:     job.Key(),
		JobID:   job.ID,
		Metrics: fetched,
	})
	if err != nil {
		return 0, fmt.Errorf("write metrics: %w", err)
	}
	return written, nil
}

func (p *JobProcessor) fail(ctx context.Context, logger *slog.Logger, job *model.SyncJob, cause error, elapsed time.Duration) model.JobOutcome {
	msg := TruncateMessage(cause.Error(), MaxErrorMessageRunes)
	logger.WarnContext(ctx, "sync job failed", "error", cause)

	ok, err := p.jobs.Fail(ctx, job.ID, msg)
	switch {
	case err != nil:
		logger.ErrorContext(ctx, "fail job", "error", err)
	case !ok:
		return p.notRunning(ctx, logger, job, model.SyncJobStatusError)
	}

	p.markOutcome(ctx, logger, job, model.SyncOutcome{Status: model.SyncStatusError, Message: msg, At: p.now()})
	p.emit(job, model.SyncJobStatusError, elapsed, cause)
	return model.JobOutcome{Status: model.SyncJobStatusError, Message: msg}
}

// notRunning reports a job that left running under us, usually because housekeeping
// reset it. The integration is left alone since the job will run again.
func (p *JobProcessor) notRunning(ctx context.Context, logger *slog.Logger, job *model.SyncJob, target model.SyncJobStatus) model.JobOutcome {
	err := fmt.Errorf("%w: cannot move job %s to %s", model.ErrJobNotRunning, job.ID, target)
	logger.ErrorContext(ctx, "sync job finalize rejected", "target", target, "error", err)
	p.emit(job, model.SyncJobStatusError, 0, err)
	return model.JobOutcome{Status: model.SyncJobStatusError, Message: err.Error()}
}

func (p *JobProcessor) markOutcome(ctx context.Context, logger *slog.Logger, job *model.SyncJob, outcome model.SyncOutcome) {
	if err := p.integrations.MarkSyncOutcome(ctx, job.Key(), outcome); err != nil {
		logger.WarnContext(ctx, "mark sync outcome failed", "status", outcome.Status, "error", err)
	}
}

func (p *JobProcessor) emit(job *model.SyncJob, status model.SyncJobStatus, elapsed time.Duration, err error) {
	result := metrics.ResultSuccess
	if status != model.SyncJobStatusSuccess {
		result = metrics.ResultError
	}
	metrics.EmitJobLifecycle(p.metrics, metrics.JobMetric{
		ProviderID: job.ProviderID,
		JobType:    string(job.JobType),
		Transition: "running_to_" + string(status),
		Result:     result,
		Duration:   elapsed,
		Err:        err,
	})
}

// TruncateMessage shortens msg to at most limit runes.
func TruncateMessage(msg string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(msg) <= limit {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:limit])
}
