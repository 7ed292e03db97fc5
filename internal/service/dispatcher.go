package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/target/adsync/internal/core"
	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/observability/metrics"
	"github.com/target/adsync/internal/observability/statsd"
)

// Dispatcher limits and defaults.
const (
	DefaultMaxJobs       = 10
	MaxMaxJobs           = 25
	DefaultMaxTenants    = 50
	MaxMaxTenants        = 100
	DefaultPerTenantCap  = 3
	DefaultPeekLimit     = 3
	DefaultInterJobDelay = 250 * time.Millisecond
)

// ErrTenantDiscovery is returned when the tenants with queued work cannot be listed.
var ErrTenantDiscovery = errors.New("tenant discovery failed")

// JobRunner processes one claimed job. *JobProcessor implements it.
type JobRunner interface {
	Process(ctx context.Context, job *model.SyncJob) model.JobOutcome
}

// DispatchOptions caps one run; zero values take the dispatcher defaults.
type DispatchOptions struct {
	MaxJobs    int
	MaxTenants int
}

// DispatcherOptions groups dependencies for Dispatcher.
type DispatcherOptions struct {
	Jobs      core.SyncJobRepository // Required
	Processor JobRunner              // Required

	DefaultMaxJobs    int
	DefaultMaxTenants int
	PerTenantCap      int
	PeekLimit         int
	// InterJobDelay is slept after each processed job while budget remains. Negative disables it.
	InterJobDelay time.Duration
	// TenantConcurrency is how many tenants are drained in parallel.
	TenantConcurrency int

	Clock   Clock
	Sleep   SleepFunc
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Dispatcher drives one bounded batch of claim and process across tenants.
type Dispatcher struct {
	jobs              core.SyncJobRepository
	processor         JobRunner
	defaultMaxJobs    int
	defaultMaxTenants int
	perTenantCap      int
	peekLimit         int
	delay             time.Duration
	concurrency       int
	now               Clock
	sleep             SleepFunc
	logger            *slog.Logger
	metrics           statsd.Sink
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Jobs == nil {
		return nil, errors.New("SyncJobRepository is required")
	}
	if opts.Processor == nil {
		return nil, errors.New("JobRunner is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		jobs:              opts.Jobs,
		processor:         opts.Processor,
		defaultMaxJobs:    clampOr(opts.DefaultMaxJobs, DefaultMaxJobs, MaxMaxJobs),
		defaultMaxTenants: clampOr(opts.DefaultMaxTenants, DefaultMaxTenants, MaxMaxTenants),
		perTenantCap:      positiveOr(opts.PerTenantCap, DefaultPerTenantCap),
		peekLimit:         positiveOr(opts.PeekLimit, DefaultPeekLimit),
		delay:             opts.InterJobDelay,
		concurrency:       positiveOr(opts.TenantConcurrency, 1),
		now:               clockOr(opts.Clock),
		sleep:             opts.Sleep,
		logger:            logger.With("component", "dispatcher"),
		metrics:           opts.Metrics,
	}
	if d.delay == 0 {
		d.delay = DefaultInterJobDelay
	}
	if d.sleep == nil {
		d.sleep = sleepContext
	}
	return d, nil
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func clampOr(v, def, upper int) int {
	return min(positiveOr(v, def), upper)
}

// run is the mutable state of one invocation.
type run struct {
	mu      sync.Mutex
	summary model.RunSummary
	budget  atomic.Int64
	maxJobs int64
	logger  *slog.Logger
}

// reserve takes one unit of the job budget.
func (r *run) reserve() bool {
	if r.budget.Add(1) > r.maxJobs {
		r.budget.Add(-1)
		return false
	}
	return true
}

func (r *run) release() { r.budget.Add(-1) }

func (r *run) exhausted() bool { return r.budget.Load() >= r.maxJobs }

func (r *run) addError(e model.RunError) {
	r.mu.Lock()
	r.summary.Errors = append(r.summary.Errors, e)
	r.mu.Unlock()
}

func (r *run) observeQueued(n int) {
	r.mu.Lock()
	r.summary.HadQueuedJobs = true
	r.summary.InspectedQueuedJobs += n
	r.mu.Unlock()
}

func (r *run) recordJob(job *model.SyncJob, out model.JobOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &r.summary
	s.ProcessedJobs++
	res := model.JobResult{
		JobID:      job.ID,
		TenantID:   job.Tenant.ID,
		ProviderID: job.ProviderID,
		AccountID:  job.AccountID,
		Status:     out.Status,
	}
	if out.Succeeded() {
		s.SuccessfulJobs++
	} else {
		res.Status = model.SyncJobStatusError
		res.Error = out.Message
		s.FailedJobs++
		s.ProviderFailures[job.ProviderID]++
		s.Errors = append(s.Errors, model.RunError{TenantID: job.Tenant.ID, ProviderID: job.ProviderID, Error: out.Message})
	}
	if len(s.JobResults) < model.MaxJobResults {
		s.JobResults = append(s.JobResults, res)
	}
}

// Run processes at most MaxJobs queued jobs across at most MaxTenants tenants. Job
// failures are counted in the summary; only a tenant-listing failure is returned, wrapped
// in ErrTenantDiscovery, together with the partial summary.
func (d *Dispatcher) Run(ctx context.Context, opts DispatchOptions) (model.RunSummary, error) {
	start := time.Now()
	maxJobs := clampOr(opts.MaxJobs, d.defaultMaxJobs, MaxMaxJobs)
	maxTenants := clampOr(opts.MaxTenants, d.defaultMaxTenants, MaxMaxTenants)

	r := &run{
		maxJobs: int64(maxJobs),
		summary: model.RunSummary{
			RunID:            uuid.NewString(),
			StartedAt:        d.now(),
			JobResults:       []model.JobResult{},
			ProviderFailures: map[string]int{},
		},
	}
	r.logger = d.logger.With("run_id", r.summary.RunID)

	finish := func(err error) (model.RunSummary, error) {
		elapsed := time.Since(start)
		r.summary.DurationMs = elapsed.Milliseconds()
		metrics.EmitDispatchRun(d.metrics, metrics.RunMetric{
			Source:     "dispatcher",
			Processed:  r.summary.ProcessedJobs,
			Succeeded:  r.summary.SuccessfulJobs,
			Failed:     r.summary.FailedJobs,
			Inspected:  r.summary.InspectedQueuedJobs,
			Duration:   elapsed,
			Discovered: !errors.Is(err, ErrTenantDiscovery),
		})
		r.logger.InfoContext(ctx, "dispatcher run finished",
			"max_jobs", maxJobs,
			"processed", r.summary.ProcessedJobs,
			"succeeded", r.summary.SuccessfulJobs,
			"failed", r.summary.FailedJobs,
			"had_queued", r.summary.HadQueuedJobs,
			"duration_ms", r.summary.DurationMs,
		)
		return r.summary, err
	}

	tenants, err := d.jobs.ListTenantsWithQueued(ctx, maxTenants)
	if err != nil {
		r.addError(model.RunError{Error: "list tenants: " + err.Error()})
		r.logger.ErrorContext(ctx, "tenant discovery failed", "error", err)
		return finish(fmt.Errorf("%w: %w", ErrTenantDiscovery, err))
	}

	g := new(errgroup.Group)
	g.SetLimit(d.concurrency)
	for _, tenant := range tenants {
		if r.exhausted() || ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			d.drainTenant(ctx, r, tenant)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		r.addError(model.RunError{Error: "run interrupted: " + ctx.Err().Error()})
	}
	return finish(nil)
}

// drainTenant claims and processes up to min(peek, perTenantCap, remaining budget) jobs.
// A peek or claim error ends only this tenant.
func (d *Dispatcher) drainTenant(ctx context.Context, r *run, tenant model.TenantRef) {
	if r.exhausted() || ctx.Err() != nil {
		return
	}

	count, err := d.jobs.CountQueued(ctx, tenant, d.peekLimit)
	if err != nil {
		r.logger.WarnContext(ctx, "count queued failed", "tenant_id", tenant.ID, "error", err)
		r.addError(model.RunError{TenantID: tenant.ID, Error: "count queued: " + err.Error()})
		return
	}
	if count <= 0 {
		return
	}
	r.observeQueued(count)

	limit := min(count, d.perTenantCap)
	for range limit {
		if ctx.Err() != nil || !r.reserve() {
			return
		}
		job, err := d.jobs.ClaimNext(ctx, tenant)
		if err != nil {
			r.release()
			r.logger.WarnContext(ctx, "claim failed", "tenant_id", tenant.ID, "error", err)
			r.addError(model.RunError{TenantID: tenant.ID, Error: "claim: " + err.Error()})
			return
		}
		if job == nil {
			// Another dispatcher drained the tenant first.
			r.release()
			return
		}

		r.recordJob(job, d.process(ctx, r, job))

		if !r.exhausted() {
			if err := d.sleep(ctx, d.delay); err != nil {
				return
			}
		}
	}
}

// process runs the processor. The processor recovers panics from fetch and write itself;
// this catches anything that escapes it so one job cannot take down the run. The job
// is failed in the queue so it does not wait for housekeeping.
func (d *Dispatcher) process(ctx context.Context, r *run, job *model.SyncJob) (out model.JobOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "job processor panicked", "job_id", job.ID, "panic", rec)
			out = model.JobOutcome{Status: model.SyncJobStatusError, Message: fmt.Sprintf("panic: %v", rec)}
			if _, err := d.jobs.Fail(ctx, job.ID, TruncateMessage(out.Message, MaxErrorMessageRunes)); err != nil {
				r.logger.ErrorContext(ctx, "fail panicked job", "job_id", job.ID, "error", err)
			}
		}
	}()
	return d.processor.Process(ctx, job)
}
