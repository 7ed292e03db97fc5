// Package cron runs the in-process schedule and dispatch triggers.
package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/target/adsync/config"
	"github.com/target/adsync/internal/core"
	"github.com/target/adsync/internal/domain/model"
	obserrors "github.com/target/adsync/internal/observability/errors"
	"github.com/target/adsync/internal/observability/metrics"
	"github.com/target/adsync/internal/observability/statsd"
)

// Trigger names double as lease names and metric tags.
const (
	TriggerSchedule = "schedule"
	TriggerDispatch = "dispatch"
)

// Executor runs orchestrator operations. *service.Orchestrator implements it.
type Executor interface {
	Execute(ctx context.Context, op model.Operation) (model.OperationResult, error)
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Executor Executor          // Required
	Leases   core.LeaseStore   // Optional: nil runs every tick on every replica
	Config   config.CronConfig // Required
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

type trigger struct {
	name string
	spec string
	op   model.Operation
}

// Runner owns a robfig cron scheduler with one entry per configured trigger.
type Runner struct {
	executor Executor
	leases   core.LeaseStore
	cfg      config.CronConfig
	triggers []trigger
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewRunner validates the trigger specs and creates a Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		executor: opts.Executor,
		leases:   opts.Leases,
		cfg:      opts.Config,
		logger:   logger.With("component", "cron_runner"),
		metrics:  opts.Metrics,
	}
	if spec := opts.Config.ScheduleSpec; spec != "" {
		r.triggers = append(r.triggers, trigger{
			name: TriggerSchedule,
			spec: spec,
			op: model.ScheduleOperation{
				Source:  model.EventSourceCron,
				Request: model.ScheduleRequest{AllTenants: true},
			},
		})
	}
	if spec := opts.Config.DispatchSpec; spec != "" {
		r.triggers = append(r.triggers, trigger{
			name: TriggerDispatch,
			spec: spec,
			op:   model.DispatchOperation{Source: model.EventSourceCron},
		})
	}
	return r, nil
}

// Triggers returns the names of the enabled triggers.
func (r *Runner) Triggers() []string {
	names := make([]string, 0, len(r.triggers))
	for _, t := range r.triggers {
		names = append(names, t.name)
	}
	return names
}

// Run schedules every trigger and blocks until ctx is cancelled, then waits for running
// ticks to finish. Returns nil on graceful shutdown (context.Canceled).
func (r *Runner) Run(ctx context.Context) error {
	cl := slogCronLogger{r.logger}
	c := robfig.New(
		robfig.WithLocation(time.UTC),
		robfig.WithLogger(cl),
		robfig.WithChain(robfig.Recover(cl), robfig.SkipIfStillRunning(cl)),
	)
	for _, t := range r.triggers {
		if _, err := c.AddFunc(t.spec, func() { _ = r.tick(ctx, t) }); err != nil {
			return fmt.Errorf("add %s trigger: %w", t.name, err)
		}
	}

	r.logger.InfoContext(ctx, "starting cron runner", "triggers", r.Triggers())
	c.Start()
	<-ctx.Done()

	r.logger.InfoContext(ctx, "cron runner stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// Fire runs the named trigger once, outside the cron schedule.
func (r *Runner) Fire(ctx context.Context, name string) error {
	for _, t := range r.triggers {
		if t.name == name {
			return r.tick(ctx, t)
		}
	}
	return fmt.Errorf("unknown trigger %q", name)
}

func (r *Runner) tick(ctx context.Context, t trigger) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	start := time.Now()
	logger := r.logger.With("trigger", t.name)

	if r.leases != nil {
		release, acquired, err := r.leases.TryAcquire(ctx, "cron:"+t.name, r.cfg.LeaseTTL)
		if err != nil {
			logger.WarnContext(ctx, "cron lease failed", "error", err)
			r.emit(t.name, metrics.ResultError, 0, err)
			return fmt.Errorf("acquire %s lease: %w", t.name, err)
		}
		if !acquired {
			logger.DebugContext(ctx, "cron tick held by another replica")
			r.emit(t.name, metrics.ResultNoop, 0, nil)
			return nil
		}
		defer func() {
			// Released on a fresh context so shutdown does not leave the lease behind.
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := release(relCtx); err != nil {
				logger.WarnContext(ctx, "cron lease release failed", "error", err)
			}
		}()
	}

	runCtx := ctx
	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}

	res, err := r.executor.Execute(runCtx, t.op)
	elapsed := time.Since(start)
	if err != nil {
		logger.ErrorContext(ctx, "cron tick failed", "error", err, "duration_ms", elapsed.Milliseconds())
		r.emit(t.name, metrics.ResultError, elapsed, err)
		return err
	}

	attrs := []any{"duration_ms", elapsed.Milliseconds()}
	switch {
	case res.Dispatch != nil:
		attrs = append(attrs, "processed", res.Dispatch.Summary.ProcessedJobs, "severity", res.Dispatch.Severity)
	case res.Schedule != nil:
		attrs = append(attrs, "evaluated", res.Schedule.Evaluated, "enqueued", res.Schedule.Enqueued)
	}
	logger.InfoContext(ctx, "cron tick finished", attrs...)
	r.emit(t.name, metrics.ResultSuccess, elapsed, nil)
	return nil
}

func (r *Runner) emit(name, result string, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}
	tags := map[string]string{"trigger": name, "result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	r.metrics.Count("cron.tick", 1, tags)
	if elapsed > 0 {
		r.metrics.Timing("cron.tick_duration", elapsed, map[string]string{"trigger": name, "result": result})
	}
	if result == metrics.ResultSuccess {
		r.metrics.Gauge("cron.last_success_epoch", float64(time.Now().Unix()), map[string]string{"trigger": name})
	}
}

// slogCronLogger adapts slog to robfig.Logger.
type slogCronLogger struct{ l *slog.Logger }

func (s slogCronLogger) Info(msg string, keysAndValues ...any) {
	s.l.Debug(msg, keysAndValues...)
}

func (s slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	s.l.Error(msg, append(keysAndValues, "error", err)...)
}
