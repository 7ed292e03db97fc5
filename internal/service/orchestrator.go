package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/target/adsync/internal/domain/model"
)

// defaultRecordTimeout bounds recording a dispatcher run once the run's own context
// has ended.
const defaultRecordTimeout = 15 * time.Second

// Narrow views of the services the orchestrator drives; the concrete services implement them.
type (
	// BatchDispatcher runs one dispatcher batch.
	BatchDispatcher interface {
		Run(ctx context.Context, opts DispatchOptions) (model.RunSummary, error)
	}
	// Scheduler applies the scheduling policy.
	Scheduler interface {
		Schedule(ctx context.Context, req model.ScheduleRequest) (*model.ScheduleResult, error)
	}
	// Housekeeper runs one cleanup pass.
	Housekeeper interface {
		RunOnce(ctx context.Context) (model.HousekeepingResult, error)
	}
	// RunRecorder classifies and records a dispatcher run.
	RunRecorder interface {
		Record(ctx context.Context, in RecordInput) RecordResult
	}
)

// OrchestratorOptions groups dependencies for Orchestrator.
type OrchestratorOptions struct {
	Dispatcher BatchDispatcher // Required
	Scheduling Scheduler       // Required
	Reaper     Housekeeper     // Required
	Monitor    RunRecorder     // Required

	// RecordTimeout bounds persisting the event and sending the alert for a run.
	RecordTimeout time.Duration
	Logger        *slog.Logger
}

// Orchestrator is the single entry point used by the HTTP triggers, the cron runner
// and the admin CLI.
type Orchestrator struct {
	dispatcher BatchDispatcher
	scheduling Scheduler
	reaper     Housekeeper
	monitor    RunRecorder
	recordTTL  time.Duration
	logger     *slog.Logger
}

var _ model.OperationHandler = (*Orchestrator)(nil)

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	switch {
	case opts.Dispatcher == nil:
		return nil, errors.New("dispatcher is required")
	case opts.Scheduling == nil:
		return nil, errors.New("scheduling service is required")
	case opts.Reaper == nil:
		return nil, errors.New("reaper is required")
	case opts.Monitor == nil:
		return nil, errors.New("monitor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recordTTL := opts.RecordTimeout
	if recordTTL <= 0 {
		recordTTL = defaultRecordTimeout
	}
	return &Orchestrator{
		dispatcher: opts.Dispatcher,
		scheduling: opts.Scheduling,
		reaper:     opts.Reaper,
		monitor:    opts.Monitor,
		recordTTL:  recordTTL,
		logger:     logger.With("component", "orchestrator"),
	}, nil
}

// Execute runs op through its handler method.
func (o *Orchestrator) Execute(ctx context.Context, op model.Operation) (model.OperationResult, error) {
	start := time.Now()
	res, err := op.Apply(ctx, o)
	res.Operation = op.Name()

	attrs := []any{"operation", op.Name(), "duration_ms", time.Since(start).Milliseconds()}
	if err != nil {
		o.logger.ErrorContext(ctx, "operation failed", append(attrs, "error", err)...)
	} else {
		o.logger.DebugContext(ctx, "operation finished", attrs...)
	}
	return res, err
}

// HandleDispatch runs one batch and records it. The result carries the summary even
// when tenant discovery failed. Recording runs on a detached context so an interrupted
// run still persists its event and alerts.
func (o *Orchestrator) HandleDispatch(ctx context.Context, op model.DispatchOperation) (model.OperationResult, error) {
	summary, runErr := o.dispatcher.Run(ctx, DispatchOptions{MaxJobs: op.MaxJobs, MaxTenants: op.MaxTenants})

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.recordTTL)
	defer cancel()
	rec := o.monitor.Record(recCtx, RecordInput{
		Source:    op.Source,
		Operation: op.Name(),
		Summary:   &summary,
	})
	logger := o.logger.With("run_id", summary.RunID)
	rec.Persist.Log(recCtx, logger, "persist scheduler event")
	rec.Alert.Log(recCtx, logger, "deliver alert")

	return model.OperationResult{
		Dispatch: &model.DispatchResult{Summary: summary, Severity: rec.Severity},
	}, runErr
}

// HandleSchedule evaluates the scheduling policy.
func (o *Orchestrator) HandleSchedule(ctx context.Context, op model.ScheduleOperation) (model.OperationResult, error) {
	res, err := o.scheduling.Schedule(ctx, op.Request)
	return model.OperationResult{Schedule: res}, err
}

// HandleHousekeeping runs one cleanup pass.
func (o *Orchestrator) HandleHousekeeping(ctx context.Context, _ model.HousekeepingOperation) (model.OperationResult, error) {
	res, err := o.reaper.RunOnce(ctx)
	return model.OperationResult{Housekeeping: &res}, err
}
