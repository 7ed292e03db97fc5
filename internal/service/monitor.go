package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/target/adsync/internal/core"
	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/domain/telemetry"
	"github.com/target/adsync/internal/observability/metrics"
	"github.com/target/adsync/internal/observability/notify"
	"github.com/target/adsync/internal/observability/statsd"
)

// BestEffort is the result of a side effect that may fail independently of the run it
// describes. Callers log it and never return it.
type BestEffort struct {
	Attempted bool
	Err       error
}

// Failed reports whether the side effect was attempted and failed.
func (b BestEffort) Failed() bool { return b.Attempted && b.Err != nil }

// Log writes a warning when the side effect failed.
func (b BestEffort) Log(ctx context.Context, logger *slog.Logger, what string) {
	if b.Failed() && logger != nil {
		logger.WarnContext(ctx, what+" failed", "error", b.Err)
	}
}

// MonitorOptions groups dependencies for Monitor.
type MonitorOptions struct {
	Events     core.SchedulerEventRepository // Required
	Alerts     notify.Sink                   // Optional: nil disables alerting
	Thresholds telemetry.Thresholds
	Clock      Clock
	Logger     *slog.Logger
	Metrics    statsd.Sink
}

// Monitor classifies dispatcher runs, persists them as scheduler events, and alerts
// on degraded ones.
type Monitor struct {
	events     core.SchedulerEventRepository
	alerts     notify.Sink
	thresholds telemetry.Thresholds
	now        Clock
	logger     *slog.Logger
	metrics    statsd.Sink
}

// NewMonitor constructs a Monitor.
func NewMonitor(opts MonitorOptions) (*Monitor, error) {
	if opts.Events == nil {
		return nil, errors.New("SchedulerEventRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		events:     opts.Events,
		alerts:     opts.Alerts,
		thresholds: opts.Thresholds,
		now:        clockOr(opts.Clock),
		logger:     logger.With("component", "event_monitor"),
		metrics:    opts.Metrics,
	}, nil
}

// RecordInput describes one finished run.
type RecordInput struct {
	Source    model.EventSource
	Operation model.OperationName
	Summary   *model.RunSummary
}

// RecordResult reports the classification and the outcome of each side effect.
type RecordResult struct {
	Severity  model.Severity
	Providers []model.ProviderThreshold
	Event     *model.SchedulerEvent
	Persist   BestEffort
	Alert     BestEffort
}

// Record classifies the run, persists a scheduler event and alerts when the run is
// degraded. It never fails; side-effect failures are reported in the result.
func (m *Monitor) Record(ctx context.Context, in RecordInput) RecordResult {
	summary := in.Summary
	if summary == nil {
		summary = &model.RunSummary{}
	}
	source := in.Source
	if !source.Valid() {
		source = model.EventSourceWorker
	}

	class := telemetry.Classify(summary, m.thresholds)
	out := RecordResult{Severity: class.Severity, Providers: class.Providers}
	metrics.EmitSeverity(m.metrics, string(source), string(class.Severity))

	op := string(in.Operation)
	event, err := m.persist(ctx, source, op, summary, class)
	out.Persist = BestEffort{Attempted: true, Err: err}
	out.Event = event

	if class.Severity.Alerting() && m.alerts != nil {
		alert := notify.Alert{
			Severity: class.Severity,
			Message: telemetry.BuildAlertMessage(telemetry.AlertMessageInput{
				Source:          source,
				Operation:       op,
				Severity:        class.Severity,
				Summary:         summary,
				GlobalThreshold: m.thresholds.GlobalThreshold(),
				Providers:       class.Providers,
			}),
			Source:    source,
			Timestamp: m.now(),
			Operation: op,
			RunID:     summary.RunID,
		}
		out.Alert = BestEffort{Attempted: true, Err: m.alerts.SendAlert(ctx, alert)}
	}

	m.logger.InfoContext(ctx, "dispatcher run classified",
		"run_id", summary.RunID,
		"source", source,
		"severity", class.Severity,
		"failed", summary.FailedJobs,
		"alerted", out.Alert.Attempted,
	)
	return out
}

func (m *Monitor) persist(
	ctx context.Context,
	source model.EventSource,
	op string,
	summary *model.RunSummary,
	class telemetry.Classification,
) (*model.SchedulerEvent, error) {
	inspected := summary.InspectedQueuedJobs
	duration := summary.DurationMs
	req := &model.CreateSchedulerEventRequest{
		Source:                    source,
		ProcessedJobs:             summary.ProcessedJobs,
		SuccessfulJobs:            summary.SuccessfulJobs,
		FailedJobs:                summary.FailedJobs,
		HadQueuedJobs:             summary.HadQueuedJobs,
		InspectedQueuedJobs:       &inspected,
		DurationMs:                &duration,
		Errors:                    telemetry.CapErrors(summary.Errors),
		ProviderFailureThresholds: class.Providers,
		Severity:                  class.Severity,
		CreatedAt:                 m.now(),
	}
	if op != "" {
		req.Operation = &op
	}
	return m.events.Create(ctx, req)
}

// RecentEvents lists persisted scheduler events, newest first.
func (m *Monitor) RecentEvents(ctx context.Context, opts model.SchedulerEventListOptions) ([]*model.SchedulerEvent, error) {
	return m.events.List(ctx, opts)
}
