package model

import (
	"fmt"
	"strings"
	"time"
)

// EventSource names the trigger family that produced a scheduler event.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type EventSource string

// Severity classifies how degraded a dispatcher run was.
type Severity string

const (
	// EventSourceWorker is a run started through the automation trigger API or CLI.
	EventSourceWorker EventSource = "worker"
	// EventSourceCron is a run started by the in-process cron triggers.
	EventSourceCron EventSource = "cron"

	// SeverityInfo means the run was healthy.
	SeverityInfo Severity = "info"
	// SeverityWarning means some jobs failed or the queue is not draining.
	SeverityWarning Severity = "warning"
	// SeverityCritical means failures crossed a configured threshold.
	SeverityCritical Severity = "critical"
)

// MaxEventErrors caps the error strings kept on one SchedulerEvent.
const MaxEventErrors = 10

// Valid returns true if the EventSource is known.
func (s EventSource) Valid() bool {
	return s == EventSourceWorker || s == EventSourceCron
}

// UnmarshalText implements encoding.TextUnmarshaler for EventSource.
func (s *EventSource) UnmarshalText(text []byte) error {
	v := EventSource(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid EventSource: %q", v)
	}
	*s = v
	return nil
}

// Valid returns true if the Severity is known.
func (s Severity) Valid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}

// Alerting reports whether the severity should notify operators.
func (s Severity) Alerting() bool {
	return s == SeverityWarning || s == SeverityCritical
}

// ProviderThreshold records one provider's failures against its threshold.
type ProviderThreshold struct {
	ProviderID string `json:"provider_id"`
	FailedJobs int    `json:"failed_jobs"`
	Threshold  int    `json:"threshold"`
}

// SchedulerEvent is an append-only telemetry record of one dispatcher run.
type SchedulerEvent struct {
	ID                        string              `json:"id"`
	Source                    EventSource         `json:"source"`
	Operation                 *string             `json:"operation,omitempty"`
	ProcessedJobs             int                 `json:"processed_jobs"`
	SuccessfulJobs            int                 `json:"successful_jobs"`
	FailedJobs                int                 `json:"failed_jobs"`
	HadQueuedJobs             bool                `json:"had_queued_jobs"`
	InspectedQueuedJobs       *int                `json:"inspected_queued_jobs,omitempty"`
	DurationMs                *int64              `json:"duration_ms,omitempty"`
	Errors                    []string            `json:"errors"`
	ProviderFailureThresholds []ProviderThreshold `json:"provider_failure_thresholds"`
	Severity                  Severity            `json:"severity"`
	CreatedAt                 time.Time           `json:"created_at"`
}

// CreateSchedulerEventRequest carries a fully classified event to persist.
type CreateSchedulerEventRequest struct {
	Source                    EventSource
	Operation                 *string
	ProcessedJobs             int
	SuccessfulJobs            int
	FailedJobs                int
	HadQueuedJobs             bool
	InspectedQueuedJobs       *int
	DurationMs                *int64
	Errors                    []string
	ProviderFailureThresholds []ProviderThreshold
	Severity                  Severity
	CreatedAt                 time.Time
}

// SchedulerEventListOptions filters scheduler event listings.
type SchedulerEventListOptions struct {
	Source      *EventSource
	MinSeverity *Severity
	Limit       int
	Offset      int
}
