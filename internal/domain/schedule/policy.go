// Package schedule holds the pure decision logic that gates enqueueing of sync jobs.
package schedule

import (
	"time"

	"github.com/target/adsync/internal/domain/model"
)

const (
	// DefaultCadence is used when an integration has no sync frequency configured.
	DefaultCadence = 6 * time.Hour
	// DefaultTimeframeDays is used when neither the request nor the integration sets a timeframe.
	DefaultTimeframeDays = 90
	// DefaultMaxTimeframeDays is the upper clamp for the effective timeframe.
	DefaultMaxTimeframeDays = 365
)

// Reason explains a Decision. It is informational; only Approve gates enqueueing.
type Reason string

const (
	ReasonNoIntegration    Reason = "no_integration"
	ReasonAutoSyncDisabled Reason = "auto_sync_disabled"
	ReasonForced           Reason = "forced"
	ReasonDebounced        Reason = "debounced"
	ReasonThrottled        Reason = "throttled"
	ReasonOutstandingJob   Reason = "outstanding_job"
	ReasonDue              Reason = "due"
)

// Policy carries the system defaults applied when an integration leaves a field unset.
type Policy struct {
	DefaultCadence       time.Duration
	DefaultTimeframeDays int
	MaxTimeframeDays     int
}

// DefaultPolicy returns the built-in defaults.
func DefaultPolicy() Policy {
	return Policy{
		DefaultCadence:       DefaultCadence,
		DefaultTimeframeDays: DefaultTimeframeDays,
		MaxTimeframeDays:     DefaultMaxTimeframeDays,
	}
}

// Input is everything Decide needs. HasOutstandingJob must reflect whether a queued or
// running job exists for the integration; it is ignored when Force is set.
type Input struct {
	Integration           *model.Integration
	Force                 bool
	TimeframeDaysOverride *int
	HasOutstandingJob     bool
	Now                   time.Time
}

// Decision is the result of evaluating the policy.
type Decision struct {
	Approve       bool
	Reason        Reason
	Cadence       time.Duration
	TimeframeDays int
	JobType       model.SyncJobType
}

// Decide evaluates whether a new job may be enqueued now. It has no side effects.
func (p Policy) Decide(in Input) Decision {
	p = p.normalized()

	integ := in.Integration
	if integ == nil {
		return Decision{Reason: ReasonNoIntegration}
	}
	if integ.AutoSyncEnabled != nil && !*integ.AutoSyncEnabled && !in.Force {
		return Decision{Reason: ReasonAutoSyncDisabled}
	}

	d := Decision{
		Cadence:       p.cadence(integ),
		TimeframeDays: p.timeframe(integ, in.TimeframeDaysOverride),
	}

	if in.Force {
		d.Approve = true
		d.Reason = ReasonForced
		d.JobType = model.SyncJobTypeManual
		return d
	}

	if elapsed(in.Now, integ.LastSyncRequestedAt) < d.Cadence/2 {
		d.Reason = ReasonDebounced
		return d
	}
	if elapsed(in.Now, integ.LastSyncedAt) < d.Cadence {
		d.Reason = ReasonThrottled
		return d
	}
	if in.HasOutstandingJob {
		d.Reason = ReasonOutstandingJob
		return d
	}

	d.Approve = true
	d.Reason = ReasonDue
	d.JobType = model.SyncJobTypeScheduled
	if integ.NeverSynced() {
		d.JobType = model.SyncJobTypeInitialBackfill
	}
	return d
}

func (p Policy) normalized() Policy {
	if p.DefaultCadence <= 0 {
		p.DefaultCadence = DefaultCadence
	}
	if p.MaxTimeframeDays < 1 {
		p.MaxTimeframeDays = DefaultMaxTimeframeDays
	}
	if p.DefaultTimeframeDays < 1 {
		p.DefaultTimeframeDays = DefaultTimeframeDays
	}
	return p
}

func (p Policy) cadence(integ *model.Integration) time.Duration {
	if integ.SyncFrequencyMinutes != nil && *integ.SyncFrequencyMinutes > 0 {
		return time.Duration(*integ.SyncFrequencyMinutes) * time.Minute
	}
	return p.DefaultCadence
}

func (p Policy) timeframe(integ *model.Integration, override *int) int {
	days := p.DefaultTimeframeDays
	switch {
	case override != nil:
		days = *override
	case integ.ScheduledTimeframeDays != nil:
		days = *integ.ScheduledTimeframeDays
	}
	return min(max(days, 1), p.MaxTimeframeDays)
}

// infinitelyLongAgo stands in for a missing timestamp.
const infinitelyLongAgo = time.Duration(1<<63 - 1)

// elapsed returns now-at, treating a missing timestamp as infinitely old and a future
// timestamp as zero elapsed time.
func elapsed(now time.Time, at *time.Time) time.Duration {
	if at == nil || at.IsZero() {
		return infinitelyLongAgo
	}
	d := now.Sub(*at)
	if d < 0 {
		return 0
	}
	return d
}
