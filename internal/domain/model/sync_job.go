package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SyncJobType describes why a sync job was created.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type SyncJobType string

// SyncJobStatus represents the lifecycle state of a sync job.
type SyncJobStatus string

const (
	// SyncJobTypeInitialBackfill is the first sync of a newly connected account.
	SyncJobTypeInitialBackfill SyncJobType = "initial-backfill"
	// SyncJobTypeScheduled is an automatic cadence-driven sync.
	SyncJobTypeScheduled SyncJobType = "scheduled-sync"
	// SyncJobTypeManual is a forced sync requested by an operator or user.
	SyncJobTypeManual SyncJobType = "manual-sync"

	// SyncJobStatusQueued indicates the job waits for a dispatcher to claim it.
	SyncJobStatusQueued SyncJobStatus = "queued"
	// SyncJobStatusRunning indicates a dispatcher holds the job.
	SyncJobStatusRunning SyncJobStatus = "running"
	// SyncJobStatusSuccess indicates the job finished successfully.
	SyncJobStatusSuccess SyncJobStatus = "success"
	// SyncJobStatusError indicates the job failed.
	SyncJobStatusError SyncJobStatus = "error"
)

var (
	// ErrJobNotRunning is returned when completing or failing a job that is not running.
	ErrJobNotRunning = errors.New("sync job is not running")
	// ErrJobNotFound is returned when a job lookup has no match.
	ErrJobNotFound = errors.New("sync job not found")
)

// Valid returns true if the SyncJobType is known.
func (t SyncJobType) Valid() bool {
	return t == SyncJobTypeInitialBackfill || t == SyncJobTypeScheduled || t == SyncJobTypeManual
}

// UnmarshalText implements encoding.TextUnmarshaler for SyncJobType.
func (t *SyncJobType) UnmarshalText(text []byte) error {
	v := SyncJobType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid SyncJobType: %q", v)
	}
	*t = v
	return nil
}

// Valid returns true if the SyncJobStatus is known.
func (s SyncJobStatus) Valid() bool {
	return s == SyncJobStatusQueued || s == SyncJobStatusRunning || s == SyncJobStatusSuccess ||
		s == SyncJobStatusError
}

// Terminal reports whether no further transition is allowed from s.
func (s SyncJobStatus) Terminal() bool {
	return s == SyncJobStatusSuccess || s == SyncJobStatusError
}

// CanTransition reports whether moving from s to next follows queued -> running -> {success|error}.
func (s SyncJobStatus) CanTransition(next SyncJobStatus) bool {
	switch s {
	case SyncJobStatusQueued:
		return next == SyncJobStatusRunning
	case SyncJobStatusRunning:
		return next == SyncJobStatusSuccess || next == SyncJobStatusError
	default:
		return false
	}
}

// SyncJob is one unit of scheduled sync work for an integration.
type SyncJob struct {
	ID            string        `json:"id"                      db:"id"`
	Seq           int64         `json:"-"                       db:"seq"`
	Tenant        TenantRef     `json:"tenant"                  db:"tenant_id"`
	ProviderID    string        `json:"provider_id"             db:"provider_id"`
	AccountID     string        `json:"account_id,omitempty"    db:"account_id"`
	JobType       SyncJobType   `json:"job_type"                db:"job_type"`
	TimeframeDays int           `json:"timeframe_days"          db:"timeframe_days"`
	Status        SyncJobStatus `json:"status"                  db:"status"`
	CreatedAt     time.Time     `json:"created_at"              db:"created_at"`
	StartedAt     *time.Time    `json:"started_at,omitempty"    db:"started_at"`
	ProcessedAt   *time.Time    `json:"processed_at,omitempty"  db:"processed_at"`
	ErrorMessage  *string       `json:"error_message,omitempty" db:"error_message"`
}

// Key returns the integration key the job belongs to.
func (j *SyncJob) Key() IntegrationKey {
	return IntegrationKey{Tenant: j.Tenant, ProviderID: j.ProviderID, AccountID: j.AccountID}
}

// EnqueueSyncJobRequest represents a request to append a queued job.
type EnqueueSyncJobRequest struct {
	Key           IntegrationKey `json:"key"`
	JobType       SyncJobType    `json:"job_type"`
	TimeframeDays int            `json:"timeframe_days"`
}

// Validate validates the EnqueueSyncJobRequest fields.
func (r *EnqueueSyncJobRequest) Validate() error {
	if err := r.Key.Validate(); err != nil {
		return err
	}
	if !r.JobType.Valid() {
		return errors.New("invalid job type")
	}
	if r.TimeframeDays < 1 {
		return errors.New("timeframe days must be >= 1")
	}
	return nil
}

// SyncJobStats counts jobs per status.
type SyncJobStats struct {
	Queued  int `json:"queued"`
	Running int `json:"running"`
	Success int `json:"success"`
	Error   int `json:"error"`
}

// JobOutcome is what the processor reports for one claimed job.
type JobOutcome struct {
	Status  SyncJobStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}

// Succeeded reports whether the outcome is a success.
func (o JobOutcome) Succeeded() bool { return o.Status == SyncJobStatusSuccess }
