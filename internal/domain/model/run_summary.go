package model

import "time"

// MaxJobResults caps the per-job entries kept on a RunSummary.
const MaxJobResults = 20

// JobResult is the outcome of one job processed during a dispatcher run.
type JobResult struct {
	JobID      string        `json:"job_id"`
	TenantID   string        `json:"tenant_id"`
	ProviderID string        `json:"provider_id"`
	AccountID  string        `json:"account_id,omitempty"`
	Status     SyncJobStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
}

// RunError is a failure recorded during a run, scoped to a tenant and optionally a provider.
type RunError struct {
	TenantID   string `json:"tenant_id,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
	Error      string `json:"error"`
}

func (e RunError) String() string {
	switch {
	case e.TenantID == "":
		return e.Error
	case e.ProviderID == "":
		return e.TenantID + ": " + e.Error
	default:
		return e.TenantID + "/" + e.ProviderID + ": " + e.Error
	}
}

// RunSummary aggregates one dispatcher invocation.
type RunSummary struct {
	RunID               string      `json:"run_id"`
	ProcessedJobs       int         `json:"processed_jobs"`
	SuccessfulJobs      int         `json:"successful_jobs"`
	FailedJobs          int         `json:"failed_jobs"`
	HadQueuedJobs       bool        `json:"had_queued_jobs"`
	InspectedQueuedJobs int         `json:"inspected_queued_jobs"`
	JobResults          []JobResult `json:"job_results"`
	// ProviderFailures counts failed jobs per provider over the whole run, including
	// jobs whose entries were dropped from JobResults.
	ProviderFailures map[string]int `json:"provider_failures,omitempty"`
	Errors           []RunError     `json:"errors,omitempty"`
	DurationMs       int64          `json:"duration_ms"`
	StartedAt        time.Time      `json:"started_at"`
}

// QueueStuck reports whether queued work was seen but nothing was processed.
func (s *RunSummary) QueueStuck() bool {
	return s.HadQueuedJobs && s.ProcessedJobs == 0
}

// FailuresByProvider returns per-provider failure counts, derived from JobResults
// when the run did not record the full tally.
func (s *RunSummary) FailuresByProvider() map[string]int {
	if s.ProviderFailures != nil {
		return s.ProviderFailures
	}
	out := make(map[string]int)
	for _, r := range s.JobResults {
		if r.Status == SyncJobStatusError {
			out[r.ProviderID]++
		}
	}
	return out
}
