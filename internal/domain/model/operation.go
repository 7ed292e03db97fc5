package model

import "context"

// OperationName is the stable name recorded for an operation in logs and events.
type OperationName string

const (
	// OperationDispatch runs one worker dispatcher batch.
	OperationDispatch OperationName = "dispatch"
	// OperationSchedule evaluates the scheduling policy and enqueues approved jobs.
	OperationSchedule OperationName = "schedule"
	// OperationHousekeeping resets abandoned jobs and prunes old records.
	OperationHousekeeping OperationName = "housekeeping"
)

// Operation is the closed set of orchestrator operations. Each variant applies itself to
// the matching OperationHandler method, so a new variant needs a new handler method.
type Operation interface {
	Name() OperationName
	Apply(ctx context.Context, h OperationHandler) (OperationResult, error)
}

// OperationHandler executes each Operation variant.
type OperationHandler interface {
	HandleDispatch(ctx context.Context, op DispatchOperation) (OperationResult, error)
	HandleSchedule(ctx context.Context, op ScheduleOperation) (OperationResult, error)
	HandleHousekeeping(ctx context.Context, op HousekeepingOperation) (OperationResult, error)
}

// OperationResult holds the result of whichever operation ran.
type OperationResult struct {
	Operation    OperationName       `json:"operation"`
	Dispatch     *DispatchResult     `json:"dispatch,omitempty"`
	Schedule     *ScheduleResult     `json:"schedule,omitempty"`
	Housekeeping *HousekeepingResult `json:"housekeeping,omitempty"`
}

// DispatchOperation runs the worker dispatcher with optional caps; zero means default.
type DispatchOperation struct {
	Source     EventSource
	MaxJobs    int
	MaxTenants int
}

// Name implements Operation.
func (DispatchOperation) Name() OperationName { return OperationDispatch }

// Apply implements Operation.
func (op DispatchOperation) Apply(ctx context.Context, h OperationHandler) (OperationResult, error) {
	return h.HandleDispatch(ctx, op)
}

// ScheduleOperation evaluates the scheduling policy for the integrations selected by Request.
type ScheduleOperation struct {
	Source  EventSource
	Request ScheduleRequest
}

// Name implements Operation.
func (ScheduleOperation) Name() OperationName { return OperationSchedule }

// Apply implements Operation.
func (op ScheduleOperation) Apply(ctx context.Context, h OperationHandler) (OperationResult, error) {
	return h.HandleSchedule(ctx, op)
}

// HousekeepingOperation runs one cleanup pass.
type HousekeepingOperation struct {
	Source EventSource
}

// Name implements Operation.
func (HousekeepingOperation) Name() OperationName { return OperationHousekeeping }

// Apply implements Operation.
func (op HousekeepingOperation) Apply(ctx context.Context, h OperationHandler) (OperationResult, error) {
	return h.HandleHousekeeping(ctx, op)
}

// DispatchResult is a dispatcher run plus the severity the monitor assigned it.
type DispatchResult struct {
	Summary  RunSummary `json:"summary"`
	Severity Severity   `json:"severity"`
}

// ScheduleRequest selects integrations to evaluate.
type ScheduleRequest struct {
	TenantID      string   `json:"tenantId,omitempty"`
	ProviderID    string   `json:"providerId,omitempty"`
	ProviderIDs   []string `json:"providerIds,omitempty"`
	Force         bool     `json:"force,omitempty"`
	TimeframeDays *int     `json:"timeframeDays,omitempty"`
	AllTenants    bool     `json:"allTenants,omitempty"`
	DryRun        bool     `json:"dryRun,omitempty"`
}

// Providers merges ProviderID and ProviderIDs without duplicates.
func (r ScheduleRequest) Providers() []string {
	seen := make(map[string]struct{}, len(r.ProviderIDs)+1)
	out := make([]string, 0, len(r.ProviderIDs)+1)
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	add(r.ProviderID)
	for _, p := range r.ProviderIDs {
		add(p)
	}
	return out
}

// ScheduleDecision is the outcome for one evaluated integration.
type ScheduleDecision struct {
	TenantID      string      `json:"tenant_id"`
	ProviderID    string      `json:"provider_id"`
	AccountID     string      `json:"account_id,omitempty"`
	Approved      bool        `json:"approved"`
	Reason        string      `json:"reason"`
	JobType       SyncJobType `json:"job_type,omitempty"`
	TimeframeDays int         `json:"timeframe_days,omitempty"`
	JobID         string      `json:"job_id,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// ScheduleResult aggregates a scheduling pass.
type ScheduleResult struct {
	Evaluated int                `json:"evaluated"`
	Approved  int                `json:"approved"`
	Enqueued  int                `json:"enqueued"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	DryRun    bool               `json:"dry_run,omitempty"`
	Decisions []ScheduleDecision `json:"decisions"`
}

// HousekeepingResult counts rows touched by a cleanup pass.
type HousekeepingResult struct {
	ResetStaleJobs int64 `json:"reset_stale_jobs"`
	DeletedJobs    int64 `json:"deleted_jobs"`
	DeletedEvents  int64 `json:"deleted_events"`
	DurationMs     int64 `json:"duration_ms"`
}
