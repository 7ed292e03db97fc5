package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/target/adsync/internal/core"
	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/domain/schedule"
	apperrors "github.com/target/adsync/internal/errors"
	"github.com/target/adsync/internal/observability/metrics"
	"github.com/target/adsync/internal/observability/statsd"
)

const defaultSchedulePageSize = 200

// SchedulingServiceOptions groups dependencies for SchedulingService.
type SchedulingServiceOptions struct {
	Integrations core.IntegrationRepository // Required
	Jobs         core.SyncJobRepository     // Required
	Policy       schedule.Policy
	// PageSize is the page length of all-tenant sweeps.
	PageSize int
	Clock    Clock
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// SchedulingService applies the scheduling policy to stored integrations and enqueues
// approved jobs.
type SchedulingService struct {
	integrations core.IntegrationRepository
	jobs         core.SyncJobRepository
	policy       schedule.Policy
	pageSize     int
	now          Clock
	logger       *slog.Logger
	metrics      statsd.Sink
}

// NewSchedulingService constructs a SchedulingService.
func NewSchedulingService(opts SchedulingServiceOptions) (*SchedulingService, error) {
	if opts.Integrations == nil {
		return nil, errors.New("IntegrationRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("SyncJobRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultSchedulePageSize
	}
	return &SchedulingService{
		integrations: opts.Integrations,
		jobs:         opts.Jobs,
		policy:       opts.Policy,
		pageSize:     pageSize,
		now:          clockOr(opts.Clock),
		logger:       logger.With("component", "scheduling_service"),
		metrics:      opts.Metrics,
	}, nil
}

// Schedule evaluates every integration selected by req. An error evaluating one
// integration is recorded on its decision and never stops the others; only invalid
// requests and listing failures are returned as errors.
func (s *SchedulingService) Schedule(ctx context.Context, req model.ScheduleRequest) (*model.ScheduleResult, error) {
	if err := validateScheduleRequest(req); err != nil {
		return nil, err
	}

	result := &model.ScheduleResult{DryRun: req.DryRun, Decisions: []model.ScheduleDecision{}}
	visit := func(batch []*model.Integration) {
		for _, integ := range batch {
			if ctx.Err() != nil {
				return
			}
			s.record(result, s.evaluate(ctx, integ, req))
		}
	}

	providers := req.Providers()
	if req.AllTenants {
		if err := s.eachPage(ctx, providers, visit); err != nil {
			return result, err
		}
	} else {
		tenant, err := model.NewTenantRef(req.TenantID)
		if err != nil {
			return nil, apperrors.ValidationField("tenantId", err.Error())
		}
		batch, err := s.integrations.ListByTenant(ctx, tenant, providers)
		if err != nil {
			return nil, err
		}
		visit(batch)
		for _, provider := range missingProviders(providers, batch) {
			s.record(result, s.noIntegration(tenant, provider))
		}
	}

	s.logger.InfoContext(ctx, "scheduling pass finished",
		"all_tenants", req.AllTenants,
		"tenant_id", req.TenantID,
		"force", req.Force,
		"dry_run", req.DryRun,
		"evaluated", result.Evaluated,
		"approved", result.Approved,
		"enqueued", result.Enqueued,
		"failed", result.Failed,
	)
	return result, ctx.Err()
}

func validateScheduleRequest(req model.ScheduleRequest) error {
	if !req.AllTenants && strings.TrimSpace(req.TenantID) == "" {
		return apperrors.ValidationField("tenantId", "tenantId is required unless allTenants is set")
	}
	if req.AllTenants && req.TenantID != "" {
		return apperrors.ValidationField("tenantId", "tenantId and allTenants are mutually exclusive")
	}
	return nil
}

func (s *SchedulingService) eachPage(ctx context.Context, providers []string, visit func([]*model.Integration)) error {
	var after *model.IntegrationKey
	for {
		page, err := s.integrations.ListAll(ctx, model.ListIntegrationsOptions{
			ProviderIDs: providers,
			After:       after,
			Limit:       s.pageSize,
		})
		if err != nil {
			return err
		}
		visit(page)
		if len(page) < s.pageSize || ctx.Err() != nil {
			return ctx.Err()
		}
		last := page[len(page)-1].Key
		after = &last
	}
}

func (s *SchedulingService) evaluate(ctx context.Context, integ *model.Integration, req model.ScheduleRequest) model.ScheduleDecision {
	key := integ.Key
	out := model.ScheduleDecision{
		TenantID:   key.Tenant.ID,
		ProviderID: key.ProviderID,
		AccountID:  key.AccountID,
	}

	outstanding := false
	if !req.Force {
		has, err := s.jobs.HasOutstanding(ctx, key)
		if err != nil {
			return s.failDecision(ctx, out, "outstanding lookup", err)
		}
		outstanding = has
	}

	now := s.now()
	d := s.policy.Decide(schedule.Input{
		Integration:           integ,
		Force:                 req.Force,
		TimeframeDaysOverride: req.TimeframeDays,
		HasOutstandingJob:     outstanding,
		Now:                   now,
	})
	out.Approved = d.Approve
	out.Reason = string(d.Reason)
	metrics.EmitScheduleDecision(s.metrics, key.ProviderID, out.Reason, d.Approve)
	if !d.Approve {
		return out
	}
	out.JobType = d.JobType
	out.TimeframeDays = d.TimeframeDays
	if req.DryRun {
		return out
	}

	job, err := s.jobs.Enqueue(ctx, &model.EnqueueSyncJobRequest{
		Key:           key,
		JobType:       d.JobType,
		TimeframeDays: d.TimeframeDays,
	})
	if err != nil {
		return s.failDecision(ctx, out, "enqueue", err)
	}
	out.JobID = job.ID

	if err := s.integrations.MarkSyncRequested(ctx, key, now); err != nil {
		// The job is queued; a missed request stamp only weakens debouncing.
		s.logger.WarnContext(ctx, "mark sync requested failed",
			"integration", key.String(),
			"job_id", job.ID,
			"error", err,
		)
		out.Error = "mark sync requested: " + err.Error()
	}
	return out
}

// missingProviders returns the explicitly requested providers that have no stored
// integration in batch.
func missingProviders(requested []string, batch []*model.Integration) []string {
	if len(requested) == 0 {
		return nil
	}
	found := make(map[string]struct{}, len(batch))
	for _, integ := range batch {
		found[integ.Key.ProviderID] = struct{}{}
	}
	var missing []string
	for _, p := range requested {
		if _, ok := found[p]; !ok {
			missing = append(missing, p)
		}
	}
	return missing
}

func (s *SchedulingService) noIntegration(tenant model.TenantRef, provider string) model.ScheduleDecision {
	d := s.policy.Decide(schedule.Input{Now: s.now()})
	metrics.EmitScheduleDecision(s.metrics, provider, string(d.Reason), d.Approve)
	return model.ScheduleDecision{
		TenantID:   tenant.ID,
		ProviderID: provider,
		Approved:   d.Approve,
		Reason:     string(d.Reason),
	}
}

func (s *SchedulingService) failDecision(ctx context.Context, out model.ScheduleDecision, step string, err error) model.ScheduleDecision {
	s.logger.WarnContext(ctx, "scheduling step failed",
		"step", step,
		"tenant_id", out.TenantID,
		"provider_id", out.ProviderID,
		"error", err,
	)
	out.Approved = false
	out.JobID = ""
	out.Error = step + ": " + err.Error()
	return out
}

func (s *SchedulingService) record(result *model.ScheduleResult, d model.ScheduleDecision) {
	result.Evaluated++
	switch {
	case d.JobID != "":
		result.Approved++
		result.Enqueued++
	case d.Error != "":
		result.Failed++
	case d.Approved:
		result.Approved++
	default:
		result.Skipped++
	}
	result.Decisions = append(result.Decisions, d)
}
