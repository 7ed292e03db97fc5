package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/domain/schedule"
	apperrors "github.com/target/adsync/internal/errors"
	"github.com/target/adsync/internal/mocks"
	"github.com/target/adsync/internal/observability/statsd"
	"github.com/target/adsync/internal/testutil"
)

type schedulingFixture struct {
	svc          *SchedulingService
	integrations *mocks.MockIntegrationRepository
	jobs         *mocks.MockSyncJobRepository
	metrics      *statsd.Recorder
	now          time.Time
}

func newSchedulingFixture(t *testing.T, pageSize int) *schedulingFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &schedulingFixture{
		integrations: mocks.NewMockIntegrationRepository(ctrl),
		jobs:         mocks.NewMockSyncJobRepository(ctrl),
		metrics:      &statsd.Recorder{},
		now:          testutil.TestTime(),
	}
	svc, err := NewSchedulingService(SchedulingServiceOptions{
		Integrations: f.integrations,
		Jobs:         f.jobs,
		Policy:       schedule.DefaultPolicy(),
		PageSize:     pageSize,
		Clock:        func() time.Time { return f.now },
		Metrics:      f.metrics,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func tenantRef(id string) model.TenantRef { return model.TenantRef{ID: id} }

func TestNewSchedulingService(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := NewSchedulingService(SchedulingServiceOptions{Jobs: mocks.NewMockSyncJobRepository(ctrl)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IntegrationRepository is required")

	_, err = NewSchedulingService(SchedulingServiceOptions{Integrations: mocks.NewMockIntegrationRepository(ctrl)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SyncJobRepository is required")
}

func TestSchedulingService_Schedule_Throttled(t *testing.T) {
	f := newSchedulingFixture(t, 0)
	ctx := context.Background()

	integ := testutil.NewIntegration("t1", "google").
		WithFrequency(360).
		SyncedAt(f.now.Add(-2 * time.Hour)).
		Build()

	f.integrations.EXPECT().ListByTenant(gomock.Any(), tenantRef("t1"), []string{}).Return([]*model.Integration{integ}, nil)
	f.jobs.EXPECT().HasOutstanding(gomock.Any(), integ.Key).Return(false, nil)

	res, err := f.svc.Schedule(ctx, model.ScheduleRequest{TenantID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Evaluated)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Enqueued)
	require.Len(t, res.Decisions, 1)
	assert.False(t, res.Decisions[0].Approved)
	assert.Equal(t, string(schedule.ReasonThrottled), res.Decisions[0].Reason)
	assert.Empty(t, res.Decisions[0].JobID)
}

func TestSchedulingService_Schedule_EnqueuesDueIntegration(t *testing.T) {
	f := newSchedulingFixture(t, 0)
	ctx := context.Background()

	integ := testutil.NewIntegration("t1", "google").
		WithFrequency(360).
		SyncedAt(f.now.Add(-7 * time.Hour)).
		Build()

	f.integrations.EXPECT().ListByTenant(gomock.Any(), tenantRef("t1"), []string{"google"}).Return([]*model.Integration{integ}, nil)
	f.jobs.EXPECT().HasOutstanding(gomock.Any(), integ.Key).Return(false, nil)
	f.jobs.EXPECT().Enqueue(gomock.Any(), &model.EnqueueSyncJobRequest{
		Key:           integ.Key,
		JobType:       model.SyncJobTypeScheduled,
		TimeframeDays: 90,
	}).Return(&model.SyncJob{ID: "job-1"}, nil)
	f.integrations.EXPECT().MarkSyncRequested(gomock.Any(), integ.Key, f.now).Return(nil)

	res, err := f.svc.Schedule(ctx, model.ScheduleRequest{TenantID: "t1", ProviderID: "google"})
	require.NoError(t, err)

	require.Len(t, res.Decisions, 1)
	d := res.Decisions[0]
	assert.True(t, d.Approved)
	assert.Equal(t, string(schedule.ReasonDue), d.Reason)
	assert.Equal(t, model.SyncJobTypeScheduled, d.JobType)
	assert.Equal(t, 90, d.TimeframeDays)
	assert.Equal(t, "job-1", d.JobID)
	assert.Equal(t, 1, res.Approved)
	assert.Equal(t, 1, res.Enqueued)
	assert.InDelta(t, 1, f.metrics.Sum("schedule.decision", map[string]string{"reason": "due"}), 0)
}

func TestSchedulingService_Schedule_DryRunEnqueuesNothing(t *testing.T) {
	f := newSchedulingFixture(t, 0)

	integ := testutil.NewIntegration("t1", "meta").Build()
	f.integrations.EXPECT().ListByTenant(gomock.Any(), tenantRef("t1"), []string{}).Return([]*model.Integration{integ}, nil)
	f.jobs.EXPECT().HasOutstanding(gomock.Any(), integ.Key).Return(false, nil)

	res, err := f.svc.Schedule(context.Background(), model.ScheduleRequest{TenantID: "t1", DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Approved)
	assert.Equal(t, 0, res.Enqueued)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, model.SyncJobTypeInitialBackfill, res.Decisions[0].JobType)
	assert.Empty(t, res.Decisions[0].JobID)
}

func TestSchedulingService_Schedule_ForceSkipsOutstandingLookup(t *testing.T) {
	f := newSchedulingFixture(t, 0)

	integ := testutil.NewIntegration("t1", "google").
		WithAutoSync(false).
		SyncedAt(f.now.Add(-time.Minute)).
		Build()
	days := 30

	f.integrations.EXPECT().ListByTenant(gomock.Any(), tenantRef("t1"), []string{}).Return([]*model.Integration{integ}, nil)
	f.jobs.EXPECT().Enqueue(gomock.Any(), &model.EnqueueSyncJobRequest{
		Key:           integ.Key,
		JobType:       model.SyncJobTypeManual,
		TimeframeDays: 30,
	}).Return(&model.SyncJob{ID: "job-9"}, nil)
	f.integrations.EXPECT().MarkSyncRequested(gomock.Any(), integ.Key, f.now).Return(nil)

	res, err := f.svc.Schedule(context.Background(), model.ScheduleRequest{TenantID: "t1", Force: true, TimeframeDays: &days})
	require.NoError(t, err)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, string(schedule.ReasonForced), res.Decisions[0].Reason)
	assert.Equal(t, "job-9", res.Decisions[0].JobID)
}

func TestSchedulingService_Schedule_PerIntegrationErrorsDoNotStopPass(t *testing.T) {
	f := newSchedulingFixture(t, 0)

	broken := testutil.NewIntegration("t1", "google").Build()
	lookupFails := testutil.NewIntegration("t1", "tiktok").Build()
	healthy := testutil.NewIntegration("t1", "meta").Build()

	f.integrations.EXPECT().ListByTenant(gomock.Any(), tenantRef("t1"), []string{}).
		Return([]*model.Integration{broken, lookupFails, healthy}, nil)

	f.jobs.EXPECT().HasOutstanding(gomock.Any(), broken.Key).Return(false, nil)
	f.jobs.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil, errors.New("queue full"))

	f.jobs.EXPECT().HasOutstanding(gomock.Any(), lookupFails.Key).Return(false, errors.New("db down"))

	f.jobs.EXPECT().HasOutstanding(gomock.Any(), healthy.Key).Return(false, nil)
	f.jobs.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(&model.SyncJob{ID: "job-3"}, nil)
	f.integrations.EXPECT().MarkSyncRequested(gomock.Any(), healthy.Key, f.now).Return(nil)

	res, err := f.svc.Schedule(context.Background(), model.ScheduleRequest{TenantID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Evaluated)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1, res.Enqueued)
	require.Len(t, res.Decisions, 3)
	assert.Equal(t, "enqueue: queue full", res.Decisions[0].Error)
	assert.False(t, res.Decisions[0].Approved)
	assert.Equal(t, "outstanding lookup: db down", res.Decisions[1].Error)
	assert.Equal(t, "job-3", res.Decisions[2].JobID)
}

func TestSchedulingService_Schedule_MarkRequestedFailureKeepsJob(t *testing.T) {
	f := newSchedulingFixture(t, 0)

	integ := testutil.NewIntegration("t1", "google").Build()
	f.integrations.EXPECT().ListByTenant(gomock.Any(), gomock.Any(), gomock.Any()).Return([]*model.Integration{integ}, nil)
	f.jobs.EXPECT().HasOutstanding(gomock.Any(), integ.Key).Return(false, nil)
	f.jobs.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(&model.SyncJob{ID: "job-1"}, nil)
	f.integrations.EXPECT().MarkSyncRequested(gomock.Any(), integ.Key, f.now).Return(errors.New("timeout"))

	res, err := f.svc.Schedule(context.Background(), model.ScheduleRequest{TenantID: "t1"})
	require.NoError(t, err)

	require.Len(t, res.Decisions, 1)
	assert.Equal(t, "job-1", res.Decisions[0].JobID)
	assert.Contains(t, res.Decisions[0].Error, "mark sync requested")
	assert.Equal(t, 1, res.Enqueued)
	assert.Equal(t, 0, res.Failed)
}

func TestSchedulingService_Schedule_AllTenantsPages(t *testing.T) {
	f := newSchedulingFixture(t, 2)

	a := testutil.NewIntegration("t1", "google").SyncedAt(f.now.Add(-time.Hour)).Build()
	b := testutil.NewIntegration("t2", "google").SyncedAt(f.now.Add(-time.Hour)).Build()
	c := testutil.NewIntegration("t3", "google").SyncedAt(f.now.Add(-time.Hour)).Build()

	gomock.InOrder(
		f.integrations.EXPECT().ListAll(gomock.Any(), model.ListIntegrationsOptions{
			ProviderIDs: []string{"google"},
			Limit:       2,
		}).Return([]*model.Integration{a, b}, nil),
		f.integrations.EXPECT().ListAll(gomock.Any(), model.ListIntegrationsOptions{
			ProviderIDs: []string{"google"},
			After:       &b.Key,
			Limit:       2,
		}).Return([]*model.Integration{c}, nil),
	)
	f.jobs.EXPECT().HasOutstanding(gomock.Any(), gomock.Any()).Return(false, nil).Times(3)

	res, err := f.svc.Schedule(context.Background(), model.ScheduleRequest{AllTenants: true, ProviderIDs: []string{"google"}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Evaluated)
	assert.Equal(t, 3, res.Skipped)
}

func TestSchedulingService_Schedule_ListFailureReturnsError(t *testing.T) {
	f := newSchedulingFixture(t, 0)
	f.integrations.EXPECT().ListByTenant(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	res, err := f.svc.Schedule(context.Background(), model.ScheduleRequest{TenantID: "t1"})
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestSchedulingService_Schedule_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   model.ScheduleRequest
		field string
	}{
		{name: "missing tenant", req: model.ScheduleRequest{}, field: "tenantId"},
		{name: "blank tenant", req: model.ScheduleRequest{TenantID: "  "}, field: "tenantId"},
		{name: "tenant with all tenants", req: model.ScheduleRequest{TenantID: "t1", AllTenants: true}, field: "tenantId"},
		{name: "padded tenant", req: model.ScheduleRequest{TenantID: " t1"}, field: "tenantId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSchedulingFixture(t, 0)
			_, err := f.svc.Schedule(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestSchedulingService_Schedule_NamedProviderWithoutIntegration(t *testing.T) {
	f := newSchedulingFixture(t, 0)

	integ := testutil.NewIntegration("t1", "google").Build()
	f.integrations.EXPECT().ListByTenant(gomock.Any(), tenantRef("t1"), []string{"google", "tiktok"}).
		Return([]*model.Integration{integ}, nil)
	f.jobs.EXPECT().HasOutstanding(gomock.Any(), integ.Key).Return(true, nil)

	res, err := f.svc.Schedule(context.Background(), model.ScheduleRequest{
		TenantID:    "t1",
		ProviderID:  "google",
		ProviderIDs: []string{"tiktok"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Evaluated)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Decisions, 2)
	missing := res.Decisions[1]
	assert.Equal(t, "t1", missing.TenantID)
	assert.Equal(t, "tiktok", missing.ProviderID)
	assert.False(t, missing.Approved)
	assert.Equal(t, string(schedule.ReasonNoIntegration), missing.Reason)
	assert.InDelta(t, 1, f.metrics.Sum("schedule.decision", map[string]string{"reason": "no_integration"}), 0)
}

func TestSchedulingService_Schedule_ClampsTimeframeOverride(t *testing.T) {
	tests := []struct {
		name     string
		override int
		want     int
	}{
		{name: "above max", override: 4000, want: schedule.DefaultMaxTimeframeDays},
		{name: "below one", override: -3, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSchedulingFixture(t, 0)
			integ := testutil.NewIntegration("t1", "google").Build()
			days := tt.override

			f.integrations.EXPECT().ListByTenant(gomock.Any(), tenantRef("t1"), []string{}).Return([]*model.Integration{integ}, nil)
			f.jobs.EXPECT().HasOutstanding(gomock.Any(), integ.Key).Return(false, nil)

			res, err := f.svc.Schedule(context.Background(), model.ScheduleRequest{TenantID: "t1", DryRun: true, TimeframeDays: &days})
			require.NoError(t, err)
			require.Len(t, res.Decisions, 1)
			assert.Equal(t, tt.want, res.Decisions[0].TimeframeDays)
		})
	}
}
