package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/adsync/internal/domain/model"
)

type stubDispatcher struct {
	gotOpts DispatchOptions
	summary model.RunSummary
	err     error
}

func (s *stubDispatcher) Run(_ context.Context, opts DispatchOptions) (model.RunSummary, error) {
	s.gotOpts = opts
	return s.summary, s.err
}

type stubScheduler struct {
	gotReq model.ScheduleRequest
	res    *model.ScheduleResult
	err    error
}

func (s *stubScheduler) Schedule(_ context.Context, req model.ScheduleRequest) (*model.ScheduleResult, error) {
	s.gotReq = req
	return s.res, s.err
}

type stubHousekeeper struct {
	calls int
	res   model.HousekeepingResult
	err   error
}

func (s *stubHousekeeper) RunOnce(context.Context) (model.HousekeepingResult, error) {
	s.calls++
	return s.res, s.err
}

type stubRecorder struct {
	inputs []RecordInput
	result RecordResult
}

func (s *stubRecorder) Record(_ context.Context, in RecordInput) RecordResult {
	s.inputs = append(s.inputs, in)
	return s.result
}

type orchestratorFixture struct {
	orch       *Orchestrator
	dispatcher *stubDispatcher
	scheduler  *stubScheduler
	reaper     *stubHousekeeper
	recorder   *stubRecorder
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		dispatcher: &stubDispatcher{},
		scheduler:  &stubScheduler{},
		reaper:     &stubHousekeeper{},
		recorder:   &stubRecorder{},
	}
	orch, err := NewOrchestrator(OrchestratorOptions{
		Dispatcher: f.dispatcher,
		Scheduling: f.scheduler,
		Reaper:     f.reaper,
		Monitor:    f.recorder,
	})
	require.NoError(t, err)
	f.orch = orch
	return f
}

func TestNewOrchestrator_RequiresDependencies(t *testing.T) {
	full := OrchestratorOptions{
		Dispatcher: &stubDispatcher{},
		Scheduling: &stubScheduler{},
		Reaper:     &stubHousekeeper{},
		Monitor:    &stubRecorder{},
	}
	tests := []struct {
		name   string
		mutate func(*OrchestratorOptions)
	}{
		{name: "dispatcher", mutate: func(o *OrchestratorOptions) { o.Dispatcher = nil }},
		{name: "scheduling", mutate: func(o *OrchestratorOptions) { o.Scheduling = nil }},
		{name: "reaper", mutate: func(o *OrchestratorOptions) { o.Reaper = nil }},
		{name: "monitor", mutate: func(o *OrchestratorOptions) { o.Monitor = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := full
			tt.mutate(&opts)
			_, err := NewOrchestrator(opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "is required")
		})
	}
}

func TestOrchestrator_Dispatch(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.dispatcher.summary = model.RunSummary{RunID: "run-42", ProcessedJobs: 3, FailedJobs: 1}
	f.recorder.result = RecordResult{
		Severity: model.SeverityWarning,
		Persist:  BestEffort{Attempted: true, Err: errors.New("insert failed")},
	}

	res, err := f.orch.Execute(context.Background(), model.DispatchOperation{
		Source:     model.EventSourceCron,
		MaxJobs:    4,
		MaxTenants: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, model.OperationDispatch, res.Operation)
	require.NotNil(t, res.Dispatch)
	assert.Equal(t, "run-42", res.Dispatch.Summary.RunID)
	assert.Equal(t, model.SeverityWarning, res.Dispatch.Severity)
	assert.Equal(t, DispatchOptions{MaxJobs: 4, MaxTenants: 2}, f.dispatcher.gotOpts)

	require.Len(t, f.recorder.inputs, 1)
	in := f.recorder.inputs[0]
	assert.Equal(t, model.EventSourceCron, in.Source)
	assert.Equal(t, model.OperationDispatch, in.Operation)
	assert.Equal(t, 3, in.Summary.ProcessedJobs)
}

func TestOrchestrator_DispatchDiscoveryFailureStillRecords(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.dispatcher.summary = model.RunSummary{RunID: "run-7", Errors: []model.RunError{{Error: "list tenants: down"}}}
	f.dispatcher.err = fmt.Errorf("%w: down", ErrTenantDiscovery)
	f.recorder.result = RecordResult{Severity: model.SeverityInfo}

	res, err := f.orch.Execute(context.Background(), model.DispatchOperation{Source: model.EventSourceWorker})
	require.ErrorIs(t, err, ErrTenantDiscovery)
	require.NotNil(t, res.Dispatch)
	assert.Equal(t, "run-7", res.Dispatch.Summary.RunID)
	assert.Len(t, f.recorder.inputs, 1)
}

func TestOrchestrator_Schedule(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.scheduler.res = &model.ScheduleResult{Evaluated: 2, Enqueued: 1}

	req := model.ScheduleRequest{TenantID: "t1", DryRun: true}
	res, err := f.orch.Execute(context.Background(), model.ScheduleOperation{Source: model.EventSourceWorker, Request: req})
	require.NoError(t, err)

	assert.Equal(t, model.OperationSchedule, res.Operation)
	assert.Equal(t, req, f.scheduler.gotReq)
	require.NotNil(t, res.Schedule)
	assert.Equal(t, 1, res.Schedule.Enqueued)
	assert.Nil(t, res.Dispatch)
	assert.Empty(t, f.recorder.inputs)
}

func TestOrchestrator_Housekeeping(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.reaper.res = model.HousekeepingResult{ResetStaleJobs: 2, DeletedJobs: 5}
	f.reaper.err = errors.New("delete_events: timeout")

	res, err := f.orch.Execute(context.Background(), model.HousekeepingOperation{Source: model.EventSourceCron})
	require.Error(t, err)

	assert.Equal(t, model.OperationHousekeeping, res.Operation)
	require.NotNil(t, res.Housekeeping)
	assert.Equal(t, int64(2), res.Housekeeping.ResetStaleJobs)
	assert.Equal(t, 1, f.reaper.calls)
}

type blockingDispatcher struct {
	summary model.RunSummary
}

func (b *blockingDispatcher) Run(ctx context.Context, _ DispatchOptions) (model.RunSummary, error) {
	<-ctx.Done()
	return b.summary, ctx.Err()
}

type ctxRecorder struct {
	ctxErr      error
	hasDeadline bool
}

func (c *ctxRecorder) Record(ctx context.Context, _ RecordInput) RecordResult {
	c.ctxErr = ctx.Err()
	_, c.hasDeadline = ctx.Deadline()
	return RecordResult{Severity: model.SeverityWarning}
}

func TestOrchestrator_DispatchRecordsAfterContextExpires(t *testing.T) {
	recorder := &ctxRecorder{}
	orch, err := NewOrchestrator(OrchestratorOptions{
		Dispatcher: &blockingDispatcher{summary: model.RunSummary{
			RunID:               "run-9",
			HadQueuedJobs:       true,
			InspectedQueuedJobs: 2,
			Errors:              []model.RunError{{Error: "run interrupted"}},
		}},
		Scheduling:    &stubScheduler{},
		Reaper:        &stubHousekeeper{},
		Monitor:       recorder,
		RecordTimeout: time.Second,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := orch.Execute(ctx, model.DispatchOperation{Source: model.EventSourceCron})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, res.Dispatch)
	assert.Equal(t, "run-9", res.Dispatch.Summary.RunID)
	assert.Equal(t, model.SeverityWarning, res.Dispatch.Severity)

	require.NoError(t, recorder.ctxErr)
	assert.True(t, recorder.hasDeadline)
}
