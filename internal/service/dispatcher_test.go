package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/adsync/internal/core"
	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/observability/statsd"
)

// fakeQueue is an in-memory SyncJobRepository covering the dispatcher's calls.
type fakeQueue struct {
	core.SyncJobRepository

	mu       sync.Mutex
	order    []string
	queued   map[string][]*model.SyncJob
	claimed  map[string]int
	failed   map[string]string
	listErr  error
	claimErr map[string]error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		queued:   map[string][]*model.SyncJob{},
		claimed:  map[string]int{},
		failed:   map[string]string{},
		claimErr: map[string]error{},
	}
}

func (q *fakeQueue) add(tenant, provider string, n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.queued[tenant]; !ok {
		q.order = append(q.order, tenant)
	}
	base := len(q.queued[tenant])
	for i := range n {
		q.queued[tenant] = append(q.queued[tenant], &model.SyncJob{
			ID:            fmt.Sprintf("%s-%s-%d", tenant, provider, base+i),
			Tenant:        model.TenantRef{ID: tenant},
			ProviderID:    provider,
			JobType:       model.SyncJobTypeScheduled,
			TimeframeDays: 30,
			Status:        model.SyncJobStatusQueued,
		})
	}
}

func (q *fakeQueue) ListTenantsWithQueued(_ context.Context, limit int) ([]model.TenantRef, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.listErr != nil {
		return nil, q.listErr
	}
	var out []model.TenantRef
	for _, id := range q.order {
		if len(q.queued[id]) > 0 && len(out) < limit {
			out = append(out, model.TenantRef{ID: id})
		}
	}
	return out, nil
}

func (q *fakeQueue) CountQueued(_ context.Context, tenant model.TenantRef, limit int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return min(len(q.queued[tenant.ID]), limit), nil
}

func (q *fakeQueue) ClaimNext(_ context.Context, tenant model.TenantRef) (*model.SyncJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.claimErr[tenant.ID]; err != nil {
		return nil, err
	}
	jobs := q.queued[tenant.ID]
	if len(jobs) == 0 {
		return nil, nil
	}
	job := jobs[0]
	q.queued[tenant.ID] = jobs[1:]
	job.Status = model.SyncJobStatusRunning
	q.claimed[tenant.ID]++
	return job, nil
}

func (q *fakeQueue) Fail(_ context.Context, id, msg string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed[id] = msg
	return true, nil
}

func (q *fakeQueue) claimedBy(tenant string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.claimed[tenant]
}

type runnerFunc func(ctx context.Context, job *model.SyncJob) model.JobOutcome

func (f runnerFunc) Process(ctx context.Context, job *model.SyncJob) model.JobOutcome {
	return f(ctx, job)
}

func succeedAll(context.Context, *model.SyncJob) model.JobOutcome {
	return model.JobOutcome{Status: model.SyncJobStatusSuccess}
}

type dispatcherFixture struct {
	queue   *fakeQueue
	sleeps  atomic.Int32
	metrics *statsd.Recorder
}

func newTestDispatcher(t *testing.T, f *dispatcherFixture, runner JobRunner, concurrency int) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherOptions{
		Jobs:              f.queue,
		Processor:         runner,
		TenantConcurrency: concurrency,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			f.sleeps.Add(1)
			return ctx.Err()
		},
		Metrics: f.metrics,
	})
	require.NoError(t, err)
	return d
}

func newDispatcherFixture() *dispatcherFixture {
	return &dispatcherFixture{queue: newFakeQueue(), metrics: &statsd.Recorder{}}
}

func TestNewDispatcher_RequiresDependencies(t *testing.T) {
	_, err := NewDispatcher(DispatcherOptions{Processor: runnerFunc(succeedAll)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SyncJobRepository is required")

	_, err = NewDispatcher(DispatcherOptions{Jobs: newFakeQueue()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JobRunner is required")
}

func TestDispatcher_Run_PerTenantCapAndBudget(t *testing.T) {
	f := newDispatcherFixture()
	f.queue.add("tenant-a", "google", 5)
	f.queue.add("tenant-b", "meta", 2)
	d := newTestDispatcher(t, f, runnerFunc(succeedAll), 1)

	summary, err := d.Run(context.Background(), DispatchOptions{MaxJobs: 4})
	require.NoError(t, err)

	assert.Equal(t, 3, f.queue.claimedBy("tenant-a"))
	assert.Equal(t, 1, f.queue.claimedBy("tenant-b"))
	assert.Equal(t, 4, summary.ProcessedJobs)
	assert.Equal(t, 4, summary.SuccessfulJobs)
	assert.Equal(t, 0, summary.FailedJobs)
	assert.True(t, summary.HadQueuedJobs)
	assert.Equal(t, 5, summary.InspectedQueuedJobs)
	assert.Len(t, summary.JobResults, 4)
	assert.NotEmpty(t, summary.RunID)
	// No pause after the job that exhausts the budget.
	assert.Equal(t, int32(3), f.sleeps.Load())
	assert.InDelta(t, 1, f.metrics.Sum("dispatch.run.count", nil), 0)
}

func TestDispatcher_Run_DefaultBudget(t *testing.T) {
	f := newDispatcherFixture()
	for i := range 50 {
		f.queue.add(fmt.Sprintf("tenant-%02d", i), "google", 1)
	}
	d := newTestDispatcher(t, f, runnerFunc(succeedAll), 1)

	summary, err := d.Run(context.Background(), DispatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxJobs, summary.ProcessedJobs)
}

func TestDispatcher_Run_ClampsMaxJobs(t *testing.T) {
	f := newDispatcherFixture()
	for i := range 30 {
		f.queue.add(fmt.Sprintf("tenant-%02d", i), "google", 3)
	}
	d := newTestDispatcher(t, f, runnerFunc(succeedAll), 1)

	summary, err := d.Run(context.Background(), DispatchOptions{MaxJobs: 500, MaxTenants: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxMaxJobs, summary.ProcessedJobs)
}

func TestDispatcher_Run_MaxTenants(t *testing.T) {
	f := newDispatcherFixture()
	for i := range 5 {
		f.queue.add(fmt.Sprintf("tenant-%d", i), "google", 1)
	}
	d := newTestDispatcher(t, f, runnerFunc(succeedAll), 1)

	summary, err := d.Run(context.Background(), DispatchOptions{MaxJobs: 10, MaxTenants: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ProcessedJobs)
	assert.Equal(t, 0, f.queue.claimedBy("tenant-2"))
}

func TestDispatcher_Run_EmptyQueue(t *testing.T) {
	f := newDispatcherFixture()
	d := newTestDispatcher(t, f, runnerFunc(succeedAll), 1)

	summary, err := d.Run(context.Background(), DispatchOptions{})
	require.NoError(t, err)
	assert.False(t, summary.HadQueuedJobs)
	assert.Equal(t, 0, summary.ProcessedJobs)
	assert.NotNil(t, summary.JobResults)
	assert.Empty(t, summary.Errors)
}

func TestDispatcher_Run_FailuresAreTalliedBeyondJobResults(t *testing.T) {
	f := newDispatcherFixture()
	for i := range 9 {
		f.queue.add(fmt.Sprintf("tenant-%d", i), "google", 3)
	}
	failAll := runnerFunc(func(_ context.Context, job *model.SyncJob) model.JobOutcome {
		return model.JobOutcome{Status: model.SyncJobStatusError, Message: "upstream 500 for " + job.ID}
	})
	d := newTestDispatcher(t, f, failAll, 1)

	summary, err := d.Run(context.Background(), DispatchOptions{MaxJobs: 25})
	require.NoError(t, err)

	assert.Equal(t, 25, summary.ProcessedJobs)
	assert.Equal(t, 25, summary.FailedJobs)
	assert.Len(t, summary.JobResults, model.MaxJobResults)
	assert.Equal(t, 25, summary.ProviderFailures["google"])
	assert.Equal(t, 25, summary.FailuresByProvider()["google"])
	assert.Len(t, summary.Errors, 25)
	assert.Equal(t, "google", summary.Errors[0].ProviderID)
}

func TestDispatcher_Run_PanicFailsOnlyThatJob(t *testing.T) {
	f := newDispatcherFixture()
	f.queue.add("tenant-a", "google", 2)
	var calls atomic.Int32
	runner := runnerFunc(func(_ context.Context, job *model.SyncJob) model.JobOutcome {
		if calls.Add(1) == 1 {
			panic("nil map write")
		}
		return model.JobOutcome{Status: model.SyncJobStatusSuccess}
	})
	d := newTestDispatcher(t, f, runner, 1)

	summary, err := d.Run(context.Background(), DispatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ProcessedJobs)
	assert.Equal(t, 1, summary.FailedJobs)
	assert.Equal(t, 1, summary.SuccessfulJobs)
	require.NotEmpty(t, summary.JobResults)
	assert.Equal(t, "panic: nil map write", summary.JobResults[0].Error)
	assert.Equal(t, "panic: nil map write", f.queue.failed[summary.JobResults[0].JobID])
}

func TestDispatcher_Run_ClaimErrorSkipsTenant(t *testing.T) {
	f := newDispatcherFixture()
	f.queue.add("tenant-a", "google", 2)
	f.queue.add("tenant-b", "google", 2)
	f.queue.claimErr["tenant-a"] = errors.New("deadlock detected")
	d := newTestDispatcher(t, f, runnerFunc(succeedAll), 1)

	summary, err := d.Run(context.Background(), DispatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ProcessedJobs)
	assert.Equal(t, 2, f.queue.claimedBy("tenant-b"))
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "tenant-a", summary.Errors[0].TenantID)
	assert.Contains(t, summary.Errors[0].Error, "deadlock detected")
}

func TestDispatcher_Run_TenantDiscoveryFailure(t *testing.T) {
	f := newDispatcherFixture()
	f.queue.listErr = errors.New("connection refused")
	d := newTestDispatcher(t, f, runnerFunc(succeedAll), 1)

	summary, err := d.Run(context.Background(), DispatchOptions{})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTenantDiscovery)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, summary.ProcessedJobs)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Error, "list tenants")
	assert.InDelta(t, 1, f.metrics.Sum("dispatch.run.discovery_failed", nil), 0)
}

func TestDispatcher_Run_ConcurrentTenantsRespectBudget(t *testing.T) {
	f := newDispatcherFixture()
	for i := range 10 {
		f.queue.add(fmt.Sprintf("tenant-%d", i), "google", 3)
	}
	var inFlight, peak atomic.Int32
	runner := runnerFunc(func(context.Context, *model.SyncJob) model.JobOutcome {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return model.JobOutcome{Status: model.SyncJobStatusSuccess}
	})
	d := newTestDispatcher(t, f, runner, 4)

	summary, err := d.Run(context.Background(), DispatchOptions{MaxJobs: 7})
	require.NoError(t, err)

	assert.Equal(t, 7, summary.ProcessedJobs)
	assert.LessOrEqual(t, peak.Load(), int32(4))
	total := 0
	for i := range 10 {
		total += f.queue.claimedBy(fmt.Sprintf("tenant-%d", i))
	}
	assert.Equal(t, 7, total)
}

func TestDispatcher_Run_CancelledMidRun(t *testing.T) {
	f := newDispatcherFixture()
	f.queue.add("tenant-a", "google", 3)
	f.queue.add("tenant-b", "google", 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := runnerFunc(func(context.Context, *model.SyncJob) model.JobOutcome {
		cancel()
		return model.JobOutcome{Status: model.SyncJobStatusSuccess}
	})
	d := newTestDispatcher(t, f, runner, 1)

	summary, err := d.Run(ctx, DispatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProcessedJobs)
	require.NotEmpty(t, summary.Errors)
	assert.Contains(t, summary.Errors[len(summary.Errors)-1].Error, "run interrupted")
}
