package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/mocks"
	"github.com/target/adsync/internal/observability/statsd"
	"github.com/target/adsync/internal/testutil"
)

type processorFixture struct {
	proc         *JobProcessor
	jobs         *mocks.MockSyncJobRepository
	integrations *mocks.MockIntegrationRepository
	fetcher      *mocks.MockMetricsFetcher
	writer       *mocks.MockMetricsWriter
	metrics      *statsd.Recorder
	now          time.Time
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &processorFixture{
		jobs:         mocks.NewMockSyncJobRepository(ctrl),
		integrations: mocks.NewMockIntegrationRepository(ctrl),
		fetcher:      mocks.NewMockMetricsFetcher(ctrl),
		writer:       mocks.NewMockMetricsWriter(ctrl),
		metrics:      &statsd.Recorder{},
		now:          testutil.TestTime(),
	}
	proc, err := NewJobProcessor(JobProcessorOptions{
		Jobs:         f.jobs,
		Integrations: f.integrations,
		Fetcher:      f.fetcher,
		Writer:       f.writer,
		JobTimeout:   time.Minute,
		Clock:        func() time.Time { return f.now },
		Metrics:      f.metrics,
	})
	require.NoError(t, err)
	f.proc = proc
	return f
}

func runningJob(id, tenant, provider string) *model.SyncJob {
	started := testutil.TestTime()
	return &model.SyncJob{
		ID:            id,
		Tenant:        model.TenantRef{ID: tenant},
		ProviderID:    provider,
		JobType:       model.SyncJobTypeScheduled,
		TimeframeDays: 30,
		Status:        model.SyncJobStatusRunning,
		StartedAt:     &started,
	}
}

func TestNewJobProcessor_RequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	full := JobProcessorOptions{
		Jobs:         mocks.NewMockSyncJobRepository(ctrl),
		Integrations: mocks.NewMockIntegrationRepository(ctrl),
		Fetcher:      mocks.NewMockMetricsFetcher(ctrl),
		Writer:       mocks.NewMockMetricsWriter(ctrl),
	}

	tests := []struct {
		name   string
		mutate func(*JobProcessorOptions)
		want   string
	}{
		{name: "jobs", mutate: func(o *JobProcessorOptions) { o.Jobs = nil }, want: "SyncJobRepository is required"},
		{name: "integrations", mutate: func(o *JobProcessorOptions) { o.Integrations = nil }, want: "IntegrationRepository is required"},
		{name: "fetcher", mutate: func(o *JobProcessorOptions) { o.Fetcher = nil }, want: "MetricsFetcher is required"},
		{name: "writer", mutate: func(o *JobProcessorOptions) { o.Writer = nil }, want: "MetricsWriter is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := full
			tt.mutate(&opts)
			_, err := NewJobProcessor(opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestJobProcessor_Process_Success(t *testing.T) {
	f := newProcessorFixture(t)
	job := runningJob("job-1", "t1", "google")
	fetched := []model.NormalizedMetric{{EntityID: "c1", Name: "spend", Value: 12.5, Date: f.now}}

	gomock.InOrder(
		f.fetcher.EXPECT().FetchAndNormalize(gomock.Any(), model.FetchRequest{
			Tenant:        job.Tenant,
			ProviderID:    "google",
			TimeframeDays: 30,
		}).Return(fetched, nil),
		f.writer.EXPECT().WriteMetrics(gomock.Any(), model.WriteMetricsRequest{
			Key:     job.Key(),
			JobID:   "job-1",
			Metrics: fetched,
		}).Return(1, nil),
		f.jobs.EXPECT().Complete(gomock.Any(), "job-1").Return(true, nil),
		f.integrations.EXPECT().MarkSyncOutcome(gomock.Any(), job.Key(), model.SyncOutcome{
			Status: model.SyncStatusSuccess,
			At:     f.now,
		}).Return(nil),
	)

	out := f.proc.Process(context.Background(), job)
	assert.True(t, out.Succeeded())
	assert.Empty(t, out.Message)
	assert.InDelta(t, 1, f.metrics.Sum("sync.job.transition", map[string]string{
		"transition": "running_to_success",
		"result":     "success",
	}), 0)
}

func TestJobProcessor_Process_FetchFailureTruncatesMessage(t *testing.T) {
	f := newProcessorFixture(t)
	job := runningJob("job-2", "t1", "meta")
	long := strings.Repeat("é", 800)

	f.fetcher.EXPECT().FetchAndNormalize(gomock.Any(), gomock.Any()).Return(nil, errors.New(long))

	var stored string
	f.jobs.EXPECT().Fail(gomock.Any(), "job-2", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, msg string) (bool, error) {
			stored = msg
			return true, nil
		})
	f.integrations.EXPECT().MarkSyncOutcome(gomock.Any(), job.Key(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ model.IntegrationKey, o model.SyncOutcome) error {
			assert.Equal(t, model.SyncStatusError, o.Status)
			assert.Equal(t, stored, o.Message)
			return nil
		})

	out := f.proc.Process(context.Background(), job)
	assert.Equal(t, model.SyncJobStatusError, out.Status)
	assert.Equal(t, MaxErrorMessageRunes, utf8.RuneCountInString(stored))
	assert.True(t, strings.HasPrefix(stored, "fetch metrics: "))
	assert.Equal(t, stored, out.Message)
}

func TestJobProcessor_Process_WriteFailure(t *testing.T) {
	f := newProcessorFixture(t)
	job := runningJob("job-3", "t1", "google")

	f.fetcher.EXPECT().FetchAndNormalize(gomock.Any(), gomock.Any()).Return([]model.NormalizedMetric{}, nil)
	f.writer.EXPECT().WriteMetrics(gomock.Any(), gomock.Any()).Return(0, errors.New("disk full"))
	f.jobs.EXPECT().Fail(gomock.Any(), "job-3", "write metrics: disk full").Return(true, nil)
	f.integrations.EXPECT().MarkSyncOutcome(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	out := f.proc.Process(context.Background(), job)
	assert.Equal(t, model.SyncJobStatusError, out.Status)
	assert.Equal(t, "write metrics: disk full", out.Message)
}

func TestJobProcessor_Process_JobNoLongerRunning(t *testing.T) {
	f := newProcessorFixture(t)
	job := runningJob("job-4", "t1", "google")

	f.fetcher.EXPECT().FetchAndNormalize(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.writer.EXPECT().WriteMetrics(gomock.Any(), gomock.Any()).Return(0, nil)
	f.jobs.EXPECT().Complete(gomock.Any(), "job-4").Return(false, nil)
	// MarkSyncOutcome must not be called: the mock fails the test on an unexpected call.

	out := f.proc.Process(context.Background(), job)
	assert.Equal(t, model.SyncJobStatusError, out.Status)
	assert.Contains(t, out.Message, model.ErrJobNotRunning.Error())
}

func TestJobProcessor_Process_CompleteErrorFailsJob(t *testing.T) {
	f := newProcessorFixture(t)
	job := runningJob("job-5", "t1", "google")

	f.fetcher.EXPECT().FetchAndNormalize(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.writer.EXPECT().WriteMetrics(gomock.Any(), gomock.Any()).Return(0, nil)
	f.jobs.EXPECT().Complete(gomock.Any(), "job-5").Return(false, errors.New("conn reset"))
	f.jobs.EXPECT().Fail(gomock.Any(), "job-5", "complete job: conn reset").Return(true, nil)
	f.integrations.EXPECT().MarkSyncOutcome(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	out := f.proc.Process(context.Background(), job)
	assert.Equal(t, model.SyncJobStatusError, out.Status)
}

func TestJobProcessor_Process_OutcomeWriteFailureIsLogged(t *testing.T) {
	f := newProcessorFixture(t)
	job := runningJob("job-6", "t1", "google")

	f.fetcher.EXPECT().FetchAndNormalize(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.writer.EXPECT().WriteMetrics(gomock.Any(), gomock.Any()).Return(0, nil)
	f.jobs.EXPECT().Complete(gomock.Any(), "job-6").Return(true, nil)
	f.integrations.EXPECT().MarkSyncOutcome(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	out := f.proc.Process(context.Background(), job)
	assert.True(t, out.Succeeded())
}

func TestJobProcessor_Process_AppliesJobTimeout(t *testing.T) {
	f := newProcessorFixture(t)
	job := runningJob("job-7", "t1", "google")

	f.fetcher.EXPECT().FetchAndNormalize(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ model.FetchRequest) ([]model.NormalizedMetric, error) {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
			return nil, nil
		})
	f.writer.EXPECT().WriteMetrics(gomock.Any(), gomock.Any()).Return(0, nil)
	f.jobs.EXPECT().Complete(gomock.Any(), "job-7").Return(true, nil)
	f.integrations.EXPECT().MarkSyncOutcome(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	assert.True(t, f.proc.Process(context.Background(), job).Succeeded())
}

func TestTruncateMessage(t *testing.T) {
	assert.Equal(t, "short", TruncateMessage("short", 10))
	assert.Equal(t, "abc", TruncateMessage("abcdef", 3))
	assert.Equal(t, "ünï", TruncateMessage("ünïcode", 3))
	assert.Equal(t, "keep", TruncateMessage("keep", 0))
}

func TestJobProcessor_Process_PanicMarksIntegrationFailed(t *testing.T) {
	f := newProcessorFixture(t)
	job := runningJob("job-8", "t1", "tiktok")

	f.fetcher.EXPECT().FetchAndNormalize(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, model.FetchRequest) ([]model.NormalizedMetric, error) {
			panic("boom")
		})
	f.jobs.EXPECT().Fail(gomock.Any(), "job-8", "panic: boom").Return(true, nil)
	f.integrations.EXPECT().MarkSyncOutcome(gomock.Any(), job.Key(), model.SyncOutcome{
		Status:  model.SyncStatusError,
		Message: "panic: boom",
		At:      f.now,
	}).Return(nil)

	out := f.proc.Process(context.Background(), job)
	assert.Equal(t, model.SyncJobStatusError, out.Status)
	assert.Equal(t, "panic: boom", out.Message)
}
