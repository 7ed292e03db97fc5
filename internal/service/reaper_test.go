package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/adsync/config"
	"github.com/target/adsync/internal/core"
	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/observability/statsd"
)

// mockReaperRepo returns its configured count on the first call of each step, then 0
// to simulate batch exhaustion.
type mockReaperRepo struct {
	mu sync.Mutex

	resetCalls int
	resetCount int64
	resetErr   error

	deleteJobsCalls  map[model.SyncJobStatus]int
	deleteJobsCounts map[model.SyncJobStatus]int64
	deleteJobsErr    error
	deleteJobsParams []core.DeleteOldJobsParams

	deleteEventsCalls int
	deleteEventsCount int64
	deleteEventsErr   error
	eventsMaxAge      time.Duration
}

func (m *mockReaperRepo) ResetStaleRunningJobs(_ context.Context, _ time.Duration, _ int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCalls++
	if m.resetErr != nil {
		return 0, m.resetErr
	}
	if m.resetCalls == 1 {
		return m.resetCount, nil
	}
	return 0, nil
}

func (m *mockReaperRepo) DeleteOldJobs(_ context.Context, params core.DeleteOldJobsParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteJobsCalls == nil {
		m.deleteJobsCalls = map[model.SyncJobStatus]int{}
	}
	m.deleteJobsCalls[params.Status]++
	m.deleteJobsParams = append(m.deleteJobsParams, params)
	if m.deleteJobsErr != nil {
		return 0, m.deleteJobsErr
	}
	if m.deleteJobsCalls[params.Status] == 1 {
		return m.deleteJobsCounts[params.Status], nil
	}
	return 0, nil
}

func (m *mockReaperRepo) DeleteOldSchedulerEvents(_ context.Context, maxAge time.Duration, _ int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteEventsCalls++
	m.eventsMaxAge = maxAge
	if m.deleteEventsErr != nil {
		return 0, m.deleteEventsErr
	}
	if m.deleteEventsCalls == 1 {
		return m.deleteEventsCount, nil
	}
	return 0, nil
}

func testReaperConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:      5 * time.Minute,
		RunningMaxAge: 30 * time.Minute,
		JobMaxAge:     7 * 24 * time.Hour,
		EventMaxAge:   30 * 24 * time.Hour,
		BatchSize:     1000,
	}
}

func TestNewReaperService(t *testing.T) {
	t.Run("creates service with valid options", func(t *testing.T) {
		svc, err := NewReaperService(ReaperServiceOptions{
			Repo:   &mockReaperRepo{},
			Config: testReaperConfig(),
			Logger: slog.Default(),
		})
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("returns error when repo is nil", func(t *testing.T) {
		_, err := NewReaperService(ReaperServiceOptions{Config: testReaperConfig()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HousekeepingRepository is required")
	})
}

func TestReaperService_RunOnce(t *testing.T) {
	t.Run("runs every step and totals rows", func(t *testing.T) {
		repo := &mockReaperRepo{
			resetCount: 4,
			deleteJobsCounts: map[model.SyncJobStatus]int64{
				model.SyncJobStatusSuccess: 10,
				model.SyncJobStatusError:   3,
			},
			deleteEventsCount: 7,
		}
		rec := &statsd.Recorder{}
		svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig(), Metrics: rec})
		require.NoError(t, err)

		res, err := svc.RunOnce(context.Background())
		require.NoError(t, err)

		assert.Equal(t, int64(4), res.ResetStaleJobs)
		assert.Equal(t, int64(13), res.DeletedJobs)
		assert.Equal(t, int64(7), res.DeletedEvents)
		assert.Equal(t, 2, repo.resetCalls)
		assert.Equal(t, 2, repo.deleteJobsCalls[model.SyncJobStatusSuccess])
		assert.Equal(t, 2, repo.deleteJobsCalls[model.SyncJobStatusError])
		assert.Equal(t, 30*24*time.Hour, repo.eventsMaxAge)
		for _, p := range repo.deleteJobsParams {
			assert.Equal(t, 7*24*time.Hour, p.MaxAge)
			assert.Equal(t, 1000, p.BatchSize)
		}

		assert.InDelta(t, 4, rec.Sum("reaper.runs", map[string]string{"result": "success"}), 0)
		assert.InDelta(t, 10, rec.Sum("reaper.rows", map[string]string{"step": "delete_success_jobs"}), 0)
		assert.InDelta(t, 1, float64(len(filterSamples(rec, "reaper.last_success_epoch"))), 0)
	})

	t.Run("continues after a failing step", func(t *testing.T) {
		repo := &mockReaperRepo{
			resetErr:          errors.New("lock timeout"),
			deleteEventsCount: 2,
		}
		rec := &statsd.Recorder{}
		svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig(), Metrics: rec})
		require.NoError(t, err)

		res, err := svc.RunOnce(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reset_stale_running")
		assert.Contains(t, err.Error(), "lock timeout")
		assert.Equal(t, int64(2), res.DeletedEvents)
		assert.Equal(t, 1, repo.deleteJobsCalls[model.SyncJobStatusSuccess])
		assert.InDelta(t, 1, rec.Sum("reaper.runs", map[string]string{"result": "error"}), 0)
		assert.Empty(t, filterSamples(rec, "reaper.last_success_epoch"))
	})

	t.Run("joins every step failure", func(t *testing.T) {
		repo := &mockReaperRepo{
			resetErr:        errors.New("reset broke"),
			deleteJobsErr:   errors.New("delete broke"),
			deleteEventsErr: errors.New("events broke"),
		}
		svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig()})
		require.NoError(t, err)

		_, err = svc.RunOnce(context.Background())
		require.Error(t, err)
		for _, want := range []string{"reset broke", "delete_success_jobs", "delete_error_jobs", "events broke"} {
			assert.Contains(t, err.Error(), want)
		}
	})

	t.Run("stops batching when context is cancelled", func(t *testing.T) {
		repo := &mockReaperRepo{resetCount: 5}
		svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig()})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = svc.RunOnce(ctx)
		require.Error(t, err)
		assert.True(t, isContextCancellation(err))
		assert.Equal(t, 1, repo.resetCalls)
	})
}

func TestReaperService_Run(t *testing.T) {
	t.Run("runs initial cleanup and stops on cancel", func(t *testing.T) {
		repo := &mockReaperRepo{}
		cfg := testReaperConfig()
		cfg.Interval = 10 * time.Millisecond
		svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: cfg})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err = svc.Run(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		repo.mu.Lock()
		defer repo.mu.Unlock()
		assert.GreaterOrEqual(t, repo.deleteEventsCalls, 1)
	})

	t.Run("returns nil on graceful cancel", func(t *testing.T) {
		cfg := testReaperConfig()
		cfg.Interval = time.Hour
		svc, err := NewReaperService(ReaperServiceOptions{Repo: &mockReaperRepo{}, Config: cfg})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx) }()
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("reaper did not stop after cancel")
		}
	})
}

func TestIsContextCancellation(t *testing.T) {
	assert.False(t, isContextCancellation(nil))
	assert.True(t, isContextCancellation(context.Canceled))
	assert.True(t, isContextCancellation(errors.Join(errors.New("step"), context.DeadlineExceeded)))
	assert.False(t, isContextCancellation(errors.New("boom")))
	assert.NoError(t, suppressContextCancellation(context.Canceled))
}

func filterSamples(rec *statsd.Recorder, name string) []statsd.Sample {
	var out []statsd.Sample
	for _, s := range rec.Samples() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}
