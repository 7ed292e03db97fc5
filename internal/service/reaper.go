package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/adsync/config"
	"github.com/target/adsync/internal/core"
	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/observability/metrics"
	"github.com/target/adsync/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.HousekeepingRepository // Required: housekeeping repository
	Config  config.ReaperConfig         // Required: reaper configuration
	Logger  *slog.Logger                // Optional: structured logger
	Metrics statsd.Sink                 // Optional: metrics sink (StatsD-compatible)
}

// ReaperService is the housekeeping process for the job queue.
//
// Each pass:
// - Returns running jobs whose started_at is older than RunningMaxAge to queued.
// - Deletes success and error jobs older than JobMaxAge.
// - Deletes scheduler events older than EventMaxAge.
type ReaperService struct {
	repo    core.HousekeepingRepository
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("HousekeepingRepository is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reaper_service")
	logger.Debug("ReaperService initialized",
		"interval", opts.Config.Interval,
		"running_max_age", opts.Config.RunningMaxAge,
		"job_max_age", opts.Config.JobMaxAge,
		"event_max_age", opts.Config.EventMaxAge,
	)

	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)

	// Jitter keeps replicas that start together from hitting the database at once.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logCleanupError(ctx, err, "initial cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logCleanupError(ctx, err, "cleanup")
			}
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	_ = sleepContext(ctx, jitter)
}

type cleanupStep struct {
	name string
	fn   func(context.Context) (int64, error)
	out  *int64
}

// RunOnce performs one housekeeping pass. Every step runs even when an earlier one
// fails; the returned error joins the step failures.
func (s *ReaperService) RunOnce(ctx context.Context) (model.HousekeepingResult, error) {
	start := time.Now()
	var (
		res                        model.HousekeepingResult
		deletedSuccess, deletedErr int64
	)

	steps := []cleanupStep{
		{name: "reset_stale_running", fn: s.resetStaleRunning, out: &res.ResetStaleJobs},
		{name: "delete_success_jobs", fn: s.deleteJobs(model.SyncJobStatusSuccess), out: &deletedSuccess},
		{name: "delete_error_jobs", fn: s.deleteJobs(model.SyncJobStatusError), out: &deletedErr},
		{name: "delete_events", fn: s.deleteEvents, out: &res.DeletedEvents},
	}

	var errs []error
	for _, step := range steps {
		count, err := step.fn(ctx)
		*step.out = count
		metrics.EmitReaper(s.metrics, step.name, count, suppressContextCancellation(err))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
		if count > 0 {
			s.logger.InfoContext(ctx, "housekeeping step", "step", step.name, "count", count)
		}
	}

	res.DeletedJobs = deletedSuccess + deletedErr
	res.DurationMs = time.Since(start).Milliseconds()
	if len(errs) > 0 {
		return res, fmt.Errorf("cleanup failed: %w", errors.Join(errs...))
	}
	if s.metrics != nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
	return res, nil
}

// batched repeats fn until it touches no rows, checking ctx between batches.
func batched(ctx context.Context, fn func() (int64, error)) (int64, error) {
	var total int64
	for {
		count, err := fn()
		if err != nil {
			return total, err
		}
		total += count
		if count == 0 {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

func (s *ReaperService) resetStaleRunning(ctx context.Context) (int64, error) {
	return batched(ctx, func() (int64, error) {
		return s.repo.ResetStaleRunningJobs(ctx, s.config.RunningMaxAge, s.config.BatchSize)
	})
}

func (s *ReaperService) deleteJobs(status model.SyncJobStatus) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		return batched(ctx, func() (int64, error) {
			return s.repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
				Status:    status,
				MaxAge:    s.config.JobMaxAge,
				BatchSize: s.config.BatchSize,
			})
		})
	}
}

func (s *ReaperService) deleteEvents(ctx context.Context) (int64, error) {
	return batched(ctx, func() (int64, error) {
		return s.repo.DeleteOldSchedulerEvents(ctx, s.config.EventMaxAge, s.config.BatchSize)
	})
}

func (s *ReaperService) logCleanupError(ctx context.Context, err error, label string) {
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, label+" cancelled by context", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
