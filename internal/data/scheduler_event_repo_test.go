package data

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/testutil"
)

func TestSchedulerEventRepo_CreateAndList(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		clock := NewFixedTimeProvider(testutil.TestTime())
		repo := NewSchedulerEventRepo(db, SchedulerEventRepoOptions{TimeProvider: clock})
		ctx := context.Background()

		errs := make([]string, 15)
		for i := range errs {
			errs[i] = fmt.Sprintf("t%d/google: boom", i)
		}
		op := "dispatch"
		inspected := 4
		duration := int64(1200)

		ev, err := repo.Create(ctx, &model.CreateSchedulerEventRequest{
			Source:              model.EventSourceWorker,
			Operation:           &op,
			ProcessedJobs:       3,
			FailedJobs:          2,
			SuccessfulJobs:      1,
			HadQueuedJobs:       true,
			InspectedQueuedJobs: &inspected,
			DurationMs:          &duration,
			Errors:              errs,
			ProviderFailureThresholds: []model.ProviderThreshold{
				{ProviderID: "google", FailedJobs: 2, Threshold: 2},
			},
			Severity: model.SeverityCritical,
		})
		require.NoError(t, err)
		assert.Len(t, ev.Errors, model.MaxEventErrors)
		require.NotNil(t, ev.Operation)
		assert.Equal(t, "dispatch", *ev.Operation)
		assert.Equal(t, []model.ProviderThreshold{{ProviderID: "google", FailedJobs: 2, Threshold: 2}}, ev.ProviderFailureThresholds)

		clock.AddTime(time.Minute)
		_, err = repo.Create(ctx, &model.CreateSchedulerEventRequest{
			Source:   model.EventSourceCron,
			Severity: model.SeverityInfo,
		})
		require.NoError(t, err)

		all, err := repo.List(ctx, model.SchedulerEventListOptions{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, model.EventSourceCron, all[0].Source, "newest first")
		assert.Empty(t, all[0].Errors)

		warn := model.SeverityWarning
		alerting, err := repo.List(ctx, model.SchedulerEventListOptions{MinSeverity: &warn})
		require.NoError(t, err)
		require.Len(t, alerting, 1)
		assert.Equal(t, ev.ID, alerting[0].ID)

		src := model.EventSourceCron
		crons, err := repo.List(ctx, model.SchedulerEventListOptions{Source: &src, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, crons, 1)
	})
}

func TestSchedulerEventRepo_AppendOnly(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewSchedulerEventRepo(db, SchedulerEventRepoOptions{})
		ctx := context.Background()
		ev, err := repo.Create(ctx, &model.CreateSchedulerEventRequest{
			Source: model.EventSourceWorker, Severity: model.SeverityInfo,
		})
		require.NoError(t, err)

		_, err = db.ExecContext(ctx, `UPDATE scheduler_events SET severity = 'critical' WHERE id = $1`, ev.ID)
		require.Error(t, err)
	})
}

func TestSchedulerEventRepo_RejectsInvalid(t *testing.T) {
	repo := NewSchedulerEventRepo(nil, SchedulerEventRepoOptions{})
	_, err := repo.Create(context.Background(), &model.CreateSchedulerEventRequest{
		Source: "batch", Severity: model.SeverityInfo,
	})
	require.Error(t, err)
	_, err = repo.Create(context.Background(), nil)
	require.ErrorIs(t, err, ErrRequestRequired)
}
