// Package mocks provides gomock implementations of the core ports for service tests.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	jobs := mocks.NewMockSyncJobRepository(ctrl)
//	jobs.EXPECT().ClaimNext(gomock.Any(), tenant).Return(job, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=integration_repository_mock.go github.com/target/adsync/internal/core IntegrationRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=sync_job_repository_mock.go github.com/target/adsync/internal/core SyncJobRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=housekeeping_repository_mock.go github.com/target/adsync/internal/core HousekeepingRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=scheduler_event_repository_mock.go github.com/target/adsync/internal/core SchedulerEventRepository

// Fetcher and writer back the job processor.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=metrics_fetcher_mock.go github.com/target/adsync/internal/core MetricsFetcher
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=metrics_writer_mock.go github.com/target/adsync/internal/core MetricsWriter

// LeaseStore guards cron ticks across replicas.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=lease_store_mock.go github.com/target/adsync/internal/core LeaseStore
