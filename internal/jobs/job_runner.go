package jobs

import (
	"camrent-backend/internal/config"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/metrics"
	"camrent-backend/internal/notify"
	"camrent-backend/internal/repository"
	"camrent-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store    repository.Store
	services *Services
	config   *config.Config
	clock    service.Clock
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Reconciler service.CapacityReconciler
	Notifier   notify.Notifier
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store repository.Store, services *Services, cfg *config.Config, clock service.Clock) *JobRunner {
	return &JobRunner{
		store:    store,
		services: services,
		config:   cfg,
		clock:    clock,
	}
}

func (jr *JobRunner) Config() *config.Config { return jr.config }

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func() error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncJobRun(jobName, "panic")
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	if err := jobFunc(); err != nil {
		metrics.IncJobRun(jobName, "error")
		logger.Error("Job failed", "job", jobName, "error", err)
		return
	}
	metrics.IncJobRun(jobName, "ok")
	logger.Info("Job completed", "job", jobName)
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.ReconcileCapacity()
	jr.RemindOvertime()
}

// RunAllMonthlyJobs runs all monthly jobs (for manual execution)
func (jr *JobRunner) RunAllMonthlyJobs() {
	jr.ExportStatusLog()
}
