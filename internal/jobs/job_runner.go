package jobs

import (
	"time"

	"boardgame-rental-backend/internal/config"
	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/metrics"
	"boardgame-rental-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Order service.OrderService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func() error) {
	log := logger.WithMethod("JobRunner.runWithRecovery").With("job", jobName)
	start := time.Now()
	success := false
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r)
		}
		metrics.RecordJobRun(jobName, time.Since(start), success)
	}()

	log.Info("Starting job")
	if err := jobFunc(); err != nil {
		log.Error("Job failed", "error", err)
		return
	}
	success = true
	log.Info("Job completed", "duration", time.Since(start))
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpireStaleOrders()
}
