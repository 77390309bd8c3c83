package main

import (
	"fmt"

	"github.com/planforge/api/internal/config"
	"github.com/planforge/api/internal/infra/jobs"
	"github.com/planforge/api/pkg/logger"
)

// Workers holds the background job worker and the periodic scheduler.
type Workers struct {
	Worker    *jobs.Worker
	Scheduler *jobs.Scheduler

	logger *logger.Logger
}

// NewWorkers creates the asynq worker and the cron scheduler. Returns nil
// when the worker is disabled; the API still serves requests, jobs just
// stay queued until a worker process picks them up.
func NewWorkers(cfg *config.Config, log *logger.Logger, client *jobs.Client, services *Services) (*Workers, error) {
	if !cfg.Worker.Enabled {
		log.Info("background worker disabled")
		return nil, nil
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   cfg.Worker.Concurrency,
	}, services.Email, log,
		jobs.WithReminderSweeper(services.Onboarding),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job worker: %w", err)
	}

	scheduler := jobs.NewScheduler(client, log)
	if err := scheduler.ScheduleReminderSweep(cfg.Worker.ReminderSchedule, cfg.Worker.ReminderAfter); err != nil {
		return nil, fmt.Errorf("failed to schedule reminder sweep: %w", err)
	}

	return &Workers{
		Worker:    worker,
		Scheduler: scheduler,
		logger:    log,
	}, nil
}

// Start starts the worker and the scheduler.
func (w *Workers) Start() error {
	if w == nil {
		return nil
	}
	if err := w.Worker.Start(); err != nil {
		return fmt.Errorf("failed to start job worker: %w", err)
	}
	w.Scheduler.Start()
	w.logger.Info("background workers started")
	return nil
}

// Stop stops the scheduler first so no new jobs are enqueued while the
// worker drains.
func (w *Workers) Stop() {
	if w == nil {
		return
	}
	w.Scheduler.Stop()
	w.Worker.Stop()
	w.logger.Info("background workers stopped")
}
