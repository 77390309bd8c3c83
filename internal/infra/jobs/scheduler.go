package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/planforge/api/pkg/logger"
)

// Scheduler enqueues periodic jobs on cron schedules. It runs inside the
// worker process so only one instance drives the schedule.
type Scheduler struct {
	cron   *cron.Cron
	client *Client
	logger *logger.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(client *Client, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		client: client,
		logger: log.With("component", "scheduler"),
	}
}

// ScheduleReminderSweep registers the onboarding reminder sweep on the given
// cron expression. olderThan is the staleness cutoff passed to each run.
func (s *Scheduler) ScheduleReminderSweep(spec string, olderThan time.Duration) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		payload := ReminderSweepPayload{OlderThan: olderThan}
		if err := s.client.EnqueueReminderSweep(ctx, payload); err != nil {
			s.logger.Error("failed to schedule reminder sweep",
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}

	s.logger.Info("reminder sweep scheduled",
		"schedule", spec,
		"older_than", olderThan,
	)
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
