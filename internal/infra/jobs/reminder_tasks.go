package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/planforge/api/pkg/logger"
)

// TypeOnboardingReminderSweep walks users with stale incomplete onboarding
// and fans out reminder emails for each of them.
const TypeOnboardingReminderSweep = "maintenance:onboarding_reminder_sweep"

// ReminderSweepPayload carries the staleness cutoff for a sweep run.
type ReminderSweepPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// ReminderSweeper runs one onboarding reminder sweep. Implemented by
// app.OnboardingService.
type ReminderSweeper interface {
	SendReminders(ctx context.Context, olderThan time.Duration) (int, error)
}

// NewReminderSweepTask creates a reminder sweep task. Sweeps are unique per
// queue so an overlapping schedule cannot stack them.
func NewReminderSweepTask(payload ReminderSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reminder sweep payload: %w", err)
	}
	return asynq.NewTask(
		TypeOnboardingReminderSweep,
		data,
		asynq.MaxRetry(1),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("maintenance"),
		asynq.Unique(time.Hour),
	), nil
}

// ReminderTaskHandler handles reminder sweep processing.
type ReminderTaskHandler struct {
	sweeper ReminderSweeper
	logger  *logger.Logger
}

// NewReminderTaskHandler creates a new reminder task handler.
func NewReminderTaskHandler(sweeper ReminderSweeper, log *logger.Logger) *ReminderTaskHandler {
	return &ReminderTaskHandler{
		sweeper: sweeper,
		logger:  log.With("handler", "reminder_tasks"),
	}
}

// HandleReminderSweep processes one sweep run.
func (h *ReminderTaskHandler) HandleReminderSweep(ctx context.Context, t *asynq.Task) error {
	var payload ReminderSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("starting onboarding reminder sweep",
		"older_than", payload.OlderThan,
	)

	sent, err := h.sweeper.SendReminders(ctx, payload.OlderThan)
	if err != nil {
		h.logger.Error("onboarding reminder sweep failed",
			"error", err,
		)
		return err
	}

	h.logger.Info("onboarding reminder sweep finished",
		"reminders_sent", sent,
	)
	return nil
}
