package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/planforge/api/pkg/logger"
)

// Client manages enqueueing background jobs using Asynq.
type Client struct {
	client *asynq.Client
	logger *logger.Logger
}

// ClientConfig contains configuration for the job client.
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewClient creates a new job client for enqueueing tasks.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	return &Client{
		client: client,
		logger: log.With("component", "job_client"),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, email string) error {
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue task",
			"type", task.Type(),
			"email", email,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("task queued",
		"type", task.Type(),
		"task_id", info.ID,
		"email", email,
		"queue", info.Queue,
	)
	return nil
}

// EnqueueWelcomeEmail enqueues a welcome email job.
func (c *Client) EnqueueWelcomeEmail(ctx context.Context, payload WelcomeEmailPayload) error {
	task, err := NewWelcomeEmailTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return c.enqueue(ctx, task, payload.UserEmail)
}

// EnqueueOnboardingReminder enqueues an onboarding reminder email job.
func (c *Client) EnqueueOnboardingReminder(ctx context.Context, payload OnboardingReminderPayload) error {
	task, err := NewOnboardingReminderTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return c.enqueue(ctx, task, payload.UserEmail)
}

// EnqueueOnboardingComplete enqueues an onboarding completion email job.
func (c *Client) EnqueueOnboardingComplete(ctx context.Context, payload OnboardingCompletePayload) error {
	task, err := NewOnboardingCompleteTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return c.enqueue(ctx, task, payload.UserEmail)
}

// EnqueueVerificationEmail enqueues a verification email job.
func (c *Client) EnqueueVerificationEmail(ctx context.Context, payload VerificationEmailPayload) error {
	task, err := NewVerificationEmailTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return c.enqueue(ctx, task, payload.UserEmail)
}

// EnqueuePasswordReset enqueues a password reset email job.
func (c *Client) EnqueuePasswordReset(ctx context.Context, payload PasswordResetPayload) error {
	task, err := NewPasswordResetTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return c.enqueue(ctx, task, payload.UserEmail)
}

// EnqueueReminderSweep enqueues an onboarding reminder sweep.
func (c *Client) EnqueueReminderSweep(ctx context.Context, payload ReminderSweepPayload) error {
	task, err := NewReminderSweepTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue reminder sweep",
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("reminder sweep queued",
		"task_id", info.ID,
		"older_than", payload.OlderThan,
	)
	return nil
}
