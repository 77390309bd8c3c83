package jobs

import (
	"context"

	"github.com/planforge/api/internal/app"
)

// EmailEnqueuerAdapter wraps the job Client to implement app.EmailJobEnqueuer.
type EmailEnqueuerAdapter struct {
	client *Client
}

// NewEmailEnqueuerAdapter creates a new adapter.
func NewEmailEnqueuerAdapter(client *Client) *EmailEnqueuerAdapter {
	return &EmailEnqueuerAdapter{client: client}
}

// EnqueueWelcomeEmail converts the app payload to a job payload and enqueues.
func (a *EmailEnqueuerAdapter) EnqueueWelcomeEmail(ctx context.Context, payload app.WelcomeEmailJobPayload) error {
	return a.client.EnqueueWelcomeEmail(ctx, WelcomeEmailPayload{
		UserEmail: payload.UserEmail,
		UserName:  payload.UserName,
	})
}

// EnqueueOnboardingReminder converts the app payload to a job payload and enqueues.
func (a *EmailEnqueuerAdapter) EnqueueOnboardingReminder(ctx context.Context, payload app.OnboardingReminderJobPayload) error {
	return a.client.EnqueueOnboardingReminder(ctx, OnboardingReminderPayload{
		UserEmail:      payload.UserEmail,
		UserName:       payload.UserName,
		Progress:       payload.Progress,
		RemainingSteps: payload.RemainingSteps,
	})
}

// EnqueueOnboardingComplete converts the app payload to a job payload and enqueues.
func (a *EmailEnqueuerAdapter) EnqueueOnboardingComplete(ctx context.Context, payload app.OnboardingCompleteJobPayload) error {
	return a.client.EnqueueOnboardingComplete(ctx, OnboardingCompletePayload{
		UserEmail: payload.UserEmail,
		UserName:  payload.UserName,
	})
}

// EnqueueVerificationEmail converts the app payload to a job payload and enqueues.
func (a *EmailEnqueuerAdapter) EnqueueVerificationEmail(ctx context.Context, payload app.VerificationEmailJobPayload) error {
	return a.client.EnqueueVerificationEmail(ctx, VerificationEmailPayload{
		UserEmail: payload.UserEmail,
		UserName:  payload.UserName,
		Token:     payload.Token,
		ExpiresIn: payload.ExpiresIn,
	})
}

// EnqueuePasswordReset converts the app payload to a job payload and enqueues.
func (a *EmailEnqueuerAdapter) EnqueuePasswordReset(ctx context.Context, payload app.PasswordResetJobPayload) error {
	return a.client.EnqueuePasswordReset(ctx, PasswordResetPayload{
		UserEmail: payload.UserEmail,
		UserName:  payload.UserName,
		Token:     payload.Token,
		ExpiresIn: payload.ExpiresIn,
		IPAddress: payload.IPAddress,
	})
}

// NoOpEmailEnqueuer drops email jobs. Used when the worker is disabled.
type NoOpEmailEnqueuer struct{}

func (NoOpEmailEnqueuer) EnqueueWelcomeEmail(context.Context, app.WelcomeEmailJobPayload) error {
	return nil
}

func (NoOpEmailEnqueuer) EnqueueOnboardingReminder(context.Context, app.OnboardingReminderJobPayload) error {
	return nil
}

func (NoOpEmailEnqueuer) EnqueueOnboardingComplete(context.Context, app.OnboardingCompleteJobPayload) error {
	return nil
}

func (NoOpEmailEnqueuer) EnqueueVerificationEmail(context.Context, app.VerificationEmailJobPayload) error {
	return nil
}

func (NoOpEmailEnqueuer) EnqueuePasswordReset(context.Context, app.PasswordResetJobPayload) error {
	return nil
}

// Ensure adapters implement the interface
var _ app.EmailJobEnqueuer = (*EmailEnqueuerAdapter)(nil)
var _ app.EmailJobEnqueuer = NoOpEmailEnqueuer{}
