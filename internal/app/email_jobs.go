package app

import (
	"context"
	"time"
)

// EmailJobEnqueuer defines the interface for enqueueing email jobs. The
// jobs package adapts its Asynq client to this interface so services never
// depend on the queue implementation.
type EmailJobEnqueuer interface {
	EnqueueWelcomeEmail(ctx context.Context, payload WelcomeEmailJobPayload) error
	EnqueueOnboardingReminder(ctx context.Context, payload OnboardingReminderJobPayload) error
	EnqueueOnboardingComplete(ctx context.Context, payload OnboardingCompleteJobPayload) error
	EnqueueVerificationEmail(ctx context.Context, payload VerificationEmailJobPayload) error
	EnqueuePasswordReset(ctx context.Context, payload PasswordResetJobPayload) error
}

// WelcomeEmailJobPayload contains data for welcome email jobs.
type WelcomeEmailJobPayload struct {
	UserEmail string
	UserName  string
}

// OnboardingReminderJobPayload contains data for onboarding reminder jobs.
type OnboardingReminderJobPayload struct {
	UserEmail      string
	UserName       string
	Progress       int
	RemainingSteps []string
}

// OnboardingCompleteJobPayload contains data for onboarding completion jobs.
type OnboardingCompleteJobPayload struct {
	UserEmail string
	UserName  string
}

// VerificationEmailJobPayload contains data for email verification jobs.
// Token is the plaintext one-time token; only its hash is stored server-side.
type VerificationEmailJobPayload struct {
	UserEmail string
	UserName  string
	Token     string
	ExpiresIn time.Duration
}

// PasswordResetJobPayload contains data for password reset jobs.
type PasswordResetJobPayload struct {
	UserEmail string
	UserName  string
	Token     string
	ExpiresIn time.Duration
	IPAddress string
}
