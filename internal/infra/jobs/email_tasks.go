// Package jobs provides background job definitions and handlers using Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/planforge/api/internal/app"
	"github.com/planforge/api/pkg/logger"
)

// Task types for email jobs
const (
	TypeEmailWelcome            = "email:welcome"
	TypeEmailOnboardingReminder = "email:onboarding_reminder"
	TypeEmailOnboardingComplete = "email:onboarding_complete"
	TypeEmailVerification       = "email:verification"
	TypeEmailPasswordReset      = "email:password_reset"
)

// WelcomeEmailPayload contains data for sending welcome emails.
type WelcomeEmailPayload struct {
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

// OnboardingReminderPayload contains data for sending onboarding reminders.
type OnboardingReminderPayload struct {
	UserEmail      string   `json:"user_email"`
	UserName       string   `json:"user_name"`
	Progress       int      `json:"progress"`
	RemainingSteps []string `json:"remaining_steps"`
}

// OnboardingCompletePayload contains data for onboarding completion emails.
type OnboardingCompletePayload struct {
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

// VerificationEmailPayload contains data for sending verification emails.
type VerificationEmailPayload struct {
	UserEmail string        `json:"user_email"`
	UserName  string        `json:"user_name"`
	Token     string        `json:"token"`
	ExpiresIn time.Duration `json:"expires_in"`
}

// PasswordResetPayload contains data for sending password reset emails.
type PasswordResetPayload struct {
	UserEmail string        `json:"user_email"`
	UserName  string        `json:"user_name"`
	Token     string        `json:"token"`
	ExpiresIn time.Duration `json:"expires_in"`
	IPAddress string        `json:"ip_address"`
}

func newEmailTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}
	return asynq.NewTask(
		taskType,
		data,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Queue("email"),
	), nil
}

// NewWelcomeEmailTask creates a new welcome email task.
func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	return newEmailTask(TypeEmailWelcome, payload)
}

// NewOnboardingReminderTask creates a new onboarding reminder email task.
func NewOnboardingReminderTask(payload OnboardingReminderPayload) (*asynq.Task, error) {
	return newEmailTask(TypeEmailOnboardingReminder, payload)
}

// NewOnboardingCompleteTask creates a new onboarding completion email task.
func NewOnboardingCompleteTask(payload OnboardingCompletePayload) (*asynq.Task, error) {
	return newEmailTask(TypeEmailOnboardingComplete, payload)
}

// NewVerificationEmailTask creates a new verification email task.
func NewVerificationEmailTask(payload VerificationEmailPayload) (*asynq.Task, error) {
	return newEmailTask(TypeEmailVerification, payload)
}

// NewPasswordResetTask creates a new password reset email task.
func NewPasswordResetTask(payload PasswordResetPayload) (*asynq.Task, error) {
	return newEmailTask(TypeEmailPasswordReset, payload)
}

// EmailTaskHandler handles email task processing.
type EmailTaskHandler struct {
	emailService *app.EmailService
	logger       *logger.Logger
}

// NewEmailTaskHandler creates a new email task handler.
func NewEmailTaskHandler(emailService *app.EmailService, log *logger.Logger) *EmailTaskHandler {
	return &EmailTaskHandler{
		emailService: emailService,
		logger:       log.With("handler", "email_tasks"),
	}
}

// HandleWelcomeEmail processes welcome email tasks.
func (h *EmailTaskHandler) HandleWelcomeEmail(ctx context.Context, t *asynq.Task) error {
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing welcome email",
		"email", payload.UserEmail,
	)

	err := h.emailService.SendWelcomeEmail(ctx, payload.UserEmail, payload.UserName)
	if err != nil {
		h.logger.Error("failed to send welcome email",
			"email", payload.UserEmail,
			"error", err,
		)
		return err
	}

	h.logger.Info("welcome email sent successfully",
		"email", payload.UserEmail,
	)
	return nil
}

// HandleOnboardingReminder processes onboarding reminder email tasks.
func (h *EmailTaskHandler) HandleOnboardingReminder(ctx context.Context, t *asynq.Task) error {
	var payload OnboardingReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing onboarding reminder email",
		"email", payload.UserEmail,
		"progress", payload.Progress,
	)

	err := h.emailService.SendOnboardingReminderEmail(
		ctx,
		payload.UserEmail,
		payload.UserName,
		payload.Progress,
		payload.RemainingSteps,
	)
	if err != nil {
		h.logger.Error("failed to send onboarding reminder email",
			"email", payload.UserEmail,
			"error", err,
		)
		return err
	}

	h.logger.Info("onboarding reminder email sent successfully",
		"email", payload.UserEmail,
	)
	return nil
}

// HandleOnboardingComplete processes onboarding completion email tasks.
func (h *EmailTaskHandler) HandleOnboardingComplete(ctx context.Context, t *asynq.Task) error {
	var payload OnboardingCompletePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing onboarding completion email",
		"email", payload.UserEmail,
	)

	err := h.emailService.SendOnboardingCompleteEmail(ctx, payload.UserEmail, payload.UserName)
	if err != nil {
		h.logger.Error("failed to send onboarding completion email",
			"email", payload.UserEmail,
			"error", err,
		)
		return err
	}

	h.logger.Info("onboarding completion email sent successfully",
		"email", payload.UserEmail,
	)
	return nil
}

// HandleVerificationEmail processes verification email tasks.
func (h *EmailTaskHandler) HandleVerificationEmail(ctx context.Context, t *asynq.Task) error {
	var payload VerificationEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing verification email",
		"email", payload.UserEmail,
	)

	err := h.emailService.SendVerificationEmail(
		ctx,
		payload.UserEmail,
		payload.UserName,
		payload.Token,
		payload.ExpiresIn,
	)
	if err != nil {
		h.logger.Error("failed to send verification email",
			"email", payload.UserEmail,
			"error", err,
		)
		return err
	}

	h.logger.Info("verification email sent successfully",
		"email", payload.UserEmail,
	)
	return nil
}

// HandlePasswordReset processes password reset email tasks.
func (h *EmailTaskHandler) HandlePasswordReset(ctx context.Context, t *asynq.Task) error {
	var payload PasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing password reset email",
		"email", payload.UserEmail,
	)

	err := h.emailService.SendPasswordResetEmail(
		ctx,
		payload.UserEmail,
		payload.UserName,
		payload.Token,
		payload.ExpiresIn,
		payload.IPAddress,
	)
	if err != nil {
		h.logger.Error("failed to send password reset email",
			"email", payload.UserEmail,
			"error", err,
		)
		return err
	}

	h.logger.Info("password reset email sent successfully",
		"email", payload.UserEmail,
	)
	return nil
}
