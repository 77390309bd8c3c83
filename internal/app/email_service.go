package app

import (
	"context"
	"fmt"
	"time"

	"github.com/planforge/api/internal/config"
	"github.com/planforge/api/pkg/email"
	"github.com/planforge/api/pkg/logger"
)

const emailTimestampLayout = "January 2, 2006 at 3:04 PM MST"

// EmailService sends the transactional emails for account and onboarding
// events. When no sender is configured every send becomes a logged no-op,
// so local development works without SMTP credentials.
type EmailService struct {
	sender  email.Sender
	config  config.SMTPConfig
	appName string
	logger  *logger.Logger
}

// NewEmailService creates a new EmailService.
func NewEmailService(sender email.Sender, cfg config.SMTPConfig, appName string, log *logger.Logger) *EmailService {
	return &EmailService{
		sender:  sender,
		config:  cfg,
		appName: appName,
		logger:  log.With("service", "email"),
	}
}

// IsConfigured reports whether a working sender is available.
func (s *EmailService) IsConfigured() bool {
	return s.sender != nil && s.sender.IsConfigured()
}

// send dispatches one templated email. kind is the human label used in log
// lines and error messages ("verification email", "onboarding reminder").
func (s *EmailService) send(ctx context.Context, kind, recipient string, tmpl email.Template, data any) error {
	if !s.IsConfigured() {
		s.logger.Warn("email service not configured, skipping "+kind,
			"email", recipient,
		)
		return nil
	}

	if err := s.sender.SendTemplate(ctx, recipient, tmpl, data); err != nil {
		s.logger.Error("failed to send "+kind,
			"email", recipient,
			"error", err,
		)
		return fmt.Errorf("failed to send %s: %w", kind, err)
	}

	s.logger.Info(kind+" sent", "email", recipient)
	return nil
}

// SendVerificationEmail sends an email verification link to a user.
func (s *EmailService) SendVerificationEmail(ctx context.Context, userEmail, userName, token string, expiresIn time.Duration) error {
	return s.send(ctx, "verification email", userEmail, email.TemplateVerifyEmail, email.VerifyEmailData{
		UserName:        userName,
		Email:           userEmail,
		VerificationURL: fmt.Sprintf("%s/auth/verify-email?token=%s", s.config.BaseURL, token),
		ExpiresIn:       formatDuration(expiresIn),
		AppName:         s.appName,
	})
}

// SendPasswordResetEmail sends a password reset link to a user.
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, userEmail, userName, token string, expiresIn time.Duration, ipAddress string) error {
	return s.send(ctx, "password reset email", userEmail, email.TemplatePasswordReset, email.PasswordResetData{
		UserName:    userName,
		Email:       userEmail,
		ResetURL:    fmt.Sprintf("%s/auth/reset-password?token=%s", s.config.BaseURL, token),
		ExpiresIn:   formatDuration(expiresIn),
		AppName:     s.appName,
		IPAddress:   ipAddress,
		RequestedAt: time.Now().Format(emailTimestampLayout),
	})
}

// SendPasswordChangedEmail notifies a user their password was changed.
func (s *EmailService) SendPasswordChangedEmail(ctx context.Context, userEmail, userName, ipAddress string) error {
	return s.send(ctx, "password changed email", userEmail, email.TemplatePasswordChanged, email.PasswordChangedData{
		UserName:   userName,
		Email:      userEmail,
		ChangedAt:  time.Now().Format(emailTimestampLayout),
		IPAddress:  ipAddress,
		AppName:    s.appName,
		SupportURL: s.config.BaseURL + "/support",
	})
}

// SendWelcomeEmail sends a welcome email to a new user.
func (s *EmailService) SendWelcomeEmail(ctx context.Context, userEmail, userName string) error {
	return s.send(ctx, "welcome email", userEmail, email.TemplateWelcome, email.WelcomeData{
		UserName:   userName,
		Email:      userEmail,
		LoginURL:   s.config.BaseURL + "/auth/login",
		AppName:    s.appName,
		SupportURL: s.config.BaseURL + "/support",
	})
}

// SendOnboardingReminderEmail nudges a user whose onboarding has stalled.
func (s *EmailService) SendOnboardingReminderEmail(ctx context.Context, userEmail, userName string, progress int, remainingSteps []string) error {
	return s.send(ctx, "onboarding reminder", userEmail, email.TemplateOnboardingReminder, email.OnboardingReminderData{
		UserName:       userName,
		Email:          userEmail,
		Progress:       progress,
		RemainingSteps: humanizeSteps(remainingSteps),
		ResumeURL:      s.config.BaseURL + "/onboarding",
		AppName:        s.appName,
	})
}

// SendOnboardingCompleteEmail congratulates a user who finished setup.
func (s *EmailService) SendOnboardingCompleteEmail(ctx context.Context, userEmail, userName string) error {
	return s.send(ctx, "onboarding complete email", userEmail, email.TemplateOnboardingComplete, email.OnboardingCompleteData{
		UserName:     userName,
		Email:        userEmail,
		DashboardURL: s.config.BaseURL + "/dashboard",
		AppName:      s.appName,
	})
}

// humanizeSteps maps internal step names to the labels shown in emails.
func humanizeSteps(steps []string) []string {
	labels := map[string]string{
		"profile":      "Complete your profile",
		"preferences":  "Set your preferences",
		"projectSetup": "Create your first project",
		"featureIntro": "Tour the main features",
		"integrations": "Connect your tools",
	}
	out := make([]string, 0, len(steps))
	for _, step := range steps {
		if label, ok := labels[step]; ok {
			out = append(out, label)
		} else {
			out = append(out, step)
		}
	}
	return out
}

// formatDuration renders a duration the way a person would say it.
func formatDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "24 hours"
		}
		return fmt.Sprintf("%d days", days)
	case d >= time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	case d >= time.Minute:
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	default:
		return d.String()
	}
}
