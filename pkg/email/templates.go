package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template identifies one of the predefined transactional emails.
type Template string

const (
	// TemplateVerifyEmail is the email verification template.
	TemplateVerifyEmail Template = "verify_email"
	// TemplatePasswordReset is the password reset template.
	TemplatePasswordReset Template = "password_reset"
	// TemplatePasswordChanged is the password changed notification template.
	TemplatePasswordChanged Template = "password_changed"
	// TemplateWelcome is the welcome email template.
	TemplateWelcome Template = "welcome"
	// TemplateOnboardingReminder nudges users with unfinished setup steps.
	TemplateOnboardingReminder Template = "onboarding_reminder"
	// TemplateOnboardingComplete congratulates users who finished setup.
	TemplateOnboardingComplete Template = "onboarding_complete"
)

// VerifyEmailData holds data for the email verification template.
type VerifyEmailData struct {
	UserName        string
	Email           string
	VerificationURL string
	ExpiresIn       string
	AppName         string
}

// PasswordResetData holds data for the password reset template.
type PasswordResetData struct {
	UserName    string
	Email       string
	ResetURL    string
	ExpiresIn   string
	AppName     string
	IPAddress   string
	RequestedAt string
}

// PasswordChangedData holds data for the password changed notification.
type PasswordChangedData struct {
	UserName   string
	Email      string
	ChangedAt  string
	IPAddress  string
	AppName    string
	SupportURL string
}

// WelcomeData holds data for the welcome email template.
type WelcomeData struct {
	UserName   string
	Email      string
	LoginURL   string
	AppName    string
	SupportURL string
}

// OnboardingReminderData holds data for the onboarding reminder template.
type OnboardingReminderData struct {
	UserName       string
	Email          string
	Progress       int
	RemainingSteps []string
	ResumeURL      string
	AppName        string
}

// OnboardingCompleteData holds data for the onboarding complete template.
type OnboardingCompleteData struct {
	UserName     string
	Email        string
	DashboardURL string
	AppName      string
}

// templateSource pairs a subject line with an HTML body. Both are Go
// templates and may reference fields of the matching data struct.
type templateSource struct {
	subject string
	body    string
}

var templateSources = map[Template]templateSource{
	TemplateVerifyEmail:        {"Verify your email address", verifyEmailBody},
	TemplatePasswordReset:      {"Reset your password", passwordResetBody},
	TemplatePasswordChanged:    {"Your password has been changed", passwordChangedBody},
	TemplateWelcome:            {"Welcome to {{.AppName}}", welcomeBody},
	TemplateOnboardingReminder: {"Finish setting up your {{.AppName}} account", onboardingReminderBody},
	TemplateOnboardingComplete: {"You're all set up on {{.AppName}}", onboardingCompleteBody},
}

// TemplateEngine renders the predefined email templates.
type TemplateEngine struct {
	templates map[Template]*compiledTemplate
}

type compiledTemplate struct {
	subject *template.Template
	body    *template.Template
}

// NewTemplateEngine compiles every predefined template. Parse errors are
// programmer errors, so it panics via template.Must.
func NewTemplateEngine() *TemplateEngine {
	engine := &TemplateEngine{templates: make(map[Template]*compiledTemplate, len(templateSources))}
	for name, src := range templateSources {
		engine.templates[name] = &compiledTemplate{
			subject: template.Must(template.New(string(name) + "_subject").Parse(src.subject)),
			body:    template.Must(template.New(string(name)).Parse(emailLayoutOpen + src.body + emailLayoutClose)),
		}
	}
	return engine
}

// Render executes a template, returning the subject line and HTML body.
func (e *TemplateEngine) Render(tmpl Template, data any) (subject string, body string, err error) {
	ct, ok := e.templates[tmpl]
	if !ok {
		return "", "", fmt.Errorf("template %s not found", tmpl)
	}

	var subjBuf, bodyBuf bytes.Buffer
	if err := ct.subject.Execute(&subjBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute subject template: %w", err)
	}
	if err := ct.body.Execute(&bodyBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute body template: %w", err)
	}

	return subjBuf.String(), bodyBuf.String(), nil
}

// Shared layout. Every email body is wrapped in the same card with the
// app name up top and the recipient footer at the bottom. Styles are
// inline-friendly since most mail clients strip external CSS.
const emailLayoutOpen = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<style>
  body { font-family: 'Inter', -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.55; color: #1f2430; background: #f5f6fa; margin: 0; padding: 24px 12px; }
  .card { max-width: 580px; margin: 0 auto; background: #fff; border: 1px solid #e3e5ec; border-radius: 10px; padding: 36px; }
  .brand { text-align: center; font-size: 22px; font-weight: 700; color: #4f46e5; margin-bottom: 28px; }
  .btn { display: inline-block; background: #4f46e5; color: #fff !important; padding: 13px 26px; border-radius: 6px; text-decoration: none; font-weight: 600; margin: 18px 0; }
  .btn-row { text-align: center; }
  .notice { background: #fffbeb; border: 1px solid #fbbf24; border-radius: 6px; padding: 12px 14px; margin: 18px 0; font-size: 14px; }
  .notice-ok { background: #ecfdf5; border-color: #34d399; }
  .notice-danger { background: #fef2f2; border-color: #f87171; }
  .meta { background: #f5f6fa; border-radius: 6px; padding: 12px 14px; margin: 18px 0; font-size: 13px; color: #4b5261; }
  .meta ul { margin: 6px 0 0; padding-left: 18px; }
  .big-number { font-size: 30px; font-weight: 700; color: #4f46e5; text-align: center; }
  .raw-link { word-break: break-all; font-size: 12px; color: #6b7280; }
  .footer { max-width: 580px; margin: 18px auto 0; text-align: center; font-size: 12px; color: #8a8f9c; }
</style>
</head>
<body>
<div class="card">
<div class="brand">{{.AppName}}</div>
`

const emailLayoutClose = `
</div>
<div class="footer">
<p>This email was sent to {{.Email}}</p>
<p>&copy; {{.AppName}}. All rights reserved.</p>
</div>
</body>
</html>`

const verifyEmailBody = `
<h2>Verify your email address</h2>
<p>Hi{{if .UserName}} {{.UserName}}{{end}},</p>
<p>Thanks for signing up. Confirm your email address to activate your account:</p>
<div class="btn-row"><a href="{{.VerificationURL}}" class="btn">Verify Email Address</a></div>
<div class="notice">This link expires in <strong>{{.ExpiresIn}}</strong>.</div>
<p>If you didn't create a {{.AppName}} account, you can ignore this email.</p>
<p>If the button doesn't work, paste this link into your browser:</p>
<p class="raw-link">{{.VerificationURL}}</p>`

const passwordResetBody = `
<h2>Reset your password</h2>
<p>Hi{{if .UserName}} {{.UserName}}{{end}},</p>
<p>We received a request to reset the password for your account. Use the button below to choose a new one:</p>
<div class="btn-row"><a href="{{.ResetURL}}" class="btn">Reset Password</a></div>
<div class="notice">This link expires in <strong>{{.ExpiresIn}}</strong>.</div>
{{if .IPAddress}}<div class="meta"><strong>Request details</strong><br>IP address: {{.IPAddress}}{{if .RequestedAt}}<br>Time: {{.RequestedAt}}{{end}}</div>{{end}}
<p>If you didn't ask for a reset, no action is needed and your password stays as it is.</p>
<p>If the button doesn't work, paste this link into your browser:</p>
<p class="raw-link">{{.ResetURL}}</p>`

const passwordChangedBody = `
<h2>Your password has been changed</h2>
<p>Hi{{if .UserName}} {{.UserName}}{{end}},</p>
<div class="notice notice-ok">Your password was changed{{if .ChangedAt}} on {{.ChangedAt}}{{end}}.</div>
{{if .IPAddress}}<div class="meta"><strong>Change details</strong><br>IP address: {{.IPAddress}}{{if .ChangedAt}}<br>Time: {{.ChangedAt}}{{end}}</div>{{end}}
<div class="notice notice-danger"><strong>Didn't make this change?</strong><br>Someone else may have access to your account. Contact support right away{{if .SupportURL}} at <a href="{{.SupportURL}}">{{.SupportURL}}</a>{{end}}.</div>`

const welcomeBody = `
<h2>Welcome to {{.AppName}}!</h2>
<p>Hi{{if .UserName}} {{.UserName}}{{end}},</p>
<p>Your account is ready. Here's what you can do with {{.AppName}}:</p>
<div class="meta"><strong>Get started</strong>
<ul>
<li>Generate complete project plans with AI</li>
<li>Refine plans with the built-in assistant</li>
<li>Organize and track your projects</li>
<li>Export plans and share them with your team</li>
</ul>
</div>
<div class="btn-row"><a href="{{.LoginURL}}" class="btn">Go to Dashboard</a></div>
<p>Questions? We're happy to help{{if .SupportURL}} at <a href="{{.SupportURL}}">{{.SupportURL}}</a>{{end}}.</p>`

const onboardingReminderBody = `
<h2>You're almost there</h2>
<p>Hi{{if .UserName}} {{.UserName}}{{end}},</p>
<p>Your {{.AppName}} account setup isn't quite finished. Complete the remaining steps to unlock plan generation.</p>
<div class="meta"><div class="big-number">{{.Progress}}%</div><div style="text-align: center;">complete</div></div>
{{if .RemainingSteps}}<div class="meta"><strong>Remaining steps</strong>
<ul>{{range .RemainingSteps}}<li>{{.}}</li>{{end}}</ul>
</div>{{end}}
<div class="btn-row"><a href="{{.ResumeURL}}" class="btn">Continue Setup</a></div>`

const onboardingCompleteBody = `
<h2>Your account is ready</h2>
<p>Hi{{if .UserName}} {{.UserName}}{{end}},</p>
<div class="notice notice-ok">You've completed all setup steps. Everything is ready for your first project plan.</div>
<div class="btn-row"><a href="{{.DashboardURL}}" class="btn">Create Your First Plan</a></div>`
