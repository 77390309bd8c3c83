// Package email sends transactional mail over SMTP with HTML templates.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned when SMTP settings are incomplete.
	ErrNotConfigured = errors.New("email: SMTP not configured")
	// ErrInvalidRecipient is returned when no valid recipient was given.
	ErrInvalidRecipient = errors.New("email: invalid recipient email")
	// ErrSendFailed wraps transport failures.
	ErrSendFailed = errors.New("email: failed to send email")
)

// Config holds SMTP configuration.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	FromName   string
	TLS        bool
	SkipVerify bool
	Timeout    time.Duration
}

// Message is a single outgoing email.
type Message struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
	ReplyTo string
	Headers map[string]string
}

// Sender is implemented by anything that can deliver mail. The application
// layer depends on this interface so tests and SMTP-less deployments can
// substitute a no-op.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
	SendTemplate(ctx context.Context, to string, template Template, data any) error
	IsConfigured() bool
}

// SMTPSender delivers mail through a plain SMTP server, with optional
// STARTTLS and PLAIN auth.
type SMTPSender struct {
	config    Config
	templates *TemplateEngine
}

// NewSMTPSender creates an SMTP-backed sender.
func NewSMTPSender(cfg Config) *SMTPSender {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPSender{config: cfg, templates: NewTemplateEngine()}
}

// IsConfigured reports whether enough settings are present to send.
func (s *SMTPSender) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port > 0 && s.config.From != ""
}

// Send delivers one message.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return ErrInvalidRecipient
	}
	if err := s.deliver(ctx, msg.To, s.encode(msg)); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// SendTemplate renders a registered template and sends it as HTML.
func (s *SMTPSender) SendTemplate(ctx context.Context, to string, template Template, data any) error {
	if to == "" {
		return ErrInvalidRecipient
	}

	subject, body, err := s.templates.Render(template, data)
	if err != nil {
		return fmt.Errorf("email: failed to render template: %w", err)
	}
	return s.Send(ctx, &Message{
		To:      []string{to},
		Subject: subject,
		Body:    body,
		IsHTML:  true,
	})
}

// encode serializes the message into RFC 5322 wire format.
func (s *SMTPSender) encode(msg *Message) []byte {
	var b strings.Builder

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	for key, value := range msg.Headers {
		fmt.Fprintf(&b, "%s: %s\r\n", key, value)
	}

	b.WriteString("MIME-Version: 1.0\r\n")
	contentType := "text/plain"
	if msg.IsHTML {
		contentType = "text/html"
	}
	fmt.Fprintf(&b, "Content-Type: %s; charset=UTF-8\r\n", contentType)

	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

func (s *SMTPSender) deliver(ctx context.Context, to []string, content []byte) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	dialer := &net.Dialer{Timeout: s.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	if s.config.TLS {
		err := client.StartTLS(&tls.Config{
			ServerName:         s.config.Host,
			InsecureSkipVerify: s.config.SkipVerify,
		})
		if err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if s.config.User != "" && s.config.Password != "" {
		auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", recipient, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := writer.Write(content); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	return client.Quit()
}

// NoOpSender silently discards mail, for deployments without SMTP.
type NoOpSender struct{}

// NewNoOpSender creates a sender that drops everything.
func NewNoOpSender() *NoOpSender {
	return &NoOpSender{}
}

func (s *NoOpSender) IsConfigured() bool { return true }

func (s *NoOpSender) Send(_ context.Context, _ *Message) error { return nil }

func (s *NoOpSender) SendTemplate(_ context.Context, _ string, _ Template, _ any) error {
	return nil
}

// Logger is the minimal logging surface LoggingSender needs.
type Logger interface {
	Info(msg string, args ...any)
}

// LoggingSender decorates a Sender with send/failure logging.
type LoggingSender struct {
	sender Sender
	logger Logger
}

// NewLoggingSender wraps sender so every delivery attempt is logged.
func NewLoggingSender(sender Sender, logger Logger) *LoggingSender {
	return &LoggingSender{sender: sender, logger: logger}
}

func (s *LoggingSender) IsConfigured() bool {
	return s.sender.IsConfigured()
}

func (s *LoggingSender) Send(ctx context.Context, msg *Message) error {
	err := s.sender.Send(ctx, msg)
	if err != nil {
		s.logger.Info("email send failed", "to", msg.To, "subject", msg.Subject, "error", err)
		return err
	}
	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (s *LoggingSender) SendTemplate(ctx context.Context, to string, template Template, data any) error {
	err := s.sender.SendTemplate(ctx, to, template, data)
	if err != nil {
		s.logger.Info("templated email send failed", "to", to, "template", template, "error", err)
		return err
	}
	s.logger.Info("templated email sent", "to", to, "template", template)
	return nil
}
