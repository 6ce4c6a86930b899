// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"codeberg.org/oliverandrich/go-shop-backend/internal/config"
	"codeberg.org/oliverandrich/go-shop-backend/internal/i18n"
	"codeberg.org/oliverandrich/go-shop-backend/internal/templates"
)

// Service renders and sends transactional emails.
type Service struct {
	cfg     *config.SMTPConfig
	codeTTL time.Duration
	deliver func(ctx context.Context, msg *mail.Msg) error
}

// NewService creates an email service that delivers through SMTP.
func NewService(cfg *config.SMTPConfig, codeTTL time.Duration) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	s := &Service{cfg: cfg, codeTTL: codeTTL}
	s.deliver = s.dialAndSend
	return s, nil
}

// NewLogService creates an email service that only logs messages. It is
// used in development when no SMTP host is configured.
func NewLogService(cfg *config.SMTPConfig, codeTTL time.Duration) *Service {
	s := &Service{cfg: cfg, codeTTL: codeTTL}
	s.deliver = func(ctx context.Context, msg *mail.Msg) error {
		slog.InfoContext(ctx, "email_not_sent",
			"to", msg.GetToString(),
			"subject", msg.GetGenHeader(mail.HeaderSubject),
		)
		return nil
	}
	return s
}

// SendOTP sends the email verification code to a customer. The language
// follows the locale in ctx.
func (s *Service) SendOTP(ctx context.Context, to, name, code string) error {
	subject := i18n.T(ctx, "email_otp_subject")
	minutes := int(s.codeTTL.Minutes())

	html, err := templates.RenderString(ctx, templates.OTPEmail(name, code, minutes))
	if err != nil {
		return fmt.Errorf("rendering otp email: %w", err)
	}

	text := fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s\n",
		i18n.TData(ctx, "email_otp_greeting", map[string]any{"Name": name}),
		i18n.T(ctx, "email_otp_intro"),
		code,
		i18n.TData(ctx, "email_otp_expiry", map[string]any{"Minutes": minutes}),
	)

	if err := s.send(ctx, to, subject, html, text); err != nil {
		return err
	}
	slog.InfoContext(ctx, "otp_email_sent", "to", to)
	return nil
}

// send builds the message and hands it to the delivery function.
func (s *Service) send(ctx context.Context, to, subject, html, text string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)
	msg.AddAlternativeString(mail.TypeTextPlain, text)

	return s.deliver(ctx, msg)
}

func (s *Service) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	// Build client options
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	// Add authentication if credentials are provided
	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
