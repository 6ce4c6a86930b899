// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/go-shop-backend/internal/config"
	"codeberg.org/oliverandrich/go-shop-backend/internal/events"
	"codeberg.org/oliverandrich/go-shop-backend/internal/handlers"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
	authsvc "codeberg.org/oliverandrich/go-shop-backend/internal/services/auth"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/catalog"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/challenge"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/email"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/notify"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/otp"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/push"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/settings"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/token"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/totp"
	"codeberg.org/oliverandrich/go-shop-backend/internal/sse"
)

// App holds the wired services of a running server.
type App struct {
	Repo     *repository.Repository
	Bus      *events.Bus
	Hub      *sse.Hub
	Tokens   *token.Service
	Codes    *otp.Service
	Auth     *authsvc.Service
	Notify   *notify.Service
	Catalog  *catalog.Service
	Handlers *handlers.Handlers
}

// NewApp wires every service on top of db. mailer may be nil, in which
// case one is built from the SMTP configuration.
func NewApp(cfg *config.Config, db *sqlx.DB, mailer authsvc.Mailer) (*App, error) {
	repo := repository.New(db)

	tokens, err := token.NewService(repo, cfg.Auth.SigningSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, cfg.Auth.RefreshGrace)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	challenges, err := challenge.NewManager(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge manager: %w", err)
	}
	if mailer == nil {
		mailer, err = newMailer(cfg)
		if err != nil {
			return nil, err
		}
	}

	bus, err := events.NewBus(slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	hub := sse.NewHub()
	codes := otp.NewService(repo, cfg.Auth.CodeTTL)
	auth := authsvc.NewService(repo, codes, totp.NewService(repo, cfg.Auth.Issuer), tokens, challenges, mailer)
	auth.OnRevoke(func(tokenID string) {
		if n := hub.CloseKey(tokenID); n > 0 {
			slog.Debug("closed streams for revoked token", "clients", n)
		}
	})
	notifier := notify.NewService(repo, push.NewClient(&cfg.Push), hub)
	products := catalog.NewService(repo, bus)

	bus.OnOutOfStock("stock_alert", func(ctx context.Context, evt events.ProductOutOfStock) error {
		_, err := notifier.StockAlert(ctx, evt.ProductID, evt.ProductName)
		return err
	})

	return &App{
		Repo:     repo,
		Bus:      bus,
		Hub:      hub,
		Tokens:   tokens,
		Codes:    codes,
		Auth:     auth,
		Notify:   notifier,
		Catalog:  products,
		Handlers: handlers.New(auth, notifier, products, settings.NewService(repo), hub),
	}, nil
}

func newMailer(cfg *config.Config) (authsvc.Mailer, error) {
	if cfg.SMTP.Host == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("smtp host is required outside development")
		}
		slog.Warn("SMTP not configured, verification codes are logged instead of sent")
		return email.NewLogService(&cfg.SMTP, cfg.Auth.CodeTTL), nil
	}
	svc, err := email.NewService(&cfg.SMTP, cfg.Auth.CodeTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create email service: %w", err)
	}
	return svc, nil
}
