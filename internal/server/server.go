// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the services together and runs the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/go-shop-backend/internal/config"
	"codeberg.org/oliverandrich/go-shop-backend/internal/database"
	"codeberg.org/oliverandrich/go-shop-backend/internal/handlers"
	"codeberg.org/oliverandrich/go-shop-backend/internal/i18n"
	"codeberg.org/oliverandrich/go-shop-backend/internal/validation"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.EnsureSecrets(); err != nil {
		return err
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	app, err := NewApp(cfg, db, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, NewEcho(app, cfg), app, cfg)
}

// NewEcho builds the echo instance with middleware and routes.
func NewEcho(app *App, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = handlers.JSONSerializer{}
	e.Validator = validation.Validator{}
	e.HTTPErrorHandler = handlers.ErrorHandler

	setupMiddleware(e, cfg)
	setupRoutes(e, app, cfg)
	return e
}

func serve(ctx context.Context, e *echo.Echo, app *App, cfg *config.Config) error {
	errChan := make(chan error, 2)

	busCtx, stopBus := context.WithCancel(context.WithoutCancel(ctx))
	defer stopBus()
	go func() {
		if err := app.Bus.Run(busCtx); err != nil {
			errChan <- fmt.Errorf("event bus: %w", err)
		}
	}()

	go runHousekeeping(ctx, app, HousekeepingInterval)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case runErr = <-errChan:
		slog.Error("server error", "error", runErr)
	}

	// Graceful shutdown: stop accepting requests first, then drain events.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := app.Bus.Close(); err != nil {
		slog.Error("failed to close event bus", "error", err)
	}

	slog.Info("server stopped")
	return runErr
}
