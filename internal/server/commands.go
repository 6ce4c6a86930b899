// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/go-shop-backend/internal/config"
	"codeberg.org/oliverandrich/go-shop-backend/internal/database"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
	authsvc "codeberg.org/oliverandrich/go-shop-backend/internal/services/auth"
)

// Commands returns the subcommands of the application binary.
func Commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Start the HTTP API",
			Action: Run,
		},
		{
			Name:  "create-admin",
			Usage: "Create a back-office administrator",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
				&cli.StringFlag{Name: "email", Usage: "Login email", Required: true},
				&cli.StringFlag{Name: "password", Usage: "Initial password", Required: true, Sources: cli.EnvVars("ADMIN_PASSWORD")},
				&cli.StringSliceFlag{Name: "role", Usage: "Role to grant (repeatable)", Value: []string{"admin"}},
			},
			Action: CreateAdmin,
		},
		{
			Name:      "migrate",
			Usage:     "Manage database migrations",
			ArgsUsage: "[up|down|reset|status]",
			Action:    Migrate,
		},
	}
}

// CreateAdmin inserts an administrator account.
func CreateAdmin(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	svc := authsvc.NewService(repository.New(db), nil, nil, nil, nil, nil)
	admin, err := svc.CreateAdmin(ctx, cmd.String("name"), cmd.String("email"), cmd.String("password"), cmd.StringSlice("role"))

	var pe *authsvc.PasswordError
	switch {
	case errors.As(err, &pe):
		return fmt.Errorf("password rejected: %s", strings.Join(pe.Messages, " "))
	case errors.Is(err, authsvc.ErrAdminExists):
		return fmt.Errorf("an admin with email %q already exists", cmd.String("email"))
	case err != nil:
		return err
	}

	slog.Info("admin created", "id", admin.ID, "email", admin.Email)
	return nil
}

// Migrate applies or rolls back schema migrations.
func Migrate(_ context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	direction := cmd.Args().First()
	switch direction {
	case "", "up":
		err = database.RunMigrations(db.DB)
	case "down":
		err = database.MigrateDown(db.DB)
	case "reset":
		err = database.MigrateReset(db.DB)
	case "status":
		err = database.MigrationStatus(db.DB)
	default:
		return fmt.Errorf("unknown migrate direction %q", direction)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	return nil
}
