// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/go-shop-backend/internal/config"
	"codeberg.org/oliverandrich/go-shop-backend/internal/database"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	cmd := &cli.Command{
		Name:     "shop",
		Flags:    config.Flags(),
		Commands: Commands(),
	}
	return cmd.Run(context.Background(), append([]string{"shop", "--log-level", "error"}, args...))
}

func TestCreateAdminCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "shop.db")

	err := runCLI(t, "--database-dsn", dsn, "create-admin",
		"--name", "Root", "--email", "Root@Example.com", "--password", "long-and-unusual-phrase", "--role", "super_admin")
	require.NoError(t, err)

	db, err := database.Open(dsn)
	require.NoError(t, err)
	defer db.Close()

	admin, err := repository.New(db).GetAdminByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Root", admin.Name)
	assert.Equal(t, []string{"super_admin"}, admin.RoleList())
}

func TestCreateAdminCommand_Rejections(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "shop.db")

	err := runCLI(t, "--database-dsn", dsn, "create-admin", "--name", "Root", "--email", "root@example.com", "--password", "12345678901234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password rejected")

	require.NoError(t, runCLI(t, "--database-dsn", dsn, "create-admin", "--name", "Root", "--email", "root@example.com", "--password", "long-and-unusual-phrase"))
	err = runCLI(t, "--database-dsn", dsn, "create-admin", "--name", "Other", "--email", "root@example.com", "--password", "another-unusual-phrase")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestMigrateCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "shop.db")

	require.NoError(t, runCLI(t, "--database-dsn", dsn, "migrate", "up"))
	require.NoError(t, runCLI(t, "--database-dsn", dsn, "migrate", "status"))
	require.NoError(t, runCLI(t, "--database-dsn", dsn, "migrate", "reset"))

	err := runCLI(t, "--database-dsn", dsn, "migrate", "sideways")
	assert.ErrorContains(t, err, "unknown migrate direction")
}
