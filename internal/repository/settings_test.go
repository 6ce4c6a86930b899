// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
	"codeberg.org/oliverandrich/go-shop-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCustomerSettings_CreatesDefaults(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	customer := testutil.NewTestCustomer(t, repo, "sara@example.com")

	s, err := repo.GetCustomerSettings(context.Background(), customer.ID)

	require.NoError(t, err)
	assert.Equal(t, "en", s.Language)
	assert.Equal(t, "system", s.Theme)
	assert.True(t, s.NotificationsEnabled)
	assert.Empty(t, s.Addresses)
	assert.Empty(t, s.PaymentMethods)
}

func TestSaveCustomerSettings(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	customer := testutil.NewTestCustomer(t, repo, "sara@example.com")
	s, err := repo.GetCustomerSettings(ctx, customer.ID)
	require.NoError(t, err)

	s.Language = "ar"
	s.Theme = "dark"
	s.NotificationsEnabled = false
	s.Addresses = models.JSONList{{"city": "Cairo"}}
	require.NoError(t, repo.SaveCustomerSettings(ctx, s))

	stored, err := repo.GetCustomerSettings(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "ar", stored.Language)
	assert.Equal(t, "dark", stored.Theme)
	assert.False(t, stored.NotificationsEnabled)
	require.Len(t, stored.Addresses, 1)
	assert.Equal(t, "Cairo", stored.Addresses[0]["city"])
}

func TestCustomerLanguage(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	customer := testutil.NewTestCustomer(t, repo, "sara@example.com")

	_, err := repo.CustomerLanguage(ctx, customer.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetCustomerSettings(ctx, customer.ID)
	require.NoError(t, err)
	lang, err := repo.CustomerLanguage(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
}
