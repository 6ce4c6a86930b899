// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func platformPtr(p models.Platform) *models.Platform { return &p }

func TestUpsertDeviceToken_New(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	customer := testutil.NewTestCustomer(t, repo, "sara@example.com")

	dt, err := repo.UpsertDeviceToken(ctx, customer.Ref(), "tok-1", platformPtr(models.PlatformIOS), time.Now())

	require.NoError(t, err)
	assert.Equal(t, "tok-1", dt.Token)
	assert.Equal(t, models.PlatformIOS, dt.Platform)
	assert.Equal(t, customer.Ref(), dt.Owner())
}

func TestUpsertDeviceToken_UnknownPlatformDefault(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	customer := testutil.NewTestCustomer(t, repo, "sara@example.com")

	dt, err := repo.UpsertDeviceToken(context.Background(), customer.Ref(), "tok-1", nil, time.Now())

	require.NoError(t, err)
	assert.Equal(t, models.PlatformUnknown, dt.Platform)
}

func TestUpsertDeviceToken_ReassignsOwner(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	a := testutil.NewTestCustomer(t, repo, "a@example.com")
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com")
	first := time.Now().Add(-time.Hour)

	_, err := repo.UpsertDeviceToken(ctx, a.Ref(), "shared", platformPtr(models.PlatformAndroid), first)
	require.NoError(t, err)

	dt, err := repo.UpsertDeviceToken(ctx, admin.Ref(), "shared", nil, time.Now())
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM device_tokens WHERE token = 'shared'`))
	assert.Equal(t, int64(1), count)
	assert.Equal(t, admin.Ref(), dt.Owner())
	assert.Equal(t, models.PlatformAndroid, dt.Platform, "omitted platform keeps stored value")
	assert.True(t, dt.LastUsedAt.After(first))

	tokens, err := repo.ListDeviceTokens(ctx, a.Ref())
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestTokensForOwners(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	a := testutil.NewTestCustomer(t, repo, "a@example.com")
	b := testutil.NewTestCustomer(t, repo, "b@example.com")
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com")
	now := time.Now()

	for owner, token := range map[models.PrincipalRef]string{
		a.Ref():     "tok-a",
		b.Ref():     "tok-b",
		admin.Ref(): "tok-admin",
	} {
		_, err := repo.UpsertDeviceToken(ctx, owner, token, nil, now)
		require.NoError(t, err)
	}

	tokens, err := repo.TokensForOwners(ctx, []models.PrincipalRef{a.Ref(), admin.Ref()})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tok-a", "tok-admin"}, tokens)
}

func TestTokensForOwners_CustomerAndAdminWithSameID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	customer := testutil.NewTestCustomer(t, repo, "a@example.com")
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com")
	require.Equal(t, customer.ID, admin.ID)

	_, err := repo.UpsertDeviceToken(ctx, customer.Ref(), "tok-customer", nil, time.Now())
	require.NoError(t, err)
	_, err = repo.UpsertDeviceToken(ctx, admin.Ref(), "tok-admin", nil, time.Now())
	require.NoError(t, err)

	tokens, err := repo.TokensForOwners(ctx, []models.PrincipalRef{admin.Ref()})

	require.NoError(t, err)
	assert.Equal(t, []string{"tok-admin"}, tokens)
}
