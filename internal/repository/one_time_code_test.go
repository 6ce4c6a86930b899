// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
	"codeberg.org/oliverandrich/go-shop-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceOneTimeCode_KeepsSingleRow(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(10 * time.Minute)

	require.NoError(t, repo.ReplaceOneTimeCode(ctx, "sara@example.com", "111111", expiresAt))
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, "sara@example.com", "222222", expiresAt))

	var count int64
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM one_time_codes WHERE email = ?`, "sara@example.com"))
	assert.Equal(t, int64(1), count)

	code, err := repo.GetOneTimeCode(ctx, "sara@example.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", code.Code)
	assert.WithinDuration(t, expiresAt, code.ExpiresAt, time.Second)
}

func TestConsumeOneTimeCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, "sara@example.com", "123456", time.Now().Add(time.Minute)))

	consumed, err := repo.ConsumeOneTimeCode(ctx, "sara@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "123456", consumed.Code)

	_, err = repo.GetOneTimeCode(ctx, "sara@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.ConsumeOneTimeCode(ctx, "sara@example.com", "123456")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConsumeOneTimeCode_WrongCodeLeavesRecord(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, "sara@example.com", "123456", time.Now().Add(time.Minute)))

	_, err := repo.ConsumeOneTimeCode(ctx, "sara@example.com", "654321")
	require.ErrorIs(t, err, repository.ErrNotFound)

	code, err := repo.GetOneTimeCode(ctx, "sara@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", code.Code)
}

func TestDeleteExpiredOneTimeCodes(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, "old@example.com", "111111", now.Add(-time.Hour)))
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, "new@example.com", "222222", now.Add(time.Hour)))

	n, err := repo.DeleteExpiredOneTimeCodes(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.GetOneTimeCode(ctx, "old@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetOneTimeCode(ctx, "new@example.com")
	assert.NoError(t, err)
}
