// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
	"codeberg.org/oliverandrich/go-shop-backend/internal/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type clock struct{ t time.Time }

func (c *clock) now() time.Time           { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *repository.Repository, *clock) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	svc, err := NewService(repo, testSecret, "Shop App", time.Hour, 24*time.Hour)
	require.NoError(t, err)
	c := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = c.now
	return svc, repo, c
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(nil, "", "Shop App", time.Hour, 0)
	assert.Error(t, err)

	_, err = NewService(nil, testSecret, "Shop App", 0, 0)
	assert.Error(t, err)
}

func TestIssueAndParse(t *testing.T) {
	svc, _, c := newTestService(t)
	ctx := context.Background()

	issued, err := svc.IssueFor(ctx, models.CustomerRef(42))
	require.NoError(t, err)
	assert.WithinDuration(t, c.t.Add(time.Hour), issued.ExpiresAt, 0)

	claims, err := svc.Parse(ctx, issued.Token, models.PrincipalCustomer)
	require.NoError(t, err)
	ref, err := claims.Principal()
	require.NoError(t, err)
	assert.Equal(t, models.CustomerRef(42), ref)
	assert.Equal(t, "Shop App", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestIssueFor_UnknownKind(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.IssueFor(context.Background(), models.PrincipalRef{Kind: "robot", ID: 1})

	assert.ErrorIs(t, err, models.ErrUnknownPrincipalKind)
}

func TestParse_KindsAreNotInterchangeable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	customer, err := svc.IssueFor(ctx, models.CustomerRef(1))
	require.NoError(t, err)
	admin, err := svc.IssueFor(ctx, models.AdminRef(1))
	require.NoError(t, err)

	_, err = svc.Parse(ctx, customer.Token, models.PrincipalAdmin)
	assert.ErrorIs(t, err, ErrWrongKind)

	_, err = svc.Parse(ctx, admin.Token, models.PrincipalCustomer)
	assert.ErrorIs(t, err, ErrWrongKind)

	_, err = svc.Refresh(ctx, customer.Token, models.PrincipalAdmin)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestParse_Rejects(t *testing.T) {
	svc, _, c := newTestService(t)
	ctx := context.Background()

	issued, err := svc.IssueFor(ctx, models.AdminRef(1))
	require.NoError(t, err)

	other, err := NewService(nil, "another-secret", "Shop App", time.Hour, 0)
	require.NoError(t, err)
	other.now = c.now
	forged, err := other.IssueFor(ctx, models.AdminRef(1))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Kind: models.PrincipalAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Subject:   "1",
			Issuer:    "Shop App",
			Audience:  jwt.ClaimStrings{"admin"},
			ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"other secret", forged.Token},
		{"alg none", none},
		{"truncated", issued.Token[:len(issued.Token)-4]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Parse(ctx, tt.token, models.PrincipalAdmin)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestParse_Expired(t *testing.T) {
	svc, _, c := newTestService(t)
	ctx := context.Background()

	issued, err := svc.IssueFor(ctx, models.CustomerRef(1))
	require.NoError(t, err)

	c.advance(time.Hour + time.Second)

	_, err = svc.Parse(ctx, issued.Token, models.PrincipalCustomer)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_StrictlyLaterExpiry(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.IssueFor(ctx, models.CustomerRef(5))
	require.NoError(t, err)

	// Same instant: the new expiry still has to move forward.
	refreshed, err := svc.Refresh(ctx, issued.Token, models.PrincipalCustomer)
	require.NoError(t, err)

	assert.True(t, refreshed.ExpiresAt.After(issued.ExpiresAt))
	assert.NotEqual(t, issued.Token, refreshed.Token)

	claims, err := svc.Parse(ctx, refreshed.Token, models.PrincipalCustomer)
	require.NoError(t, err)
	assert.Equal(t, "5", claims.Subject)
}

func TestRefresh_RevokesOldToken(t *testing.T) {
	svc, _, c := newTestService(t)
	ctx := context.Background()

	issued, err := svc.IssueFor(ctx, models.AdminRef(3))
	require.NoError(t, err)
	c.advance(10 * time.Minute)

	_, err = svc.Refresh(ctx, issued.Token, models.PrincipalAdmin)
	require.NoError(t, err)

	_, err = svc.Parse(ctx, issued.Token, models.PrincipalAdmin)
	assert.ErrorIs(t, err, ErrRevoked)

	_, err = svc.Refresh(ctx, issued.Token, models.PrincipalAdmin)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestRefresh_GraceWindow(t *testing.T) {
	svc, _, c := newTestService(t)
	ctx := context.Background()

	issued, err := svc.IssueFor(ctx, models.CustomerRef(1))
	require.NoError(t, err)

	c.advance(2 * time.Hour)
	refreshed, err := svc.Refresh(ctx, issued.Token, models.PrincipalCustomer)
	require.NoError(t, err)
	assert.WithinDuration(t, c.t.Add(time.Hour), refreshed.ExpiresAt, 0)

	c.advance(time.Hour + 25*time.Hour)
	_, err = svc.Refresh(ctx, refreshed.Token, models.PrincipalCustomer)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestInvalidate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.IssueFor(ctx, models.CustomerRef(1))
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx, issued.Token))
	// Repeated logout is fine.
	require.NoError(t, svc.Invalidate(ctx, issued.Token))

	_, err = svc.Parse(ctx, issued.Token, models.PrincipalCustomer)
	assert.ErrorIs(t, err, ErrRevoked)

	claims, err := svc.parse(issued.Token, 0)
	require.NoError(t, err)
	revoked, err := repo.IsTokenRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestInvalidate_IgnoresBadTokens(t *testing.T) {
	svc, _, _ := newTestService(t)

	assert.NoError(t, svc.Invalidate(context.Background(), "garbage"))
}

func TestPrune(t *testing.T) {
	svc, repo, c := newTestService(t)
	ctx := context.Background()

	issued, err := svc.IssueFor(ctx, models.CustomerRef(1))
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx, issued.Token))

	removed, err := svc.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Past expiry plus grace the entry is useless.
	c.advance(time.Hour + 24*time.Hour + time.Second)
	removed, err = svc.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	claims, err := svc.parse(issued.Token, 48*time.Hour)
	require.NoError(t, err)
	revoked, err := repo.IsTokenRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)
}
