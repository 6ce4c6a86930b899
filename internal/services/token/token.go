// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and validates the signed bearer tokens used by the
// admin and customer APIs.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"codeberg.org/oliverandrich/go-shop-backend/internal/metrics"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongKind    = errors.New("token not valid for this principal kind")
	ErrRevoked      = errors.New("token has been revoked")
)

// Claims carries the principal identity. Subject holds the principal id,
// Kind and the audience hold the principal kind.
type Claims struct {
	Kind models.PrincipalKind `json:"kind"`
	jwt.RegisteredClaims
}

// Principal returns the principal the token was issued for.
func (c *Claims) Principal() (models.PrincipalRef, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return models.PrincipalRef{}, ErrInvalidToken
	}
	return models.PrincipalRef{Kind: c.Kind, ID: id}, nil
}

// Issued is a freshly signed token.
type Issued struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	repo   *repository.Repository
	secret []byte
	issuer string
	ttl    time.Duration
	grace  time.Duration
	now    func() time.Time
}

// NewService creates a token service signing with HS256. grace is how long
// after expiry a token may still be refreshed.
func NewService(repo *repository.Repository, secret, issuer string, ttl, grace time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Service{
		repo:   repo,
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		grace:  grace,
		now:    time.Now,
	}, nil
}

// IssueFor signs a new token for ref.
func (s *Service) IssueFor(ctx context.Context, ref models.PrincipalRef) (*Issued, error) {
	return s.issue(ctx, ref, time.Time{})
}

// issue signs a token whose expiry is strictly after notBefore.
func (s *Service) issue(ctx context.Context, ref models.PrincipalRef, notBefore time.Time) (*Issued, error) {
	if !ref.Kind.Valid() {
		return nil, models.ErrUnknownPrincipalKind
	}

	now := s.now()
	exp := jwt.NewNumericDate(now.Add(s.ttl))
	if !notBefore.IsZero() && !exp.After(notBefore) {
		exp = jwt.NewNumericDate(notBefore.Add(jwt.TimePrecision))
	}

	claims := &Claims{
		Kind: ref.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(ref.ID, 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{string(ref.Kind)},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: exp,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	metrics.TokensIssued.WithLabelValues(string(ref.Kind)).Inc()
	slog.DebugContext(ctx, "token_issued", "principal", ref.String(), "jti", claims.ID)
	return &Issued{Token: signed, ExpiresAt: exp.Time}, nil
}

func (s *Service) parse(raw string, leeway time.Duration) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(s.now),
	)

	claims := &Claims{}
	tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || !claims.Kind.Valid() || !slices.Contains(claims.Audience, string(claims.Kind)) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// checkRevoked fails with ErrRevoked when the token id is on the denylist.
func (s *Service) checkRevoked(ctx context.Context, claims *Claims) error {
	revoked, err := s.repo.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("failed to check token denylist: %w", err)
	}
	if revoked {
		return ErrRevoked
	}
	return nil
}

// Parse validates raw for a protected route that accepts kind. A token of
// another kind fails with ErrWrongKind.
func (s *Service) Parse(ctx context.Context, raw string, kind models.PrincipalKind) (*Claims, error) {
	claims, err := s.parse(raw, 0)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Refreshable checks that raw may be exchanged by Refresh: valid or
// expired less than the grace window ago, of kind, and not revoked.
func (s *Service) Refreshable(ctx context.Context, raw string, kind models.PrincipalKind) (*Claims, error) {
	claims, err := s.parse(raw, s.grace)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Refresh exchanges a valid token, or one expired less than the grace
// window ago, for a new one with a later expiry. The old token is
// denylisted.
func (s *Service) Refresh(ctx context.Context, raw string, kind models.PrincipalKind) (*Issued, error) {
	claims, err := s.Refreshable(ctx, raw, kind)
	if err != nil {
		return nil, err
	}

	ref, err := claims.Principal()
	if err != nil {
		return nil, err
	}

	if err := s.revoke(ctx, claims); err != nil {
		return nil, err
	}
	return s.issue(ctx, ref, claims.ExpiresAt.Time)
}

// Inspect returns the claims of a well-signed token that is not past the
// grace window, without consulting the denylist.
func (s *Service) Inspect(raw string) (*Claims, error) {
	return s.parse(raw, s.grace)
}

// Invalidate denylists raw until it could no longer be refreshed. Tokens
// that fail validation are ignored.
func (s *Service) Invalidate(ctx context.Context, raw string) error {
	claims, err := s.parse(raw, s.grace)
	if err != nil {
		return nil
	}
	return s.revoke(ctx, claims)
}

func (s *Service) revoke(ctx context.Context, claims *Claims) error {
	until := claims.ExpiresAt.Add(s.grace)
	if err := s.repo.RevokeToken(ctx, claims.ID, until); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	slog.DebugContext(ctx, "token_revoked", "jti", claims.ID)
	return nil
}

// Prune removes denylist entries for tokens that can no longer be used.
func (s *Service) Prune(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredRevokedTokens(ctx, s.now())
}
