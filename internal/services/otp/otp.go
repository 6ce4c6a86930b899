// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp issues and verifies six-digit email verification codes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"codeberg.org/oliverandrich/go-shop-backend/internal/metrics"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
)

const (
	// DefaultTTL is how long a code stays valid.
	DefaultTTL = 10 * time.Minute
	// Digits is the length of a code.
	Digits = 6
)

var codeSpace = big.NewInt(1_000_000)

// Service issues and verifies one-time codes.
type Service struct {
	repo *repository.Repository
	ttl  time.Duration
	now  func() time.Time
}

// NewService creates a new one-time-code service.
func NewService(repo *repository.Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: repo, ttl: ttl, now: time.Now}
}

// Issue generates a fresh code for email and makes it the only live code.
// The plaintext code is returned for delivery.
func (s *Service) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	expiresAt := s.now().Add(s.ttl)
	if err := s.repo.ReplaceOneTimeCode(ctx, email, code, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	metrics.OTPIssued.Inc()
	slog.InfoContext(ctx, "otp_issued", "email", email, "expires_at", expiresAt)
	return code, nil
}

// Verify checks code for email. A matching code is consumed whether or not
// it has expired; a non-matching code changes nothing. Callers cannot
// distinguish a wrong code from an expired one.
func (s *Service) Verify(ctx context.Context, email, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	record, err := s.repo.ConsumeOneTimeCode(ctx, email, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.OTPVerifications.WithLabelValues(metrics.ResultInvalid).Inc()
			return false, nil
		}
		return false, fmt.Errorf("failed to verify code: %w", err)
	}

	if record.IsExpired(s.now()) {
		metrics.OTPVerifications.WithLabelValues(metrics.ResultExpired).Inc()
		slog.InfoContext(ctx, "otp_expired", "email", email)
		return false, nil
	}

	metrics.OTPVerifications.WithLabelValues(metrics.ResultSuccess).Inc()
	return true, nil
}

// generateCode returns a uniformly distributed, zero-padded six-digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", Digits, n.Int64()), nil
}

// Prune deletes codes that expired without being used.
func (s *Service) Prune(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredOneTimeCodes(ctx, s.now())
}
