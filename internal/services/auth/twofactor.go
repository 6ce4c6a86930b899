// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/totp"
)

// TwoFactorResult reports what a verified setup code did. Session is set
// when two-factor was already enabled and the code served as a re-login.
type TwoFactorResult struct {
	Enabled bool
	Session *Session
}

// EnableTwoFactor starts (or restarts) TOTP enrollment.
func (s *Service) EnableTwoFactor(ctx context.Context, ref models.PrincipalRef) (*totp.Enrollment, error) {
	return s.twoFactor.BeginEnrollment(ctx, ref)
}

// VerifyTwoFactor completes enrollment with the first valid code.
func (s *Service) VerifyTwoFactor(ctx context.Context, ref models.PrincipalRef, code string) (*TwoFactorResult, error) {
	enabledNow, err := s.twoFactor.CompleteEnrollment(ctx, ref, code)
	if err != nil {
		return nil, twoFactorError(err)
	}
	if enabledNow {
		return &TwoFactorResult{Enabled: true}, nil
	}

	session, err := s.SessionFor(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &TwoFactorResult{Session: session}, nil
}

// DisableTwoFactor turns TOTP off after checking a current code.
func (s *Service) DisableTwoFactor(ctx context.Context, ref models.PrincipalRef, code string) error {
	return twoFactorError(s.twoFactor.Disable(ctx, ref, code))
}

func twoFactorError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, totp.ErrNotSetUp):
		return apperr.BadRequest("2FA not set up. Please enable 2FA first.")
	case errors.Is(err, totp.ErrInvalidCode):
		return apperr.Authentication("Invalid 2FA code")
	default:
		return err
	}
}
