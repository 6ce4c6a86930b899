// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package totp manages time-based two-factor enrollment and verification
// for admins and customers.
package totp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"codeberg.org/oliverandrich/go-shop-backend/internal/metrics"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
)

const (
	// Period is the TOTP time step in seconds.
	Period = 30
	// Skew is the number of steps accepted on either side of the current one.
	Skew = 1
	// SecretSize is the secret length in bytes (160 bits).
	SecretSize = 20
)

var (
	ErrNotSetUp       = errors.New("two-factor authentication is not set up")
	ErrNotEnabled     = errors.New("two-factor authentication is not enabled")
	ErrInvalidCode    = errors.New("invalid two-factor code")
	ErrAlreadyEnabled = errors.New("two-factor authentication is already enabled")
)

var validateOpts = totp.ValidateOpts{
	Period:    Period,
	Skew:      Skew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Enrollment is returned when a principal starts two-factor setup.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"qr_code_url"`
}

type Service struct {
	repo   *repository.Repository
	issuer string
	now    func() time.Time
}

// NewService creates a TOTP service. issuer is shown in authenticator apps.
func NewService(repo *repository.Repository, issuer string) *Service {
	return &Service{repo: repo, issuer: issuer, now: time.Now}
}

// BeginEnrollment generates and stores a new secret for ref, replacing any
// previous one. The enabled flag is left as it is.
func (s *Service) BeginEnrollment(ctx context.Context, ref models.PrincipalRef) (*Enrollment, error) {
	acc, err := s.repo.GetAccount(ctx, ref)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: acc.Email,
		Period:      Period,
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	secret := key.Secret()
	if err := s.repo.SetTwoFactor(ctx, ref, &secret, acc.TOTPEnabled); err != nil {
		return nil, fmt.Errorf("failed to store totp secret: %w", err)
	}

	slog.InfoContext(ctx, "totp_enrollment_started", "principal", ref.String())
	return &Enrollment{Secret: secret, URL: key.URL()}, nil
}

// VerifyCode checks code against the stored secret. It is false when no
// secret is stored.
func (s *Service) VerifyCode(ctx context.Context, ref models.PrincipalRef, code string) (bool, error) {
	acc, err := s.repo.GetAccount(ctx, ref)
	if err != nil {
		return false, err
	}
	return s.check(ctx, acc, code)
}

func (s *Service) check(ctx context.Context, acc *models.Account, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !acc.HasTOTPSecret() {
		return false, nil
	}

	ok, err := totp.ValidateCustom(code, *acc.TOTPSecret, s.now(), validateOpts)
	if err != nil {
		// Malformed codes are reported as invalid rather than as errors.
		ok = false
	}

	result := metrics.ResultSuccess
	if !ok {
		result = metrics.ResultFailure
	}
	metrics.TwoFactorChecks.WithLabelValues(result).Inc()
	return ok, nil
}

// CompleteEnrollment verifies the first code after BeginEnrollment and
// enables two-factor authentication. It reports whether this call enabled
// it; a correct code for an already enabled account returns false.
func (s *Service) CompleteEnrollment(ctx context.Context, ref models.PrincipalRef, code string) (bool, error) {
	acc, err := s.repo.GetAccount(ctx, ref)
	if err != nil {
		return false, err
	}
	if !acc.HasTOTPSecret() {
		return false, ErrNotSetUp
	}

	ok, err := s.check(ctx, acc, code)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrInvalidCode
	}
	if acc.TOTPEnabled {
		return false, nil
	}

	if err := s.repo.SetTwoFactor(ctx, ref, acc.TOTPSecret, true); err != nil {
		return false, fmt.Errorf("failed to enable totp: %w", err)
	}
	slog.InfoContext(ctx, "totp_enabled", "principal", ref.String())
	return true, nil
}

// Challenge is the second login step for an account with two-factor
// authentication enabled.
func (s *Service) Challenge(ctx context.Context, ref models.PrincipalRef, code string) error {
	acc, err := s.repo.GetAccount(ctx, ref)
	if err != nil {
		return err
	}
	if !acc.TOTPEnabled {
		return ErrNotEnabled
	}

	ok, err := s.check(ctx, acc, code)
	if err != nil {
		return err
	}
	if !ok {
		slog.WarnContext(ctx, "totp_challenge_failed", "principal", ref.String())
		return ErrInvalidCode
	}
	return nil
}

// Disable clears the secret and the enabled flag after a valid code. An
// invalid code leaves everything unchanged.
func (s *Service) Disable(ctx context.Context, ref models.PrincipalRef, code string) error {
	acc, err := s.repo.GetAccount(ctx, ref)
	if err != nil {
		return err
	}
	if !acc.HasTOTPSecret() {
		return ErrNotSetUp
	}

	ok, err := s.check(ctx, acc, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}

	if err := s.repo.SetTwoFactor(ctx, ref, nil, false); err != nil {
		return fmt.Errorf("failed to disable totp: %w", err)
	}
	slog.InfoContext(ctx, "totp_disabled", "principal", ref.String())
	return nil
}
