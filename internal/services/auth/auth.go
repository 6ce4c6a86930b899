// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements the password, email verification and two-factor
// login flows for customers and admins.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/i18n"
	"codeberg.org/oliverandrich/go-shop-backend/internal/metrics"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/challenge"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/otp"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/token"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/totp"
)

var (
	ErrAdminExists = errors.New("admin already exists")
)

// dummyHash is compared against when the email is unknown so that both
// paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Mailer delivers one-time codes.
type Mailer interface {
	SendOTP(ctx context.Context, to, name, code string) error
}

// Session is a signed-in principal with its bearer token.
type Session struct { //nolint:govet // fieldalignment: readability over optimization
	Customer  *models.Customer `json:"customer,omitempty"`
	Admin     *models.Admin    `json:"admin,omitempty"`
	Token     string           `json:"token"`
	TokenType string           `json:"token_type"`
	ExpiresIn int64            `json:"expires_in"`
}

// Challenge is returned instead of a session when the principal has
// two-factor authentication enabled.
type Challenge struct {
	RequiresTwoFactor bool   `json:"requires_two_factor"`
	Ticket            string `json:"challenge_token"`
	ExpiresIn         int64  `json:"expires_in"`
}

// LoginResult holds exactly one of Session and Challenge.
type LoginResult struct {
	Session   *Session
	Challenge *Challenge
}

// Service wires credentials, one-time codes, TOTP and tokens together.
type Service struct {
	repo       *repository.Repository
	codes      *otp.Service
	twoFactor  *totp.Service
	tokens     *token.Service
	challenges *challenge.Manager
	mailer     Mailer
	revoked    []func(tokenID string)
	cost       int
	now        func() time.Time
}

func NewService(
	repo *repository.Repository,
	codes *otp.Service,
	twoFactor *totp.Service,
	tokens *token.Service,
	challenges *challenge.Manager,
	mailer Mailer,
) *Service {
	return &Service{
		repo:       repo,
		codes:      codes,
		twoFactor:  twoFactor,
		tokens:     tokens,
		challenges: challenges,
		mailer:     mailer,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// RegisterParams holds the parameters for customer registration.
type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

// Register creates an unverified customer and emails a verification code.
// A delivery failure is reported as a transient error; the account stays
// and the customer can ask for a new code.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.Customer, error) {
	email := normalizeEmail(params.Email)

	if err := CustomerPasswordPolicy().Check(params.Password); err != nil {
		return nil, passwordFieldError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	customer, err := s.repo.CreateCustomer(ctx, strings.TrimSpace(params.Name), email, string(hash))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Field("email", "The email has already been taken.")
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	slog.InfoContext(ctx, "customer_registered", "customer_id", customer.ID)

	if err := s.sendCode(ctx, customer); err != nil {
		return customer, err
	}
	return customer, nil
}

// VerifyEmail confirms a customer's email with a one-time code and signs
// the customer in.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (*Session, error) {
	customer, err := s.pendingCustomer(ctx, email)
	if err != nil {
		return nil, err
	}

	ok, err := s.codes.Verify(ctx, customer.Email, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.BadRequest("Invalid or expired OTP")
	}

	if err := s.repo.MarkCustomerVerified(ctx, customer.ID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to mark customer verified: %w", err)
	}
	customer, err = s.repo.GetCustomerByID(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "customer_verified", "customer_id", customer.ID)

	return s.customerSession(ctx, customer)
}

// ResendCode replaces the customer's pending code and emails the new one.
func (s *Service) ResendCode(ctx context.Context, email string) error {
	customer, err := s.pendingCustomer(ctx, email)
	if err != nil {
		return err
	}
	return s.sendCode(ctx, customer)
}

func (s *Service) pendingCustomer(ctx context.Context, email string) (*models.Customer, error) {
	customer, err := s.repo.GetCustomerByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Customer not found")
		}
		return nil, err
	}
	if customer.IsVerified() {
		return nil, apperr.BadRequest("Email already verified")
	}
	return customer, nil
}

func (s *Service) sendCode(ctx context.Context, customer *models.Customer) error {
	code, err := s.codes.Issue(ctx, customer.Email)
	if err != nil {
		return err
	}
	// A saved language preference wins over Accept-Language.
	if lang, err := s.repo.CustomerLanguage(ctx, customer.ID); err == nil {
		ctx = i18n.WithLocale(ctx, i18n.MatchLanguage(lang))
	}
	if err := s.mailer.SendOTP(ctx, customer.Email, customer.Name, code); err != nil {
		slog.ErrorContext(ctx, "otp_email_failed", "customer_id", customer.ID, "error", err)
		return apperr.TransientDelivery("The verification email could not be sent. Please try again.", err)
	}
	return nil
}

// LoginCustomer checks a customer's password. Unverified customers get a
// fresh code and a forbidden error flagged with requires_verification.
func (s *Service) LoginCustomer(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)

	customer, err := s.repo.GetCustomerByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if customer == nil || !s.checkPassword(customer.PasswordHash, password) {
		if customer == nil {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		}
		metrics.Logins.WithLabelValues(string(models.PrincipalCustomer), metrics.ResultFailure).Inc()
		return nil, apperr.Authentication("Invalid credentials")
	}

	if !customer.IsVerified() {
		if err := s.sendCode(ctx, customer); err != nil {
			return nil, err
		}
		return nil, apperr.Forbidden("Email not verified. A new OTP has been sent.").
			With("requires_verification", true).
			With("email", customer.Email)
	}

	if !customer.IsActive {
		metrics.Logins.WithLabelValues(string(models.PrincipalCustomer), metrics.ResultFailure).Inc()
		return nil, errDeactivated()
	}

	metrics.Logins.WithLabelValues(string(models.PrincipalCustomer), metrics.ResultSuccess).Inc()
	if customer.TOTPEnabled {
		return s.challenge(customer.Ref())
	}

	session, err := s.customerSession(ctx, customer)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: session}, nil
}

// LoginAdmin checks an admin's password.
func (s *Service) LoginAdmin(ctx context.Context, email, password string) (*LoginResult, error) {
	admin, err := s.repo.GetAdminByEmail(ctx, normalizeEmail(email))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if admin == nil || !s.checkPassword(admin.PasswordHash, password) {
		if admin == nil {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		}
		metrics.Logins.WithLabelValues(string(models.PrincipalAdmin), metrics.ResultFailure).Inc()
		return nil, apperr.Authentication("Invalid credentials")
	}

	metrics.Logins.WithLabelValues(string(models.PrincipalAdmin), metrics.ResultSuccess).Inc()
	if admin.TOTPEnabled {
		return s.challenge(admin.Ref())
	}

	session, err := s.adminSession(ctx, admin)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: session}, nil
}

func (s *Service) checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *Service) challenge(ref models.PrincipalRef) (*LoginResult, error) {
	ticket, err := s.challenges.Issue(ref)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Challenge: &Challenge{
		RequiresTwoFactor: true,
		Ticket:            ticket,
		ExpiresIn:         int64(s.challenges.TTL().Seconds()),
	}}, nil
}

// CompleteChallenge exchanges a challenge ticket and a TOTP code for a session.
func (s *Service) CompleteChallenge(ctx context.Context, ticket, code string) (*Session, error) {
	ref, err := s.challenges.Verify(ticket)
	if err != nil {
		return nil, apperr.Authentication("Invalid or expired two-factor challenge")
	}

	if err := s.twoFactor.Challenge(ctx, ref, code); err != nil {
		if errors.Is(err, totp.ErrInvalidCode) || errors.Is(err, totp.ErrNotEnabled) || errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Authentication("Invalid 2FA code")
		}
		return nil, err
	}

	return s.SessionFor(ctx, ref)
}

// SessionFor issues a token for ref and loads the account it belongs to.
func (s *Service) SessionFor(ctx context.Context, ref models.PrincipalRef) (*Session, error) {
	switch ref.Kind {
	case models.PrincipalCustomer:
		customer, err := s.Customer(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return s.customerSession(ctx, customer)
	case models.PrincipalAdmin:
		admin, err := s.Admin(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return s.adminSession(ctx, admin)
	default:
		return nil, models.ErrUnknownPrincipalKind
	}
}

// customerSession is the single place customer tokens are issued, so a
// deactivated customer never receives one.
func (s *Service) customerSession(ctx context.Context, customer *models.Customer) (*Session, error) {
	if !customer.IsActive {
		return nil, errDeactivated()
	}
	session, err := s.issue(ctx, customer.Ref())
	if err != nil {
		return nil, err
	}
	session.Customer = customer
	return session, nil
}

func (s *Service) adminSession(ctx context.Context, admin *models.Admin) (*Session, error) {
	session, err := s.issue(ctx, admin.Ref())
	if err != nil {
		return nil, err
	}
	session.Admin = admin
	return session, nil
}

func (s *Service) issue(ctx context.Context, ref models.PrincipalRef) (*Session, error) {
	issued, err := s.tokens.IssueFor(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.session(issued), nil
}

func (s *Service) session(issued *token.Issued) *Session {
	return &Session{
		Token:     issued.Token,
		TokenType: "bearer",
		ExpiresIn: int64(issued.ExpiresAt.Sub(s.now()).Seconds()),
	}
}

// OnRevoke registers fn to be called with the id of every token revoked by
// Refresh or Logout.
func (s *Service) OnRevoke(fn func(tokenID string)) {
	s.revoked = append(s.revoked, fn)
}

func (s *Service) notifyRevoked(tokenID string) {
	for _, fn := range s.revoked {
		fn(tokenID)
	}
}

// Refresh rotates a bearer token of the given kind. The account must still
// exist and, for customers, be active; a deactivated customer's token is
// revoked instead.
func (s *Service) Refresh(ctx context.Context, raw string, kind models.PrincipalKind) (*Session, error) {
	claims, err := s.tokens.Refreshable(ctx, raw, kind)
	if err != nil {
		return nil, err
	}
	ref, err := claims.Principal()
	if err != nil {
		return nil, err
	}

	if err := s.ensureActive(ctx, ref); err != nil {
		if e, ok := apperr.As(err); ok && e.Kind == apperr.KindForbidden {
			if revokeErr := s.tokens.Invalidate(ctx, raw); revokeErr != nil {
				return nil, revokeErr
			}
			s.notifyRevoked(claims.ID)
		}
		return nil, err
	}

	issued, err := s.tokens.Refresh(ctx, raw, kind)
	if err != nil {
		return nil, err
	}
	s.notifyRevoked(claims.ID)
	return s.session(issued), nil
}

// Logout revokes a bearer token.
func (s *Service) Logout(ctx context.Context, raw string) error {
	if err := s.tokens.Invalidate(ctx, raw); err != nil {
		return err
	}
	if claims, err := s.tokens.Inspect(raw); err == nil {
		s.notifyRevoked(claims.ID)
	}
	return nil
}

// ensureActive fails when the account behind ref is gone or deactivated.
func (s *Service) ensureActive(ctx context.Context, ref models.PrincipalRef) error {
	switch ref.Kind {
	case models.PrincipalCustomer:
		customer, err := s.Customer(ctx, ref.ID)
		if err != nil {
			return err
		}
		if !customer.IsActive {
			return errDeactivated()
		}
		return nil
	case models.PrincipalAdmin:
		_, err := s.Admin(ctx, ref.ID)
		return err
	default:
		return models.ErrUnknownPrincipalKind
	}
}

func errDeactivated() *apperr.Error {
	return apperr.Forbidden("Your account has been deactivated")
}

// Customer loads the customer behind a validated token.
func (s *Service) Customer(ctx context.Context, id int64) (*models.Customer, error) {
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Authentication("Unauthenticated")
	}
	return customer, err
}

// Admin loads the admin behind a validated token.
func (s *Service) Admin(ctx context.Context, id int64) (*models.Admin, error) {
	admin, err := s.repo.GetAdminByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Authentication("Unauthenticated")
	}
	return admin, err
}

// CreateAdmin creates a back-office account.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string, roles []string) (*models.Admin, error) {
	email = normalizeEmail(email)
	if err := AdminPasswordPolicy().Check(password, name, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin, err := s.repo.CreateAdmin(ctx, strings.TrimSpace(name), email, string(hash), roles)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAdminExists
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	slog.InfoContext(ctx, "admin_created", "admin_id", admin.ID)
	return admin, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func passwordFieldError(err error) error {
	var pe *PasswordError
	if errors.As(err, &pe) {
		return apperr.Validation(pe.Messages[0], map[string][]string{"password": pe.Messages})
	}
	return err
}
