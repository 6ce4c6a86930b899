// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/middleware"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	authsvc "codeberg.org/oliverandrich/go-shop-backend/internal/services/auth"
)

type registerRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type challengeRequest struct {
	Ticket string `json:"challenge_token" validate:"required"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

type codeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Register creates an unverified customer and emails a verification code.
func (h *Handlers) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	customer, err := h.auth.Register(c.Request().Context(), authsvc.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, "Registration successful. Please verify your email.", map[string]any{
		"email":                 customer.Email,
		"requires_verification": true,
	})
}

// VerifyOTP confirms the customer's email and signs them in.
func (h *Handlers) VerifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := h.auth.VerifyEmail(c.Request().Context(), req.Email, req.OTP)
	if err != nil {
		return err
	}
	return ok(c, "Email verified successfully", session)
}

// ResendOTP issues a new verification code.
func (h *Handlers) ResendOTP(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.ResendCode(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return ok(c, "OTP sent successfully", nil)
}

// CustomerLogin signs a customer in or starts a two-factor challenge.
func (h *Handlers) CustomerLogin(c echo.Context) error {
	return h.login(c, h.auth.LoginCustomer)
}

// AdminLogin signs an admin in or starts a two-factor challenge.
func (h *Handlers) AdminLogin(c echo.Context) error {
	return h.login(c, h.auth.LoginAdmin)
}

type loginFunc func(ctx context.Context, email, password string) (*authsvc.LoginResult, error)

func (h *Handlers) login(c echo.Context, fn loginFunc) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := fn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	if res.Challenge != nil {
		return ok(c, "2FA verification required", res.Challenge)
	}
	return ok(c, "Login successful", res.Session)
}

// TwoFactorChallenge completes a login that required a TOTP code.
func (h *Handlers) TwoFactorChallenge(c echo.Context) error {
	var req challengeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := h.auth.CompleteChallenge(c.Request().Context(), req.Ticket, req.Code)
	if err != nil {
		return err
	}
	return ok(c, "2FA verification successful", session)
}

// Me returns the authenticated customer or admin.
func (h *Handlers) Me(c echo.Context) error {
	ref, err := principalRef(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	switch ref.Kind {
	case models.PrincipalCustomer:
		customer, err := h.auth.Customer(ctx, ref.ID)
		if err != nil {
			return err
		}
		return ok(c, "", customer)
	default:
		admin, err := h.auth.Admin(ctx, ref.ID)
		if err != nil {
			return err
		}
		return ok(c, "", map[string]any{
			"id":                 admin.ID,
			"name":               admin.Name,
			"email":              admin.Email,
			"roles":              admin.RoleList(),
			"two_factor_enabled": admin.TOTPEnabled,
			"created_at":         admin.CreatedAt,
		})
	}
}

// Logout revokes the bearer token of the request.
func (h *Handlers) Logout(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.Request().Context(), p.Token); err != nil {
		return err
	}
	return ok(c, "Logged out successfully", nil)
}

// Refresh returns a handler that rotates a token of kind. It runs outside
// the auth middleware so recently expired tokens can still be refreshed.
func (h *Handlers) Refresh(kind models.PrincipalKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := middleware.BearerToken(c.Request())
		if raw == "" {
			return apperr.Authentication("Unauthenticated")
		}

		session, err := h.auth.Refresh(c.Request().Context(), raw, kind)
		if err != nil {
			return err
		}
		return ok(c, "", session)
	}
}

// EnableTwoFactor starts TOTP enrollment for the caller.
func (h *Handlers) EnableTwoFactor(c echo.Context) error {
	ref, err := principalRef(c)
	if err != nil {
		return err
	}

	enrollment, err := h.auth.EnableTwoFactor(c.Request().Context(), ref)
	if err != nil {
		return err
	}
	return ok(c, "2FA setup initiated. Please scan the QR code.", enrollment)
}

// VerifyTwoFactor confirms enrollment, or re-authenticates when two-factor
// is already enabled.
func (h *Handlers) VerifyTwoFactor(c echo.Context) error {
	ref, err := principalRef(c)
	if err != nil {
		return err
	}
	var req codeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.VerifyTwoFactor(c.Request().Context(), ref, req.Code)
	if err != nil {
		return err
	}
	if res.Enabled {
		return ok(c, "2FA enabled successfully", nil)
	}
	return ok(c, "2FA verification successful", res.Session)
}

// DisableTwoFactor turns TOTP off for the caller.
func (h *Handlers) DisableTwoFactor(c echo.Context) error {
	ref, err := principalRef(c)
	if err != nil {
		return err
	}
	var req codeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.DisableTwoFactor(c.Request().Context(), ref, req.Code); err != nil {
		return err
	}
	return ok(c, "2FA disabled successfully", nil)
}
