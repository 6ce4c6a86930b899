// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware holds the echo middleware of the API.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/auth"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/token"
)

// TokenParser validates bearer tokens for a principal kind.
type TokenParser interface {
	Parse(ctx context.Context, raw string, kind models.PrincipalKind) (*token.Claims, error)
}

// BearerToken extracts the token from the Authorization header. Browsers
// cannot set headers on an EventSource, so a token query parameter is
// accepted when the header is absent.
func BearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(value)
	}
	return r.URL.Query().Get("token")
}

// RequirePrincipal rejects requests without a valid token of kind and
// stores the principal in the request context. Tokens of the other kind
// are forbidden rather than unauthenticated.
func RequirePrincipal(tokens TokenParser, kind models.PrincipalKind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			raw := BearerToken(req)
			if raw == "" {
				return apperr.Authentication("Unauthenticated")
			}

			claims, err := tokens.Parse(req.Context(), raw, kind)
			if err != nil {
				return tokenError(err)
			}
			ref, err := claims.Principal()
			if err != nil {
				return apperr.Authentication("Unauthenticated")
			}

			ctx := auth.WithPrincipal(req.Context(), &auth.Principal{
				Ref:     ref,
				TokenID: claims.ID,
				Token:   raw,
			})
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrWrongKind):
		return apperr.Forbidden("This token is not valid for this endpoint")
	case errors.Is(err, token.ErrInvalidToken), errors.Is(err, token.ErrRevoked):
		return apperr.Authentication("Unauthenticated")
	default:
		return err
	}
}
