// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/auth"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func ok(c echo.Context, message string, data any) error {
	return respond(c, http.StatusOK, message, data)
}

// bind decodes the request body into dst and validates it.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return err
	}
	return c.Validate(dst)
}

// principal returns the caller set by middleware.RequirePrincipal.
func principal(c echo.Context) (*auth.Principal, error) {
	p := auth.GetPrincipal(c.Request().Context())
	if p == nil {
		return nil, apperr.Authentication("Unauthenticated")
	}
	return p, nil
}

func principalRef(c echo.Context) (models.PrincipalRef, error) {
	p, err := principal(c)
	if err != nil {
		return models.PrincipalRef{}, err
	}
	return p.Ref, nil
}
