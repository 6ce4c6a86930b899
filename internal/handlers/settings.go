// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-shop-backend/internal/services/settings"
)

// Settings returns the customer's profile and preferences.
func (h *Handlers) Settings(c echo.Context) error {
	ref, err := principalRef(c)
	if err != nil {
		return err
	}

	view, err := h.settings.Show(c.Request().Context(), ref.ID)
	if err != nil {
		return err
	}
	return ok(c, "", view)
}

// UpdateSettings changes the customer's profile and preferences.
func (h *Handlers) UpdateSettings(c echo.Context) error {
	ref, err := principalRef(c)
	if err != nil {
		return err
	}
	var req settings.UpdateInput
	if err := bind(c, &req); err != nil {
		return err
	}

	view, err := h.settings.Update(c.Request().Context(), ref.ID, req)
	if err != nil {
		return err
	}
	return ok(c, "Settings updated successfully", view)
}
